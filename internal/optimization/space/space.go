// Package space describes the domain of valid input configurations:
// named variables with bounds or allowed values, collected into an
// ordered parameter space.
package space

import (
	"fmt"
	"math"
	"math/rand"
)

// VariableKind distinguishes continuous, discrete and categorical
// dimensions.
type VariableKind int

const (
	// Continuous variables take any value in [Min, Max].
	Continuous VariableKind = iota
	// Discrete variables take one of an ordered set of numeric values.
	Discrete
	// Categorical variables take one of a set of encoded levels;
	// ordering carries no meaning.
	Categorical
)

// String returns the kind's name.
func (k VariableKind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Discrete:
		return "discrete"
	case Categorical:
		return "categorical"
	default:
		return "unknown"
	}
}

// Variable is a named dimension of the parameter space. Immutable once
// the space is constructed.
type Variable struct {
	Name string
	Kind VariableKind

	// Min and Max bound continuous variables.
	Min, Max float64

	// Values lists the allowed values of discrete and categorical
	// variables.
	Values []float64
}

// NewContinuous creates a continuous variable bounded by [min, max].
func NewContinuous(name string, min, max float64) Variable {
	return Variable{Name: name, Kind: Continuous, Min: min, Max: max}
}

// NewDiscrete creates a discrete variable over the given values.
func NewDiscrete(name string, values ...float64) Variable {
	return Variable{Name: name, Kind: Discrete, Values: append([]float64(nil), values...)}
}

// NewCategorical creates a categorical variable over the given encoded
// levels.
func NewCategorical(name string, values ...float64) Variable {
	return Variable{Name: name, Kind: Categorical, Values: append([]float64(nil), values...)}
}

// bounds returns the variable's numeric range.
func (v Variable) bounds() (min, max float64) {
	if v.Kind == Continuous {
		return v.Min, v.Max
	}
	min, max = math.Inf(1), math.Inf(-1)
	for _, val := range v.Values {
		if val < min {
			min = val
		}
		if val > max {
			max = val
		}
	}
	return min, max
}

// contains reports whether the value is valid for the variable.
func (v Variable) contains(x float64) bool {
	if v.Kind == Continuous {
		return x >= v.Min && x <= v.Max
	}
	for _, val := range v.Values {
		if x == val {
			return true
		}
	}
	return false
}

// ParameterSpace is an ordered collection of variables with unique
// names. It is immutable after construction.
type ParameterSpace struct {
	variables []Variable
}

// New builds a parameter space, validating that variable names are
// unique and every variable has a non-empty domain.
func New(variables ...Variable) (*ParameterSpace, error) {
	if len(variables) == 0 {
		return nil, fmt.Errorf("parameter space requires at least one variable")
	}
	seen := make(map[string]struct{}, len(variables))
	for _, v := range variables {
		if v.Name == "" {
			return nil, fmt.Errorf("variable name must not be empty")
		}
		if _, ok := seen[v.Name]; ok {
			return nil, fmt.Errorf("duplicate variable name %q", v.Name)
		}
		seen[v.Name] = struct{}{}

		switch v.Kind {
		case Continuous:
			if !(v.Min < v.Max) {
				return nil, fmt.Errorf("variable %q: bounds [%v, %v] are not a valid range", v.Name, v.Min, v.Max)
			}
		case Discrete, Categorical:
			if len(v.Values) == 0 {
				return nil, fmt.Errorf("variable %q: no allowed values", v.Name)
			}
		default:
			return nil, fmt.Errorf("variable %q: unknown kind %d", v.Name, v.Kind)
		}
	}
	return &ParameterSpace{variables: append([]Variable(nil), variables...)}, nil
}

// Dimensionality returns the number of variables.
func (s *ParameterSpace) Dimensionality() int {
	return len(s.variables)
}

// Variables returns the ordered variables.
func (s *ParameterSpace) Variables() []Variable {
	return append([]Variable(nil), s.variables...)
}

// Bounds returns per-dimension [min, max] ranges. For discrete and
// categorical variables the range spans their allowed values.
func (s *ParameterSpace) Bounds() [][2]float64 {
	bounds := make([][2]float64, len(s.variables))
	for i, v := range s.variables {
		min, max := v.bounds()
		bounds[i] = [2]float64{min, max}
	}
	return bounds
}

// Contains reports whether x is a valid point of the space.
func (s *ParameterSpace) Contains(x []float64) bool {
	if len(x) != len(s.variables) {
		return false
	}
	for i, v := range s.variables {
		if !v.contains(x[i]) {
			return false
		}
	}
	return true
}

// AllContinuous reports whether every variable is continuous.
func (s *ParameterSpace) AllContinuous() bool {
	for _, v := range s.variables {
		if v.Kind != Continuous {
			return false
		}
	}
	return true
}

// Clip maps an arbitrary vector onto the nearest valid point: clamping
// continuous dimensions and snapping discrete and categorical ones to
// the closest allowed value. The input is not modified.
func (s *ParameterSpace) Clip(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range s.variables {
		switch v.Kind {
		case Continuous:
			out[i] = math.Max(v.Min, math.Min(x[i], v.Max))
		default:
			nearest := v.Values[0]
			for _, val := range v.Values[1:] {
				if math.Abs(val-x[i]) < math.Abs(nearest-x[i]) {
					nearest = val
				}
			}
			out[i] = nearest
		}
	}
	return out
}

// Sample draws a uniform random point from the space.
func (s *ParameterSpace) Sample(rng *rand.Rand) []float64 {
	x := make([]float64, len(s.variables))
	for i, v := range s.variables {
		switch v.Kind {
		case Continuous:
			x[i] = v.Min + rng.Float64()*(v.Max-v.Min)
		default:
			x[i] = v.Values[rng.Intn(len(v.Values))]
		}
	}
	return x
}
