// Package server exposes optimization sessions over HTTP: an ask/tell
// surface where external evaluators fetch suggested points and post
// back observed results.
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/frostlabs/boreal/internal/config"
	"github.com/frostlabs/boreal/internal/logging"
	"github.com/frostlabs/boreal/internal/optimization"
	"github.com/frostlabs/boreal/internal/optimization/acquisition"
	"github.com/frostlabs/boreal/internal/optimization/bayesian"
	"github.com/frostlabs/boreal/internal/optimization/calculator"
	"github.com/frostlabs/boreal/internal/optimization/kernels"
	"github.com/frostlabs/boreal/internal/optimization/loop"
	"github.com/frostlabs/boreal/internal/optimization/space"
)

// session is one held optimization loop. The loop is not safe for
// concurrent use; the session mutex serializes access to it.
type session struct {
	ID        string
	CreatedAt time.Time

	mu   sync.Mutex
	loop *loop.Loop
	acq  string
}

// Server manages optimization sessions and serves the HTTP API.
type Server struct {
	cfg     *config.Config
	logger  *logging.Logger
	metrics *Metrics

	sessions   map[string]*session
	sessionsMu sync.RWMutex

	nextID atomic.Int64
}

// NewServer creates a server instance with the given config, logger
// and metrics.
func NewServer(cfg *config.Config, logger *logging.Logger, metrics *Metrics) *Server {
	return &Server{
		cfg:      cfg,
		logger:   logger,
		metrics:  metrics,
		sessions: make(map[string]*session),
	}
}

// RegisterRoutes mounts the session API.
func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/sessions", s.handleCreateSession)
		r.Get("/sessions/{id}", s.handleSessionStatus)
		r.Get("/sessions/{id}/suggest", s.handleSuggest)
		r.Post("/sessions/{id}/observations", s.handleObserve)
		r.Delete("/sessions/{id}", s.handleDeleteSession)
	})
}

// Close releases all held sessions.
func (s *Server) Close() error {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	for id := range s.sessions {
		delete(s.sessions, id)
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(0)
	}
	return nil
}

// variableSpec mirrors space.Variable on the wire.
type variableSpec struct {
	Name   string    `json:"name"`
	Kind   string    `json:"kind"`
	Min    float64   `json:"min,omitempty"`
	Max    float64   `json:"max,omitempty"`
	Values []float64 `json:"values,omitempty"`
}

type createSessionRequest struct {
	Variables   []variableSpec `json:"variables"`
	Acquisition struct {
		Type  string  `json:"type"`
		Param float64 `json:"param"`
	} `json:"acquisition"`
	Kernel struct {
		Type           string  `json:"type"`
		LengthScale    float64 `json:"length_scale"`
		SignalVariance float64 `json:"signal_variance"`
	} `json:"kernel"`
	NoiseVariance  *float64 `json:"noise_variance,omitempty"`
	BatchSize      int      `json:"batch_size"`
	UpdateInterval int      `json:"update_interval"`
	Initial        struct {
		Inputs  [][]float64 `json:"inputs"`
		Outputs [][]float64 `json:"outputs"`
	} `json:"initial"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Fast rejection only; the authoritative cap check happens under
	// the write lock at insertion.
	s.sessionsMu.RLock()
	held := len(s.sessions)
	s.sessionsMu.RUnlock()
	if held >= s.cfg.Optimization.MaxSessions {
		s.respondError(w, http.StatusTooManyRequests, "session limit reached")
		return
	}

	sp, err := buildSpace(req.Variables)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	kernel, err := buildKernel(req.Kernel.Type, req.Kernel.LengthScale, req.Kernel.SignalVariance)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	noise := s.cfg.Optimization.NoiseVariance
	if req.NoiseVariance != nil {
		noise = *req.NoiseVariance
	}
	model := bayesian.NewGP(kernel, noise, bayesian.WithLogger(logging.NewZapLogger(s.logger)))

	acqType := acquisition.TypeEI
	if req.Acquisition.Type != "" {
		acqType, err = acquisition.ParseType(req.Acquisition.Type)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	acq, err := acquisition.New(acqType, model, sp, req.Acquisition.Param)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	calc, err := s.buildCalculator(acq, sp, model, req.BatchSize)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Initial.Inputs) == 0 || len(req.Initial.Inputs) != len(req.Initial.Outputs) {
		s.respondError(w, http.StatusBadRequest, "initial inputs and outputs must be non-empty and row-aligned")
		return
	}
	initial := make([]optimization.Observation, len(req.Initial.Inputs))
	for i := range req.Initial.Inputs {
		initial[i] = optimization.Observation{Input: req.Initial.Inputs[i], Output: req.Initial.Outputs[i]}
	}

	updateInterval := req.UpdateInterval
	if updateInterval < 1 {
		updateInterval = s.cfg.Optimization.UpdateInterval
	}
	l, err := loop.New(model, sp, acq, calc, initial,
		loop.WithUpdateInterval(updateInterval),
		loop.WithLogger(s.logger),
	)
	if err != nil {
		s.respondOptimizationError(w, err)
		return
	}

	ses := &session{
		ID:        fmt.Sprintf("ses_%d_%d", time.Now().UnixNano(), s.nextID.Add(1)),
		CreatedAt: time.Now(),
		loop:      l,
		acq:       acq.Name(),
	}

	s.sessionsMu.Lock()
	if len(s.sessions) >= s.cfg.Optimization.MaxSessions {
		s.sessionsMu.Unlock()
		s.respondError(w, http.StatusTooManyRequests, "session limit reached")
		return
	}
	s.sessions[ses.ID] = ses
	active := len(s.sessions)
	s.sessionsMu.Unlock()

	if s.metrics != nil {
		s.metrics.SessionsCreated.Inc()
		s.metrics.ActiveSessions.Set(float64(active))
	}
	s.logger.Info("session created", map[string]interface{}{
		"session_id":   ses.ID,
		"dims":         sp.Dimensionality(),
		"acquisition":  ses.acq,
		"observations": l.State().Len(),
	})

	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":         ses.ID,
		"created_at": ses.CreatedAt,
	})
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	ses, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}

	ses.mu.Lock()
	points, err := ses.loop.SuggestNextPoints()
	ses.mu.Unlock()
	if err != nil {
		s.respondOptimizationError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.Suggestions.Inc()
	}

	out := make([]map[string]interface{}, len(points))
	for i, p := range points {
		out[i] = map[string]interface{}{
			"input":    p.Input,
			"strategy": p.Strategy,
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"points": out})
}

type observeRequest struct {
	Inputs  [][]float64 `json:"inputs"`
	Outputs [][]float64 `json:"outputs"`
}

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	ses, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}

	var req observeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ses.mu.Lock()
	err := ses.loop.Observe(req.Inputs, req.Outputs)
	state := ses.loop.State()
	iteration := state.Iteration()
	count := state.Len()
	ses.mu.Unlock()
	if err != nil {
		s.respondOptimizationError(w, err)
		return
	}
	if s.metrics != nil {
		s.metrics.Observations.Add(float64(len(req.Inputs)))
	}

	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"iteration":    iteration,
		"observations": count,
	})
}

func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	ses, ok := s.session(chi.URLParam(r, "id"))
	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}

	ses.mu.Lock()
	state := ses.loop.State()
	iteration := state.Iteration()
	count := state.Len()
	best, hasBest := ses.loop.Best()
	ses.mu.Unlock()

	resp := map[string]interface{}{
		"id":           ses.ID,
		"created_at":   ses.CreatedAt,
		"acquisition":  ses.acq,
		"iteration":    iteration,
		"observations": count,
	}
	if hasBest {
		resp["best"] = map[string]interface{}{
			"input": best.Input,
			"value": best.Output[0],
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	s.sessionsMu.Lock()
	_, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	active := len(s.sessions)
	s.sessionsMu.Unlock()

	if !ok {
		s.respondError(w, http.StatusNotFound, "session not found")
		return
	}
	if s.metrics != nil {
		s.metrics.ActiveSessions.Set(float64(active))
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) session(id string) (*session, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	ses, ok := s.sessions[id]
	return ses, ok
}

// buildCalculator picks multi-start search for continuous spaces and
// sampled search otherwise, wrapping either for batch selection.
func (s *Server) buildCalculator(acq acquisition.Acquisition, sp *space.ParameterSpace, model optimization.SurrogateModel, batchSize int) (optimization.CandidatePointCalculator, error) {
	seed := s.cfg.Optimization.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var base optimization.CandidatePointCalculator
	var err error
	if sp.AllContinuous() {
		base, err = calculator.NewContinuous(acq, sp,
			calculator.WithRestarts(s.cfg.Optimization.Restarts),
			calculator.WithSeed(seed),
			calculator.WithLogger(logging.NewZapLogger(s.logger)),
		)
	} else {
		base, err = calculator.NewRandomSearch(acq, sp,
			calculator.WithCandidateBudget(s.cfg.Optimization.CandidateBudget),
			calculator.WithRandomSeed(seed),
		)
	}
	if err != nil {
		return nil, err
	}

	if batchSize < 1 {
		batchSize = s.cfg.Optimization.BatchSize
	}
	if batchSize <= 1 {
		return base, nil
	}
	return calculator.NewBatch(base, model, sp, batchSize, calculator.WithBatchSeed(seed))
}

func buildSpace(specs []variableSpec) (*space.ParameterSpace, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one variable is required")
	}
	vars := make([]space.Variable, len(specs))
	for i, v := range specs {
		switch v.Kind {
		case "", "continuous":
			vars[i] = space.NewContinuous(v.Name, v.Min, v.Max)
		case "discrete":
			vars[i] = space.NewDiscrete(v.Name, v.Values...)
		case "categorical":
			vars[i] = space.NewCategorical(v.Name, v.Values...)
		default:
			return nil, fmt.Errorf("variable %q: unknown kind %q", v.Name, v.Kind)
		}
	}
	return space.New(vars...)
}

func buildKernel(kind string, lengthScale, signalVariance float64) (kernels.Kernel, error) {
	if lengthScale == 0 {
		lengthScale = 1.0
	}
	if signalVariance == 0 {
		signalVariance = 1.0
	}
	switch kind {
	case "", "matern52":
		return kernels.NewMatern52Kernel(lengthScale, signalVariance)
	case "rbf":
		return kernels.NewRBFKernel(lengthScale, signalVariance)
	default:
		return nil, fmt.Errorf("unknown kernel type %q", kind)
	}
}

// respondOptimizationError maps optimization error kinds to HTTP
// status codes.
func (s *Server) respondOptimizationError(w http.ResponseWriter, err error) {
	kind := optimization.KindOf(err)
	if s.metrics != nil {
		s.metrics.Errors.WithLabelValues(kind.String()).Inc()
	}

	status := http.StatusInternalServerError
	if kind == optimization.KindInvalidDomain || kind == optimization.KindEvaluation {
		status = http.StatusUnprocessableEntity
	}

	s.logger.Error("request failed", map[string]interface{}{
		"kind":  kind.String(),
		"error": err.Error(),
	})
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]interface{}{"error": msg})
}
