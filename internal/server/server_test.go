package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frostlabs/boreal/internal/config"
	"github.com/frostlabs/boreal/internal/logging"
)

// testConfig creates a test configuration with default values
func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Environment: "test",
	}

	cfg.HTTP.Port = 8080
	cfg.HTTP.ReadTimeout = 30 * time.Second
	cfg.HTTP.WriteTimeout = 30 * time.Second
	cfg.HTTP.IdleTimeout = 120 * time.Second
	cfg.HTTP.ShutdownTimeout = 30 * time.Second

	cfg.Logging.Level = "debug"
	cfg.Logging.Format = "console"
	cfg.Logging.Output = "stdout"

	cfg.Optimization.WorkerCount = 3
	cfg.Optimization.Restarts = 5
	cfg.Optimization.CandidateBudget = 64
	cfg.Optimization.BatchSize = 1
	cfg.Optimization.UpdateInterval = 1
	cfg.Optimization.NoiseVariance = 1e-6
	cfg.Optimization.MaxSessions = 4
	cfg.Optimization.Seed = 7

	return cfg
}

// newTestServer wires a server with an isolated metrics registry and
// mounts the API on a chi router.
func newTestServer(t *testing.T) (*Server, *chi.Mux) {
	t.Helper()
	srv := NewServer(testConfig(t), logging.Nop(), NewMetrics(prometheus.NewRegistry()))
	t.Cleanup(func() { _ = srv.Close() })

	r := chi.NewRouter()
	srv.RegisterRoutes(r)
	return srv, r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func validCreateRequest() map[string]interface{} {
	return map[string]interface{}{
		"variables": []map[string]interface{}{
			{"name": "x", "kind": "continuous", "min": 0, "max": 10},
		},
		"acquisition": map[string]interface{}{
			"type":  "nlcb",
			"param": 2.0,
		},
		"initial": map[string]interface{}{
			"inputs":  [][]float64{{2}, {8}},
			"outputs": [][]float64{{4}, {2}},
		},
	}
}

func createSession(t *testing.T, r http.Handler) string {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", validCreateRequest())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id, ok := decode(t, w)["id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, id)
	return id
}

func TestCreateSession(t *testing.T) {
	_, r := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", validCreateRequest())
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.NotEmpty(t, resp["id"])
	assert.NotEmpty(t, resp["created_at"])
}

func TestCreateSessionValidation(t *testing.T) {
	_, r := newTestServer(t)

	tests := []struct {
		name   string
		mutate func(req map[string]interface{})
	}{
		{
			name:   "no variables",
			mutate: func(req map[string]interface{}) { delete(req, "variables") },
		},
		{
			name: "unknown acquisition type",
			mutate: func(req map[string]interface{}) {
				req["acquisition"] = map[string]interface{}{"type": "thompson"}
			},
		},
		{
			name: "unknown kernel type",
			mutate: func(req map[string]interface{}) {
				req["kernel"] = map[string]interface{}{"type": "periodic"}
			},
		},
		{
			name: "missing initial observations",
			mutate: func(req map[string]interface{}) {
				req["initial"] = map[string]interface{}{}
			},
		},
		{
			name: "misaligned initial rows",
			mutate: func(req map[string]interface{}) {
				req["initial"] = map[string]interface{}{
					"inputs":  [][]float64{{2}, {8}},
					"outputs": [][]float64{{4}},
				}
			},
		},
		{
			name: "inverted variable bounds",
			mutate: func(req map[string]interface{}) {
				req["variables"] = []map[string]interface{}{
					{"name": "x", "kind": "continuous", "min": 10, "max": 0},
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreateRequest()
			tt.mutate(req)
			w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", req)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestCreateSessionOutOfDomainInitial(t *testing.T) {
	_, r := newTestServer(t)

	req := validCreateRequest()
	req["initial"] = map[string]interface{}{
		"inputs":  [][]float64{{-5}},
		"outputs": [][]float64{{1}},
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
}

func TestCreateSessionInvalidBody(t *testing.T) {
	_, r := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewBufferString("{not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionLimit(t *testing.T) {
	_, r := newTestServer(t)

	for i := 0; i < 4; i++ {
		createSession(t, r)
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", validCreateRequest())
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSessionLimitUnderConcurrentCreates(t *testing.T) {
	_, r := newTestServer(t)

	body, err := json.Marshal(validCreateRequest())
	require.NoError(t, err)

	const attempts = 16
	var created atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code == http.StatusCreated {
				created.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(4), created.Load(), "concurrent creates must never exceed the session cap")
}

func TestAskTellFlow(t *testing.T) {
	_, r := newTestServer(t)
	id := createSession(t, r)

	// Ask for the next point.
	w := doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id+"/suggest", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	points, ok := decode(t, w)["points"].([]interface{})
	require.True(t, ok)
	require.Len(t, points, 1)

	point := points[0].(map[string]interface{})
	input := point["input"].([]interface{})
	require.Len(t, input, 1)
	x := input[0].(float64)
	assert.GreaterOrEqual(t, x, 0.0)
	assert.LessOrEqual(t, x, 10.0)
	assert.NotEmpty(t, point["strategy"])

	// Asking again without new observations returns the same point.
	w = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id+"/suggest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	again := decode(t, w)["points"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, point["input"], again["input"])

	// Tell the evaluated result.
	w = doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/observations", map[string]interface{}{
		"inputs":  [][]float64{{x}},
		"outputs": [][]float64{{1.5}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode(t, w)
	assert.Equal(t, float64(1), resp["iteration"])
	assert.Equal(t, float64(3), resp["observations"])

	// Status reflects the appended observation and the incumbent.
	w = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	assert.Equal(t, id, status["id"])
	assert.Equal(t, float64(1), status["iteration"])
	assert.Equal(t, float64(3), status["observations"])
	best, ok := status["best"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 1.5, best["value"])
}

func TestObserveValidation(t *testing.T) {
	_, r := newTestServer(t)
	id := createSession(t, r)

	// Out-of-domain input.
	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/observations", map[string]interface{}{
		"inputs":  [][]float64{{42}},
		"outputs": [][]float64{{1}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	// Misaligned rows.
	w = doJSON(t, r, http.MethodPost, "/api/v1/sessions/"+id+"/observations", map[string]interface{}{
		"inputs":  [][]float64{{2}},
		"outputs": [][]float64{{1}, {2}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())

	// The failed appends must not have advanced the session.
	w = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)
	status := decode(t, w)
	assert.Equal(t, float64(0), status["iteration"])
	assert.Equal(t, float64(2), status["observations"])
}

func TestSessionNotFound(t *testing.T) {
	_, r := newTestServer(t)

	for _, req := range []struct{ method, path string }{
		{http.MethodGet, "/api/v1/sessions/ses_missing"},
		{http.MethodGet, "/api/v1/sessions/ses_missing/suggest"},
		{http.MethodDelete, "/api/v1/sessions/ses_missing"},
	} {
		w := doJSON(t, r, req.method, req.path, nil)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s %s", req.method, req.path)
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions/ses_missing/observations", map[string]interface{}{
		"inputs":  [][]float64{{1}},
		"outputs": [][]float64{{1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSession(t *testing.T) {
	_, r := newTestServer(t)
	id := createSession(t, r)

	w := doJSON(t, r, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Deleting again reports not found.
	w = doJSON(t, r, http.MethodDelete, "/api/v1/sessions/"+id, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBatchSession(t *testing.T) {
	_, r := newTestServer(t)

	req := validCreateRequest()
	req["batch_size"] = 3
	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodGet, fmt.Sprintf("/api/v1/sessions/%s/suggest", id), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	points := decode(t, w)["points"].([]interface{})
	require.Len(t, points, 3)

	seen := map[float64]bool{}
	for _, p := range points {
		input := p.(map[string]interface{})["input"].([]interface{})
		x := input[0].(float64)
		assert.GreaterOrEqual(t, x, 0.0)
		assert.LessOrEqual(t, x, 10.0)
		assert.False(t, seen[x], "duplicate point %v in batch", x)
		seen[x] = true
	}
}

func TestDiscreteSpaceSession(t *testing.T) {
	_, r := newTestServer(t)

	req := validCreateRequest()
	req["variables"] = []map[string]interface{}{
		{"name": "layers", "kind": "discrete", "values": []float64{1, 2, 4, 8}},
	}
	req["initial"] = map[string]interface{}{
		"inputs":  [][]float64{{1}, {8}},
		"outputs": [][]float64{{4}, {2}},
	}
	w := doJSON(t, r, http.MethodPost, "/api/v1/sessions", req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["id"].(string)

	w = doJSON(t, r, http.MethodGet, "/api/v1/sessions/"+id+"/suggest", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	input := decode(t, w)["points"].([]interface{})[0].(map[string]interface{})["input"].([]interface{})
	assert.Contains(t, []float64{1, 2, 4, 8}, input[0].(float64))
}
