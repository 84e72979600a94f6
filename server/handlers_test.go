package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/flowmesh"
	"github.com/hupe1980/flowmesh/model"
	"github.com/hupe1980/flowmesh/ratelimit"
)

func newTestServer(t *testing.T, m model.Model) *Server {
	t.Helper()
	if m == nil {
		m = model.NewMockModel("test")
	}
	svc := flowmesh.New(m, func(o *flowmesh.Options) {
		o.Limiter = ratelimit.New(func(o *ratelimit.Options) {
			o.MinInterval = time.Millisecond
		})
	})
	return New(svc, ":0")
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

const twoAgentWorkflow = `{
	"workflow": {
		"name": "demo",
		"executors": [
			{"type": "agent", "name": "first", "instructions": "First."},
			{"type": "agent", "name": "second", "instructions": "Second."}
		],
		"edges": [
			{"from_executor": "first", "to_executor": "second", "edge_type": "direct"}
		],
		"start_executor": "first"
	},
	"input_message": "hello"
}`

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"healthy"}`, rec.Body.String())
}

func TestHandleRoot(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "flowmesh")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHandleWorkflow(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/workflow", twoAgentWorkflow)
	require.Equal(t, http.StatusOK, rec.Code)

	var result flowmesh.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	assert.NotEmpty(t, result.Output)
	assert.Equal(t, "demo", result.WorkflowID)
	assert.NotEmpty(t, result.RunID)
	assert.NotEmpty(t, result.Steps)
}

func TestHandleWorkflow_ValidationError(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{
		"workflow": {
			"name": "bad",
			"executors": [{"type": "agent", "name": "a"}],
			"start_executor": "missing"
		},
		"input_message": "hi"
	}`

	rec := doJSON(t, s.Handler(), http.MethodPost, "/workflow", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ValidationError", resp.Kind)
	assert.Contains(t, resp.Error, "start_executor")
}

func TestHandleWorkflow_InvalidBody(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/workflow", "{not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWorkflow_ProviderFailure(t *testing.T) {
	m := model.NewMockModel("test")
	m.Fail(assert.AnError)
	s := newTestServer(t, m)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/workflow", twoAgentWorkflow)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "AgentInvocationError", resp["kind"])
	// Steps accumulated before the failure are still reported.
	assert.NotEmpty(t, resp["execution_steps"])
}

func TestHandleWorkflow_RateLimited(t *testing.T) {
	m := model.NewMockModel("test")
	// Rate limit errors are detected by their provider error text.
	m.Fail(errRateLimited{})
	s := newTestServer(t, m)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/workflow", twoAgentWorkflow)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

type errRateLimited struct{}

func (errRateLimited) Error() string { return "429 Too Many Requests" }

func TestHandleWorkflow_Streaming(t *testing.T) {
	s := newTestServer(t, nil)

	body := strings.Replace(twoAgentWorkflow, `"input_message": "hello"`, `"input_message": "hello", "streaming": true`, 1)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/workflow", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/event-stream")

	out := rec.Body.String()
	assert.Contains(t, out, "event: step")
	assert.Contains(t, out, `"step":"workflow_built"`)
	assert.Contains(t, out, "event: done")
	assert.Contains(t, out, `"status":"completed"`)
}

func TestHandleAgent(t *testing.T) {
	m := model.NewMockModel("test")
	m.AddResponse("ping", "pong")
	s := newTestServer(t, m)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/agent", `{"name":"echo","input_message":"ping"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"response":"pong"}`, rec.Body.String())
}

func TestHandleAgent_MissingName(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/agent", `{"input_message":"hi"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleWorkflowViz(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{
		"workflow": {
			"name": "demo",
			"executors": [{"type": "agent", "name": "a"}],
			"start_executor": "a"
		}
	}`

	rec := doJSON(t, s.Handler(), http.MethodPost, "/workflow/viz", body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp["diagram"], "graph TD")
}

func TestHandleWorkflowViz_HTML(t *testing.T) {
	s := newTestServer(t, nil)

	body := `{
		"workflow": {
			"name": "demo",
			"executors": [{"type": "agent", "name": "a"}],
			"start_executor": "a"
		},
		"format": "html"
	}`

	rec := doJSON(t, s.Handler(), http.MethodPost, "/workflow/viz", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<!DOCTYPE html>")
}

func TestHandleRuns(t *testing.T) {
	s := newTestServer(t, nil)

	// Execute one workflow so history has a record.
	rec := doJSON(t, s.Handler(), http.MethodPost, "/workflow", twoAgentWorkflow)
	require.Equal(t, http.StatusOK, rec.Code)

	var result flowmesh.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))

	rec = doJSON(t, s.Handler(), http.MethodGet, "/workflow/runs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), result.RunID)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/workflow/runs/"+result.RunID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"completed"`)
}

func TestHandleRuns_NotFound(t *testing.T) {
	s := newTestServer(t, nil)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/workflow/runs/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
