package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hupe1980/flowmesh/engine"
	"github.com/hupe1980/flowmesh/history"
	"github.com/hupe1980/flowmesh/model"
	"github.com/hupe1980/flowmesh/workflow"
)

type executeRequest struct {
	Workflow     workflow.Spec `json:"workflow"`
	InputMessage string        `json:"input_message"`
	Streaming    bool          `json:"streaming"`
}

type agentRequest struct {
	Name         string   `json:"name"`
	Instructions string   `json:"instructions"`
	Tools        []string `json:"tools,omitempty"`
	InputMessage string   `json:"input_message"`
}

type vizRequest struct {
	Workflow workflow.Spec `json:"workflow"`
	Format   string        `json:"format,omitempty"` // mermaid (default) or html
}

type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "flowmesh",
		"endpoints": []string{
			"GET /health",
			"POST /workflow",
			"POST /workflow/viz",
			"GET /workflow/runs",
			"GET /workflow/runs/{id}",
			"POST /agent",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// handleWorkflow builds and runs the described workflow. With streaming
// enabled the response is an SSE stream of step events terminated by a done
// or error event; otherwise the full result is returned as one JSON document.
func (s *Server) handleWorkflow(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if req.Streaming {
		s.streamWorkflow(w, r, &req)
		return
	}

	result, err := s.svc.ExecuteWorkflow(r.Context(), &req.Workflow, req.InputMessage)
	if err != nil {
		status := statusForError(err)
		if result != nil {
			// A failed run still reports its accumulated steps.
			writeJSON(w, status, map[string]any{
				"error":           err.Error(),
				"kind":            errorKindName(err),
				"trace_id":        result.TraceID,
				"workflow_id":     result.WorkflowID,
				"run_id":          result.RunID,
				"execution_steps": result.Steps,
			})
			return
		}
		writeError(w, status, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) streamWorkflow(w http.ResponseWriter, r *http.Request, req *executeRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	result, err := s.svc.ExecuteWorkflowStreaming(r.Context(), &req.Workflow, req.InputMessage, func(step workflow.Step) {
		writeEvent(w, "step", step)
		flusher.Flush()
	})

	if err != nil {
		payload := map[string]any{
			"status": "failed",
			"error":  err.Error(),
			"kind":   errorKindName(err),
		}
		if result != nil {
			payload["trace_id"] = result.TraceID
			payload["workflow_id"] = result.WorkflowID
			payload["run_id"] = result.RunID
		}
		writeEvent(w, "error", payload)
		flusher.Flush()
		return
	}

	writeEvent(w, "done", map[string]any{
		"status":      "completed",
		"output":      result.Output,
		"trace_id":    result.TraceID,
		"workflow_id": result.WorkflowID,
		"run_id":      result.RunID,
	})
	flusher.Flush()
}

// handleAgent runs a one-off agent outside any workflow.
func (s *Server) handleAgent(w http.ResponseWriter, r *http.Request) {
	var req agentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("name must not be empty"))
		return
	}

	out, traceID, err := s.svc.RunAgent(r.Context(), req.Name, req.Instructions, req.Tools, req.InputMessage)
	if err != nil {
		writeError(w, statusForError(err), err)
		return
	}

	resp := map[string]string{"response": out}
	if traceID != "" {
		resp["trace_id"] = traceID
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleWorkflowViz renders the workflow description as a Mermaid diagram
// without executing anything.
func (s *Server) handleWorkflowViz(w http.ResponseWriter, r *http.Request) {
	var req vizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	switch req.Format {
	case "html":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, workflow.MermaidHTML(&req.Workflow))
	case "", "mermaid":
		writeJSON(w, http.StatusOK, map[string]string{"diagram": workflow.Mermaid(&req.Workflow)})
	default:
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown format %q", req.Format))
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.svc.History().List(r.Context(), 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if runs == nil {
		runs = []*history.RunRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	rec, err := s.svc.History().Get(r.Context(), r.PathValue("id"))
	if errors.Is(err, history.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// statusForError maps run failures to HTTP status codes: malformed workflows
// are the client's fault, provider rate limits are retryable, other provider
// failures read as upstream unavailability.
func statusForError(err error) int {
	var vErr *engine.ValidationError
	if errors.As(err, &vErr) {
		return http.StatusBadRequest
	}
	if model.IsRateLimitError(err) {
		return http.StatusTooManyRequests
	}
	var aErr *engine.AgentInvocationError
	if errors.As(err, &aErr) {
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func errorKindName(err error) string {
	var (
		vErr *engine.ValidationError
		aErr *engine.AgentInvocationError
		fErr *engine.FunctionExecutionError
	)
	switch {
	case errors.As(err, &vErr):
		return "ValidationError"
	case errors.As(err, &aErr):
		return "AgentInvocationError"
	case errors.As(err, &fErr):
		return "FunctionExecutionError"
	default:
		return ""
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Kind: errorKindName(err)})
}

func writeEvent(w http.ResponseWriter, event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
}
