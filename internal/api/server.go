package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"essaygrader/internal/config"
	"essaygrader/internal/grading"
	"essaygrader/internal/markup"
	"essaygrader/internal/providers"
	"essaygrader/internal/report"
	"essaygrader/internal/rubric"
	"essaygrader/internal/storage"
	"essaygrader/web"

	tclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"
	"go.uber.org/zap"
)

// JobClient is the part of the Temporal client the jobs endpoints use.
type JobClient interface {
	ExecuteWorkflow(ctx context.Context, options tclient.StartWorkflowOptions, workflow interface{}, args ...interface{}) (tclient.WorkflowRun, error)
	QueryWorkflow(ctx context.Context, workflowID string, runID string, queryType string, args ...interface{}) (converter.EncodedValue, error)
	GetWorkflow(ctx context.Context, workflowID string, runID string) tclient.WorkflowRun
}

// Deps are the collaborators a Server needs. Store, Temporal and Converter
// are optional; the endpoints that need them answer with an error when
// they are missing.
type Deps struct {
	Grader    *grading.Service
	Store     storage.Store
	Converter report.Converter
	Temporal  JobClient
	Log       *zap.Logger
}

type Server struct {
	cfg       config.Config
	grader    *grading.Service
	store     storage.Store
	converter report.Converter
	temporal  JobClient
	log       *zap.Logger
}

var (
	errHistoryDisabled = errors.New("grading history is not enabled")
	errJobsDisabled    = errors.New("async grading is not enabled")
	errMethod          = errors.New("method not allowed")
	errNotFound        = errors.New("not found")
)

func NewServer(cfg config.Config, deps Deps) *Server {
	log := deps.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		cfg:       cfg,
		grader:    deps.Grader,
		store:     deps.Store,
		converter: deps.Converter,
		temporal:  deps.Temporal,
		log:       log,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/", http.FileServer(http.FS(web.Static())))
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(web.Static()))))
	mux.HandleFunc("/presets", s.handlePresets)
	mux.HandleFunc("/models", s.handleModels)
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/annotations", s.handleAnnotate)
	mux.HandleFunc("/annotations/remove", s.handleRemoveAnnotation)
	mux.HandleFunc("/flatten", s.handleFlatten)
	mux.HandleFunc("/download", s.handleDownload)
	mux.HandleFunc("/gradings", s.handleGradings)
	mux.HandleFunc("/gradings/", s.handleGradingScoped)
	mux.HandleFunc("/jobs", s.handleJobs)
	mux.HandleFunc("/jobs/", s.handleJobScoped)
	return withCORS(withLogging(s.log, mux))
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"history": s.store != nil,
		"jobs":    s.temporal != nil,
	})
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"presets": rubric.Presets, "criteria": rubric.All})
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("%w: %v", grading.ErrInput, err))
		return
	}
	names, err := s.grader.ListModels(r.Context(), providers.Target{
		Provider: r.FormValue("provider"),
		BaseURL:  r.FormValue("ollama_url"),
	})
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"models": names})
}

// statusFor maps the grading failure classes onto HTTP.
func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, grading.ErrInput), errors.Is(err, markup.ErrOutOfRange):
		return http.StatusBadRequest
	case errors.Is(err, grading.ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, markup.ErrNotFound), errors.Is(err, errNotFound), errors.Is(err, errHistoryDisabled):
		return http.StatusNotFound
	case errors.Is(err, errJobsDisabled):
		return http.StatusNotImplemented
	case errors.Is(err, errMethod):
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	body := map[string]any{
		"code":    apiErr.Code,
		"message": apiErr.Message,
	}
	if apiErr.Detail != "" {
		body["detail"] = apiErr.Detail
	}
	writeJSON(w, code, map[string]any{"error": body})
}

type apiError struct {
	Code    string
	Message string
	Detail  string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "EG-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status == http.StatusServiceUnavailable:
		return apiError{
			Code:    "EG-LLM-5030",
			Message: "AI model unavailable. Check that the model server is running and the model is installed.",
			Detail:  detail(err, grading.ErrModelUnavailable),
		}
	case status == http.StatusNotImplemented:
		return apiError{
			Code:    "EG-API-5010",
			Message: "Async grading is not enabled on this server.",
		}
	case status >= 500:
		switch {
		case errors.Is(err, grading.ErrRender):
			return apiError{
				Code:    "EG-PDF-5002",
				Message: "Report rendering failed. Check that the PDF converter is installed.",
				Detail:  detail(err, grading.ErrRender),
			}
		case strings.Contains(raw, "relation") && strings.Contains(raw, "does not exist"), strings.Contains(raw, "no such table"):
			return apiError{
				Code:    "EG-DB-5001",
				Message: "Database schema is not initialized. Run migrations and retry.",
			}
		case strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "EG-DB-5002",
				Message: "Database connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "EG-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "EG-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "EG-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusMethodNotAllowed:
		code = "EG-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusConflict:
		code = "EG-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusRequestEntityTooLarge:
		code = "EG-API-4013"
		msg = "Upload is too large."
	}

	// 4xx bodies carry the user facing reason only.
	out := apiError{Code: code, Message: msg}
	switch {
	case errors.Is(err, grading.ErrInput):
		out.Detail = detail(err, grading.ErrInput)
	case errors.Is(err, markup.ErrOutOfRange):
		out.Detail = "The selection is outside the essay text."
	case errors.Is(err, errHistoryDisabled):
		out.Detail = "Grading history is not enabled on this server."
	case strings.Contains(raw, "invalid json"):
		out.Detail = "Malformed JSON request body."
	}
	return out
}

// detail strips the sentinel prefix from a wrapped error message.
func detail(err, sentinel error) string {
	if err == nil {
		return ""
	}
	return strings.TrimPrefix(err.Error(), sentinel.Error()+": ")
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func withLogging(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)),
		}
		if rec.status >= 500 {
			log.Error("api: request failed", fields...)
			return
		}
		log.Debug("api: request", fields...)
	})
}
