package httpadapter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/kirillkom/assignment-analyzer/internal/config"
	"github.com/kirillkom/assignment-analyzer/internal/core/ports"
	"github.com/kirillkom/assignment-analyzer/internal/observability/metrics"
)

const serviceName = "api"

type Router struct {
	cfg         config.Config
	accounts    ports.AccountService
	submissions ports.SubmissionService
	sources     ports.SourceSearcher
	metrics     *metrics.HTTPServerMetrics
	validator   *requestValidator
}

func NewRouter(
	cfg config.Config,
	accounts ports.AccountService,
	submissions ports.SubmissionService,
	sources ports.SourceSearcher,
) *Router {
	validator, err := newRequestValidator(cfg.SourcesMaxTopK)
	if err != nil {
		// The document is embedded at build time.
		panic(fmt.Sprintf("load openapi document: %v", err))
	}
	return &Router{
		cfg:         cfg,
		accounts:    accounts,
		submissions: submissions,
		sources:     sources,
		metrics:     metrics.NewHTTPServerMetrics(serviceName),
		validator:   validator,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.Handle("GET /metrics", rt.metrics.Handler())

	mux.HandleFunc("POST /v1/auth/register", rt.register)
	mux.HandleFunc("POST /v1/auth/login", rt.login)

	mux.HandleFunc("POST /v1/assignments", rt.submitAssignment)
	mux.HandleFunc("GET /v1/analysis/{assignment_id}", rt.getAnalysis)
	mux.HandleFunc("POST /v1/analysis/{assignment_id}/results", rt.recordAnalysisResults)

	mux.HandleFunc("GET /v1/sources", rt.searchSources)

	var handler http.Handler = mux
	handler = rt.validator.middleware(handler)
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, time.Duration(rt.cfg.APIBackpressureWaitMS)*time.Millisecond)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	handler = rt.metrics.Middleware(serviceName, handler)
	handler = recoverMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("http_handler_error",
			"request_id", requestIDFromContext(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
		message = "internal server error"
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, map[string]string{"error": message})
}
