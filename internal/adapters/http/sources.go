package httpadapter

import (
	"fmt"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/core/usecase"
)

const sourcesEndpoint = "/v1/sources"

func (rt *Router) searchSources(w http.ResponseWriter, r *http.Request) {
	if _, err := rt.authenticate(r.Context(), r); err != nil {
		writeError(w, r, err)
		return
	}

	var query string
	if err := runtime.BindQueryParameter("form", true, true, "query", r.URL.Query(), &query); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "bind query", err))
		return
	}
	var topK *int
	if err := runtime.BindQueryParameter("form", true, false, "top_k", r.URL.Query(), &topK); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "bind top_k", err))
		return
	}

	limit := rt.cfg.SourcesTopK
	if limit <= 0 {
		limit = usecase.DefaultSourcesTopK
	}
	if topK != nil {
		limit = *topK
	}
	if rt.cfg.SourcesMaxTopK > 0 && limit > rt.cfg.SourcesMaxTopK {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "search sources", fmt.Errorf("top_k must be at most %d", rt.cfg.SourcesMaxTopK)))
		return
	}

	start := time.Now()
	matches, err := rt.sources.Search(r.Context(), query, limit)
	if err != nil {
		rt.metrics.RecordSearchError(serviceName, sourcesEndpoint, errorKind(err))
		writeError(w, r, err)
		return
	}
	rt.metrics.RecordSearchObservation(serviceName, sourcesEndpoint, len(matches), time.Since(start))
	if matches == nil {
		matches = []domain.SourceMatch{}
	}
	writeJSON(w, http.StatusOK, matches)
}
