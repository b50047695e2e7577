package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

const (
	defaultUploadMaxBytes = 20 << 20
	callbackMaxBytes      = 1 << 20
	multipartMemory       = 8 << 20
)

type analysisResponse struct {
	*domain.AnalysisResult
	Status string `json:"status"`
}

func (rt *Router) submitAssignment(w http.ResponseWriter, r *http.Request) {
	student, err := rt.authenticate(r.Context(), r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	limit := rt.cfg.UploadMaxBytes
	if limit <= 0 {
		limit = defaultUploadMaxBytes
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	submission, err := rt.submissions.Submit(
		r.Context(),
		student,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	rt.metrics.RecordSubmission(serviceName, err)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, submission)
}

func (rt *Router) getAnalysis(w http.ResponseWriter, r *http.Request) {
	student, err := rt.authenticate(r.Context(), r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	assignmentID, err := assignmentIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	result, err := rt.submissions.GetAnalysis(r.Context(), student, assignmentID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	status := "pending"
	if result.Completed() {
		status = "completed"
	}
	writeJSON(w, http.StatusOK, analysisResponse{AnalysisResult: result, Status: status})
}

func (rt *Router) recordAnalysisResults(w http.ResponseWriter, r *http.Request) {
	if !rt.callbackAuthorized(r) {
		writeError(w, r, domain.WrapError(domain.ErrUnauthorized, "record analysis", errors.New("invalid callback token")))
		return
	}
	assignmentID, err := assignmentIDParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var update domain.AnalysisUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, callbackMaxBytes)).Decode(&update); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	result, err := rt.submissions.RecordResults(r.Context(), assignmentID, update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse{AnalysisResult: result, Status: "completed"})
}

func assignmentIDParam(r *http.Request) (int64, error) {
	var id int64
	err := runtime.BindStyledParameterWithOptions("simple", "assignment_id", r.PathValue("assignment_id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		return 0, domain.WrapError(domain.ErrInvalidInput, "bind assignment_id", err)
	}
	if id <= 0 {
		return 0, domain.WrapError(domain.ErrInvalidInput, "bind assignment_id", errors.New("assignment_id must be positive"))
	}
	return id, nil
}
