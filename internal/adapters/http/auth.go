package httpadapter

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
)

const callbackTokenHeader = "X-Callback-Token"

func (rt *Router) register(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		writeError(w, r, err)
		return
	}
	_, err := rt.accounts.Register(r.Context(), domain.Registration{
		Email:     r.PostFormValue("email"),
		Password:  r.PostFormValue("password"),
		FullName:  r.PostFormValue("full_name"),
		StudentID: r.PostFormValue("student_id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"msg": "Student registered successfully"})
}

// login accepts the OAuth2 password form, where username carries the email.
func (rt *Router) login(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(r); err != nil {
		writeError(w, r, err)
		return
	}
	token, err := rt.accounts.Login(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, token)
}

func (rt *Router) authenticate(ctx context.Context, r *http.Request) (*domain.Student, error) {
	token, ok := bearerToken(r)
	if !ok {
		return nil, domain.WrapError(domain.ErrUnauthorized, "authenticate", errors.New("missing bearer token"))
	}
	student, err := rt.accounts.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	markStudent(ctx, student.StudentID)
	return student, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// callbackAuthorized rejects every callback when no token is configured.
func (rt *Router) callbackAuthorized(r *http.Request) bool {
	expected := rt.cfg.AnalysisCallbackToken
	if expected == "" {
		return false
	}
	got := r.Header.Get(callbackTokenHeader)
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

func parseForm(r *http.Request) error {
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(1 << 20)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "parse form", err)
	}
	return nil
}
