package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"gias.org/internal/attest"
	"gias.org/internal/audit"
	"gias.org/internal/auth"
	"gias.org/internal/verify"
)

const (
	authHeader   = "Authorization"
	bearerScheme = "Bearer "
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	writeErrorCode(w, r, code, "", msg)
}

// writeErrorCode adds a machine-readable error code alongside the message.
func writeErrorCode(w http.ResponseWriter, r *http.Request, code int, errCode, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if errCode != "" {
		payload["code"] = errCode
	}
	if rid := audit.RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func extractBearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("missing bearer token")
	}
	if !strings.HasPrefix(strings.ToLower(header), strings.ToLower(bearerScheme)) {
		return "", errors.New("invalid authorization scheme")
	}
	token := strings.TrimSpace(header[len(bearerScheme):])
	if token == "" {
		return "", errors.New("missing bearer token")
	}
	return token, nil
}

// authorize authenticates the request's bearer token and, when roles are
// given, enforces them. On failure the response has already been written and
// ok is false. On success the returned context carries the principal.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, required ...auth.RoleName) (*http.Request, bool) {
	token, err := extractBearerToken(r.Header.Get(authHeader))
	if err != nil {
		w.Header().Set("WWW-Authenticate", `Bearer realm="gias"`)
		writeError(w, r, http.StatusUnauthorized, err.Error())
		return r, false
	}
	principal, err := a.guard.Authorize(r.Context(), token, required...)
	if err != nil {
		handleAuthError(w, r, err)
		return r, false
	}
	ctx := auth.ContextWithPrincipal(r.Context(), principal)
	return r.WithContext(ctx), true
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthenticated), errors.Is(err, auth.ErrInvalidToken):
		w.Header().Set("WWW-Authenticate", `Bearer realm="gias"`)
		writeError(w, r, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, auth.ErrAccountInactive):
		writeErrorCode(w, r, http.StatusForbidden, "account_inactive", "account is inactive")
	case errors.Is(err, auth.ErrForbidden):
		writeError(w, r, http.StatusForbidden, "insufficient role")
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, r, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrEmailTaken):
		writeError(w, r, http.StatusConflict, "email already registered")
	case errors.Is(err, auth.ErrInvalidRole):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func handleAttestError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, attest.ErrGone):
		writeError(w, r, http.StatusGone, "attestation is no longer active")
	case errors.Is(err, attest.ErrAlreadyRevoked):
		writeError(w, r, http.StatusConflict, "attestation already revoked")
	case errors.Is(err, attest.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "resource not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func handleVerifyError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, verify.ErrGone):
		writeError(w, r, http.StatusGone, "attestation is no longer active")
	case errors.Is(err, verify.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "attestation not found")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
