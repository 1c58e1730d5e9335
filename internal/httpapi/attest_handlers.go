package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"gias.org/internal/attest"
	"gias.org/internal/auth"
	"gias.org/internal/obs"
	"gias.org/internal/verify"
)

func (a *API) handleAttestations(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/attestations/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")

	if parts[0] == "public" {
		if len(parts) == 3 && parts[1] == "verify" {
			a.verifyPublic(w, r, parts[2])
			return
		}
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if len(parts) != 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	id := parts[0]
	switch parts[1] {
	case "json":
		a.attestationDetail(w, r, id)
	case "pdf":
		a.attestationDocument(w, r, id)
	case "revoke":
		a.revokeAttestation(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) verifyPublic(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	view, err := a.verify.Verify(r.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, verify.ErrGone):
			obs.CountVerification("gone")
		case errors.Is(err, verify.ErrNotFound):
			obs.CountVerification("not_found")
		default:
			obs.CountVerification("error")
		}
		handleVerifyError(w, r, err)
		return
	}
	obs.CountVerification("valid")
	writeJSON(w, http.StatusOK, view)
}

func (a *API) attestationDetail(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	detail, err := a.attest.Detail(r.Context(), id)
	if err != nil {
		handleAttestError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) attestationDocument(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	url, err := a.attest.Document(r.Context(), id)
	if err != nil {
		handleAttestError(w, r, err)
		return
	}
	http.Redirect(w, r, url, http.StatusFound)
}

func (a *API) revokeAttestation(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	r, ok := a.authorize(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	att, err := a.attest.Revoke(r.Context(), id)
	if err != nil {
		handleAttestError(w, r, err)
		return
	}
	a.audit(r.Context(), "attestation.revoke", "attestation", att.ID, map[string]any{
		"organization_id": att.OrganizationID,
	})
	writeJSON(w, http.StatusOK, att)
}

func (a *API) handleEvidence(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/evidence/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")

	switch {
	case len(parts) == 1:
		ev, err := a.attest.Evidence(r.Context(), parts[0])
		if err != nil {
			handleAttestError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, ev)
	case len(parts) == 2 && parts[0] == "attestation":
		items, err := a.attest.EvidenceForAttestation(r.Context(), parts[1])
		if err != nil {
			handleAttestError(w, r, err)
			return
		}
		if items == nil {
			items = []*attest.Evidence{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items})
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}
