package httpapi

import (
	"net/http"
	"strings"
	"time"

	"gias.org/internal/auth"
)

type updateUserRequest struct {
	Email    *string `json:"email"`
	FullName *string `json:"full_name"`
	RoleID   *string `json:"role_id"`
	Active   *bool   `json:"is_active"`
	Verified *bool   `json:"is_verified"`
}

func (a *API) handleUsersCollection(w http.ResponseWriter, r *http.Request) {
	r, ok := a.authorize(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		users, err := a.store.Users(r.Context()).List(r.Context())
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		if users == nil {
			users = []*auth.User{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": users})
	case http.MethodPost:
		var req registerRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if !strings.Contains(req.Email, "@") {
			writeError(w, r, http.StatusBadRequest, "a valid email is required")
			return
		}
		if req.Password == "" {
			writeError(w, r, http.StatusBadRequest, "password is required")
			return
		}
		user, err := a.auth.Register(r.Context(), auth.RegisterParams{
			Email:    req.Email,
			Password: req.Password,
			FullName: req.FullName,
			RoleID:   req.RoleID,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "user.create", "user", user.ID, map[string]any{
			"email": user.Email,
		})
		w.Header().Set("Location", "/api/v1/users/"+user.ID)
		writeJSON(w, http.StatusCreated, user)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleUserResource(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/v1/users/"), "/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	r, ok := a.authorize(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		user, err := a.store.Users(r.Context()).Find(r.Context(), id)
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case http.MethodPatch:
		a.patchUser(w, r, id)
	case http.MethodDelete:
		if err := a.store.Users(r.Context()).Delete(r.Context(), id); err != nil {
			handleAuthError(w, r, err)
			return
		}
		a.audit(r.Context(), "user.delete", "user", id, nil)
		w.WriteHeader(http.StatusNoContent)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
	}
}

func (a *API) patchUser(w http.ResponseWriter, r *http.Request, id string) {
	var req updateUserRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	user, err := a.store.Users(ctx).Find(ctx, id)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}

	if req.Email != nil {
		email := auth.NormalizeEmail(*req.Email)
		if !strings.Contains(email, "@") {
			writeError(w, r, http.StatusBadRequest, "a valid email is required")
			return
		}
		user.Email = email
	}
	if req.FullName != nil {
		user.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.RoleID != nil {
		role, err := a.store.Roles(ctx).Find(ctx, *req.RoleID)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "unknown role")
			return
		}
		user.RoleID = role.ID
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Verified != nil {
		user.Verified = *req.Verified
	}

	user.UpdatedAt = time.Now().UTC()
	if err := a.store.Users(ctx).Update(ctx, user); err != nil {
		handleAuthError(w, r, err)
		return
	}
	a.audit(ctx, "user.update", "user", user.ID, nil)
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	r, ok := a.authorize(w, r, auth.RoleAdmin)
	if !ok {
		return
	}
	roles, err := a.store.Roles(r.Context()).List(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	if roles == nil {
		roles = []*auth.Role{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": roles})
}
