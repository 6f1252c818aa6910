package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"medregistry.org/internal/audit"
	"medregistry.org/internal/auth"
	"medregistry.org/internal/obs"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string            `json:"token"`
	Actor actorResponse     `json:"actor"`
	Perms []auth.Permission `json:"permissions"`
}

type actorResponse struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  auth.Role `json:"role"`
}

type createActorRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	actor, token, err := a.admins.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			// Logged against the guest actor; the email may not map to anyone.
			a.recordAudit(r, "portal-guest", audit.ActionLoginFailure,
				fmt.Sprintf("failed login for %s", req.Email))
			w.Header().Set("WWW-Authenticate", "Bearer")
			writeError(w, r, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "login failed")
		return
	}
	a.recordAudit(r, actor.ID, audit.ActionLoginSuccess,
		fmt.Sprintf("admin %s signed in", actor.Email))
	writeJSON(w, http.StatusOK, loginResponse{
		Token: token,
		Actor: actorResponse{ID: actor.ID, Name: actor.Name, Email: actor.Email, Role: actor.Role},
		Perms: actor.PermissionList(),
	})
}

func (a *API) handleAdmins(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.handleAdminCreate(w, r)
	case http.MethodGet:
		a.handleAdminList(w, r)
	default:
		methodNotAllowed(w, r, "GET, POST")
	}
}

func (a *API) handleAdminCreate(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, auth.PermAdminManage) {
		return
	}
	var req createActorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	actor, err := a.admins.CreateActor(r.Context(), req.Name, req.Email, req.Password, auth.Role(req.Role))
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":          actor.ID,
		"name":        actor.Name,
		"email":       actor.Email,
		"role":        actor.Role,
		"permissions": actor.PermissionList(),
		"created_at":  actor.CreatedAt,
	})
}

func (a *API) handleAdminList(w http.ResponseWriter, r *http.Request) {
	if !a.ensurePermission(w, r, auth.PermAdminManage) {
		return
	}
	actors, err := a.admins.ListActors(r.Context())
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	items := make([]actorResponse, 0, len(actors))
	for _, actor := range actors {
		items = append(items, actorResponse{ID: actor.ID, Name: actor.Name, Email: actor.Email, Role: actor.Role})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

// recordAudit writes a boundary-level audit event. A failed write does not
// change the request outcome, but it is never silent: the lost event is
// reported as an error-level log line.
func (a *API) recordAudit(r *http.Request, actorID, action, details string) {
	if a.auditLog == nil {
		return
	}
	if _, err := a.auditLog.Record(r.Context(), actorID, action, details); err != nil {
		obs.LogEntry(map[string]any{
			"ts":         time.Now().UTC().Format(time.RFC3339Nano),
			"level":      "error",
			"msg":        "audit_record_failed",
			"action":     action,
			"actor_id":   actorID,
			"error":      err.Error(),
			"request_id": RequestIDFromContext(r.Context()),
		})
	}
}

func handleAuthError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, r, http.StatusUnauthorized, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
