package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"medregistry.org/internal/account"
	"medregistry.org/internal/auth"
)

type decisionRequest struct {
	Decision string `json:"decision"`
}

type terminationRequest struct {
	Reason string `json:"reason"`
}

type claimRequest struct {
	Credential string `json:"credential"`
}

type documentReviewRequest struct {
	Note string `json:"note"`
}

func (a *API) handleApplications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var draft account.Draft
	if err := decodeJSON(w, r, &draft); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acct, err := a.accounts.SubmitApplication(r.Context(), draft)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/accounts/%s", acct.ID))
	writeJSON(w, http.StatusCreated, acct)
}

func (a *API) handleAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	role := account.Role(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("role"))))
	status := account.Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status"))))

	switch role {
	case account.RolePractitioner:
		if !a.ensurePermission(w, r, auth.PermPractitionerView) {
			return
		}
	case account.RoleDispensary:
		if !a.ensurePermission(w, r, auth.PermDispensaryView) {
			return
		}
	case "":
		if !a.ensurePermission(w, r, auth.PermPractitionerView) || !a.ensurePermission(w, r, auth.PermDispensaryView) {
			return
		}
	default:
		writeError(w, r, http.StatusBadRequest, "role must be PRACTITIONER or DISPENSARY")
		return
	}

	accounts, err := a.accounts.List(r.Context(), role, status)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": accounts})
}

func (a *API) handleAccountScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/accounts/"), "/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	parts := strings.Split(path, "/")
	id := parts[0]

	if len(parts) == 1 {
		a.handleAccountGet(w, r, id)
		return
	}
	if len(parts) != 2 {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	switch parts[1] {
	case "decision":
		a.handleDecision(w, r, id)
	case "termination":
		a.handleTermination(w, r, id)
	case "credential-reset":
		a.handleCredentialReset(w, r, id)
	case "profile":
		a.handleProfileUpdate(w, r, id)
	case "document-review":
		a.handleDocumentReview(w, r, id)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) handleAccountGet(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	acct, err := a.accounts.Get(r.Context(), id)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	if !a.ensurePermission(w, r, viewPermission(acct.Role)) {
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func (a *API) handleDecision(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	acct, err := a.accounts.Get(r.Context(), id)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	if !a.ensurePermission(w, r, decidePermission(acct.Role)) {
		return
	}
	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	decision := account.Status(strings.ToUpper(strings.TrimSpace(req.Decision)))
	updated, err := a.accounts.Decide(r.Context(), id, actor.ID, decision)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleTermination(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if !a.ensurePermission(w, r, auth.PermAccountTerminate) {
		return
	}
	var req terminationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.accounts.Terminate(r.Context(), id, actor.ID, req.Reason)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleCredentialReset(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	if !a.ensurePermission(w, r, auth.PermCredentialReset) {
		return
	}
	updated, err := a.accounts.ResetCredential(r.Context(), id, actor.ID)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleProfileUpdate(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPatch {
		methodNotAllowed(w, r, http.MethodPatch)
		return
	}
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	acct, err := a.accounts.Get(r.Context(), id)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	if !a.ensurePermission(w, r, decidePermission(acct.Role)) {
		return
	}
	var upd account.ProfileUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := a.accounts.UpdateProfile(r.Context(), id, actor.ID, upd)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDocumentReview(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	actor, ok := auth.ActorFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	acct, err := a.accounts.Get(r.Context(), id)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	if !a.ensurePermission(w, r, decidePermission(acct.Role)) {
		return
	}
	var req documentReviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.accounts.ReviewDocument(r.Context(), id, actor.ID, req.Note); err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "reviewed"})
}

func (a *API) handleDirectoryLeads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var entry account.LeadEntry
	if err := decodeJSON(w, r, &entry); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acct, err := a.accounts.AddDirectoryLead(r.Context(), entry)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	w.Header().Set("Location", fmt.Sprintf("/v1/accounts/%s", acct.ID))
	writeJSON(w, http.StatusCreated, acct)
}

func (a *API) handleDirectoryLeadScoped(w http.ResponseWriter, r *http.Request) {
	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/directory/leads/"), "/")
	parts := strings.Split(path, "/")
	if len(parts) != 2 || parts[1] != "claim" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req claimRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	acct, err := a.accounts.PromoteDirectoryLead(r.Context(), parts[0], req.Credential)
	if err != nil {
		handleAccountError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acct)
}

func viewPermission(role account.Role) auth.Permission {
	if role == account.RolePractitioner {
		return auth.PermPractitionerView
	}
	return auth.PermDispensaryView
}

func decidePermission(role account.Role) auth.Permission {
	if role == account.RolePractitioner {
		return auth.PermPractitionerDecide
	}
	return auth.PermDispensaryDecide
}
