package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"medregistry.org/internal/audit"
	"medregistry.org/internal/auth"
)

func (a *API) handleAuditEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	if !a.ensurePermission(w, r, auth.PermAuditView) {
		return
	}

	qs := r.URL.Query()
	q := audit.Query{
		Category: audit.Category(strings.ToUpper(strings.TrimSpace(qs.Get("category")))),
		Search:   qs.Get("search"),
	}
	if v := qs.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		q.Page = n
	}
	if v := qs.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, r, http.StatusBadRequest, "page_size must be a positive integer")
			return
		}
		q.PageSize = n
	}

	page, err := a.auditLog.Run(r.Context(), q)
	if err != nil {
		if errors.Is(err, audit.ErrPersistence) {
			writeError(w, r, http.StatusInternalServerError, "audit read failed")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, page)
}
