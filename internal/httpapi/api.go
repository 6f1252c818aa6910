package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"medregistry.org/internal/account"
	"medregistry.org/internal/audit"
	"medregistry.org/internal/auth"
	"medregistry.org/internal/obs"
)

const serviceName = "medregistry-api"

// ReadyProbe reports whether the backing store can be reached.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP layer over the three engines.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	accounts *account.Service
	admins   *auth.Service
	auditLog *audit.Log

	rateBurst  int
	ratePerSec int
}

// New wires routes. All decision logic lives in the injected services; the
// handlers only decode, authorize via the guard, invoke and encode.
func New(rp ReadyProbe, version string, accounts *account.Service, admins *auth.Service, auditLog *audit.Log) *API {
	a := &API{
		mux:        http.NewServeMux(),
		readyProbe: rp,
		version:    version,
		accounts:   accounts,
		admins:     admins,
		auditLog:   auditLog,
		rateBurst:  20,
		ratePerSec: 10,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/admins", a.handleAdmins)

	a.mux.HandleFunc("/v1/applications", a.handleApplications)
	a.mux.HandleFunc("/v1/accounts", a.handleAccounts)
	a.mux.HandleFunc("/v1/accounts/", a.handleAccountScoped)
	a.mux.HandleFunc("/v1/directory/leads", a.handleDirectoryLeads)
	a.mux.HandleFunc("/v1/directory/leads/", a.handleDirectoryLeadScoped)
	a.mux.HandleFunc("/v1/audit/events", a.handleAuditEvents)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = a.withAuth(h)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, 1<<20)
	h = RequestID(h)
	h = CORS(h)
	h = SecurityHeaders(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed string) {
	w.Header().Set("Allow", allowed)
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

func handleAccountError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, account.ErrValidation):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, account.ErrDuplicate):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, err.Error())
	case errors.Is(err, account.ErrNotFound):
		writeError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, audit.ErrPersistence), errors.Is(err, account.ErrPersistence):
		writeError(w, r, http.StatusInternalServerError, "audit write failed")
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
