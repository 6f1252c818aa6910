package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"medregistry.org/internal/auth"
)

func TestExtractBearerToken(t *testing.T) {
	cases := []struct {
		header  string
		want    string
		wantErr bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", false},
		{"bearer lowercase-scheme", "lowercase-scheme", false},
		{"  Bearer padded  ", "padded", false},
		{"", "", true},
		{"Bearer ", "", true},
		{"Basic dXNlcjpwYXNz", "", true},
		{"abc.def.ghi", "", true},
	}
	for _, tc := range cases {
		got, err := extractBearerToken(tc.header)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("header %q: expected error", tc.header)
			}
			continue
		}
		if err != nil {
			t.Fatalf("header %q: %v", tc.header, err)
		}
		if got != tc.want {
			t.Fatalf("header %q: token = %q, want %q", tc.header, got, tc.want)
		}
	}
}

func TestIsPublicPath(t *testing.T) {
	public := []string{
		"/healthz", "/readyz", "/metrics", "/v1/info",
		"/v1/auth/login", "/v1/applications",
		"/v1/directory/leads", "/v1/directory/leads/abc/claim",
	}
	for _, p := range public {
		if !isPublicPath(p) {
			t.Fatalf("%s should be public", p)
		}
	}
	private := []string{
		"/v1/accounts", "/v1/accounts/abc", "/v1/accounts/abc/decision",
		"/v1/audit/events", "/v1/admins",
	}
	for _, p := range private {
		if isPublicPath(p) {
			t.Fatalf("%s should require authentication", p)
		}
	}
}

func TestEnsurePermission(t *testing.T) {
	a := &API{}
	perms, _ := auth.PermissionsFor(auth.RoleReviewer)
	reviewer := auth.Actor{ID: "rev-1", Role: auth.RoleReviewer, Permissions: perms}

	// No actor in context: 401.
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/audit/events", nil)
	if a.ensurePermission(rr, req, auth.PermAuditView) {
		t.Fatal("expected denial without actor")
	}
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}

	// Actor without the permission: 403.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/accounts/x/termination", nil)
	req = req.WithContext(auth.ContextWithActor(req.Context(), reviewer))
	if a.ensurePermission(rr, req, auth.PermAccountTerminate) {
		t.Fatal("expected denial for missing permission")
	}
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}

	// Actor with the permission: pass, nothing written.
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/audit/events", nil)
	req = req.WithContext(auth.ContextWithActor(req.Context(), reviewer))
	if !a.ensurePermission(rr, req, auth.PermAuditView) {
		t.Fatal("expected grant")
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("grant wrote a body: %s", rr.Body.String())
	}
}
