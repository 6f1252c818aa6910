package account_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"medregistry.org/internal/account"
	"medregistry.org/internal/audit"
	"medregistry.org/internal/store/memory"
)

func newService(t *testing.T) (*account.Service, *audit.Log, *memory.Store) {
	t.Helper()
	store := memory.New()
	log, err := audit.New(store, store)
	if err != nil {
		t.Fatal(err)
	}
	svc, err := account.NewService(store, log, nil)
	if err != nil {
		t.Fatal(err)
	}
	return svc, log, store
}

func submit(t *testing.T, svc *account.Service, name, email string, role account.Role) account.Account {
	t.Helper()
	acct, err := svc.SubmitApplication(context.Background(), account.Draft{
		Name: name, Email: email, Role: role,
	})
	if err != nil {
		t.Fatal(err)
	}
	return acct
}

func TestRegistrationLifecycle(t *testing.T) {
	svc, log, _ := newService(t)
	ctx := context.Background()

	acct := submit(t, svc, "Dr. Ayala", "ayala@example.com", account.RolePractitioner)
	if acct.Status != account.StatusPending {
		t.Fatalf("new application status = %s, want PENDING", acct.Status)
	}

	acct, err := svc.Decide(ctx, acct.ID, "admin-1", account.StatusVerified)
	if err != nil {
		t.Fatal(err)
	}
	if acct.Status != account.StatusVerified {
		t.Fatalf("status after decision = %s, want VERIFIED", acct.Status)
	}

	acct, err = svc.Terminate(ctx, acct.ID, "admin-1", "license revoked by board")
	if err != nil {
		t.Fatal(err)
	}
	if acct.Status != account.StatusTerminated {
		t.Fatalf("status after termination = %s, want TERMINATED", acct.Status)
	}
	if acct.TerminatedAt == nil || acct.TerminatedBy != "admin-1" {
		t.Fatalf("termination metadata not stamped: %+v", acct)
	}

	// TERMINATED is a sink: no operation moves the account out of it.
	if _, err := svc.Decide(ctx, acct.ID, "admin-1", account.StatusVerified); !errors.Is(err, account.ErrInvalidTransition) {
		t.Fatalf("decide on terminated: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.Terminate(ctx, acct.ID, "admin-1", "again"); !errors.Is(err, account.ErrInvalidTransition) {
		t.Fatalf("terminate on terminated: err = %v, want ErrInvalidTransition", err)
	}
	if _, err := svc.ResetCredential(ctx, acct.ID, "admin-1"); !errors.Is(err, account.ErrInvalidTransition) {
		t.Fatalf("credential reset on terminated: err = %v, want ErrInvalidTransition", err)
	}

	// Exactly one audit event per successful mutation, in order.
	page, err := log.Run(ctx, audit.Query{})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 3 {
		t.Fatalf("audit events = %d, want 3", page.Total)
	}
	wantNewestFirst := []string{
		audit.ActionTermination,
		audit.ActionStatusChange,
		audit.ActionAccountRegistered,
	}
	for i, want := range wantNewestFirst {
		if page.Entries[i].Action != want {
			t.Fatalf("event[%d].Action = %s, want %s", i, page.Entries[i].Action, want)
		}
	}
}

func TestRejectedIsTerminal(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	acct := submit(t, svc, "Greenleaf", "ops@greenleaf.example", account.RoleDispensary)
	if _, err := svc.Decide(ctx, acct.ID, "admin-1", account.StatusRejected); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Decide(ctx, acct.ID, "admin-1", account.StatusVerified); !errors.Is(err, account.ErrInvalidTransition) {
		t.Fatalf("decide on rejected: err = %v, want ErrInvalidTransition", err)
	}
}

func TestDecideValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	acct := submit(t, svc, "Dr. Osei", "osei@example.com", account.RolePractitioner)
	if _, err := svc.Decide(ctx, acct.ID, "admin-1", account.StatusPending); !errors.Is(err, account.ErrValidation) {
		t.Fatalf("decision PENDING: err = %v, want ErrValidation", err)
	}
	if _, err := svc.Decide(ctx, "missing", "admin-1", account.StatusVerified); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("decision on missing account: err = %v, want ErrNotFound", err)
	}
}

func TestConcurrentDecisionsOneWinner(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	acct := submit(t, svc, "Dr. Raced", "raced@example.com", account.RolePractitioner)

	const n = 20
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision := account.StatusVerified
			if i%2 == 1 {
				decision = account.StatusRejected
			}
			_, errs[i] = svc.Decide(ctx, acct.ID, "admin-1", decision)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, account.ErrInvalidTransition):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("concurrent decisions: %d winners, want exactly 1", wins)
	}
}

func TestTerminateRequiresReason(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	acct := submit(t, svc, "Dr. Brief", "brief@example.com", account.RolePractitioner)
	if _, err := svc.Decide(ctx, acct.ID, "admin-1", account.StatusVerified); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Terminate(ctx, acct.ID, "admin-1", "   "); !errors.Is(err, account.ErrValidation) {
		t.Fatalf("blank reason: err = %v, want ErrValidation", err)
	}
}

func TestTerminateFromPendingFails(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	acct := submit(t, svc, "Dr. Early", "early@example.com", account.RolePractitioner)
	if _, err := svc.Terminate(ctx, acct.ID, "admin-1", "no longer needed"); !errors.Is(err, account.ErrInvalidTransition) {
		t.Fatalf("terminate PENDING: err = %v, want ErrInvalidTransition", err)
	}
}

func TestDuplicateEmail(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	submit(t, svc, "First", "taken@example.com", account.RoleDispensary)
	_, err := svc.SubmitApplication(ctx, account.Draft{
		Name: "Second", Email: "taken@example.com", Role: account.RoleDispensary,
	})
	if !errors.Is(err, account.ErrDuplicate) {
		t.Fatalf("duplicate email: err = %v, want ErrDuplicate", err)
	}
}

func TestSubmitValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		draft account.Draft
	}{
		{"missing name", account.Draft{Email: "x@example.com", Role: account.RolePractitioner}},
		{"missing email", account.Draft{Name: "X", Role: account.RolePractitioner}},
		{"malformed email", account.Draft{Name: "X", Email: "not-an-email", Role: account.RolePractitioner}},
		{"unknown role", account.Draft{Name: "X", Email: "x@example.com", Role: "PHARMACIST"}},
	}
	for _, tc := range cases {
		if _, err := svc.SubmitApplication(ctx, tc.draft); !errors.Is(err, account.ErrValidation) {
			t.Fatalf("%s: err = %v, want ErrValidation", tc.name, err)
		}
	}
}

func TestDirectoryLeadFlow(t *testing.T) {
	svc, log, _ := newService(t)
	ctx := context.Background()

	lead, err := svc.AddDirectoryLead(ctx, account.LeadEntry{
		Name: "Corner Pharmacy", Phone: "555-0133", PostalCode: "10001",
	})
	if err != nil {
		t.Fatal(err)
	}
	if lead.Status != account.StatusDirectory {
		t.Fatalf("lead status = %s, want DIRECTORY", lead.Status)
	}
	if lead.Role != account.RoleDispensary {
		t.Fatalf("default lead role = %s, want DISPENSARY", lead.Role)
	}
	if lead.CredentialHash != "" {
		t.Fatal("directory lead must not carry a credential")
	}

	if _, err := svc.PromoteDirectoryLead(ctx, lead.ID, ""); !errors.Is(err, account.ErrValidation) {
		t.Fatalf("claim without credential: err = %v, want ErrValidation", err)
	}

	// An unclaimed listing is not in the approval queue.
	if _, err := svc.Decide(ctx, lead.ID, "admin-1", account.StatusVerified); !errors.Is(err, account.ErrInvalidTransition) {
		t.Fatalf("decide on DIRECTORY: err = %v, want ErrInvalidTransition", err)
	}

	claimed, err := svc.PromoteDirectoryLead(ctx, lead.ID, "s3cret-pass")
	if err != nil {
		t.Fatal(err)
	}
	if claimed.Status != account.StatusPending {
		t.Fatalf("claimed lead status = %s, want PENDING", claimed.Status)
	}
	if claimed.CredentialHash == "" {
		t.Fatal("claimed lead must hold a credential hash")
	}

	// Claiming twice fails: the account left DIRECTORY.
	if _, err := svc.PromoteDirectoryLead(ctx, lead.ID, "another"); !errors.Is(err, account.ErrInvalidTransition) {
		t.Fatalf("double claim: err = %v, want ErrInvalidTransition", err)
	}

	// The claim put the account in the queue, so a decision is now legal.
	decided, err := svc.Decide(ctx, lead.ID, "admin-1", account.StatusVerified)
	if err != nil {
		t.Fatalf("decide on claimed lead: %v", err)
	}
	if decided.Status != account.StatusVerified {
		t.Fatalf("claimed lead after decision = %s, want VERIFIED", decided.Status)
	}

	// The unauthenticated submission is attributed to the guest actor.
	page, err := log.Run(ctx, audit.Query{Search: "lead"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 2 {
		t.Fatalf("lead audit events = %d, want 2", page.Total)
	}
	if page.Entries[1].ActorID != "portal-guest" {
		t.Fatalf("lead_added actor = %s, want portal-guest", page.Entries[1].ActorID)
	}
}

func TestLeadValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.AddDirectoryLead(ctx, account.LeadEntry{Name: "No Contact"}); !errors.Is(err, account.ErrValidation) {
		t.Fatalf("lead without phone/postal: err = %v, want ErrValidation", err)
	}
}

func TestResetCredentialKeepsStatus(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	acct := submit(t, svc, "Dr. Reset", "reset@example.com", account.RolePractitioner)
	if _, err := svc.Decide(ctx, acct.ID, "admin-1", account.StatusVerified); err != nil {
		t.Fatal(err)
	}
	acct, err := svc.ResetCredential(ctx, acct.ID, "admin-1")
	if err != nil {
		t.Fatal(err)
	}
	if !acct.CredentialResetRequired {
		t.Fatal("reset flag not set")
	}
	if acct.Status != account.StatusVerified {
		t.Fatalf("status after reset = %s, want VERIFIED", acct.Status)
	}
}

func TestUpdateProfile(t *testing.T) {
	svc, log, _ := newService(t)
	ctx := context.Background()

	acct := submit(t, svc, "Dr. Edit", "edit@example.com", account.RolePractitioner)

	phone := "555-0101"
	updated, err := svc.UpdateProfile(ctx, acct.ID, "admin-1", account.ProfileUpdate{Phone: &phone})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Phone != phone {
		t.Fatalf("phone = %s, want %s", updated.Phone, phone)
	}

	page, err := log.Run(ctx, audit.Query{Search: "phone"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Entries[0].Action != audit.ActionProfileUpdate {
		t.Fatalf("profile update not audited: %+v", page)
	}

	if _, err := svc.UpdateProfile(ctx, acct.ID, "admin-1", account.ProfileUpdate{}); !errors.Is(err, account.ErrValidation) {
		t.Fatalf("empty update: err = %v, want ErrValidation", err)
	}

	blank := "  "
	if _, err := svc.UpdateProfile(ctx, acct.ID, "admin-1", account.ProfileUpdate{Name: &blank}); !errors.Is(err, account.ErrValidation) {
		t.Fatalf("blank name: err = %v, want ErrValidation", err)
	}
}

func TestReviewDocument(t *testing.T) {
	svc, log, _ := newService(t)
	ctx := context.Background()

	if err := svc.ReviewDocument(ctx, "missing", "admin-1", "looks fine"); !errors.Is(err, account.ErrNotFound) {
		t.Fatalf("review missing account: err = %v, want ErrNotFound", err)
	}

	acct := submit(t, svc, "Dr. Papers", "papers@example.com", account.RolePractitioner)
	if err := svc.ReviewDocument(ctx, acct.ID, "admin-1", "license scan matches registry"); err != nil {
		t.Fatal(err)
	}

	page, err := log.Run(ctx, audit.Query{Search: "registry"})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Entries[0].Action != audit.ActionDocumentReview {
		t.Fatalf("document review not audited: %+v", page)
	}
}

func TestListFilters(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	p := submit(t, svc, "Dr. P", "p@example.com", account.RolePractitioner)
	submit(t, svc, "Shop D", "d@example.com", account.RoleDispensary)
	if _, err := svc.Decide(ctx, p.ID, "admin-1", account.StatusVerified); err != nil {
		t.Fatal(err)
	}

	verified, err := svc.List(ctx, account.RolePractitioner, account.StatusVerified)
	if err != nil {
		t.Fatal(err)
	}
	if len(verified) != 1 || verified[0].ID != p.ID {
		t.Fatalf("filtered list = %+v, want only %s", verified, p.ID)
	}

	all, err := svc.List(ctx, "", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered list = %d accounts, want 2", len(all))
	}
}
