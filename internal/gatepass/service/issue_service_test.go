package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gatepass-hq/server/internal/gatepass/codes"
	"github.com/gatepass-hq/server/internal/gatepass/service"
	"github.com/gatepass-hq/server/internal/gatepass/store/memory"
	"github.com/gatepass-hq/server/internal/gatepass/types"
)

// newTestIssuer wires an IssueService over memory stores with the real
// minter unless one is supplied.
func newTestIssuer(t *testing.T, min, max int, quota *int, mint service.Minter) (*service.IssueService, *memory.CredentialStore) {
	t.Helper()

	credentials, estates := newTestStores(t, min, max, quota)
	policy := service.NewPolicyEngine(credentials, estates)
	if mint == nil {
		mint = codes.Mint
	}
	return service.NewIssueService(policy, credentials, mint), credentials
}

// sequenceMinter returns the given codes in order, then fails the test.
func sequenceMinter(t *testing.T, seq ...string) service.Minter {
	t.Helper()
	i := 0
	return func() (string, error) {
		if i >= len(seq) {
			t.Fatalf("minter called %d times, only %d codes provided", i+1, len(seq))
		}
		code := seq[i]
		i++
		return code, nil
	}
}

func TestIssue_GrantsClampedDurationAndActiveState(t *testing.T) {
	issuer, _ := newTestIssuer(t, 60, 1440, intPtr(3), nil)

	before := time.Now().UTC()
	c, err := issuer.Issue(context.Background(), testResidentID, testEstateID, types.IssueRequest{
		RequestedMinutes: 15,
		VisitorLabel:     "Plumber",
	})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	if c.State != types.StateActive {
		t.Errorf("expected active state, got %s", c.State)
	}
	if len(c.Code) != codes.Length {
		t.Errorf("expected %d-digit code, got %q", codes.Length, c.Code)
	}
	if c.VisitorLabel != "Plumber" {
		t.Errorf("expected visitor label Plumber, got %q", c.VisitorLabel)
	}
	if c.ExpiresAt == nil {
		t.Fatal("expected expiry for single-use code")
	}
	// Requested 15 clamps up to the 60-minute minimum.
	want := c.IssuedAt.Add(60 * time.Minute)
	if !c.ExpiresAt.Equal(want) {
		t.Errorf("expected expiry %s, got %s", want, c.ExpiresAt)
	}
	if c.IssuedAt.Before(before.Add(-time.Second)) {
		t.Errorf("issued_at %s earlier than test start %s", c.IssuedAt, before)
	}
}

func TestIssue_RetriesMintOnCollision(t *testing.T) {
	issuer, credentials := newTestIssuer(t, 60, 1440, nil, sequenceMinter(t, "111111", "111111", "222222"))

	// Occupy 111111 so the first two mints collide.
	first, err := issuer.Issue(context.Background(), testResidentID, testEstateID, types.IssueRequest{RequestedMinutes: 60})
	if err != nil {
		t.Fatalf("first Issue: %v", err)
	}
	if first.Code != "111111" {
		t.Fatalf("expected first code 111111, got %s", first.Code)
	}

	second, err := issuer.Issue(context.Background(), testResidentID, testEstateID, types.IssueRequest{RequestedMinutes: 60})
	if err != nil {
		t.Fatalf("second Issue: %v", err)
	}
	if second.Code != "222222" {
		t.Errorf("expected retry to land on 222222, got %s", second.Code)
	}

	if _, err := credentials.FindByCode(context.Background(), testEstateID, "222222"); err != nil {
		t.Errorf("expected 222222 persisted: %v", err)
	}
}

func TestIssue_GenerationFailedAfterBoundedRetries(t *testing.T) {
	mintCalls := 0
	alwaysColliding := func() (string, error) {
		mintCalls++
		return "333333", nil
	}
	issuer, _ := newTestIssuer(t, 60, 1440, nil, alwaysColliding)

	if _, err := issuer.Issue(context.Background(), testResidentID, testEstateID, types.IssueRequest{RequestedMinutes: 60}); err != nil {
		t.Fatalf("occupying Issue: %v", err)
	}
	mintCalls = 0

	_, err := issuer.Issue(context.Background(), testResidentID, testEstateID, types.IssueRequest{RequestedMinutes: 60})
	if !errors.Is(err, service.ErrGenerationFailed) {
		t.Fatalf("expected ErrGenerationFailed, got %v", err)
	}
	if mintCalls != 5 {
		t.Errorf("expected 5 mint attempts, got %d", mintCalls)
	}
}

func TestIssue_QuotaExceededCarriesConfiguredLimit(t *testing.T) {
	issuer, _ := newTestIssuer(t, 60, 1440, intPtr(2), nil)

	for i := 0; i < 2; i++ {
		if _, err := issuer.Issue(context.Background(), testResidentID, testEstateID, types.IssueRequest{RequestedMinutes: 60}); err != nil {
			t.Fatalf("Issue %d: %v", i+1, err)
		}
	}

	_, err := issuer.Issue(context.Background(), testResidentID, testEstateID, types.IssueRequest{RequestedMinutes: 60})
	var quota *service.QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if quota.Limit != 2 {
		t.Errorf("expected limit 2, got %d", quota.Limit)
	}
}

func TestIssue_PermanentCodeHasNoExpiryAndCountsTowardQuota(t *testing.T) {
	issuer, _ := newTestIssuer(t, 60, 1440, intPtr(1), nil)

	c, err := issuer.Issue(context.Background(), testResidentID, testEstateID, types.IssueRequest{Permanent: true})
	if err != nil {
		t.Fatalf("Issue permanent: %v", err)
	}
	if c.Kind != types.KindLongLived {
		t.Errorf("expected long_lived kind, got %s", c.Kind)
	}
	if c.ExpiresAt != nil {
		t.Errorf("expected nil expiry, got %s", c.ExpiresAt)
	}

	_, err = issuer.Issue(context.Background(), testResidentID, testEstateID, types.IssueRequest{RequestedMinutes: 60})
	var quota *service.QuotaExceededError
	if !errors.As(err, &quota) {
		t.Errorf("expected permanent code to consume quota, got %v", err)
	}
}
