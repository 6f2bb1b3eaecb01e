package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gatepass-hq/server/internal/gatepass/service"
	"github.com/gatepass-hq/server/internal/gatepass/store"
	"github.com/gatepass-hq/server/internal/gatepass/store/memory"
	"github.com/gatepass-hq/server/internal/gatepass/types"
)

const (
	testEstateID   = "estate_1"
	testResidentID = "resident_1"
)

// newTestStores seeds an estate with the given policy and one resident,
// returning the memory stores shared by the service under test.
func newTestStores(t *testing.T, min, max int, quota *int) (*memory.CredentialStore, *memory.EstateStore) {
	t.Helper()

	estates := memory.NewEstateStore()
	estates.PutEstate(store.Estate{
		ID:   testEstateID,
		Name: "Test Estate",
		Policy: types.IssuancePolicy{
			MinDurationMinutes:    min,
			MaxDurationMinutes:    max,
			DailyQuotaPerResident: quota,
		},
	})
	estates.PutResident(store.Resident{
		ID:          testResidentID,
		EstateID:    testEstateID,
		DisplayName: "Ana Ibarra",
		Unit:        "4A",
	})

	return memory.NewCredentialStore(), estates
}

// seedIssuedToday inserts n credentials issued now for the test resident.
func seedIssuedToday(t *testing.T, credentials *memory.CredentialStore, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		err := credentials.Create(context.Background(), types.Credential{
			ID:         uuid.NewString(),
			ResidentID: testResidentID,
			EstateID:   testEstateID,
			Code:       uuid.NewString()[:6], // uniqueness not under test here
			Kind:       types.KindSingleUse,
			State:      types.StateActive,
			IssuedAt:   time.Now().UTC(),
		})
		if err != nil {
			t.Fatalf("seed credential: %v", err)
		}
	}
}

func intPtr(n int) *int { return &n }

func TestEvaluateIssuance_ClampsBelowMinUpToMin(t *testing.T) {
	credentials, estates := newTestStores(t, 60, 1440, nil)
	engine := service.NewPolicyEngine(credentials, estates)

	granted, err := engine.EvaluateIssuance(context.Background(), testResidentID, testEstateID, 15)
	if err != nil {
		t.Fatalf("EvaluateIssuance: %v", err)
	}
	if granted != 60 {
		t.Errorf("expected 60 granted minutes, got %d", granted)
	}
}

func TestEvaluateIssuance_ClampsAboveMaxDownToMax(t *testing.T) {
	credentials, estates := newTestStores(t, 60, 1440, nil)
	engine := service.NewPolicyEngine(credentials, estates)

	granted, err := engine.EvaluateIssuance(context.Background(), testResidentID, testEstateID, 10_000)
	if err != nil {
		t.Fatalf("EvaluateIssuance: %v", err)
	}
	if granted != 1440 {
		t.Errorf("expected 1440 granted minutes, got %d", granted)
	}
}

func TestEvaluateIssuance_WithinBoundsUnchanged(t *testing.T) {
	credentials, estates := newTestStores(t, 60, 1440, nil)
	engine := service.NewPolicyEngine(credentials, estates)

	granted, err := engine.EvaluateIssuance(context.Background(), testResidentID, testEstateID, 120)
	if err != nil {
		t.Fatalf("EvaluateIssuance: %v", err)
	}
	if granted != 120 {
		t.Errorf("expected 120 granted minutes, got %d", granted)
	}
}

func TestEvaluateIssuance_AtQuotaFailsWithLimit(t *testing.T) {
	credentials, estates := newTestStores(t, 60, 1440, intPtr(3))
	engine := service.NewPolicyEngine(credentials, estates)

	seedIssuedToday(t, credentials, 3)

	_, err := engine.EvaluateIssuance(context.Background(), testResidentID, testEstateID, 60)
	var quota *service.QuotaExceededError
	if !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if quota.Limit != 3 {
		t.Errorf("expected limit 3 in error, got %d", quota.Limit)
	}
}

func TestEvaluateIssuance_OneBelowQuotaSucceeds(t *testing.T) {
	credentials, estates := newTestStores(t, 60, 1440, intPtr(3))
	engine := service.NewPolicyEngine(credentials, estates)

	seedIssuedToday(t, credentials, 2)

	if _, err := engine.EvaluateIssuance(context.Background(), testResidentID, testEstateID, 60); err != nil {
		t.Fatalf("expected success one below quota, got %v", err)
	}
}

func TestEvaluateIssuance_NilQuotaIsUnlimited(t *testing.T) {
	credentials, estates := newTestStores(t, 60, 1440, nil)
	engine := service.NewPolicyEngine(credentials, estates)

	seedIssuedToday(t, credentials, 50)

	if _, err := engine.EvaluateIssuance(context.Background(), testResidentID, testEstateID, 60); err != nil {
		t.Fatalf("expected success with unlimited quota, got %v", err)
	}
}

func TestEvaluateIssuance_MissingIdentity(t *testing.T) {
	credentials, estates := newTestStores(t, 60, 1440, nil)
	engine := service.NewPolicyEngine(credentials, estates)

	if _, err := engine.EvaluateIssuance(context.Background(), "", testEstateID, 60); !errors.Is(err, service.ErrInvalidResidentID) {
		t.Errorf("expected ErrInvalidResidentID, got %v", err)
	}
	if _, err := engine.EvaluateIssuance(context.Background(), testResidentID, "", 60); !errors.Is(err, service.ErrInvalidEstateID) {
		t.Errorf("expected ErrInvalidEstateID, got %v", err)
	}
}
