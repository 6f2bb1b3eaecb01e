package store

import (
	"context"

	"github.com/gatepass-hq/server/internal/gatepass/types"
)

// Estate is the read model of an estate's settings relevant to issuance.
type Estate struct {
	ID     string
	Name   string
	Policy types.IssuancePolicy
}

// Resident is the read model of a code-issuing principal.
type Resident struct {
	ID          string
	EstateID    string
	DisplayName string
	Unit        string
}

// EstateStore reads estate policy and resident profiles.  Rows are owned by
// the estate administration system; this service never writes them.
type EstateStore interface {
	GetEstate(ctx context.Context, estateID string) (Estate, error)
	GetResident(ctx context.Context, residentID string) (Resident, error)
}
