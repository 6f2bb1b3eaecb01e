package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEstateID   = errors.New("estate_id is required")
	ErrInvalidResidentID = errors.New("resident_id is required")
	ErrInvalidCode       = errors.New("code is required")

	// ErrGenerationFailed means minting could not find a free code within
	// the retry budget.  This should never happen at normal key-space
	// occupancy; if it does, the estate's active code count is a capacity
	// problem, so callers log it loudly.
	ErrGenerationFailed = errors.New("could not mint an unused code")
)

// QuotaExceededError reports that a resident hit their daily issuance limit.
// It carries the configured limit so the caller can show it to the user.
type QuotaExceededError struct {
	Limit int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("daily code quota of %d reached", e.Limit)
}
