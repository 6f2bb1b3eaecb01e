package types

import "time"

// IssuancePolicy is the per-estate policy consumed when issuing codes.
// It is read-only here; the estate administration system owns it.
type IssuancePolicy struct {
	MinDurationMinutes    int
	MaxDurationMinutes    int
	DailyQuotaPerResident *int // nil = unlimited
}

// IssueRequest is the resident-facing issuance payload.
type IssueRequest struct {
	RequestedMinutes int    `json:"requested_minutes"`
	VisitorLabel     string `json:"visitor_label,omitempty"`
	Permanent        bool   `json:"permanent,omitempty"`
}

// IssueResponse echoes the created credential.
type IssueResponse struct {
	CredentialID   string `json:"credential_id"`
	Code           string `json:"code"`
	Kind           Kind   `json:"kind"`
	VisitorLabel   string `json:"visitor_label,omitempty"`
	State          State  `json:"state"`
	IssuedAt       string `json:"issued_at"`
	ExpiresAt      string `json:"expires_at,omitempty"`
	GrantedMinutes int    `json:"granted_minutes,omitempty"`
}

// ValidateRequest is the gate-facing redemption payload.
type ValidateRequest struct {
	EstateID string `json:"estate_id"`
	Code     string `json:"code"`
}

// ValidateResponse is what a gate terminal displays to the guard.  Reason is
// reported verbatim for refusals: "already_used", "expired" and "revoked"
// matter for security auditing and must not collapse into a generic failure.
type ValidateResponse struct {
	Valid        bool   `json:"valid"`
	Reason       string `json:"reason,omitempty"`
	Kind         Kind   `json:"kind,omitempty"`
	VisitorLabel string `json:"visitor_label,omitempty"`
	ResidentName string `json:"resident_name,omitempty"`
	ExpiresAt    string `json:"expires_at,omitempty"`
	ServerTime   string `json:"server_time"`
}

// Refusal reasons for ValidateResponse.Reason.
const (
	ReasonNotFound    = "not_found"
	ReasonAlreadyUsed = "already_used"
	ReasonExpired     = "expired"
	ReasonRevoked     = "revoked"
)

// RevokeRequest is the resident-facing revocation payload.
type RevokeRequest struct {
	CredentialID string `json:"credential_id"`
}

// RevokeResponse reports whether the revoke transition happened.  Revoked is
// false (with no error) when the credential was already terminal.
type RevokeResponse struct {
	Revoked bool   `json:"revoked"`
	State   State  `json:"state,omitempty"`
	Detail  string `json:"detail,omitempty"`
}

// DurationOption is one entry of the issuance duration menu.
type DurationOption struct {
	Minutes int    `json:"minutes"`
	Label   string `json:"label"`
}

// FormatTime renders timestamps the way all Gatepass responses do.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// FormatTimePtr is FormatTime for optional timestamps; nil renders empty.
func FormatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTime(*t)
}
