package entities

import "time"

// Decision reason codes, stable strings used in API responses and logs.
const (
	ReasonEnforcementDisabled = "enforcement_disabled"
	ReasonExemptAction        = "exempt_action"
	ReasonUnknownChannel      = "unknown_channel"
	ReasonNoMatchingRule      = "no_matching_rule"
	ReasonDeniedByRule        = "denied_by_rule"
	ReasonAllowedByRule       = "allowed_by_rule"
	ReasonDefaultDeny         = "default_deny"
	// ReasonDenyByDefault marks decisions produced when policy state could
	// not be read at all. Lookup failures never become allows.
	ReasonDenyByDefault = "deny_by_default"
)

// AccessDecision is returned by access check APIs.
type AccessDecision struct {
	SessionID string    `json:"session_id"`
	Action    string    `json:"action"`
	Channel   string    `json:"channel"`
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason"`
	CheckedAt time.Time `json:"checked_at"`
	CacheHit  bool      `json:"cache_hit"`
}
