package httptransport

import "time"

// CheckAccessRequest is the request body for single-action evaluation.
// Channel defaults to "default" when omitted.
type CheckAccessRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Action    string `json:"action"`
	Channel   string `json:"channel,omitempty"`
}

// CheckAccessResponse describes one access decision. Exempt decisions never
// reach the evaluator; they are short-circuited at this layer.
type CheckAccessResponse struct {
	SessionID string    `json:"session_id"`
	Action    string    `json:"action"`
	Channel   string    `json:"channel"`
	Allowed   bool      `json:"allowed"`
	Reason    string    `json:"reason"`
	Exempt    bool      `json:"exempt"`
	CheckedAt time.Time `json:"checked_at"`
	CacheHit  bool      `json:"cache_hit"`
}

// CheckAccessBatchRequest evaluates several actions for one session.
type CheckAccessBatchRequest struct {
	SessionID string   `json:"session_id,omitempty"`
	Channel   string   `json:"channel,omitempty"`
	Actions   []string `json:"actions"`
}

type CheckAccessBatchResponse struct {
	Results []CheckAccessResponse `json:"results"`
}

type RuleDTO struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
}

type PolicyResponse struct {
	Channels   map[string]map[string]RuleDTO `json:"channels"`
	Groups     map[string][]string           `json:"groups"`
	Exceptions []string                      `json:"exceptions"`
	Enforced   bool                          `json:"enforced"`
}

type AddPermissionRequest struct {
	Channel string   `json:"channel"`
	Action  string   `json:"action"`
	Allow   []string `json:"allow,omitempty"`
	Deny    []string `json:"deny,omitempty"`
}

type AddPermissionResponse struct {
	Channel string   `json:"channel"`
	Action  string   `json:"action"`
	Allow   []string `json:"allow"`
	Deny    []string `json:"deny"`
}

type ReplaceGroupRequest struct {
	Members []string `json:"members"`
}

type ReplaceGroupResponse struct {
	GroupName string   `json:"group_name"`
	Members   []string `json:"members"`
}

type AddExceptionRequest struct {
	Action string `json:"action"`
}

type AddExceptionResponse struct {
	Action     string   `json:"action"`
	Added      bool     `json:"added"`
	Exceptions []string `json:"exceptions"`
}

type EnforcementRequest struct {
	Enforced bool `json:"enforced"`
}

type EnforcementResponse struct {
	Enforced bool `json:"enforced"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
