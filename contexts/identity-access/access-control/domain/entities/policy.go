package entities

// Reserved policy tokens.
const (
	// ChannelDefault is used when a caller does not name a channel.
	ChannelDefault = "default"
	// ActionAny is the wildcard action label, matched only when no entry
	// exists for the specific label.
	ActionAny = "any"
	// SubjectAll matches every session identity.
	SubjectAll = "all"
)

// RecognizedChannels is the fixed allow-list of channel names accepted by the
// integrity audit. Rules may be written for other channels, but the audit
// reports the table unhealthy until the list is extended here.
var RecognizedChannels = map[string]struct{}{
	"default":  {},
	"whatsapp": {},
	"facebook": {},
	"sms":      {},
	"email":    {},
	"web":      {},
}

// Rule pairs the allow and deny subject lists governing one (channel, action)
// entry. A subject is a literal session identity, a group name, or "all".
// Stores own set semantics; both lists are always non-nil for a well-formed
// rule, even when empty.
type Rule struct {
	Allow []string `json:"allow"`
	Deny  []string `json:"deny"`
}

// AccessView is a consistent read of the effective rule for one
// (channel, action) pair plus the membership of every group the rule names.
// Adapters build it under a single reader lock or transaction so evaluation
// never observes a half-applied mutation.
type AccessView struct {
	ChannelFound  bool
	RuleFound     bool
	MatchedAction string
	Rule          Rule
	Groups        map[string][]string
}

// PolicyDocument is a full point-in-time copy of evaluator state, used by the
// policy listing endpoint and the integrity audit.
type PolicyDocument struct {
	Channels   map[string]map[string]Rule `json:"channels"`
	Groups     map[string][]string        `json:"groups"`
	Exceptions []string                   `json:"exceptions"`
	Enforced   bool                       `json:"enforced"`
}
