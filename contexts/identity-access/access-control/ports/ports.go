package ports

import (
	"context"
	"time"

	"gatekeeper/contexts/identity-access/access-control/domain/entities"
	contractsv1 "gatekeeper/contracts/gen/events/v1"
)

// Clock abstracts current time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// IDGenerator abstracts UUID generation for outbox rows.
type IDGenerator interface {
	NewID(ctx context.Context) (string, error)
}

// DecisionCache stores evaluated access decisions with TTL semantics.
// Every policy mutation flushes it wholesale: group membership is resolved at
// evaluation time, so any mutation can change any cached decision.
type DecisionCache interface {
	Get(ctx context.Context, key string, now time.Time) (AccessDecisionRecord, bool, error)
	Set(ctx context.Context, key string, record AccessDecisionRecord, expiresAt time.Time) error
	Flush(ctx context.Context) error
}

// AccessDecisionRecord is the cacheable subset of a decision.
type AccessDecisionRecord struct {
	Allowed bool
	Reason  string
}

// EnforcementSwitch is the externally toggled flag consulted at the top of
// every evaluation. Disabled enforcement means allow-all.
type EnforcementSwitch interface {
	Enforced(ctx context.Context) (bool, error)
	SetEnforced(ctx context.Context, enabled bool) error
}

// AddPermissionInput is persisted atomically with its outbox record.
type AddPermissionInput struct {
	OutboxID   string
	Channel    string
	Action     string
	Allow      []string
	Deny       []string
	OccurredAt time.Time
}

// ReplaceGroupInput replaces a group's membership wholesale.
type ReplaceGroupInput struct {
	OutboxID   string
	GroupName  string
	Members    []string
	OccurredAt time.Time
}

// AddExceptionInput appends one action label to the exception set.
type AddExceptionInput struct {
	OutboxID   string
	Action     string
	OccurredAt time.Time
}

// PolicyRepository is the read/write boundary for evaluator state.
//
// Reads return consistent snapshots; writes serialize behind the adapter's
// writer lock or transaction. AddPermission unions into the existing rule and
// ReplaceGroup overwrites membership; the asymmetry is deliberate.
type PolicyRepository interface {
	ResolveAccessView(ctx context.Context, channel string, action string) (entities.AccessView, error)
	LoadPolicy(ctx context.Context) (entities.PolicyDocument, error)
	ListExceptions(ctx context.Context) ([]string, error)
	AddPermission(ctx context.Context, input AddPermissionInput) (RuleResult, error)
	ReplaceGroup(ctx context.Context, input ReplaceGroupInput) (GroupResult, error)
	AddException(ctx context.Context, input AddExceptionInput) (ExceptionResult, error)
}

// RuleResult reports the effective rule after a permission mutation.
type RuleResult struct {
	Channel string
	Action  string
	Allow   []string
	Deny    []string
}

// GroupResult reports stored membership after a group mutation.
type GroupResult struct {
	GroupName string
	Members   []string
}

// ExceptionResult reports the exception set after an exception mutation.
type ExceptionResult struct {
	Action     string
	Added      bool
	Exceptions []string
}

// OutboxMessage represents a pending relay message.
type OutboxMessage struct {
	OutboxID  string
	EventType string
	Payload   []byte
	CreatedAt time.Time
}

// OutboxRepository supports worker relay polling and acknowledgement.
type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

// PolicyChangedEvent reuses the canonical cross-runtime envelope contract.
type PolicyChangedEvent = contractsv1.Envelope

// PolicyChangedPublisher emits policy change events to the event bus adapter.
type PolicyChangedPublisher interface {
	PublishPolicyChanged(ctx context.Context, event PolicyChangedEvent) error
}

// EventDedupStore enforces idempotent processing for consumed events.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}
