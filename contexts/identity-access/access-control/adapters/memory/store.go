package memory

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"gatekeeper/contexts/identity-access/access-control/domain/entities"
	"gatekeeper/contexts/identity-access/access-control/ports"

	"github.com/google/uuid"
)

// Store is the in-memory policy adapter implementing repository, cache,
// enforcement, outbox, and dedup ports. It is the canonical single-process
// evaluator state: evaluation reads run fully parallel under the reader lock
// while mutations serialize behind the writer lock, so a reader never sees a
// half-applied union or group overwrite.
type Store struct {
	mu sync.RWMutex

	channels   map[string]map[string]rule
	groups     map[string]map[string]struct{}
	exceptions []string
	enforced   bool

	cache  map[string]cacheEntry
	outbox map[string]outboxRow
	dedup  map[string]dedupEntry
}

type rule struct {
	allow map[string]struct{}
	deny  map[string]struct{}
}

type cacheEntry struct {
	Record    ports.AccessDecisionRecord
	ExpiresAt time.Time
}

type outboxRow struct {
	ports.OutboxMessage
	PublishedAt *time.Time
}

type dedupEntry struct {
	PayloadHash string
	ExpiresAt   time.Time
}

// NewStore builds an in-memory adapter seeded with the default configuration:
// the "default" and "whatsapp" channels each grant universal allow under the
// "any" wildcard, and enforcement is enabled.
func NewStore() *Store {
	s := &Store{
		channels: make(map[string]map[string]rule),
		groups:   make(map[string]map[string]struct{}),
		enforced: true,
		cache:    make(map[string]cacheEntry),
		outbox:   make(map[string]outboxRow),
		dedup:    make(map[string]dedupEntry),
	}
	for _, channel := range []string{entities.ChannelDefault, "whatsapp"} {
		entry := s.ensureRule(channel, entities.ActionAny)
		entry.allow[entities.SubjectAll] = struct{}{}
	}
	return s
}

// ResolveAccessView returns the effective rule for (channel, action) plus the
// membership of every group the rule names, copied under one reader lock.
// The "any" wildcard is consulted only when the specific label is absent.
func (s *Store) ResolveAccessView(_ context.Context, channel string, action string) (entities.AccessView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	view := entities.AccessView{}
	actions, ok := s.channels[channel]
	if !ok {
		return view, nil
	}
	view.ChannelFound = true

	matched := action
	entry, ok := actions[action]
	if !ok {
		matched = entities.ActionAny
		entry, ok = actions[entities.ActionAny]
	}
	if !ok {
		return view, nil
	}

	view.RuleFound = true
	view.MatchedAction = matched
	view.Rule = entities.Rule{
		Allow: sortedSubjects(entry.allow),
		Deny:  sortedSubjects(entry.deny),
	}
	view.Groups = s.referencedGroups(view.Rule)
	return view, nil
}

// LoadPolicy deep-copies the full evaluator state.
func (s *Store) LoadPolicy(_ context.Context) (entities.PolicyDocument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc := entities.PolicyDocument{
		Channels:   make(map[string]map[string]entities.Rule, len(s.channels)),
		Groups:     make(map[string][]string, len(s.groups)),
		Exceptions: append([]string(nil), s.exceptions...),
		Enforced:   s.enforced,
	}
	for channel, actions := range s.channels {
		copied := make(map[string]entities.Rule, len(actions))
		for action, entry := range actions {
			copied[action] = entities.Rule{
				Allow: sortedSubjects(entry.allow),
				Deny:  sortedSubjects(entry.deny),
			}
		}
		doc.Channels[channel] = copied
	}
	for name, members := range s.groups {
		doc.Groups[name] = sortedSubjects(members)
	}
	return doc, nil
}

func (s *Store) ListExceptions(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.exceptions...), nil
}

// AddPermission ensures the (channel, action) entry exists and unions the
// given subjects into its allow/deny sets. Repeated calls accumulate;
// conflicting subjects in both sets are resolved at evaluation time by deny
// precedence, never rejected here.
func (s *Store) AddPermission(_ context.Context, input ports.AddPermissionInput) (ports.RuleResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := s.ensureRule(input.Channel, input.Action)
	for _, subject := range input.Allow {
		entry.allow[subject] = struct{}{}
	}
	for _, subject := range input.Deny {
		entry.deny[subject] = struct{}{}
	}

	if err := s.appendPolicyChanged(input.OutboxID, input.OccurredAt, policyChangedPayload{
		Kind:    "permission_added",
		Channel: input.Channel,
		Action:  input.Action,
	}); err != nil {
		return ports.RuleResult{}, err
	}
	return ports.RuleResult{
		Channel: input.Channel,
		Action:  input.Action,
		Allow:   sortedSubjects(entry.allow),
		Deny:    sortedSubjects(entry.deny),
	}, nil
}

// ReplaceGroup overwrites the member set for the named group. Unlike
// AddPermission this does not merge with earlier membership.
func (s *Store) ReplaceGroup(_ context.Context, input ports.ReplaceGroupInput) (ports.GroupResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	members := make(map[string]struct{}, len(input.Members))
	for _, member := range input.Members {
		members[member] = struct{}{}
	}
	s.groups[input.GroupName] = members

	if err := s.appendPolicyChanged(input.OutboxID, input.OccurredAt, policyChangedPayload{
		Kind:  "group_replaced",
		Group: input.GroupName,
	}); err != nil {
		return ports.GroupResult{}, err
	}
	return ports.GroupResult{
		GroupName: input.GroupName,
		Members:   sortedSubjects(members),
	}, nil
}

// AddException appends the action label once, preserving insertion order.
func (s *Store) AddException(_ context.Context, input ports.AddExceptionInput) (ports.ExceptionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := true
	for _, existing := range s.exceptions {
		if existing == input.Action {
			added = false
			break
		}
	}
	if added {
		s.exceptions = append(s.exceptions, input.Action)
		if err := s.appendPolicyChanged(input.OutboxID, input.OccurredAt, policyChangedPayload{
			Kind:   "exception_added",
			Action: input.Action,
		}); err != nil {
			return ports.ExceptionResult{}, err
		}
	}
	return ports.ExceptionResult{
		Action:     input.Action,
		Added:      added,
		Exceptions: append([]string(nil), s.exceptions...),
	}, nil
}

func (s *Store) Enforced(_ context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.enforced, nil
}

func (s *Store) SetEnforced(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enforced = enabled
	return nil
}

func (s *Store) Get(_ context.Context, key string, now time.Time) (ports.AccessDecisionRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.cache[key]
	if !ok {
		return ports.AccessDecisionRecord{}, false, nil
	}
	if !entry.ExpiresAt.After(now) {
		delete(s.cache, key)
		return ports.AccessDecisionRecord{}, false, nil
	}
	return entry.Record, true, nil
}

func (s *Store) Set(_ context.Context, key string, record ports.AccessDecisionRecord, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache[key] = cacheEntry{
		Record:    record,
		ExpiresAt: expiresAt.UTC(),
	}
	return nil
}

func (s *Store) Flush(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = make(map[string]cacheEntry)
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 100
	}
	rows := make([]ports.OutboxMessage, 0, len(s.outbox))
	for _, row := range s.outbox {
		if row.PublishedAt == nil {
			rows = append(rows, row.OutboxMessage)
		}
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, publishedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.outbox[outboxID]
	if !ok {
		return errors.New("outbox record not found")
	}
	value := publishedAt.UTC()
	row.PublishedAt = &value
	s.outbox[outboxID] = row
	return nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.dedup[eventID]
	if !ok {
		s.dedup[eventID] = dedupEntry{
			PayloadHash: payloadHash,
			ExpiresAt:   expiresAt.UTC(),
		}
		return false, nil
	}
	if existing.PayloadHash != payloadHash {
		return false, errors.New("event payload hash mismatch")
	}
	return true, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

func (s *Store) NewID(_ context.Context) (string, error) {
	return uuid.NewString(), nil
}

type policyChangedPayload struct {
	Kind    string `json:"kind"`
	Channel string `json:"channel,omitempty"`
	Action  string `json:"action,omitempty"`
	Group   string `json:"group,omitempty"`
}

// appendPolicyChanged stores a fully formed envelope so the relay can publish
// rows without reassembling them. Callers hold the writer lock.
func (s *Store) appendPolicyChanged(outboxID string, occurredAt time.Time, payload policyChangedPayload) error {
	if outboxID == "" {
		return nil
	}
	if _, exists := s.outbox[outboxID]; exists {
		return errors.New("outbox id already used")
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	envelope, err := json.Marshal(ports.PolicyChangedEvent{
		EventID:       outboxID,
		EventType:     "access.policy_changed",
		OccurredAt:    occurredAt.UTC(),
		SourceService: "gatekeeper",
		SchemaVersion: 1,
		PartitionKey:  payload.Kind,
		Data:          data,
	})
	if err != nil {
		return err
	}
	s.outbox[outboxID] = outboxRow{
		OutboxMessage: ports.OutboxMessage{
			OutboxID:  outboxID,
			EventType: "access.policy_changed",
			Payload:   envelope,
			CreatedAt: occurredAt.UTC(),
		},
	}
	return nil
}

// ensureRule creates empty rule sets on first touch. Callers hold the writer
// lock (or run before the store is shared).
func (s *Store) ensureRule(channel string, action string) rule {
	actions, ok := s.channels[channel]
	if !ok {
		actions = make(map[string]rule)
		s.channels[channel] = actions
	}
	entry, ok := actions[action]
	if !ok {
		entry = rule{
			allow: make(map[string]struct{}),
			deny:  make(map[string]struct{}),
		}
		actions[action] = entry
	}
	return entry
}

func (s *Store) referencedGroups(r entities.Rule) map[string][]string {
	groups := make(map[string][]string)
	for _, subject := range append(append([]string(nil), r.Allow...), r.Deny...) {
		if _, copied := groups[subject]; copied {
			continue
		}
		if members, ok := s.groups[subject]; ok {
			groups[subject] = sortedSubjects(members)
		}
	}
	return groups
}

func sortedSubjects(set map[string]struct{}) []string {
	items := make([]string, 0, len(set))
	for item := range set {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}
