package workers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"gatekeeper/contexts/identity-access/access-control/adapters/memory"
	"gatekeeper/contexts/identity-access/access-control/ports"
)

func policyChangedEvent(t *testing.T, eventID string) ports.PolicyChangedEvent {
	t.Helper()
	data, err := json.Marshal(map[string]string{"kind": "permission_added", "channel": "default"})
	if err != nil {
		t.Fatalf("marshal payload failed: %v", err)
	}
	return ports.PolicyChangedEvent{
		EventID:       eventID,
		EventType:     "access.policy_changed",
		OccurredAt:    time.Now().UTC(),
		SourceService: "gatekeeper",
		SchemaVersion: 1,
		Data:          data,
	}
}

func warmCache(t *testing.T, store *memory.Store, key string) {
	t.Helper()
	err := store.Set(context.Background(), key, ports.AccessDecisionRecord{Allowed: true}, time.Now().UTC().Add(time.Hour))
	if err != nil {
		t.Fatalf("cache set failed: %v", err)
	}
}

func cacheHolds(t *testing.T, store *memory.Store, key string) bool {
	t.Helper()
	_, hit, err := store.Get(context.Background(), key, time.Now().UTC())
	if err != nil {
		t.Fatalf("cache get failed: %v", err)
	}
	return hit
}

func TestPolicyChangedConsumerFlushesCache(t *testing.T) {
	store := memory.NewStore()
	warmCache(t, store, "session-1|default|send_message")

	consumer := PolicyChangedConsumer{Dedup: store, DecisionCache: store}
	if err := consumer.Handle(context.Background(), policyChangedEvent(t, "event-1")); err != nil {
		t.Fatalf("handle failed: %v", err)
	}

	if cacheHolds(t, store, "session-1|default|send_message") {
		t.Fatalf("expected cache flush after policy change event")
	}
}

func TestPolicyChangedConsumerSkipsReplayedEvents(t *testing.T) {
	store := memory.NewStore()
	consumer := PolicyChangedConsumer{Dedup: store, DecisionCache: store}
	event := policyChangedEvent(t, "event-1")

	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("first handle failed: %v", err)
	}

	// Re-warm the cache; a replay of the same event must not flush again.
	warmCache(t, store, "session-1|default|send_message")
	if err := consumer.Handle(context.Background(), event); err != nil {
		t.Fatalf("replay handle failed: %v", err)
	}
	if !cacheHolds(t, store, "session-1|default|send_message") {
		t.Fatalf("replayed event must be a no-op")
	}
}

func TestPolicyChangedConsumerRejectsPayloadMismatch(t *testing.T) {
	store := memory.NewStore()
	consumer := PolicyChangedConsumer{Dedup: store, DecisionCache: store}

	first := policyChangedEvent(t, "event-1")
	if err := consumer.Handle(context.Background(), first); err != nil {
		t.Fatalf("first handle failed: %v", err)
	}

	tampered := first
	tampered.Data = json.RawMessage(`{"kind":"group_replaced"}`)
	if err := consumer.Handle(context.Background(), tampered); err == nil {
		t.Fatalf("expected payload hash mismatch error")
	}
}
