package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"gatekeeper/contexts/identity-access/access-control/adapters/memory"
	"gatekeeper/contexts/identity-access/access-control/domain/entities"
	"gatekeeper/contexts/identity-access/access-control/ports"
)

type capturingPublisher struct {
	published []ports.PolicyChangedEvent
	fail      error
}

func (p *capturingPublisher) PublishPolicyChanged(_ context.Context, event ports.PolicyChangedEvent) error {
	if p.fail != nil {
		return p.fail
	}
	p.published = append(p.published, event)
	return nil
}

func seedOutboxRow(t *testing.T, store *memory.Store, outboxID string) {
	t.Helper()
	_, err := store.AddPermission(context.Background(), ports.AddPermissionInput{
		Channel:    entities.ChannelDefault,
		Action:     "pin_message",
		Allow:      []string{"moderators"},
		OutboxID:   outboxID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("seed outbox row failed: %v", err)
	}
}

func TestOutboxRelayPublishesAndDrains(t *testing.T) {
	store := memory.NewStore()
	publisher := &capturingPublisher{}
	seedOutboxRow(t, store, "outbox-1")

	relay := OutboxRelay{Outbox: store, Publisher: publisher}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run failed: %v", err)
	}

	if len(publisher.published) != 1 {
		t.Fatalf("expected one published event, got %d", len(publisher.published))
	}
	event := publisher.published[0]
	if event.EventID != "outbox-1" || event.EventType != "access.policy_changed" {
		t.Fatalf("unexpected event identity: %+v", event)
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 0 {
		t.Fatalf("expected drained outbox, got %d rows", len(pending))
	}
}

func TestOutboxRelayKeepsRowOnPublishFailure(t *testing.T) {
	store := memory.NewStore()
	publisher := &capturingPublisher{fail: errors.New("broker unavailable")}
	seedOutboxRow(t, store, "outbox-1")

	relay := OutboxRelay{Outbox: store, Publisher: publisher}
	if err := relay.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected publish failure to surface")
	}

	pending, err := store.ListPendingOutbox(context.Background(), 10)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("failed publish must keep the row pending, got %d rows", len(pending))
	}
}

func TestOutboxRelayIsIdempotentWhenDrained(t *testing.T) {
	store := memory.NewStore()
	publisher := &capturingPublisher{}

	relay := OutboxRelay{Outbox: store, Publisher: publisher}
	if err := relay.RunOnce(context.Background()); err != nil {
		t.Fatalf("relay run on empty outbox failed: %v", err)
	}
	if len(publisher.published) != 0 {
		t.Fatalf("nothing to publish, got %d events", len(publisher.published))
	}
}
