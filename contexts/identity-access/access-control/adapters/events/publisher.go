package events

import (
	"context"
	"log/slog"

	"gatekeeper/contexts/identity-access/access-control/ports"
)

// Bus is the minimal publish surface the platform messaging layer provides.
type Bus interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// TopicPolicyChanged carries rule/group/exception mutations between
// Gatekeeper processes.
const TopicPolicyChanged = "access.policy_changed"

// Publisher bridges the policy-changed port onto the platform event bus.
type Publisher struct {
	bus    Bus
	logger *slog.Logger
}

func NewPublisher(bus Bus, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{bus: bus, logger: logger}
}

func (p Publisher) PublishPolicyChanged(ctx context.Context, event ports.PolicyChangedEvent) error {
	if p.bus != nil {
		payload, err := marshalEnvelope(event)
		if err != nil {
			return err
		}
		if err := p.bus.Publish(ctx, TopicPolicyChanged, payload); err != nil {
			return err
		}
	}
	p.logger.Info("policy changed event published",
		"event", "access_policy_changed_published",
		"module", "identity-access/access-control",
		"layer", "adapter",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"partition_key", event.PartitionKey,
	)
	return nil
}
