package postgresadapter

import (
	"encoding/json"
	"time"

	"gatekeeper/contexts/identity-access/access-control/ports"
)

type policyChangedPayload struct {
	Kind    string `json:"kind"`
	Channel string `json:"channel,omitempty"`
	Action  string `json:"action,omitempty"`
	Group   string `json:"group,omitempty"`
}

// policyChangedEnvelope pre-marshals the full envelope so the relay publishes
// outbox rows verbatim.
func policyChangedEnvelope(outboxID string, occurredAt time.Time, payload policyChangedPayload) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
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
		return nil
	}
	return envelope
}
