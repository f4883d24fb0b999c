package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"gatekeeper/contexts/identity-access/access-control/ports"
)

// PolicyChangedConsumer reacts to policy-changed events from other instances
// by flushing the local decision cache. Processing is deduplicated per event
// so replays are no-ops.
type PolicyChangedConsumer struct {
	Dedup         ports.EventDedupStore
	DecisionCache ports.DecisionCache
	Clock         ports.Clock
	DedupTTL      time.Duration
}

func (c PolicyChangedConsumer) Handle(ctx context.Context, event ports.PolicyChangedEvent) error {
	now := time.Now().UTC()
	if c.Clock != nil {
		now = c.Clock.Now().UTC()
	}

	alreadyProcessed, err := c.Dedup.ReserveEvent(
		ctx,
		event.EventID,
		hashPayload(event.Data),
		now.Add(c.dedupTTL()),
	)
	if err != nil || alreadyProcessed {
		return err
	}
	return c.DecisionCache.Flush(ctx)
}

func (c PolicyChangedConsumer) dedupTTL() time.Duration {
	if c.DedupTTL <= 0 {
		return 7 * 24 * time.Hour
	}
	return c.DedupTTL
}

func hashPayload(payload []byte) string {
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:])
}
