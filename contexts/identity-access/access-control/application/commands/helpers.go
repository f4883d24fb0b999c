package commands

import (
	"context"
	"log/slog"
	"time"

	"gatekeeper/contexts/identity-access/access-control/ports"
)

func resolveNow(clock ports.Clock) time.Time {
	if clock != nil {
		return clock.Now().UTC()
	}
	return time.Now().UTC()
}

// flushDecisionCache drops every cached decision after a policy mutation.
// Membership is resolved at evaluation time, so a targeted invalidation key
// does not exist; a full flush is the only safe option.
func flushDecisionCache(ctx context.Context, cache ports.DecisionCache, logger *slog.Logger) {
	if cache == nil {
		return
	}
	if err := cache.Flush(ctx); err != nil {
		logger.Warn("decision cache flush failed after policy mutation",
			"event", "access_cache_flush_failed",
			"module", "identity-access/access-control",
			"layer", "application",
			"error", err.Error(),
		)
	}
}
