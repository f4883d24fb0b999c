package queries

import (
	"context"
	"log/slog"
	"strings"
	"time"

	application "gatekeeper/contexts/identity-access/access-control/application"
	"gatekeeper/contexts/identity-access/access-control/domain/entities"
	domainerrors "gatekeeper/contexts/identity-access/access-control/domain/errors"
	"gatekeeper/contexts/identity-access/access-control/domain/services"
	"gatekeeper/contexts/identity-access/access-control/ports"
)

// CheckAccessQuery is the request model for single-action evaluation.
// Channel defaults to "default" when left blank.
type CheckAccessQuery struct {
	SessionID string
	Action    string
	Channel   string
}

// CheckAccessUseCase orchestrates cache-first access evaluation.
type CheckAccessUseCase struct {
	Repository       ports.PolicyRepository
	Enforcement      ports.EnforcementSwitch
	DecisionCache    ports.DecisionCache
	Clock            ports.Clock
	DecisionCacheTTL time.Duration
	Logger           *slog.Logger
}

// Execute evaluates one action and returns deny-by-default on lookup failures.
// When enforcement is disabled the decision is an unconditional allow.
func (u CheckAccessUseCase) Execute(ctx context.Context, query CheckAccessQuery) (entities.AccessDecision, error) {
	if strings.TrimSpace(query.SessionID) == "" {
		return entities.AccessDecision{}, domainerrors.ErrInvalidSessionID
	}
	if strings.TrimSpace(query.Action) == "" {
		return entities.AccessDecision{}, domainerrors.ErrInvalidAction
	}
	channel := query.Channel
	if strings.TrimSpace(channel) == "" {
		channel = entities.ChannelDefault
	}

	logger := application.ResolveLogger(u.Logger)
	now := u.now()
	logger.Debug("check access started",
		"event", "access_check_started",
		"module", "identity-access/access-control",
		"layer", "application",
		"session_id", query.SessionID,
		"action", query.Action,
		"channel", channel,
	)

	decision := entities.AccessDecision{
		SessionID: query.SessionID,
		Action:    query.Action,
		Channel:   channel,
		CheckedAt: now,
	}

	enforced, err := u.Enforcement.Enforced(ctx)
	if err != nil {
		logger.Error("enforcement lookup failed, deny by default",
			"event", "access_enforcement_lookup_failed",
			"module", "identity-access/access-control",
			"layer", "application",
			"session_id", query.SessionID,
			"action", query.Action,
			"error", err.Error(),
		)
		decision.Allowed = false
		decision.Reason = entities.ReasonDenyByDefault
		return decision, nil
	}
	if !enforced {
		decision.Allowed = true
		decision.Reason = entities.ReasonEnforcementDisabled
		return decision, nil
	}

	cacheKey := query.SessionID + "|" + channel + "|" + query.Action
	if u.DecisionCache != nil {
		record, hit, err := u.DecisionCache.Get(ctx, cacheKey, now)
		if err == nil && hit {
			decision.Allowed = record.Allowed
			decision.Reason = record.Reason
			decision.CacheHit = true
			return decision, nil
		}
	}

	view, err := u.Repository.ResolveAccessView(ctx, channel, query.Action)
	if err != nil {
		logger.Error("policy lookup failed, deny by default",
			"event", "access_policy_lookup_failed",
			"module", "identity-access/access-control",
			"layer", "application",
			"session_id", query.SessionID,
			"action", query.Action,
			"channel", channel,
			"error", err.Error(),
		)
		decision.Allowed = false
		decision.Reason = entities.ReasonDenyByDefault
		return decision, nil
	}

	allowed, reason := services.Decide(view, query.SessionID)
	decision.Allowed = allowed
	decision.Reason = reason
	if allowed {
		logger.Debug("check access allowed",
			"event", "access_check_allowed",
			"module", "identity-access/access-control",
			"layer", "application",
			"session_id", query.SessionID,
			"action", query.Action,
			"channel", channel,
			"matched_action", view.MatchedAction,
		)
	} else {
		logger.Warn("check access denied",
			"event", "access_check_denied",
			"module", "identity-access/access-control",
			"layer", "application",
			"session_id", query.SessionID,
			"action", query.Action,
			"channel", channel,
			"reason", reason,
		)
	}

	if u.DecisionCache != nil {
		_ = u.DecisionCache.Set(ctx, cacheKey, ports.AccessDecisionRecord{
			Allowed: allowed,
			Reason:  reason,
		}, now.Add(u.cacheTTL()))
	}
	return decision, nil
}

func (u CheckAccessUseCase) cacheTTL() time.Duration {
	if u.DecisionCacheTTL <= 0 {
		return 5 * time.Minute
	}
	return u.DecisionCacheTTL
}

func (u CheckAccessUseCase) now() time.Time {
	if u.Clock != nil {
		return u.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
