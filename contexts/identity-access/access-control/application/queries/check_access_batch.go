package queries

import (
	"context"
	"log/slog"

	application "gatekeeper/contexts/identity-access/access-control/application"
	"gatekeeper/contexts/identity-access/access-control/domain/entities"
	domainerrors "gatekeeper/contexts/identity-access/access-control/domain/errors"
)

// CheckAccessBatchQuery evaluates several actions for one session on one
// channel in a single call.
type CheckAccessBatchQuery struct {
	SessionID string
	Channel   string
	Actions   []string
}

type CheckAccessBatchUseCase struct {
	CheckAccess CheckAccessUseCase
	Logger      *slog.Logger
}

func (u CheckAccessBatchUseCase) Execute(ctx context.Context, query CheckAccessBatchQuery) ([]entities.AccessDecision, error) {
	if len(query.Actions) == 0 {
		return nil, domainerrors.ErrInvalidAction
	}

	logger := application.ResolveLogger(u.Logger)
	logger.Debug("check access batch started",
		"event", "access_check_batch_started",
		"module", "identity-access/access-control",
		"layer", "application",
		"session_id", query.SessionID,
		"action_count", len(query.Actions),
	)

	decisions := make([]entities.AccessDecision, 0, len(query.Actions))
	for _, action := range query.Actions {
		decision, err := u.CheckAccess.Execute(ctx, CheckAccessQuery{
			SessionID: query.SessionID,
			Action:    action,
			Channel:   query.Channel,
		})
		if err != nil {
			return nil, err
		}
		decisions = append(decisions, decision)
	}
	return decisions, nil
}
