package commands

import (
	"context"
	"log/slog"
	"strings"

	application "gatekeeper/contexts/identity-access/access-control/application"
	domainerrors "gatekeeper/contexts/identity-access/access-control/domain/errors"
	"gatekeeper/contexts/identity-access/access-control/ports"
)

// AddExceptionCommand registers one action label as evaluation-exempt.
type AddExceptionCommand struct {
	Action string
}

// AddExceptionResult reports whether the label was newly added and the full
// exception set in insertion order.
type AddExceptionResult struct {
	Action     string   `json:"action"`
	Added      bool     `json:"added"`
	Exceptions []string `json:"exceptions"`
}

// AddExceptionUseCase appends to the exception set, idempotently and
// order-preserving.
type AddExceptionUseCase struct {
	Repository    ports.PolicyRepository
	DecisionCache ports.DecisionCache
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	Logger        *slog.Logger
}

func (u AddExceptionUseCase) Execute(ctx context.Context, cmd AddExceptionCommand) (AddExceptionResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if strings.TrimSpace(cmd.Action) == "" {
		return AddExceptionResult{}, domainerrors.ErrInvalidAction
	}

	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return AddExceptionResult{}, err
	}

	result, err := u.Repository.AddException(ctx, ports.AddExceptionInput{
		OutboxID:   outboxID,
		Action:     cmd.Action,
		OccurredAt: resolveNow(u.Clock),
	})
	if err != nil {
		logger.Error("add exception write failed",
			"event", "access_add_exception_write_failed",
			"module", "identity-access/access-control",
			"layer", "application",
			"action", cmd.Action,
			"error", err.Error(),
		)
		return AddExceptionResult{}, err
	}

	flushDecisionCache(ctx, u.DecisionCache, logger)

	logger.Info("add exception completed",
		"event", "access_add_exception_completed",
		"module", "identity-access/access-control",
		"layer", "application",
		"action", result.Action,
		"added", result.Added,
	)
	return AddExceptionResult{
		Action:     result.Action,
		Added:      result.Added,
		Exceptions: result.Exceptions,
	}, nil
}
