package commands

import (
	"context"
	"log/slog"
	"strings"

	application "gatekeeper/contexts/identity-access/access-control/application"
	domainerrors "gatekeeper/contexts/identity-access/access-control/domain/errors"
	"gatekeeper/contexts/identity-access/access-control/ports"
)

// AddPermissionCommand contains transport-agnostic input for rule mutation.
type AddPermissionCommand struct {
	Channel string
	Action  string
	Allow   []string
	Deny    []string
}

// AddPermissionResult reports the effective rule after the union.
type AddPermissionResult struct {
	Channel string   `json:"channel"`
	Action  string   `json:"action"`
	Allow   []string `json:"allow"`
	Deny    []string `json:"deny"`
}

// AddPermissionUseCase unions subjects into one (channel, action) rule.
// The operation is additive and tolerant: repeated calls and duplicate
// subjects collapse via set union, and allow/deny overlap is accepted.
type AddPermissionUseCase struct {
	Repository    ports.PolicyRepository
	DecisionCache ports.DecisionCache
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	Logger        *slog.Logger
}

func (u AddPermissionUseCase) Execute(ctx context.Context, cmd AddPermissionCommand) (AddPermissionResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("add permission started",
		"event", "access_add_permission_started",
		"module", "identity-access/access-control",
		"layer", "application",
		"channel", cmd.Channel,
		"action", cmd.Action,
		"allow_count", len(cmd.Allow),
		"deny_count", len(cmd.Deny),
	)

	if strings.TrimSpace(cmd.Channel) == "" {
		return AddPermissionResult{}, domainerrors.ErrInvalidChannel
	}
	if strings.TrimSpace(cmd.Action) == "" {
		return AddPermissionResult{}, domainerrors.ErrInvalidAction
	}

	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return AddPermissionResult{}, err
	}

	rule, err := u.Repository.AddPermission(ctx, ports.AddPermissionInput{
		OutboxID:   outboxID,
		Channel:    cmd.Channel,
		Action:     cmd.Action,
		Allow:      cmd.Allow,
		Deny:       cmd.Deny,
		OccurredAt: resolveNow(u.Clock),
	})
	if err != nil {
		logger.Error("add permission write failed",
			"event", "access_add_permission_write_failed",
			"module", "identity-access/access-control",
			"layer", "application",
			"channel", cmd.Channel,
			"action", cmd.Action,
			"error", err.Error(),
		)
		return AddPermissionResult{}, err
	}

	flushDecisionCache(ctx, u.DecisionCache, logger)

	logger.Info("add permission completed",
		"event", "access_add_permission_completed",
		"module", "identity-access/access-control",
		"layer", "application",
		"channel", rule.Channel,
		"action", rule.Action,
	)
	return AddPermissionResult{
		Channel: rule.Channel,
		Action:  rule.Action,
		Allow:   rule.Allow,
		Deny:    rule.Deny,
	}, nil
}
