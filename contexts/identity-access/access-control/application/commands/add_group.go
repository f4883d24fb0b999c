package commands

import (
	"context"
	"log/slog"
	"strings"

	application "gatekeeper/contexts/identity-access/access-control/application"
	domainerrors "gatekeeper/contexts/identity-access/access-control/domain/errors"
	"gatekeeper/contexts/identity-access/access-control/ports"
)

// AddGroupCommand replaces the membership of one group.
type AddGroupCommand struct {
	GroupName string
	Members   []string
}

// AddGroupResult reports the stored membership after the overwrite.
type AddGroupResult struct {
	GroupName string   `json:"group_name"`
	Members   []string `json:"members"`
}

// AddGroupUseCase overwrites group membership wholesale. Calling twice with
// the same name replaces the earlier member set instead of merging it; this
// asymmetry with AddPermission's union semantics is intentional and must not
// be unified without owner signoff.
type AddGroupUseCase struct {
	Repository    ports.PolicyRepository
	DecisionCache ports.DecisionCache
	Clock         ports.Clock
	IDGenerator   ports.IDGenerator
	Logger        *slog.Logger
}

func (u AddGroupUseCase) Execute(ctx context.Context, cmd AddGroupCommand) (AddGroupResult, error) {
	logger := application.ResolveLogger(u.Logger)
	logger.Info("add group started",
		"event", "access_add_group_started",
		"module", "identity-access/access-control",
		"layer", "application",
		"group_name", cmd.GroupName,
		"member_count", len(cmd.Members),
	)

	if strings.TrimSpace(cmd.GroupName) == "" {
		return AddGroupResult{}, domainerrors.ErrInvalidGroupName
	}

	outboxID, err := u.IDGenerator.NewID(ctx)
	if err != nil {
		return AddGroupResult{}, err
	}

	group, err := u.Repository.ReplaceGroup(ctx, ports.ReplaceGroupInput{
		OutboxID:   outboxID,
		GroupName:  cmd.GroupName,
		Members:    cmd.Members,
		OccurredAt: resolveNow(u.Clock),
	})
	if err != nil {
		logger.Error("add group write failed",
			"event", "access_add_group_write_failed",
			"module", "identity-access/access-control",
			"layer", "application",
			"group_name", cmd.GroupName,
			"error", err.Error(),
		)
		return AddGroupResult{}, err
	}

	flushDecisionCache(ctx, u.DecisionCache, logger)

	logger.Info("add group completed",
		"event", "access_add_group_completed",
		"module", "identity-access/access-control",
		"layer", "application",
		"group_name", group.GroupName,
		"member_count", len(group.Members),
	)
	return AddGroupResult{
		GroupName: group.GroupName,
		Members:   group.Members,
	}, nil
}
