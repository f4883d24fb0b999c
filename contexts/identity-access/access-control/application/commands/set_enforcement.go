package commands

import (
	"context"
	"log/slog"

	application "gatekeeper/contexts/identity-access/access-control/application"
	"gatekeeper/contexts/identity-access/access-control/ports"
)

// SetEnforcementCommand toggles the evaluator on or off. Disabled enforcement
// is a deliberate operational escape hatch: every check passes until it is
// re-enabled.
type SetEnforcementCommand struct {
	Enforced bool
}

type SetEnforcementResult struct {
	Enforced bool `json:"enforced"`
}

type SetEnforcementUseCase struct {
	Enforcement   ports.EnforcementSwitch
	DecisionCache ports.DecisionCache
	Logger        *slog.Logger
}

func (u SetEnforcementUseCase) Execute(ctx context.Context, cmd SetEnforcementCommand) (SetEnforcementResult, error) {
	logger := application.ResolveLogger(u.Logger)

	if err := u.Enforcement.SetEnforced(ctx, cmd.Enforced); err != nil {
		logger.Error("enforcement toggle failed",
			"event", "access_enforcement_toggle_failed",
			"module", "identity-access/access-control",
			"layer", "application",
			"enforced", cmd.Enforced,
			"error", err.Error(),
		)
		return SetEnforcementResult{}, err
	}

	flushDecisionCache(ctx, u.DecisionCache, logger)

	logger.Info("enforcement toggled",
		"event", "access_enforcement_toggled",
		"module", "identity-access/access-control",
		"layer", "application",
		"enforced", cmd.Enforced,
	)
	return SetEnforcementResult{Enforced: cmd.Enforced}, nil
}
