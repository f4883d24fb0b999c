package queries

import (
	"context"
	"log/slog"

	application "gatekeeper/contexts/identity-access/access-control/application"
	"gatekeeper/contexts/identity-access/access-control/domain/services"
	"gatekeeper/contexts/identity-access/access-control/ports"
)

// AuditPolicyUseCase runs the read-only rule-table integrity check used by
// the readiness endpoint and startup self-diagnostics. It reports pass/fail
// only, never a list of violations and never an error.
type AuditPolicyUseCase struct {
	Repository ports.PolicyRepository
	Logger     *slog.Logger
}

func (u AuditPolicyUseCase) Execute(ctx context.Context) bool {
	logger := application.ResolveLogger(u.Logger)

	doc, err := u.Repository.LoadPolicy(ctx)
	if err != nil {
		logger.Error("policy audit load failed",
			"event", "access_audit_load_failed",
			"module", "identity-access/access-control",
			"layer", "application",
			"error", err.Error(),
		)
		return false
	}

	ok := services.AuditPolicy(doc)
	if !ok {
		logger.Warn("policy audit failed",
			"event", "access_audit_failed",
			"module", "identity-access/access-control",
			"layer", "application",
			"channel_count", len(doc.Channels),
		)
	}
	return ok
}
