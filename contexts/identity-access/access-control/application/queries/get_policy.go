package queries

import (
	"context"
	"log/slog"

	application "gatekeeper/contexts/identity-access/access-control/application"
	"gatekeeper/contexts/identity-access/access-control/domain/entities"
	"gatekeeper/contexts/identity-access/access-control/ports"
)

// GetPolicyUseCase returns the full policy document for inspection APIs.
type GetPolicyUseCase struct {
	Repository ports.PolicyRepository
	Logger     *slog.Logger
}

func (u GetPolicyUseCase) Execute(ctx context.Context) (entities.PolicyDocument, error) {
	doc, err := u.Repository.LoadPolicy(ctx)
	if err != nil {
		application.ResolveLogger(u.Logger).Error("policy load failed",
			"event", "access_policy_load_failed",
			"module", "identity-access/access-control",
			"layer", "application",
			"error", err.Error(),
		)
		return entities.PolicyDocument{}, err
	}
	return doc, nil
}
