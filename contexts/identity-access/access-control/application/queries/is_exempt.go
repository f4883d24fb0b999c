package queries

import (
	"context"
	"log/slog"
	"strings"

	application "gatekeeper/contexts/identity-access/access-control/application"
	domainerrors "gatekeeper/contexts/identity-access/access-control/domain/errors"
	"gatekeeper/contexts/identity-access/access-control/ports"
)

// IsExemptUseCase answers whether an action label is on the exception set.
// Exceptions bypass evaluation entirely; enforcing the bypass is the caller's
// responsibility, which is why this lives beside the evaluator rather than
// inside it.
type IsExemptUseCase struct {
	Repository ports.PolicyRepository
	Logger     *slog.Logger
}

func (u IsExemptUseCase) Execute(ctx context.Context, action string) (bool, error) {
	if strings.TrimSpace(action) == "" {
		return false, domainerrors.ErrInvalidAction
	}

	exceptions, err := u.Repository.ListExceptions(ctx)
	if err != nil {
		application.ResolveLogger(u.Logger).Error("exception lookup failed",
			"event", "access_exception_lookup_failed",
			"module", "identity-access/access-control",
			"layer", "application",
			"action", action,
			"error", err.Error(),
		)
		return false, err
	}
	for _, exempt := range exceptions {
		if exempt == action {
			return true, nil
		}
	}
	return false, nil
}
