package httpadapter

import (
	"context"
	"log/slog"
	"time"

	application "gatekeeper/contexts/identity-access/access-control/application"
	"gatekeeper/contexts/identity-access/access-control/application/commands"
	"gatekeeper/contexts/identity-access/access-control/application/queries"
	"gatekeeper/contexts/identity-access/access-control/domain/entities"
	httptransport "gatekeeper/contexts/identity-access/access-control/transport/http"
)

// Handler maps HTTP DTOs to application commands/queries. It owns the
// exception bypass: exempt actions are answered here and never reach the
// decision procedure.
type Handler struct {
	CheckAccess    queries.CheckAccessUseCase
	CheckBatch     queries.CheckAccessBatchUseCase
	IsExempt       queries.IsExemptUseCase
	GetPolicy      queries.GetPolicyUseCase
	AuditPolicy    queries.AuditPolicyUseCase
	AddPermission  commands.AddPermissionUseCase
	AddGroup       commands.AddGroupUseCase
	AddException   commands.AddExceptionUseCase
	SetEnforcement commands.SetEnforcementUseCase
	Logger         *slog.Logger
}

// CheckAccessHandler evaluates one action for one session.
func (h Handler) CheckAccessHandler(
	ctx context.Context,
	sessionID string,
	request httptransport.CheckAccessRequest,
) (httptransport.CheckAccessResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Debug("http access check received",
		"event", "access_http_check_received",
		"module", "identity-access/access-control",
		"layer", "transport",
		"session_id", sessionID,
		"action", request.Action,
		"channel", request.Channel,
	)

	exempt, err := h.IsExempt.Execute(ctx, request.Action)
	if err != nil {
		return httptransport.CheckAccessResponse{}, err
	}
	if exempt {
		return h.exemptResponse(sessionID, request), nil
	}

	decision, err := h.CheckAccess.Execute(ctx, queries.CheckAccessQuery{
		SessionID: sessionID,
		Action:    request.Action,
		Channel:   request.Channel,
	})
	if err != nil {
		logger.Error("http access check failed",
			"event", "access_http_check_failed",
			"module", "identity-access/access-control",
			"layer", "transport",
			"session_id", sessionID,
			"action", request.Action,
			"error", err.Error(),
		)
		return httptransport.CheckAccessResponse{}, err
	}
	return decisionResponse(decision), nil
}

// CheckBatchHandler evaluates multiple actions in a single request, applying
// the exception bypass per action.
func (h Handler) CheckBatchHandler(
	ctx context.Context,
	sessionID string,
	request httptransport.CheckAccessBatchRequest,
) (httptransport.CheckAccessBatchResponse, error) {
	logger := application.ResolveLogger(h.Logger)
	logger.Debug("http access check batch received",
		"event", "access_http_check_batch_received",
		"module", "identity-access/access-control",
		"layer", "transport",
		"session_id", sessionID,
		"action_count", len(request.Actions),
	)

	items := make([]httptransport.CheckAccessResponse, 0, len(request.Actions))
	remaining := make([]string, 0, len(request.Actions))
	for _, action := range request.Actions {
		exempt, err := h.IsExempt.Execute(ctx, action)
		if err != nil {
			return httptransport.CheckAccessBatchResponse{}, err
		}
		if exempt {
			items = append(items, h.exemptResponse(sessionID, httptransport.CheckAccessRequest{
				Action:  action,
				Channel: request.Channel,
			}))
			continue
		}
		remaining = append(remaining, action)
	}

	if len(remaining) > 0 {
		decisions, err := h.CheckBatch.Execute(ctx, queries.CheckAccessBatchQuery{
			SessionID: sessionID,
			Channel:   request.Channel,
			Actions:   remaining,
		})
		if err != nil {
			logger.Error("http access check batch failed",
				"event", "access_http_check_batch_failed",
				"module", "identity-access/access-control",
				"layer", "transport",
				"session_id", sessionID,
				"action_count", len(remaining),
				"error", err.Error(),
			)
			return httptransport.CheckAccessBatchResponse{}, err
		}
		for _, decision := range decisions {
			items = append(items, decisionResponse(decision))
		}
	}
	return httptransport.CheckAccessBatchResponse{Results: items}, nil
}

// GetPolicyHandler returns the full policy document.
func (h Handler) GetPolicyHandler(ctx context.Context) (httptransport.PolicyResponse, error) {
	doc, err := h.GetPolicy.Execute(ctx)
	if err != nil {
		return httptransport.PolicyResponse{}, err
	}

	channels := make(map[string]map[string]httptransport.RuleDTO, len(doc.Channels))
	for channel, actions := range doc.Channels {
		rules := make(map[string]httptransport.RuleDTO, len(actions))
		for action, rule := range actions {
			rules[action] = httptransport.RuleDTO{
				Allow: rule.Allow,
				Deny:  rule.Deny,
			}
		}
		channels[channel] = rules
	}
	return httptransport.PolicyResponse{
		Channels:   channels,
		Groups:     doc.Groups,
		Exceptions: doc.Exceptions,
		Enforced:   doc.Enforced,
	}, nil
}

// AuditHandler reports rule-table integrity as pass/fail.
func (h Handler) AuditHandler(ctx context.Context) bool {
	return h.AuditPolicy.Execute(ctx)
}

// AddPermissionHandler unions subjects into one rule.
func (h Handler) AddPermissionHandler(
	ctx context.Context,
	request httptransport.AddPermissionRequest,
) (httptransport.AddPermissionResponse, error) {
	result, err := h.AddPermission.Execute(ctx, commands.AddPermissionCommand{
		Channel: request.Channel,
		Action:  request.Action,
		Allow:   request.Allow,
		Deny:    request.Deny,
	})
	if err != nil {
		return httptransport.AddPermissionResponse{}, err
	}
	return httptransport.AddPermissionResponse{
		Channel: result.Channel,
		Action:  result.Action,
		Allow:   result.Allow,
		Deny:    result.Deny,
	}, nil
}

// ReplaceGroupHandler overwrites group membership.
func (h Handler) ReplaceGroupHandler(
	ctx context.Context,
	groupName string,
	request httptransport.ReplaceGroupRequest,
) (httptransport.ReplaceGroupResponse, error) {
	result, err := h.AddGroup.Execute(ctx, commands.AddGroupCommand{
		GroupName: groupName,
		Members:   request.Members,
	})
	if err != nil {
		return httptransport.ReplaceGroupResponse{}, err
	}
	return httptransport.ReplaceGroupResponse{
		GroupName: result.GroupName,
		Members:   result.Members,
	}, nil
}

// AddExceptionHandler registers an evaluation-exempt action label.
func (h Handler) AddExceptionHandler(
	ctx context.Context,
	request httptransport.AddExceptionRequest,
) (httptransport.AddExceptionResponse, error) {
	result, err := h.AddException.Execute(ctx, commands.AddExceptionCommand{
		Action: request.Action,
	})
	if err != nil {
		return httptransport.AddExceptionResponse{}, err
	}
	return httptransport.AddExceptionResponse{
		Action:     result.Action,
		Added:      result.Added,
		Exceptions: result.Exceptions,
	}, nil
}

// SetEnforcementHandler toggles the evaluator on or off.
func (h Handler) SetEnforcementHandler(
	ctx context.Context,
	request httptransport.EnforcementRequest,
) (httptransport.EnforcementResponse, error) {
	result, err := h.SetEnforcement.Execute(ctx, commands.SetEnforcementCommand{
		Enforced: request.Enforced,
	})
	if err != nil {
		return httptransport.EnforcementResponse{}, err
	}
	return httptransport.EnforcementResponse{Enforced: result.Enforced}, nil
}

func (h Handler) exemptResponse(sessionID string, request httptransport.CheckAccessRequest) httptransport.CheckAccessResponse {
	channel := request.Channel
	if channel == "" {
		channel = entities.ChannelDefault
	}
	return httptransport.CheckAccessResponse{
		SessionID: sessionID,
		Action:    request.Action,
		Channel:   channel,
		Allowed:   true,
		Reason:    entities.ReasonExemptAction,
		Exempt:    true,
		CheckedAt: time.Now().UTC(),
	}
}

func decisionResponse(decision entities.AccessDecision) httptransport.CheckAccessResponse {
	return httptransport.CheckAccessResponse{
		SessionID: decision.SessionID,
		Action:    decision.Action,
		Channel:   decision.Channel,
		Allowed:   decision.Allowed,
		Reason:    decision.Reason,
		CheckedAt: decision.CheckedAt,
		CacheHit:  decision.CacheHit,
	}
}
