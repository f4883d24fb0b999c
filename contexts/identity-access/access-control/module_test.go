package accesscontrol

import (
	"context"
	"log/slog"
	"testing"

	"gatekeeper/contexts/identity-access/access-control/domain/entities"
	httptransport "gatekeeper/contexts/identity-access/access-control/transport/http"
)

func newTestModule() Module {
	return NewInMemoryModule(slog.Default())
}

func TestSeedAllowsAnySessionOnDefaultChannel(t *testing.T) {
	module := newTestModule()
	resp, err := module.Handler.CheckAccessHandler(context.Background(), "session-1", httptransport.CheckAccessRequest{
		Action: "send_message",
	})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !resp.Allowed {
		t.Fatalf("expected seeded universal allow, got %+v", resp)
	}
	if resp.Channel != entities.ChannelDefault {
		t.Fatalf("expected channel default fallback, got %q", resp.Channel)
	}
	if resp.Reason != entities.ReasonAllowedByRule {
		t.Fatalf("expected reason %q, got %q", entities.ReasonAllowedByRule, resp.Reason)
	}
}

func TestUnknownChannelDeniesEvenWithSeed(t *testing.T) {
	module := newTestModule()
	resp, err := module.Handler.CheckAccessHandler(context.Background(), "session-1", httptransport.CheckAccessRequest{
		Action:  "send_message",
		Channel: "telegram",
	})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if resp.Allowed {
		t.Fatalf("unregistered channel must deny, got %+v", resp)
	}
	if resp.Reason != entities.ReasonUnknownChannel {
		t.Fatalf("expected reason %q, got %q", entities.ReasonUnknownChannel, resp.Reason)
	}
}

func TestGroupRuleAllowsMembersOnly(t *testing.T) {
	module := newTestModule()
	ctx := context.Background()

	if _, err := module.Handler.ReplaceGroupHandler(ctx, "moderators", httptransport.ReplaceGroupRequest{
		Members: []string{"session-mod"},
	}); err != nil {
		t.Fatalf("replace group failed: %v", err)
	}
	if _, err := module.Handler.AddPermissionHandler(ctx, httptransport.AddPermissionRequest{
		Channel: entities.ChannelDefault,
		Action:  "delete_message",
		Allow:   []string{"moderators"},
	}); err != nil {
		t.Fatalf("add permission failed: %v", err)
	}

	member, err := module.Handler.CheckAccessHandler(ctx, "session-mod", httptransport.CheckAccessRequest{
		Action: "delete_message",
	})
	if err != nil || !member.Allowed {
		t.Fatalf("expected group member allowed, got %+v err=%v", member, err)
	}

	outsider, err := module.Handler.CheckAccessHandler(ctx, "session-guest", httptransport.CheckAccessRequest{
		Action: "delete_message",
	})
	if err != nil || outsider.Allowed {
		t.Fatalf("expected non-member denied by specific rule, got %+v err=%v", outsider, err)
	}
	if outsider.Reason != entities.ReasonDefaultDeny {
		t.Fatalf("expected reason %q, got %q", entities.ReasonDefaultDeny, outsider.Reason)
	}
}

func TestDenyEntryBeatsUniversalAllow(t *testing.T) {
	module := newTestModule()
	ctx := context.Background()

	if _, err := module.Handler.AddPermissionHandler(ctx, httptransport.AddPermissionRequest{
		Channel: entities.ChannelDefault,
		Action:  "send_message",
		Allow:   []string{entities.SubjectAll},
		Deny:    []string{"session-banned"},
	}); err != nil {
		t.Fatalf("add permission failed: %v", err)
	}

	banned, err := module.Handler.CheckAccessHandler(ctx, "session-banned", httptransport.CheckAccessRequest{
		Action: "send_message",
	})
	if err != nil || banned.Allowed {
		t.Fatalf("expected deny entry to win, got %+v err=%v", banned, err)
	}
	if banned.Reason != entities.ReasonDeniedByRule {
		t.Fatalf("expected reason %q, got %q", entities.ReasonDeniedByRule, banned.Reason)
	}

	other, err := module.Handler.CheckAccessHandler(ctx, "session-ok", httptransport.CheckAccessRequest{
		Action: "send_message",
	})
	if err != nil || !other.Allowed {
		t.Fatalf("expected unlisted session still allowed, got %+v err=%v", other, err)
	}
}

func TestGroupOverwriteRevokesFormerMembers(t *testing.T) {
	module := newTestModule()
	ctx := context.Background()

	if _, err := module.Handler.ReplaceGroupHandler(ctx, "editors", httptransport.ReplaceGroupRequest{
		Members: []string{"session-a"},
	}); err != nil {
		t.Fatalf("replace group failed: %v", err)
	}
	if _, err := module.Handler.AddPermissionHandler(ctx, httptransport.AddPermissionRequest{
		Channel: entities.ChannelDefault,
		Action:  "edit_message",
		Allow:   []string{"editors"},
	}); err != nil {
		t.Fatalf("add permission failed: %v", err)
	}
	if _, err := module.Handler.ReplaceGroupHandler(ctx, "editors", httptransport.ReplaceGroupRequest{
		Members: []string{"session-b"},
	}); err != nil {
		t.Fatalf("second replace failed: %v", err)
	}

	former, err := module.Handler.CheckAccessHandler(ctx, "session-a", httptransport.CheckAccessRequest{
		Action: "edit_message",
	})
	if err != nil || former.Allowed {
		t.Fatalf("membership replacement must revoke former member, got %+v err=%v", former, err)
	}
	current, err := module.Handler.CheckAccessHandler(ctx, "session-b", httptransport.CheckAccessRequest{
		Action: "edit_message",
	})
	if err != nil || !current.Allowed {
		t.Fatalf("expected current member allowed, got %+v err=%v", current, err)
	}
}

func TestDisabledEnforcementAllowsEverything(t *testing.T) {
	module := newTestModule()
	ctx := context.Background()

	if _, err := module.Handler.AddPermissionHandler(ctx, httptransport.AddPermissionRequest{
		Channel: entities.ChannelDefault,
		Action:  "send_message",
		Deny:    []string{entities.SubjectAll},
	}); err != nil {
		t.Fatalf("add permission failed: %v", err)
	}
	if _, err := module.Handler.SetEnforcementHandler(ctx, httptransport.EnforcementRequest{Enforced: false}); err != nil {
		t.Fatalf("set enforcement failed: %v", err)
	}

	resp, err := module.Handler.CheckAccessHandler(ctx, "session-1", httptransport.CheckAccessRequest{
		Action:  "send_message",
		Channel: "telegram",
	})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !resp.Allowed {
		t.Fatalf("disabled enforcement must allow, got %+v", resp)
	}
	if resp.Reason != entities.ReasonEnforcementDisabled {
		t.Fatalf("expected reason %q, got %q", entities.ReasonEnforcementDisabled, resp.Reason)
	}
}

func TestExemptActionBypassesEvaluation(t *testing.T) {
	module := newTestModule()
	ctx := context.Background()

	if _, err := module.Handler.AddPermissionHandler(ctx, httptransport.AddPermissionRequest{
		Channel: entities.ChannelDefault,
		Action:  "status_update",
		Deny:    []string{entities.SubjectAll},
	}); err != nil {
		t.Fatalf("add permission failed: %v", err)
	}
	if _, err := module.Handler.AddExceptionHandler(ctx, httptransport.AddExceptionRequest{
		Action: "status_update",
	}); err != nil {
		t.Fatalf("add exception failed: %v", err)
	}

	resp, err := module.Handler.CheckAccessHandler(ctx, "session-1", httptransport.CheckAccessRequest{
		Action: "status_update",
	})
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !resp.Allowed || !resp.Exempt {
		t.Fatalf("expected exempt bypass despite deny-all rule, got %+v", resp)
	}
	if resp.Reason != entities.ReasonExemptAction {
		t.Fatalf("expected reason %q, got %q", entities.ReasonExemptAction, resp.Reason)
	}
}

func TestCheckBatchMixesExemptAndEvaluated(t *testing.T) {
	module := newTestModule()
	ctx := context.Background()

	if _, err := module.Handler.AddExceptionHandler(ctx, httptransport.AddExceptionRequest{
		Action: "ping",
	}); err != nil {
		t.Fatalf("add exception failed: %v", err)
	}

	resp, err := module.Handler.CheckBatchHandler(ctx, "session-1", httptransport.CheckAccessBatchRequest{
		Channel: "telegram",
		Actions: []string{"ping", "send_message"},
	})
	if err != nil {
		t.Fatalf("batch check failed: %v", err)
	}
	if len(resp.Results) != 2 {
		t.Fatalf("expected two results, got %d", len(resp.Results))
	}

	byAction := map[string]httptransport.CheckAccessResponse{}
	for _, item := range resp.Results {
		byAction[item.Action] = item
	}
	if !byAction["ping"].Allowed || !byAction["ping"].Exempt {
		t.Fatalf("expected ping exempt even on unknown channel, got %+v", byAction["ping"])
	}
	if byAction["send_message"].Allowed {
		t.Fatalf("expected send_message denied on unknown channel, got %+v", byAction["send_message"])
	}
}

func TestRepeatedCheckHitsDecisionCache(t *testing.T) {
	module := newTestModule()
	ctx := context.Background()
	req := httptransport.CheckAccessRequest{Action: "send_message"}

	first, err := module.Handler.CheckAccessHandler(ctx, "session-1", req)
	if err != nil || first.CacheHit {
		t.Fatalf("first check must be a miss, got %+v err=%v", first, err)
	}
	second, err := module.Handler.CheckAccessHandler(ctx, "session-1", req)
	if err != nil || !second.CacheHit {
		t.Fatalf("second check must be a hit, got %+v err=%v", second, err)
	}
	if second.Allowed != first.Allowed || second.Reason != first.Reason {
		t.Fatalf("cached decision must match original: %+v vs %+v", second, first)
	}
}

func TestMutationInvalidatesDecisionCache(t *testing.T) {
	module := newTestModule()
	ctx := context.Background()
	req := httptransport.CheckAccessRequest{Action: "send_message"}

	if _, err := module.Handler.CheckAccessHandler(ctx, "session-x", req); err != nil {
		t.Fatalf("warm-up check failed: %v", err)
	}
	if _, err := module.Handler.AddPermissionHandler(ctx, httptransport.AddPermissionRequest{
		Channel: entities.ChannelDefault,
		Action:  "send_message",
		Deny:    []string{"session-x"},
	}); err != nil {
		t.Fatalf("add permission failed: %v", err)
	}

	resp, err := module.Handler.CheckAccessHandler(ctx, "session-x", req)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if resp.CacheHit {
		t.Fatalf("mutation must flush the decision cache, got %+v", resp)
	}
	if resp.Allowed {
		t.Fatalf("new deny entry must apply immediately, got %+v", resp)
	}
}

func TestAuditReflectsRuleTableIntegrity(t *testing.T) {
	module := newTestModule()
	ctx := context.Background()

	if !module.Handler.AuditHandler(ctx) {
		t.Fatalf("expected audit to pass on seeded state")
	}

	if _, err := module.Handler.AddPermissionHandler(ctx, httptransport.AddPermissionRequest{
		Channel: "carrier-pigeon",
		Action:  entities.ActionAny,
		Allow:   []string{entities.SubjectAll},
	}); err != nil {
		t.Fatalf("add permission failed: %v", err)
	}
	if module.Handler.AuditHandler(ctx) {
		t.Fatalf("expected audit to fail after unrecognized channel entry")
	}
}

func TestGetPolicyExposesFullDocument(t *testing.T) {
	module := newTestModule()
	ctx := context.Background()

	if _, err := module.Handler.AddExceptionHandler(ctx, httptransport.AddExceptionRequest{Action: "ping"}); err != nil {
		t.Fatalf("add exception failed: %v", err)
	}

	doc, err := module.Handler.GetPolicyHandler(ctx)
	if err != nil {
		t.Fatalf("get policy failed: %v", err)
	}
	if !doc.Enforced {
		t.Fatalf("expected enforcement on by default")
	}
	if _, ok := doc.Channels[entities.ChannelDefault][entities.ActionAny]; !ok {
		t.Fatalf("expected seeded wildcard rule in document")
	}
	if len(doc.Exceptions) != 1 || doc.Exceptions[0] != "ping" {
		t.Fatalf("expected exception list [ping], got %v", doc.Exceptions)
	}
}
