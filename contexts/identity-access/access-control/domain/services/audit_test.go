package services

import (
	"testing"

	"gatekeeper/contexts/identity-access/access-control/domain/entities"
)

func validPolicyDocument() entities.PolicyDocument {
	return entities.PolicyDocument{
		Channels: map[string]map[string]entities.Rule{
			entities.ChannelDefault: {
				entities.ActionAny: {Allow: []string{entities.SubjectAll}, Deny: []string{}},
			},
			"whatsapp": {
				entities.ActionAny: {Allow: []string{entities.SubjectAll}, Deny: []string{}},
			},
		},
	}
}

func TestAuditPolicyPassesOnSeedShape(t *testing.T) {
	if !AuditPolicy(validPolicyDocument()) {
		t.Fatalf("expected audit to pass for seed-shaped policy")
	}
}

func TestAuditPolicyFailsOnEmptyTable(t *testing.T) {
	if AuditPolicy(entities.PolicyDocument{}) {
		t.Fatalf("expected audit to fail for empty rule table")
	}
}

func TestAuditPolicyFailsOnUnrecognizedChannel(t *testing.T) {
	doc := validPolicyDocument()
	doc.Channels["carrier-pigeon"] = map[string]entities.Rule{
		entities.ActionAny: {Allow: []string{}, Deny: []string{}},
	}
	if AuditPolicy(doc) {
		t.Fatalf("expected audit to fail for unrecognized channel")
	}
}

func TestAuditPolicyFailsWhenChannelMissingAnyRule(t *testing.T) {
	doc := validPolicyDocument()
	doc.Channels["sms"] = map[string]entities.Rule{
		"send_message": {Allow: []string{}, Deny: []string{}},
	}
	if AuditPolicy(doc) {
		t.Fatalf("expected audit to fail when a channel has no %q rule", entities.ActionAny)
	}
}

func TestAuditPolicyFailsOnIncompleteRule(t *testing.T) {
	doc := validPolicyDocument()
	doc.Channels[entities.ChannelDefault]["send_message"] = entities.Rule{Allow: []string{}}
	if AuditPolicy(doc) {
		t.Fatalf("expected audit to fail when a rule is missing its deny set")
	}
}
