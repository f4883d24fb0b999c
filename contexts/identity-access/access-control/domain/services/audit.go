package services

import "gatekeeper/contexts/identity-access/access-control/domain/entities"

// AuditPolicy is the read-only integrity check over a policy snapshot.
// It returns pass/fail only; any internal fault is recovered and reported as
// a failed check rather than propagated.
func AuditPolicy(doc entities.PolicyDocument) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()

	if len(doc.Channels) == 0 {
		return false
	}
	for channel, actions := range doc.Channels {
		if _, known := entities.RecognizedChannels[channel]; !known {
			return false
		}
		if _, hasAny := actions[entities.ActionAny]; !hasAny {
			return false
		}
		for _, rule := range actions {
			if rule.Allow == nil || rule.Deny == nil {
				return false
			}
		}
	}
	return true
}
