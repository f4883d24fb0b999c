package services

import "gatekeeper/contexts/identity-access/access-control/domain/entities"

// IsInAnyGroup reports whether identity belongs to at least one group whose
// name appears literally in subjects. Subjects that are not registered group
// names are ignored.
func IsInAnyGroup(identity string, subjects []string, groups map[string][]string) bool {
	for _, subject := range subjects {
		members, ok := groups[subject]
		if !ok {
			continue
		}
		for _, member := range members {
			if member == identity {
				return true
			}
		}
	}
	return false
}

// Decide runs the fixed-precedence decision procedure over one access view.
// Deny is checked strictly before allow; an unmatched rule denies by default.
func Decide(view entities.AccessView, identity string) (bool, string) {
	if !view.ChannelFound {
		return false, entities.ReasonUnknownChannel
	}
	if !view.RuleFound {
		return false, entities.ReasonNoMatchingRule
	}
	if subjectsMatch(identity, view.Rule.Deny, view.Groups) {
		return false, entities.ReasonDeniedByRule
	}
	if subjectsMatch(identity, view.Rule.Allow, view.Groups) {
		return true, entities.ReasonAllowedByRule
	}
	return false, entities.ReasonDefaultDeny
}

func subjectsMatch(identity string, subjects []string, groups map[string][]string) bool {
	for _, subject := range subjects {
		if subject == entities.SubjectAll || subject == identity {
			return true
		}
	}
	return IsInAnyGroup(identity, subjects, groups)
}
