// Package entitlement holds the pure free/pro gating predicates.
// Denials map to an explicit limit-reached condition, never to the
// generation fallback path.
package entitlement

import "negociasmart/pkg/domain"

// FreeCaseLimit is the number of cases a free-tier user may own.
const FreeCaseLimit = 1

// FreeSessionsPerCase is the number of roleplay sessions a free-tier
// user may start per case.
const FreeSessionsPerCase = 1

// freeTemplateTypes are the template types available without a pro plan.
var freeTemplateTypes = map[domain.TemplateType]bool{
	domain.TemplateMeetingRequest: true,
	domain.TemplateClosing:        true,
}

// CanCreateCase reports whether the user may create another case.
func CanCreateCase(user domain.UserProfile, ownedCases int) bool {
	return user.IsPro() || ownedCases < FreeCaseLimit
}

// CanStartSession reports whether the user may start another roleplay
// session on a case.
func CanStartSession(user domain.UserProfile, priorSessions int) bool {
	return user.IsPro() || priorSessions < FreeSessionsPerCase
}

// CanRevealScore reports whether the user may see a session score.
func CanRevealScore(user domain.UserProfile) bool {
	return user.IsPro()
}

// CanGenerateTemplate reports whether the user may generate the given
// template type.
func CanGenerateTemplate(user domain.UserProfile, t domain.TemplateType) bool {
	return user.IsPro() || freeTemplateTypes[t]
}
