package task

import "strings"

// Worker actions. The action names what the worker does with the task's
// artifacts; the resource (bucket nickname) says which storage account
// the deployment scoped the worker to.
const (
	ActionPushToNightly    = "push-to-nightly"
	ActionPushToCandidates = "push-to-candidates"
	ActionPushToReleases   = "push-to-releases"
	ActionPushToPartner    = "push-to-partner"
)

// IsReleaseAction reports whether the action promotes candidates to the
// public release prefixes.
func IsReleaseAction(action string) bool {
	return action == ActionPushToReleases
}

// IsPromotionAction reports whether the action stages artifacts under a
// versioned candidates prefix.
func IsPromotionAction(action string) bool {
	return action == ActionPushToCandidates || action == ActionPushToPartner
}

// IsPartnerPrivateTask reports whether a partner push targets the
// private partner bucket. Private partner resources carry a "partner"
// marker in the resource nickname.
func IsPartnerPrivateTask(action, resource string) bool {
	return action == ActionPushToPartner && strings.Contains(resource, "partner")
}

// IsPartnerPublicTask reports whether a partner push targets the public
// candidates bucket.
func IsPartnerPublicTask(action, resource string) bool {
	return action == ActionPushToPartner && !strings.Contains(resource, "partner")
}

// PartialsProps returns the partial-update records declared on the
// payload, never nil.
func PartialsProps(p Payload) map[string]Partial {
	if p.Partials == nil {
		return map[string]Partial{}
	}
	return p.Partials
}
