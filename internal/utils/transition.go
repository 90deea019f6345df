package utils

import "slices"

// ValidateTransition checks target against the allowed moves out of current.
func ValidateTransition[S ~string](transitions map[S][]S, current, target S) error {
	allowed, ok := transitions[current]
	if !ok {
		return InvalidTransitionf("unknown current state %q", current)
	}
	if slices.Contains(allowed, target) {
		return nil
	}
	return InvalidTransitionf("transition from %q to %q is not allowed", current, target)
}
