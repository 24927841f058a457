package models

import "slices"

// Actor is the authenticated identity performing an operation. It is
// produced upstream (token verification is not this service's concern)
// and immutable for the duration of one request.
type Actor struct {
	ID             string
	Name           string
	Roles          []string
	OrganizationID string // optional
}

// HasAnyRole reports whether the actor holds at least one of the given
// roles. An empty argument list always reports false.
func (a Actor) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if slices.Contains(a.Roles, r) {
			return true
		}
	}
	return false
}
