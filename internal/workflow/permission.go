package workflow

import (
	"slices"

	"github.com/apporte/workflow/internal/models"
)

// PermissionEvaluator decides whether an actor's role set satisfies the
// role set required for a directional action. Implementations must be
// pure: no side effects, no errors, absence of permission is the false
// return and the caller decides what that means.
type PermissionEvaluator interface {
	// CanViewPipeline checks view access against a pipeline or column
	// view role set.
	CanViewPipeline(actor models.Actor, allowedRoles []string) bool

	// CanMoveOut checks whether the actor may move cards out of a column,
	// against that column's move-out role set.
	CanMoveOut(actor models.Actor, allowedRoles []string) bool

	// CanMoveIn checks whether the actor may move cards into a column,
	// against that column's move-in role set.
	CanMoveIn(actor models.Actor, allowedRoles []string) bool
}

// roleEvaluator grants an action when the actor holds at least one of
// the allowed roles. An empty allowed set means unrestricted.
type roleEvaluator struct{}

// NewRoleEvaluator returns the role-intersection PermissionEvaluator used
// throughout the engine.
func NewRoleEvaluator() PermissionEvaluator {
	return roleEvaluator{}
}

func (roleEvaluator) CanViewPipeline(actor models.Actor, allowedRoles []string) bool {
	return hasAnyRole(actor, allowedRoles)
}

func (roleEvaluator) CanMoveOut(actor models.Actor, allowedRoles []string) bool {
	return hasAnyRole(actor, allowedRoles)
}

func (roleEvaluator) CanMoveIn(actor models.Actor, allowedRoles []string) bool {
	return hasAnyRole(actor, allowedRoles)
}

func hasAnyRole(actor models.Actor, allowedRoles []string) bool {
	if len(allowedRoles) == 0 {
		return true
	}
	for _, role := range actor.Roles {
		if slices.Contains(allowedRoles, role) {
			return true
		}
	}
	return false
}
