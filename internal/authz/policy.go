// Package authz holds the authorization core shared by the users, rooms,
// bookings and reviews services: the identity contract, the role registry,
// and the decision engine. The engine is a pure function of its inputs; all
// services evaluate the same table so the policy cannot drift between them.
package authz

import (
	"errors"
	"fmt"
)

// ErrPolicyNotDefined indicates a (role, resource, action) combination
// outside the policy vocabulary. This is a programming error, never a
// legitimate denial, and must abort the request.
var ErrPolicyNotDefined = errors.New("authz: policy not defined")

// Resource enumerates the resource types the policy covers.
type Resource string

const (
	ResourceUser    Resource = "user"
	ResourceRoom    Resource = "room"
	ResourceBooking Resource = "booking"
	ResourceReview  Resource = "review"
)

// Action enumerates the operations the policy covers. Cancel and ForceCancel
// apply to bookings only, Flag to reviews only; bookings have no plain
// delete, the DELETE verb maps to cancel.
type Action string

const (
	ActionCreate      Action = "create"
	ActionRead        Action = "read"
	ActionUpdate      Action = "update"
	ActionDelete      Action = "delete"
	ActionCancel      Action = "cancel"
	ActionForceCancel Action = "force_cancel"
	ActionFlag        Action = "flag"
)

type actionSet map[Action]struct{}

func actions(list ...Action) actionSet {
	set := make(actionSet, len(list))
	for _, a := range list {
		set[a] = struct{}{}
	}
	return set
}

func (s actionSet) contains(a Action) bool {
	_, ok := s[a]
	return ok
}

// grant is the per-resource capability of a role: actions allowed
// unconditionally, and actions allowed only on resources the caller owns.
type grant struct {
	unconditional actionSet
	owned         actionSet
}

// actionVocabulary fixes the valid actions per resource. Pairs outside this
// table are structural errors, not denials.
var actionVocabulary = map[Resource]actionSet{
	ResourceUser:    actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
	ResourceRoom:    actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete),
	ResourceBooking: actions(ActionCreate, ActionRead, ActionUpdate, ActionCancel, ActionForceCancel),
	ResourceReview:  actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionFlag),
}

// rolePolicy is the role registry: the full capability table, immutable after
// process start. Admin grants are unconditional for every action, so admin
// operations never need ownership resolution.
var rolePolicy = map[Role]map[Resource]grant{
	RoleAdmin: {
		ResourceUser:    {unconditional: actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete)},
		ResourceRoom:    {unconditional: actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete)},
		ResourceBooking: {unconditional: actions(ActionCreate, ActionRead, ActionUpdate, ActionCancel, ActionForceCancel)},
		ResourceReview:  {unconditional: actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionFlag)},
	},
	RoleRegularUser: {
		ResourceUser:    {},
		ResourceRoom:    {unconditional: actions(ActionRead)},
		ResourceBooking: {owned: actions(ActionCreate, ActionRead, ActionUpdate, ActionCancel)},
		ResourceReview:  {owned: actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete)},
	},
	RoleFacilityManager: {
		ResourceUser:    {},
		ResourceRoom:    {unconditional: actions(ActionCreate, ActionRead, ActionUpdate, ActionDelete)},
		ResourceBooking: {unconditional: actions(ActionRead)},
		ResourceReview:  {},
	},
	RoleModerator: {
		ResourceUser:    {},
		ResourceRoom:    {},
		ResourceBooking: {},
		// Moderation includes read: moderators must see the reviews they act on.
		ResourceReview: {unconditional: actions(ActionRead, ActionUpdate, ActionDelete, ActionFlag)},
	},
	RoleAuditor: {
		ResourceUser:    {unconditional: actions(ActionRead)},
		ResourceRoom:    {unconditional: actions(ActionRead)},
		ResourceBooking: {unconditional: actions(ActionRead)},
		ResourceReview:  {unconditional: actions(ActionRead)},
	},
	RoleServiceAccount: {
		ResourceUser:    {unconditional: actions(ActionRead)},
		ResourceRoom:    {unconditional: actions(ActionRead)},
		ResourceBooking: {unconditional: actions(ActionRead)},
		ResourceReview:  {unconditional: actions(ActionRead)},
	},
}

// Roles lists the known roles.
func Roles() []Role {
	return []Role{RoleAdmin, RoleRegularUser, RoleFacilityManager, RoleModerator, RoleAuditor, RoleServiceAccount}
}

// Resources lists the known resource types.
func Resources() []Resource {
	return []Resource{ResourceUser, ResourceRoom, ResourceBooking, ResourceReview}
}

// ActionsFor returns the valid actions for a resource.
func ActionsFor(resource Resource) []Action {
	vocab, ok := actionVocabulary[resource]
	if !ok {
		return nil
	}
	list := make([]Action, 0, len(vocab))
	for a := range vocab {
		list = append(list, a)
	}
	return list
}

// Ownership is the resolved owner of a single resource, fetched fresh per
// decision and valid only for that decision.
type Ownership struct {
	Resource    Resource
	ResourceID  int64
	OwnerUserID int64
}

// Decision is the engine verdict. A Deny is normal control flow, not an
// error; the enforcement layer maps it to an access-denied response.
type Decision struct {
	Allowed bool
	Reason  string
}

// Decision reasons.
const (
	ReasonRoleGrant         = "role-grant"
	ReasonOwnershipMatch    = "ownership-match"
	ReasonOwnershipRequired = "ownership-required"
	ReasonInsufficientRole  = "insufficient-role"
)

// Decide evaluates the policy for one request. It is deterministic and
// side-effect free: identical inputs always yield the identical decision.
// Role-level grants take precedence over ownership checks, and identities
// without a user id can never satisfy an ownership grant.
func Decide(id Identity, action Action, resource Resource, ownership *Ownership) (Decision, error) {
	grants, ok := rolePolicy[id.Role]
	if !ok {
		return Decision{}, fmt.Errorf("%w: unknown role %q", ErrPolicyNotDefined, id.Role)
	}
	vocab, ok := actionVocabulary[resource]
	if !ok {
		return Decision{}, fmt.Errorf("%w: unknown resource %q", ErrPolicyNotDefined, resource)
	}
	if !vocab.contains(action) {
		return Decision{}, fmt.Errorf("%w: action %q on resource %q", ErrPolicyNotDefined, action, resource)
	}

	g := grants[resource]
	if g.unconditional.contains(action) {
		return Decision{Allowed: true, Reason: ReasonRoleGrant}, nil
	}
	if g.owned.contains(action) {
		if id.UserID != nil && ownership != nil && ownership.OwnerUserID == *id.UserID {
			return Decision{Allowed: true, Reason: ReasonOwnershipMatch}, nil
		}
		if ownership == nil {
			return Decision{Allowed: false, Reason: ReasonOwnershipRequired}, nil
		}
	}
	return Decision{Allowed: false, Reason: ReasonInsufficientRole}, nil
}
