package authz

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

func decide(t *testing.T, id Identity, action Action, resource Resource, ownership *Ownership) Decision {
	t.Helper()
	d, err := Decide(id, action, resource, ownership)
	require.NoError(t, err)
	return d
}

func TestAdminUnconditionalEverywhere(t *testing.T) {
	id := Identity{Role: RoleAdmin, UserID: ptr(1)}
	for _, resource := range Resources() {
		for _, action := range ActionsFor(resource) {
			d := decide(t, id, action, resource, nil)
			assert.True(t, d.Allowed, "admin %s %s", action, resource)
			assert.Equal(t, ReasonRoleGrant, d.Reason)
		}
	}
}

func TestRegularUserRoomReadOnly(t *testing.T) {
	id := Identity{Role: RoleRegularUser, UserID: ptr(7)}

	d := decide(t, id, ActionRead, ResourceRoom, nil)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonRoleGrant, d.Reason)

	for _, action := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
		d := decide(t, id, action, ResourceRoom, nil)
		assert.False(t, d.Allowed, "regular_user %s room", action)
		assert.Equal(t, ReasonInsufficientRole, d.Reason)
	}
}

func TestRegularUserOwnedBooking(t *testing.T) {
	id := Identity{Role: RoleRegularUser, UserID: ptr(7)}
	own := &Ownership{Resource: ResourceBooking, ResourceID: 42, OwnerUserID: 7}
	other := &Ownership{Resource: ResourceBooking, ResourceID: 42, OwnerUserID: 8}

	for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionCancel} {
		d := decide(t, id, action, ResourceBooking, own)
		assert.True(t, d.Allowed, "own booking %s", action)
		assert.Equal(t, ReasonOwnershipMatch, d.Reason)

		d = decide(t, id, action, ResourceBooking, other)
		assert.False(t, d.Allowed, "other booking %s", action)
		assert.Equal(t, ReasonInsufficientRole, d.Reason)
	}

	// Without resolved ownership the engine signals that ownership is needed.
	d := decide(t, id, ActionCancel, ResourceBooking, nil)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonOwnershipRequired, d.Reason)

	// force_cancel is never owner-scoped for regular users.
	d = decide(t, id, ActionForceCancel, ResourceBooking, own)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonInsufficientRole, d.Reason)
}

func TestFacilityManagerBookingsReadOnly(t *testing.T) {
	id := Identity{Role: RoleFacilityManager, UserID: ptr(3)}

	d := decide(t, id, ActionRead, ResourceBooking, nil)
	assert.True(t, d.Allowed)

	own := &Ownership{Resource: ResourceBooking, ResourceID: 1, OwnerUserID: 3}
	for _, action := range []Action{ActionCreate, ActionUpdate, ActionCancel, ActionForceCancel} {
		d := decide(t, id, action, ResourceBooking, own)
		assert.False(t, d.Allowed, "facility_manager %s booking", action)
	}

	// Full control over rooms.
	for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete} {
		d := decide(t, id, action, ResourceRoom, nil)
		assert.True(t, d.Allowed, "facility_manager %s room", action)
	}
}

func TestModeratorReviewModeration(t *testing.T) {
	id := Identity{Role: RoleModerator, UserID: ptr(5)}

	for _, action := range []Action{ActionRead, ActionUpdate, ActionDelete, ActionFlag} {
		d := decide(t, id, action, ResourceReview, nil)
		assert.True(t, d.Allowed, "moderator %s review", action)
		assert.Equal(t, ReasonRoleGrant, d.Reason)
	}

	// Moderators act on others' reviews but never author their own.
	own := &Ownership{Resource: ResourceReview, ResourceID: 9, OwnerUserID: 5}
	d := decide(t, id, ActionCreate, ResourceReview, own)
	assert.False(t, d.Allowed)

	// Nothing anywhere else.
	d = decide(t, id, ActionRead, ResourceRoom, nil)
	assert.False(t, d.Allowed)
	d = decide(t, id, ActionRead, ResourceBooking, nil)
	assert.False(t, d.Allowed)
	d = decide(t, id, ActionRead, ResourceUser, nil)
	assert.False(t, d.Allowed)
}

func TestAuditorReadEverythingWriteNothing(t *testing.T) {
	id := Identity{Role: RoleAuditor, UserID: ptr(11)}
	for _, resource := range Resources() {
		d := decide(t, id, ActionRead, resource, nil)
		assert.True(t, d.Allowed, "auditor read %s", resource)

		for _, action := range ActionsFor(resource) {
			if action == ActionRead {
				continue
			}
			own := &Ownership{Resource: resource, ResourceID: 1, OwnerUserID: 11}
			d := decide(t, id, action, resource, own)
			assert.False(t, d.Allowed, "auditor %s %s", action, resource)
		}
	}
}

func TestServiceAccountNoUserID(t *testing.T) {
	id := Identity{Role: RoleServiceAccount}
	require.False(t, id.HasUser())

	for _, resource := range Resources() {
		d := decide(t, id, ActionRead, resource, nil)
		assert.True(t, d.Allowed, "service_account read %s", resource)
	}

	// An identity without a user id can never satisfy an ownership grant,
	// even when the resolved owner would match some user.
	own := &Ownership{Resource: ResourceBooking, ResourceID: 1, OwnerUserID: 0}
	d := decide(t, id, ActionCancel, ResourceBooking, own)
	assert.False(t, d.Allowed)
	assert.Equal(t, ReasonInsufficientRole, d.Reason)
}

func TestRegularUserCannotTouchUsers(t *testing.T) {
	id := Identity{Role: RoleRegularUser, UserID: ptr(7)}
	for _, action := range []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete} {
		d := decide(t, id, action, ResourceUser, nil)
		assert.False(t, d.Allowed, "regular_user %s user", action)
	}
}

func TestDecideIdempotent(t *testing.T) {
	id := Identity{Role: RoleRegularUser, UserID: ptr(7)}
	own := &Ownership{Resource: ResourceReview, ResourceID: 3, OwnerUserID: 7}
	first := decide(t, id, ActionUpdate, ResourceReview, own)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, decide(t, id, ActionUpdate, ResourceReview, own))
	}
}

func TestDecidePolicyNotDefined(t *testing.T) {
	tests := []struct {
		name     string
		id       Identity
		action   Action
		resource Resource
	}{
		{"unknown role", Identity{Role: Role("superuser")}, ActionRead, ResourceRoom},
		{"unknown resource", Identity{Role: RoleAdmin}, ActionRead, Resource("meeting")},
		{"action outside vocabulary", Identity{Role: RoleAdmin}, ActionFlag, ResourceRoom},
		{"booking has no plain delete", Identity{Role: RoleAdmin}, ActionDelete, ResourceBooking},
		{"cancel is booking-only", Identity{Role: RoleAdmin}, ActionCancel, ResourceReview},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decide(tc.id, tc.action, tc.resource, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrPolicyNotDefined))
		})
	}
}

func TestRoleGrantPrecedesOwnership(t *testing.T) {
	// A mismatched ownership must not override an unconditional grant.
	id := Identity{Role: RoleAdmin, UserID: ptr(1)}
	other := &Ownership{Resource: ResourceBooking, ResourceID: 2, OwnerUserID: 99}
	d := decide(t, id, ActionCancel, ResourceBooking, other)
	assert.True(t, d.Allowed)
	assert.Equal(t, ReasonRoleGrant, d.Reason)
}

// capabilityTable is an independent restatement of the policy, kept in the
// test so a table edit in policy.go cannot silently pass its own grid.
type capabilityTable map[Role]map[Resource][]Action

func (c capabilityTable) has(role Role, resource Resource, action Action) bool {
	for _, a := range c[role][resource] {
		if a == action {
			return true
		}
	}
	return false
}

func TestDecideFullGrid(t *testing.T) {
	unconditional := capabilityTable{
		RoleAdmin: {
			ResourceUser:    {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
			ResourceRoom:    {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
			ResourceBooking: {ActionCreate, ActionRead, ActionUpdate, ActionCancel, ActionForceCancel},
			ResourceReview:  {ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionFlag},
		},
		RoleRegularUser: {
			ResourceRoom: {ActionRead},
		},
		RoleFacilityManager: {
			ResourceRoom:    {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
			ResourceBooking: {ActionRead},
		},
		RoleModerator: {
			ResourceReview: {ActionRead, ActionUpdate, ActionDelete, ActionFlag},
		},
		RoleAuditor: {
			ResourceUser:    {ActionRead},
			ResourceRoom:    {ActionRead},
			ResourceBooking: {ActionRead},
			ResourceReview:  {ActionRead},
		},
		RoleServiceAccount: {
			ResourceUser:    {ActionRead},
			ResourceRoom:    {ActionRead},
			ResourceBooking: {ActionRead},
			ResourceReview:  {ActionRead},
		},
	}
	owned := capabilityTable{
		RoleRegularUser: {
			ResourceBooking: {ActionCreate, ActionRead, ActionUpdate, ActionCancel},
			ResourceReview:  {ActionCreate, ActionRead, ActionUpdate, ActionDelete},
		},
	}

	for _, role := range Roles() {
		id := Identity{Role: role, UserID: ptr(7)}
		for _, resource := range Resources() {
			for _, action := range ActionsFor(resource) {
				t.Run(fmt.Sprintf("%s/%s/%s", role, resource, action), func(t *testing.T) {
					d := decide(t, id, action, resource, nil)
					switch {
					case unconditional.has(role, resource, action):
						assert.True(t, d.Allowed)
						assert.Equal(t, ReasonRoleGrant, d.Reason)
					case owned.has(role, resource, action):
						assert.False(t, d.Allowed)
						assert.Equal(t, ReasonOwnershipRequired, d.Reason)
					default:
						assert.False(t, d.Allowed)
						assert.Equal(t, ReasonInsufficientRole, d.Reason)
					}

					own := &Ownership{Resource: resource, ResourceID: 1, OwnerUserID: 7}
					d = decide(t, id, action, resource, own)
					switch {
					case unconditional.has(role, resource, action):
						assert.True(t, d.Allowed)
						assert.Equal(t, ReasonRoleGrant, d.Reason)
					case owned.has(role, resource, action):
						assert.True(t, d.Allowed)
						assert.Equal(t, ReasonOwnershipMatch, d.Reason)
					default:
						assert.False(t, d.Allowed)
						assert.Equal(t, ReasonInsufficientRole, d.Reason)
					}
				})
			}
		}
	}
}
