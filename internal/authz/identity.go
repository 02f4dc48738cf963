package authz

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
)

// Identity headers set by the gateway in front of every service.
const (
	HeaderRole   = "X-Role"
	HeaderUserID = "X-User-Id"
)

var (
	// ErrUnauthenticated indicates a missing or unrecognized role value.
	ErrUnauthenticated = errors.New("authz: missing or unknown role")
	// ErrMalformedIdentity indicates a user id value that is not a non-negative integer.
	ErrMalformedIdentity = errors.New("authz: malformed user id")
)

// Role is one of the six fixed caller roles. Roles are process-wide
// constants; nothing creates or destroys them at runtime.
type Role string

const (
	RoleAdmin           Role = "admin"
	RoleRegularUser     Role = "regular_user"
	RoleFacilityManager Role = "facility_manager"
	RoleModerator       Role = "moderator"
	RoleAuditor         Role = "auditor"
	RoleServiceAccount  Role = "service_account"
)

// Identity is the validated caller record built once at the request boundary
// and threaded explicitly into every decision. UserID is nil for service
// accounts that act without a user identity.
type Identity struct {
	UserID *int64
	Role   Role
}

// HasUser reports whether the identity carries a user id.
func (id Identity) HasUser() bool {
	return id.UserID != nil
}

// IsUser reports whether the identity belongs to the given user.
func (id Identity) IsUser(userID int64) bool {
	return id.UserID != nil && *id.UserID == userID
}

// ParseIdentity validates the raw header values. The role must match one of
// the six known roles case-sensitively; an empty or unknown role is rejected
// rather than defaulted so misconfigured callers fail visibly. The user id,
// when present, must parse as a non-negative integer.
func ParseIdentity(role, userID string) (Identity, error) {
	r := Role(role)
	if _, ok := rolePolicy[r]; !ok {
		return Identity{}, fmt.Errorf("%w: %q", ErrUnauthenticated, role)
	}
	id := Identity{Role: r}
	if userID != "" {
		parsed, err := strconv.ParseInt(userID, 10, 64)
		if err != nil || parsed < 0 {
			return Identity{}, fmt.Errorf("%w: %q", ErrMalformedIdentity, userID)
		}
		id.UserID = &parsed
	}
	return id, nil
}

// IdentityFromRequest parses identity from the gateway headers.
func IdentityFromRequest(r *http.Request) (Identity, error) {
	return ParseIdentity(r.Header.Get(HeaderRole), r.Header.Get(HeaderUserID))
}
