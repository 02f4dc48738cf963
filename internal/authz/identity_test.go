package authz

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseIdentityValid(t *testing.T) {
	id, err := ParseIdentity("regular_user", "42")
	require.NoError(t, err)
	assert.Equal(t, RoleRegularUser, id.Role)
	require.NotNil(t, id.UserID)
	assert.Equal(t, int64(42), *id.UserID)
	assert.True(t, id.IsUser(42))
	assert.False(t, id.IsUser(43))
}

func TestParseIdentityServiceAccountWithoutUser(t *testing.T) {
	id, err := ParseIdentity("service_account", "")
	require.NoError(t, err)
	assert.Nil(t, id.UserID)
	assert.False(t, id.HasUser())
}

func TestParseIdentityRejectsUnknownRole(t *testing.T) {
	for _, role := range []string{"", "root", "Admin", "ADMIN", " regular_user"} {
		_, err := ParseIdentity(role, "1")
		require.Error(t, err, "role %q", role)
		assert.True(t, errors.Is(err, ErrUnauthenticated), "role %q", role)
	}
}

func TestParseIdentityRejectsMalformedUserID(t *testing.T) {
	for _, raw := range []string{"abc", "-1", "1.5", "1e3", "9223372036854775808"} {
		_, err := ParseIdentity("admin", raw)
		require.Error(t, err, "user id %q", raw)
		assert.True(t, errors.Is(err, ErrMalformedIdentity), "user id %q", raw)
	}
}

func TestParseIdentityZeroUserID(t *testing.T) {
	id, err := ParseIdentity("admin", "0")
	require.NoError(t, err)
	require.NotNil(t, id.UserID)
	assert.Equal(t, int64(0), *id.UserID)
}

func TestIdentityFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/rooms", nil)
	r.Header.Set(HeaderRole, "auditor")
	r.Header.Set(HeaderUserID, "9")

	id, err := IdentityFromRequest(r)
	require.NoError(t, err)
	assert.Equal(t, RoleAuditor, id.Role)
	assert.True(t, id.IsUser(9))
}

func TestIdentityContextRoundTrip(t *testing.T) {
	id := Identity{Role: RoleModerator, UserID: ptr(5)}
	ctx := ContextWithIdentity(context.Background(), id)

	got, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = IdentityFromContext(context.Background())
	assert.False(t, ok)
}
