package authz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roomhive/roomhive/internal/platform/httpx"
)

type stubResolver struct {
	owners map[int64]int64
	err    error
	calls  int
}

func (s *stubResolver) ResolveOwner(ctx context.Context, resource Resource, resourceID int64) (int64, error) {
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	owner, ok := s.owners[resourceID]
	if !ok {
		return 0, ErrResourceNotFound
	}
	return owner, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireIdentityMissingRole(t *testing.T) {
	g := Guard{}
	rec := httptest.NewRecorder()
	g.RequireIdentity(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/rooms", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireIdentityUnknownRole(t *testing.T) {
	g := Guard{}
	r := httptest.NewRequest("GET", "/rooms", nil)
	r.Header.Set(HeaderRole, "superuser")
	rec := httptest.NewRecorder()
	g.RequireIdentity(okHandler()).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireIdentityMalformedUserID(t *testing.T) {
	g := Guard{}
	r := httptest.NewRequest("GET", "/rooms", nil)
	r.Header.Set(HeaderRole, "admin")
	r.Header.Set(HeaderUserID, "not-a-number")
	rec := httptest.NewRecorder()
	g.RequireIdentity(okHandler()).ServeHTTP(rec, r)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequireIdentityPassesIdentityDownstream(t *testing.T) {
	g := Guard{}
	var seen Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := IdentityFromContext(r.Context())
		require.True(t, ok)
		seen = id
	})
	r := httptest.NewRequest("GET", "/rooms", nil)
	r.Header.Set(HeaderRole, "regular_user")
	r.Header.Set(HeaderUserID, "7")
	g.RequireIdentity(next).ServeHTTP(httptest.NewRecorder(), r)
	assert.Equal(t, RoleRegularUser, seen.Role)
	assert.True(t, seen.IsUser(7))
}

func TestRequireAllowsAndDenies(t *testing.T) {
	g := Guard{}
	mw := g.Require(ResourceRoom, ActionCreate)

	run := func(role string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("POST", "/rooms", nil)
		r.Header.Set(HeaderRole, role)
		r.Header.Set(HeaderUserID, "7")
		rec := httptest.NewRecorder()
		g.RequireIdentity(mw(okHandler())).ServeHTTP(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusOK, run("facility_manager").Code)
	assert.Equal(t, http.StatusForbidden, run("regular_user").Code)
	assert.Equal(t, http.StatusForbidden, run("auditor").Code)
}

func TestRequireWithoutIdentityMiddleware(t *testing.T) {
	g := Guard{}
	rec := httptest.NewRecorder()
	g.Require(ResourceRoom, ActionRead)(okHandler()).ServeHTTP(rec, httptest.NewRequest("GET", "/rooms", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAny(t *testing.T) {
	g := Guard{}
	mw := g.RequireAny(
		Pair(ResourceRoom, ActionRead),
		Pair(ResourceReview, ActionRead),
	)

	run := func(role string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", "/reviews/room/1", nil)
		r.Header.Set(HeaderRole, role)
		rec := httptest.NewRecorder()
		g.RequireIdentity(mw(okHandler())).ServeHTTP(rec, r)
		return rec
	}

	// Moderators lack room read but hold review read.
	assert.Equal(t, http.StatusOK, run("moderator").Code)
	// Regular users and facility managers hold room read.
	assert.Equal(t, http.StatusOK, run("regular_user").Code)
	assert.Equal(t, http.StatusOK, run("facility_manager").Code)
}

func ctxWithIdentity(role Role, userID int64) context.Context {
	return ContextWithIdentity(context.Background(), Identity{Role: role, UserID: &userID})
}

func TestAuthorizeOwnerMatch(t *testing.T) {
	resolver := &stubResolver{owners: map[int64]int64{42: 7}}
	g := Guard{Resolver: resolver}

	err := g.Authorize(ctxWithIdentity(RoleRegularUser, 7), ActionCancel, ResourceBooking, 42)
	assert.NoError(t, err)
	assert.Equal(t, 1, resolver.calls)
}

func TestAuthorizeOwnerMismatch(t *testing.T) {
	resolver := &stubResolver{owners: map[int64]int64{42: 8}}
	g := Guard{Resolver: resolver}

	err := g.Authorize(ctxWithIdentity(RoleRegularUser, 7), ActionCancel, ResourceBooking, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
}

func TestAuthorizeNotFoundLooksLikeMismatch(t *testing.T) {
	resolver := &stubResolver{owners: map[int64]int64{}}
	g := Guard{Resolver: resolver}

	missing := g.Authorize(ctxWithIdentity(RoleRegularUser, 7), ActionCancel, ResourceBooking, 404)

	resolver.owners[42] = 8
	mismatch := g.Authorize(ctxWithIdentity(RoleRegularUser, 7), ActionCancel, ResourceBooking, 42)

	require.Error(t, missing)
	require.Error(t, mismatch)
	assert.True(t, errors.Is(missing, httpx.ErrForbidden))
	assert.True(t, errors.Is(mismatch, httpx.ErrForbidden))
}

func TestAuthorizeSkipsResolverOnRoleGrant(t *testing.T) {
	resolver := &stubResolver{}
	g := Guard{Resolver: resolver}

	err := g.Authorize(ctxWithIdentity(RoleAdmin, 1), ActionCancel, ResourceBooking, 42)
	assert.NoError(t, err)
	assert.Equal(t, 0, resolver.calls, "role grants must not hit the resolver")
}

func TestAuthorizeSkipsResolverOnHardDeny(t *testing.T) {
	resolver := &stubResolver{}
	g := Guard{Resolver: resolver}

	err := g.Authorize(ctxWithIdentity(RoleAuditor, 1), ActionCancel, ResourceBooking, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))
	assert.Equal(t, 0, resolver.calls)
}

func TestAuthorizeResolverFailure(t *testing.T) {
	boom := errors.New("connection reset")
	g := Guard{Resolver: &stubResolver{err: boom}}

	err := g.Authorize(ctxWithIdentity(RoleRegularUser, 7), ActionCancel, ResourceBooking, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.False(t, errors.Is(err, httpx.ErrForbidden))
}

func TestAuthorizeNilResolver(t *testing.T) {
	// Reaching the ownership branch without a resolver is a wiring bug; it
	// must surface as a structural error, not a panic or a denial.
	g := Guard{}
	err := g.Authorize(ctxWithIdentity(RoleRegularUser, 7), ActionCancel, ResourceBooking, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPolicyNotDefined))
	assert.False(t, errors.Is(err, httpx.ErrForbidden))
}

func TestAuthorizePolicyNotDefined(t *testing.T) {
	g := Guard{Resolver: &stubResolver{}}
	err := g.Authorize(ctxWithIdentity(RoleAdmin, 1), ActionDelete, ResourceBooking, 42)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrPolicyNotDefined))
}

func TestAuthorizeOwner(t *testing.T) {
	g := Guard{}

	assert.NoError(t, g.AuthorizeOwner(ctxWithIdentity(RoleRegularUser, 7), ActionCreate, ResourceBooking, 7))

	err := g.AuthorizeOwner(ctxWithIdentity(RoleRegularUser, 7), ActionCreate, ResourceBooking, 8)
	require.Error(t, err)
	assert.True(t, errors.Is(err, httpx.ErrForbidden))

	assert.NoError(t, g.AuthorizeOwner(ctxWithIdentity(RoleAdmin, 1), ActionCreate, ResourceBooking, 8))
}

func TestAuthorizeMissingIdentity(t *testing.T) {
	g := Guard{Resolver: &stubResolver{}}
	err := g.Authorize(context.Background(), ActionRead, ResourceBooking, 1)
	assert.True(t, errors.Is(err, httpx.ErrUnauthorized))
}
