package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/roomhive/roomhive/internal/platform/httpx"
)

// Guard is the enforcement adapter: the single point where decisions are
// applied. It extracts identity at the boundary, evaluates the engine before
// an operation runs, and short-circuits on deny so the operation and its side
// effects never execute.
type Guard struct {
	Resolver Resolver
	Logger   *slog.Logger
}

// RequireIdentity parses the identity headers and stores the validated
// identity in the request context. Requests with a missing or unknown role
// get 401, requests with an unparsable user id get 400; business logic never
// runs for either.
func (g Guard) RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := IdentityFromRequest(r)
		if err != nil {
			if errors.Is(err, ErrMalformedIdentity) {
				httpx.Problem(w, http.StatusBadRequest, "Malformed Identity", "user id must be a non-negative integer")
				return
			}
			httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "missing or unknown role")
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
	})
}

// Require guards a route with a role-level check. It is meant for actions
// that are never owner-scoped for the route in question (listings, creates by
// privileged roles); owner-scoped paths go through Authorize inside the
// handler once the resource id is known.
func (g Guard) Require(resource Resource, action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "missing identity")
				return
			}
			decision, err := Decide(id, action, resource, nil)
			if err != nil {
				g.fail(w, id, action, resource, err)
				return
			}
			if !decision.Allowed {
				g.deny(id, action, resource, decision)
				httpx.RespondError(w, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAny guards a route that is satisfied by a role-level grant on any of
// the given (resource, action) pairs.
func (g Guard) RequireAny(pairs ...struct {
	Resource Resource
	Action   Action
}) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFromContext(r.Context())
			if !ok {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthenticated", "missing identity")
				return
			}
			for _, p := range pairs {
				decision, err := Decide(id, p.Action, p.Resource, nil)
				if err != nil {
					g.fail(w, id, p.Action, p.Resource, err)
					return
				}
				if decision.Allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			g.deny(id, "", "", Decision{Reason: ReasonInsufficientRole})
			httpx.RespondError(w, httpx.ErrForbidden)
		})
	}
}

// Pair builds a (resource, action) pair for RequireAny.
func Pair(resource Resource, action Action) struct {
	Resource Resource
	Action   Action
} {
	return struct {
		Resource Resource
		Action   Action
	}{resource, action}
}

// Authorize evaluates the policy for an action on an existing resource,
// resolving ownership through the injected resolver only when the caller's
// role grant is not enough. A resource the resolver cannot find produces the
// same forbidden error as an ownership mismatch, so the response does not
// leak whether the resource exists.
func (g Guard) Authorize(ctx context.Context, action Action, resource Resource, resourceID int64) error {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return httpx.ErrUnauthorized
	}
	decision, err := Decide(id, action, resource, nil)
	if err != nil {
		g.failure(id, action, resource, err)
		return err
	}
	if decision.Allowed {
		return nil
	}
	if decision.Reason != ReasonOwnershipRequired {
		g.deny(id, action, resource, decision)
		return fmt.Errorf("%w: %s", httpx.ErrForbidden, decision.Reason)
	}

	if g.Resolver == nil {
		err := fmt.Errorf("%w: no ownership resolver for resource %q", ErrPolicyNotDefined, resource)
		g.failure(id, action, resource, err)
		return err
	}
	owner, err := g.Resolver.ResolveOwner(ctx, resource, resourceID)
	if err != nil {
		if errors.Is(err, ErrResourceNotFound) {
			g.deny(id, action, resource, Decision{Reason: ReasonOwnershipRequired})
			return fmt.Errorf("%w: %s", httpx.ErrForbidden, ReasonOwnershipRequired)
		}
		return err
	}
	ownership := &Ownership{Resource: resource, ResourceID: resourceID, OwnerUserID: owner}
	decision, err = Decide(id, action, resource, ownership)
	if err != nil {
		g.failure(id, action, resource, err)
		return err
	}
	if !decision.Allowed {
		g.deny(id, action, resource, decision)
		return fmt.Errorf("%w: %s", httpx.ErrForbidden, decision.Reason)
	}
	return nil
}

// AuthorizeOwner evaluates the policy when the owner is already known, e.g.
// the intended owner of a resource being created.
func (g Guard) AuthorizeOwner(ctx context.Context, action Action, resource Resource, ownerUserID int64) error {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return httpx.ErrUnauthorized
	}
	ownership := &Ownership{Resource: resource, OwnerUserID: ownerUserID}
	decision, err := Decide(id, action, resource, ownership)
	if err != nil {
		g.failure(id, action, resource, err)
		return err
	}
	if !decision.Allowed {
		g.deny(id, action, resource, decision)
		return fmt.Errorf("%w: %s", httpx.ErrForbidden, decision.Reason)
	}
	return nil
}

func (g Guard) deny(id Identity, action Action, resource Resource, decision Decision) {
	if g.Logger == nil {
		return
	}
	g.Logger.Info("authorization denied",
		slog.String("role", string(id.Role)),
		slog.String("resource", string(resource)),
		slog.String("action", string(action)),
		slog.String("reason", decision.Reason))
}

// failure logs structural policy errors loudly; these are bugs, not denials.
func (g Guard) failure(id Identity, action Action, resource Resource, err error) {
	if g.Logger == nil {
		return
	}
	g.Logger.Error("policy evaluation failed",
		slog.String("role", string(id.Role)),
		slog.String("resource", string(resource)),
		slog.String("action", string(action)),
		slog.Any("error", err))
}

func (g Guard) fail(w http.ResponseWriter, id Identity, action Action, resource Resource, err error) {
	g.failure(id, action, resource, err)
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
