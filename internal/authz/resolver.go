package authz

import (
	"context"
	"errors"
)

// ErrResourceNotFound is returned by resolvers when the resource does not
// exist. Enforcement treats it as a denial, never as allow-by-default and
// never as an infrastructure failure.
var ErrResourceNotFound = errors.New("authz: resource not found")

// Resolver supplies the owning user of a resource. Each service injects its
// own implementation backed by its data store; the engine never touches
// storage itself. Ownership is resolved fresh for every decision and must not
// be cached across requests.
type Resolver interface {
	ResolveOwner(ctx context.Context, resource Resource, resourceID int64) (int64, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, resource Resource, resourceID int64) (int64, error)

// ResolveOwner implements Resolver.
func (f ResolverFunc) ResolveOwner(ctx context.Context, resource Resource, resourceID int64) (int64, error) {
	return f(ctx, resource, resourceID)
}
