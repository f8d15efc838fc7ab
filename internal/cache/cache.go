// Package cache provides a bounded query-result cache keyed by entity kind
// plus query signature. Values are JSON snapshots of service responses; every
// write to an entity kind invalidates all cached queries for that kind, which
// is coarse but never serves stale-deleted data.
package cache

import (
	"context"
	"strings"

	"github.com/clove/commerce-core/internal/store"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
	// InvalidateKind drops every cached query tagged with the kind.
	InvalidateKind(ctx context.Context, kind store.Kind)
}

// Key builds a cache key from the entity kind and the query signature parts.
// The kind prefix is what InvalidateKind matches on.
func Key(kind store.Kind, parts ...string) string {
	return string(kind) + ":" + strings.Join(parts, ":")
}
