// Package repository provides a generic store for rows owned by one
// organization. Every read is filtered on org_id and every write must
// belong to the store's organization.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/pkg/db/option"
)

// ErrOrgMismatch is returned when a write targets another organization.
var ErrOrgMismatch = errors.New("org_mismatch")

// OrgOwned is implemented by models that carry their organization id.
type OrgOwned interface {
	OwnerOrgID() snowflake.ID
}

// OrgStore reads and writes T inside a single organization.
type OrgStore[T any] interface {
	OrgID() snowflake.ID
	Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error)
	FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	Count(ctx context.Context, query *T) (int64, error)
}
