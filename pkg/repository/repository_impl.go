package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/pkg/db/option"
	"gorm.io/gorm"
)

type orgStore[T any] struct {
	db    *gorm.DB
	orgID snowflake.ID
}

// ForOrg returns a store bound to db, which may be a transaction.
func ForOrg[T any](db *gorm.DB, orgID snowflake.ID) OrgStore[T] {
	return &orgStore[T]{db: db, orgID: orgID}
}

func (s *orgStore[T]) OrgID() snowflake.ID { return s.orgID }

func (s *orgStore[T]) Find(ctx context.Context, query *T, opts ...option.QueryOption) ([]*T, error) {
	var result []*T
	err := s.scoped(ctx, query, opts...).Find(&result).Error
	return result, err
}

// FindOne returns nil without an error when nothing matches.
func (s *orgStore[T]) FindOne(ctx context.Context, query *T, opts ...option.QueryOption) (*T, error) {
	var result T
	err := s.scoped(ctx, query, opts...).First(&result).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (s *orgStore[T]) Create(ctx context.Context, resource *T) error {
	if owned, ok := any(resource).(OrgOwned); ok && owned.OwnerOrgID() != s.orgID {
		return ErrOrgMismatch
	}
	return s.db.WithContext(ctx).Create(resource).Error
}

func (s *orgStore[T]) Count(ctx context.Context, query *T) (int64, error) {
	var count int64
	err := s.scoped(ctx, query).Model(new(T)).Count(&count).Error
	return count, err
}

func (s *orgStore[T]) scoped(ctx context.Context, query *T, opts ...option.QueryOption) *gorm.DB {
	stmt := option.WithWhere("org_id = ?", s.orgID).Apply(s.db.WithContext(ctx))
	if query != nil {
		stmt = stmt.Where(query)
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}
