package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	organizationdomain "github.com/smallbiznis/clubhouse/internal/organization/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultOrgName = "Main"
	defaultOrgSlug = "main"
)

// EnsureDefaultOrg seeds the bootstrap organization with a fixed ID. When
// ownerUserID is set the user is also seeded as its OWNER member. Existing
// rows are left untouched.
func EnsureDefaultOrg(db *gorm.DB, orgID, ownerUserID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if orgID <= 0 {
		return errors.New("seed organization id is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		org, err := ensureOrgTx(ctx, tx, snowflake.ID(orgID), snowflake.ID(ownerUserID))
		if err != nil {
			return err
		}
		if ownerUserID <= 0 {
			return nil
		}
		return ensureOwnerTx(ctx, tx, node, org.ID, snowflake.ID(ownerUserID))
	})
}

func ensureOrgTx(ctx context.Context, tx *gorm.DB, orgID, ownerID snowflake.ID) (organizationdomain.Organization, error) {
	var org organizationdomain.Organization
	err := tx.WithContext(ctx).Where("id = ?", orgID).Limit(1).Find(&org).Error
	if err != nil {
		return org, err
	}
	if org.ID != 0 {
		return org, nil
	}

	now := time.Now().UTC()
	org = organizationdomain.Organization{
		ID:        orgID,
		Name:      defaultOrgName,
		Slug:      defaultOrgSlug,
		OwnerID:   ownerID,
		Metadata:  datatypes.JSONMap{"seeded": true},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&org).Error; err != nil {
		return org, err
	}
	return org, nil
}

func ensureOwnerTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, orgID, userID snowflake.ID) error {
	var count int64
	if err := tx.WithContext(ctx).
		Model(&organizationdomain.Member{}).
		Where("org_id = ? AND user_id = ?", orgID, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	member := organizationdomain.Member{
		ID:         node.Generate(),
		OrgID:      orgID,
		UserID:     userID,
		Role:       organizationdomain.RoleOwner,
		MemberType: organizationdomain.MemberTypeMonthly,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return tx.WithContext(ctx).Create(&member).Error
}
