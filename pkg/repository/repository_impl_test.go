package repository

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/clubhouse/pkg/db/dbtest"
	"github.com/smallbiznis/clubhouse/pkg/db/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type court struct {
	ID    snowflake.ID `gorm:"primaryKey"`
	OrgID snowflake.ID `gorm:"not null;index"`
	Name  string       `gorm:"type:text;not null"`
	Slots int
}

func (c *court) OwnerOrgID() snowflake.ID { return c.OrgID }

func TestOrgStoreKeepsOrganizationsApart(t *testing.T) {
	db := dbtest.Open(t, &court{})
	ctx := context.Background()

	ours := ForOrg[court](db, 1)
	theirs := ForOrg[court](db, 2)
	require.NoError(t, ours.Create(ctx, &court{ID: 10, OrgID: 1, Name: "north", Slots: 2}))
	require.NoError(t, ours.Create(ctx, &court{ID: 11, OrgID: 1, Name: "south", Slots: 4}))
	require.NoError(t, theirs.Create(ctx, &court{ID: 20, OrgID: 2, Name: "north", Slots: 2}))

	err := ours.Create(ctx, &court{ID: 30, OrgID: 2, Name: "east"})
	assert.ErrorIs(t, err, ErrOrgMismatch)

	found, err := ours.Find(ctx, &court{Name: "north"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, snowflake.ID(10), found[0].ID)

	missing, err := ours.FindOne(ctx, &court{ID: 20})
	require.NoError(t, err)
	assert.Nil(t, missing)

	count, err := ours.Count(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, snowflake.ID(1), ours.OrgID())
}

func TestOrgStoreAppliesOptions(t *testing.T) {
	db := dbtest.Open(t, &court{})
	ctx := context.Background()
	store := ForOrg[court](db, 7)

	for i, name := range []string{"a", "b", "c"} {
		require.NoError(t, store.Create(ctx, &court{ID: snowflake.ID(100 + i), OrgID: 7, Name: name, Slots: i}))
	}

	found, err := store.Find(ctx, nil, option.WithOrder("id DESC"), option.WithLimit(2))
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "c", found[0].Name)
	assert.Equal(t, "b", found[1].Name)

	first, err := store.FindOne(ctx, nil, option.WithWhere("slots >= ?", 1), option.WithOrder("id ASC"))
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "b", first.Name)
}
