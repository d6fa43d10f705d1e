package seed

import (
	"testing"

	organizationdomain "github.com/smallbiznis/clubhouse/internal/organization/domain"
	"github.com/smallbiznis/clubhouse/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureDefaultOrgIsIdempotent(t *testing.T) {
	db := dbtest.Open(t, &organizationdomain.Organization{}, &organizationdomain.Member{})

	require.NoError(t, EnsureDefaultOrg(db, 1001, 42))
	require.NoError(t, EnsureDefaultOrg(db, 1001, 42))

	var org organizationdomain.Organization
	require.NoError(t, db.First(&org, "id = ?", 1001).Error)
	assert.Equal(t, "main", org.Slug)

	var members []organizationdomain.Member
	require.NoError(t, db.Where("org_id = ?", 1001).Find(&members).Error)
	require.Len(t, members, 1)
	assert.Equal(t, organizationdomain.RoleOwner, members[0].Role)
	assert.EqualValues(t, 42, members[0].UserID)
}

func TestEnsureDefaultOrgWithoutOwner(t *testing.T) {
	db := dbtest.Open(t, &organizationdomain.Organization{}, &organizationdomain.Member{})

	require.NoError(t, EnsureDefaultOrg(db, 7, 0))

	var count int64
	require.NoError(t, db.Model(&organizationdomain.Member{}).Count(&count).Error)
	assert.Zero(t, count)

	assert.Error(t, EnsureDefaultOrg(db, 0, 0))
	assert.Error(t, EnsureDefaultOrg(nil, 7, 0))
}
