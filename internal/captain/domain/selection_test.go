package domain

import (
	"math/rand/v2"
	"testing"

	"github.com/bwmarrin/snowflake"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func members(ids ...int64) []teamdomain.Participant {
	refs := make([]teamdomain.Participant, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, teamdomain.MemberParticipant(snowflake.ID(id)))
	}
	return refs
}

func guests(ids ...int64) []teamdomain.Participant {
	refs := make([]teamdomain.Participant, 0, len(ids))
	for _, id := range ids {
		refs = append(refs, teamdomain.GuestParticipant(snowflake.ID(id)))
	}
	return refs
}

func TestCandidatePool(t *testing.T) {
	assert.Equal(t, members(1, 2), CandidatePool(members(1, 2), guests(9)))
	assert.Equal(t, append(members(1), guests(9)...), CandidatePool(members(1), guests(9)))
	assert.Equal(t, guests(8, 9), CandidatePool(nil, guests(8, 9)))
}

func TestPickRandomAvoidsPreviousCaptains(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	pool := members(1, 2, 3, 4)
	forbidden := members(1, 2)

	for i := 0; i < 50; i++ {
		a, b, err := PickRandom(pool, forbidden, rng)
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
		assert.NotContains(t, forbidden, a)
		assert.NotContains(t, forbidden, b)
	}
}

func TestPickRandomFallsBackToFullPool(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	pool := members(1, 2, 3)

	a, b, err := PickRandom(pool, members(1, 2), rng)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Contains(t, pool, a)
	assert.Contains(t, pool, b)
}

func TestPickRandomIsDeterministicForSeed(t *testing.T) {
	pool := members(1, 2, 3, 4, 5, 6)
	a1, b1, err := PickRandom(pool, nil, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	a2, b2, err := PickRandom(pool, nil, rand.New(rand.NewPCG(7, 7)))
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}

func TestPickRandomNeedsTwoCandidates(t *testing.T) {
	_, _, err := PickRandom(members(1), nil, rand.New(rand.NewPCG(1, 1)))
	assert.ErrorIs(t, err, ErrNotEnoughCandidates)
}

func TestCaptainsSlots(t *testing.T) {
	a := teamdomain.MemberParticipant(1)
	b := teamdomain.GuestParticipant(2)

	var captains Captains
	captains.SetSlots(&a, &b)
	assert.Equal(t, &a, captains.CaptainA())
	assert.Equal(t, &b, captains.CaptainB())
	assert.ElementsMatch(t, []teamdomain.Participant{a, b}, captains.Occupants())

	captains.SetSlots(nil, &b)
	assert.Nil(t, captains.CaptainA())
	assert.Nil(t, captains.CaptainAMemberID)
}
