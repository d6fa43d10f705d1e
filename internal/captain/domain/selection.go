package domain

import (
	"math/rand/v2"

	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
)

// CandidatePool returns the going members when there are at least two,
// otherwise the going members followed by the game guests.
func CandidatePool(going, guests []teamdomain.Participant) []teamdomain.Participant {
	if len(going) >= 2 {
		return going
	}
	pool := make([]teamdomain.Participant, 0, len(going)+len(guests))
	pool = append(pool, going...)
	return append(pool, guests...)
}

// PickRandom samples two distinct captains from pool, avoiding forbidden
// participants while at least two others remain. The first sample is the
// side A captain.
func PickRandom(pool, forbidden []teamdomain.Participant, rng *rand.Rand) (teamdomain.Participant, teamdomain.Participant, error) {
	if len(pool) < 2 {
		return teamdomain.Participant{}, teamdomain.Participant{}, ErrNotEnoughCandidates
	}

	blocked := make(map[teamdomain.Participant]struct{}, len(forbidden))
	for _, ref := range forbidden {
		blocked[ref] = struct{}{}
	}
	filtered := make([]teamdomain.Participant, 0, len(pool))
	for _, ref := range pool {
		if _, ok := blocked[ref]; !ok {
			filtered = append(filtered, ref)
		}
	}

	candidates := pool
	if len(filtered) >= 2 {
		candidates = filtered
	}

	first := rng.IntN(len(candidates))
	second := rng.IntN(len(candidates) - 1)
	if second >= first {
		second++
	}
	return candidates[first], candidates[second], nil
}
