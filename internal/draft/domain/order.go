package domain

import teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"

var abbaPattern = []teamdomain.TeamSide{teamdomain.SideA, teamdomain.SideB, teamdomain.SideB, teamdomain.SideA}

// orderPatterns holds the pick sequence per order mode. ABBA is the only
// mode today.
var orderPatterns = map[string][]teamdomain.TeamSide{
	OrderModeABBA: abbaPattern,
}

func patternFor(orderMode string) []teamdomain.TeamSide {
	if pattern, ok := orderPatterns[orderMode]; ok {
		return pattern
	}
	return abbaPattern
}

// TurnSide returns the side that owns the pick at index. Unknown order modes
// fall back to ABBA.
func TurnSide(orderMode string, index int) teamdomain.TeamSide {
	if index < 0 {
		index = 0
	}
	pattern := patternFor(orderMode)
	return pattern[index%len(pattern)]
}

// RoundNumber returns the 1-based round of a 1-based pick number. A round is
// one pass over the ABBA pattern.
func RoundNumber(pickNumber int) int {
	if pickNumber < 1 {
		return 1
	}
	return (pickNumber-1)/len(abbaPattern) + 1
}

// CurrentTurn returns the side on the clock, or nil when the draft is not
// in progress.
func (d Draft) CurrentTurn() *teamdomain.TeamSide {
	if d.Status != StatusInProgress {
		return nil
	}
	side := TurnSide(d.OrderMode, d.CurrentPickIndex)
	return &side
}

// RemainingPool returns the going members then the game guests that no pick
// has taken yet, preserving input order.
func RemainingPool(members, guests []PoolItem, picks []Pick) []PoolItem {
	taken := make(map[teamdomain.Participant]struct{}, len(picks))
	for _, pick := range picks {
		taken[pick.Participant()] = struct{}{}
	}

	pool := make([]PoolItem, 0, len(members)+len(guests))
	for _, items := range [][]PoolItem{members, guests} {
		for _, item := range items {
			if _, ok := taken[item.Participant()]; ok {
				continue
			}
			pool = append(pool, item)
		}
	}
	return pool
}
