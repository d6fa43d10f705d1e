package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeCycleMonthly(t *testing.T) {
	settings := Settings{CycleType: CycleMonthly}

	cycle, err := ComputeCycle(settings, "2026-03", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2026-03", cycle.Key)
	assert.Equal(t, date(2026, time.March, 1), cycle.Start)
	assert.Equal(t, date(2026, time.April, 1), cycle.End)

	cycle, err = ComputeCycle(settings, "2025-12", time.Now())
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.January, 1), cycle.End)

	now := time.Date(2026, time.July, 19, 23, 59, 0, 0, time.UTC)
	cycle, err = ComputeCycle(settings, "", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-07", cycle.Key)
	assert.Equal(t, date(2026, time.July, 1), cycle.Start)
}

func TestComputeCycleMonthlyUsesUTC(t *testing.T) {
	jakarta := time.FixedZone("WIB", 7*60*60)
	now := time.Date(2026, time.August, 1, 3, 0, 0, 0, jakarta)

	cycle, err := ComputeCycle(Settings{CycleType: CycleMonthly}, "", now)
	require.NoError(t, err)
	assert.Equal(t, "2026-07", cycle.Key)
}

func TestComputeCycleWeekly(t *testing.T) {
	settings := Settings{CycleType: CycleWeekly}

	cycle, err := ComputeCycle(settings, "2026-W09", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2026-W09", cycle.Key)
	assert.Equal(t, date(2026, time.February, 23), cycle.Start)
	assert.Equal(t, time.Monday, cycle.Start.Weekday())
	assert.Equal(t, cycle.Start.AddDate(0, 0, 7), cycle.End)

	// 2026-01-01 belongs to ISO week 1 of 2026, which starts in 2025.
	cycle, err = ComputeCycle(settings, "", date(2026, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, "2026-W01", cycle.Key)
	assert.Equal(t, date(2025, time.December, 29), cycle.Start)

	// 2020 has 53 ISO weeks, 2021 does not.
	_, err = ComputeCycle(settings, "2020-W53", time.Now())
	assert.NoError(t, err)
	_, err = ComputeCycle(settings, "2021-W53", time.Now())
	assert.ErrorIs(t, err, ErrInvalidCycleKey)
}

func TestComputeCycleCustomWeeks(t *testing.T) {
	settings := Settings{
		CycleType:  CycleCustomWeeks,
		CycleWeeks: intPtr(2),
		AnchorDate: date(2026, time.January, 1),
	}

	cycle, err := ComputeCycle(settings, "2026-01-15", time.Now())
	require.NoError(t, err)
	assert.Equal(t, "2026-01-15", cycle.Key)
	assert.Equal(t, date(2026, time.January, 15), cycle.Start)
	assert.Equal(t, date(2026, time.January, 29), cycle.End)

	cycle, err = ComputeCycle(settings, "", time.Date(2026, time.February, 3, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "2026-01-29", cycle.Key)

	cycle, err = ComputeCycle(settings, "", date(2026, time.January, 14))
	require.NoError(t, err)
	assert.Equal(t, "2026-01-01", cycle.Key)
}

func TestComputeCycleCustomWeeksClampsBeforeAnchor(t *testing.T) {
	settings := Settings{
		CycleType:  CycleCustomWeeks,
		CycleWeeks: intPtr(3),
		AnchorDate: date(2026, time.June, 1),
	}

	cycle, err := ComputeCycle(settings, "", date(2026, time.May, 1))
	require.NoError(t, err)
	assert.Equal(t, date(2026, time.June, 1), cycle.Start)
	assert.Equal(t, date(2026, time.June, 22), cycle.End)
}

func TestComputeCycleRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name     string
		settings Settings
		key      string
		want     error
	}{
		{name: "monthly short month", settings: Settings{CycleType: CycleMonthly}, key: "2026-3", want: ErrInvalidCycleKey},
		{name: "monthly month 13", settings: Settings{CycleType: CycleMonthly}, key: "2026-13", want: ErrInvalidCycleKey},
		{name: "monthly garbage", settings: Settings{CycleType: CycleMonthly}, key: "march", want: ErrInvalidCycleKey},
		{name: "weekly missing W", settings: Settings{CycleType: CycleWeekly}, key: "2026-09", want: ErrInvalidCycleKey},
		{name: "weekly week 0", settings: Settings{CycleType: CycleWeekly}, key: "2026-W00", want: ErrInvalidCycleKey},
		{name: "custom without weeks", settings: Settings{CycleType: CycleCustomWeeks}, key: "", want: ErrInvalidCycleWeeks},
		{name: "custom zero weeks", settings: Settings{CycleType: CycleCustomWeeks, CycleWeeks: intPtr(0)}, key: "2026-01-01", want: ErrInvalidCycleWeeks},
		{name: "custom bad date", settings: Settings{CycleType: CycleCustomWeeks, CycleWeeks: intPtr(1)}, key: "2026-02-30", want: ErrInvalidCycleKey},
		{name: "unknown cycle", settings: Settings{CycleType: "DAILY"}, key: "", want: ErrInvalidCycleType},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ComputeCycle(tc.settings, tc.key, time.Now())
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestDecideEnsure(t *testing.T) {
	assert.Equal(t, EnsureCreate, DecideEnsure(nil, false))
	assert.Equal(t, EnsureCreate, DecideEnsure(nil, true))

	for _, force := range []bool{false, true} {
		assert.Equal(t, EnsureSkip, DecideEnsure(&Charge{Status: ChargeStatusPaid}, force))
	}

	assert.Equal(t, EnsureSkip, DecideEnsure(&Charge{Status: ChargeStatusPending}, false))
	assert.Equal(t, EnsureSkip, DecideEnsure(&Charge{Status: ChargeStatusVoid}, false))
	assert.Equal(t, EnsureRefresh, DecideEnsure(&Charge{Status: ChargeStatusPending}, true))
	assert.Equal(t, EnsureRefresh, DecideEnsure(&Charge{Status: ChargeStatusVoid}, true))
}

func TestResolveTransition(t *testing.T) {
	cases := []struct {
		current ChargeStatus
		target  ChargeStatus
		apply   bool
		err     error
	}{
		{ChargeStatusPending, ChargeStatusPaid, true, nil},
		{ChargeStatusPending, ChargeStatusVoid, true, nil},
		{ChargeStatusPaid, ChargeStatusPaid, false, nil},
		{ChargeStatusVoid, ChargeStatusVoid, false, nil},
		{ChargeStatusPaid, ChargeStatusVoid, false, ErrChargeAlreadyPaid},
		{ChargeStatusVoid, ChargeStatusPaid, false, ErrChargeVoided},
		{ChargeStatusPending, ChargeStatusPending, false, ErrInvalidStatus},
		{ChargeStatusPaid, "REFUNDED", false, ErrInvalidStatus},
	}

	for _, tc := range cases {
		t.Run(string(tc.current)+"->"+string(tc.target), func(t *testing.T) {
			apply, err := ResolveTransition(tc.current, tc.target)
			assert.Equal(t, tc.apply, apply)
			if tc.err == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tc.err)
			}
		})
	}
}

func TestBillingModeIncludes(t *testing.T) {
	assert.True(t, BillingModeHybrid.IncludesMembership())
	assert.True(t, BillingModeHybrid.IncludesPerSession())
	assert.True(t, BillingModeMembership.IncludesMembership())
	assert.False(t, BillingModeMembership.IncludesPerSession())
	assert.False(t, BillingModePerSession.IncludesMembership())
}
