package domain

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const isoDateLayout = "2006-01-02"

var (
	monthlyKeyPattern = regexp.MustCompile(`^(\d{4})-(\d{2})$`)
	weeklyKeyPattern  = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)
)

// Cycle is a billing window [Start, End) in UTC and its canonical key.
type Cycle struct {
	Key   string
	Start time.Time
	End   time.Time
}

// ComputeCycle resolves the billing window for settings. An empty overrideKey
// selects the cycle containing now.
func ComputeCycle(settings Settings, overrideKey string, now time.Time) (Cycle, error) {
	overrideKey = strings.TrimSpace(overrideKey)
	now = now.UTC()

	switch settings.CycleType {
	case CycleMonthly:
		return monthlyCycle(overrideKey, now)
	case CycleWeekly:
		return weeklyCycle(overrideKey, now)
	case CycleCustomWeeks:
		return customWeeksCycle(settings, overrideKey, now)
	default:
		return Cycle{}, ErrInvalidCycleType
	}
}

func monthlyCycle(key string, now time.Time) (Cycle, error) {
	year, month := now.Year(), int(now.Month())
	if key != "" {
		match := monthlyKeyPattern.FindStringSubmatch(key)
		if match == nil {
			return Cycle{}, ErrInvalidCycleKey
		}
		year, _ = strconv.Atoi(match[1])
		month, _ = strconv.Atoi(match[2])
		if year < 1 || month < 1 || month > 12 {
			return Cycle{}, ErrInvalidCycleKey
		}
	}

	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Cycle{
		Key:   fmt.Sprintf("%04d-%02d", year, month),
		Start: start,
		End:   start.AddDate(0, 1, 0),
	}, nil
}

func weeklyCycle(key string, now time.Time) (Cycle, error) {
	year, week := now.ISOWeek()
	if key != "" {
		match := weeklyKeyPattern.FindStringSubmatch(key)
		if match == nil {
			return Cycle{}, ErrInvalidCycleKey
		}
		year, _ = strconv.Atoi(match[1])
		week, _ = strconv.Atoi(match[2])
		if year < 1 || week < 1 || week > 53 {
			return Cycle{}, ErrInvalidCycleKey
		}
	}

	start, ok := isoWeekStart(year, week)
	if !ok {
		return Cycle{}, ErrInvalidCycleKey
	}
	return Cycle{
		Key:   fmt.Sprintf("%04d-W%02d", year, week),
		Start: start,
		End:   start.AddDate(0, 0, 7),
	}, nil
}

// isoWeekStart returns the Monday of the ISO week. ok is false when the
// year has no such week.
func isoWeekStart(year, week int) (time.Time, bool) {
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	mondayOffset := (int(jan4.Weekday()) + 6) % 7
	start := jan4.AddDate(0, 0, -mondayOffset+(week-1)*7)
	y, w := start.ISOWeek()
	return start, y == year && w == week
}

func customWeeksCycle(settings Settings, key string, now time.Time) (Cycle, error) {
	if settings.CycleWeeks == nil || *settings.CycleWeeks <= 0 {
		return Cycle{}, ErrInvalidCycleWeeks
	}
	periodDays := *settings.CycleWeeks * 7

	var start time.Time
	if key != "" {
		parsed, err := time.Parse(isoDateLayout, key)
		if err != nil {
			return Cycle{}, ErrInvalidCycleKey
		}
		start = parsed.UTC()
	} else {
		anchor := DateOnly(settings.AnchorDate)
		today := DateOnly(now)
		index := 0
		if today.After(anchor) {
			deltaDays := int(today.Sub(anchor).Hours() / 24)
			index = deltaDays / periodDays
		}
		start = anchor.AddDate(0, 0, index*periodDays)
	}

	return Cycle{
		Key:   start.Format(isoDateLayout),
		Start: start,
		End:   start.AddDate(0, 0, periodDays),
	}, nil
}

// DateOnly strips the clock part of t in UTC.
func DateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
