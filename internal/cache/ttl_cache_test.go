package cache

import (
	"testing"
	"time"

	billingdomain "github.com/smallbiznis/clubhouse/internal/billing/domain"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpires(t *testing.T) {
	now := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)
	c := newTTLCache[string, int](func() time.Time { return now })

	c.Set("a", 1, time.Minute)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, got)

	now = now.Add(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Empty(t, c.entries)
}

func TestTTLCacheIgnoresNonPositiveTTL(t *testing.T) {
	c := newTTLCache[string, int](time.Now)
	c.Set("a", 1, 0)
	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestBillingSettingsCache(t *testing.T) {
	c := NewBillingSettingsCache()

	c.Set(billingdomain.Settings{})
	_, ok := c.Get(0)
	assert.False(t, ok)

	c.Set(billingdomain.Settings{OrgID: 7, DueDay: 5})
	got, ok := c.Get(7)
	assert.True(t, ok)
	assert.Equal(t, 5, got.DueDay)

	c.Invalidate(7)
	_, ok = c.Get(7)
	assert.False(t, ok)
}
