package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	billingdomain "github.com/smallbiznis/clubhouse/internal/billing/domain"
)

const defaultSettingsTTL = 30 * time.Second

// BillingSettingsCache stores resolved billing settings per organization.
type BillingSettingsCache interface {
	Get(orgID snowflake.ID) (billingdomain.Settings, bool)
	Set(settings billingdomain.Settings)
	Invalidate(orgID snowflake.ID)
}

type billingSettingsCache struct {
	settings Cache[snowflake.ID, billingdomain.Settings]
	ttl      time.Duration
}

// NewBillingSettingsCache returns an in-memory settings cache.
func NewBillingSettingsCache() BillingSettingsCache {
	return &billingSettingsCache{
		settings: NewTTLCache[snowflake.ID, billingdomain.Settings](),
		ttl:      defaultSettingsTTL,
	}
}

func (c *billingSettingsCache) Get(orgID snowflake.ID) (billingdomain.Settings, bool) {
	return c.settings.Get(orgID)
}

func (c *billingSettingsCache) Set(settings billingdomain.Settings) {
	if settings.OrgID == 0 {
		return
	}
	c.settings.Set(settings.OrgID, settings, c.ttl)
}

func (c *billingSettingsCache) Invalidate(orgID snowflake.ID) {
	c.settings.Delete(orgID)
}
