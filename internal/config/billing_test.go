package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateBillingDefaults(t *testing.T) {
	cases := []struct {
		name    string
		cfg     BillingDefaults
		wantErr bool
	}{
		{name: "defaults", cfg: DefaultBillingDefaults()},
		{name: "custom weeks", cfg: BillingDefaults{Mode: "MEMBERSHIP", CycleType: "CUSTOM_WEEKS", CycleWeeks: 2, DueDay: 5}},
		{name: "custom weeks without weeks", cfg: BillingDefaults{Mode: "HYBRID", CycleType: "CUSTOM_WEEKS", DueDay: 1}, wantErr: true},
		{name: "unknown mode", cfg: BillingDefaults{Mode: "FREE", CycleType: "MONTHLY", DueDay: 1}, wantErr: true},
		{name: "due day out of range", cfg: BillingDefaults{Mode: "HYBRID", CycleType: "WEEKLY", DueDay: 32}, wantErr: true},
		{name: "negative amount", cfg: BillingDefaults{Mode: "HYBRID", CycleType: "MONTHLY", DueDay: 1, SessionAmount: -1}, wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateBillingDefaults(tc.cfg)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestStaticBillingDefaultsHolder(t *testing.T) {
	holder := NewStaticBillingDefaultsHolder(BillingDefaults{Mode: "MEMBERSHIP", CycleType: "WEEKLY", DueDay: 3, MembershipAmount: 1000})
	assert.Equal(t, int64(1000), holder.Get().MembershipAmount)

	var nilHolder *BillingDefaultsHolder
	assert.Equal(t, DefaultBillingDefaults(), nilHolder.Get())
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("INTERNAL_KEY", " secret ")
	t.Setenv("SCHEDULER_RUN_INTERVAL", "15m")
	t.Setenv("SCHEDULER_ENABLED", "off")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg := Load()
	require.Equal(t, "secret", cfg.InternalKey)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.RunInterval)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.True(t, cfg.Redis.Enabled())
}
