package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// BillingDefaults seeds the billing settings row created for an organization
// on first access.
type BillingDefaults struct {
	Mode             string `mapstructure:"mode"`
	CycleType        string `mapstructure:"cycleType"`
	CycleWeeks       int    `mapstructure:"cycleWeeks"`
	DueDay           int    `mapstructure:"dueDay"`
	MembershipAmount int64  `mapstructure:"membershipAmount"`
	SessionAmount    int64  `mapstructure:"sessionAmount"`
}

func DefaultBillingDefaults() BillingDefaults {
	return BillingDefaults{
		Mode:      "HYBRID",
		CycleType: "MONTHLY",
		DueDay:    1,
	}
}

type BillingDefaultsHolder struct {
	current atomic.Value // holds BillingDefaults
}

// NewStaticBillingDefaultsHolder returns a holder that never reloads.
func NewStaticBillingDefaultsHolder(defaults BillingDefaults) *BillingDefaultsHolder {
	holder := &BillingDefaultsHolder{}
	holder.current.Store(defaults)
	return holder
}

func NewBillingDefaultsHolder(log *zap.Logger) (*BillingDefaultsHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.billing")

	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/clubhouse/config")
	v.AddConfigPath("/etc/clubhouse")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CLUBHOUSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingDefaults()
	v.SetDefault("billing.mode", defaults.Mode)
	v.SetDefault("billing.cycleType", defaults.CycleType)
	v.SetDefault("billing.cycleWeeks", defaults.CycleWeeks)
	v.SetDefault("billing.dueDay", defaults.DueDay)
	v.SetDefault("billing.membershipAmount", defaults.MembershipAmount)
	v.SetDefault("billing.sessionAmount", defaults.SessionAmount)

	fileFound := true
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		fileFound = false
	}

	var cfg BillingDefaults
	if err := v.UnmarshalKey("billing", &cfg); err != nil {
		return nil, err
	}
	if err := validateBillingDefaults(cfg); err != nil {
		return nil, err
	}

	holder := &BillingDefaultsHolder{}
	holder.current.Store(cfg)

	if !fileFound {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated BillingDefaults
		if err := v.UnmarshalKey("billing", &updated); err != nil {
			log.Warn("billing defaults reload failed", zap.Error(err))
			return
		}
		if err := validateBillingDefaults(updated); err != nil {
			log.Warn("invalid billing defaults ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("billing defaults reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *BillingDefaultsHolder) Get() BillingDefaults {
	if h == nil {
		return DefaultBillingDefaults()
	}
	value, ok := h.current.Load().(BillingDefaults)
	if !ok {
		return DefaultBillingDefaults()
	}
	return value
}

func validateBillingDefaults(cfg BillingDefaults) error {
	switch strings.ToUpper(strings.TrimSpace(cfg.Mode)) {
	case "MEMBERSHIP", "PER_SESSION", "HYBRID":
	default:
		return errors.New("billing.mode must be MEMBERSHIP, PER_SESSION or HYBRID")
	}
	switch strings.ToUpper(strings.TrimSpace(cfg.CycleType)) {
	case "MONTHLY", "WEEKLY":
	case "CUSTOM_WEEKS":
		if cfg.CycleWeeks <= 0 {
			return errors.New("billing.cycleWeeks must be positive for CUSTOM_WEEKS")
		}
	default:
		return errors.New("billing.cycleType must be MONTHLY, WEEKLY or CUSTOM_WEEKS")
	}
	if cfg.DueDay < 1 || cfg.DueDay > 31 {
		return errors.New("billing.dueDay must be between 1 and 31")
	}
	if cfg.MembershipAmount < 0 || cfg.SessionAmount < 0 {
		return errors.New("billing amounts cannot be negative")
	}
	return nil
}
