package migration

import (
	"github.com/smallbiznis/clubhouse/internal/config"
	"github.com/smallbiznis/clubhouse/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if err := Run(conn); err != nil {
			return err
		}
		if cfg.DefaultOrgID != 0 {
			return seed.EnsureDefaultOrg(conn, cfg.DefaultOrgID, cfg.DefaultOwnerID)
		}
		return nil
	}),
)
