package billing

import (
	"github.com/smallbiznis/clubhouse/internal/billing/receipt"
	"github.com/smallbiznis/clubhouse/internal/billing/repository"
	"github.com/smallbiznis/clubhouse/internal/billing/service"
	"github.com/smallbiznis/clubhouse/internal/cache"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(receipt.NewRenderer),
	fx.Provide(cache.NewBillingSettingsCache),
	fx.Provide(service.NewService),
)
