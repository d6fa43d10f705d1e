package guest

import (
	"github.com/smallbiznis/clubhouse/internal/guest/repository"
	"github.com/smallbiznis/clubhouse/internal/guest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("guest.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
