package captain

import (
	"github.com/smallbiznis/clubhouse/internal/captain/repository"
	"github.com/smallbiznis/clubhouse/internal/captain/service"
	"go.uber.org/fx"
)

var Module = fx.Module("captain.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
