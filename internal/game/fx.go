package game

import (
	"github.com/smallbiznis/clubhouse/internal/game/repository"
	"github.com/smallbiznis/clubhouse/internal/game/service"
	"go.uber.org/fx"
)

var Module = fx.Module("game.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
