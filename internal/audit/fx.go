package audit

import (
	"github.com/smallbiznis/clubhouse/internal/audit/repository"
	"github.com/smallbiznis/clubhouse/internal/audit/service"
	"go.uber.org/fx"
)

// Module exports the audit Service. Other domains write the trail through
// it, so the repository stays private to this module.
var Module = fx.Module("audit",
	fx.Provide(repository.Provide, fx.Private),
	fx.Provide(service.NewService),
)
