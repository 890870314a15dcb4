package audit

import (
	"github.com/officepulse/officepulse/internal/audit/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("audit",
	fx.Provide(repository.Provide),
)
