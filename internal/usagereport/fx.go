package usagereport

import "go.uber.org/fx"

var Module = fx.Module("usagereport",
	fx.Provide(NewImporter),
)
