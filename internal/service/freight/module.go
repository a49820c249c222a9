package freight

import "go.uber.org/fx"

// Module provides the freight order service to Fx.
var Module = fx.Provide(NewService)
