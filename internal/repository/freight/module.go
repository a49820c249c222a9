package freight

import "go.uber.org/fx"

// Module provides the freight order repository to Fx.
var Module = fx.Provide(NewRepository)
