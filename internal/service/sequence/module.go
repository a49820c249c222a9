package sequence

import "go.uber.org/fx"

// Module provides the order number sequencer to Fx.
var Module = fx.Provide(NewSequencer)
