package http

import (
	"go.uber.org/fx"

	freighttransport "github.com/freightdesk/freightdesk/internal/transport/http/freight"
)

// Module aggregates all HTTP transport handlers.
var Module = fx.Options(
	freighttransport.Module,
)
