package app

import (
	"go.uber.org/fx"

	"github.com/freightdesk/freightdesk/internal/cache"
	"github.com/freightdesk/freightdesk/internal/config"
	"github.com/freightdesk/freightdesk/internal/database"
	"github.com/freightdesk/freightdesk/internal/logger"
	"github.com/freightdesk/freightdesk/internal/messaging"
	"github.com/freightdesk/freightdesk/internal/observability"
	repositoryfreight "github.com/freightdesk/freightdesk/internal/repository/freight"
	grpcserver "github.com/freightdesk/freightdesk/internal/server/grpc"
	httpserver "github.com/freightdesk/freightdesk/internal/server/http"
	servicefreight "github.com/freightdesk/freightdesk/internal/service/freight"
	servicesequence "github.com/freightdesk/freightdesk/internal/service/sequence"
	transporthttp "github.com/freightdesk/freightdesk/internal/transport/http"
	"github.com/freightdesk/freightdesk/internal/worker"
	workerfreight "github.com/freightdesk/freightdesk/internal/worker/freight"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	repositoryfreight.Module,
	servicesequence.Module,
	servicefreight.Module,
)

// HTTP wires the HTTP transport on top of the core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	transporthttp.Module,
)

// GRPC wires the gRPC server shell on top of the core modules. No RPC
// services are registered yet; the interceptor-instrumented server is kept
// ready for internal integrations.
var GRPC = fx.Options(
	Core,
	grpcserver.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerfreight.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
