package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tsegai/nexbank/internal/infrastructure/observability"
)

func Setup(serviceName, logLevel, appEnv string) (func(context.Context) error, http.Handler) {
	observability.InitLogger(logLevel, appEnv)
	observability.InitMetrics()
	tracerShutdown := observability.InitTracing(serviceName)
	return tracerShutdown, promhttp.Handler()
}
