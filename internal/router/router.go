package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"machine-metrics/internal/domain"
	"machine-metrics/internal/endpoints"
	"machine-metrics/internal/util"
)

const shutdownTimeout = 25 * time.Second

type Options struct {
	Tokens map[string]struct{}
	// Interface labels the network series in the exposition output.
	Interface string
}

func NewRouter(cache domain.MetricCache, opts Options, webSlogger *util.MetricsLogger) *mux.Router {
	r := mux.NewRouter()

	addRoutes(r, cache, opts, webSlogger)

	r.Use(loggingMiddleware(webSlogger))

	return r
}

func addRoutes(r *mux.Router, cache domain.MetricCache, opts Options, webSlogger *util.MetricsLogger) {

	healthHandler := &endpoints.Health{}
	healthHandler.Init(cache)

	metricsHandler := &endpoints.Metrics{}
	metricsHandler.Init(cache, webSlogger)

	expositionHandler := &endpoints.Exposition{}
	expositionHandler.Init(cache, opts.Interface, webSlogger)

	r.HandleFunc("/health", healthHandler.GetHealthHandler).Methods("GET")

	api := r.PathPrefix("/api_token").Subrouter()
	api.Use(endpoints.TokenAuthMiddleware(opts.Tokens, webSlogger))

	api.HandleFunc("/get_machine_metrics_all/v1", metricsHandler.GetMachineMetricsAllHandler).Methods("POST")
	api.HandleFunc("/get_machine_metrics/v1", metricsHandler.GetMachineMetricsHandler).Methods("POST")
	api.HandleFunc("/metrics", expositionHandler.GetExpositionHandler).Methods("GET")
}

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
}

// Run serves until ctx is cancelled and then drains in-flight requests.
func Run(ctx context.Context, server *http.Server, webSlogger *util.MetricsLogger) error {
	errCh := make(chan error, 1)
	go func() {
		webSlogger.LogEvent(util.LOG_LEVEL_INFO, "Listening on", server.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	webSlogger.LogEvent(util.LOG_LEVEL_INFO, "Shutting down server...")
	if err := gracefulShutdown(server, shutdownTimeout); err != nil {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	webSlogger.LogEvent(util.LOG_LEVEL_INFO, "Server stopped gracefully.")
	return nil
}

func gracefulShutdown(server *http.Server, maximumTime time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), maximumTime)
	defer cancel()

	return server.Shutdown(ctx)
}

func loggingMiddleware(logger *util.MetricsLogger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.LogEvent(util.LOG_LEVEL_INFO, fmt.Sprintf("Request: %s %s", r.Method, r.RequestURI))
			next.ServeHTTP(w, r)
		})
	}
}
