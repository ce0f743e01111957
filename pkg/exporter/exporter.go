package exporter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Exporter is responsible for bringing up a web server that serves the
// metrics of a prometheus gatherer (e.g., a registry, or `pkg/collector`
// gathered directly).
//
type Exporter struct {
	// listenAddress is the full address used by prometheus
	// to listen for scraping requests.
	//
	// Examples:
	// - :9888
	// - 127.0.0.2:1313
	//
	listenAddress string

	// telemetryPath configures the path under which
	// the prometheus metrics are reported.
	//
	// For instance:
	// - /metrics
	// - /telemetry
	//
	telemetryPath string

	// gatherer is where the metrics served come from.
	//
	gatherer prometheus.Gatherer

	// listener is the TCP listener used by the webserver. `nil` if no
	// server is running.
	//
	listener net.Listener

	log logr.Logger
}

// Option is a functional argument that mutates the exporter to override
// default behavior.
//
type Option func(e *Exporter)

// WithBindAddress overrides the default address (`:9888`) to listen on.
//
func WithBindAddress(v string) func(e *Exporter) {
	return func(e *Exporter) {
		e.listenAddress = v
	}
}

// WithTelemetryPath overrides the default path (`/metrics`) under which
// metrics are served.
//
func WithTelemetryPath(v string) func(e *Exporter) {
	return func(e *Exporter) {
		e.telemetryPath = v
	}
}

// WithGatherer sets the registry to serve metrics from.
//
func WithGatherer(v prometheus.Gatherer) func(e *Exporter) {
	return func(e *Exporter) {
		e.gatherer = v
	}
}

// WithLogger overrides the default development logger.
//
func WithLogger(v logr.Logger) func(e *Exporter) {
	return func(e *Exporter) {
		e.log = v
	}
}

// New instantiates an exporter. Without `WithGatherer`, an empty registry
// is served.
//
func New(opts ...Option) (*Exporter, error) {
	defaultLogger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("zap new development: %w", err)
	}

	e := &Exporter{
		listenAddress: ":9888",
		telemetryPath: "/metrics",
		gatherer:      prometheus.NewRegistry(),
		log:           zapr.NewLogger(defaultLogger.Named("exporter")),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Handler gives back the mux that serves metrics under the telemetry path.
//
// Errors during a collection don't fail the request: what could be
// gathered is served, and the errors are logged.
//
func (e *Exporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(e.telemetryPath, promhttp.HandlerFor(e.gatherer,
		promhttp.HandlerOpts{
			ErrorLog:      &errorLogger{log: e.log},
			ErrorHandling: promhttp.ContinueOnError,
		},
	))

	return mux
}

// Addr is the address that the exporter is listening on, or an empty
// string if it's not running.
//
func (e *Exporter) Addr() string {
	if e.listener == nil {
		return ""
	}

	return e.listener.Addr().String()
}

// Listen binds to the listen address. `Run` calls it if it hasn't been
// called before.
//
func (e *Exporter) Listen() error {
	if e.listener != nil {
		return nil
	}

	listener, err := net.Listen("tcp", e.listenAddress)
	if err != nil {
		return fmt.Errorf("listen on '%s': %w", e.listenAddress, err)
	}

	e.listener = listener

	return nil
}

// Run initiates the HTTP server to serve the metrics.
//
// ps.: this is a BLOCKING method - make sure you either make use of goroutines
// to not block if needed.
//
func (e *Exporter) Run(ctx context.Context) error {
	if err := e.Listen(); err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	doneChan := make(chan error, 1)

	go func() {
		defer close(doneChan)

		e.log.WithValues(
			"addr", e.Addr(),
			"path", e.telemetryPath,
		).Info("listening")

		if err := http.Serve(e.listener, e.Handler()); err != nil {
			doneChan <- fmt.Errorf(
				"failed listening on address %s: %w",
				e.listenAddress, err,
			)
		}
	}()

	select {
	case err := <-doneChan:
		if err != nil {
			return fmt.Errorf("donechan err: %w", err)
		}
	case <-ctx.Done():
		return fmt.Errorf("ctx err: %w", ctx.Err())
	}

	return nil
}

// Close gracefully closes the tcp listener associated with it.
//
func (e *Exporter) Close() (err error) {
	if e.listener == nil {
		return nil
	}

	e.log.Info("closing")
	if err := e.listener.Close(); err != nil {
		return fmt.Errorf("close: %w", err)
	}

	return nil
}

// errorLogger adapts logr to the `Println` logger that promhttp reports
// gathering errors to.
//
type errorLogger struct {
	log logr.Logger
}

func (l *errorLogger) Println(v ...interface{}) {
	msg := strings.TrimSuffix(fmt.Sprintln(v...), "\n")
	l.log.Error(errors.New(msg), "promhttp")
}
