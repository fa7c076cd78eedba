// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/urfave/cli/v2"

	"rivaas.dev/traceprop/client"
	"rivaas.dev/traceprop/config"
	"rivaas.dev/traceprop/metrics"
	"rivaas.dev/traceprop/server"
	"rivaas.dev/traceprop/tracing"
)

// Execution models of the demo service.
const (
	// ModelContext carries the current span in the request context.
	ModelContext = "context"
	// ModelPool runs handlers on workers that keep the span in a slot.
	ModelPool = "pool"
)

// ServeCommand starts the demo service.
func ServeCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run a demo service with inbound and outbound tracing",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address, overrides server.addr",
			},
			&cli.StringFlag{
				Name:  "model",
				Usage: "execution model: context or pool",
				Value: ModelContext,
			},
			&cli.StringFlag{
				Name:  "upstream",
				Usage: "base URL called by /relay; defaults to this service",
			},
			&cli.BoolFlag{
				Name:  "no-banner",
				Usage: "skip the startup banner",
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	if addr := c.String("addr"); addr != "" {
		cfg.Server.Addr = addr
	}

	logger, err := newLogger(cfg, c.App.ErrWriter)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	exporter, err := metrics.New(cfg.MetricsOptions(metrics.WithLogger(logger))...)
	if err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	tracer, err := tracing.New(cfg.TracerOptions(
		tracing.WithLogger(logger),
		tracing.WithMeterProvider(exporter.MeterProvider()),
	)...)
	if err != nil {
		_ = exporter.Shutdown(c.Context)
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	upstream := c.String("upstream")
	if upstream == "" {
		upstream = "http://" + loopback(cfg.Server.Addr)
	}

	svc, err := newService(serviceOptions{
		cfg:      cfg,
		logger:   logger,
		tracer:   tracer,
		exporter: exporter,
		model:    c.String("model"),
		upstream: upstream,
	})
	if err != nil {
		_ = tracer.Shutdown(c.Context)
		_ = exporter.Shutdown(c.Context)
		return cli.Exit(err.Error(), 2)
	}

	if !c.Bool("no-banner") {
		svc.printBanner(c.App.Writer)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return svc.run(ctx)
}

type serviceOptions struct {
	cfg      *config.Config
	logger   *slog.Logger
	tracer   *tracing.Tracer
	exporter *metrics.Exporter
	model    string
	upstream string
}

// service is the demo application: a few traced routes, an outbound relay
// and the metrics endpoint.
type service struct {
	serviceOptions

	resty    *resty.Client
	blocking *client.Client
	pool     *server.Pool
	handler  http.Handler
}

func newService(opts serviceOptions) (*service, error) {
	s := &service{serviceOptions: opts}

	app := http.NewServeMux()
	app.HandleFunc("GET /hello/{name}", s.hello)
	app.HandleFunc("GET /relay/{name}", s.relay)
	app.HandleFunc("GET /fail", func(w http.ResponseWriter, r *http.Request) {
		s.logger.WarnContext(r.Context(), "failing on purpose")
		http.Error(w, "failed on purpose", http.StatusInternalServerError)
	})

	serverOpts := s.cfg.ServerOptions()
	var traced http.Handler
	switch s.model {
	case ModelContext:
		s.resty = client.InstrumentResty(resty.New().SetTimeout(10 * time.Second))
		traced = server.Middleware(s.tracer, serverOpts...)(app)
	case ModelPool:
		s.blocking = client.NewClient(&http.Client{Timeout: 10 * time.Second})
		s.pool = server.NewPool(s.tracer, s.cfg.Server.Workers, serverOpts...)
		traced = s.pool.Handler(app)
	default:
		return nil, fmt.Errorf("unknown model %q: want %s or %s", s.model, ModelContext, ModelPool)
	}

	root := http.NewServeMux()
	root.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if s.exporter.Provider() == metrics.PrometheusProvider {
		root.Handle("GET "+s.cfg.Metrics.Path, s.exporter.Handler())
	}
	root.Handle("/", traced)
	s.handler = root

	return s, nil
}

func (s *service) hello(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	s.logger.InfoContext(r.Context(), "greeting", "name", name)
	_, _ = fmt.Fprintf(w, "hello, %s\n", name)
}

func (s *service) relay(w http.ResponseWriter, r *http.Request) {
	url := s.upstream + "/hello/" + r.PathValue("name")

	status, body, err := s.call(r.Context(), url)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "relay failed", "url", url, "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// call performs the outbound request with the client matching the model.
func (s *service) call(ctx context.Context, url string) (int, []byte, error) {
	if s.resty != nil {
		resp, err := s.resty.R().SetContext(ctx).Get(url)
		if err != nil {
			return 0, nil, err
		}

		return resp.StatusCode(), resp.Body(), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	resp, err := s.blocking.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)

	return resp.StatusCode, body, err
}

func (s *service) printBanner(w io.Writer) {
	info := bannerInfo{
		Service:         s.cfg.ServiceName,
		Version:         s.cfg.ServiceVersion,
		Addr:            s.cfg.Server.Addr,
		Model:           s.model,
		TraceProvider:   string(s.tracer.GetProvider()),
		MetricsProvider: string(s.exporter.Provider()),
		TracingEnabled:  s.tracer.IsEnabled(),
	}
	if info.Version == "" {
		info.Version = Version
	}
	if s.exporter.Provider() == metrics.PrometheusProvider {
		info.MetricsPath = s.cfg.Metrics.Path
	}
	printBanner(w, info)
}

// run serves until ctx is cancelled, then shuts down within the configured
// timeout.
func (s *service) run(ctx context.Context) error {
	if err := s.tracer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start tracing: %w", err)
	}

	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", srv.Addr, "model", s.model)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		s.close(context.Background())
		return err
	case <-ctx.Done():
		s.logger.Info("server shutting down", "reason", context.Cause(ctx))
	}

	// ctx is already done; shutdown gets its own deadline
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	s.close(shutdownCtx)
	if err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	s.logger.Info("server exited")

	return nil
}

func (s *service) close(ctx context.Context) {
	if s.pool != nil {
		s.pool.Close()
	}
	if err := s.tracer.Shutdown(ctx); err != nil {
		s.logger.Warn("tracing shutdown failed", "error", err)
	}
	if err := s.exporter.Shutdown(ctx); err != nil {
		s.logger.Warn("metrics shutdown failed", "error", err)
	}
}

func loopback(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "127.0.0.1" + addr
	}

	return addr
}
