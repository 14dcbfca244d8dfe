// File: cmd/evhttpd/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// evhttpd wires config, logging, a stats sink and a demo Handler
// together into a runnable server (C12). The demo handler replies 200
// "ok" on GET / and 404 on anything else, giving operators something
// to curl immediately after start.

package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/evhttp/config"
	"github.com/momentics/evhttp/httpserver"
	"github.com/momentics/evhttp/reactor"
	"github.com/momentics/evhttp/stats"
	"github.com/momentics/evhttp/transport"
	"github.com/momentics/evhttp/workerpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile  string
	addrFlag    string
	metricsAddr string
	poolSize    int
)

func main() {
	if err := buildRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:     "evhttpd",
		Short:   "evhttpd runs the evhttp reactor-driven HTTP server",
		Version: "0.1.0",
	}

	serve := &cobra.Command{
		Use:   "serve",
		Short: "bind and serve until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(context.Background())
		},
	}
	serve.Flags().StringVarP(&configFile, "config", "c", "", "path to a YAML config file (optional)")
	serve.Flags().StringVar(&addrFlag, "addr", "", "listen address, overrides config file")
	serve.Flags().StringVar(&metricsAddr, "metrics-addr", "", "if set, serve Prometheus metrics on this address")
	serve.Flags().IntVar(&poolSize, "pool-size", 4, "worker pool goroutine count for offloaded handlers")

	root.AddCommand(serve)
	return root
}

func runServe(ctx context.Context) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("evhttpd: build logger: %w", err)
	}
	defer logger.Sync()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if addrFlag != "" {
		cfg.Addr = addrFlag
	}

	reg := prometheus.NewRegistry()
	sink := stats.NewPrometheusSink(reg)
	if metricsAddr != "" {
		go serveMetrics(metricsAddr, reg, logger)
	}

	rx := reactor.New(logger)
	rx.EnableThreads()
	go rx.Run()
	defer rx.Stop()

	pool := workerpool.New(rx, poolSize, logger)
	defer pool.Join()

	listener := transport.New(transport.Config{Addr: cfg.Addr, Backlog: cfg.ConnectionBacklog})
	srv := httpserver.New(rx, listener, cfg,
		httpserver.WithHandler(demoHandler{}),
		httpserver.WithStatsSink(sink),
		httpserver.WithLogger(logger),
		httpserver.WithWorkerPool(pool),
	)
	if err := srv.Bind(); err != nil {
		return fmt.Errorf("evhttpd: bind: %w", err)
	}
	logger.Info("listening", zap.String("addr", listener.Addr().String()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down")
	return srv.Close()
}

func loadConfig() (httpserver.Config, error) {
	if configFile == "" {
		return httpserver.DefaultConfig(), nil
	}
	return config.Load(configFile)
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadTimeout: 5 * time.Second}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("metrics server failed", zap.Error(err))
	}
}

// demoHandler is evhttpd's built-in default Handler.
type demoHandler struct{}

func (demoHandler) CreateRequest(conn *httpserver.Connection, method string, uri *url.URL, version httpserver.Version) (*httpserver.Request, error) {
	return httpserver.NewRequest(conn, method, uri), nil
}

func (demoHandler) HandleRequest(req *httpserver.Request) (bool, error) {
	if req.Method != http.MethodGet || req.URI.Path != "/" {
		return false, nil
	}
	req.ReplyString(http.StatusOK, "ok")
	return true, nil
}

func (demoHandler) EndRequest(req *httpserver.Request) {}

func (demoHandler) Evict(conns []*httpserver.Connection) {
	if len(conns) > 0 {
		conns[0].Close()
	}
}
