// Copyright 2021-2024 The Connect Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Command serverfn-demo serves a handful of example server functions over
// HTTP and calls them.
//
//	serverfn-demo serve [-config serverfn.yaml]
//	serverfn-demo call [-config serverfn.yaml] [-url http://localhost:8080]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"connectrpc.com/serverfn"
	"connectrpc.com/serverfn/internal/config"
	"connectrpc.com/serverfn/internal/demo"
	"connectrpc.com/serverfn/internal/observability"
	"connectrpc.com/serverfn/nethttp"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: serverfn-demo serve|call [flags]")
		os.Exit(2)
	}
	flags := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	configPath := flags.String("config", "", "path to a YAML config file")
	baseURL := flags.String("url", "", "server to call (defaults to the configured address)")
	_ = flags.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, cleanup, err := observability.SetupLogger(cfg.Log)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	switch os.Args[1] {
	case "serve":
		err = serve(ctx, cfg, logger)
	case "call":
		if *baseURL == "" {
			*baseURL = "http://" + cfg.Addr
		}
		err = call(ctx, cfg, *baseURL)
	default:
		err = fmt.Errorf("unknown command %q", os.Args[1])
	}
	stop()
	if err != nil {
		logger.Error("serverfn-demo failed", zap.Error(err))
		cleanup()
		os.Exit(1)
	}
	cleanup()
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	metrics := prometheus.NewRegistry()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	registry := nethttp.NewRegistry(
		serverfn.WithLogger(logger),
		serverfn.WithMetrics(metrics),
		serverfn.WithRecover(nil),
	)
	if err := registry.Register(demo.NewAPI(cfg.Prefix).Callables()...); err != nil {
		return err
	}
	registry.Freeze()
	for _, path := range registry.Paths() {
		logger.Info("serving", zap.String("path", path))
	}

	options := []nethttp.HandlerOption{
		nethttp.WithLogger(logger),
		nethttp.WithReadMaxBytes(cfg.ReadMaxBytes),
	}
	if cfg.RateLimit.PerSecond > 0 {
		limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
		options = append(options, nethttp.WithLimiter(limiter))
	}

	if origins := cfg.CORS.AllowedOrigins; len(origins) > 0 {
		options = append(options, nethttp.CORS{
			AllowOriginFunc: func(origin string) bool {
				return slices.Contains(origins, "*") || slices.Contains(origins, origin)
			},
			MaxAge: cfg.CORS.MaxAgeSeconds,
		})
	}

	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	if cfg.Metrics.Enable {
		router.Handle(cfg.Metrics.Path, promhttp.HandlerFor(metrics, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	nethttp.Mount(router, cfg.Prefix, nethttp.NewHandler(registry, options...))

	server := &http.Server{
		Addr: cfg.Addr,
		// Serve HTTP/2 without TLS as well as HTTP/1.1.
		Handler:           h2c.NewHandler(router, &http2.Server{}),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          zap.NewStdLog(logger),
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}

func call(ctx context.Context, cfg *config.Config, baseURL string) error {
	api := demo.NewAPI(cfg.Prefix).WithClient(nethttp.NewClient(baseURL))

	sum, err := api.Add.RunOnClient(ctx, demo.AddArgs{A: 2, B: 40})
	if err != nil {
		return err
	}
	fmt.Printf("add: %d\n", sum.Value)

	if _, err := api.Divide.RunOnClient(ctx, demo.DivideArgs{Dividend: 1}); err != nil {
		fmt.Printf("divide: %v (%s)\n", err, serverfn.KindOf(err))
	}

	note, err := api.Echo.RunOnClient(ctx, demo.Note{Text: "hello"})
	if err != nil {
		return err
	}
	fmt.Printf("echo: %s at %s\n", note.Text, note.At.Format(time.RFC3339))

	shouted, err := api.Shout.RunOnClient(ctx, wrapperspb.String("hello"))
	if err != nil {
		return err
	}
	fmt.Printf("shout: %s\n", shouted.GetValue())

	form := serverfn.NewMultipartForm().
		AddField("title", "demo").
		AddFile("file", "notes.txt", strings.NewReader("uploaded contents"))
	fields, err := api.Upload.RunOnClient(ctx, serverfn.NewMultipartData(form))
	if err != nil {
		return err
	}
	for _, field := range fields {
		fmt.Printf("upload: %s %q %d bytes\n", field.Name, field.FileName, field.Size)
	}

	stream, err := api.Count.RunOnClient(ctx, demo.CountArgs{To: 5, Interval: 200 * time.Millisecond})
	if err != nil {
		return err
	}
	defer stream.Close()
	for stream.Receive() {
		fmt.Print("count: ", stream.Msg())
	}
	return stream.Err()
}
