// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package main is the entry point for the Traktboard server.
//
// Traktboard is a self-hosted dashboard for personal Trakt watch
// history. A recurring scheduler refreshes per-user JSON snapshots by
// invoking the updater as a subprocess; the web server serves the
// snapshots as a filterable gallery/calendar dashboard and a JSON API.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file and environment
//     variables (koanf v2)
//  2. Store: per-user JSON snapshot and raw-cache files
//  3. Refresh invoker: subprocess runner for the updater command
//  4. Scheduler: recurring per-user refresh job
//  5. HTTP server: dashboard, JSON API and Prometheus metrics
//
// The scheduler and the HTTP server run as supervised services in a
// suture tree, isolated from each other's failures.
//
// # Configuration
//
// Environment variables override the config file, which overrides the
// built-in defaults. The only required setting is PRIMARY_USER; the
// scheduler refuses to start without it. Common settings:
//
//	export PRIMARY_USER=alice
//	export ADDITIONAL_USERS=bob,carol
//	export TRAKT_CLIENT_ID=...
//	export DATA_DIR=/data
//	export REFRESH_INTERVAL=1h
//	./traktboard
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the scheduler stops
// after any in-flight refresh completes, and the HTTP server drains
// connections within the shutdown timeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/traktboard/traktboard/internal/api"
	"github.com/traktboard/traktboard/internal/config"
	"github.com/traktboard/traktboard/internal/logging"
	"github.com/traktboard/traktboard/internal/refresher"
	"github.com/traktboard/traktboard/internal/scheduler"
	"github.com/traktboard/traktboard/internal/store"
	"github.com/traktboard/traktboard/internal/supervisor"
	"github.com/traktboard/traktboard/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, use the default logger.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("primary_user", cfg.Users.Primary).
		Strs("additional_users", cfg.Users.Additional).
		Str("data_dir", cfg.Storage.DataDir).
		Dur("refresh_interval", cfg.Updater.Interval).
		Msg("Configuration loaded")

	st := store.New(cfg.Storage.DataDir, cfg.Users.Primary)

	invoker := refresher.New(refresher.Config{
		Interpreter: cfg.Updater.Interpreter,
		ScriptPath:  cfg.Updater.ScriptPath,
		Timeout:     cfg.Updater.Timeout,
	}, logging.Logger())

	users := func() config.UsersConfig { return cfg.Users }
	controller := scheduler.New(scheduler.Config{
		Interval:    cfg.Updater.Interval,
		Interpreter: cfg.Updater.Interpreter,
		ScriptPath:  cfg.Updater.ScriptPath,
	}, invoker, users, logging.Logger())

	handler := api.NewHandler(cfg, st, invoker, logging.Logger())
	router := api.NewRouter(cfg, handler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.Routes(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// sutureslog wants slog; the adapter bridges it onto zerolog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddJobService(services.NewSchedulerService(controller))
	tree.AddAPIService(services.NewHTTPService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Application stopped gracefully")
}
