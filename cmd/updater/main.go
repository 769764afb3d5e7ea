// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package main is the refresh subprocess the scheduler invokes:
//
//	traktboard-updater --user <name> [--force]
//
// It fetches the user's Trakt history, enriches it and writes the
// snapshot files the dashboard serves. Exit code 0 means the snapshot
// is up to date (written or unchanged); any failure exits non-zero
// with the reason on stderr.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/traktboard/traktboard/internal/config"
	"github.com/traktboard/traktboard/internal/logging"
	"github.com/traktboard/traktboard/internal/store"
	"github.com/traktboard/traktboard/internal/trakt"
	"github.com/traktboard/traktboard/internal/updater"
)

func main() {
	var (
		user     = flag.String("user", "", "Trakt username to refresh (required)")
		force    = flag.Bool("force", false, "rebuild the snapshot even when history is unchanged")
		limit    = flag.Int("limit", 0, "max history entries to fetch (0 = config default)")
		noImages = flag.Bool("no-images", false, "skip poster thumbnails")
		noCast   = flag.Bool("no-cast", false, "skip cast lookups")
		verbose  = flag.Bool("verbose", false, "log at debug level")
	)
	flag.Parse()

	if *user == "" {
		fmt.Fprintln(os.Stderr, "missing required flag: --user")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Logging.Level
	if *verbose {
		level = "debug"
	}
	logging.Init(logging.Config{
		Level:  level,
		Format: "console",
		Caller: cfg.Logging.Caller,
	})

	if err := run(cfg, updater.Options{
		Username: *user,
		Force:    *force,
		Limit:    pickLimit(*limit, cfg.Updater.HistoryLimit),
		NoImages: *noImages || !cfg.Images.Enabled,
		NoCast:   *noCast,
	}); err != nil {
		logging.Error().Err(err).Str("user", *user).Msg("update failed")
		os.Exit(1)
	}
}

func run(cfg *config.Config, opts updater.Options) error {
	token, err := trakt.LoadToken(cfg.Trakt.TokenFile)
	if err != nil {
		if errors.Is(err, trakt.ErrNoToken) {
			return fmt.Errorf("no Trakt token at %s, run traktboard-authenticate first", cfg.Trakt.TokenFile)
		}
		return err
	}
	if !token.Valid() {
		return fmt.Errorf("Trakt token expired, run traktboard-authenticate again")
	}

	// SIGTERM is how the scheduler kills an over-deadline run; treat it
	// like cancellation so partial files are never left behind.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := trakt.NewClient(cfg.Trakt, token.AccessToken)
	st := store.New(cfg.Storage.DataDir, cfg.Users.Primary)
	u := updater.New(client, st, cfg.Images.RPDBAPIKey, logging.Logger())

	result, err := u.Run(ctx, opts)
	if err != nil {
		return err
	}

	if result.Skipped {
		logging.Info().
			Str("user", result.Username).
			Dur("duration", result.Duration).
			Msg("snapshot already up to date")
		return nil
	}
	logging.Info().
		Str("user", result.Username).
		Int("items", result.ItemCount).
		Dur("duration", result.Duration).
		Msg("snapshot updated")
	return nil
}

func pickLimit(flagLimit, configLimit int) int {
	if flagLimit > 0 {
		return flagLimit
	}
	return configLimit
}
