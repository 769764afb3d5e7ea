// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package main is the one-shot Trakt device-flow bootstrap. It prints
// a code for the user to enter at trakt.tv/activate, polls until the
// grant completes and writes the token file the updater reads.
//
// An existing token file is left alone unless --overwrite is passed.
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
	"github.com/traktboard/traktboard/internal/trakt"
)

func main() {
	overwrite := flag.Bool("overwrite", false, "replace an existing token file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading configuration: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: "console"})

	if err := run(cfg, *overwrite); err != nil {
		fmt.Fprintf(os.Stderr, "authentication failed: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, overwrite bool) error {
	if cfg.Trakt.ClientID == "" || cfg.Trakt.ClientSecret == "" {
		return errors.New("TRAKT_CLIENT_ID and TRAKT_CLIENT_SECRET must be set")
	}

	if !overwrite {
		if _, err := trakt.LoadToken(cfg.Trakt.TokenFile); err == nil {
			return fmt.Errorf("token file %s already exists, pass --overwrite to replace it", cfg.Trakt.TokenFile)
		} else if !errors.Is(err, trakt.ErrNoToken) {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := trakt.NewClient(cfg.Trakt, "")

	code, err := client.RequestDeviceCode(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("\nOpen %s and enter the code:\n\n\t%s\n\n", code.VerificationURL, code.UserCode)
	fmt.Printf("Waiting for authorization (expires in %d seconds)...\n", code.ExpiresIn)

	token, err := client.PollDeviceToken(ctx, code)
	if err != nil {
		return err
	}

	if err := trakt.SaveToken(cfg.Trakt.TokenFile, token); err != nil {
		return err
	}
	fmt.Printf("Token saved to %s\n", cfg.Trakt.TokenFile)
	return nil
}
