// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/traktboard/traktboard/internal/config"
	"github.com/traktboard/traktboard/internal/models"
	"github.com/traktboard/traktboard/internal/scheduler"
)

type noopInvoker struct{}

func (noopInvoker) Run(_ context.Context, username string, forced bool) models.RefreshOutcome {
	return models.RefreshOutcome{Username: username, Forced: forced, Status: models.ExitSuccess}
}

func newController(primary string) *scheduler.Controller {
	users := func() config.UsersConfig {
		return config.UsersConfig{Primary: primary}
	}
	return scheduler.New(scheduler.Config{Interval: time.Hour}, noopInvoker{}, users, zerolog.Nop())
}

func TestSchedulerServiceStopsOnContextCancel(t *testing.T) {
	svc := NewSchedulerService(newController("alice"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve() did not return after cancellation")
	}
}

func TestSchedulerServiceMisconfigurationIsTerminal(t *testing.T) {
	svc := NewSchedulerService(newController(""))

	err := svc.Serve(context.Background())
	if !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("Serve() error = %v, want suture.ErrDoNotRestart", err)
	}
}

func TestSchedulerServiceString(t *testing.T) {
	if got := NewSchedulerService(newController("alice")).String(); got != "refresh-scheduler" {
		t.Errorf("String() = %q, want refresh-scheduler", got)
	}
}
