// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package scheduler owns the recurring refresh job: a single
// process-wide ticker that refreshes every tracked user once per
// interval, primary user first in forced mode, additional users after
// it in cached mode.
//
// Ticks are fire and forget. No outcome propagates to callers; all
// signaling happens through logs and metrics. A failed user never
// aborts the tick, and a failed tick never stops the ticker. Ticks are
// not guarded against overlap: if one run outlasts the interval the
// next tick starts on schedule. The interval is expected to dwarf the
// run time; the risk is documented rather than locked away.
package scheduler

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/traktboard/traktboard/internal/config"
	"github.com/traktboard/traktboard/internal/metrics"
	"github.com/traktboard/traktboard/internal/models"
)

// Scheduler errors surfaced by Start. Per-user refresh failures are
// never errors; they live in RefreshOutcome values and logs.
var (
	// ErrMissingPrimaryUser means configuration lacks the primary
	// user. Fatal to Start: no timer is registered.
	ErrMissingPrimaryUser = errors.New("scheduler: primary user is not configured")

	// ErrAlreadyRunning means Start was called on a running controller.
	ErrAlreadyRunning = errors.New("scheduler: already running")
)

// RefreshInvoker runs one refresh and reports its structured outcome.
type RefreshInvoker interface {
	Run(ctx context.Context, username string, forced bool) models.RefreshOutcome
}

// UserProvider returns the current tracked-user configuration. It is
// consulted fresh on every tick so user list changes apply without a
// restart.
type UserProvider func() config.UsersConfig

// Config holds controller settings. Interpreter and ScriptPath are
// carried only for the startup log; the invoker owns the actual
// command.
type Config struct {
	Interval    time.Duration
	Interpreter string
	ScriptPath  string
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{Interval: time.Hour}
}

// Controller runs the recurring refresh job.
type Controller struct {
	cfg     Config
	invoker RefreshInvoker
	users   UserProvider
	logger  zerolog.Logger

	mu      sync.Mutex
	running bool
	handle  *JobHandle
}

// JobHandle represents one active timer registration. Created by
// Start, consumed by Stop. At most one live handle exists per
// controller.
type JobHandle struct {
	id       string
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// ID returns the handle's job descriptor for logs.
func (h *JobHandle) ID() string {
	return h.id
}

// New creates a Controller. Zero interval falls back to one hour.
func New(cfg Config, invoker RefreshInvoker, users UserProvider, logger zerolog.Logger) *Controller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	return &Controller{
		cfg:     cfg,
		invoker: invoker,
		users:   users,
		logger:  logger.With().Str("component", "scheduler").Logger(),
	}
}

// Start validates configuration, registers the recurring timer and
// returns its handle. The first tick fires after one full interval.
func (c *Controller) Start(ctx context.Context) (*JobHandle, error) {
	userCfg := c.users()
	if strings.TrimSpace(userCfg.Primary) == "" {
		c.logger.Error().Msg("cannot start: no primary user configured")
		return nil, ErrMissingPrimaryUser
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil, ErrAlreadyRunning
	}

	handle := &JobHandle{
		id:     uuid.NewString(),
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	c.running = true
	c.handle = handle

	scriptExists := false
	if info, err := os.Stat(c.cfg.ScriptPath); err == nil && !info.IsDir() {
		scriptExists = true
	}

	c.logger.Info().
		Str("job_id", handle.id).
		Str("primary_user", userCfg.Primary).
		Strs("additional_users", userCfg.Additional).
		Dur("interval", c.cfg.Interval).
		Str("interpreter", c.cfg.Interpreter).
		Str("script_path", c.cfg.ScriptPath).
		Bool("script_exists", scriptExists).
		Msg("refresh scheduler started")

	go c.run(ctx, handle)
	metrics.SchedulerRunning.Set(1)

	return handle, nil
}

// Stop cancels the recurring registration and waits for an in-flight
// tick to complete. Idempotent: stopping a stopped handle or passing
// nil is a no-op.
func (c *Controller) Stop(handle *JobHandle) {
	if handle == nil {
		return
	}

	handle.stopOnce.Do(func() {
		close(handle.stopCh)
	})
	<-handle.doneCh

	c.mu.Lock()
	if c.handle == handle {
		c.running = false
		c.handle = nil
		metrics.SchedulerRunning.Set(0)
		c.logger.Info().Str("job_id", handle.id).Msg("refresh scheduler stopped")
	}
	c.mu.Unlock()
}

// Running reports whether a handle is currently registered.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Controller) run(ctx context.Context, handle *JobHandle) {
	defer close(handle.doneCh)

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.tick(ctx)
		case <-handle.stopCh:
			return
		case <-ctx.Done():
			return
		}
	}
}

// tick refreshes every tracked user sequentially. The user list is
// re-read so configuration changes between ticks take effect. Failures
// are isolated per user: each outcome is logged independently and the
// loop always advances to the next user.
func (c *Controller) tick(ctx context.Context) {
	tickID := uuid.NewString()[:8]
	start := time.Now()
	metrics.SchedulerTicksTotal.Inc()

	targets := resolveTargets(c.users())

	c.logger.Info().
		Str("tick_id", tickID).
		Int("users", len(targets)).
		Msg("refresh tick started")

	for _, target := range targets {
		outcome := c.invoker.Run(ctx, target.Username, target.Forced)

		event := c.logger.Info()
		if !outcome.OK() {
			event = c.logger.Warn()
		}
		event.
			Str("tick_id", tickID).
			Str("user", target.Username).
			Bool("forced", target.Forced).
			Str("outcome", string(outcome.Status)).
			Int("exit_code", outcome.ExitCode).
			Dur("duration", outcome.Duration).
			Msg("user refresh finished")
	}

	c.logger.Info().
		Str("tick_id", tickID).
		Dur("duration", time.Since(start)).
		Msg("refresh tick complete")
}

// resolveTargets builds the per-tick invocation order: primary first
// and forced, additional users after it in configured order.
func resolveTargets(users config.UsersConfig) []models.UserTarget {
	targets := make([]models.UserTarget, 0, 1+len(users.Additional))
	if users.Primary != "" {
		targets = append(targets, models.UserTarget{Username: users.Primary, Forced: true})
	}
	for _, name := range users.Additional {
		if name != "" {
			targets = append(targets, models.UserTarget{Username: name, Forced: false})
		}
	}
	return targets
}
