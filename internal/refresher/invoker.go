// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package refresher invokes the external update operation as a
// subprocess and classifies its outcome.
//
// The invoker is deliberately dumb: one command, one bounded wait, one
// structured outcome. Retry policy belongs to callers; the scheduler
// simply tries again next tick.
package refresher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog"

	"github.com/traktboard/traktboard/internal/metrics"
	"github.com/traktboard/traktboard/internal/models"
)

// stdoutTailLines bounds how many trailing stdout lines are kept for
// error logs. Enrichment runs are verbose and only the tail is
// typically diagnostic.
const stdoutTailLines = 20

// waitDelay is the grace period between context cancellation and a
// hard kill of the child's I/O pipes.
const waitDelay = 5 * time.Second

// Config holds the invocation command and its wall-clock limit.
type Config struct {
	// Interpreter and ScriptPath form the command:
	// <interpreter> <script_path> --user <name> [--force].
	Interpreter string
	ScriptPath  string

	// Timeout is the per-invocation wall-clock limit.
	Timeout time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Interpreter: "/usr/bin/env",
		ScriptPath:  "/usr/local/bin/traktboard-updater",
		Timeout:     600 * time.Second,
	}
}

// Invoker runs refresh subprocesses. Safe for sequential reuse; the
// scheduler never runs two invocations concurrently.
type Invoker struct {
	cfg    Config
	logger zerolog.Logger

	// newCommand is swapped in tests to observe or suppress process
	// creation.
	newCommand func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// New creates an Invoker. Zero config values fall back to defaults.
func New(cfg Config, logger zerolog.Logger) *Invoker {
	defaults := DefaultConfig()
	if cfg.Interpreter == "" {
		cfg.Interpreter = defaults.Interpreter
	}
	if cfg.ScriptPath == "" {
		cfg.ScriptPath = defaults.ScriptPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}

	return &Invoker{
		cfg:        cfg,
		logger:     logger.With().Str("component", "refresher").Logger(),
		newCommand: exec.CommandContext,
	}
}

// Run executes one refresh for username and returns the structured
// outcome. Expected subprocess failures are encoded in the outcome,
// never returned as errors.
func (inv *Invoker) Run(ctx context.Context, username string, forced bool) models.RefreshOutcome {
	args := []string{inv.cfg.ScriptPath, "--user", username}
	if forced {
		args = append(args, "--force")
	}
	command := shellquote.Join(append([]string{inv.cfg.Interpreter}, args...)...)

	outcome := models.RefreshOutcome{
		Username: username,
		Forced:   forced,
		Command:  command,
	}

	// Fail before process creation when the script is missing.
	if _, err := os.Stat(inv.cfg.ScriptPath); err != nil {
		outcome.Status = models.ExitLaunchFailure
		outcome.Err = fmt.Errorf("update script not found at %s: %w", inv.cfg.ScriptPath, err)
		inv.logOutcome(outcome)
		metrics.RecordRefresh(username, string(outcome.Status), 0)
		return outcome
	}

	runCtx, cancel := context.WithTimeout(ctx, inv.cfg.Timeout)
	defer cancel()

	cmd := inv.newCommand(runCtx, inv.cfg.Interpreter, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	start := time.Now()
	err := cmd.Run()
	outcome.Duration = time.Since(start)
	outcome.StdoutTail = tailLines(stdout.String(), stdoutTailLines)
	outcome.Stderr = stderr.String()

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		outcome.Status = models.ExitTimeout
		outcome.Err = fmt.Errorf("refresh for %s exceeded %s limit: %w", username, inv.cfg.Timeout, runCtx.Err())
	case err == nil:
		outcome.Status = models.ExitSuccess
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			outcome.Status = models.ExitNonZero
			outcome.ExitCode = exitErr.ExitCode()
			outcome.Err = err
		} else {
			outcome.Status = models.ExitLaunchFailure
			outcome.Err = fmt.Errorf("launching %s: %w", command, err)
		}
	}

	inv.logOutcome(outcome)
	metrics.RecordRefresh(username, string(outcome.Status), outcome.Duration)
	return outcome
}

// logOutcome writes the per-outcome log contract: success at debug,
// everything else at error with full diagnostic context.
func (inv *Invoker) logOutcome(o models.RefreshOutcome) {
	switch o.Status {
	case models.ExitSuccess:
		inv.logger.Debug().
			Str("user", o.Username).
			Bool("forced", o.Forced).
			Dur("duration", o.Duration).
			Strs("stdout_tail", o.StdoutTail).
			Str("stderr", o.Stderr).
			Msg("refresh succeeded")
	case models.ExitNonZero:
		inv.logger.Error().
			Str("user", o.Username).
			Bool("forced", o.Forced).
			Str("command", o.Command).
			Int("exit_code", o.ExitCode).
			Str("stderr", o.Stderr).
			Strs("stdout_tail", o.StdoutTail).
			Dur("duration", o.Duration).
			Msg("refresh failed with non-zero exit")
	case models.ExitTimeout:
		inv.logger.Error().
			Str("user", o.Username).
			Bool("forced", o.Forced).
			Str("command", o.Command).
			Dur("elapsed", o.Duration).
			Dur("limit", inv.cfg.Timeout).
			Msg("refresh timed out, subprocess killed")
	case models.ExitLaunchFailure:
		inv.logger.Error().
			Str("user", o.Username).
			Bool("forced", o.Forced).
			Str("command", o.Command).
			Err(o.Err).
			Msg("refresh could not be launched")
	}
}

// tailLines returns the last n non-empty-terminated lines of s.
func tailLines(s string, n int) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	lines := strings.Split(s, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines
}
