// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package models

import "time"

// ExitStatus classifies how a refresh subprocess invocation ended.
type ExitStatus string

const (
	// ExitSuccess means the subprocess exited with code zero.
	ExitSuccess ExitStatus = "success"

	// ExitNonZero means the subprocess ran to completion but exited
	// with a non-zero code. The code is carried in RefreshOutcome.
	ExitNonZero ExitStatus = "non_zero_exit"

	// ExitTimeout means the subprocess exceeded the wall-clock limit
	// and was killed.
	ExitTimeout ExitStatus = "timeout"

	// ExitLaunchFailure means no subprocess ran at all: the script was
	// missing, the interpreter could not be spawned, or output capture
	// failed before execution.
	ExitLaunchFailure ExitStatus = "launch_failure"
)

// RefreshOutcome is the complete result of one refresh invocation.
// Expected subprocess failures (non-zero exit, timeout, missing script)
// are values here, not Go errors: callers inspect Status and log.
type RefreshOutcome struct {
	Username   string        `json:"username"`
	Forced     bool          `json:"forced"`
	Status     ExitStatus    `json:"status"`
	ExitCode   int           `json:"exit_code"`
	Command    string        `json:"command"`
	StdoutTail []string      `json:"stdout_tail,omitempty"`
	Stderr     string        `json:"stderr,omitempty"`
	Err        error         `json:"-"`
	Duration   time.Duration `json:"duration"`
}

// OK reports whether the invocation succeeded.
func (o RefreshOutcome) OK() bool {
	return o.Status == ExitSuccess
}

// UserTarget is one user scheduled for refresh within a tick. The
// primary user is always refreshed in forced mode; additional users
// run in cached mode.
type UserTarget struct {
	Username string
	Forced   bool
}
