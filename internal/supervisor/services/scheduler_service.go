// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package services

import (
	"context"

	"github.com/thejerf/suture/v4"

	"github.com/traktboard/traktboard/internal/scheduler"
)

// SchedulerService runs the refresh scheduler under supervision.
//
// A configuration error from Start (no primary user) is terminal:
// restarting cannot fix configuration, so the service removes itself
// from the tree instead of crash-looping.
type SchedulerService struct {
	controller *scheduler.Controller
}

// NewSchedulerService wraps controller.
func NewSchedulerService(controller *scheduler.Controller) *SchedulerService {
	return &SchedulerService{controller: controller}
}

// Serve implements suture.Service: start the recurring job, block
// until the context ends, then stop it and wait for any in-flight
// tick.
func (s *SchedulerService) Serve(ctx context.Context) error {
	handle, err := s.controller.Start(ctx)
	if err != nil {
		if err == scheduler.ErrMissingPrimaryUser {
			return suture.ErrDoNotRestart
		}
		return err
	}

	<-ctx.Done()
	s.controller.Stop(handle)
	return ctx.Err()
}

// String names the service in suture logs.
func (s *SchedulerService) String() string {
	return "refresh-scheduler"
}
