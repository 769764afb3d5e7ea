// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

// Package models defines the shared data types of the application:
// normalized watch-history items and snapshots, refresh invocation
// outcomes, and the standard API response envelope.
//
// The package has no dependencies on other internal packages so that
// every layer (store, updater, scheduler, API) can exchange values
// without import cycles.
package models
