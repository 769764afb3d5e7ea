// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordRefresh(t *testing.T) {
	before := testutil.ToFloat64(RefreshTotal.WithLabelValues("alice", "success"))

	RecordRefresh("alice", "success", 2*time.Second)

	after := testutil.ToFloat64(RefreshTotal.WithLabelValues("alice", "success"))
	if after != before+1 {
		t.Errorf("refresh counter = %v, want %v", after, before+1)
	}
}

func TestRecordRefreshZeroDurationSkipsHistogram(t *testing.T) {
	// Launch failures have no meaningful duration; only the counter moves.
	before := testutil.ToFloat64(RefreshTotal.WithLabelValues("bob", "launch_failure"))

	RecordRefresh("bob", "launch_failure", 0)

	after := testutil.ToFloat64(RefreshTotal.WithLabelValues("bob", "launch_failure"))
	if after != before+1 {
		t.Errorf("refresh counter = %v, want %v", after, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	base := testutil.ToFloat64(HTTPActiveRequests)

	done := TrackActiveRequest()
	if got := testutil.ToFloat64(HTTPActiveRequests); got != base+1 {
		t.Errorf("active requests = %v, want %v", got, base+1)
	}

	done()
	if got := testutil.ToFloat64(HTTPActiveRequests); got != base {
		t.Errorf("active requests after done = %v, want %v", got, base)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/history", "200"))

	RecordHTTPRequest("GET", "/api/v1/history", 200, 10*time.Millisecond)

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/api/v1/history", "200"))
	if after != before+1 {
		t.Errorf("http counter = %v, want %v", after, before+1)
	}
}
