// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package trakt

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/goccy/go-json"
)

func TestRequestDeviceCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/device/code" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		var payload map[string]string
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if payload["client_id"] != "test-client-id" {
			t.Errorf("client_id = %q", payload["client_id"])
		}

		json.NewEncoder(w).Encode(DeviceCode{
			DeviceCode:      "dev-123",
			UserCode:        "ABCD1234",
			VerificationURL: "https://trakt.tv/activate",
			ExpiresIn:       600,
			Interval:        1,
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")

	code, err := c.RequestDeviceCode(t.Context())
	if err != nil {
		t.Fatalf("RequestDeviceCode() failed: %v", err)
	}
	if code.UserCode != "ABCD1234" || code.DeviceCode != "dev-123" {
		t.Errorf("code = %+v", code)
	}
}

func TestPollDeviceTokenPendingThenSuccess(t *testing.T) {
	var polls atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/device/token" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}

		if polls.Add(1) < 3 {
			// Authorization still pending.
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(Token{AccessToken: "granted", RefreshToken: "refresh"})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")

	token, err := c.PollDeviceToken(t.Context(), &DeviceCode{
		DeviceCode: "dev-123",
		ExpiresIn:  30,
		Interval:   0, // RequestDeviceCode normalizes this; zero keeps the test fast
	})
	if err != nil {
		t.Fatalf("PollDeviceToken() failed: %v", err)
	}
	if token.AccessToken != "granted" {
		t.Errorf("access token = %q", token.AccessToken)
	}
	if polls.Load() != 3 {
		t.Errorf("polls = %d, want 3", polls.Load())
	}
}

func TestPollDeviceTokenDenied(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")

	_, err := c.PollDeviceToken(t.Context(), &DeviceCode{DeviceCode: "dev-123", ExpiresIn: 30})
	if !errors.Is(err, ErrDeviceDenied) {
		t.Errorf("PollDeviceToken() error = %v, want ErrDeviceDenied", err)
	}
}

func TestPollDeviceTokenExpires(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL), "")

	_, err := c.PollDeviceToken(t.Context(), &DeviceCode{DeviceCode: "dev-123", ExpiresIn: 0})
	if !errors.Is(err, ErrDeviceCodeExpired) {
		t.Errorf("PollDeviceToken() error = %v, want ErrDeviceCodeExpired", err)
	}
}
