// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package trakt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"
)

// Device-flow terminal errors. StatusPending (HTTP 400) is internal to
// the polling loop and never surfaces.
var (
	ErrDeviceCodeInvalid = errors.New("trakt: device code invalid")
	ErrDeviceCodeUsed    = errors.New("trakt: device code already used")
	ErrDeviceCodeExpired = errors.New("trakt: device code expired")
	ErrDeviceDenied      = errors.New("trakt: user denied authorization")
)

// DeviceCode is the response of POST /oauth/device/code. The user
// enters UserCode at VerificationURL while the client polls.
type DeviceCode struct {
	DeviceCode      string `json:"device_code"`
	UserCode        string `json:"user_code"`
	VerificationURL string `json:"verification_url"`
	ExpiresIn       int    `json:"expires_in"`
	Interval        int    `json:"interval"`
}

// RequestDeviceCode starts the OAuth device flow.
func (c *Client) RequestDeviceCode(ctx context.Context) (*DeviceCode, error) {
	body, err := c.postJSON(ctx, "/oauth/device/code", map[string]string{
		"client_id": c.clientID,
	})
	if err != nil {
		return nil, err
	}

	code := &DeviceCode{}
	if err := json.Unmarshal(body, code); err != nil {
		return nil, fmt.Errorf("trakt: decoding device code: %w", err)
	}
	if code.Interval <= 0 {
		code.Interval = 5
	}
	return code, nil
}

// PollDeviceToken polls the token endpoint until the user authorizes,
// the code expires, or ctx is canceled. A 429 response widens the
// polling interval per the Trakt API contract.
func (c *Client) PollDeviceToken(ctx context.Context, code *DeviceCode) (*Token, error) {
	interval := time.Duration(code.Interval) * time.Second
	deadline := time.Now().Add(time.Duration(code.ExpiresIn) * time.Second)

	for {
		if time.Now().After(deadline) {
			return nil, ErrDeviceCodeExpired
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}

		token, retry, err := c.tryDeviceToken(ctx, code.DeviceCode)
		if err != nil {
			return nil, err
		}
		if token != nil {
			return token, nil
		}
		if retry {
			interval += time.Second
		}
	}
}

// tryDeviceToken makes one token poll. A nil token with nil error
// means authorization is still pending; retry reports a 429.
func (c *Client) tryDeviceToken(ctx context.Context, deviceCode string) (*Token, bool, error) {
	payload := map[string]string{
		"code":          deviceCode,
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
	}

	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, false, fmt.Errorf("trakt: encoding token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/oauth/device/token", bytes.NewReader(reqBody))
	if err != nil {
		return nil, false, fmt.Errorf("trakt: building token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("trakt: polling device token: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, false, fmt.Errorf("trakt: reading token response: %w", err)
		}
		token := &Token{}
		if err := json.Unmarshal(body, token); err != nil {
			return nil, false, fmt.Errorf("trakt: decoding token: %w", err)
		}
		return token, false, nil
	case http.StatusBadRequest:
		// Authorization pending; keep polling.
		return nil, false, nil
	case http.StatusTooManyRequests:
		return nil, true, nil
	case http.StatusNotFound:
		return nil, false, ErrDeviceCodeInvalid
	case http.StatusConflict:
		return nil, false, ErrDeviceCodeUsed
	case http.StatusGone:
		return nil, false, ErrDeviceCodeExpired
	case http.StatusTeapot:
		return nil, false, ErrDeviceDenied
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, false, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
}

// postJSON posts a JSON payload without rate limiting or breaker
// protection. Only used by the one-shot device flow.
func (c *Client) postJSON(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	reqBody, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("trakt: encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("trakt: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trakt: POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return io.ReadAll(resp.Body)
}
