// Traktboard - Personal Trakt Watch-History Dashboard
// Copyright 2026 Traktboard Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/traktboard/traktboard

package trakt

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
)

// ErrNoToken is returned when the token file does not exist.
var ErrNoToken = errors.New("trakt: no token file; run the authenticate command first")

// Token is the OAuth token document persisted between runs.
type Token struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	CreatedAt    int64  `json:"created_at"`
}

// Valid reports whether the access token exists and has not expired.
// A five minute buffer triggers early renewal.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}
	if t.ExpiresIn == 0 {
		return true
	}
	expiresAt := t.CreatedAt + t.ExpiresIn
	return time.Now().Unix() < expiresAt-300
}

// LoadToken reads a token file. ErrNoToken is returned when the file
// is missing.
func LoadToken(path string) (*Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("trakt: reading token file: %w", err)
	}

	token := &Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("trakt: decoding token file: %w", err)
	}
	return token, nil
}

// SaveToken writes the token file with owner-only permissions.
func SaveToken(path string, token *Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("trakt: creating token dir: %w", err)
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return fmt.Errorf("trakt: encoding token: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("trakt: writing token file: %w", err)
	}
	return nil
}
