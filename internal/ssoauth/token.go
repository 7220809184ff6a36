package ssoauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoToken is returned when the SSO cache holds no usable token.
var ErrNoToken = errors.New("unable to find access token; run 'aws sso login'")

// DefaultCacheDir returns ~/.aws/sso/cache.
func DefaultCacheDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".aws", "sso", "cache"), nil
}

type cachedToken struct {
	AccessToken string `json:"accessToken"`
}

// LatestAccessToken reads the access token from the most recently modified
// regular file in dir.
func LatestAccessToken(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("read sso cache: %w", err)
	}

	var newest string
	var newestMod int64
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if mod := info.ModTime().UnixNano(); newest == "" || mod > newestMod {
			newest = filepath.Join(dir, e.Name())
			newestMod = mod
		}
	}
	if newest == "" {
		return "", ErrNoToken
	}

	data, err := os.ReadFile(newest)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", newest, err)
	}
	var tok cachedToken
	if err := json.Unmarshal(data, &tok); err != nil {
		return "", fmt.Errorf("parse %s: %w", newest, err)
	}
	if tok.AccessToken == "" {
		return "", ErrNoToken
	}
	return tok.AccessToken, nil
}
