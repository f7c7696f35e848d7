// Package settings persists the small amount of state that must survive
// restarts: the provider credential and whether the provider is enabled.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strconv"
)

// Fixed keys.
const (
	KeyProviderCredential = "provider_credential"
	KeyProviderEnabled    = "provider_enabled"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("settings: store is closed")

// Store is a durable string key-value store.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Provider is the persisted provider configuration.
type Provider struct {
	Credential string
	Enabled    bool
}

// LoadProvider reads the provider keys. Missing keys yield zero values; an
// unparseable enabled flag reads as false.
func LoadProvider(ctx context.Context, s Store) (Provider, error) {
	cred, _, err := s.Get(ctx, KeyProviderCredential)
	if err != nil {
		return Provider{}, fmt.Errorf("settings: load credential: %w", err)
	}

	raw, ok, err := s.Get(ctx, KeyProviderEnabled)
	if err != nil {
		return Provider{}, fmt.Errorf("settings: load enabled flag: %w", err)
	}

	enabled := false
	if ok {
		enabled, _ = strconv.ParseBool(raw)
	}

	return Provider{Credential: cred, Enabled: enabled}, nil
}

// SaveCredential stores the credential. An empty credential deletes the key.
func SaveCredential(ctx context.Context, s Store, credential string) error {
	if credential == "" {
		return s.Delete(ctx, KeyProviderCredential)
	}

	return s.Set(ctx, KeyProviderCredential, credential)
}

// SaveEnabled stores the enabled flag as "true" or "false".
func SaveEnabled(ctx context.Context, s Store, enabled bool) error {
	return s.Set(ctx, KeyProviderEnabled, strconv.FormatBool(enabled))
}
