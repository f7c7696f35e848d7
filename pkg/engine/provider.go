package engine

import (
	"fmt"
	"net/http"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/germanamz/colorking/pkg/imagegen"
	"github.com/germanamz/colorking/pkg/imagegen/openai"
	"github.com/germanamz/colorking/pkg/imagegen/proxy"
	"github.com/germanamz/colorking/pkg/imagegen/replicate"
)

// ProviderFactory creates an image provider from a ProviderConfig.
type ProviderFactory func(cfg ProviderConfig, log *zap.Logger) (imagegen.Provider, error)

var (
	factoryMu   sync.RWMutex
	factories   = map[string]ProviderFactory{}
	defaultsReg sync.Once
)

func ensureDefaults() {
	defaultsReg.Do(func() {
		factories["openai"] = newOpenAI
		factories["replicate"] = newReplicate
		factories["proxy"] = newProxy
	})
}

// RegisterProvider registers a custom provider factory under the given kind.
// It can be called before New to extend the engine with additional providers.
func RegisterProvider(kind string, factory ProviderFactory) {
	ensureDefaults()

	factoryMu.Lock()
	defer factoryMu.Unlock()

	factories[kind] = factory
}

// KnownProviderKinds lists the registered kinds in sorted order.
func KnownProviderKinds() []string {
	ensureDefaults()

	factoryMu.RLock()
	defer factoryMu.RUnlock()

	kinds := make([]string, 0, len(factories))
	for k := range factories {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)

	return kinds
}

func getFactory(kind string) (ProviderFactory, bool) {
	ensureDefaults()

	factoryMu.RLock()
	defer factoryMu.RUnlock()

	f, ok := factories[kind]
	return f, ok
}

// httpClient returns nil when no timeout is set, selecting the adapter's
// default client.
func httpClient(cfg ProviderConfig) (*http.Client, error) {
	timeout, err := parseDuration(cfg.Timeout)
	if err != nil {
		return nil, fmt.Errorf("engine: provider timeout: %w", err)
	}
	if timeout == 0 {
		return nil, nil
	}

	return &http.Client{Timeout: timeout}, nil
}

func newOpenAI(cfg ProviderConfig, log *zap.Logger) (imagegen.Provider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}

	c := openai.New(baseURL, log)
	if cfg.Model != "" {
		c.Model = cfg.Model
	}

	hc, err := httpClient(cfg)
	if err != nil {
		return nil, err
	}
	c.Client = hc

	return c, nil
}

func newReplicate(cfg ProviderConfig, log *zap.Logger) (imagegen.Provider, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = replicate.DefaultBaseURL
	}

	c := replicate.New(baseURL, log)
	c.Restricted = cfg.Restricted
	if cfg.Model != "" {
		c.Version = cfg.Model
	}
	if cfg.MaxAttempts > 0 {
		c.MaxAttempts = cfg.MaxAttempts
	}
	c.MaxNetworkRetries = cfg.MaxNetworkRetries

	poll, err := parseDuration(cfg.PollInterval)
	if err != nil {
		return nil, fmt.Errorf("engine: poll_interval: %w", err)
	}
	if poll > 0 {
		c.PollInterval = poll
	}

	hc, err := httpClient(cfg)
	if err != nil {
		return nil, err
	}
	c.Client = hc

	return c, nil
}

func newProxy(cfg ProviderConfig, _ *zap.Logger) (imagegen.Provider, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("engine: provider kind proxy requires base_url")
	}

	c := proxy.New(cfg.BaseURL, cfg.AnonKey)

	hc, err := httpClient(cfg)
	if err != nil {
		return nil, err
	}
	c.Client = hc

	return c, nil
}

// buildProvider creates a provider using the registered factory for its Kind.
// If rate limiting is configured, the provider is wrapped with a
// RateLimitedProvider.
func buildProvider(cfg ProviderConfig, log *zap.Logger) (imagegen.Provider, error) {
	factory, ok := getFactory(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("engine: unknown provider kind %q", cfg.Kind)
	}

	p, err := factory(cfg, log)
	if err != nil {
		return nil, err
	}

	rl := cfg.RateLimit
	if rl.RPM > 0 || rl.MaxRetries > 0 || rl.BaseDelay != "" {
		baseDelay, err := parseDuration(rl.BaseDelay)
		if err != nil {
			return nil, fmt.Errorf("engine: provider %q: invalid base_delay %q: %w", cfg.Kind, rl.BaseDelay, err)
		}

		p = imagegen.NewRateLimitedProvider(p, imagegen.RateLimitOpts{
			RPM:        rl.RPM,
			Burst:      rl.Burst,
			MaxRetries: rl.MaxRetries,
			BaseDelay:  baseDelay,
		})
	}

	return p, nil
}
