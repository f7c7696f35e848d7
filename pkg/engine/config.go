package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/germanamz/colorking/pkg/colorkingdir"
	"github.com/germanamz/colorking/pkg/drawing"
	"github.com/germanamz/colorking/pkg/imagegen"
)

// EnvPrefix prefixes every environment override, e.g. COLORKING_PROVIDER_KIND.
const EnvPrefix = "COLORKING"

// Config is the top-level configuration.
type Config struct {
	Dir      string         `mapstructure:"-" yaml:"-"` // Set by CLI, not from YAML.
	Provider ProviderConfig `mapstructure:"provider" yaml:"provider"`
	Drawings DrawingsConfig `mapstructure:"drawings" yaml:"drawings"`
	Print    PrintConfig    `mapstructure:"print" yaml:"print"`
	Serve    ServeConfig    `mapstructure:"serve" yaml:"serve"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
}

// RateLimitConfig controls provider throttling.
type RateLimitConfig struct {
	RPM        int    `mapstructure:"rpm" yaml:"rpm"`                 // Requests per minute (0 = no limit).
	Burst      int    `mapstructure:"burst" yaml:"burst"`             // Requests allowed at once (default 1).
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"` // Max retries on 429 (default 3).
	BaseDelay  string `mapstructure:"base_delay" yaml:"base_delay"`   // Initial backoff as a duration string (e.g. "1s").
}

// ProviderConfig selects and tunes the image provider.
type ProviderConfig struct {
	Kind    string `mapstructure:"kind" yaml:"kind"` // openai, replicate, or proxy
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	Model   string `mapstructure:"model" yaml:"model"` // model name or model version, per kind
	// AnonKey is the public gateway key some proxy hosts require.
	AnonKey string `mapstructure:"anon_key" yaml:"anon_key"`
	// Restricted marks deployments where direct calls are blocked (replicate).
	Restricted        bool            `mapstructure:"restricted" yaml:"restricted"`
	PollInterval      string          `mapstructure:"poll_interval" yaml:"poll_interval"`
	MaxAttempts       int             `mapstructure:"max_attempts" yaml:"max_attempts"`
	MaxNetworkRetries int             `mapstructure:"max_network_retries" yaml:"max_network_retries"`
	Timeout           string          `mapstructure:"timeout" yaml:"timeout"` // per HTTP request
	RateLimit         RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// DrawingsConfig tunes the drawing service.
type DrawingsConfig struct {
	ForbidMock    bool    `mapstructure:"forbid_mock" yaml:"forbid_mock"`
	OutlineStyle  string  `mapstructure:"outline_style" yaml:"outline_style"`
	NumOutputs    int     `mapstructure:"num_outputs" yaml:"num_outputs"`
	GuidanceScale float64 `mapstructure:"guidance_scale" yaml:"guidance_scale"`
	MockDelay     string  `mapstructure:"mock_delay" yaml:"mock_delay"`
}

// PrintConfig holds the print settings a new session starts with.
type PrintConfig struct {
	PageSize         string `mapstructure:"page_size" yaml:"page_size"`
	OutlineThickness string `mapstructure:"outline_thickness" yaml:"outline_thickness"`
	OutlineColor     string `mapstructure:"outline_color" yaml:"outline_color"`
	Copies           int    `mapstructure:"copies" yaml:"copies"`
}

// ServeConfig configures the proxy server.
type ServeConfig struct {
	Addr        string `mapstructure:"addr" yaml:"addr"`
	UpstreamURL string `mapstructure:"upstream_url" yaml:"upstream_url"`
	VendorKey   string `mapstructure:"vendor_key" yaml:"-"` //nolint:gosec // configuration field, never written to disk
	AccessKey   string `mapstructure:"access_key" yaml:"-"` //nolint:gosec // configuration field, never written to disk
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file"` // empty: <dir>/local/colorking.log
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	ps := drawing.DefaultPrintSettings()

	return Config{
		Provider: ProviderConfig{
			Kind:              "replicate",
			PollInterval:      "10s",
			MaxAttempts:       30,
			MaxNetworkRetries: 3,
			Timeout:           "2m",
		},
		Drawings: DrawingsConfig{
			OutlineStyle:  string(imagegen.StyleSimple),
			NumOutputs:    4,
			GuidanceScale: 7,
			MockDelay:     "0s",
		},
		Print: PrintConfig{
			PageSize:         string(ps.PageSize),
			OutlineThickness: string(ps.OutlineThickness),
			OutlineColor:     string(ps.OutlineColor),
			Copies:           ps.Copies,
		},
		Serve: ServeConfig{
			Addr:        "127.0.0.1:8787",
			UpstreamURL: "https://api.openai.com",
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig resolves configuration with precedence:
// environment (COLORKING_*) > config file > defaults.
//
// The .env file inside dir is loaded first without overriding variables that
// are already set. path selects an explicit config file; when empty, the
// directory's config.yaml is used if it exists.
func LoadConfig(dir colorkingdir.Dir, path string) (Config, error) {
	if err := loadDotEnv(dir.EnvPath()); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Well-known vendor variable, kept for compatibility with hosted functions.
	if err := v.BindEnv("serve.vendor_key", EnvPrefix+"_SERVE_VENDOR_KEY", "OPENAI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("engine: bind vendor key env: %w", err)
	}

	if path == "" && fileExists(dir.ConfigPath()) {
		path = dir.ConfigPath()
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("engine: load config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("engine: parse config: %w", err)
	}

	cfg.Dir = dir.Root()

	return cfg, nil
}

func loadDotEnv(path string) error {
	if !fileExists(path) {
		return nil
	}

	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("engine: load %s: %w", path, err)
	}

	return nil
}

// setDefaults registers every key so AutomaticEnv applies to Unmarshal.
func setDefaults(v *viper.Viper, d Config) {
	defaults := map[string]any{
		"provider.kind":                   d.Provider.Kind,
		"provider.base_url":               d.Provider.BaseURL,
		"provider.model":                  d.Provider.Model,
		"provider.anon_key":               d.Provider.AnonKey,
		"provider.restricted":             d.Provider.Restricted,
		"provider.poll_interval":          d.Provider.PollInterval,
		"provider.max_attempts":           d.Provider.MaxAttempts,
		"provider.max_network_retries":    d.Provider.MaxNetworkRetries,
		"provider.timeout":                d.Provider.Timeout,
		"provider.rate_limit.rpm":         d.Provider.RateLimit.RPM,
		"provider.rate_limit.burst":       d.Provider.RateLimit.Burst,
		"provider.rate_limit.max_retries": d.Provider.RateLimit.MaxRetries,
		"provider.rate_limit.base_delay":  d.Provider.RateLimit.BaseDelay,
		"drawings.forbid_mock":            d.Drawings.ForbidMock,
		"drawings.outline_style":          d.Drawings.OutlineStyle,
		"drawings.num_outputs":            d.Drawings.NumOutputs,
		"drawings.guidance_scale":         d.Drawings.GuidanceScale,
		"drawings.mock_delay":             d.Drawings.MockDelay,
		"print.page_size":                 d.Print.PageSize,
		"print.outline_thickness":         d.Print.OutlineThickness,
		"print.outline_color":             d.Print.OutlineColor,
		"print.copies":                    d.Print.Copies,
		"serve.addr":                      d.Serve.Addr,
		"serve.upstream_url":              d.Serve.UpstreamURL,
		"serve.access_key":                d.Serve.AccessKey,
		"log.level":                       d.Log.Level,
		"log.file":                        d.Log.File,
	}

	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// SaveConfig writes cfg as YAML to path, creating parent directories.
// Secrets (vendor and access keys) are never written.
func SaveConfig(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("engine: save config: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("engine: marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("engine: save config: %w", err)
	}

	return nil
}

// Validate checks that the configuration is internally consistent.
func (c Config) Validate() error {
	var errs []error

	if _, ok := getFactory(c.Provider.Kind); !ok {
		errs = append(errs, fmt.Errorf("provider.kind %q is not one of %s",
			c.Provider.Kind, strings.Join(KnownProviderKinds(), ", ")))
	}

	for key, val := range map[string]string{
		"provider.poll_interval":         c.Provider.PollInterval,
		"provider.timeout":               c.Provider.Timeout,
		"provider.rate_limit.base_delay": c.Provider.RateLimit.BaseDelay,
		"drawings.mock_delay":            c.Drawings.MockDelay,
	} {
		if _, err := parseDuration(val); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	if c.Provider.MaxAttempts < 0 || c.Provider.MaxNetworkRetries < 0 {
		errs = append(errs, errors.New("provider: max_attempts and max_network_retries must not be negative"))
	}

	rl := c.Provider.RateLimit
	if rl.RPM < 0 || rl.Burst < 0 || rl.MaxRetries < 0 {
		errs = append(errs, errors.New("provider.rate_limit: values must not be negative"))
	}

	if _, err := imagegen.ParseOutlineStyle(c.Drawings.OutlineStyle); err != nil {
		errs = append(errs, fmt.Errorf("drawings.outline_style: %w", err))
	}

	if _, err := c.PrintSettings(); err != nil {
		errs = append(errs, fmt.Errorf("print: %w", err))
	}

	if _, err := zap.ParseAtomicLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("engine: config: %w", err)
	}

	return nil
}

// PrintSettings converts the print section into validated settings.
func (c Config) PrintSettings() (drawing.PrintSettings, error) {
	size, err := drawing.ParsePageSize(c.Print.PageSize)
	if err != nil {
		return drawing.PrintSettings{}, err
	}

	thickness, err := drawing.ParseOutlineThickness(c.Print.OutlineThickness)
	if err != nil {
		return drawing.PrintSettings{}, err
	}

	color, err := drawing.ParseOutlineColor(c.Print.OutlineColor)
	if err != nil {
		return drawing.PrintSettings{}, err
	}

	ps := drawing.PrintSettings{
		PageSize:         size,
		OutlineThickness: thickness,
		OutlineColor:     color,
		Copies:           c.Print.Copies,
	}

	return ps, ps.Validate()
}

// parseDuration accepts an empty string as zero.
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}

	if d < 0 {
		return 0, fmt.Errorf("duration %q must not be negative", s)
	}

	return d, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
