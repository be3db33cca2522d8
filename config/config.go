package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

type contextKey string

func (c contextKey) String() string {
	return "fluent/config/" + string(c)
}

const (
	ctxKeyConfiguration = contextKey("configurationKey")

	DefaultCacheMaxAge = time.Hour
)

// ToContext adds service configuration to the current supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts service configuration from the supplied context if any exist.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv convenience method to process configs.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv convenience method to fill a config object with environment data.
func FillEnv(v any) error {
	return env.Parse(v)
}

// FromFile loads configuration from the environment and then applies the
// yaml file at path on top of it. Keys present in the file win.
func FromFile[T any](path string) (T, error) {
	cfg, err := FromEnv[T]()
	if err != nil {
		return cfg, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

type ConfigurationDefault struct {
	LogLevel      string `envDefault:"info"                      env:"LOG_LEVEL"       yaml:"log_level"`
	LogTimeFormat string `envDefault:"2006-01-02T15:04:05Z07:00" env:"LOG_TIME_FORMAT" yaml:"log_time_format"`
	LogColored    bool   `envDefault:"true"                      env:"LOG_COLORED"     yaml:"log_colored"`

	LogShowStackTrace bool `envDefault:"false" env:"LOG_SHOW_STACK_TRACE" yaml:"log_show_stack_trace"`

	OpenTelemetryDisable    bool    `envDefault:"false" env:"OPENTELEMETRY_DISABLE"        yaml:"opentelemetry_disable"`
	OpenTelemetryTraceRatio float64 `envDefault:"0.1"   env:"OPENTELEMETRY_TRACE_ID_RATIO" yaml:"opentelemetry_trace_id_ratio"`

	ServiceName    string `envDefault:"fluent" env:"SERVICE_NAME"    yaml:"service_name"`
	ServiceVersion string `envDefault:""       env:"SERVICE_VERSION" yaml:"service_version"`

	HTTPServerPort string `envDefault:":8080" env:"HTTP_PORT" yaml:"http_server_port"`

	L10nResourcesURL     string   `envDefault:"file://./locales" env:"L10N_RESOURCES_URL"     yaml:"l10n_resources_url"`
	L10nDefaultLocale    string   `envDefault:"en"               env:"L10N_DEFAULT_LOCALE"    yaml:"l10n_default_locale"`
	L10nAvailableLocales []string `envDefault:"en"               env:"L10N_AVAILABLE_LOCALES" yaml:"l10n_available_locales"`
	L10nResourceIDs      []string `envDefault:"main.ftl"         env:"L10N_RESOURCE_IDS"      yaml:"l10n_resource_ids"`
	L10nUpdatesURL       string   `envDefault:""                 env:"L10N_UPDATES_URL"       yaml:"l10n_updates_url"`

	CacheURI         string `envDefault:"mem://" env:"CACHE_URI"     yaml:"cache_uri"`
	CacheMaxAgeValue string `envDefault:"1h"     env:"CACHE_MAX_AGE" yaml:"cache_max_age"`

	RateLimitPerSecond int `envDefault:"0"  env:"RATE_LIMIT_PER_SECOND" yaml:"rate_limit_per_second"`
	RateLimitBurst     int `envDefault:"0"  env:"RATE_LIMIT_BURST"      yaml:"rate_limit_burst"`

	ProfilerEnable   bool   `envDefault:"false" env:"PROFILER_ENABLE" yaml:"profiler_enable"`
	ProfilerPortAddr string `envDefault:":6060" env:"PROFILER_PORT"   yaml:"profiler_port"`

	// Worker pool settings
	WorkerPoolCapacity       int    `envDefault:"16" env:"WORKER_POOL_CAPACITY"        yaml:"worker_pool_capacity"`
	WorkerPoolCount          int    `envDefault:"1"  env:"WORKER_POOL_COUNT"           yaml:"worker_pool_count"`
	WorkerPoolExpiryDuration string `envDefault:"1s" env:"WORKER_POOL_EXPIRY_DURATION" yaml:"worker_pool_expiry_duration"`
}

type ConfigurationService interface {
	Name() string
	Version() string
}

var _ ConfigurationService = new(ConfigurationDefault)

func (c *ConfigurationDefault) Name() string {
	return c.ServiceName
}

func (c *ConfigurationDefault) Version() string {
	return c.ServiceVersion
}

type ConfigurationLogLevel interface {
	LoggingLevel() string
	LoggingTimeFormat() string
	LoggingShowStackTrace() bool
	LoggingColored() bool
	LoggingLevelIsDebug() bool
}

var _ ConfigurationLogLevel = new(ConfigurationDefault)

func (c *ConfigurationDefault) LoggingLevel() string {
	return c.LogLevel
}

func (c *ConfigurationDefault) LoggingTimeFormat() string {
	return c.LogTimeFormat
}

func (c *ConfigurationDefault) LoggingColored() bool {
	return c.LogColored
}

func (c *ConfigurationDefault) LoggingShowStackTrace() bool {
	return c.LogShowStackTrace
}

func (c *ConfigurationDefault) LoggingLevelIsDebug() bool {
	return c.LoggingLevel() == "debug" || c.LoggingLevel() == "trace"
}

type ConfigurationPorts interface {
	HTTPPort() string
}

var _ ConfigurationPorts = new(ConfigurationDefault)

func (c *ConfigurationDefault) HTTPPort() string {
	if i, err := strconv.Atoi(c.HTTPServerPort); err == nil && i > 0 {
		return fmt.Sprintf(":%s", strings.TrimSpace(c.HTTPServerPort))
	}

	if strings.HasPrefix(c.HTTPServerPort, ":") || strings.Contains(c.HTTPServerPort, ":") {
		return c.HTTPServerPort
	}

	return ":8080"
}

type ConfigurationLocalization interface {
	ResourcesURL() string
	DefaultLocale() string
	AvailableLocales() []string
	ResourceIDs() []string
	UpdatesURL() string
}

var _ ConfigurationLocalization = new(ConfigurationDefault)

func (c *ConfigurationDefault) ResourcesURL() string {
	return c.L10nResourcesURL
}

func (c *ConfigurationDefault) DefaultLocale() string {
	if c.L10nDefaultLocale == "" {
		return "en"
	}
	return c.L10nDefaultLocale
}

// AvailableLocales always includes the default locale.
func (c *ConfigurationDefault) AvailableLocales() []string {
	locales := make([]string, 0, len(c.L10nAvailableLocales)+1)
	hasDefault := false
	for _, l := range c.L10nAvailableLocales {
		if l = strings.TrimSpace(l); l == "" {
			continue
		}
		hasDefault = hasDefault || l == c.DefaultLocale()
		locales = append(locales, l)
	}
	if !hasDefault {
		locales = append(locales, c.DefaultLocale())
	}
	return locales
}

func (c *ConfigurationDefault) ResourceIDs() []string {
	return c.L10nResourceIDs
}

// UpdatesURL is the pubsub topic resource change notices travel on. Empty
// disables notices.
func (c *ConfigurationDefault) UpdatesURL() string {
	return c.L10nUpdatesURL
}

type ConfigurationCache interface {
	CacheURL() string
	CacheMaxAge() time.Duration
}

var _ ConfigurationCache = new(ConfigurationDefault)

func (c *ConfigurationDefault) CacheURL() string {
	return c.CacheURI
}

func (c *ConfigurationDefault) CacheMaxAge() time.Duration {
	d, err := time.ParseDuration(c.CacheMaxAgeValue)
	if err != nil || d <= 0 {
		return DefaultCacheMaxAge
	}
	return d
}

// ConfigurationRateLimit limits page requests per client IP. A zero rate
// disables limiting.
type ConfigurationRateLimit interface {
	RateLimit() int
	RateLimitBurstSize() int
}

var _ ConfigurationRateLimit = new(ConfigurationDefault)

func (c *ConfigurationDefault) RateLimit() int {
	return max(c.RateLimitPerSecond, 0)
}

func (c *ConfigurationDefault) RateLimitBurstSize() int {
	if c.RateLimitBurst <= 0 {
		return c.RateLimit() * 2
	}
	return c.RateLimitBurst
}

type ConfigurationTelemetry interface {
	DisableOpenTelemetry() bool
	SamplingRatio() float64
}

var _ ConfigurationTelemetry = new(ConfigurationDefault)

func (c *ConfigurationDefault) DisableOpenTelemetry() bool {
	return c.OpenTelemetryDisable
}

func (c *ConfigurationDefault) SamplingRatio() float64 {
	return c.OpenTelemetryTraceRatio
}

type ConfigurationProfiler interface {
	ProfilerEnabled() bool
	ProfilerPort() string
}

var _ ConfigurationProfiler = new(ConfigurationDefault)

func (c *ConfigurationDefault) ProfilerEnabled() bool {
	return c.ProfilerEnable
}

func (c *ConfigurationDefault) ProfilerPort() string {
	if c.ProfilerPortAddr != "" {
		return c.ProfilerPortAddr
	}
	return ":6060"
}

type ConfigurationWorkerPool interface {
	GetCapacity() int
	GetCount() int
	GetExpiryDuration() time.Duration
}

var _ ConfigurationWorkerPool = new(ConfigurationDefault)

func (c *ConfigurationDefault) GetCapacity() int {
	if c.WorkerPoolCapacity <= 0 {
		return 1
	}
	return c.WorkerPoolCapacity
}

func (c *ConfigurationDefault) GetCount() int {
	return c.WorkerPoolCount
}

func (c *ConfigurationDefault) GetExpiryDuration() time.Duration {
	if t, err := time.ParseDuration(c.WorkerPoolExpiryDuration); err == nil {
		return t
	}
	return time.Second
}
