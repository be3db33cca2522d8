package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestContextHelpersAndKeyString() {
	ctx := context.Background()
	cfg := ConfigurationDefault{ServiceName: "svc"}

	s.Equal("fluent/config/configurationKey", ctxKeyConfiguration.String())

	ctx = ToContext(ctx, cfg)
	fromCtx := FromContext[ConfigurationDefault](ctx)
	s.Equal("svc", fromCtx.ServiceName)

	missing := FromContext[*ConfigurationDefault](context.Background())
	s.Nil(missing)
}

func (s *ConfigSuite) TestFromEnvAndFillEnv() {
	type envCfg struct {
		Value string `env:"FLUENT_TEST_VALUE"`
	}

	s.T().Setenv("FLUENT_TEST_VALUE", "abc")

	fromEnv, err := FromEnv[envCfg]()
	s.Require().NoError(err)
	s.Equal("abc", fromEnv.Value)

	var target envCfg
	s.Require().NoError(FillEnv(&target))
	s.Equal("abc", target.Value)
}

func (s *ConfigSuite) TestDefaults() {
	cfg, err := FromEnv[ConfigurationDefault]()
	s.Require().NoError(err)

	s.Equal("fluent", cfg.Name())
	s.Equal("info", cfg.LoggingLevel())
	s.False(cfg.LoggingLevelIsDebug())
	s.Equal(":8080", cfg.HTTPPort())
	s.Equal("file://./locales", cfg.ResourcesURL())
	s.Equal("en", cfg.DefaultLocale())
	s.Equal([]string{"en"}, cfg.AvailableLocales())
	s.Equal([]string{"main.ftl"}, cfg.ResourceIDs())
	s.Empty(cfg.UpdatesURL())
	s.Equal("mem://", cfg.CacheURL())
	s.Equal(time.Hour, cfg.CacheMaxAge())
	s.False(cfg.DisableOpenTelemetry())
	s.InDelta(0.1, cfg.SamplingRatio(), 1e-9)
}

func (s *ConfigSuite) TestLocalizationFromEnv() {
	s.T().Setenv("L10N_AVAILABLE_LOCALES", "sw,fr")
	s.T().Setenv("L10N_DEFAULT_LOCALE", "en-US")
	s.T().Setenv("L10N_RESOURCE_IDS", "main.ftl,messages.toml")
	s.T().Setenv("CACHE_MAX_AGE", "5m")
	s.T().Setenv("LOG_LEVEL", "debug")

	cfg, err := FromEnv[ConfigurationDefault]()
	s.Require().NoError(err)

	s.Equal([]string{"sw", "fr", "en-US"}, cfg.AvailableLocales())
	s.Equal([]string{"main.ftl", "messages.toml"}, cfg.ResourceIDs())
	s.Equal(5*time.Minute, cfg.CacheMaxAge())
	s.True(cfg.LoggingLevelIsDebug())
}

func (s *ConfigSuite) TestFallbacksTable() {
	testCases := []struct {
		name       string
		cfg        ConfigurationDefault
		wantHTTP   string
		wantMaxAge time.Duration
		wantLocale string
	}{
		{
			name:       "numeric port",
			cfg:        ConfigurationDefault{HTTPServerPort: "9090", CacheMaxAgeValue: "90s", L10nDefaultLocale: "sw"},
			wantHTTP:   ":9090",
			wantMaxAge: 90 * time.Second,
			wantLocale: "sw",
		},
		{
			name:       "invalid values fall back",
			cfg:        ConfigurationDefault{HTTPServerPort: "invalid", CacheMaxAgeValue: "soon"},
			wantHTTP:   ":8080",
			wantMaxAge: DefaultCacheMaxAge,
			wantLocale: "en",
		},
		{
			name:       "host bound",
			cfg:        ConfigurationDefault{HTTPServerPort: "127.0.0.1:8000", CacheMaxAgeValue: "-1s"},
			wantHTTP:   "127.0.0.1:8000",
			wantMaxAge: DefaultCacheMaxAge,
			wantLocale: "en",
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.wantHTTP, tc.cfg.HTTPPort())
			s.Equal(tc.wantMaxAge, tc.cfg.CacheMaxAge())
			s.Equal(tc.wantLocale, tc.cfg.DefaultLocale())
		})
	}
}

func (s *ConfigSuite) TestProfilerAndWorkerPool() {
	cfg := &ConfigurationDefault{
		ProfilerEnable:           true,
		WorkerPoolCapacity:       0,
		WorkerPoolCount:          3,
		WorkerPoolExpiryDuration: "invalid",
	}
	s.True(cfg.ProfilerEnabled())
	s.Equal(":6060", cfg.ProfilerPort())
	s.Equal(1, cfg.GetCapacity())
	s.Equal(3, cfg.GetCount())
	s.Equal(time.Second, cfg.GetExpiryDuration())

	cfg.ProfilerPortAddr = ":7070"
	cfg.WorkerPoolCapacity = 8
	cfg.WorkerPoolExpiryDuration = "250ms"
	s.Equal(":7070", cfg.ProfilerPort())
	s.Equal(8, cfg.GetCapacity())
	s.Equal(250*time.Millisecond, cfg.GetExpiryDuration())
}

func (s *ConfigSuite) TestRateLimit() {
	cfg := &ConfigurationDefault{}
	s.Equal(0, cfg.RateLimit())

	cfg.RateLimitPerSecond = 5
	s.Equal(10, cfg.RateLimitBurstSize())

	cfg.RateLimitBurst = 7
	s.Equal(7, cfg.RateLimitBurstSize())

	cfg.RateLimitPerSecond = -1
	s.Equal(0, cfg.RateLimit())
}

func (s *ConfigSuite) TestFromFile() {
	path := filepath.Join(s.T().TempDir(), "fluent.yaml")
	s.Require().NoError(os.WriteFile(path, []byte(`
service_name: docs
l10n_resources_url: mem://
l10n_available_locales: [sw, en]
cache_max_age: 10m
`), 0o600))

	s.T().Setenv("LOG_LEVEL", "warn")

	cfg, err := FromFile[ConfigurationDefault](path)
	s.Require().NoError(err)
	s.Equal("docs", cfg.Name())
	s.Equal("mem://", cfg.ResourcesURL())
	s.Equal([]string{"sw", "en"}, cfg.AvailableLocales())
	s.Equal(10*time.Minute, cfg.CacheMaxAge())
	s.Equal("warn", cfg.LoggingLevel(), "environment fills keys the file leaves out")

	_, err = FromFile[ConfigurationDefault](filepath.Join(s.T().TempDir(), "missing.yaml"))
	s.Require().Error(err)
}
