package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	defaultAppEnv             = "dev"
	defaultDBPath             = "./dev.db"
	defaultPort               = "8080"
	defaultCacheTTL           = 10 * time.Minute
	defaultFeedbackRateLimit  = 5
	defaultFeedbackRateWindow = time.Minute
	defaultLocale             = "es-MX"
)

// Config holds application configuration sourced from a dotenv file and the
// process environment. Real environment variables win over the file.
type Config struct {
	AppEnv             string
	AdminEmail         string
	AdminPassword      string
	SessionSecret      string
	DBPath             string
	Port               string
	RedisAddr          string
	CacheTTL           time.Duration
	FeedbackRateLimit  int
	FeedbackRateWindow time.Duration
	Locale             string
	DebugLogging       bool
}

// Load reads envFile (if present) and the environment and returns a populated
// Config. A missing envFile is not an error; production should inject real
// environment variables.
func Load(envFile string) (Config, error) {
	v := viper.New()
	v.SetDefault("app_env", defaultAppEnv)
	v.SetDefault("db_path", defaultDBPath)
	v.SetDefault("port", defaultPort)
	v.SetDefault("cache_ttl", defaultCacheTTL)
	v.SetDefault("feedback_rate_limit", defaultFeedbackRateLimit)
	v.SetDefault("feedback_rate_window", defaultFeedbackRateWindow)
	v.SetDefault("locale", defaultLocale)

	if err := readDotEnv(v, envFile); err != nil {
		return Config{}, err
	}
	v.AutomaticEnv()

	cfg := Config{
		AppEnv:             strings.ToLower(v.GetString("app_env")),
		AdminEmail:         v.GetString("admin_email"),
		AdminPassword:      v.GetString("admin_password"),
		SessionSecret:      v.GetString("session_secret"),
		DBPath:             v.GetString("db_path"),
		Port:               v.GetString("port"),
		RedisAddr:          v.GetString("redis_addr"),
		CacheTTL:           v.GetDuration("cache_ttl"),
		FeedbackRateLimit:  v.GetInt("feedback_rate_limit"),
		FeedbackRateWindow: v.GetDuration("feedback_rate_window"),
		Locale:             v.GetString("locale"),
		DebugLogging:       v.GetBool("debug_logging"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsDev reports whether the app runs in a development environment, where
// migrations are applied automatically on startup.
func (c Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development" || c.AppEnv == "local"
}

// Warnings lists settings that are allowed to be empty but probably should not be.
func (c Config) Warnings() []string {
	var warnings []string
	if c.AdminEmail == "" {
		warnings = append(warnings, "ADMIN_EMAIL is not set")
	}
	if c.AdminPassword == "" {
		warnings = append(warnings, "ADMIN_PASSWORD is not set")
	}
	if c.SessionSecret == "" {
		warnings = append(warnings, "SESSION_SECRET is not set")
	}
	return warnings
}

func (c Config) validate() error {
	if c.CacheTTL < 0 {
		return fmt.Errorf("invalid CACHE_TTL %s", c.CacheTTL)
	}
	if c.FeedbackRateLimit <= 0 {
		return fmt.Errorf("invalid FEEDBACK_RATE_LIMIT %d", c.FeedbackRateLimit)
	}
	if c.FeedbackRateWindow <= 0 {
		return fmt.Errorf("invalid FEEDBACK_RATE_WINDOW %s", c.FeedbackRateWindow)
	}
	return nil
}
