package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the portal API.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseDriver         string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	DashboardCacheTTL      time.Duration
	AnalyticsCacheTTL      time.Duration
	RegisterRateLimit      int
	RegisterRateWindow     time.Duration
	UploadMaxSizeMB        int
	NotificationChannel    string
	SSEKeepAlive           time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("PORTAL")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "MGSA Portal API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("cloudinary.folder", "mgsa/tutorials")
	v.SetDefault("dashboard.cache_ttl", "2m")
	v.SetDefault("analytics.cache_ttl", "5m")
	v.SetDefault("register.rate_limit", 10)
	v.SetDefault("register.rate_window", "1m")
	v.SetDefault("upload.max_size_mb", 20)
	v.SetDefault("notification.channel", "portal.notifications")
	v.SetDefault("sse.keepalive", "25s")

	durations := map[string]time.Duration{}
	for _, key := range []string{"dashboard.cache_ttl", "analytics.cache_ttl", "register.rate_window", "sse.keepalive"} {
		value, err := parseDuration(v, key)
		if err != nil {
			return Config{}, err
		}
		durations[key] = value
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseDriver:         strings.ToLower(v.GetString("database.driver")),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		DashboardCacheTTL:      durations["dashboard.cache_ttl"],
		AnalyticsCacheTTL:      durations["analytics.cache_ttl"],
		RegisterRateLimit:      v.GetInt("register.rate_limit"),
		RegisterRateWindow:     durations["register.rate_window"],
		UploadMaxSizeMB:        v.GetInt("upload.max_size_mb"),
		NotificationChannel:    v.GetString("notification.channel"),
		SSEKeepAlive:           durations["sse.keepalive"],
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}

	switch cfg.DatabaseDriver {
	case "postgres", "sqlite":
	default:
		return Config{}, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	if cfg.RegisterRateLimit <= 0 {
		cfg.RegisterRateLimit = 10
	}

	if cfg.UploadMaxSizeMB <= 0 {
		cfg.UploadMaxSizeMB = 20
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, fmt.Errorf("%s must not be empty", key)
	}

	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", strings.ReplaceAll(key, ".", " "), err)
	}
	if value <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}

	return value, nil
}
