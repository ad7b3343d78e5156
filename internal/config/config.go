package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the planner client needs at startup. Values come
// from the environment, with an optional config.json next to the binary.
type Config struct {
	APIBaseURL       string
	ListenAddress    string
	CredentialsFile  string
	RefreshInterval  time.Duration
	RefreshSkew      time.Duration
	HTTPTimeout      time.Duration
	AllowedOrigins   []string
	AllowCredentials bool
	TemplatesGlob    string
	StaticDir        string
	LogLevel         string
}

// Load reads configuration from the environment. API_BASE_URL is the only
// required value; everything else has a sensible default. REFRESH_INTERVAL
// defaults to the 17 minute policy the backend's token lifetime was sized
// around.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	for _, key := range []string{
		"API_BASE_URL", "LISTEN_ADDRESS", "CREDENTIALS_FILE",
		"REFRESH_INTERVAL", "REFRESH_SKEW", "HTTP_TIMEOUT",
		"ALLOWED_ORIGINS", "ALLOW_CREDENTIALS", "TEMPLATES_GLOB", "STATIC_DIR", "LOG_LEVEL",
	} {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetDefault("LISTEN_ADDRESS", ":3000")
	v.SetDefault("REFRESH_INTERVAL", "17m")
	v.SetDefault("REFRESH_SKEW", "1m")
	v.SetDefault("HTTP_TIMEOUT", "10s")
	v.SetDefault("TEMPLATES_GLOB", "web/templates/*.html")
	v.SetDefault("STATIC_DIR", "web/static")
	v.SetDefault("CREDENTIALS_FILE", defaultCredentialsFile())

	cfg := &Config{
		APIBaseURL:       v.GetString("API_BASE_URL"),
		ListenAddress:    v.GetString("LISTEN_ADDRESS"),
		CredentialsFile:  v.GetString("CREDENTIALS_FILE"),
		AllowCredentials: v.GetBool("ALLOW_CREDENTIALS"),
		TemplatesGlob:    v.GetString("TEMPLATES_GLOB"),
		StaticDir:        v.GetString("STATIC_DIR"),
		LogLevel:         v.GetString("LOG_LEVEL"),
	}

	if cfg.APIBaseURL == "" {
		return nil, fmt.Errorf("API_BASE_URL is required")
	}

	var err error
	if cfg.RefreshInterval, err = parseDuration(v, "REFRESH_INTERVAL"); err != nil {
		return nil, err
	}
	if cfg.RefreshSkew, err = parseDuration(v, "REFRESH_SKEW"); err != nil {
		return nil, err
	}
	if cfg.HTTPTimeout, err = parseDuration(v, "HTTP_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.RefreshInterval <= 0 {
		return nil, fmt.Errorf("REFRESH_INTERVAL must be positive")
	}

	if raw := v.GetString("ALLOWED_ORIGINS"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.AllowedOrigins); err != nil {
			return nil, fmt.Errorf("ALLOWED_ORIGINS must be a JSON array: %w", err)
		}
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func defaultCredentialsFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "authTokens.json"
	}
	return filepath.Join(home, ".explanner", "authTokens.json")
}
