// Package config loads hub configuration from a .env file and the
// environment. Everything is read once at startup.
package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/jcpope/homehub/store"
)

type Config struct {
	Port    int
	DevMode bool

	WeatherAPIKey string
	WebUIURL      string

	SpotifyClientID     string
	SpotifyClientSecret string
	SpotifyRedirectURL  string

	PC store.PCConfig

	MCPEnabled bool
}

// Load reads .env (missing file is fine) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg := Config{
		Port:                envInt("PORT", 8080),
		DevMode:             envBool("DEVMODE"),
		WeatherAPIKey:       os.Getenv("WEATHER_API_KEY"),
		WebUIURL:            os.Getenv("WEBUI_URL"),
		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),
		SpotifyRedirectURL:  os.Getenv("SPOTIFY_REDIRECT_URL"),
		MCPEnabled:          envBool("MCP"),
	}

	if raw := os.Getenv("PC"); raw != "" {
		var pc store.PCConfig
		if err := json.Unmarshal([]byte(raw), &pc); err != nil {
			return Config{}, fmt.Errorf("parse PC config: %w", err)
		}
		cfg.PC = pc
	}

	return cfg, nil
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Invalid integer in environment, using default", "key", key, "value", raw)
		return fallback
	}
	return n
}

func envBool(key string) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && b
}
