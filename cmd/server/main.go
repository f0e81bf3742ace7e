package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jcpope/homehub/config"
	"github.com/jcpope/homehub/endpoints"
	"github.com/jcpope/homehub/server"
	"github.com/jcpope/homehub/spotify"
	"github.com/jcpope/homehub/store"
	"github.com/jcpope/homehub/weather"
)

func setupLogger(devMode bool) {
	level := slog.LevelInfo
	if devMode {
		level = slog.LevelDebug
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.DevMode)
	if cfg.DevMode {
		slog.Info("Development mode active")
	}

	st := store.New(cfg.DevMode)

	hub := server.New(fmt.Sprintf(":%d", cfg.Port), st)

	spotifyClient := spotify.NewClient(cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURL)
	poller := spotify.NewPoller(spotifyClient, st)
	auth := spotify.NewAuth(spotifyClient, st, poller, cfg.WebUIURL)
	hub.Router().Get("/Spotify/Callback", auth.HandleCallback)

	endpoints.RegisterAll(hub, endpoints.Deps{
		Store:   st,
		Spotify: spotifyClient,
		Auth:    auth,
		PC:      cfg.PC,
	})

	if cfg.DevMode {
		for _, t := range hub.Registry().Types() {
			slog.Debug("Registered endpoint", "type", t)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	weatherService := weather.NewService(st, cfg.WeatherAPIKey)
	weatherService.Start(ctx)

	if cfg.MCPEnabled {
		mcpServer := server.NewMCPServer(hub.Registry(), st)
		go func() {
			if err := mcpServer.Start(); err != nil {
				slog.Error("MCP server error", "error", err)
			}
		}()
	}

	go func() {
		if err := hub.Start(); err != nil {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()
	slog.Info("Server ready", "port", cfg.Port, "endpoints", hub.Registry().Len())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := hub.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown error", "error", err)
	}
}
