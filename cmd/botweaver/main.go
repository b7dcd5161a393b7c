package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/botweaver/handler"
	"github.com/hrygo/botweaver/internal/profile"
	"github.com/hrygo/botweaver/orchestrator"
	"github.com/hrygo/botweaver/server"
	"github.com/hrygo/botweaver/session"
	"github.com/hrygo/botweaver/store"
	"github.com/hrygo/botweaver/store/db"
)

const version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:   "botweaver",
	Short: "Conversational webhook backend with intent routing and TTL sessions",
	RunE: func(_ *cobra.Command, _ []string) error {
		p := &profile.Profile{
			Mode:    viper.GetString("mode"),
			Addr:    viper.GetString("addr"),
			Port:    viper.GetInt("port"),
			Data:    viper.GetString("data"),
			Driver:  viper.GetString("driver"),
			DSN:     viper.GetString("dsn"),
			Version: version,
		}
		p.FromEnv()
		if err := p.Validate(); err != nil {
			return err
		}

		setupLogger(p)
		return run(p)
	},
}

func init() {
	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 8080, "port of server")
	rootCmd.PersistentFlags().String("data", ".", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", "database driver")
	rootCmd.PersistentFlags().String("dsn", "", "database source name")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		panic(err)
	}
	viper.SetEnvPrefix("botweaver")
	viper.AutomaticEnv()
}

func setupLogger(p *profile.Profile) {
	level := slog.LevelInfo
	if p.IsDev() {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}

func run(p *profile.Profile) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Optional bookmark persistence.
	var bookmarks *store.Store
	if p.BookmarksEnabled {
		driver, err := db.NewDBDriver(p)
		if err != nil {
			return fmt.Errorf("failed to create db driver: %w", err)
		}
		bookmarks = store.New(driver, p)
		if err := bookmarks.Migrate(ctx); err != nil {
			return fmt.Errorf("failed to migrate: %w", err)
		}
		defer bookmarks.Close()
	}

	handlers := buildHandlers(p)

	sessions := session.NewStore(session.Config{
		Timeout:    p.SessionTimeout,
		MaxHistory: p.MaxHistory,
	})
	cleanup := session.NewCleanupJob(sessions, session.CleanupConfig{Interval: p.CleanupInterval})
	cleanup.Start(ctx)
	defer cleanup.Stop()

	dispatcher := orchestrator.NewDispatcher(sessions, handlers, bookmarks)
	messenger := server.NewLineMessenger(server.LineMessengerConfig{AccessToken: p.ChannelAccessToken})
	srv := server.NewServer(p, dispatcher, messenger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	slog.Info("server stopped")
	return nil
}

func buildHandlers(p *profile.Profile) handler.Set {
	handlers := handler.Set{
		Chat: handler.NewOpenAIChat(handler.ChatConfig{
			APIKey:  p.OpenAIAPIKey,
			BaseURL: p.OpenAIBaseURL,
			Model:   p.ChatModel,
		}),
		Content: handler.NewURLContent(handler.ContentConfig{
			APIKey:  p.OpenAIAPIKey,
			BaseURL: p.OpenAIBaseURL,
			Model:   p.ChatModel,
		}),
		Video: handler.NewYouTubeVideo(handler.VideoConfig{
			APIKey:  p.OpenAIAPIKey,
			BaseURL: p.OpenAIBaseURL,
			Model:   p.ChatModel,
		}),
		Image: handler.NewOpenAIVision(handler.VisionConfig{
			APIKey:  p.OpenAIAPIKey,
			BaseURL: p.OpenAIBaseURL,
			Model:   p.VisionModel,
		}),
	}
	if p.PlacesAPIKey != "" {
		handlers.Location = handler.NewPlacesSearch(handler.LocationConfig{APIKey: p.PlacesAPIKey})
	}
	if p.GitHubOwner != "" && p.GitHubRepo != "" {
		digest, err := handler.NewGitHubDigest(handler.RepoDigestConfig{
			Token: p.GitHubToken,
			Owner: p.GitHubOwner,
			Repo:  p.GitHubRepo,
		})
		if err != nil {
			slog.Warn("repo digest disabled", "error", err)
		} else {
			handlers.Repo = digest
		}
	}
	return handlers
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
