// Package profile holds the process configuration loaded from flags and
// environment variables.
package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start the main server.
type Profile struct {
	// Mode can be "prod" or "dev"
	Mode string
	// Addr is the binding address for the server
	Addr string
	// Port is the binding port for the server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where bookmarks are stored
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the server
	Version string

	// Chat platform credentials
	ChannelSecret      string // BOTWEAVER_CHANNEL_SECRET
	ChannelAccessToken string // BOTWEAVER_CHANNEL_ACCESS_TOKEN

	// LLM configuration (OpenAI-compatible)
	OpenAIAPIKey  string // BOTWEAVER_OPENAI_API_KEY
	OpenAIBaseURL string // BOTWEAVER_OPENAI_BASE_URL
	ChatModel     string // BOTWEAVER_CHAT_MODEL (default: gpt-4o-mini)
	VisionModel   string // BOTWEAVER_VISION_MODEL (default: chat model)

	// External service credentials
	PlacesAPIKey string // BOTWEAVER_PLACES_API_KEY
	GitHubToken  string // BOTWEAVER_GITHUB_TOKEN
	GitHubOwner  string // BOTWEAVER_GITHUB_OWNER
	GitHubRepo   string // BOTWEAVER_GITHUB_REPO

	// Session configuration
	SessionTimeout  time.Duration // BOTWEAVER_SESSION_TIMEOUT (default: 30m)
	MaxHistory      int           // BOTWEAVER_MAX_HISTORY (default: 20)
	CleanupInterval time.Duration // BOTWEAVER_CLEANUP_INTERVAL (default: 5m)

	// SummaryMode is the default summarization mode (short/normal/detailed)
	SummaryMode string // BOTWEAVER_SUMMARY_MODE

	// BookmarksEnabled persists successful URL summaries as bookmarks
	BookmarksEnabled bool // BOTWEAVER_BOOKMARKS_ENABLED
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// FromEnv loads configuration from BOTWEAVER_* environment variables, leaving
// already-set fields alone when the variable is absent.
func (p *Profile) FromEnv() {
	getEnv := func(key, defaultValue string) string {
		if value := os.Getenv(key); value != "" {
			return value
		}
		return defaultValue
	}
	getDuration := func(key string, defaultValue time.Duration) time.Duration {
		if value := os.Getenv(key); value != "" {
			if d, err := time.ParseDuration(value); err == nil && d > 0 {
				return d
			}
		}
		return defaultValue
	}

	p.ChannelSecret = getEnv("BOTWEAVER_CHANNEL_SECRET", p.ChannelSecret)
	p.ChannelAccessToken = getEnv("BOTWEAVER_CHANNEL_ACCESS_TOKEN", p.ChannelAccessToken)

	p.OpenAIAPIKey = getEnv("BOTWEAVER_OPENAI_API_KEY", p.OpenAIAPIKey)
	p.OpenAIBaseURL = getEnv("BOTWEAVER_OPENAI_BASE_URL", p.OpenAIBaseURL)
	p.ChatModel = getEnv("BOTWEAVER_CHAT_MODEL", "gpt-4o-mini")
	p.VisionModel = getEnv("BOTWEAVER_VISION_MODEL", p.ChatModel)

	p.PlacesAPIKey = getEnv("BOTWEAVER_PLACES_API_KEY", p.PlacesAPIKey)
	p.GitHubToken = getEnv("BOTWEAVER_GITHUB_TOKEN", p.GitHubToken)
	p.GitHubOwner = getEnv("BOTWEAVER_GITHUB_OWNER", p.GitHubOwner)
	p.GitHubRepo = getEnv("BOTWEAVER_GITHUB_REPO", p.GitHubRepo)

	p.SessionTimeout = getDuration("BOTWEAVER_SESSION_TIMEOUT", 30*time.Minute)
	p.CleanupInterval = getDuration("BOTWEAVER_CLEANUP_INTERVAL", 5*time.Minute)
	if p.MaxHistory <= 0 {
		p.MaxHistory = 20
	}

	p.SummaryMode = getEnv("BOTWEAVER_SUMMARY_MODE", "normal")
	p.BookmarksEnabled = getEnv("BOTWEAVER_BOOKMARKS_ENABLED", "") == "true"
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

// Validate normalizes the profile and fills derived defaults.
func (p *Profile) Validate() error {
	if p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "dev"
	}

	if p.ChannelSecret == "" {
		return errors.New("channel secret is required")
	}
	if p.OpenAIAPIKey == "" {
		return errors.New("OpenAI API key is required")
	}

	if p.Driver != "sqlite" && p.Driver != "postgres" {
		p.Driver = "sqlite"
	}

	if p.Driver == "sqlite" && p.DSN == "" {
		dataDir, err := checkDataDir(p.Data)
		if err != nil {
			return err
		}
		p.Data = dataDir
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("botweaver_%s.db", p.Mode))
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	return nil
}
