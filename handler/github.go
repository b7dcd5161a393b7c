package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const defaultGitHubAPI = "https://api.github.com"

// RepoDigestConfig holds configuration for the repository digest handler.
type RepoDigestConfig struct {
	Token       string // Optional GitHub token for private repos and rate limits
	APIBaseURL  string // Default: https://api.github.com
	Owner       string
	Repo        string
	Lookback    time.Duration // How far back to collect issues, default: 24h
	HTTPTimeout time.Duration // Default: 15s
}

// GitHubDigest implements RepoDigester by listing recently updated issues of
// one repository through the GitHub REST API.
type GitHubDigest struct {
	http     *http.Client
	token    string
	baseURL  string
	owner    string
	repo     string
	lookback time.Duration
}

// NewGitHubDigest creates a repository digest handler from the configuration.
func NewGitHubDigest(cfg RepoDigestConfig) (*GitHubDigest, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("repo digest requires owner and repo")
	}
	baseURL := cfg.APIBaseURL
	if baseURL == "" {
		baseURL = defaultGitHubAPI
	}
	lookback := cfg.Lookback
	if lookback <= 0 {
		lookback = 24 * time.Hour
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GitHubDigest{
		http:     &http.Client{Timeout: timeout},
		token:    cfg.Token,
		baseURL:  strings.TrimRight(baseURL, "/"),
		owner:    cfg.Owner,
		repo:     cfg.Repo,
		lookback: lookback,
	}, nil
}

type githubIssue struct {
	Number      int    `json:"number"`
	Title       string `json:"title"`
	State       string `json:"state"`
	HTMLURL     string `json:"html_url"`
	Comments    int    `json:"comments"`
	PullRequest *struct {
		URL string `json:"url"`
	} `json:"pull_request"`
}

// Digest returns a formatted list of issues updated within the lookback
// window.
func (h *GitHubDigest) Digest(ctx context.Context) (string, error) {
	since := time.Now().Add(-h.lookback).UTC().Format(time.RFC3339)
	endpoint := fmt.Sprintf("%s/repos/%s/%s/issues?state=all&since=%s&per_page=20",
		h.baseURL, h.owner, h.repo, since)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", errors.Wrap(err, "build issues request")
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "list issues failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("list issues: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", errors.Wrap(err, "read issues response")
	}

	var issues []githubIssue
	if err := json.Unmarshal(body, &issues); err != nil {
		return "", errors.Wrap(err, "parse issues response")
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📋 %s/%s 近期 Issues：\n", h.owner, h.repo))
	count := 0
	for _, issue := range issues {
		if issue.PullRequest != nil {
			continue
		}
		count++
		sb.WriteString(fmt.Sprintf("• #%d %s [%s]", issue.Number, issue.Title, issue.State))
		if issue.Comments > 0 {
			sb.WriteString(fmt.Sprintf(" (%d 則留言)", issue.Comments))
		}
		sb.WriteByte('\n')
	}
	if count == 0 {
		return fmt.Sprintf("📋 %s/%s 在過去 %s 內沒有更新的 Issues。", h.owner, h.repo, h.lookback), nil
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

var _ RepoDigester = (*GitHubDigest)(nil)
