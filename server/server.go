// Package server exposes the chat-platform webhook over HTTP and delivers
// rendered replies back through a Messenger.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/hrygo/botweaver/internal/profile"
	"github.com/hrygo/botweaver/orchestrator"
)

// eventTimeout bounds the processing of one inbound event, replies included.
const eventTimeout = 60 * time.Second

// Server is the webhook HTTP server.
type Server struct {
	e          *echo.Echo
	profile    *profile.Profile
	dispatcher *orchestrator.Dispatcher
	messenger  Messenger
	limiters   *userLimiters

	// wg tracks in-flight event goroutines for graceful shutdown.
	wg sync.WaitGroup
}

// NewServer creates the webhook server with its routes registered.
func NewServer(profile *profile.Profile, dispatcher *orchestrator.Dispatcher, messenger Messenger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		e:          e,
		profile:    profile,
		dispatcher: dispatcher,
		messenger:  messenger,
		limiters:   newUserLimiters(rate.Every(time.Second), 5),
	}

	e.GET("/healthz", s.healthz)
	e.POST("/webhook", s.webhook)

	return s
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.profile.Addr, s.profile.Port)
	slog.Info("server started", "addr", addr, "mode", s.profile.Mode, "version", s.profile.Version)
	if err := s.e.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight event processing
// to finish or the context to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.e.Shutdown(ctx)

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("shutdown expired with events still in flight")
	}
	return err
}

func (s *Server) healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// userLimiters rate-limits inbound events per user.
type userLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newUserLimiters(limit rate.Limit, burst int) *userLimiters {
	return &userLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    limit,
		burst:    burst,
	}
}

// Allow reports whether one more event from userID may be processed now.
func (l *userLimiters) Allow(userID string) bool {
	l.mu.Lock()
	limiter, ok := l.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[userID] = limiter
	}
	l.mu.Unlock()
	return limiter.Allow()
}
