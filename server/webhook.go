package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/hrygo/botweaver/handler"
	"github.com/hrygo/botweaver/orchestrator"
)

// signatureHeader carries the HMAC-SHA256 signature of the request body.
const signatureHeader = "X-Line-Signature"

// Webhook payload shapes, matching the chat platform's event envelope.
type webhookRequest struct {
	Events []webhookEvent `json:"events"`
}

type webhookEvent struct {
	Type       string `json:"type"`
	ReplyToken string `json:"replyToken"`
	Source     struct {
		UserID string `json:"userId"`
	} `json:"source"`
	Message struct {
		ID        string  `json:"id"`
		Type      string  `json:"type"`
		Text      string  `json:"text"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"message"`
}

func (s *Server) webhook(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "failed to read body")
	}

	if !validSignature(s.profile.ChannelSecret, body, c.Request().Header.Get(signatureHeader)) {
		slog.Warn("webhook signature mismatch", "remote", c.RealIP())
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	var req webhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed payload")
	}

	// Ack the platform immediately; events are processed asynchronously and
	// replies delivered via the messenger.
	for _, event := range req.Events {
		if event.Type != "message" {
			continue
		}
		if event.Source.UserID == "" || event.ReplyToken == "" {
			continue
		}
		if !s.limiters.Allow(event.Source.UserID) {
			slog.Warn("event dropped by rate limit", "user_id", event.Source.UserID)
			continue
		}

		s.wg.Add(1)
		go func(event webhookEvent) {
			defer s.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), eventTimeout)
			defer cancel()
			s.handleEvent(ctx, event)
		}(event)
	}

	return c.NoContent(http.StatusOK)
}

// handleEvent dispatches one inbound message event and replies with the
// rendered result.
func (s *Server) handleEvent(ctx context.Context, event webhookEvent) {
	logger := slog.With(
		"request_id", uuid.NewString(),
		"user_id", event.Source.UserID,
		"message_type", event.Message.Type,
	)

	var reply string
	switch event.Message.Type {
	case "text":
		result := s.dispatcher.ProcessText(ctx, event.Source.UserID, event.Message.Text,
			orchestrator.Options{Mode: s.profile.SummaryMode})
		reply = renderReply(result)

	case "image":
		data, err := s.messenger.GetContent(ctx, event.Message.ID)
		if err != nil {
			logger.Error("failed to fetch image content", "error", err)
			reply = "❌ 無法下載圖片，請稍後再試。"
			break
		}
		result := s.dispatcher.ProcessImage(ctx, event.Source.UserID, data, "")
		reply = renderReply(result)

	case "location":
		result := s.dispatcher.ProcessLocation(ctx, event.Source.UserID,
			event.Message.Latitude, event.Message.Longitude, handler.PlaceRestaurant)
		reply = renderReply(result)

	default:
		logger.Info("ignoring unsupported message type")
		return
	}

	if err := s.messenger.Reply(ctx, event.ReplyToken, reply); err != nil {
		logger.Error("failed to deliver reply", "error", err)
		return
	}
	logger.Info("event handled")
}

// validSignature checks the platform's HMAC-SHA256 body signature in
// constant time.
func validSignature(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	decoded, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return subtle.ConstantTimeCompare(decoded, mac.Sum(nil)) == 1
}
