package push

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hotlinehq/relay-api/internal/config"
)

// FCMSender delivers notifications through Firebase Cloud Messaging.
type FCMSender struct {
	endpoint  string
	serverKey string
	client    *http.Client
	logger    zerolog.Logger
}

func NewFCMSender(cfg config.FCMConfig, client *http.Client, logger zerolog.Logger) *FCMSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &FCMSender{
		endpoint:  cfg.Endpoint,
		serverKey: cfg.ServerKey,
		client:    client,
		logger:    logger.With().Str("notifier", "fcm").Logger(),
	}
}

type fcmRequest struct {
	To           string          `json:"to"`
	Priority     string          `json:"priority"`
	Notification fcmNotification `json:"notification"`
	Android      fcmAndroid      `json:"android"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Notification fcmAndroidNotification `json:"notification"`
}

type fcmAndroidNotification struct {
	Sound    string `json:"sound"`
	Priority string `json:"priority"`
}

type fcmResponse struct {
	Success int `json:"success"`
	Failure int `json:"failure"`
	Results []struct {
		MessageID string `json:"message_id"`
		Error     string `json:"error"`
	} `json:"results"`
}

func (s *FCMSender) Send(ctx context.Context, token string, note Notification) (string, error) {
	payload := fcmRequest{
		To:           token,
		Priority:     "high",
		Notification: fcmNotification{Title: note.Title, Body: note.Body},
		Android: fcmAndroid{
			Notification: fcmAndroidNotification{Sound: "default", Priority: "high"},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "fcm: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "fcm: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.serverKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "fcm: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.Errorf("fcm: unexpected status %d", resp.StatusCode)
	}

	var parsed fcmResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.Wrap(err, "fcm: decode response")
	}

	if len(parsed.Results) > 0 {
		result := parsed.Results[0]
		if result.Error != "" {
			return "", errors.Errorf("fcm: %s", result.Error)
		}
		s.logger.Info().Str("message_id", result.MessageID).Msg("Notification dispatched")
		return result.MessageID, nil
	}
	if parsed.Failure > 0 {
		return "", errors.New("fcm: delivery rejected")
	}

	s.logger.Info().Msg("Notification dispatched")
	return "", nil
}
