package push

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hotlinehq/relay-api/internal/config"
)

// APNSSender delivers notifications through the Apple Push Notification
// service provider API.
type APNSSender struct {
	endpoint  string
	authToken string
	expiry    time.Duration
	client    *http.Client
	logger    zerolog.Logger
}

func NewAPNSSender(cfg config.APNSConfig, client *http.Client, logger zerolog.Logger) *APNSSender {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	expiry := cfg.Expiry
	if expiry == 0 {
		expiry = time.Hour
	}
	return &APNSSender{
		endpoint:  cfg.Endpoint,
		authToken: cfg.AuthToken,
		expiry:    expiry,
		client:    client,
		logger:    logger.With().Str("notifier", "apns").Logger(),
	}
}

type apnsPayload struct {
	APS       apnsAPS `json:"aps"`
	Timestamp string  `json:"timestamp"`
}

type apnsAPS struct {
	Alert apnsAlert `json:"alert"`
	Sound string    `json:"sound"`
	Badge int       `json:"badge"`
}

type apnsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type apnsError struct {
	Reason string `json:"reason"`
}

func (s *APNSSender) Send(ctx context.Context, token string, note Notification) (string, error) {
	if note.Topic == "" {
		return "", errors.New("apns: missing topic")
	}

	payload := apnsPayload{
		APS: apnsAPS{
			Alert: apnsAlert{Title: note.Title, Body: note.Body},
			Sound: "default",
			Badge: 1,
		},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", errors.Wrap(err, "apns: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+"/3/device/"+token, bytes.NewReader(body))
	if err != nil {
		return "", errors.Wrap(err, "apns: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "bearer "+s.authToken)
	req.Header.Set("apns-topic", note.Topic)
	req.Header.Set("apns-push-type", "alert")
	req.Header.Set("apns-priority", "10")
	// Undelivered notifications are dropped by the gateway after this
	// point rather than arriving late.
	req.Header.Set("apns-expiration", strconv.FormatInt(time.Now().Add(s.expiry).Unix(), 10))

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "apns: request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		apnsID := resp.Header.Get("apns-id")
		s.logger.Info().Str("apns_id", apnsID).Msg("Notification dispatched")
		return apnsID, nil
	}

	// The gateway-reported reason is more specific than the status line.
	var gatewayErr apnsError
	if err := json.NewDecoder(resp.Body).Decode(&gatewayErr); err == nil && gatewayErr.Reason != "" {
		return "", errors.Errorf("apns: %s", gatewayErr.Reason)
	}
	return "", errors.Errorf("apns: unexpected status %d", resp.StatusCode)
}
