package push

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/hotlinehq/relay-api/internal/models"
	"github.com/hotlinehq/relay-api/internal/repository"
)

var (
	// ErrNoToken means the recipient has no usable token for the requested
	// platform. Distinct from a dispatch failure: zero attempts were made.
	ErrNoToken = errors.New("no push token registered for recipient")
	// ErrMissingTopic means neither a per-call override nor a configured
	// bundle identifier was available for an APNs dispatch.
	ErrMissingTopic = errors.New("missing bundle topic configuration")
)

const callTitle = "Incoming Call"

// Service orchestrates call-notification triggers: credential lookup,
// content shaping, dispatch, and per-credential result aggregation.
type Service interface {
	TriggerCall(ctx context.Context, tel string) (models.DispatchSummary, error)
	TriggerCallIOS(ctx context.Context, tel, topicOverride string) (models.DispatchSummary, error)
}

type service struct {
	creds        repository.CredentialRepository
	android      Sender
	ios          Sender
	recipient    string
	defaultTopic string
	logger       zerolog.Logger
}

func NewService(creds repository.CredentialRepository, android, ios Sender, recipient, defaultTopic string, logger zerolog.Logger) Service {
	return &service{
		creds:        creds,
		android:      android,
		ios:          ios,
		recipient:    recipient,
		defaultTopic: defaultTopic,
		logger:       logger.With().Str("component", "push_service").Logger(),
	}
}

func (s *service) TriggerCall(ctx context.Context, tel string) (models.DispatchSummary, error) {
	tokens, err := s.lookupTokens(ctx, func(cred models.PushCredential) string { return cred.FCMToken })
	if err != nil {
		return models.DispatchSummary{}, err
	}

	note := Notification{
		Title: callTitle,
		Body:  fmt.Sprintf("A visitor clicked Call: %s", tel),
	}
	return s.dispatch(ctx, s.android, tokens, note), nil
}

func (s *service) TriggerCallIOS(ctx context.Context, tel, topicOverride string) (models.DispatchSummary, error) {
	topic := strings.TrimSpace(topicOverride)
	if topic == "" {
		topic = s.defaultTopic
	}
	if topic == "" {
		return models.DispatchSummary{}, ErrMissingTopic
	}

	tokens, err := s.lookupTokens(ctx, func(cred models.PushCredential) string { return cred.APNToken })
	if err != nil {
		return models.DispatchSummary{}, err
	}

	note := Notification{
		Title: callTitle,
		Body:  fmt.Sprintf("A visitor clicked Call: %s", tel),
		Topic: topic,
	}
	return s.dispatch(ctx, s.ios, tokens, note), nil
}

func (s *service) lookupTokens(ctx context.Context, pick func(models.PushCredential) string) ([]string, error) {
	credentials, err := s.creds.Find(ctx, s.recipient)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoToken
		}
		return nil, errors.Wrap(err, "lookup credentials")
	}

	var tokens []string
	for _, cred := range credentials {
		if token := strings.TrimSpace(pick(cred)); token != "" {
			tokens = append(tokens, token)
		}
	}
	if len(tokens) == 0 {
		return nil, ErrNoToken
	}
	return tokens, nil
}

// dispatch attempts every token independently. One credential's failure is
// recorded in its own result entry and never aborts the loop.
func (s *service) dispatch(ctx context.Context, sender Sender, tokens []string, note Notification) models.DispatchSummary {
	summary := models.DispatchSummary{Results: []models.DispatchResult{}}
	for _, token := range tokens {
		messageID, err := sender.Send(ctx, token, note)
		if err != nil {
			s.logger.Warn().Err(err).Str("token", token).Msg("Dispatch failed")
			summary.Add(models.DispatchResult{Token: token, Success: false, Error: err.Error()})
			continue
		}
		summary.Add(models.DispatchResult{Token: token, Success: true, MessageID: messageID})
	}
	return summary
}
