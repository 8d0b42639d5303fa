package handlers

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/hotlinehq/relay-api/internal/models"
	"github.com/hotlinehq/relay-api/internal/repository"
)

type fakeEventRepo struct {
	events    []models.SiteEvent
	clock     time.Time
	createErr error
	listErr   error
}

func (f *fakeEventRepo) Create(ctx context.Context, params repository.CreateEventParams) (models.SiteEvent, error) {
	if f.createErr != nil {
		return models.SiteEvent{}, f.createErr
	}
	if f.clock.IsZero() {
		f.clock = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	f.clock = f.clock.Add(time.Millisecond)
	event := models.SiteEvent{
		ID:        params.ID,
		Type:      params.Type,
		Who:       params.Who,
		Meta:      params.Meta,
		CreatedAt: f.clock,
	}
	f.events = append(f.events, event)
	return event, nil
}

func (f *fakeEventRepo) List(ctx context.Context) ([]models.SiteEvent, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	sorted := make([]models.SiteEvent, len(f.events))
	copy(sorted, f.events)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})
	return sorted, nil
}

// fakeCredRepo mirrors the partial-update upsert of the real store: empty
// fields preserve the previously stored value.
type fakeCredRepo struct {
	records   map[string]models.PushCredential
	upsertErr error
	findErr   error
}

func newFakeCredRepo() *fakeCredRepo {
	return &fakeCredRepo{records: make(map[string]models.PushCredential)}
}

func (f *fakeCredRepo) Upsert(ctx context.Context, params repository.UpsertCredentialParams) (models.PushCredential, error) {
	if f.upsertErr != nil {
		return models.PushCredential{}, f.upsertErr
	}
	cred := f.records[params.RecipientID]
	cred.RecipientID = params.RecipientID
	if params.FCMToken != "" {
		cred.FCMToken = params.FCMToken
	}
	if params.APNToken != "" {
		cred.APNToken = params.APNToken
	}
	cred.UpdatedAt = time.Now()
	f.records[params.RecipientID] = cred
	return cred, nil
}

func (f *fakeCredRepo) Find(ctx context.Context, recipientID string) ([]models.PushCredential, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	cred, ok := f.records[recipientID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return []models.PushCredential{cred}, nil
}

type broadcastCall struct {
	topic   string
	payload interface{}
}

type fakeBroadcaster struct {
	calls []broadcastCall
}

func (f *fakeBroadcaster) Broadcast(topic string, payload interface{}) {
	f.calls = append(f.calls, broadcastCall{topic: topic, payload: payload})
}

type fakePushService struct {
	summary      models.DispatchSummary
	err          error
	calls        int
	lastTel      string
	lastOverride string
}

func (f *fakePushService) TriggerCall(ctx context.Context, tel string) (models.DispatchSummary, error) {
	f.calls++
	f.lastTel = tel
	return f.summary, f.err
}

func (f *fakePushService) TriggerCallIOS(ctx context.Context, tel, topicOverride string) (models.DispatchSummary, error) {
	f.calls++
	f.lastTel = tel
	f.lastOverride = topicOverride
	return f.summary, f.err
}
