package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/hotlinehq/relay-api/internal/models"
)

type EventRepository interface {
	Create(ctx context.Context, params CreateEventParams) (models.SiteEvent, error)
	List(ctx context.Context) ([]models.SiteEvent, error)
}

type CreateEventParams struct {
	ID   string
	Type string
	Who  string
	Meta models.EventMeta
}

type eventRepository struct {
	db *sql.DB
}

func NewEventRepository(db *sql.DB) EventRepository {
	return &eventRepository{db: db}
}

func (r *eventRepository) Create(ctx context.Context, params CreateEventParams) (models.SiteEvent, error) {
	const query = `
		INSERT INTO relay.site_events (id, event_type, who, meta)
		VALUES ($1, $2, $3, $4)
		RETURNING id, event_type, who, meta, created_at
	`

	meta, err := json.Marshal(params.Meta)
	if err != nil {
		return models.SiteEvent{}, errors.Wrap(err, "marshal meta")
	}

	row := r.db.QueryRowContext(ctx, query, params.ID, params.Type, params.Who, meta)
	return scanEvent(row)
}

func (r *eventRepository) List(ctx context.Context) ([]models.SiteEvent, error) {
	const query = `
		SELECT id, event_type, who, meta, created_at
		FROM relay.site_events
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := []models.SiteEvent{}
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func scanEvent(scanner interface {
	Scan(dest ...interface{}) error
}) (models.SiteEvent, error) {
	var (
		event   models.SiteEvent
		metaRaw []byte
	)

	if err := scanner.Scan(&event.ID, &event.Type, &event.Who, &metaRaw, &event.CreatedAt); err != nil {
		return models.SiteEvent{}, err
	}

	if len(metaRaw) > 0 {
		if err := json.Unmarshal(metaRaw, &event.Meta); err != nil {
			return models.SiteEvent{}, errors.Wrap(err, "unmarshal meta")
		}
	}

	return event, nil
}
