package models

import "time"

// EventMeta is the accepted structured payload attached to a site event.
// Only the keys the dashboard understands are kept; everything else is
// dropped at ingress.
type EventMeta struct {
	Tel  string `json:"tel,omitempty"`
	Page string `json:"page,omitempty"`
}

type SiteEvent struct {
	ID        string    `json:"id" db:"id"`
	Type      string    `json:"type" db:"event_type"`
	Who       string    `json:"who" db:"who"`
	Meta      EventMeta `json:"meta" db:"meta"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

const (
	DefaultEventType = "unknown"
	DefaultEventWho  = "public-site"
)
