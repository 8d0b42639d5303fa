package repository

import (
	"context"
	"database/sql"

	"github.com/hotlinehq/relay-api/internal/models"
)

type CredentialRepository interface {
	// Upsert writes the supplied tokens for the recipient. Empty fields
	// preserve the previously stored value (partial update).
	Upsert(ctx context.Context, params UpsertCredentialParams) (models.PushCredential, error)
	// Find returns the credentials on file for the recipient. A recipient
	// with no record yields sql.ErrNoRows.
	Find(ctx context.Context, recipientID string) ([]models.PushCredential, error)
}

type UpsertCredentialParams struct {
	RecipientID string
	FCMToken    string
	APNToken    string
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

func (r *credentialRepository) Upsert(ctx context.Context, params UpsertCredentialParams) (models.PushCredential, error) {
	const query = `
		INSERT INTO relay.push_credentials (recipient_id, fcm_token, apn_token)
		VALUES ($1, $2, $3)
		ON CONFLICT (recipient_id) DO UPDATE SET
			fcm_token = COALESCE(NULLIF(EXCLUDED.fcm_token, ''), relay.push_credentials.fcm_token),
			apn_token = COALESCE(NULLIF(EXCLUDED.apn_token, ''), relay.push_credentials.apn_token),
			updated_at = NOW()
		RETURNING recipient_id, fcm_token, apn_token, updated_at
	`

	row := r.db.QueryRowContext(ctx, query, params.RecipientID, params.FCMToken, params.APNToken)
	return scanCredential(row)
}

func (r *credentialRepository) Find(ctx context.Context, recipientID string) ([]models.PushCredential, error) {
	const query = `
		SELECT recipient_id, fcm_token, apn_token, updated_at
		FROM relay.push_credentials
		WHERE recipient_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credentials []models.PushCredential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(credentials) == 0 {
		return nil, sql.ErrNoRows
	}
	return credentials, nil
}

func scanCredential(scanner interface {
	Scan(dest ...interface{}) error
}) (models.PushCredential, error) {
	var (
		cred models.PushCredential
		fcm  sql.NullString
		apn  sql.NullString
	)

	if err := scanner.Scan(&cred.RecipientID, &fcm, &apn, &cred.UpdatedAt); err != nil {
		return models.PushCredential{}, err
	}

	cred.FCMToken = fcm.String
	cred.APNToken = apn.String
	return cred, nil
}
