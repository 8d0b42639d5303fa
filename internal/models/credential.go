package models

import "time"

// PushCredential holds the push tokens registered for one recipient. Either
// token may be empty; a trigger for a platform with no token on file is a
// not-found condition, never a crash.
type PushCredential struct {
	RecipientID string    `json:"recipient_id" db:"recipient_id"`
	FCMToken    string    `json:"fcmToken,omitempty" db:"fcm_token"`
	APNToken    string    `json:"apnToken,omitempty" db:"apn_token"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// DispatchResult captures the delivery outcome for a single credential.
type DispatchResult struct {
	Token     string `json:"token"`
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// DispatchSummary aggregates per-credential outcomes for one trigger
// invocation. Always a list plus tallies, even when only one credential was
// attempted, so extending to multiple recipients is not an interface change.
type DispatchSummary struct {
	SuccessCount int              `json:"successCount"`
	FailureCount int              `json:"failureCount"`
	Results      []DispatchResult `json:"results"`
}

func (s *DispatchSummary) Add(res DispatchResult) {
	if res.Success {
		s.SuccessCount++
	} else {
		s.FailureCount++
	}
	s.Results = append(s.Results, res)
}
