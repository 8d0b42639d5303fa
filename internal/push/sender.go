package push

import "context"

// Notification is the formatted content handed to a gateway adapter.
type Notification struct {
	Title string
	Body  string
	// Topic is the app bundle identifier, required by the APNs gateway.
	// Resolved by the trigger service before dispatch.
	Topic string
}

// Sender submits one notification to a push gateway for a single device
// token and returns the gateway's delivery reference. Implementations
// report gateway rejections as errors carrying the most specific reason
// the gateway exposed.
type Sender interface {
	Send(ctx context.Context, token string, note Notification) (string, error)
}
