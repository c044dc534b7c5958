package domain

import "time"

// Webhook represents a subscription of one account to one event type.
// Deliveries are HTTPS POSTs of the event payload to URL.
type Webhook struct {
	WebhookID string
	AccountID string
	Event     EventType
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
