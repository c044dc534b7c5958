package service

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/dspereira/openbook/internal/domain"
	"github.com/dspereira/openbook/internal/store"
)

// Valid webhook event types.
var validWebhookEvents = map[domain.EventType]bool{
	domain.EventOrderCreated:   true,
	domain.EventOrderFilled:    true,
	domain.EventOrderCancelled: true,
	domain.EventTradeExecuted:  true,
}

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	AccountID string
	URL       string
	Events    []string
}

// WebhookService handles webhook CRUD and the delivery of engine
// notifications to subscribed accounts.
type WebhookService struct {
	store    *store.WebhookStore
	accounts *store.AccountStore
	client   *http.Client
}

// NewWebhookService creates a WebhookService with the given dependencies.
func NewWebhookService(
	webhookStore *store.WebhookStore,
	accounts *store.AccountStore,
	timeout time.Duration,
) *WebhookService {
	return &WebhookService{
		store:    webhookStore,
		accounts: accounts,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Upsert validates the request and creates or updates subscriptions.
// Returns the resulting webhooks, whether any new subscriptions were
// created, and any error.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	if !s.accounts.Exists(req.AccountID) {
		return nil, false, domain.ErrAccountNotFound
	}

	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	// Deduplicate events while preserving order and validating.
	seen := make(map[domain.EventType]bool, len(req.Events))
	deduped := make([]domain.EventType, 0, len(req.Events))
	for _, raw := range req.Events {
		event := domain.EventType(raw)
		if !validWebhookEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + raw + ". Must be one of: order.created, order.filled, order.cancelled, trade.executed",
			}
		}
		if !seen[event] {
			seen[event] = true
			deduped = append(deduped, event)
		}
	}

	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(deduped))

	for _, event := range deduped {
		w := &domain.Webhook{
			WebhookID: uuid.New().String(),
			AccountID: req.AccountID,
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if s.store.Upsert(w) {
			anyCreated = true
			webhooks = append(webhooks, w)
		} else {
			if existing := s.store.GetByAccountEvent(req.AccountID, event); existing != nil {
				webhooks = append(webhooks, existing)
			}
		}
	}

	return webhooks, anyCreated, nil
}

// List validates the account exists and returns all its subscriptions.
func (s *WebhookService) List(accountID string) ([]*domain.Webhook, error) {
	if !s.accounts.Exists(accountID) {
		return nil, domain.ErrAccountNotFound
	}
	return s.store.ListByAccount(accountID), nil
}

// Delete removes a webhook subscription by id.
func (s *WebhookService) Delete(webhookID string) error {
	return s.store.Delete(webhookID)
}

// deliveryPayload is the JSON body POSTed to a subscriber.
type deliveryPayload struct {
	DeliveryID string       `json:"delivery_id"`
	Event      string       `json:"event"`
	SentAt     string       `json:"sent_at"`
	Data       domain.Event `json:"data"`
}

// Dispatch delivers engine notifications to subscribed accounts,
// fire-and-forget, preserving emission order per delivery goroutine
// batch. Order events go to the order's account; trade events go to both
// counterparties.
func (s *WebhookService) Dispatch(evts []domain.Event) {
	for _, evt := range evts {
		switch evt.Type {
		case domain.EventOrderCreated, domain.EventOrderFilled, domain.EventOrderCancelled:
			s.deliver(evt.AccountID, evt)
		case domain.EventTradeExecuted:
			if evt.Trade == nil {
				continue
			}
			s.deliver(evt.Trade.BuyerID, evt)
			s.deliver(evt.Trade.SellerID, evt)
		}
	}
}

// deliver POSTs one event to the account's subscription for that event
// type, if any. Delivery failures are dropped: observers reconcile via
// the query endpoints.
func (s *WebhookService) deliver(accountID string, evt domain.Event) {
	w := s.store.GetByAccountEvent(accountID, evt.Type)
	if w == nil {
		return
	}

	payload := deliveryPayload{
		DeliveryID: uuid.New().String(),
		Event:      string(evt.Type),
		SentAt:     time.Now().UTC().Format(time.RFC3339),
		Data:       evt,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}

	go func(url string) {
		resp, err := s.client.Post(url, "application/json", bytes.NewReader(body))
		if err != nil {
			return
		}
		resp.Body.Close()
	}(w.URL)
}
