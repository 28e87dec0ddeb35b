package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventQuoteComputed        = "quote_computed"
	EventReservationCreated   = "reservation_created"
	EventReservationCanceled  = "reservation_canceled"
	EventReservationConfirmed = "reservation_confirmed"
	EventDiscountRedeemed     = "discount_redeemed"
)

// QuoteEventPayload is published for every successfully priced quote.
type QuoteEventPayload struct {
	QuoteID      string  `json:"quote_id"`
	OfficeID     string  `json:"office_id"`
	CategoryID   string  `json:"category_id"`
	CustomerID   string  `json:"customer_id,omitempty"`
	TotalHours   int     `json:"total_hours"`
	TotalPrice   float64 `json:"total_price"`
	DiscountCode string  `json:"discount_code,omitempty"`
}

// ReservationEventPayload describes the minimal reservation snapshot for event consumers.
type ReservationEventPayload struct {
	ReservationID int64     `json:"reservation_id"`
	OfficeID      string    `json:"office_id"`
	CategoryID    string    `json:"category_id"`
	CustomerID    string    `json:"customer_id"`
	Status        string    `json:"status"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
	TotalPrice    float64   `json:"total_price"`
	DiscountCode  string    `json:"discount_code,omitempty"`
}

// DiscountEventPayload is published when a code is consumed by a reservation.
type DiscountEventPayload struct {
	Code          string  `json:"code"`
	CustomerID    string  `json:"customer_id"`
	ReservationID int64   `json:"reservation_id"`
	Amount        float64 `json:"amount"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into v.
func (e *Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

// NewEventBus constructs an empty bus. Handler errors are logged when
// logger is not nil.
func NewEventBus(logger *zerolog.Logger) *EventBus {
	return &EventBus{
		subscribers: make(map[string][]EventHandler),
		logger:      logger,
	}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		if err := handler(event); err != nil && b.logger != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	b.Publish(&event)
	return nil
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
