package events

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus(nil)

	var received *Event
	var callCount int

	bus.Subscribe(EventReservationCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	payload := ReservationEventPayload{ReservationID: 7, OfficeID: "lisbon", Status: "pending", StartDate: start}
	require.NoError(t, bus.PublishJSON(EventReservationCreated, payload))

	assert.Equal(t, 1, callCount)
	require.NotNil(t, received)
	assert.Equal(t, EventReservationCreated, received.Type)
	assert.False(t, received.CreatedAt.IsZero())

	var decoded ReservationEventPayload
	require.NoError(t, received.Decode(&decoded))
	assert.Equal(t, int64(7), decoded.ReservationID)
	assert.True(t, start.Equal(decoded.StartDate))
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	var count1, count2 int

	bus.Subscribe(EventQuoteComputed, func(_ *Event) error { count1++; return nil })
	bus.Subscribe(EventQuoteComputed, func(_ *Event) error { count2++; return nil })
	bus.Subscribe(EventDiscountRedeemed, func(_ *Event) error { count2 += 100; return nil })

	bus.Publish(&Event{Type: EventQuoteComputed})

	assert.Equal(t, 1, count1)
	assert.Equal(t, 1, count2)
}

func TestEventBusHandlerErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	bus := NewEventBus(&logger)

	var second bool
	bus.Subscribe(EventReservationCanceled, func(_ *Event) error { return errors.New("boom") })
	bus.Subscribe(EventReservationCanceled, func(_ *Event) error { second = true; return nil })

	require.NoError(t, bus.PublishJSON(EventReservationCanceled, ReservationEventPayload{ReservationID: 1}))
	assert.True(t, second, "a failing handler must not stop the others")
	assert.Contains(t, buf.String(), "boom")
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	assert.NotPanics(t, func() { bus.Publish(&Event{Type: "unknown"}) })
	assert.NoError(t, bus.PublishJSON("unknown", nil))

	var nilBus *EventBus
	assert.NoError(t, nilBus.PublishJSON(EventQuoteComputed, nil))
}

func TestNewJSONEvent(t *testing.T) {
	event, err := NewJSONEvent(EventDiscountRedeemed, DiscountEventPayload{Code: "SPRING20", Amount: 42})
	require.NoError(t, err)
	assert.Equal(t, EventDiscountRedeemed, event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var decoded DiscountEventPayload
	require.NoError(t, event.Decode(&decoded))
	assert.Equal(t, "SPRING20", decoded.Code)
	assert.Equal(t, 42.0, decoded.Amount)

	_, err = NewJSONEvent("bad", make(chan int))
	assert.Error(t, err)
}
