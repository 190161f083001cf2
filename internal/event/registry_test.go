package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchRunsHandlersInRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	var order []string
	r.On(OrderCreated, "first", func(context.Context, Event) error {
		order = append(order, "first")
		return nil
	})
	r.On(OrderCreated, "second", func(context.Context, Event) error {
		order = append(order, "second")
		return nil
	})
	r.On(OrderExpired, "other", func(context.Context, Event) error {
		order = append(order, "other")
		return nil
	})

	r.Dispatch(context.Background(), Event{Kind: OrderCreated})
	assert.Equal(t, []string{"first", "second"}, order)
}

func TestDispatchIsolatesFailures(t *testing.T) {
	r := NewRegistry()
	var reached bool
	r.On(OrderConfirmed, "broken", func(context.Context, Event) error {
		return errors.New("broker down")
	})
	r.On(OrderConfirmed, "after", func(context.Context, Event) error {
		reached = true
		return nil
	})

	r.Dispatch(context.Background(), Event{Kind: OrderConfirmed})
	assert.True(t, reached, "a failing handler must not block the rest of the chain")
}

func TestDispatchUnknownKindIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Dispatch(context.Background(), Event{Kind: ShowtimeReminder})
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "order.created", OrderCreated.String())
	assert.Equal(t, "order.expired", OrderExpired.String())
	assert.Equal(t, "showtime.reminder", ShowtimeReminder.String())
}
