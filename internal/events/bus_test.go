package events_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/storefront-api/internal/events"
)

type captureNotifier struct {
	events []events.Event
	err    error
}

func (c *captureNotifier) Notify(_ context.Context, event events.Event) error {
	c.events = append(c.events, event)
	return c.err
}

func TestEmitDispatchesToTopicSubscribers(t *testing.T) {
	bus := events.NewBus()
	orders := &captureNotifier{}
	carts := &captureNotifier{}
	bus.Subscribe(events.TopicOrderPlaced, orders)
	bus.Subscribe(events.TopicCartUpdated, carts)

	ev, err := bus.Emit(context.Background(), events.TopicOrderPlaced, map[string]any{"orderCode": "SO-123"})
	require.NoError(t, err)
	require.Equal(t, events.TopicOrderPlaced, ev.Topic)
	require.NotZero(t, ev.ID)
	require.False(t, ev.OccurredAt.IsZero())

	require.Len(t, orders.events, 1)
	require.Empty(t, carts.events, "subscriber on another topic must not fire")
}

func TestEmitWildcardSubscriber(t *testing.T) {
	bus := events.NewBus()
	all := &captureNotifier{}
	bus.Subscribe("", all)

	_, err := bus.Emit(context.Background(), events.TopicCartUpdated, nil)
	require.NoError(t, err)
	_, err = bus.Emit(context.Background(), events.TopicPaymentConfirmed, nil)
	require.NoError(t, err)

	require.Len(t, all.events, 2)
}

func TestEmitJoinsNotifierErrors(t *testing.T) {
	bus := events.NewBus()
	failing := &captureNotifier{err: errors.New("boom")}
	healthy := &captureNotifier{}
	bus.Subscribe(events.TopicOrderPlaced, failing)
	bus.Subscribe(events.TopicOrderPlaced, healthy)

	_, err := bus.Emit(context.Background(), events.TopicOrderPlaced, nil)
	require.Error(t, err)
	require.Len(t, healthy.events, 1, "error from one subscriber must not stop fan-out")
}

func TestEmitRequiresTopic(t *testing.T) {
	bus := events.NewBus()
	_, err := bus.Emit(context.Background(), "  ", nil)
	require.Error(t, err)
}
