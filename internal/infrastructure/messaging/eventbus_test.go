package messaging

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/linguaquest/gamification-engine/internal/domain/shared"
)

func quietBus(async bool) *InMemoryEventBus {
	return NewInMemoryEventBus(BusConfig{
		Async:  async,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func TestBus_SubscribeByType(t *testing.T) {
	bus := quietBus(false)

	var got []shared.Event
	assert.NoError(t, bus.Subscribe(shared.EventXPAwarded, func(e shared.Event) error {
		got = append(got, e)
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewXPAwardedEvent("u1", 30, 30, shared.EventLessonCompleted)))
	assert.NoError(t, bus.Publish(shared.NewLevelReachedEvent("u1", 1, 2, 200)))

	assert.Len(t, got, 1)
	assert.Equal(t, shared.EventXPAwarded, got[0].EventType())
	assert.Equal(t, "u1", got[0].AggregateID())
}

func TestBus_SubscribeAll(t *testing.T) {
	bus := quietBus(false)

	count := 0
	assert.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		count++
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewXPAwardedEvent("u1", 30, 30, shared.EventLessonCompleted)))
	assert.NoError(t, bus.Publish(shared.NewBadgeUnlockedEvent("u1", "first_lesson", "First Steps", "common")))
	assert.Equal(t, 2, count)
}

func TestBus_HandlerErrorNeverPropagates(t *testing.T) {
	bus := quietBus(false)

	assert.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		return errors.New("feed down")
	}))
	assert.NoError(t, bus.Publish(shared.NewXPAwardedEvent("u1", 30, 30, shared.EventLessonCompleted)))
}

func TestBus_AsyncDeliveryDrainsOnClose(t *testing.T) {
	bus := quietBus(true)

	var mu sync.Mutex
	count := 0
	assert.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		mu.Lock()
		defer mu.Unlock()
		count++
		return nil
	}))

	for i := 0; i < 20; i++ {
		assert.NoError(t, bus.Publish(shared.NewXPAwardedEvent("u1", 1, i, shared.EventLessonCompleted)))
	}
	bus.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 20, count)
}

func TestBus_ClosedBusRejectsEverything(t *testing.T) {
	bus := quietBus(false)
	bus.Close()

	assert.ErrorIs(t, bus.Publish(shared.NewXPAwardedEvent("u1", 1, 1, shared.EventLessonCompleted)), ErrBusClosed)
	assert.ErrorIs(t, bus.Subscribe(shared.EventXPAwarded, func(shared.Event) error { return nil }), ErrBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrBusClosed)
}

func TestBus_NilArguments(t *testing.T) {
	bus := quietBus(false)

	assert.Error(t, bus.Subscribe(shared.EventXPAwarded, nil))
	assert.Error(t, bus.SubscribeAll(nil))
	assert.Error(t, bus.Publish(nil))
}
