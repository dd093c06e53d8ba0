package services

import (
	"context"
	"sync"
	"time"

	"taskhub/logging"
	"taskhub/models"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
)

// Notifier announces state changes. Emit must never block or fail the caller.
type Notifier interface {
	Emit(event string, payload any)
}

// Sink is a durable or remote destination for notifications.
type Sink interface {
	Deliver(ctx context.Context, n models.Notification) error
}

// Broadcaster fans notifications out to in-process subscribers and to sinks.
// Subscribers that fall behind lose events; sink deliveries run in the
// background behind a circuit breaker.
type Broadcaster struct {
	mu      sync.RWMutex
	subs    map[chan models.Notification]struct{}
	sinks   []Sink
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewBroadcaster(sinks ...Sink) *Broadcaster {
	return &Broadcaster{
		subs:    make(map[chan models.Notification]struct{}),
		sinks:   sinks,
		timeout: 5 * time.Second,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "notifications-cb",
			MaxRequests: 1,
			Timeout:     5 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' state changed from %s to %s", name, from.String(), to.String())
			},
		}),
	}
}

func (b *Broadcaster) Emit(event string, payload any) {
	n := models.Notification{
		ID:        uuid.NewString(),
		Event:     event,
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	b.mu.RLock()
	for ch := range b.subs {
		select {
		case ch <- n:
		default:
			// subscriber is behind; drop rather than block the mutation
		}
	}
	b.mu.RUnlock()

	for _, sink := range b.sinks {
		b.wg.Add(1)
		go b.deliver(sink, n)
	}
}

func (b *Broadcaster) deliver(sink Sink, n models.Notification) {
	defer b.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, sink.Deliver(ctx, n)
	})
	if err != nil {
		logging.Logger.Warnf("Event ID: NOTIFICATION_DELIVERY_FAILED, Description: Failed to deliver %s notification %s: %v", n.Event, n.ID, err)
	}
}

// Subscribe returns a buffered channel that receives every notification.
func (b *Broadcaster) Subscribe() chan models.Notification {
	ch := make(chan models.Notification, 64)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(ch chan models.Notification) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
	close(ch)
}

// Close waits for in-flight sink deliveries.
func (b *Broadcaster) Close() {
	b.wg.Wait()
}
