// Package notifier fans newly created alerts out to external channels.
package notifier

import (
	"context"
	"log"
	"sync"

	"github.com/good-yellow-bee/sentinela/internal/metrics"
	"github.com/good-yellow-bee/sentinela/internal/models"
)

// Notifier is one outbound delivery channel.
type Notifier interface {
	// Name returns the channel name (e.g., "email", "slack").
	Name() string
	// Send delivers one alert notification.
	Send(ctx context.Context, alert *models.Alert) error
	// Close releases any resources.
	Close() error
}

// Dispatcher routes alerts to every registered channel. Delivery is
// best-effort: channel failures are logged and counted, never surfaced
// to the evaluation pass that produced the alert.
type Dispatcher struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	limiter   *RateLimiter
}

// NewDispatcher creates a dispatcher with the given rate limit
// configuration.
func NewDispatcher(cfg RateLimitConfig) *Dispatcher {
	return &Dispatcher{
		notifiers: make(map[string]Notifier),
		limiter:   NewRateLimiter(cfg),
	}
}

// Register adds a channel to the dispatcher.
func (d *Dispatcher) Register(n Notifier) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifiers[n.Name()] = n
}

// Unregister removes a channel by name.
func (d *Dispatcher) Unregister(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.notifiers, name)
}

// Dispatch sends one alert to every registered channel, subject to the
// shared rate limit. One token covers the whole fan-out.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(d.notifiers) == 0 {
		return
	}

	if !d.limiter.Allow() {
		metrics.NotificationsDroppedTotal.Inc()
		log.Printf("notification for alert %s dropped: rate limited", alert.ID)
		return
	}

	for name, n := range d.notifiers {
		if err := n.Send(ctx, alert); err != nil {
			log.Printf("notify %s: %v", name, err)
			continue
		}
		metrics.NotificationsSentTotal.WithLabelValues(name).Inc()
	}
}

// Close closes all registered channels.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for name, n := range d.notifiers {
		if err := n.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.notifiers, name)
	}
	return firstErr
}
