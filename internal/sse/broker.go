package sse

import (
	"context"
	"sync"

	"mekaniku/internal/models"
)

const clientBuffer = 10

// NotificationBroker fans notifications out to the SSE streams of their
// recipient. Each process owns its broker; there is no global instance.
type NotificationBroker struct {
	mu      sync.RWMutex
	clients map[string][]chan models.Notification
}

func NewNotificationBroker() *NotificationBroker {
	return &NotificationBroker{clients: make(map[string][]chan models.Notification)}
}

// Subscribe registers a stream for userID. The channel is closed once ctx is done.
func (b *NotificationBroker) Subscribe(ctx context.Context, userID string) <-chan models.Notification {
	ch := make(chan models.Notification, clientBuffer)

	b.mu.Lock()
	b.clients[userID] = append(b.clients[userID], ch)
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.remove(userID, ch)
	}()
	return ch
}

// Publish delivers n to every stream of its recipient. Slow clients with a
// full buffer miss the event. Returns the number of streams reached.
func (b *NotificationBroker) Publish(n models.Notification) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	delivered := 0
	for _, ch := range b.clients[n.ToUserID] {
		select {
		case ch <- n:
			delivered++
		default:
		}
	}
	return delivered
}

func (b *NotificationBroker) remove(userID string, ch chan models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	clients := b.clients[userID]
	for i, c := range clients {
		if c == ch {
			b.clients[userID] = append(clients[:i], clients[i+1:]...)
			close(ch)
			break
		}
	}
	if len(b.clients[userID]) == 0 {
		delete(b.clients, userID)
	}
}

func (b *NotificationBroker) ClientCount(userID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[userID])
}
