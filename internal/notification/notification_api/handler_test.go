package notification_api

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mekaniku/internal/auth"
	"mekaniku/internal/logger"
	"mekaniku/internal/models"
	"mekaniku/internal/sse"
)

func withActor(id string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := auth.WithActor(r.Context(), models.Actor{ID: id, Role: models.RoleCustomer})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// nextEvent reads lines until a blank line and returns the event name and data.
func nextEvent(t *testing.T, sc *bufio.Scanner) (string, string) {
	t.Helper()
	var event, data string
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			if event != "" {
				return event, data
			}
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
	}
	t.Fatalf("stream ended: %v", sc.Err())
	return "", ""
}

func TestStreamDeliversConnectedNotificationAndPing(t *testing.T) {
	broker := sse.NewNotificationBroker()
	h := &Handler{Broker: broker, Logger: logger.Discard(), PingInterval: 100 * time.Millisecond}

	srv := httptest.NewServer(withActor("u1", http.HandlerFunc(h.Stream)))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream;charset=UTF-8", resp.Header.Get("Content-Type"))

	sc := bufio.NewScanner(resp.Body)
	event, data := nextEvent(t, sc)
	assert.Equal(t, "connected", event)
	assert.Contains(t, data, "Notification stream connected")

	require.Eventually(t, func() bool { return broker.ClientCount("u1") == 1 }, time.Second, 10*time.Millisecond)
	broker.Publish(models.Notification{ID: "n1", ToUserID: "u1", Type: models.NotificationStatusChanged})
	broker.Publish(models.Notification{ID: "n2", ToUserID: "someone-else"})

	event, data = nextEvent(t, sc)
	assert.Equal(t, "notification", event)
	assert.Contains(t, data, `"id":"n1"`)

	event, data = nextEvent(t, sc)
	assert.Equal(t, "ping", event)
	assert.JSONEq(t, `{"type":"ping"}`, data)
}

func TestStreamEndsWhenDoneCloses(t *testing.T) {
	broker := sse.NewNotificationBroker()
	done := make(chan struct{})
	h := &Handler{Broker: broker, Logger: logger.Discard(), PingInterval: time.Minute, Done: done}

	srv := httptest.NewServer(withActor("u1", http.HandlerFunc(h.Stream)))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	sc := bufio.NewScanner(resp.Body)
	event, _ := nextEvent(t, sc)
	require.Equal(t, "connected", event)

	close(done)
	event, _ = nextEvent(t, sc)
	assert.Equal(t, "shutdown", event)
	assert.False(t, sc.Scan(), "stream should end after shutdown")
	require.Eventually(t, func() bool { return broker.ClientCount("u1") == 0 }, time.Second, 10*time.Millisecond)
}

func TestStreamRequiresActor(t *testing.T) {
	h := &Handler{Broker: sse.NewNotificationBroker(), Logger: logger.Discard()}
	rec := httptest.NewRecorder()
	h.Stream(rec, httptest.NewRequest(http.MethodGet, "/api/notifications/stream", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
