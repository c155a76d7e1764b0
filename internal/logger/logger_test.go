package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []LogEntry {
	t.Helper()
	var entries []LogEntry
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var e LogEntry
		require.NoError(t, json.Unmarshal([]byte(line), &e))
		entries = append(entries, e)
	}
	return entries
}

func TestLoggerWritesJSONLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.Info("booking", "created")
	l.Warn("DISPATCH", "queue full")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 2)
	assert.Equal(t, "INFO", entries[0].Level)
	assert.Equal(t, "BOOKING", entries[0].Category)
	assert.Equal(t, "created", entries[0].Message)
	assert.Equal(t, "logger_test.go", entries[0].File)
	assert.Equal(t, "WARN", entries[1].Level)
}

func TestLoggerRespectsMinLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.minLevel = WARN

	l.Debug("APP", "hidden")
	l.Info("APP", "hidden")
	l.Error("APP", "shown")

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "shown", entries[0].Message)
}

func TestMiddlewareLogsStatus(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bookings", nil))

	entries := decodeLines(t, &buf)
	require.Len(t, entries, 1)
	assert.Equal(t, "HTTP", entries[0].Category)
	assert.Contains(t, entries[0].Message, "GET /api/bookings - 418")
}
