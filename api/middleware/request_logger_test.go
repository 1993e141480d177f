// Copyright (c) 2025 The VeChainThor developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vechain/dispenser/log"
)

// mockLogger records the attributes of Info and Warn records.
type mockLogger struct {
	loggedData []any
}

func (m *mockLogger) With(_ ...any) log.Logger                      { return m }
func (m *mockLogger) Enabled(_ context.Context, _ slog.Level) bool { return true }
func (m *mockLogger) Handler() slog.Handler                         { return nil }
func (m *mockLogger) Trace(_ string, _ ...any)                      {}
func (m *mockLogger) Debug(_ string, _ ...any)                      {}
func (m *mockLogger) Error(_ string, _ ...any)                      {}

func (m *mockLogger) Info(_ string, ctx ...any) {
	m.loggedData = append(m.loggedData, ctx...)
}

func (m *mockLogger) Warn(_ string, ctx ...any) {
	m.loggedData = append(m.loggedData, ctx...)
}

func TestRequestLoggerMiddleware(t *testing.T) {
	tests := []struct {
		name      string
		handler   http.HandlerFunc
		enabled   bool
		threshold time.Duration
		shouldLog bool
	}{
		{
			name:      "enabled",
			handler:   func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
			enabled:   true,
			shouldLog: true,
		},
		{
			name:      "disabled fast request",
			handler:   func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) },
			threshold: time.Second,
		},
		{
			name: "disabled slow request",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				time.Sleep(20 * time.Millisecond)
				w.WriteHeader(http.StatusOK)
			},
			threshold: time.Millisecond,
			shouldLog: true,
		},
		{
			name:      "disabled server error",
			handler:   func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusInternalServerError) },
			shouldLog: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &mockLogger{}
			var enabled atomic.Bool
			enabled.Store(tt.enabled)

			var body string
			handler := RequestLoggerMiddleware(logger, &enabled, tt.threshold)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				b := new(strings.Builder)
				_, _ = io.Copy(b, r.Body)
				body = b.String()
				tt.handler(w, r)
			}))
			req := httptest.NewRequest(http.MethodPost, "/relay", strings.NewReader(`{"caller":"0x01"}`))
			handler.ServeHTTP(httptest.NewRecorder(), req)

			assert.Equal(t, `{"caller":"0x01"}`, body, "body is replayed to the handler")
			if tt.shouldLog {
				assert.Contains(t, logger.loggedData, "/relay")
				assert.Contains(t, logger.loggedData, `{"caller":"0x01"}`)
			} else {
				assert.Empty(t, logger.loggedData)
			}
		})
	}
}
