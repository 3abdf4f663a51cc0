// Navarchus - World of Warships Replay Analytics and Match Archive
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/navarchus

//go:build integration

package testinfra

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// WebhookCapture is one request received by the mock webhook server.
type WebhookCapture struct {
	Method  string
	Path    string
	Headers http.Header
	Body    []byte
}

// MockWebhookServer stands in for a Discord webhook endpoint and
// records every delivery for later assertions.
type MockWebhookServer struct {
	Server   *httptest.Server
	captures []WebhookCapture
	mu       sync.Mutex

	// ResponseStatus is returned for each delivery (default 200).
	// Set 429 to drive the notifier's circuit breaker open.
	ResponseStatus int

	// ResponseBody is the body returned with each response.
	ResponseBody []byte
}

// NewMockWebhookServer creates and starts a mock webhook server. The
// server is closed automatically when the test finishes.
func NewMockWebhookServer(t *testing.T) *MockWebhookServer {
	t.Helper()

	mws := &MockWebhookServer{
		ResponseStatus: http.StatusOK,
	}

	mws.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body []byte
		if r.Body != nil {
			body, _ = io.ReadAll(r.Body)
			r.Body.Close()
		}

		mws.mu.Lock()
		mws.captures = append(mws.captures, WebhookCapture{
			Method:  r.Method,
			Path:    r.URL.Path,
			Headers: r.Header.Clone(),
			Body:    body,
		})
		status := mws.ResponseStatus
		respBody := mws.ResponseBody
		mws.mu.Unlock()

		w.WriteHeader(status)
		if respBody != nil {
			w.Write(respBody) //nolint:errcheck
		}
	}))
	t.Cleanup(mws.Server.Close)

	return mws
}

// URL returns the webhook endpoint URL.
func (m *MockWebhookServer) URL() string {
	return m.Server.URL
}

// Captures returns a copy of all recorded deliveries.
func (m *MockWebhookServer) Captures() []WebhookCapture {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]WebhookCapture, len(m.captures))
	copy(result, m.captures)
	return result
}

// ClearCaptures discards all recorded deliveries.
func (m *MockWebhookServer) ClearCaptures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.captures = nil
}

// WaitForCaptures blocks until at least n deliveries have arrived or
// the timeout expires, reporting whether the count was reached.
func (m *MockWebhookServer) WaitForCaptures(n int, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		count := len(m.captures)
		m.mu.Unlock()
		if count >= n {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

// MockDiscordResponse builds the message object Discord returns for a
// successful webhook execution with wait=true.
func MockDiscordResponse() []byte {
	resp := map[string]interface{}{
		"id":         "123456789",
		"type":       0,
		"channel_id": "987654321",
	}
	data, _ := json.Marshal(resp)
	return data
}
