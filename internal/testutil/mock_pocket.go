// Package testutil provides testing utilities for the Pocket client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
)

// MockResponse defines the behavior of one mocked Pocket endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockPocket is a configurable fake Pocket server for testing. It records
// every request's form fields in order, so tests can assert on consumer
// keys, offsets and filters.
type MockPocket struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount int
	Forms        []url.Values
}

// NewMockPocket creates a new mock Pocket server.
func NewMockPocket() *MockPocket {
	mock := &MockPocket{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()

		mock.mu.Lock()
		mock.RequestCount++
		mock.Forms = append(mock.Forms, cloneValues(r.PostForm))
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}

		mock.defaultHandler(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockPocket) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockPocket) Close() {
	m.server.Close()
}

// Reset clears all tracking state.
func (m *MockPocket) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.Forms = nil
}

// FormAt returns the form fields of the i-th request.
func (m *MockPocket) FormAt(i int) url.Values {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.Forms[i]
}

// SetHandler sets a custom handler for a specific path.
func (m *MockPocket) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for a path.
func (m *MockPocket) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		setDefaultLimitHeaders(w.Header())
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			w.Write([]byte(resp.Body))
		}
	})
}

// ScriptGetPages scripts /v3/get to serve the given page bodies indexed by
// offset/30. Requests beyond the last page receive an empty list.
func (m *MockPocket) ScriptGetPages(pages ...string) {
	m.SetHandler("/v3/get", func(w http.ResponseWriter, r *http.Request) {
		offset, _ := strconv.Atoi(r.PostFormValue("offset"))
		idx := offset / 30

		setDefaultLimitHeaders(w.Header())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)

		if idx < len(pages) {
			w.Write([]byte(pages[idx]))
			return
		}
		w.Write([]byte(`{"status":1,"complete":1,"list":{}}`))
	})
}

// defaultHandler answers oauth endpoints with canned credentials and
// anything else with an empty list page.
func (m *MockPocket) defaultHandler(w http.ResponseWriter, r *http.Request) {
	setDefaultLimitHeaders(w.Header())

	switch r.URL.Path {
	case "/v3/oauth/request":
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("code=default-request-token"))
	case "/v3/oauth/authorize":
		w.Header().Set("Content-Type", "application/x-www-form-urlencoded")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("access_token=default-access-token&username=mockuser"))
	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":1,"complete":1,"list":{}}`))
	}
}

// NewRequestTokenResponse builds the form-encoded body of a successful
// /v3/oauth/request call.
func NewRequestTokenResponse(code string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       "code=" + url.QueryEscape(code),
		Headers:    map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	}
}

// NewAccessTokenResponse builds the form-encoded body of a successful
// /v3/oauth/authorize call.
func NewAccessTokenResponse(token, username string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       "access_token=" + url.QueryEscape(token) + "&username=" + url.QueryEscape(username),
		Headers:    map[string]string{"Content-Type": "application/x-www-form-urlencoded"},
	}
}

// NewErrorResponse builds a non-2xx response with Pocket's X-Error headers.
func NewErrorResponse(status int, code, message string) MockResponse {
	return MockResponse{
		StatusCode: status,
		Headers: map[string]string{
			"X-Error-Code": code,
			"X-Error":      message,
		},
	}
}

// ListPage builds a /v3/get page body containing n sequential items with
// ids start, start+1, ... Useful for pagination tests.
func ListPage(status, start, n int) string {
	list := make(map[string]any, n)
	for i := 0; i < n; i++ {
		id := strconv.Itoa(start + i)
		list[id] = map[string]string{
			"item_id":      id,
			"resolved_url": fmt.Sprintf("https://example.com/%s", id),
		}
	}
	body, _ := json.Marshal(map[string]any{
		"status":   status,
		"complete": 1,
		"list":     list,
	})
	return string(body)
}

func setDefaultLimitHeaders(h http.Header) {
	if h.Get("X-Limit-User-Remaining") == "" {
		h.Set("X-Limit-User-Limit", "320")
		h.Set("X-Limit-User-Remaining", "319")
		h.Set("X-Limit-User-Reset", "3600")
		h.Set("X-Limit-Key-Limit", "10000")
		h.Set("X-Limit-Key-Remaining", "9999")
		h.Set("X-Limit-Key-Reset", "3600")
	}
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for key, values := range v {
		out[key] = append([]string(nil), values...)
	}
	return out
}
