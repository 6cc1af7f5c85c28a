// Package testutil provides testing utilities for the catalog service.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"

	"github.com/Sternrassler/catalog-api/pkg/catalog"
)

// MockUpstream is a configurable paginated catalog server for testing.
// It serves GET /products?page=N with an X-Pages header carrying the total
// page count.
type MockUpstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	items    []catalog.Item
	pageSize int
	failures map[int][]int // page -> queued status codes to return before succeeding

	// Tracking
	RequestCount int
	PageRequests map[int]int
}

// NewMockUpstream creates a mock upstream serving items in pages of pageSize.
func NewMockUpstream(items []catalog.Item, pageSize int) *MockUpstream {
	if pageSize <= 0 {
		pageSize = 10
	}
	mock := &MockUpstream{
		items:        items,
		pageSize:     pageSize,
		failures:     make(map[int][]int),
		PageRequests: make(map[int]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(mock.handle))
	return mock
}

// URL returns the mock server URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// FailPage queues status codes returned for page before it succeeds.
func (m *MockUpstream) FailPage(page int, statuses ...int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures[page] = append(m.failures[page], statuses...)
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockUpstream) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetPageRequests returns how often page was requested.
func (m *MockUpstream) GetPageRequests(page int) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PageRequests[page]
}

func (m *MockUpstream) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/products" {
		http.NotFound(w, r)
		return
	}

	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		page = 1
	}

	m.mu.Lock()
	m.RequestCount++
	m.PageRequests[page]++
	var status int
	if queued := m.failures[page]; len(queued) > 0 {
		status = queued[0]
		m.failures[page] = queued[1:]
	}
	m.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		w.Write([]byte(`{"error": "injected failure"}`))
		return
	}

	m.mu.RLock()
	total := (len(m.items) + m.pageSize - 1) / m.pageSize
	if total == 0 {
		total = 1
	}
	start := (page - 1) * m.pageSize
	end := start + m.pageSize
	if start > len(m.items) {
		start = len(m.items)
	}
	if end > len(m.items) {
		end = len(m.items)
	}
	body := m.items[start:end]
	m.mu.RUnlock()

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Pages", strconv.Itoa(total))
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(body)
}
