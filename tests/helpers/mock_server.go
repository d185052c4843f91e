// Package helpers provides test helpers shared by the nxshell packages: a
// recording HTTP server and a fake Nuxeo repository built on it.
package helpers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is an HTTP test server recording every request it receives.
// Requests are routed to handlers registered for an exact method and path,
// then to the fallback handler.
type MockServer struct {
	server   *httptest.Server
	handlers map[string]http.HandlerFunc
	fallback http.HandlerFunc
	mu       sync.RWMutex
	requests []*RecordedRequest
}

// RecordedRequest stores details of a received request.
type RecordedRequest struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    []byte
	Time    time.Time
}

// NewMockServer creates and starts a server.
func NewMockServer() *MockServer {
	ms := &MockServer{
		handlers: make(map[string]http.HandlerFunc),
		requests: make([]*RecordedRequest, 0),
	}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handleRequest))
	return ms
}

// URL returns the server URL with a trailing slash.
func (ms *MockServer) URL() string {
	return ms.server.URL + "/"
}

// Close shuts down the server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// On registers a handler for a method and an unescaped path.
func (ms *MockServer) On(method, path string, handler http.HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handlers[method+" "+path] = handler
}

// OnGET is a convenience method for GET requests.
func (ms *MockServer) OnGET(path string, handler http.HandlerFunc) {
	ms.On(http.MethodGet, path, handler)
}

// OnPUT is a convenience method for PUT requests.
func (ms *MockServer) OnPUT(path string, handler http.HandlerFunc) {
	ms.On(http.MethodPut, path, handler)
}

// Fallback sets the handler for requests no exact handler matches.
func (ms *MockServer) Fallback(handler http.HandlerFunc) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.fallback = handler
}

func (ms *MockServer) handleRequest(w http.ResponseWriter, r *http.Request) {
	ms.recordRequest(r)

	ms.mu.RLock()
	handler, exists := ms.handlers[r.Method+" "+r.URL.Path]
	fallback := ms.fallback
	ms.mu.RUnlock()

	switch {
	case exists:
		handler(w, r)
	case fallback != nil:
		fallback(w, r)
	default:
		ErrorResponse(http.StatusNotFound, fmt.Sprintf("no handler for %s %s", r.Method, r.URL.Path))(w, r)
	}
}

// recordRequest stores the request and restores its body for the handler.
func (ms *MockServer) recordRequest(r *http.Request) {
	var body []byte
	if r.Body != nil {
		body, _ = io.ReadAll(r.Body)
		_ = r.Body.Close()
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.requests = append(ms.requests, &RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   r.URL.RawQuery,
		Headers: r.Header.Clone(),
		Body:    body,
		Time:    time.Now(),
	})
}

// GetRequests returns all recorded requests.
func (ms *MockServer) GetRequests() []*RecordedRequest {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return append([]*RecordedRequest{}, ms.requests...)
}

// LastRequest returns the most recent request, or nil.
func (ms *MockServer) LastRequest() *RecordedRequest {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	if len(ms.requests) == 0 {
		return nil
	}
	return ms.requests[len(ms.requests)-1]
}

// GetRequestCount returns the number of recorded requests.
func (ms *MockServer) GetRequestCount() int {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return len(ms.requests)
}

// JSONResponse creates a JSON response handler.
func JSONResponse(statusCode int, data any) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, statusCode, data)
	}
}

// ErrorResponse creates a handler answering a Nuxeo exception entity.
func ErrorResponse(statusCode int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, statusCode, map[string]any{
			"entity-type": "exception",
			"status":      statusCode,
			"message":     message,
		})
	}
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}
