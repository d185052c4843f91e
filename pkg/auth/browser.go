package auth

import (
	"sync"

	"github.com/skratchdot/open-golang/open"
)

// BrowserOpener opens URLs in a browser.
type BrowserOpener interface {
	Open(url string) error
}

// SystemBrowserOpener opens URLs using the system default browser.
type SystemBrowserOpener struct{}

// Open opens a URL in the system default browser.
func (SystemBrowserOpener) Open(url string) error {
	return open.Run(url)
}

// MockBrowserOpener records opened URLs instead of launching a browser.
type MockBrowserOpener struct {
	mu         sync.Mutex
	OpenedURLs []string
	Err        error
}

// Open records the URL and returns the configured error.
func (m *MockBrowserOpener) Open(url string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.OpenedURLs = append(m.OpenedURLs, url)
	return m.Err
}

// URLs returns a copy of the opened URLs.
func (m *MockBrowserOpener) URLs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	urls := make([]string, len(m.OpenedURLs))
	copy(urls, m.OpenedURLs)
	return urls
}
