package progress

import (
	"net/http"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// Transport wraps a RoundTripper with a delayed spinner.
type Transport struct {
	Next   http.RoundTripper
	config *Config

	// mu serializes spinners when requests overlap.
	mu sync.Mutex
}

// NewTransport wraps next. A nil next uses http.DefaultTransport.
func NewTransport(next http.RoundTripper, config *Config) *Transport {
	if next == nil {
		next = http.DefaultTransport
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Transport{Next: next, config: config}
}

// RoundTrip sends the request, spinning while the response headers are
// awaited.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.config.Enabled || isQuiet(req.Context()) {
		return t.Next.RoundTrip(req)
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		timer := time.NewTimer(t.config.Delay)
		defer timer.Stop()
		select {
		case <-done:
			return
		case <-timer.C:
		}

		if !t.mu.TryLock() {
			return
		}
		defer t.mu.Unlock()

		s := spinner.New(spinner.CharSets[14], t.config.RefreshRate,
			spinner.WithWriter(t.config.Writer),
			spinner.WithHiddenCursor(false))
		s.Suffix = " " + req.Method + " " + req.URL.Path
		s.Start()
		<-done
		s.Stop()
	}()

	resp, err := t.Next.RoundTrip(req)
	close(done)
	<-stopped
	return resp, err
}
