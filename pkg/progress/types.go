// Package progress shows activity while the shell waits on the server.
//
// Transport is an http.RoundTripper that shows a spinner when a request takes
// longer than a short delay. Spinner reports the outcome of longer commands
// such as uploads.
package progress

import (
	"context"
	"io"
	"os"
	"time"
)

// Config controls progress indicators.
type Config struct {
	// Enabled determines if progress indicators are shown.
	Enabled bool

	// Writer is where to write progress output.
	Writer io.Writer

	// Delay before the request spinner appears.
	Delay time.Duration

	// RefreshRate is how often the spinner redraws.
	RefreshRate time.Duration
}

// DefaultConfig returns the default configuration writing to stderr.
func DefaultConfig() *Config {
	return &Config{
		Enabled:     true,
		Writer:      os.Stderr,
		Delay:       300 * time.Millisecond,
		RefreshRate: 100 * time.Millisecond,
	}
}

type quietKey struct{}

// Quiet returns a context whose requests show no transport spinner, for
// commands that report their own progress.
func Quiet(ctx context.Context) context.Context {
	return context.WithValue(ctx, quietKey{}, true)
}

func isQuiet(ctx context.Context) bool {
	q, _ := ctx.Value(quietKey{}).(bool)
	return q
}
