package progress

import (
	"fmt"
	"sync"

	"github.com/pterm/pterm"
)

// Spinner shows a message while a command runs and ends it with a
// success or failure line.
type Spinner struct {
	spinner *pterm.SpinnerPrinter
	config  *Config
	active  bool
	mu      sync.Mutex
}

// NewSpinner creates a new spinner progress indicator.
func NewSpinner(config *Config) *Spinner {
	if config == nil {
		config = DefaultConfig()
	}

	return &Spinner{
		config: config,
	}
}

// Start starts the spinner with a message.
func (s *Spinner) Start(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled {
		return nil
	}

	if s.active {
		return fmt.Errorf("spinner already active")
	}

	var err error
	printer := pterm.DefaultSpinner.WithRemoveWhenDone(false)
	if s.config.Writer != nil {
		printer = printer.WithWriter(s.config.Writer)
	}
	s.spinner, err = printer.Start(message)
	if err != nil {
		return fmt.Errorf("failed to start spinner: %w", err)
	}

	s.active = true
	return nil
}

// Success marks the spinner as successful.
func (s *Spinner) Success(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled || !s.active || s.spinner == nil {
		return nil
	}

	s.spinner.Success(message)
	s.active = false
	return nil
}

// Failure marks the spinner as failed.
func (s *Spinner) Failure(message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.config.Enabled || !s.active || s.spinner == nil {
		return nil
	}

	s.spinner.Fail(message)
	s.active = false
	return nil
}

// Stop stops the spinner.
func (s *Spinner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.active || s.spinner == nil {
		return nil
	}

	s.spinner.Stop()
	s.active = false
	return nil
}

// IsActive returns true if the spinner is active.
func (s *Spinner) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
