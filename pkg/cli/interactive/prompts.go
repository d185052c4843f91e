// Package interactive reads nested input from the operator while a command
// runs: yes/no confirmations, free text and passwords.
//
// Prompts read through the shell console, so they share its terminal state
// and never record answers in the command history.
package interactive

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pterm/pterm"
)

// LineReader reads one line of input with a prompt.
type LineReader interface {
	ReadLine(prompt string) (string, error)
}

// PasswordReader reads a line without echo.
type PasswordReader interface {
	ReadPassword(prompt string) (string, error)
}

// Prompter handles interactive prompts.
type Prompter struct {
	reader LineReader
	output io.Writer
	// DisableInteractive answers every prompt with its default.
	DisableInteractive bool
}

// PrompterConfig configures the Prompter.
type PrompterConfig struct {
	Reader             LineReader
	Output             io.Writer
	DisableInteractive bool
}

// NewPrompter creates a Prompter.
func NewPrompter(config *PrompterConfig) *Prompter {
	return &Prompter{
		reader:             config.Reader,
		output:             config.Output,
		DisableInteractive: config.DisableInteractive,
	}
}

// ReadLine reads one line. End of input yields io.EOF.
func (p *Prompter) ReadLine(prompt string) (string, error) {
	if p.DisableInteractive || p.reader == nil {
		return "", io.EOF
	}
	return p.reader.ReadLine(prompt)
}

// Confirm asks a yes/no question that defaults to no. End of input declines.
func (p *Prompter) Confirm(message string) (bool, error) {
	if p.DisableInteractive {
		return false, nil
	}

	boxed := pterm.DefaultBox.
		WithTitle("Confirmation Required").
		WithTitleTopCenter().
		WithBoxStyle(pterm.NewStyle(pterm.FgYellow)).
		Sprint(message)
	_, _ = fmt.Fprintln(p.output, boxed)

	answer, err := p.ReadLine("Do you want to continue? [y/N]: ")
	if err != nil {
		if errors.Is(err, io.EOF) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation prompt failed: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// TextPromptOptions configures a text prompt.
type TextPromptOptions struct {
	Message           string
	Default           string
	Validation        string // Regex pattern
	ValidationMessage string
	Required          bool
	// Secret input is read without echo when the console supports it.
	Secret bool
}

// Text prompts for text input with optional validation, asking again until
// the input is valid.
func (p *Prompter) Text(opts *TextPromptOptions) (string, error) {
	if opts == nil {
		return "", fmt.Errorf("options cannot be nil")
	}
	if p.DisableInteractive {
		if opts.Default != "" {
			return opts.Default, nil
		}
		return "", fmt.Errorf("interactive prompts disabled")
	}

	var validationRegex *regexp.Regexp
	if opts.Validation != "" {
		var err error
		validationRegex, err = regexp.Compile(opts.Validation)
		if err != nil {
			return "", fmt.Errorf("invalid validation pattern: %w", err)
		}
	}

	message := opts.Message
	if opts.Default != "" {
		message = fmt.Sprintf("%s (default: %s)", message, opts.Default)
	}
	message += ": "

	errPrinter := pterm.Error.WithWriter(p.output)
	for {
		result, err := p.read(message, opts.Secret)
		if err != nil {
			return "", err
		}
		if !opts.Secret {
			result = strings.TrimSpace(result)
		}

		if result == "" && opts.Default != "" {
			result = opts.Default
		}
		if result == "" {
			if opts.Required {
				errPrinter.Println("This field is required")
				continue
			}
			return result, nil
		}

		if validationRegex != nil && !validationRegex.MatchString(result) {
			errMsg := opts.ValidationMessage
			if errMsg == "" {
				errMsg = fmt.Sprintf("Input does not match required pattern: %s", opts.Validation)
			}
			errPrinter.Println(errMsg)
			continue
		}
		return result, nil
	}
}

// Password reads a secret without echo, prompting with message and ": ".
func (p *Prompter) Password(message string) (string, error) {
	return p.Text(&TextPromptOptions{Message: message, Secret: true})
}

func (p *Prompter) read(prompt string, secret bool) (string, error) {
	if secret {
		if pr, ok := p.reader.(PasswordReader); ok {
			return pr.ReadPassword(prompt)
		}
	}
	return p.ReadLine(prompt)
}
