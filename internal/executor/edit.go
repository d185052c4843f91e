package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"

	"github.com/google/shlex"
	"github.com/nxshell/nxshell/pkg/cli"
	"github.com/pterm/pterm"
)

// EditState is a state of an EditSession.
type EditState int

const (
	// EditEditing runs the editor on the current text.
	EditEditing EditState = iota
	// EditAwaitingUploadConfirm asks whether to upload the edited text.
	EditAwaitingUploadConfirm
	// EditUploading sends the edited text.
	EditUploading
	// EditAwaitingRetryConfirm asks whether to edit again after a failed upload.
	EditAwaitingRetryConfirm
	// EditDone is final.
	EditDone
)

func (s EditState) String() string {
	switch s {
	case EditEditing:
		return "editing"
	case EditAwaitingUploadConfirm:
		return "awaiting-upload-confirm"
	case EditUploading:
		return "uploading"
	case EditAwaitingRetryConfirm:
		return "awaiting-retry-confirm"
	case EditDone:
		return "done"
	default:
		return "unknown"
	}
}

// EditSession edits a text in an external editor and uploads the result.
//
// A failed upload offers to edit the text again, starting from what the user
// wrote rather than from the original. Leaving the text unchanged ends the
// session without uploading.
type EditSession struct {
	// Name identifies the edited resource in prompts and temp file names.
	Name     string
	Original string
	Editor   cli.Editor
	Prompter cli.Prompter
	// Upload sends the edited text.
	Upload func(ctx context.Context, content string) error
	Out    io.Writer

	state   EditState
	content string
	// OnTransition is called on every state change. Optional.
	OnTransition func(from, to EditState)
}

// State returns the current state.
func (s *EditSession) State() EditState {
	return s.state
}

// Run drives the session to EditDone. It reports whether an upload
// succeeded. Declining a prompt returns ErrCanceled.
func (s *EditSession) Run(ctx context.Context) (bool, error) {
	if s.Editor == nil || s.Upload == nil {
		return false, fmt.Errorf("edit session needs an editor and an upload function")
	}
	s.state = EditEditing
	s.content = s.Original

	for {
		switch s.state {
		case EditEditing:
			edited, err := s.Editor.Edit(ctx, s.Name, s.content)
			if err != nil {
				s.moveTo(EditDone)
				return false, fmt.Errorf("editor failed: %w", err)
			}
			s.content = edited
			if edited == s.Original {
				_, _ = fmt.Fprintln(s.out(), "No changes.")
				s.moveTo(EditDone)
				return false, nil
			}
			s.moveTo(EditAwaitingUploadConfirm)

		case EditAwaitingUploadConfirm:
			if err := s.confirm(fmt.Sprintf("Upload changes to %s?", s.Name)); err != nil {
				s.moveTo(EditDone)
				return false, err
			}
			s.moveTo(EditUploading)

		case EditUploading:
			if err := s.Upload(ctx, s.content); err != nil {
				pterm.Error.WithWriter(s.out()).Printfln("upload failed: %s", err.Error())
				s.moveTo(EditAwaitingRetryConfirm)
				continue
			}
			s.moveTo(EditDone)
			return true, nil

		case EditAwaitingRetryConfirm:
			if err := s.confirm("Edit again?"); err != nil {
				s.moveTo(EditDone)
				return false, err
			}
			s.moveTo(EditEditing)

		default:
			return false, nil
		}
	}
}

func (s *EditSession) confirm(message string) error {
	if s.Prompter == nil {
		return ErrCanceled
	}
	ok, err := s.Prompter.Confirm(message)
	if err != nil {
		return fmt.Errorf("confirmation prompt failed: %w", err)
	}
	if !ok {
		return ErrCanceled
	}
	return nil
}

func (s *EditSession) moveTo(next EditState) {
	prev := s.state
	s.state = next
	if s.OnTransition != nil {
		s.OnTransition(prev, next)
	}
}

func (s *EditSession) out() io.Writer {
	if s.Out != nil {
		return s.Out
	}
	return os.Stdout
}

// DefaultEditor is used when neither the configuration nor the environment
// names an editor.
const DefaultEditor = "vi"

// ErrNoEditor is returned when the editor command line is empty.
var ErrNoEditor = errors.New("no editor configured")

// ExternalEditor edits text by running a program on a temporary file.
type ExternalEditor struct {
	// Command is a shell-like command line; the file path is appended.
	Command string
	Stdin   io.Reader
	Stdout  io.Writer
	Stderr  io.Writer
	// TempDir holds the temporary files; the system default when empty.
	TempDir string
}

// NewExternalEditor returns an editor running command, or $VISUAL, $EDITOR
// or DefaultEditor when command is empty.
func NewExternalEditor(command string) *ExternalEditor {
	for _, c := range []string{command, os.Getenv("VISUAL"), os.Getenv("EDITOR")} {
		if c != "" {
			command = c
			break
		}
	}
	if command == "" {
		command = DefaultEditor
	}
	return &ExternalEditor{
		Command: command,
		Stdin:   os.Stdin,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Edit writes content to a temporary file, runs the editor on it and returns
// the file content once the editor exits.
func (e *ExternalEditor) Edit(ctx context.Context, name, content string) (string, error) {
	argv, err := shlex.Split(e.Command)
	if err != nil {
		return "", fmt.Errorf("invalid editor command %q: %w", e.Command, err)
	}
	if len(argv) == 0 {
		return "", ErrNoEditor
	}

	pattern := "nxshell-*-" + unsafeFileChars.ReplaceAllString(filepath.Base(name), "_") + ".yaml"
	f, err := os.CreateTemp(e.TempDir, pattern)
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	file := f.Name()
	defer func() { _ = os.Remove(file) }()

	if _, err := f.WriteString(content); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}

	cmd := exec.CommandContext(ctx, argv[0], append(argv[1:], file)...)
	cmd.Stdin = e.Stdin
	cmd.Stdout = e.Stdout
	cmd.Stderr = e.Stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", argv[0], err)
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("failed to read edited file: %w", err)
	}
	return string(data), nil
}
