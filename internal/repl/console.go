package repl

import (
	"bufio"
	"errors"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/nxshell/nxshell/pkg/state"
	"golang.org/x/term"
)

// CompleteFunc completes line with the cursor at pos, x/term style.
type CompleteFunc func(line string, pos int) (newLine string, newPos int, ok bool)

// Console reads lines from the operator.
//
// On a terminal it is an x/term line editor with history and tab completion,
// in raw mode only while a line is read. Other input is read line by line
// without editing.
type Console struct {
	in  io.Reader
	out io.Writer
	fd  int
	tty bool

	term   *term.Terminal
	reader *bufio.Reader

	// mu serializes reads; a nested prompt runs while the loop waits.
	mu       sync.Mutex
	history  *state.History
	complete CompleteFunc
}

// NewConsole creates a console on in and out. in is edited as a terminal
// when it is one.
func NewConsole(in io.Reader, out io.Writer) *Console {
	c := &Console{in: in, out: out, fd: -1}
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		c.fd = int(f.Fd())
		c.tty = true
		c.term = term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{in, out}, "")
		c.term.History = emptyHistory{}
		if w, h, err := term.GetSize(c.fd); err == nil {
			_ = c.term.SetSize(w, h)
		}
	} else {
		c.reader = bufio.NewReader(in)
	}
	return c
}

// SetHistory makes the arrow keys browse h at the top-level prompt. Lines
// are recorded by the caller.
func (c *Console) SetHistory(h *state.History) {
	c.history = h
}

// SetCompleter sets the tab completion of the top-level prompt.
func (c *Console) SetCompleter(fn CompleteFunc) {
	c.complete = fn
}

// Prompt reads a command line. End of input yields io.EOF.
func (c *Console) Prompt(prompt string) (string, error) {
	return c.read(prompt, true, false)
}

// ReadLine reads the answer to a nested prompt, without completion and
// without touching the history.
func (c *Console) ReadLine(prompt string) (string, error) {
	return c.read(prompt, false, false)
}

// ReadPassword reads a nested answer without echo when the console is a
// terminal.
func (c *Console) ReadPassword(prompt string) (string, error) {
	return c.read(prompt, false, true)
}

// Write prints p above the line being edited, if any.
func (c *Console) Write(p []byte) (int, error) {
	if c.tty {
		return c.term.Write(p)
	}
	return c.out.Write(p)
}

func (c *Console) read(prompt string, top, secret bool) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.tty {
		return c.readPlain(prompt)
	}

	old, err := term.MakeRaw(c.fd)
	if err != nil {
		return "", err
	}
	defer func() { _ = term.Restore(c.fd, old) }()

	if secret {
		return c.term.ReadPassword(prompt)
	}

	c.term.SetPrompt(prompt)
	if top {
		if c.history != nil {
			c.term.History = historyView{c.history}
		}
		c.term.AutoCompleteCallback = c.onKey
		defer func() {
			c.term.History = emptyHistory{}
			c.term.AutoCompleteCallback = nil
		}()
	}
	return c.term.ReadLine()
}

func (c *Console) onKey(line string, pos int, key rune) (string, int, bool) {
	if key != '\t' || c.complete == nil {
		return "", 0, false
	}
	return c.complete(line, pos)
}

func (c *Console) readPlain(prompt string) (string, error) {
	if prompt != "" {
		_, _ = io.WriteString(c.out, prompt)
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r\n"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// historyView lets the line editor browse a history without recording into
// it.
type historyView struct {
	h *state.History
}

func (v historyView) Add(string)        {}
func (v historyView) Len() int          { return v.h.Len() }
func (v historyView) At(idx int) string { return v.h.At(idx) }

type emptyHistory struct{}

func (emptyHistory) Add(string)    {}
func (emptyHistory) Len() int      { return 0 }
func (emptyHistory) At(int) string { return "" }
