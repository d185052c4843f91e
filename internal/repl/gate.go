package repl

import (
	"errors"
	"sync"
)

// ErrBusy is returned by Pause while a turn is outstanding.
var ErrBusy = errors.New("a command is already running")

// Gate pauses line intake while a command runs. At most one Turn is
// outstanding at a time.
type Gate struct {
	mu   sync.Mutex
	turn *Turn
}

// Turn is the right to run one command. Intake resumes once it is resumed.
type Turn struct {
	gate *Gate
	once sync.Once
	done chan struct{}
}

// Pause stops line intake and returns the turn of the next command.
func (g *Gate) Pause() (*Turn, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.turn != nil {
		return nil, ErrBusy
	}
	g.turn = &Turn{gate: g, done: make(chan struct{})}
	return g.turn, nil
}

// Resume ends the turn. Only the first call has an effect.
func (t *Turn) Resume() {
	t.once.Do(func() {
		t.gate.mu.Lock()
		if t.gate.turn == t {
			t.gate.turn = nil
		}
		t.gate.mu.Unlock()
		close(t.done)
	})
}

// Done is closed once the turn is resumed.
func (t *Turn) Done() <-chan struct{} {
	return t.done
}
