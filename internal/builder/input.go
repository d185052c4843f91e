package builder

import (
	"strings"

	"github.com/google/uuid"
	"github.com/nxshell/nxshell/pkg/client"
	"github.com/nxshell/nxshell/pkg/state"
)

// InputRef resolves an operation input argument. A uid addresses a document
// directly; "doc:" prefixed and plain arguments are paths resolved against
// the current location. An empty argument means no input.
func InputRef(s *state.Session, arg string) (client.Ref, bool) {
	if arg == "" {
		return client.Ref{}, false
	}
	if _, err := uuid.Parse(arg); err == nil {
		return client.IDRef(arg), true
	}
	arg = strings.TrimPrefix(arg, "doc:")
	return client.PathRef(s.Resolve(arg)), true
}
