package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrUnexpectedLogin is returned when the login endpoint does not confirm the
// expected identity.
var ErrUnexpectedLogin = errors.New("unexpected login response")

// maxErrorBody bounds, in characters, the raw payload quoted in an error.
const maxErrorBody = 200

// RemoteError is a non-2xx answer from the server.
type RemoteError struct {
	Method     string
	URL        string
	StatusCode int
	// Message is the server's error message, when the payload carries one.
	Message string
	// Body is the raw response payload.
	Body []byte
}

func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	}
	body := strings.TrimSpace(string(e.Body))
	if body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	if r := []rune(body); len(r) > maxErrorBody {
		body = string(r[:maxErrorBody]) + "..."
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, body)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.StatusCode == 404
}

func newRemoteError(method, url string, status int, body []byte) *RemoteError {
	e := &RemoteError{Method: method, URL: url, StatusCode: status, Body: body}

	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			e.Message = payload.Message
		} else {
			e.Message = payload.Error
		}
	}
	return e
}
