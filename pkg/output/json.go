package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/alecthomas/chroma/v2/quick"
)

// JSONFormatter formats output as indented JSON, highlighted when colors are
// enabled.
type JSONFormatter struct {
	indent string
	style  string
}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{indent: "  ", style: "monokai"}
}

// Name returns the formatter name.
func (f *JSONFormatter) Name() string {
	return FormatJSON
}

// Format writes data as JSON. Raw JSON payloads ([]byte or json.RawMessage)
// are re-indented rather than re-encoded.
func (f *JSONFormatter) Format(w io.Writer, data any, config *FormatConfig) error {
	if config == nil {
		config = NewFormatConfig()
	}

	var raw []byte
	switch v := data.(type) {
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		b, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		raw = b
	}

	var buf bytes.Buffer
	if config.Compact {
		if err := json.Compact(&buf, raw); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
	} else if err := json.Indent(&buf, raw, "", f.indent); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	buf.WriteByte('\n')

	if !config.Colors {
		_, err := w.Write(buf.Bytes())
		return err
	}
	if err := quick.Highlight(w, buf.String(), "json", "terminal256", f.style); err != nil {
		return fmt.Errorf("failed to highlight JSON: %w", err)
	}
	return nil
}
