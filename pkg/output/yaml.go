package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Name returns the formatter name.
func (f *YAMLFormatter) Name() string {
	return FormatYAML
}

// Format writes data as YAML. Raw JSON payloads are decoded first so that
// their keys keep the server's names.
func (f *YAMLFormatter) Format(w io.Writer, data any, _ *FormatConfig) error {
	if raw, ok := data.([]byte); ok {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}
		data = v
	}
	if data == nil {
		_, err := io.WriteString(w, "null\n")
		return err
	}

	encoder := yaml.NewEncoder(w)
	defer func() { _ = encoder.Close() }()
	encoder.SetIndent(2)

	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return nil
}
