// Package output renders server answers for the shell.
//
// Three formats are supported: "pretty" renders each entity type the way an
// operator reads it (one line per document, tables for users and audit
// entries), "json" prints the payload indented and highlighted, and "yaml"
// prints the decoded payload as YAML. Entity types without a pretty
// rendering fall back to YAML.
package output

import (
	"fmt"
	"io"
	"strings"
)

// Output formats.
const (
	FormatPretty = "pretty"
	FormatJSON   = "json"
	FormatYAML   = "yaml"
)

// Formatter writes data in one format.
type Formatter interface {
	// Format writes data to w.
	Format(w io.Writer, data any, config *FormatConfig) error

	// Name returns the formatter name (e.g. "json", "yaml", "table").
	Name() string
}

// FormatConfig contains options shared by the formatters.
type FormatConfig struct {
	// Colors enables highlighting and styled tables.
	Colors bool

	// Compact disables indentation (JSON).
	Compact bool

	// ShowHeaders renders the first table row as a header.
	ShowHeaders bool
}

// NewFormatConfig returns the default configuration.
func NewFormatConfig() *FormatConfig {
	return &FormatConfig{Colors: true, ShowHeaders: true}
}

// ValidFormat reports whether name is a known output format.
func ValidFormat(name string) bool {
	switch strings.ToLower(name) {
	case FormatPretty, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// ParseFormat normalizes an output format name.
func ParseFormat(name string) (string, error) {
	if name == "" {
		return FormatPretty, nil
	}
	if !ValidFormat(name) {
		return "", fmt.Errorf("unknown output format %q (want pretty, json or yaml)", name)
	}
	return strings.ToLower(name), nil
}
