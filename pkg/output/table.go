package output

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/pterm/pterm"
)

// TableFormatter formats rows or maps as a table using pterm.
type TableFormatter struct{}

// NewTableFormatter creates a new table formatter.
func NewTableFormatter() *TableFormatter {
	return &TableFormatter{}
}

// Name returns the formatter name.
func (f *TableFormatter) Name() string {
	return "table"
}

// Format renders data, which must be [][]string (first row is the header
// when ShowHeaders is set) or map[string]any (rendered as sorted KEY/VALUE
// rows).
func (f *TableFormatter) Format(w io.Writer, data any, config *FormatConfig) error {
	if config == nil {
		config = NewFormatConfig()
	}

	var rows [][]string
	switch v := data.(type) {
	case [][]string:
		rows = v
	case map[string]any:
		rows = mapRows(v, config.ShowHeaders)
	default:
		return fmt.Errorf("unsupported data type for table formatting: %T", data)
	}
	if len(rows) == 0 {
		return nil
	}

	table := pterm.DefaultTable.WithHasHeader(config.ShowHeaders).WithData(rows)
	if config.Colors {
		table = table.WithHeaderStyle(pterm.NewStyle(pterm.FgLightCyan, pterm.Bold))
	} else {
		table = table.WithHeaderStyle(pterm.NewStyle()).WithStyle(pterm.NewStyle())
	}

	rendered, err := table.Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	if !config.Colors {
		rendered = pterm.RemoveColorFromString(rendered)
	}
	_, err = io.WriteString(w, rendered+"\n")
	return err
}

func mapRows(m map[string]any, header bool) [][]string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(m)+1)
	if header {
		rows = append(rows, []string{"KEY", "VALUE"})
	}
	for _, k := range keys {
		rows = append(rows, []string{k, formatValue(m[k])})
	}
	return rows
}

// formatValue renders a decoded JSON value on one line.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64, bool:
		return fmt.Sprint(val)
	case []any:
		parts := make([]string, len(val))
		for i, e := range val {
			parts[i] = formatValue(e)
		}
		return strings.Join(parts, ", ")
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}
