package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nxshell/nxshell/pkg/client"
)

// Printer renders command results on the shell output.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
	colors bool

	json  *JSONFormatter
	yaml  *YAMLFormatter
	table *TableFormatter
}

// NewPrinter creates a printer writing to w in the given format.
func NewPrinter(w io.Writer, format string, colors bool) *Printer {
	if !ValidFormat(format) {
		format = FormatPretty
	}
	return &Printer{
		w:      w,
		format: strings.ToLower(format),
		colors: colors,
		json:   NewJSONFormatter(),
		yaml:   NewYAMLFormatter(),
		table:  NewTableFormatter(),
	}
}

// Writer returns the underlying writer.
func (p *Printer) Writer() io.Writer {
	return p.w
}

// Format returns the output format.
func (p *Printer) Format() string {
	return p.format
}

// WithFormat returns a printer sharing the writer with another format. An
// empty format keeps the current one.
func (p *Printer) WithFormat(format string) (*Printer, error) {
	if format == "" {
		return p, nil
	}
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	return NewPrinter(p.w, f, p.colors), nil
}

// Printf writes formatted text.
func (p *Printer) Printf(format string, a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintf(p.w, format, a...)
}

// Println writes a line.
func (p *Printer) Println(a ...any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, _ = fmt.Fprintln(p.w, a...)
}

func (p *Printer) config() *FormatConfig {
	cfg := NewFormatConfig()
	cfg.Colors = p.colors
	return cfg
}

// Print renders a server answer according to its entity type.
func (p *Printer) Print(resp *client.Response) error {
	if resp == nil || len(strings.TrimSpace(string(resp.Body))) == 0 {
		return nil
	}
	if !resp.IsJSON() {
		p.mu.Lock()
		defer p.mu.Unlock()
		_, err := p.w.Write(resp.Body)
		if err == nil && !strings.HasSuffix(string(resp.Body), "\n") {
			_, err = io.WriteString(p.w, "\n")
		}
		return err
	}

	switch p.format {
	case FormatJSON:
		return p.json.Format(p.w, resp.Body, p.config())
	case FormatYAML:
		return p.yaml.Format(p.w, resp.Body, p.config())
	}

	switch resp.EntityType() {
	case client.EntityDocuments:
		var list client.DocumentList
		if err := resp.Decode(&list); err != nil {
			return err
		}
		return p.Documents(&list)
	case client.EntityDocument:
		var doc client.Document
		if err := resp.Decode(&doc); err != nil {
			return err
		}
		return p.Document(&doc, false)
	case client.EntityLogin:
		var login client.Login
		if err := resp.Decode(&login); err != nil {
			return err
		}
		p.Printf("Logged in as %s\n", login.Username)
		return nil
	case client.EntityUser:
		var u client.User
		if err := resp.Decode(&u); err != nil {
			return err
		}
		return p.User(&u)
	case client.EntityGroup:
		var g client.Group
		if err := resp.Decode(&g); err != nil {
			return err
		}
		return p.Group(&g)
	case client.EntityUsers, client.EntityGroups, client.EntityLogs:
		return p.entries(resp)
	case client.EntityString:
		var s struct {
			Value any `json:"value"`
		}
		if err := resp.Decode(&s); err != nil {
			return err
		}
		p.Println(formatValue(s.Value))
		return nil
	}
	return p.yaml.Format(p.w, resp.Body, p.config())
}

// Value renders any value: JSON or YAML as configured, YAML for pretty.
func (p *Printer) Value(v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	if p.format == FormatJSON {
		return p.json.Format(p.w, raw, p.config())
	}
	return p.yaml.Format(p.w, raw, p.config())
}

// Documents prints one line per document followed by the page footer.
func (p *Printer) Documents(list *client.DocumentList) error {
	if p.format != FormatPretty {
		return p.Value(list)
	}
	for i := range list.Entries {
		p.documentLine(&list.Entries[i])
	}
	if list.IsNextPageAvailable {
		p.Printf("Page %d of %d (%d results).\n", list.CurrentPageIndex+1, list.NumberOfPages, list.ResultsCount)
		return nil
	}
	p.Println("End of page.")
	return nil
}

// DocumentLines prints documents through a line template, one per line.
func (p *Printer) DocumentLines(docs []client.Document, engine *TemplateEngine, template string) error {
	for i := range docs {
		line, err := engine.Render(template, DocumentEnv(&docs[i]))
		if err != nil {
			return err
		}
		p.Println(line)
	}
	return nil
}

// Document prints "path - uid", followed by its properties when requested.
func (p *Printer) Document(doc *client.Document, properties bool) error {
	if p.format != FormatPretty {
		return p.Value(doc)
	}
	p.documentLine(doc)
	if !properties {
		return nil
	}
	p.Printf("type: %s  state: %s  title: %s\n", doc.Type, doc.State, doc.Title)
	if len(doc.Properties) == 0 {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table.Format(p.w, doc.Properties, p.config())
}

func (p *Printer) documentLine(doc *client.Document) {
	p.Printf("%s - %s\n", doc.Path, doc.UID)
}

// User prints a user and its properties.
func (p *Printer) User(u *client.User) error {
	if p.format != FormatPretty {
		return p.Value(u)
	}
	p.Println(u.ID)
	props := map[string]any{}
	for k, v := range u.Properties {
		if k == "password" {
			continue
		}
		props[k] = v
	}
	if len(u.ExtendedGroups) > 0 {
		names := make([]any, len(u.ExtendedGroups))
		for i, g := range u.ExtendedGroups {
			names[i] = g.Name
		}
		props["extendedGroups"] = names
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table.Format(p.w, props, p.config())
}

// Group prints a group and its members.
func (p *Printer) Group(g *client.Group) error {
	if p.format != FormatPretty {
		return p.Value(g)
	}
	p.Printf("%s (%s)\n", g.GroupName, g.GroupLabel)
	if len(g.MemberUsers) > 0 {
		p.Printf("users: %s\n", strings.Join(g.MemberUsers, ", "))
	}
	if len(g.MemberGroup) > 0 {
		p.Printf("groups: %s\n", strings.Join(g.MemberGroup, ", "))
	}
	return nil
}

// Table prints rows with a header.
func (p *Printer) Table(header []string, rows [][]string) error {
	data := append([][]string{header}, rows...)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.table.Format(p.w, data, p.config())
}

// entries prints users, groups and audit entries as tables.
func (p *Printer) entries(resp *client.Response) error {
	var page struct {
		EntityType string            `json:"entity-type"`
		Entries    []json.RawMessage `json:"entries"`
	}
	if err := resp.Decode(&page); err != nil {
		return err
	}
	if len(page.Entries) == 0 {
		p.Println("No entries.")
		return nil
	}

	var header []string
	rows := make([][]string, 0, len(page.Entries))
	switch page.EntityType {
	case client.EntityUsers:
		header = []string{"USERNAME", "FIRST NAME", "LAST NAME", "EMAIL"}
		for _, raw := range page.Entries {
			var u client.User
			if err := json.Unmarshal(raw, &u); err != nil {
				return fmt.Errorf("failed to decode user: %w", err)
			}
			rows = append(rows, []string{u.ID,
				formatValue(u.Properties["firstName"]),
				formatValue(u.Properties["lastName"]),
				formatValue(u.Properties["email"])})
		}
	case client.EntityGroups:
		header = []string{"GROUP", "LABEL"}
		for _, raw := range page.Entries {
			var g client.Group
			if err := json.Unmarshal(raw, &g); err != nil {
				return fmt.Errorf("failed to decode group: %w", err)
			}
			rows = append(rows, []string{g.GroupName, g.GroupLabel})
		}
	default:
		header = []string{"DATE", "EVENT", "USER", "STATE", "COMMENT"}
		for _, raw := range page.Entries {
			var e client.LogEntry
			if err := json.Unmarshal(raw, &e); err != nil {
				return fmt.Errorf("failed to decode log entry: %w", err)
			}
			rows = append(rows, []string{e.EventDate, e.EventID, e.PrincipalName, e.DocLifeCycle, e.Comment})
		}
	}
	return p.Table(header, rows)
}
