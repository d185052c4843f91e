package output

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/nxshell/nxshell/pkg/client"
)

var (
	exprPattern     = regexp.MustCompile(`\{\{([^}]+)\}\}`)
	variablePattern = regexp.MustCompile(`\{([a-zA-Z_][a-zA-Z0-9_\.:-]*)\}`)
)

// TemplateEngine renders line templates and evaluates filter expressions
// against documents.
//
// A line template mixes plain variables ({title}, {properties.dc:creator})
// with expr expressions ({{ upper(type) }}). Filters are expr expressions that
// must evaluate to a boolean, e.g. `type == "Folder" && title startsWith "W"`.
type TemplateEngine struct {
	mu           sync.Mutex
	programCache map[string]*vm.Program
}

// NewTemplateEngine creates a new template engine.
func NewTemplateEngine() *TemplateEngine {
	return &TemplateEngine{programCache: make(map[string]*vm.Program)}
}

// DocumentEnv exposes a document to templates and filters.
func DocumentEnv(doc *client.Document) map[string]any {
	props := doc.Properties
	if props == nil {
		props = map[string]any{}
	}
	facets := doc.Facets
	if facets == nil {
		facets = []string{}
	}
	return map[string]any{
		"uid":          doc.UID,
		"path":         doc.Path,
		"name":         path.Base(doc.Path),
		"title":        doc.Title,
		"type":         doc.Type,
		"state":        doc.State,
		"repository":   doc.Repository,
		"lastModified": doc.LastModified,
		"facets":       facets,
		"folderish":    doc.IsFolderish(),
		"properties":   props,
	}
}

// Render renders a template string with the given data.
func (t *TemplateEngine) Render(template string, data map[string]any) (string, error) {
	if template == "" {
		return "", nil
	}
	if data == nil {
		data = map[string]any{}
	}

	var lastErr error
	result := exprPattern.ReplaceAllStringFunc(template, func(match string) string {
		value, err := t.evaluate(strings.TrimSpace(match[2:len(match)-2]), data)
		if err != nil {
			lastErr = err
			return match
		}
		return fmt.Sprint(value)
	})
	if lastErr != nil {
		return "", lastErr
	}

	result = variablePattern.ReplaceAllStringFunc(result, func(match string) string {
		value, err := resolveVariable(match[1:len(match)-1], data)
		if err != nil {
			lastErr = err
			return match
		}
		return formatValue(value)
	})
	if lastErr != nil {
		return "", lastErr
	}
	return result, nil
}

// Match evaluates a filter expression. Non-boolean results are an error.
func (t *TemplateEngine) Match(expression string, data map[string]any) (bool, error) {
	value, err := t.evaluate(expression, data)
	if err != nil {
		return false, err
	}
	b, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("filter %q must evaluate to a boolean, got %T", expression, value)
	}
	return b, nil
}

// Compile checks an expression without evaluating it.
func (t *TemplateEngine) Compile(expression string, env map[string]any) error {
	_, err := t.program(expression, env)
	return err
}

func (t *TemplateEngine) evaluate(expression string, data map[string]any) (any, error) {
	program, err := t.program(expression, data)
	if err != nil {
		return nil, err
	}
	result, err := expr.Run(program, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute expression '%s': %w", expression, err)
	}
	return result, nil
}

func (t *TemplateEngine) program(expression string, env map[string]any) (*vm.Program, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if program, ok := t.programCache[expression]; ok {
		return program, nil
	}
	program, err := expr.Compile(expression, expr.Env(env), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression '%s': %w", expression, err)
	}
	t.programCache[expression] = program
	return program, nil
}

// resolveVariable resolves a dotted path like "title" or "properties.dc:creator".
func resolveVariable(varPath string, data map[string]any) (any, error) {
	var current any = data
	for _, part := range strings.Split(varPath, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("cannot access field '%s' on non-map type", part)
		}
		val, ok := m[part]
		if !ok {
			return nil, fmt.Errorf("variable '%s' not found", varPath)
		}
		current = val
	}
	return current, nil
}
