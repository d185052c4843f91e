package interactive

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nxshell/nxshell/pkg/client"
)

// OptionSource describes where completion options come from: the entries of
// a principal search, keyed by ValueField.
type OptionSource struct {
	// Kind is client.KindUser or client.KindGroup.
	Kind string
	// ValueField is the entry field holding the option, e.g. "id".
	ValueField string
}

// UserSource lists user names.
var UserSource = OptionSource{Kind: client.KindUser, ValueField: "id"}

// GroupSource lists group names.
var GroupSource = OptionSource{Kind: client.KindGroup, ValueField: "groupname"}

// OptionLoader loads option values from the server and caches them briefly
// so that repeated completions do not hit the server each time.
type OptionLoader struct {
	ttl time.Duration
	now func() time.Time

	mu    sync.Mutex
	cache map[cacheKey]cacheEntry
}

type cacheKey struct {
	host   string
	source OptionSource
}

type cacheEntry struct {
	options []string
	loaded  time.Time
}

// NewOptionLoader creates a loader caching results for ttl.
func NewOptionLoader(ttl time.Duration) *OptionLoader {
	return &OptionLoader{ttl: ttl, now: time.Now, cache: make(map[cacheKey]cacheEntry)}
}

// LoadOptions returns the sorted option values of source.
func (l *OptionLoader) LoadOptions(ctx context.Context, c *client.Client, source OptionSource) ([]string, error) {
	if c == nil {
		return nil, fmt.Errorf("not connected")
	}
	key := cacheKey{host: c.BaseURL(), source: source}

	l.mu.Lock()
	entry, ok := l.cache[key]
	l.mu.Unlock()
	if ok && l.now().Sub(entry.loaded) < l.ttl {
		return entry.options, nil
	}

	resp, err := c.SearchPrincipals(ctx, source.Kind, "*", client.Page{})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s names: %w", source.Kind, err)
	}
	options, err := extractOptions(resp.Body, source.ValueField)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.cache[key] = cacheEntry{options: options, loaded: l.now()}
	l.mu.Unlock()
	return options, nil
}

// Invalidate drops cached options, e.g. after a user was created.
func (l *OptionLoader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[cacheKey]cacheEntry)
}

// extractOptions reads entries[].field from a listing payload.
func extractOptions(body []byte, field string) ([]string, error) {
	var page struct {
		Entries []map[string]any `json:"entries"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	options := make([]string, 0, len(page.Entries))
	for _, item := range page.Entries {
		val, ok := item[field]
		if !ok || val == nil {
			continue
		}
		if s, ok := val.(string); ok {
			options = append(options, s)
		} else {
			options = append(options, fmt.Sprintf("%v", val))
		}
	}
	sort.Strings(options)
	return options, nil
}
