package cli

import (
	"fmt"
	"sync"
)

// Registry maps command names and aliases to descriptors.
//
// Registration order is kept: Names and List return entries in the order
// they were first registered. Registering a name that already exists replaces
// its descriptor in place. A command of another origin replaced that way is
// remembered and comes back when RemoveOrigin drops its replacement.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]*Descriptor
	aliases     map[string]string
	order       []string
	shadowed    map[string]shadow
}

// shadow is what a name designated before a command of another origin took
// it: a command, or an alias of one.
type shadow struct {
	origin  Origin
	desc    *Descriptor
	aliasOf string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]*Descriptor),
		aliases:     make(map[string]string),
		shadowed:    make(map[string]shadow),
	}
}

// Register adds desc under its name and aliases. It returns the descriptor it
// replaced, or nil.
func (r *Registry) Register(desc *Descriptor) *Descriptor {
	r.mu.Lock()
	defer r.mu.Unlock()

	prev := r.resolveLocked(desc.Name)
	r.shadowLocked(desc, prev)
	if _, exists := r.descriptors[desc.Name]; !exists {
		if _, aliased := r.aliases[desc.Name]; !aliased {
			r.order = append(r.order, desc.Name)
		}
	}
	// A name that used to be an alias now designates its own command.
	delete(r.aliases, desc.Name)
	r.descriptors[desc.Name] = desc

	for _, alias := range desc.Aliases {
		r.aliasLocked(alias, desc.Name)
	}
	return prev
}

func (r *Registry) shadowLocked(desc, prev *Descriptor) {
	if sh, ok := r.shadowed[desc.Name]; ok {
		if sh.origin == desc.Origin {
			delete(r.shadowed, desc.Name)
		}
		return
	}
	if prev == nil || prev.Origin == desc.Origin {
		return
	}
	sh := shadow{origin: prev.Origin, desc: prev}
	if target, ok := r.aliases[desc.Name]; ok {
		sh.desc, sh.aliasOf = nil, target
	}
	r.shadowed[desc.Name] = sh
}

// RemoveOrigin unregisters every command of the given origin, along with the
// aliases left without a command, and restores the commands they shadowed.
// It returns the number of commands removed.
func (r *Registry) RemoveOrigin(origin Origin) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for name, desc := range r.descriptors {
		if desc.Origin == origin {
			delete(r.descriptors, name)
			removed++
		}
	}
	if removed == 0 {
		return 0
	}

	for name, sh := range r.shadowed {
		if _, taken := r.descriptors[name]; taken {
			continue
		}
		if sh.desc != nil {
			r.descriptors[name] = sh.desc
		} else if _, ok := r.descriptors[sh.aliasOf]; ok {
			r.aliases[name] = sh.aliasOf
		}
		delete(r.shadowed, name)
	}
	for alias, target := range r.aliases {
		if _, ok := r.descriptors[target]; !ok {
			delete(r.aliases, alias)
		}
	}

	order := r.order[:0]
	for _, name := range r.order {
		_, isCommand := r.descriptors[name]
		_, isAlias := r.aliases[name]
		if isCommand || isAlias {
			order = append(order, name)
		}
	}
	r.order = order
	return removed
}

// RegisterAlias makes alias designate the command registered as name.
func (r *Registry) RegisterAlias(alias, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.descriptors[name]; !ok {
		return fmt.Errorf("cannot alias %q: unknown command %q", alias, name)
	}
	r.aliasLocked(alias, name)
	return nil
}

func (r *Registry) aliasLocked(alias, name string) {
	if alias == name {
		return
	}
	if _, ok := r.descriptors[alias]; ok {
		// Aliases never hide a command registered under that exact name.
		return
	}
	if _, ok := r.aliases[alias]; !ok {
		r.order = append(r.order, alias)
	}
	r.aliases[alias] = name
}

// Lookup returns the descriptor registered under name or alias.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	desc := r.resolveLocked(name)
	return desc, desc != nil
}

func (r *Registry) resolveLocked(name string) *Descriptor {
	if desc, ok := r.descriptors[name]; ok {
		return desc
	}
	if target, ok := r.aliases[name]; ok {
		return r.descriptors[target]
	}
	return nil
}

// Names returns every command name and alias in registration order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// List returns the registered descriptors in registration order, once each.
func (r *Registry) List() []*Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]*Descriptor, 0, len(r.descriptors))
	for _, name := range r.order {
		if desc, ok := r.descriptors[name]; ok {
			list = append(list, desc)
		}
	}
	return list
}

// ListOrigin returns the descriptors of the given origin.
func (r *Registry) ListOrigin(origin Origin) []*Descriptor {
	var list []*Descriptor
	for _, desc := range r.List() {
		if desc.Origin == origin {
			list = append(list, desc)
		}
	}
	return list
}
