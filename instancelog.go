package confbase

import (
	"fmt"
	"sync"
)

// AutoRef is an auto-discovery placeholder usable as a field default: at
// resolution time it wires the field to the latest constructed instance of a
// category, falling back to a class default or failing if marked required.
type AutoRef struct {
	category *Class
	fallback *Class
	required bool
}

// Auto creates a placeholder resolving to the latest instance of cat.
func Auto(cat *Class) *AutoRef {
	return &AutoRef{category: cat}
}

// WithFallback sets the class whose defaults are used when no instance of the
// category has been constructed yet.
func (a *AutoRef) WithFallback(cls *Class) *AutoRef {
	cp := *a
	cp.fallback = cls
	return &cp
}

// Required makes resolution fail with ErrMissingDependency when no instance
// of the category exists.
func (a *AutoRef) Required() *AutoRef {
	cp := *a
	cp.required = true
	return &cp
}

type logEntry struct {
	category *Class
	instance *Instance
	seq      uint64
}

// InstanceLog is an append-only, process-wide log of constructed instances
// per category. Every directly constructed instance is registered; instances
// produced as a byproduct of nested resolution are not. A single mutex guards
// append and scan: registration is rare relative to lookup and both are
// O(entries).
type InstanceLog struct {
	mu      sync.Mutex
	entries []logEntry
	seq     uint64
}

// NewInstanceLog creates an empty log.
func NewInstanceLog() *InstanceLog {
	return &InstanceLog{}
}

// Register appends inst under its category with the next sequence number.
func (l *InstanceLog) Register(inst *Instance) {
	if inst == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	l.entries = append(l.entries, logEntry{
		category: inst.class.Root(),
		instance: inst,
		seq:      l.seq,
	})
}

// Latest returns the most recently registered instance whose class lies in
// cat's namespace.
func (l *InstanceLog) Latest(cat *Class) (*Instance, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].category == cat.Root() {
			return l.entries[i].instance, true
		}
	}
	return nil, false
}

// Len returns the number of registered entries.
func (l *InstanceLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Reset discards all entries. Intended for test isolation.
func (l *InstanceLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.seq = 0
}

// resolveAuto resolves an auto-discovery placeholder against the log:
// latest registered instance in the category, else the fallback class's
// defaults, else the category's own defaults unless the placeholder demands
// an existing instance.
func (s *Schema) resolveAuto(a *AutoRef, path string) (*Instance, error) {
	if inst, ok := s.instances.Latest(a.category); ok {
		return inst, nil
	}
	if a.required {
		return nil, fmt.Errorf("%w: field %q requires an instance of category %q and none was registered",
			ErrMissingDependency, path, a.category.Name())
	}
	if a.fallback != nil {
		return s.defaults(a.fallback, path)
	}
	return s.defaults(a.category, path)
}
