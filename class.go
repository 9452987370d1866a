package confbase

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DiscriminatorKey is the reserved field name carrying a class's discriminator
// string in override maps and exported views. Overriding a configuration-typed
// field with a bare string is shorthand for setting this key.
const DiscriminatorKey = "_config_name"

// FieldDecl is a single field declaration on one class. Declarations are
// immutable once the owning class is sealed.
type FieldDecl struct {
	Name       string
	Type       *Descriptor
	Default    any
	HasDefault bool
	Owner      *Class
}

// Schema holds the declared categories and their subclasses, plus the
// instance log consulted for auto-discovery defaults.
type Schema struct {
	mu         sync.RWMutex
	categories map[string]*Class
	instances  *InstanceLog
	declErr    error
}

// New creates an empty schema with its own instance log.
func New() *Schema {
	return NewWithInstances(NewInstanceLog())
}

// NewWithInstances creates a schema sharing the given instance log. Passing
// the log in keeps auto-discovery resolution deterministic and testable.
func NewWithInstances(log *InstanceLog) *Schema {
	if log == nil {
		log = NewInstanceLog()
	}
	return &Schema{
		categories: make(map[string]*Class),
		instances:  log,
	}
}

// Instances returns the schema's instance log.
func (s *Schema) Instances() *InstanceLog {
	return s.instances
}

// Err returns the first declaration error recorded anywhere in the schema.
// Resolution entry points fail fast while it is non-nil.
func (s *Schema) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.declErr
}

func (s *Schema) recordErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.declErr == nil {
		s.declErr = err
	}
}

// Category declares a root configuration class. The lower-cased name is both
// the category name and the root's own discriminator.
func (s *Schema) Category(name string) *Class {
	name = strings.ToLower(name)
	c := &Class{schema: s, name: name}
	c.root = c
	c.registry = map[string]*Class{name: c}

	if !isValidKeySegment(name) {
		c.err = fmt.Errorf("invalid category name %q", name)
		s.recordErr(c.err)
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.categories[name]; exists {
		c.err = fmt.Errorf("%w: category %q declared twice", ErrNamingConflict, name)
		if s.declErr == nil {
			s.declErr = c.err
		}
		return c
	}
	s.categories[name] = c
	return c
}

// Class is a configuration class: a category root or one of its descendants.
// Declaration methods chain and defer errors; check Err (or rely on the
// resolution entry points) after declaring.
type Class struct {
	schema *Schema
	name   string
	parent *Class
	root   *Class

	fields []FieldDecl

	// registry maps discriminator to class; populated on the root only and
	// covering the whole category namespace, root included.
	registry map[string]*Class

	sealed    bool
	effective []FieldDecl
	index     map[string]int

	err error
}

// Name returns the class's discriminator.
func (c *Class) Name() string { return c.name }

// Root returns the category root of c (c itself for a category).
func (c *Class) Root() *Class { return c.root }

// IsCategory reports whether c is a category root.
func (c *Class) IsCategory() bool { return c == c.root }

// Err returns the first declaration error recorded on this class.
func (c *Class) Err() error { return c.err }

func (c *Class) fail(err error) *Class {
	if c.err == nil {
		c.err = err
	}
	if c.schema != nil {
		c.schema.recordErr(err)
	}
	return c
}

// Subclass declares and registers a descendant of c in c's category
// namespace. Registering the same discriminator twice within one category is
// a naming conflict.
func (c *Class) Subclass(name string) *Class {
	name = strings.ToLower(name)
	sub := &Class{schema: c.schema, name: name, parent: c, root: c.root}

	if c.err != nil {
		sub.err = c.err
		return sub
	}
	if !isValidKeySegment(name) {
		err := fmt.Errorf("invalid class name %q", name)
		sub.err = err
		c.fail(err)
		return sub
	}

	c.schema.mu.Lock()
	defer c.schema.mu.Unlock()
	if prior, exists := c.root.registry[name]; exists {
		err := fmt.Errorf("%w: %q already registered in category %q (by %q)",
			ErrNamingConflict, name, c.root.name, prior.name)
		sub.err = err
		if c.schema.declErr == nil {
			c.schema.declErr = err
		}
		return sub
	}
	c.root.registry[name] = sub
	return sub
}

// Field declares a field with a default value. A nil descriptor infers the
// type from the default. Primitive defaults are coerced to their canonical
// form at declaration time so bad defaults surface immediately.
func (c *Class) Field(name string, d *Descriptor, def any) *Class {
	return c.declare(name, d, def, true)
}

// Require declares a field with no default. Strict resolution fails with
// ErrMissingField if no override ever supplies it.
func (c *Class) Require(name string, d *Descriptor) *Class {
	return c.declare(name, d, nil, false)
}

func (c *Class) declare(name string, d *Descriptor, def any, hasDefault bool) *Class {
	if c.err != nil {
		return c
	}
	if c.sealed {
		return c.fail(fmt.Errorf("%w: cannot declare %q on resolved class %q", ErrSealed, name, c.name))
	}
	if !isValidKeySegment(name) || name == DiscriminatorKey {
		return c.fail(fmt.Errorf("invalid field name %q on class %q", name, c.name))
	}
	for _, f := range c.fields {
		if f.Name == name {
			return c.fail(fmt.Errorf("field %q declared twice on class %q", name, c.name))
		}
	}

	if d == nil {
		inferred, err := classifyValue(def)
		if err != nil {
			return c.fail(fmt.Errorf("field %q on class %q: %w", name, c.name, err))
		}
		d = inferred
	}
	if err := d.validate(); err != nil {
		return c.fail(fmt.Errorf("field %q on class %q: %w", name, c.name, err))
	}

	if hasDefault && !d.IsConfig() {
		coerced, err := c.schema.coerce(def, d, nil, true, c.name+"."+name)
		if err != nil {
			return c.fail(err)
		}
		def = coerced
	}
	if hasDefault && d.IsConfig() {
		switch def.(type) {
		case nil, *Class, *Instance, *AutoRef, map[string]any:
		default:
			return c.fail(fmt.Errorf("%w: field %q on class %q: config default must be a class, instance, auto reference, or map, got %T",
				ErrTypeMismatch, name, c.name, def))
		}
	}

	c.fields = append(c.fields, FieldDecl{
		Name:       name,
		Type:       d,
		Default:    def,
		HasDefault: hasDefault,
		Owner:      c,
	})
	return c
}

// Lookup resolves a discriminator within c's category namespace.
func (c *Class) Lookup(discriminator string) (*Class, error) {
	discriminator = strings.ToLower(discriminator)
	c.schema.mu.RLock()
	defer c.schema.mu.RUnlock()
	if cls, ok := c.root.registry[discriminator]; ok {
		return cls, nil
	}
	return nil, fmt.Errorf("%w: %q in category %q, expected one of %s",
		ErrDiscriminatorNotFound, discriminator, c.root.name, c.root.availableLocked())
}

// availableLocked formats the sorted namespace for error messages.
// Caller holds the schema lock.
func (c *Class) availableLocked() string {
	names := make([]string, 0, len(c.root.registry))
	for n := range c.root.registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return "[" + strings.Join(names, ", ") + "]"
}

// seal computes and caches the effective field set: the ancestor chain walked
// root to leaf, each more specific declaration replacing its ancestors' entry
// in place. Sealed classes reject further declarations.
func (c *Class) seal() {
	c.schema.mu.Lock()
	defer c.schema.mu.Unlock()
	c.sealLocked()
}

func (c *Class) sealLocked() {
	if c.sealed {
		return
	}

	var chain []*Class
	for cur := c; cur != nil; cur = cur.parent {
		chain = append(chain, cur)
	}

	c.effective = nil
	c.index = make(map[string]int)
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].fields {
			if at, seen := c.index[f.Name]; seen {
				c.effective[at] = f
			} else {
				c.index[f.Name] = len(c.effective)
				c.effective = append(c.effective, f)
			}
		}
	}
	c.sealed = true
}

// Fields returns the effective field set of c, sealing it if needed.
func (c *Class) Fields() []FieldDecl {
	c.seal()
	out := make([]FieldDecl, len(c.effective))
	copy(out, c.effective)
	return out
}

// fieldByName returns the effective declaration for name. The class must be
// sealed.
func (c *Class) fieldByName(name string) (FieldDecl, bool) {
	at, ok := c.index[name]
	if !ok {
		return FieldDecl{}, false
	}
	return c.effective[at], true
}
