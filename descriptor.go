package confbase

import (
	"fmt"
	"reflect"
)

// Kind identifies the shape of a declared field type. The set is closed:
// coercion switches over it exhaustively, so new shapes are deliberate
// additions rather than silent fallthrough.
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindInt
	KindFloat
	KindBool
	KindSlice
	KindMap
	KindUnion
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindBool:
		return "bool"
	case KindSlice:
		return "slice"
	case KindMap:
		return "map"
	case KindUnion:
		return "union"
	case KindConfig:
		return "config"
	default:
		return "invalid"
	}
}

// Descriptor is the declared type of a field. Descriptors are built with the
// package-level constructors and treated as immutable.
type Descriptor struct {
	Kind Kind

	// Elem is the element type for KindSlice and the value type for KindMap.
	// A nil Elem map accepts arbitrary values.
	Elem *Descriptor

	// Arms holds the alternatives of a KindUnion, in declaration order.
	Arms []*Descriptor

	// Class is the declared category or subclass for KindConfig.
	Class *Class

	// Nullable marks Optional[T]: an absent or nil raw value resolves to nil.
	Nullable bool
}

// Primitive descriptors. Stored values are canonicalized to string, int64,
// float64, and bool respectively.
var (
	String = &Descriptor{Kind: KindString}
	Int    = &Descriptor{Kind: KindInt}
	Float  = &Descriptor{Kind: KindFloat}
	Bool   = &Descriptor{Kind: KindBool}
)

// Optional wraps d so that nil (or an absent raw value) is accepted.
func Optional(d *Descriptor) *Descriptor {
	cp := *d
	cp.Nullable = true
	return &cp
}

// Slice declares a sequence whose elements coerce to elem.
func Slice(elem *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindSlice, Elem: elem}
}

// Map declares a string-keyed mapping. A nil elem accepts arbitrary values.
func Map(elem *Descriptor) *Descriptor {
	return &Descriptor{Kind: KindMap, Elem: elem}
}

// Union declares alternatives tried in order during coercion.
func Union(arms ...*Descriptor) *Descriptor {
	return &Descriptor{Kind: KindUnion, Arms: arms}
}

// Ref declares a configuration-typed field accepting cls or any of its
// descendants.
func Ref(cls *Class) *Descriptor {
	return &Descriptor{Kind: KindConfig, Class: cls}
}

// IsConfig reports whether d is configuration-typed, directly or as one arm
// of a union.
func (d *Descriptor) IsConfig() bool {
	return d.configArm() != nil
}

// configArm returns the first configuration-typed member of d, unwrapping a
// single union level, or nil if there is none.
func (d *Descriptor) configArm() *Descriptor {
	if d == nil {
		return nil
	}
	if d.Kind == KindConfig {
		return d
	}
	if d.Kind == KindUnion {
		for _, arm := range d.Arms {
			if arm != nil && arm.Kind == KindConfig {
				return arm
			}
		}
	}
	return nil
}

func (d *Descriptor) String() string {
	if d == nil {
		return "<nil>"
	}
	s := ""
	switch d.Kind {
	case KindSlice:
		s = fmt.Sprintf("slice(%s)", d.Elem)
	case KindMap:
		if d.Elem != nil {
			s = fmt.Sprintf("map(%s)", d.Elem)
		} else {
			s = "map"
		}
	case KindUnion:
		s = "union("
		for i, arm := range d.Arms {
			if i > 0 {
				s += ", "
			}
			s += arm.String()
		}
		s += ")"
	case KindConfig:
		s = fmt.Sprintf("config(%s)", d.Class.Name())
	default:
		s = d.Kind.String()
	}
	if d.Nullable {
		return "optional " + s
	}
	return s
}

// validate checks structural soundness of a declared descriptor. Union arms
// that are configuration classes must all belong to one category; otherwise
// discriminator resolution would be ambiguous.
func (d *Descriptor) validate() error {
	if d == nil {
		return fmt.Errorf("nil type descriptor")
	}
	switch d.Kind {
	case KindString, KindInt, KindFloat, KindBool:
		return nil
	case KindSlice:
		if d.Elem == nil {
			return fmt.Errorf("slice descriptor requires an element type")
		}
		return d.Elem.validate()
	case KindMap:
		if d.Elem != nil {
			return d.Elem.validate()
		}
		return nil
	case KindUnion:
		if len(d.Arms) == 0 {
			return fmt.Errorf("%w: union with no arms", ErrAmbiguousUnion)
		}
		var category *Class
		for _, arm := range d.Arms {
			if err := arm.validate(); err != nil {
				return err
			}
			if arm.Kind == KindConfig {
				root := arm.Class.Root()
				if category != nil && category != root {
					return fmt.Errorf("%w: union arms span categories %q and %q",
						ErrAmbiguousUnion, category.Name(), root.Name())
				}
				category = root
			}
		}
		return nil
	case KindConfig:
		if d.Class == nil {
			return fmt.Errorf("config descriptor requires a class")
		}
		return nil
	default:
		return fmt.Errorf("invalid type descriptor kind %d", d.Kind)
	}
}

// Classify maps a plain Go type onto a Descriptor. Pointers become optional,
// slices and string-keyed maps recurse on their element type. Configuration
// classes are declared with Ref and cannot be classified from a Go type.
func Classify(t reflect.Type) (*Descriptor, error) {
	if t == nil {
		return nil, fmt.Errorf("cannot classify nil type")
	}
	switch t.Kind() {
	case reflect.Ptr:
		elem, err := Classify(t.Elem())
		if err != nil {
			return nil, err
		}
		return Optional(elem), nil
	case reflect.String:
		return String, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Int, nil
	case reflect.Float32, reflect.Float64:
		return Float, nil
	case reflect.Bool:
		return Bool, nil
	case reflect.Slice, reflect.Array:
		if t.Elem().Kind() == reflect.Interface {
			return Slice(String), nil
		}
		elem, err := Classify(t.Elem())
		if err != nil {
			return nil, err
		}
		return Slice(elem), nil
	case reflect.Map:
		if t.Key().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot classify map with non-string key type %s", t.Key())
		}
		if t.Elem().Kind() == reflect.Interface {
			return Map(nil), nil
		}
		elem, err := Classify(t.Elem())
		if err != nil {
			return nil, err
		}
		return Map(elem), nil
	default:
		return nil, fmt.Errorf("cannot classify type %s", t)
	}
}

// classifyValue infers a descriptor from a default value, used when a field
// is declared without an explicit type.
func classifyValue(v any) (*Descriptor, error) {
	switch v := v.(type) {
	case nil:
		return nil, fmt.Errorf("cannot infer a type from a nil default")
	case *Class:
		return Ref(v), nil
	case *Instance:
		return Ref(v.class), nil
	case *AutoRef:
		return Ref(v.category), nil
	}
	return Classify(reflect.TypeOf(v))
}
