package confbase

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// coerce converts a raw override value (string, number, list, mapping, or an
// already-typed object) to the declared type. Under strict mode an unparsable
// value is a type mismatch naming the field path; otherwise the raw value is
// stored unchanged.
//
// current is the field's present default instance, consulted when a
// configuration-typed value is merged rather than rebuilt.
func (s *Schema) coerce(raw any, d *Descriptor, current *Instance, strict bool, path string) (any, error) {
	val, err := s.coerceStrict(raw, d, current, path)
	if err != nil {
		if strict {
			return nil, err
		}
		return raw, nil
	}
	return val, nil
}

func (s *Schema) coerceStrict(raw any, d *Descriptor, current *Instance, path string) (any, error) {
	if raw == nil {
		if d.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: field %q of type %s given nil", ErrTypeMismatch, path, d)
	}

	switch d.Kind {
	case KindString:
		return coerceString(raw, path)
	case KindInt:
		return coerceInt(raw, path)
	case KindFloat:
		return coerceFloat(raw, path)
	case KindBool:
		return coerceBool(raw, path)
	case KindSlice:
		return s.coerceSlice(raw, d, path)
	case KindMap:
		return s.coerceMap(raw, d, path)
	case KindUnion:
		return s.coerceUnion(raw, d, current, path)
	case KindConfig:
		return s.coerceConfig(raw, d, current, path)
	}
	return nil, fmt.Errorf("%w: field %q has invalid type descriptor", ErrTypeMismatch, path)
}

func coerceString(raw any, path string) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}
	return nil, mismatch(path, "string", raw)
}

func coerceInt(raw any, path string) (any, error) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > uint64(^uint64(0)>>1) {
			return nil, mismatch(path, "int", raw)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != float64(int64(f)) {
			return nil, mismatch(path, "int", raw)
		}
		return int64(f), nil
	case reflect.String:
		s := strings.TrimSpace(rv.String())
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		}
		return nil, mismatch(path, "int", raw)
	}
	return nil, mismatch(path, "int", raw)
}

func coerceFloat(raw any, path string) (any, error) {
	rv := reflect.ValueOf(raw)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), nil
	case reflect.String:
		s := strings.TrimSpace(rv.String())
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		return nil, mismatch(path, "float", raw)
	}
	return nil, mismatch(path, "float", raw)
}

// coerceBool accepts the fixed strconv vocabulary, case-insensitively.
func coerceBool(raw any, path string) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		if b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(v))); err == nil {
			return b, nil
		}
		return nil, mismatch(path, "bool", raw)
	}
	return nil, mismatch(path, "bool", raw)
}

func (s *Schema) coerceSlice(raw any, d *Descriptor, path string) (any, error) {
	var elems []any

	switch v := raw.(type) {
	case string:
		// A single textual token may be a literal collection: parse it
		// structurally before coercing elements.
		trimmed := strings.TrimSpace(v)
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal([]byte(trimmed), &elems); err != nil {
				return nil, fmt.Errorf("%w: field %q: cannot parse %q as a list: %v",
					ErrTypeMismatch, path, v, err)
			}
		} else {
			for _, part := range strings.Split(trimmed, ",") {
				elems = append(elems, strings.TrimSpace(part))
			}
		}
	default:
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return nil, mismatch(path, d.String(), raw)
		}
		elems = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elems[i] = rv.Index(i).Interface()
		}
	}

	out := make([]any, len(elems))
	for i, e := range elems {
		coerced, err := s.coerceStrict(e, d.Elem, nil, fmt.Sprintf("%s[%d]", path, i))
		if err != nil {
			return nil, err
		}
		out[i] = coerced
	}
	return out, nil
}

func (s *Schema) coerceMap(raw any, d *Descriptor, path string) (any, error) {
	var src map[string]any

	switch v := raw.(type) {
	case map[string]any:
		src = v
	case string:
		trimmed := strings.TrimSpace(v)
		if !strings.HasPrefix(trimmed, "{") {
			return nil, mismatch(path, d.String(), raw)
		}
		if err := json.Unmarshal([]byte(trimmed), &src); err != nil {
			return nil, fmt.Errorf("%w: field %q: cannot parse %q as a map: %v",
				ErrTypeMismatch, path, v, err)
		}
	default:
		rv := reflect.ValueOf(raw)
		if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
			return nil, mismatch(path, d.String(), raw)
		}
		src = make(map[string]any, rv.Len())
		for _, k := range rv.MapKeys() {
			src[k.String()] = rv.MapIndex(k).Interface()
		}
	}

	out := make(map[string]any, len(src))
	for k, v := range src {
		if d.Elem == nil {
			out[k] = v
			continue
		}
		coerced, err := s.coerceStrict(v, d.Elem, nil, joinPath(path, k))
		if err != nil {
			return nil, err
		}
		out[k] = coerced
	}
	return out, nil
}

// coerceUnion attempts each arm in declaration order and accepts the first
// that coerces without error.
func (s *Schema) coerceUnion(raw any, d *Descriptor, current *Instance, path string) (any, error) {
	for _, arm := range d.Arms {
		if val, err := s.coerceStrict(raw, arm, current, path); err == nil {
			return val, nil
		}
	}
	return nil, fmt.Errorf("%w: field %q: value %v (%T) matches no arm of %s",
		ErrAmbiguousUnion, path, raw, raw, d)
}

// coerceConfig accepts an already-resolved instance within the declared
// class's namespace, a mapping merged over the current default, or a bare
// discriminator string switching the concrete class.
func (s *Schema) coerceConfig(raw any, d *Descriptor, current *Instance, path string) (any, error) {
	switch v := raw.(type) {
	case *Instance:
		if !v.class.descendsFrom(d.Class) {
			return nil, fmt.Errorf("%w: field %q expects %s, got instance of %q",
				ErrTypeMismatch, path, d, v.class.name)
		}
		return v, nil
	case string:
		return s.mergeConfigField(d, current, map[string]any{DiscriminatorKey: v}, true, path)
	case map[string]any:
		return s.mergeConfigField(d, current, v, true, path)
	}
	return nil, fmt.Errorf("%w: value for config field %q must be a mapping or instance, got %T",
		ErrTypeMismatch, path, raw)
}

// descendsFrom reports whether c is cls or one of its descendants.
func (c *Class) descendsFrom(cls *Class) bool {
	for cur := c; cur != nil; cur = cur.parent {
		if cur == cls {
			return true
		}
	}
	return false
}

func mismatch(path, want string, raw any) error {
	return fmt.Errorf("%w: field %q expects %s, got %T = %v", ErrTypeMismatch, path, want, raw, truncate(raw))
}

// truncate keeps offending values readable in error messages.
func truncate(v any) string {
	s := fmt.Sprintf("%v", v)
	if len(s) > 100 {
		return s[:100] + "..."
	}
	return s
}
