package confbase

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Instance is a resolved configuration value: a concrete class plus its
// effective field values, with configuration-typed fields holding nested
// Instances. Instances are immutable after construction; every merge
// produces a new one, so resolved instances can be shared across goroutines.
type Instance struct {
	class  *Class
	values map[string]any
}

// Class returns the concrete class of the instance.
func (in *Instance) Class() *Class { return in.class }

// Name returns the instance's discriminator.
func (in *Instance) Name() string { return in.class.name }

// Get retrieves a value by dotted path, descending through nested instances
// and plain maps. The discriminator of a nested instance is readable under
// its "_config_name" key.
func (in *Instance) Get(path string) (any, bool) {
	if path == "" {
		return nil, false
	}
	var current any = in
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case *Instance:
			if segment == DiscriminatorKey {
				current = node.class.name
				continue
			}
			v, ok := node.values[segment]
			if !ok {
				return nil, false
			}
			current = v
		case map[string]any:
			v, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = v
		default:
			return nil, false
		}
	}
	return current, true
}

// String retrieves a string value by path, converting common types.
func (in *Instance) String(path string) (string, error) {
	val, found := in.Get(path)
	if !found {
		return "", fmt.Errorf("%w: %q in %s", ErrUnknownField, path, in.class.name)
	}
	if val == nil {
		return "", nil
	}
	if s, ok := val.(string); ok {
		return s, nil
	}
	switch v := val.(type) {
	case fmt.Stringer:
		return v.String(), nil
	case []byte:
		return string(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	}
	rv := reflect.ValueOf(val)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(rv.Uint(), 10), nil
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), nil
	}
	return "", fmt.Errorf("cannot convert type %T to string for path %s", val, path)
}

// Int64 retrieves an int64 value by path, converting numeric types, parsable
// strings, and booleans.
func (in *Instance) Int64(path string) (int64, error) {
	val, found := in.Get(path)
	if !found {
		return 0, fmt.Errorf("%w: %q in %s", ErrUnknownField, path, in.class.name)
	}
	if val == nil {
		return 0, fmt.Errorf("value for path %s is nil, cannot convert to int64", path)
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := v.Uint()
		maxInt64 := uint64(^uint64(0) >> 1)
		if u > maxInt64 {
			return 0, fmt.Errorf("cannot convert %d to int64 for path %s: overflow", u, path)
		}
		return int64(u), nil
	case reflect.Float32, reflect.Float64:
		return int64(v.Float()), nil
	case reflect.String:
		s := v.String()
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return i, nil
		} else if f, ferr := strconv.ParseFloat(s, 64); ferr == nil {
			return int64(f), nil
		} else {
			return 0, fmt.Errorf("cannot convert string %q to int64 for path %s: %w", s, path, err)
		}
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert type %T to int64 for path %s", val, path)
}

// Float64 retrieves a float64 value by path.
func (in *Instance) Float64(path string) (float64, error) {
	val, found := in.Get(path)
	if !found {
		return 0, fmt.Errorf("%w: %q in %s", ErrUnknownField, path, in.class.name)
	}
	if val == nil {
		return 0, fmt.Errorf("value for path %s is nil, cannot convert to float64", path)
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Float32, reflect.Float64:
		return v.Float(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(v.Uint()), nil
	case reflect.String:
		s := v.String()
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		return 0, fmt.Errorf("cannot convert string %q to float64 for path %s", s, path)
	case reflect.Bool:
		if v.Bool() {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("cannot convert type %T to float64 for path %s", val, path)
}

// Bool retrieves a boolean value by path. Numbers read as non-zero.
func (in *Instance) Bool(path string) (bool, error) {
	val, found := in.Get(path)
	if !found {
		return false, fmt.Errorf("%w: %q in %s", ErrUnknownField, path, in.class.name)
	}
	if val == nil {
		return false, fmt.Errorf("value for path %s is nil, cannot convert to bool", path)
	}

	v := reflect.ValueOf(val)
	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.String:
		s := v.String()
		if b, err := strconv.ParseBool(strings.ToLower(s)); err == nil {
			return b, nil
		}
		return false, fmt.Errorf("cannot convert string %q to bool for path %s", s, path)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() != 0, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() != 0, nil
	case reflect.Float32, reflect.Float64:
		return v.Float() != 0, nil
	}
	return false, fmt.Errorf("cannot convert type %T to bool for path %s", val, path)
}

// ToMap returns a nested plain-mapping view of the instance. Nested instances
// become nested maps carrying their discriminator under "_config_name", so
// merging the export back over the same defaults reproduces the instance.
func (in *Instance) ToMap() map[string]any {
	out := make(map[string]any, len(in.values)+1)
	out[DiscriminatorKey] = in.class.name
	for name, val := range in.values {
		if sub, ok := val.(*Instance); ok {
			out[name] = sub.ToMap()
			continue
		}
		out[name] = val
	}
	return out
}

// Flat returns the flattened, dot-keyed view of ToMap.
func (in *Instance) Flat() map[string]any {
	return flattenMap(in.ToMap(), "")
}

// cloneValues shallow-copies the field map for copy-on-write merging.
func (in *Instance) cloneValues() map[string]any {
	out := make(map[string]any, len(in.values))
	for k, v := range in.values {
		out[k] = v
	}
	return out
}
