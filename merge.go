package confbase

import (
	"fmt"
)

// Merge applies an override map (flat dotted, nested, or mixed) to a default
// instance and returns a new, fully resolved instance. def is never mutated.
//
// For a configuration-typed field, an override naming a different
// discriminator rebuilds that field from the selected class's own defaults
// before applying the remaining sub-field overrides; the old class's field
// values do not carry over. Without a discriminator entry (or when it names
// the current class again) the sub-field overrides apply in place and
// untouched fields survive.
func (s *Schema) Merge(def *Instance, overrides map[string]any, strict bool) (*Instance, error) {
	if def == nil {
		return nil, fmt.Errorf("nil instance")
	}
	if err := s.checkDeclared(def.class); err != nil {
		return nil, err
	}
	inst, err := s.mergeInstance(def, normalizeOverrides(overrides), strict, "")
	if err != nil {
		return nil, err
	}
	if strict {
		if err := s.validateRequired(inst, ""); err != nil {
			return nil, err
		}
	}
	s.instances.Register(inst)
	return inst, nil
}

// mergeInstance is the discriminator-switch merge over one instance.
// m is in canonical nested form.
func (s *Schema) mergeInstance(def *Instance, m map[string]any, strict bool, path string) (*Instance, error) {
	base := def

	// An explicit discriminator selection naming a different concrete class
	// discards the old class's defaults: they are tied to a subclass the
	// caller just opted out of.
	if raw, ok := m[DiscriminatorKey]; ok {
		name, err := coerceString(raw, joinPath(path, DiscriminatorKey))
		if err != nil {
			return nil, err
		}
		target, err := def.class.Lookup(name.(string))
		if err != nil {
			if path != "" {
				return nil, fmt.Errorf("at %q: %w", path, err)
			}
			return nil, err
		}
		if target != def.class {
			fresh, err := s.defaults(target, path)
			if err != nil {
				return nil, err
			}
			base = fresh
		}
	}

	out := base.cloneValues()

	for _, key := range sortedKeys(m) {
		if key == DiscriminatorKey {
			continue
		}
		fieldPath := joinPath(path, key)

		fd, ok := base.class.fieldByName(key)
		if !ok {
			// A typo, not a type mismatch: fatal regardless of strict mode.
			return nil, fmt.Errorf("%w: %q in class %q", ErrUnknownField, fieldPath, base.class.name)
		}

		raw := m[key]

		if fd.Type.IsConfig() {
			val, err := s.mergeConfigOverride(fd, out[key], raw, strict, fieldPath)
			if err != nil {
				return nil, err
			}
			out[key] = val
			continue
		}

		coerced, err := s.coerce(raw, fd.Type, nil, strict, fieldPath)
		if err != nil {
			return nil, err
		}
		out[key] = coerced
	}

	return &Instance{class: base.class, values: out}, nil
}

// mergeConfigOverride applies one override value to a configuration-typed
// field. A bare string selects a discriminator; a mapping merges; an
// already-resolved instance replaces the value after a namespace check.
func (s *Schema) mergeConfigOverride(fd FieldDecl, current any, raw any, strict bool, path string) (any, error) {
	arm := fd.Type.configArm()

	switch v := raw.(type) {
	case nil:
		if fd.Type.Nullable {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: value for config field %q must be a mapping, got nil",
			ErrTypeMismatch, path)
	case *Instance:
		if !v.class.descendsFrom(arm.Class) {
			return nil, fmt.Errorf("%w: field %q expects %s, got instance of %q",
				ErrTypeMismatch, path, fd.Type, v.class.name)
		}
		return v, nil
	case string:
		cur, _ := current.(*Instance)
		return s.mergeConfigField(fd.Type, cur, map[string]any{DiscriminatorKey: v}, strict, path)
	case map[string]any:
		cur, _ := current.(*Instance)
		return s.mergeConfigField(fd.Type, cur, v, strict, path)
	}
	// Not strict-gated: a non-mapping here is a malformed override shape,
	// not a coercible value.
	return nil, fmt.Errorf("%w: value for config field %q must be a mapping or instance, got %T",
		ErrTypeMismatch, path, raw)
}

// mergeConfigField merges a nested override map into a configuration-typed
// field, materializing the declared class's defaults when the field has no
// current value.
func (s *Schema) mergeConfigField(d *Descriptor, current *Instance, m map[string]any, strict bool, path string) (*Instance, error) {
	arm := d.configArm()
	if current == nil {
		base, err := s.defaults(arm.Class, path)
		if err != nil {
			return nil, err
		}
		current = base
	}
	return s.mergeInstance(current, m, strict, path)
}
