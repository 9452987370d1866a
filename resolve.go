package confbase

import (
	"fmt"
)

// Defaults resolves the full, recursively nested default instance for cls:
// the ancestor chain is walked root to leaf with the nearest declaration
// winning, configuration-typed defaults resolve recursively, and
// auto-discovery placeholders consult the instance log. The resulting
// instance is registered in the instance log.
func (s *Schema) Defaults(cls *Class) (*Instance, error) {
	if err := s.checkDeclared(cls); err != nil {
		return nil, err
	}
	inst, err := s.defaults(cls, "")
	if err != nil {
		return nil, err
	}
	s.instances.Register(inst)
	return inst, nil
}

// New builds an instance of cls from its defaults plus constructor overrides
// (flat, nested, or mixed), validates required fields, and registers the
// result in the instance log.
func (s *Schema) New(cls *Class, overrides map[string]any) (*Instance, error) {
	return s.FromNested(cls, overrides, true)
}

// FromFlat builds an instance of cls from a flat dot-keyed override map.
func (s *Schema) FromFlat(cls *Class, flat map[string]any, strict bool) (*Instance, error) {
	return s.FromNested(cls, flat, strict)
}

// FromNested builds an instance of cls from a nested override map. Flat and
// nested forms are normalized to the same shape, so either (or a mixture)
// is accepted.
func (s *Schema) FromNested(cls *Class, overrides map[string]any, strict bool) (*Instance, error) {
	if err := s.checkDeclared(cls); err != nil {
		return nil, err
	}
	def, err := s.defaults(cls, "")
	if err != nil {
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

func (s *Schema) checkDeclared(cls *Class) error {
	if cls == nil {
		return fmt.Errorf("nil class")
	}
	if err := cls.Err(); err != nil {
		return err
	}
	return s.Err()
}

// defaults resolves the default tree for cls without touching the instance
// log's entries (nested resolution is not a direct construction).
func (s *Schema) defaults(cls *Class, path string) (*Instance, error) {
	cls.seal()

	values := make(map[string]any, len(cls.effective))
	for _, fd := range cls.effective {
		fieldPath := joinPath(path, fd.Name)

		if !fd.Type.IsConfig() {
			if fd.HasDefault {
				values[fd.Name] = fd.Default
			} else {
				values[fd.Name] = nil
			}
			continue
		}

		val, err := s.defaultForConfigField(fd, fieldPath)
		if err != nil {
			return nil, err
		}
		values[fd.Name] = val
	}

	return &Instance{class: cls, values: values}, nil
}

// defaultForConfigField materializes the default of a configuration-typed
// field: an explicit instance or class, an auto-discovery placeholder, an
// override map over the declared class, or the declared class's own defaults
// when nothing was given.
func (s *Schema) defaultForConfigField(fd FieldDecl, path string) (any, error) {
	arm := fd.Type.configArm()

	if !fd.HasDefault {
		if fd.Type.Nullable {
			return nil, nil
		}
		return s.defaults(arm.Class, path)
	}

	switch def := fd.Default.(type) {
	case nil:
		if fd.Type.Nullable {
			return nil, nil
		}
		return s.defaults(arm.Class, path)
	case *Instance:
		return def, nil
	case *Class:
		return s.defaults(def, path)
	case *AutoRef:
		return s.resolveAuto(def, path)
	case map[string]any:
		base, err := s.defaults(arm.Class, path)
		if err != nil {
			return nil, err
		}
		return s.mergeInstance(base, normalizeOverrides(def), true, path)
	}
	return nil, fmt.Errorf("%w: field %q has unusable config default %T",
		ErrTypeMismatch, path, fd.Default)
}

// validateRequired walks a resolved instance and fails on any field declared
// without a default that no override supplied.
func (s *Schema) validateRequired(inst *Instance, path string) error {
	for _, fd := range inst.class.effective {
		fieldPath := joinPath(path, fd.Name)
		val := inst.values[fd.Name]

		if sub, ok := val.(*Instance); ok {
			if err := s.validateRequired(sub, fieldPath); err != nil {
				return err
			}
			continue
		}
		if !fd.HasDefault && !fd.Type.Nullable && val == nil {
			return fmt.Errorf("%w: %q (type %s) on class %q",
				ErrMissingField, fieldPath, fd.Type, inst.class.name)
		}
	}
	return nil
}
