package confbase

import (
	"errors"
	"fmt"
)

// ValidatorFunc validates a fully resolved instance at the end of a build.
type ValidatorFunc func(inst *Instance) error

// Builder layers override sources over a class's defaults in one fluent
// call. Precedence, lowest to highest: defaults, file, explicit overrides,
// command-line arguments.
type Builder struct {
	schema     *Schema
	cls        *Class
	file       string
	overrides  map[string]any
	args       []string
	strict     bool
	validators []ValidatorFunc
	err        error
}

// NewBuilder creates a builder resolving classes declared on s.
func NewBuilder(s *Schema) *Builder {
	return &Builder{schema: s}
}

// ForClass sets the class to resolve.
func (b *Builder) ForClass(cls *Class) *Builder {
	b.cls = cls
	return b
}

// WithFile sets a TOML/JSON/YAML override file. A missing file is not fatal:
// Build skips the layer and reports ErrConfigNotFound alongside the instance.
func (b *Builder) WithFile(path string) *Builder {
	b.file = path
	return b
}

// WithOverrides sets an explicit override map (flat, nested, or mixed).
func (b *Builder) WithOverrides(overrides map[string]any) *Builder {
	b.overrides = overrides
	return b
}

// WithArgs sets command-line arguments, the highest-precedence source.
func (b *Builder) WithArgs(args []string) *Builder {
	b.args = args
	return b
}

// Strict makes coercion failures fatal and enforces required fields.
func (b *Builder) Strict() *Builder {
	b.strict = true
	return b
}

// WithValidator adds a validation function run against the resolved
// instance. Validators execute in the order they are added.
func (b *Builder) WithValidator(fn ValidatorFunc) *Builder {
	if fn != nil {
		b.validators = append(b.validators, fn)
	}
	return b
}

// Build resolves the instance with all configured sources applied.
func (b *Builder) Build() (*Instance, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.cls == nil {
		return nil, fmt.Errorf("no class selected: call ForClass before Build")
	}
	if err := b.schema.checkDeclared(b.cls); err != nil {
		return nil, err
	}

	inst, err := b.schema.defaults(b.cls, "")
	if err != nil {
		return nil, err
	}

	var notFound error
	if b.file != "" {
		fileOverrides, err := loadOverrideFile(b.file)
		if err != nil {
			if !errors.Is(err, ErrConfigNotFound) {
				return nil, err
			}
			notFound = err
		} else {
			inst, err = b.schema.mergeInstance(inst, normalizeOverrides(fileOverrides), b.strict, "")
			if err != nil {
				return nil, err
			}
		}
	}

	if len(b.overrides) > 0 {
		inst, err = b.schema.mergeInstance(inst, normalizeOverrides(b.overrides), b.strict, "")
		if err != nil {
			return nil, err
		}
	}

	if len(b.args) > 0 {
		cliOverrides, err := ParseArgs(b.args)
		if err != nil {
			return nil, err
		}
		inst, err = b.schema.mergeInstance(inst, normalizeOverrides(cliOverrides), b.strict, "")
		if err != nil {
			return nil, err
		}
	}

	if b.strict {
		if err := b.schema.validateRequired(inst, ""); err != nil {
			return nil, err
		}
	}

	for _, validator := range b.validators {
		if err := validator(inst); err != nil {
			return nil, fmt.Errorf("configuration validation failed: %w", err)
		}
	}

	b.schema.instances.Register(inst)

	// ErrConfigNotFound or nil
	return inst, notFound
}

// MustBuild is like Build but panics on error. A missing override file is
// not fatal; the build proceeds with the remaining sources.
func (b *Builder) MustBuild() *Instance {
	inst, err := b.Build()
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		panic(fmt.Sprintf("config build failed: %v", err))
	}
	return inst
}

// BuildAndScan builds the instance and decodes it into target.
func (b *Builder) BuildAndScan(target any) error {
	inst, err := b.Build()
	if err != nil && !errors.Is(err, ErrConfigNotFound) {
		return err
	}
	if scanErr := inst.Scan(target); scanErr != nil {
		return fmt.Errorf("failed to scan final config into target: %w", scanErr)
	}
	// ErrConfigNotFound or nil
	return err
}
