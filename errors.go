package confbase

import "errors"

// Sentinel errors returned (wrapped) by schema declaration and resolution.
// Callers should test with errors.Is; the wrapped message carries the full
// dotted field path and the offending value where applicable.
var (
	// ErrNamingConflict indicates two classes registered the same
	// discriminator within one category namespace.
	ErrNamingConflict = errors.New("naming conflict")

	// ErrDiscriminatorNotFound indicates an override named a discriminator
	// that does not exist in the field's category namespace.
	ErrDiscriminatorNotFound = errors.New("unknown config name")

	// ErrUnknownField indicates an override path named a field absent from
	// the resolved class. This is always fatal, independent of strict mode.
	ErrUnknownField = errors.New("unknown field")

	// ErrTypeMismatch indicates a raw value could not be coerced to the
	// declared field type under strict mode.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrAmbiguousUnion indicates a union's declared arms do not share a
	// resolvable category, or a value matched no arm.
	ErrAmbiguousUnion = errors.New("ambiguous union")

	// ErrMissingDependency indicates a required auto-discovery lookup found
	// no registered instance.
	ErrMissingDependency = errors.New("missing dependency")

	// ErrMissingField indicates a field declared without a default was left
	// unset under strict resolution.
	ErrMissingField = errors.New("missing required field")

	// ErrSealed indicates an attempt to declare fields on a class after it
	// has been resolved for the first time.
	ErrSealed = errors.New("class is sealed")

	// ErrConfigNotFound indicates the requested override file does not exist.
	ErrConfigNotFound = errors.New("config file not found")
)
