package confbase

import (
	"fmt"
	"strings"
)

// FromArgs builds an instance of cls from command-line arguments merged over
// its defaults. Arguments follow the "--key.path value", "--key=value", and
// bare "--flag" (boolean) forms; keys may address any nesting depth,
// including discriminator selections like "--model._config_name dit".
func (s *Schema) FromArgs(cls *Class, args []string, strict bool) (*Instance, error) {
	overrides, err := ParseArgs(args)
	if err != nil {
		return nil, err
	}
	return s.FromNested(cls, overrides, strict)
}

// ParseArgs processes command-line arguments into a nested override map.
// Values are kept as strings; the coercer converts them against declared
// field types during merging.
func ParseArgs(args []string) (map[string]any, error) {
	result := make(map[string]any)
	i := 0
	for i < len(args) {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			// Skip non-flag arguments
			i++
			continue
		}

		argContent := strings.TrimPrefix(arg, "--")
		if argContent == "" {
			// Skip "--" used as a separator
			i++
			continue
		}

		var keyPath string
		var valueStr string

		if strings.Contains(argContent, "=") {
			parts := strings.SplitN(argContent, "=", 2)
			keyPath = parts[0]
			valueStr = parts[1]
			i++
		} else {
			keyPath = argContent
			// A flag followed by another flag (or nothing) is boolean
			if i+1 >= len(args) || strings.HasPrefix(args[i+1], "--") {
				valueStr = "true"
				i++
			} else {
				valueStr = args[i+1]
				i += 2
			}
		}

		if keyPath == "" {
			continue
		}

		for _, segment := range strings.Split(keyPath, ".") {
			if !isValidKeySegment(segment) {
				return nil, fmt.Errorf("invalid command-line key segment %q in path %q", segment, keyPath)
			}
		}

		setNestedValue(result, keyPath, valueStr)
	}

	return result, nil
}
