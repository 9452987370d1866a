package confbase

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Scan decodes the instance (or the subtree at the optional dotted basePath)
// into the target struct or map. The target must be a non-nil pointer. Field
// mapping uses the "cfg" struct tag; common conversions (durations,
// comma-separated slices) are applied.
func (in *Instance) Scan(target any, basePath ...string) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("scan target must be non-nil pointer, got %T", target)
	}

	var section any = in.ToMap()
	if len(basePath) > 0 && basePath[0] != "" {
		path := strings.TrimSuffix(basePath[0], ".")
		val, ok := in.Get(path)
		if !ok {
			val = map[string]any{}
		}
		if sub, isInst := val.(*Instance); isInst {
			val = sub.ToMap()
		}
		section = val
	}

	sectionMap, ok := section.(map[string]any)
	if !ok {
		return fmt.Errorf("path %q refers to non-map value (type %T)", strings.Join(basePath, ""), section)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "cfg",
		WeaklyTypedInput: true,
		ZeroFields:       true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			instanceToMapHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("decoder creation failed: %w", err)
	}

	if err := decoder.Decode(sectionMap); err != nil {
		return fmt.Errorf("decode failed for %q: %w", in.class.name, err)
	}
	return nil
}

// instanceToMapHookFunc lets nested instances decode into struct fields by
// exporting them first.
func instanceToMapHookFunc() mapstructure.DecodeHookFunc {
	return func(f reflect.Type, t reflect.Type, data any) (any, error) {
		if f == reflect.TypeOf(&Instance{}) {
			if inst, ok := data.(*Instance); ok {
				return inst.ToMap(), nil
			}
		}
		return data, nil
	}
}
