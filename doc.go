// Package confbase resolves typed, hierarchical configuration schemas into
// fully validated instances.
//
// A schema is declared as a set of categories (root configuration classes)
// and subclasses. Each subclass layers its own field declarations over its
// ancestors'; the nearest declaration wins. A concrete subclass is selected
// at resolution time by its discriminator: the lower-cased class name, carried
// in override maps under the reserved "_config_name" key.
//
// Features:
//   - Explicit class hierarchies with layered field defaults
//   - Discriminator-aware merging of flat (dotted) or nested override maps
//   - Value coercion from raw strings, numbers, lists, and maps
//   - Override sources: plain maps, command-line arguments, TOML/JSON/YAML files
//   - Auto-wiring of fields to the latest constructed instance of a category
//   - Struct decoding of resolved instances via mapstructure
//   - Builder pattern for layering sources in one call
//
// Quick Start:
//
//	s := confbase.New()
//	model := s.Category("model")
//	model.Field("version", confbase.String, "0.1.0")
//
//	dit := model.Subclass("dit")
//	dit.Field("layers", confbase.Int, 16)
//
//	unet := model.Subclass("unet")
//	unet.Field("conv", confbase.String, "disco")
//
//	root := s.Category("experiment")
//	root.Field("model", confbase.Ref(model), model)
//	root.Field("batch_size", confbase.Int, 32)
//
//	cfg, err := s.FromFlat(root, map[string]any{
//	    "model._config_name": "unet",
//	    "model.conv":         "strided",
//	    "batch_size":         "64",
//	}, true)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	conv, _ := cfg.String("model.conv")
//
// Switching a configuration field to a different subclass discards the old
// subclass's defaults and starts from the new one's; keeping the same subclass
// preserves every default the override map does not mention.
//
// Thread Safety:
// Schema declaration and the instance log are guarded by mutexes. Resolved
// instances are immutable and safe to share across goroutines.
package confbase
