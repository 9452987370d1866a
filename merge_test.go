package confbase

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// switchFixture declares a category with two subclasses sharing a field name
// under different defaults, the shape the discriminator-switch rules are
// specified against.
func switchFixture(t *testing.T) (*Schema, *Class, *Class, *Class, *Class) {
	t.Helper()
	s := New()

	widget := s.Category("widget")
	d0 := widget.Subclass("d0")
	d0.Field("x", Int, 1)
	d0.Field("y", Int, 2)

	d1 := widget.Subclass("d1")
	d1.Field("x", Int, 5)

	root := s.Category("root")
	root.Field("f", Ref(widget), d0)

	require.NoError(t, s.Err())
	return s, widget, d0, d1, root
}

// TestDiscriminatorSwitch tests that switching subclass discards the old
// subclass's defaults.
func TestDiscriminatorSwitch(t *testing.T) {
	t.Run("SwitchAloneYieldsNewDefaults", func(t *testing.T) {
		s, _, _, _, root := switchFixture(t)
		def, err := s.Defaults(root)
		require.NoError(t, err)

		inst, err := s.Merge(def, map[string]any{"f._config_name": "d1"}, true)
		require.NoError(t, err)

		name, _ := inst.String("f._config_name")
		assert.Equal(t, "d1", name)

		// x takes d1's own default, not d0's: the old subclass's values are
		// semantically tied to d0 and do not carry over.
		x, err := inst.Int64("f.x")
		require.NoError(t, err)
		assert.Equal(t, int64(5), x)

		// y was declared only on d0 and is gone entirely.
		_, ok := inst.Get("f.y")
		assert.False(t, ok)
	})

	t.Run("SwitchPlusUnknownSubfieldFails", func(t *testing.T) {
		s, _, _, _, root := switchFixture(t)
		def, err := s.Defaults(root)
		require.NoError(t, err)

		_, err = s.Merge(def, map[string]any{
			"f._config_name": "d1",
			"f.y":            9, // d1 has no y
		}, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownField)
		assert.Contains(t, err.Error(), "f.y")
	})

	t.Run("NoSwitchKeepsUntouchedDefaults", func(t *testing.T) {
		s, _, _, _, root := switchFixture(t)
		def, err := s.Defaults(root)
		require.NoError(t, err)

		inst, err := s.Merge(def, map[string]any{"f.y": 9}, true)
		require.NoError(t, err)

		x, _ := inst.Int64("f.x")
		y, _ := inst.Int64("f.y")
		assert.Equal(t, int64(1), x, "untouched field keeps its default")
		assert.Equal(t, int64(9), y)
	})

	t.Run("ReselectingCurrentClassKeepsValues", func(t *testing.T) {
		s, _, _, _, root := switchFixture(t)
		def, err := s.Defaults(root)
		require.NoError(t, err)

		tuned, err := s.Merge(def, map[string]any{"f.x": 7}, true)
		require.NoError(t, err)

		inst, err := s.Merge(tuned, map[string]any{"f._config_name": "d0", "f.y": 3}, true)
		require.NoError(t, err)

		x, _ := inst.Int64("f.x")
		y, _ := inst.Int64("f.y")
		assert.Equal(t, int64(7), x, "naming the current class again is not a switch")
		assert.Equal(t, int64(3), y)
	})

	t.Run("BareStringSelectsDiscriminator", func(t *testing.T) {
		s, _, _, _, root := switchFixture(t)
		def, err := s.Defaults(root)
		require.NoError(t, err)

		inst, err := s.Merge(def, map[string]any{"f": "d1"}, true)
		require.NoError(t, err)

		name, _ := inst.String("f._config_name")
		x, _ := inst.Int64("f.x")
		assert.Equal(t, "d1", name)
		assert.Equal(t, int64(5), x)
	})

	t.Run("UnknownDiscriminator", func(t *testing.T) {
		s, _, _, _, root := switchFixture(t)
		def, err := s.Defaults(root)
		require.NoError(t, err)

		_, err = s.Merge(def, map[string]any{"f._config_name": "d9"}, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrDiscriminatorNotFound)
		assert.Contains(t, err.Error(), "widget")
		assert.Contains(t, err.Error(), "d0")
		assert.Contains(t, err.Error(), "d1")
	})
}

// TestMergeScalars tests plain field replacement and immutability.
func TestMergeScalars(t *testing.T) {
	f := buildExperimentSchema(t)
	def, err := f.s.Defaults(f.experiment)
	require.NoError(t, err)

	inst, err := f.s.Merge(def, map[string]any{
		"batch_size": "64",
		"opt.lr":     "0.005",
	}, true)
	require.NoError(t, err)

	batch, _ := inst.Int64("batch_size")
	lr, _ := inst.Float64("opt.lr")
	assert.Equal(t, int64(64), batch)
	assert.Equal(t, 0.005, lr)

	// The default instance is untouched.
	batch, _ = def.Int64("batch_size")
	lr, _ = def.Float64("opt.lr")
	assert.Equal(t, int64(32), batch)
	assert.Equal(t, 0.001, lr)
}

// TestMergeNestedComposite tests recursion through two config levels with
// discriminator switches at both.
func TestMergeNestedComposite(t *testing.T) {
	f := buildExperimentSchema(t)
	def, err := f.s.Defaults(f.experiment)
	require.NoError(t, err)

	inst, err := f.s.Merge(def, map[string]any{
		"model._config_name":          "compositemodel",
		"model.submodel._config_name": "unet",
		"model.submodel.conv":         "strided",
		"opt._config_name":            "adamw",
	}, true)
	require.NoError(t, err)
	t.Logf("resolved:\n%s", spew.Sdump(inst.ToMap()))

	name, _ := inst.String("model._config_name")
	assert.Equal(t, "compositemodel", name)

	subName, _ := inst.String("model.submodel._config_name")
	conv, _ := inst.String("model.submodel.conv")
	assert.Equal(t, "unet", subName)
	assert.Equal(t, "strided", conv)

	heads, _ := inst.Int64("model.num_heads")
	assert.Equal(t, int64(4), heads)

	decay, _ := inst.Float64("opt.weight_decay")
	assert.Equal(t, 0.01, decay)

	// The inherited category field survives both switches.
	version, _ := inst.String("model.version")
	assert.Equal(t, "0.1.0", version)
}

// TestMergeNestedMapForm tests that nested override maps behave identically
// to their flattened form.
func TestMergeNestedMapForm(t *testing.T) {
	f := buildExperimentSchema(t)
	def, err := f.s.Defaults(f.experiment)
	require.NoError(t, err)

	flat, err := f.s.Merge(def, map[string]any{
		"model._config_name": "dit",
		"model.layers":       "8",
	}, true)
	require.NoError(t, err)

	nested, err := f.s.Merge(def, map[string]any{
		"model": map[string]any{
			"_config_name": "dit",
			"layers":       "8",
		},
	}, true)
	require.NoError(t, err)

	assert.Equal(t, flat.ToMap(), nested.ToMap())
}

// TestMergeErrors tests fatal override shapes.
func TestMergeErrors(t *testing.T) {
	f := buildExperimentSchema(t)
	def, err := f.s.Defaults(f.experiment)
	require.NoError(t, err)

	t.Run("UnknownTopLevelField", func(t *testing.T) {
		_, err := f.s.Merge(def, map[string]any{"bach_size": 64}, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownField)
		assert.Contains(t, err.Error(), "bach_size")
	})

	t.Run("UnknownFieldFatalEvenLenient", func(t *testing.T) {
		_, err := f.s.Merge(def, map[string]any{"bach_size": 64}, false)
		assert.ErrorIs(t, err, ErrUnknownField)
	})

	t.Run("PathOneLevelTooDeep", func(t *testing.T) {
		_, err := f.s.Merge(def, map[string]any{"batch_size.inner": 1}, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrTypeMismatch)
	})

	t.Run("UnknownNestedField", func(t *testing.T) {
		_, err := f.s.Merge(def, map[string]any{"opt.momentum": 0.9}, true)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUnknownField)
		assert.Contains(t, err.Error(), "opt.momentum")
	})
}

// TestMergeLenient tests best-effort storage under strict=false.
func TestMergeLenient(t *testing.T) {
	f := buildExperimentSchema(t)
	def, err := f.s.Defaults(f.experiment)
	require.NoError(t, err)

	inst, err := f.s.Merge(def, map[string]any{"batch_size": "lots"}, false)
	require.NoError(t, err)

	v, ok := inst.Get("batch_size")
	require.True(t, ok)
	assert.Equal(t, "lots", v)
}

// TestMergeIdempotence tests that an empty merge changes nothing.
func TestMergeIdempotence(t *testing.T) {
	f := buildExperimentSchema(t)
	def, err := f.s.Defaults(f.experiment)
	require.NoError(t, err)

	once, err := f.s.Merge(def, map[string]any{
		"model._config_name": "dit",
		"model.layers":       "[2, 4]",
		"batch_size":         64,
	}, true)
	require.NoError(t, err)

	twice, err := f.s.Merge(once, map[string]any{}, true)
	require.NoError(t, err)

	assert.Equal(t, once.ToMap(), twice.ToMap())
	assert.NotSame(t, once, twice)
}

// TestExportRoundTrip tests that exporting and re-merging reproduces an
// equal instance.
func TestExportRoundTrip(t *testing.T) {
	f := buildExperimentSchema(t)

	resolved, err := f.s.FromFlat(f.experiment, map[string]any{
		"model._config_name": "unet",
		"model.conv":         "strided",
		"opt._config_name":   "adamw",
		"batch_size":         "128",
	}, true)
	require.NoError(t, err)

	t.Run("FromNestedExport", func(t *testing.T) {
		again, err := f.s.FromNested(f.experiment, resolved.ToMap(), true)
		require.NoError(t, err)
		assert.Equal(t, resolved.ToMap(), again.ToMap())
	})

	t.Run("FromFlatExport", func(t *testing.T) {
		again, err := f.s.FromFlat(f.experiment, resolved.Flat(), true)
		require.NoError(t, err)
		assert.Equal(t, resolved.ToMap(), again.ToMap())
	})
}

// TestMergeIdempotenceProperty exercises idempotence across generated
// scalar overrides.
func TestMergeIdempotenceProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		s := New()
		job := s.Category("job")
		job.Field("name", String, "run")
		job.Field("retries", Int, 3)
		job.Field("ratio", Float, 0.5)
		job.Field("verbose", Bool, false)
		if s.Err() != nil {
			rt.Fatalf("declaration failed: %v", s.Err())
		}

		overrides := map[string]any{}
		if rapid.Bool().Draw(rt, "setName") {
			overrides["name"] = rapid.StringMatching(`[a-z]{1,8}`).Draw(rt, "name")
		}
		if rapid.Bool().Draw(rt, "setRetries") {
			overrides["retries"] = rapid.IntRange(0, 100).Draw(rt, "retries")
		}
		if rapid.Bool().Draw(rt, "setRatio") {
			overrides["ratio"] = rapid.Float64Range(0, 1).Draw(rt, "ratio")
		}
		if rapid.Bool().Draw(rt, "setVerbose") {
			overrides["verbose"] = rapid.Bool().Draw(rt, "verbose")
		}

		def, err := s.Defaults(job)
		if err != nil {
			rt.Fatalf("defaults failed: %v", err)
		}
		once, err := s.Merge(def, overrides, true)
		if err != nil {
			rt.Fatalf("merge failed: %v", err)
		}
		twice, err := s.Merge(once, map[string]any{}, true)
		if err != nil {
			rt.Fatalf("empty merge failed: %v", err)
		}
		if !assert.ObjectsAreEqual(once.ToMap(), twice.ToMap()) {
			rt.Fatalf("idempotence violated:\nonce: %v\ntwice: %v", once.ToMap(), twice.ToMap())
		}
	})
}
