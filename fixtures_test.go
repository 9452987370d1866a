package confbase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// experimentSchema declares the schema used across tests: a model category
// with three architectures, an optimizer category, a scheduler, and an
// experiment root tying them together.
type experimentSchema struct {
	s          *Schema
	model      *Class
	dit        *Class
	unet       *Class
	composite  *Class
	opt        *Class
	adamw      *Class
	sched      *Class
	experiment *Class
}

func buildExperimentSchema(t *testing.T) *experimentSchema {
	t.Helper()

	s := New()

	model := s.Category("model")
	model.Field("version", String, "0.1.0")

	dit := model.Subclass("dit")
	dit.Field("layers", Union(Int, Slice(Int)), 16)

	unet := model.Subclass("unet")
	unet.Field("conv", String, "disco")

	composite := model.Subclass("compositemodel")
	composite.Require("submodel", Ref(model))
	composite.Field("num_heads", Int, 4)

	opt := s.Category("optimizer")
	opt.Field("lr", Float, 0.001)

	adamw := opt.Subclass("adamw")
	adamw.Field("weight_decay", Float, 0.01)

	sched := s.Category("scheduler")
	sched.Field("patience", Float, 100)

	experiment := s.Category("experiment")
	experiment.Field("model", Ref(model), model)
	experiment.Field("opt", Ref(opt), opt)
	experiment.Field("scheduler", Ref(sched), sched)
	experiment.Field("batch_size", Int, 32)

	require.NoError(t, s.Err())

	return &experimentSchema{
		s:          s,
		model:      model,
		dit:        dit,
		unet:       unet,
		composite:  composite,
		opt:        opt,
		adamw:      adamw,
		sched:      sched,
		experiment: experiment,
	}
}
