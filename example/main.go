package main

import (
	"fmt"
	"log"
	"os"

	"confbase"
)

// TrainingConfig mirrors the experiment category for struct decoding.
type TrainingConfig struct {
	BatchSize int     `cfg:"batch_size"`
	Epochs    int     `cfg:"epochs"`
	Model     struct {
		Version string `cfg:"version"`
	} `cfg:"model"`
	Opt struct {
		LR float64 `cfg:"lr"`
	} `cfg:"opt"`
}

func main() {
	s := confbase.New()

	// Model category with two concrete architectures.
	model := s.Category("model")
	model.Field("version", confbase.String, "0.1.0")

	dit := model.Subclass("dit")
	dit.Field("layers", confbase.Union(confbase.Int, confbase.Slice(confbase.Int)), 16)

	unet := model.Subclass("unet")
	unet.Field("conv", confbase.String, "disco")

	// Optimizer category.
	opt := s.Category("optimizer")
	opt.Field("lr", confbase.Float, 0.001)

	adamw := opt.Subclass("adamw")
	adamw.Field("weight_decay", confbase.Float, 0.01)

	// Experiment root tying everything together.
	experiment := s.Category("experiment")
	experiment.Field("model", confbase.Ref(model), dit)
	experiment.Field("opt", confbase.Ref(opt), adamw)
	experiment.Field("batch_size", confbase.Int, 32)
	experiment.Field("epochs", confbase.Int, 10)

	if err := s.Err(); err != nil {
		log.Fatalf("schema declaration failed: %v", err)
	}

	// Resolve from CLI args layered over defaults, e.g.:
	//   example --model._config_name unet --model.conv strided --opt.lr 0.01
	cfg, err := confbase.NewBuilder(s).
		ForClass(experiment).
		WithOverrides(map[string]any{"epochs": "100"}).
		WithArgs(os.Args[1:]).
		Strict().
		Build()
	if err != nil {
		log.Fatalf("resolution failed: %v", err)
	}

	name, _ := cfg.String("model._config_name")
	epochs, _ := cfg.Int64("epochs")
	lr, _ := cfg.Float64("opt.lr")
	fmt.Printf("model=%s epochs=%d lr=%g\n", name, epochs, lr)

	var tc TrainingConfig
	if err := cfg.Scan(&tc); err != nil {
		log.Fatalf("scan failed: %v", err)
	}
	fmt.Printf("decoded: %+v\n", tc)
}
