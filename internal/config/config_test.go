package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/rigidsim/internal/contact"
	"github.com/san-kum/rigidsim/internal/scenario"
	"github.com/san-kum/rigidsim/internal/world"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Scenario != DefaultScenario {
		t.Errorf("expected scenario %s, got %s", DefaultScenario, cfg.Scenario)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	wc, err := cfg.WorldConfig()
	if err != nil {
		t.Fatal(err)
	}
	if wc != world.DefaultConfig() {
		t.Errorf("world config round trip differs:\n got %+v\nwant %+v", wc, world.DefaultConfig())
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	data := []byte(`scenario: stack
dt: 0.01
params:
  count: 8
world:
  gravity: [0, -1.62, 0]
  warm_starting: false
  reduction: deepest
  workers: 2
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scenario != "stack" || cfg.Dt != 0.01 || cfg.Params.Count != 8 {
		t.Errorf("loaded %+v", cfg)
	}
	if cfg.Duration != DefaultDuration || cfg.Params.Size != scenario.DefaultParams().Size {
		t.Error("omitted keys lost their defaults")
	}
	wc, err := cfg.WorldConfig()
	if err != nil {
		t.Fatal(err)
	}
	if wc.Gravity.Y() != -1.62 || wc.WarmStarting || wc.Reduction != contact.ReduceDeepest || wc.Workers != 2 {
		t.Errorf("world config %+v", wc)
	}
	if !wc.SleepingEnabled {
		t.Error("sleeping default lost")
	}
	if wc.ContactMargin != world.DefaultConfig().ContactMargin || wc.ContactMargin <= 0 {
		t.Errorf("contact margin default lost: %v", wc.ContactMargin)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg, err := GetPreset("chain", "long")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Seed = 42
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *back != *cfg {
		t.Errorf("round trip differs:\n got %+v\nwant %+v", back, cfg)
	}
	if back.ScenarioParams().Seed != 42 {
		t.Error("seed not carried into scene params")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative duration", func(c *Config) { c.Duration = -1 }},
		{"no scenario", func(c *Config) { c.Scenario = "" }},
		{"bad reduction", func(c *Config) { c.World.Reduction = "random" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("error = %v, want ErrInvalid", err)
			}
		})
	}

	cfg := DefaultConfig()
	cfg.World.Workers = 0
	if err := cfg.Validate(); !errors.Is(err, world.ErrInvalidConfig) {
		t.Errorf("error = %v, want world.ErrInvalidConfig", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg, err := GetPreset("drop-box", "bouncy")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Params.Restitution != 0.6 || cfg.Scenario != "drop-box" {
		t.Errorf("preset = %+v", cfg)
	}
	cfg.Params.Restitution = 0
	again, _ := GetPreset("drop-box", "bouncy")
	if again.Params.Restitution != 0.6 {
		t.Error("GetPreset handed out the shared preset")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if _, err := GetPreset("stack", "nonexistent"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("unknown preset error = %v", err)
	}
	if _, err := GetPreset("nonexistent", "tall"); !errors.Is(err, ErrUnknownPreset) {
		t.Errorf("unknown scenario error = %v", err)
	}
}

func TestPresetsValid(t *testing.T) {
	known := make(map[string]bool)
	for _, name := range scenario.NewRegistry().List() {
		known[name] = true
	}
	for sc := range Presets {
		if !known[sc] {
			t.Errorf("presets for unregistered scenario %s", sc)
		}
		for _, name := range ListPresets(sc) {
			cfg, err := GetPreset(sc, name)
			if err != nil {
				t.Fatal(err)
			}
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", sc, name, err)
			}
		}
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for unknown scenario")
	}
}

func TestBuild(t *testing.T) {
	reg := scenario.NewRegistry()
	cfg, err := GetPreset("stack", "short")
	if err != nil {
		t.Fatal(err)
	}
	sc, err := cfg.Build(reg)
	if err != nil {
		t.Fatal(err)
	}
	if sc.Name != "stack" || len(sc.Tracked) != 3 {
		t.Errorf("scene %s with %d tracked bodies", sc.Name, len(sc.Tracked))
	}
	if !sc.World.Config().WarmStarting {
		t.Error("world config not applied")
	}

	cfg.Scenario = "nonexistent"
	if _, err := cfg.Build(reg); !errors.Is(err, scenario.ErrUnknownScenario) {
		t.Errorf("error = %v, want ErrUnknownScenario", err)
	}

	cfg.Dt = 0
	if _, err := cfg.Build(reg); !errors.Is(err, ErrInvalid) {
		t.Errorf("error = %v, want ErrInvalid", err)
	}
}
