package main

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"

	"github.com/san-kum/rigidsim/internal/config"
	"github.com/san-kum/rigidsim/internal/sim"
)

func sceneCmd(t *testing.T, flags map[string]string) *cobra.Command {
	t.Helper()
	preset, configFile = "", ""
	cmd := &cobra.Command{}
	addSceneFlags(cmd)
	for k, v := range flags {
		if err := cmd.Flags().Set(k, v); err != nil {
			t.Fatal(err)
		}
	}
	return cmd
}

func TestResolveConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := resolveConfig(sceneCmd(t, nil), nil)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Scenario != config.DefaultScenario || cfg.Dt != config.DefaultDt {
			t.Errorf("got %s dt=%v", cfg.Scenario, cfg.Dt)
		}
	})

	t.Run("preset then flags", func(t *testing.T) {
		cmd := sceneCmd(t, map[string]string{"preset": "tall", "time": "2", "workers": "3"})
		cfg, err := resolveConfig(cmd, []string{"stack"})
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Params.Count != 10 || cfg.Duration != 2 || cfg.World.Workers != 3 {
			t.Errorf("count=%d duration=%v workers=%d", cfg.Params.Count, cfg.Duration, cfg.World.Workers)
		}
	})

	t.Run("unknown preset", func(t *testing.T) {
		_, err := resolveConfig(sceneCmd(t, map[string]string{"preset": "nope"}), []string{"stack"})
		if !errors.Is(err, config.ErrUnknownPreset) {
			t.Errorf("err = %v", err)
		}
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "run.yaml")
		if err := os.WriteFile(path, []byte("scenario: spheres\nduration: 3\n"), 0644); err != nil {
			t.Fatal(err)
		}
		cfg, err := resolveConfig(sceneCmd(t, map[string]string{"config": path, "seed": "7"}), nil)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Scenario != "spheres" || cfg.Duration != 3 || cfg.Seed != 7 {
			t.Errorf("got %s duration=%v seed=%d", cfg.Scenario, cfg.Duration, cfg.Seed)
		}
	})

	t.Run("invalid dt", func(t *testing.T) {
		if _, err := resolveConfig(sceneCmd(t, map[string]string{"dt": "0"}), nil); err == nil {
			t.Error("expected validation error")
		}
	})
}

func TestColumnSeries(t *testing.T) {
	states := []sim.State{
		{0, 1, 2, 3, 4, 5, 10, 11, 12, 13, 14, 15},
		{0, 6, 2, 3, 4, 5, 10, 16, 12, 13, 14, 15},
	}
	got := columnSeries(states, 1, columns["y"])
	if got[0] != 11 || got[1] != 16 {
		t.Errorf("series = %v", got)
	}
}
