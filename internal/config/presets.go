package config

import (
	"fmt"
	"sort"
)

func preset(scenario string, mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Scenario = scenario
	mutate(cfg)
	return cfg
}

var Presets = map[string]map[string]*Config{
	"drop-box": {
		"bouncy": preset("drop-box", func(c *Config) { c.Params.Restitution = 0.6 }),
		"dead":   preset("drop-box", func(c *Config) { c.Params.Restitution = 0 }),
		"high": preset("drop-box", func(c *Config) {
			c.Params.Height = 20
			c.Duration = 8
		}),
	},
	"stack": {
		"short": preset("stack", func(c *Config) { c.Params.Count = 3 }),
		"tall": preset("stack", func(c *Config) {
			c.Params.Count = 10
			c.World.VelocityIterations = 20
			c.Duration = 10
		}),
		"cold": preset("stack", func(c *Config) { c.World.WarmStarting = false }),
	},
	"pyramid": {
		"small": preset("pyramid", func(c *Config) { c.Params.Count = 4 }),
		"large": preset("pyramid", func(c *Config) {
			c.Params.Count = 10
			c.World.VelocityIterations = 20
			c.Duration = 10
		}),
	},
	"spheres": {
		"rain": preset("spheres", func(c *Config) {
			c.Params.Count = 40
			c.Params.Size = 0.3
			c.Duration = 10
		}),
		"bouncy": preset("spheres", func(c *Config) { c.Params.Restitution = 0.7 }),
	},
	"clusters": {
		"serial": preset("clusters", func(c *Config) { c.Params.Count = 16 }),
		"parallel": preset("clusters", func(c *Config) {
			c.Params.Count = 16
			c.World.Workers = 4
		}),
	},
	"chain": {
		"short": preset("chain", func(c *Config) { c.Params.Count = 5 }),
		"long": preset("chain", func(c *Config) {
			c.Params.Count = 20
			c.Params.Size = 0.2
			c.Params.Height = 12
			c.World.PositionIterations = 10
		}),
	},
	"mixed": {
		"pile": preset("mixed", func(c *Config) {
			c.Params.Count = 12
			c.Duration = 8
		}),
	},
}

// GetPreset returns a copy of the named preset for a scenario.
func GetPreset(scenario, name string) (*Config, error) {
	cfg, ok := Presets[scenario][name]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s (available: %v)", ErrUnknownPreset, scenario, name, ListPresets(scenario))
	}
	return cfg.Clone(), nil
}

// ListPresets returns the preset names of a scenario in order, or nil.
func ListPresets(scenario string) []string {
	presets, ok := Presets[scenario]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
