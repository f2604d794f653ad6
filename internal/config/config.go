// Package config loads the dealer's typed configuration from an optional
// HCL file merged over built-in defaults; cmd/pokerengine then applies CLI
// flags on top, CLI flags always winning (spec.md §6, ambient extension
// documented in SPEC_FULL.md §6).
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
)

// Match holds the match-level defaults an HCL file may override, mirroring
// spec.md §6's CLI flag table one field at a time.
type Match struct {
	Host                  string  `hcl:"host,optional"`
	Port                  int     `hcl:"port,optional"`
	Players               int     `hcl:"players,optional"`
	TimeoutSeconds        int     `hcl:"timeout_seconds,optional"`
	Blind                 int     `hcl:"blind,optional"`
	BlindMultiplier       float64 `hcl:"blind_multiplier,optional"`
	BlindIncreaseInterval int     `hcl:"blind_increase_interval,optional"`
	StartingStack         int     `hcl:"starting_stack,optional"`
	Sim                   bool    `hcl:"sim,optional"`
	SimRounds             int     `hcl:"sim_rounds,optional"`
	OutputDir             string  `hcl:"output_dir,optional"`
	Debug                 bool    `hcl:"debug,optional"`
	LogFile               string  `hcl:"log_file,optional"`
}

// File is the top-level shape of an optional `--config <path.hcl>` file.
type File struct {
	Match Match `hcl:"match,block"`
}

// Default returns spec.md §6's built-in defaults, used both as the base a
// loaded file is merged over and as the whole configuration when no file is
// given at all.
func Default() Match {
	return Match{
		Host:                  "0.0.0.0",
		Port:                  5000,
		Players:               2,
		TimeoutSeconds:        30,
		Blind:                 10,
		BlindMultiplier:       1.0,
		BlindIncreaseInterval: 0,
		StartingStack:         1000,
		Sim:                   false,
		SimRounds:             6,
		OutputDir:             ".",
		Debug:                 false,
		LogFile:               "",
	}
}

// Load reads an HCL config file, if one is given, and merges it over
// Default(). A missing path returns Default() unchanged, the same
// fallback LoadServerConfig gives the teacher's server when its config file
// is absent.
func Load(path string) (Match, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	parser := hclparse.NewParser()
	f, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return Match{}, fmt.Errorf("config: parse %s: %s", path, diags.Error())
	}

	var loaded File
	diags = gohcl.DecodeBody(f.Body, nil, &loaded)
	if diags.HasErrors() {
		return Match{}, fmt.Errorf("config: decode %s: %s", path, diags.Error())
	}

	return mergeOverDefault(cfg, loaded.Match), nil
}

// mergeOverDefault fills any zero-valued field of loaded with base's value,
// the same "apply defaults for missing values" step LoadServerConfig runs
// after decoding, since gohcl leaves attributes absent from the file at
// their Go zero value rather than a caller-supplied default.
func mergeOverDefault(base, loaded Match) Match {
	if loaded.Host == "" {
		loaded.Host = base.Host
	}
	if loaded.Port == 0 {
		loaded.Port = base.Port
	}
	if loaded.Players == 0 {
		loaded.Players = base.Players
	}
	if loaded.TimeoutSeconds == 0 {
		loaded.TimeoutSeconds = base.TimeoutSeconds
	}
	if loaded.Blind == 0 {
		loaded.Blind = base.Blind
	}
	if loaded.BlindMultiplier == 0 {
		loaded.BlindMultiplier = base.BlindMultiplier
	}
	if loaded.StartingStack == 0 {
		loaded.StartingStack = base.StartingStack
	}
	if loaded.SimRounds == 0 {
		loaded.SimRounds = base.SimRounds
	}
	if loaded.OutputDir == "" {
		loaded.OutputDir = base.OutputDir
	}
	return loaded
}

// Timeout is TimeoutSeconds as a time.Duration, the unit internal/arbiter
// actually consumes.
func (m Match) Timeout() time.Duration {
	return time.Duration(m.TimeoutSeconds) * time.Second
}

// Validate rejects configurations the match controller and arbiter could
// never run, mirroring internal/server/config.go's ServerConfig.Validate.
func (m Match) Validate() error {
	if m.Port < 1 || m.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", m.Port)
	}
	if m.Players < 2 {
		return fmt.Errorf("config: players must be at least 2, got %d", m.Players)
	}
	if m.TimeoutSeconds <= 0 {
		return fmt.Errorf("config: timeout must be positive, got %d", m.TimeoutSeconds)
	}
	if m.Blind <= 0 {
		return fmt.Errorf("config: blind must be positive, got %d", m.Blind)
	}
	if m.BlindMultiplier <= 0 {
		return fmt.Errorf("config: blind multiplier must be positive, got %f", m.BlindMultiplier)
	}
	if m.Sim && m.SimRounds < 1 {
		return fmt.Errorf("config: sim_rounds must be at least 1 when --sim is set, got %d", m.SimRounds)
	}
	return nil
}
