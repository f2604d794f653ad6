// Command pokerengine runs the dealer server of spec.md §6: it binds a TCP
// listener, waits for the configured seat count to connect, plays a single
// hand or a --sim match, and writes the persisted artifacts external
// monitors consume (a per-hand structured log and a RUNNING/DONE status
// file), grounded on cmd/server/main.go's kong+zerolog CLI shape.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alecthomas/kong"

	"github.com/lox/pokerforbots/internal/arbiter"
	"github.com/lox/pokerforbots/internal/config"
	"github.com/lox/pokerforbots/internal/engine"
	"github.com/lox/pokerforbots/internal/fileutil"
	"github.com/lox/pokerforbots/internal/logctx"
	"github.com/lox/pokerforbots/internal/match"
)

// CLI is spec.md §6's flag table, plus the additive --config file
// documented in SPEC_FULL.md §6. Most fields that a config file may also
// supply are pointers left nil when the flag isn't given, so loadConfig can
// tell "not passed" apart from "passed with the spec's own default value"
// and honor the documented precedence (CLI flag > HCL file > built-in
// default). Sim, Debug and LogFile are plain values: they override the file
// only when set to true or to a non-empty path, so a file's sim, debug or
// log_file setting cannot be switched back off from the command line.
type CLI struct {
	Host                  *string  `kong:"help='Bind address (default 0.0.0.0)'"`
	Port                  *int     `kong:"help='Bind port (default 5000)'"`
	Players               *int     `kong:"help='Required seats before the match begins (default 2)'"`
	Timeout               *int     `kong:"help='Per-turn deadline in seconds (default 30)'"`
	Blind                 *int     `kong:"help='Big-blind amount (default 10)'"`
	BlindMultiplier       *float64 `kong:"name='blind-multiplier',help='Per-interval blind multiplier (default 1.0)'"`
	BlindIncreaseInterval *int     `kong:"name='blind-increase-interval',help='Hands between blind increases; 0 = never (default 0)'"`
	StartingStack         *int     `kong:"name='starting-stack',help='Starting chip count per seat (default 1000)'"`
	Sim                   bool     `kong:"help='Run a multi-hand match instead of a single hand'"`
	SimRounds             *int     `kong:"name='sim-rounds',help='Hand cap when --sim is set (default 6)'"`
	OutputDir             *string  `kong:"name='output-dir',help='Directory for game_log_<n>.json and the status file (default .)'"`
	Debug                 bool     `kong:"help='Enable verbose logging'"`
	LogFile               string   `kong:"name='log-file',help='Log destination path; empty means stdout'"`
	Config                string   `kong:"help='Optional HCL file supplying match-level defaults'"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("pokerengine"),
		kong.Description("Dealer server for networked No-Limit Hold'em matches"),
		kong.UsageOnError(),
	)

	cfg, err := loadConfig(cli)
	kctx.FatalIfErrorf(err)

	logFile, err := logctx.Open(cfg.LogFile)
	kctx.FatalIfErrorf(err)
	if logFile != os.Stdout {
		defer logFile.Close()
	}
	logger := logctx.New(logFile, cfg.Debug)

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	statusName := "game_result.log"
	if cfg.Sim {
		statusName = "sim_result.log"
	}
	statusPath := filepath.Join(cfg.OutputDir, statusName)
	if err := writeStatus(statusPath, "RUNNING"); err != nil {
		logger.Fatal().Err(err).Msg("failed to write status file")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	handLimit := 1
	if cfg.Sim {
		handLimit = cfg.SimRounds
	}

	srv := arbiter.New(arbiter.Config{
		Host:          cfg.Host,
		Port:          cfg.Port,
		Players:       cfg.Players,
		Timeout:       cfg.Timeout(),
		StartingStack: cfg.StartingStack,
		Match: match.Config{
			BaseBigBlind:       cfg.Blind,
			BlindMultiplier:    cfg.BlindMultiplier,
			BlindIntervalHands: cfg.BlindIncreaseInterval,
			HandLimit:          handLimit,
		},
		RNG:    rand.New(rand.NewSource(time.Now().UnixNano())),
		Logger: logger,
		OnHandComplete: func(h *engine.HandLog) {
			if err := writeHandLog(cfg.OutputDir, h); err != nil {
				logger.Error().Err(err).Int("hand_index", h.HandIndex).Msg("failed to write hand log")
			}
		},
	})

	logger.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Int("players", cfg.Players).
		Bool("sim", cfg.Sim).
		Msg("pokerengine starting")

	_, reason, err := srv.Run(ctx)

	if statusErr := writeStatus(statusPath, "DONE"); statusErr != nil {
		logger.Error().Err(statusErr).Msg("failed to write final status file")
	}

	if err != nil && !errors.Is(err, context.Canceled) {
		var fatal *engine.FatalError
		if errors.As(err, &fatal) {
			logger.Fatal().Err(fatal).Msg("engine invariant violation, terminating match")
		}
		logger.Fatal().Err(err).Msg("match ended with error")
	}

	logger.Info().Str("reason", string(reason)).Msg("match complete")
}

// loadConfig implements SPEC_FULL.md §6's precedence: CLI flag > HCL file >
// built-in default. config.Load already resolves "HCL file > built-in
// default"; here a CLI flag only overrides that result when the user
// actually passed it (cli's field is a non-nil pointer), so an unset flag
// never clobbers a value the config file supplied.
func loadConfig(cli CLI) (config.Match, error) {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return config.Match{}, err
	}

	if cli.Host != nil {
		cfg.Host = *cli.Host
	}
	if cli.Port != nil {
		cfg.Port = *cli.Port
	}
	if cli.Players != nil {
		cfg.Players = *cli.Players
	}
	if cli.Timeout != nil {
		cfg.TimeoutSeconds = *cli.Timeout
	}
	if cli.Blind != nil {
		cfg.Blind = *cli.Blind
	}
	if cli.BlindMultiplier != nil {
		cfg.BlindMultiplier = *cli.BlindMultiplier
	}
	if cli.BlindIncreaseInterval != nil {
		cfg.BlindIncreaseInterval = *cli.BlindIncreaseInterval
	}
	if cli.StartingStack != nil {
		cfg.StartingStack = *cli.StartingStack
	}
	if cli.Sim {
		cfg.Sim = true
	}
	if cli.SimRounds != nil {
		cfg.SimRounds = *cli.SimRounds
	}
	if cli.OutputDir != nil {
		cfg.OutputDir = *cli.OutputDir
	}
	if cli.Debug {
		cfg.Debug = true
	}
	if cli.LogFile != "" {
		cfg.LogFile = cli.LogFile
	}

	return cfg, nil
}

func writeStatus(path, token string) error {
	return fileutil.WriteFileAtomic(path, []byte(token), 0o644)
}

func writeHandLog(dir string, h *engine.HandLog) error {
	data, err := json.MarshalIndent(h, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal hand log: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("game_log_%d.json", h.HandIndex))
	return fileutil.WriteFileAtomic(path, data, 0o644)
}
