package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"robotarena-sim/internal/admin"
	"robotarena-sim/internal/config"
	"robotarena-sim/internal/logging"
	"robotarena-sim/internal/scenario"
	"robotarena-sim/internal/scene"
	"robotarena-sim/internal/sim"
)

var (
	simPrintOnly  bool
	simTUI        bool
	simConfigPath string
	simSchemaPath string
	simTick       time.Duration
	simLogFile    string
	simScene      string
	simScenario   string
	simSteps      int
	simAdminAddr  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run the arena simulator",
	Long:  "simulate loads a scene, ticks the arena in real time and streams robot telemetry, events and state.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(simConfigPath, simSchemaPath)
		if err != nil {
			return err
		}
		if err := applyOverrides(cfg, simTick); err != nil {
			return err
		}

		var log *slog.Logger
		if simTUI {
			log = logging.Discard()
		} else {
			log = logging.NewWithLevel(os.Stderr, cfg.LogLevel)
		}
		ctx, stop := signal.NotifyContext(logging.NewContext(context.Background(), log), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		writer, cleanup, err := newWriters(cfg, simPrintOnly, simTUI, simLogFile)
		if err != nil {
			return err
		}
		defer cleanup()

		opts := []sim.Option{sim.WithWriter(writer), sim.WithLogger(log)}
		scenarioName := simScenario
		if scenarioName == "" {
			scenarioName = cfg.Scenario
		}
		if scenarioName != "" {
			sc, err := loadScenario(scenarioName)
			if err != nil {
				return err
			}
			opts = append(opts, sim.WithScenario(sc))
		}
		simulator := sim.NewSimulator(cfg, nil, opts...)

		scenePath := simScene
		if scenePath == "" {
			scenePath = cfg.Scene
		}
		if scenePath != "" {
			sc, err := scene.LoadFile(scenePath, log)
			if err != nil {
				return err
			}
			if err := simulator.LoadScene(sc, true); err != nil {
				log.Warn("scene partially loaded", "path", scenePath, "err", err)
			}
		}
		if cw, ok := writer.(sim.ControlWriter); ok {
			cw.SetController(simulator)
		}

		if simSteps > 0 {
			return runSteps(cmd.OutOrStdout(), simulator, simSteps)
		}

		if simAdminAddr != "" {
			srv := admin.NewServer(simulator)
			go func() {
				if err := srv.Start(ctx, simAdminAddr); err != nil {
					log.Error("admin server failed", "err", err)
				}
			}()
			if aw, ok := writer.(sim.AdminStatusWriter); ok {
				aw.SetAdminStatus(true)
			}
		}

		simulator.Run(ctx)
		log.Info("arena simulation stopped", "reason", simulator.EndReason(), "ticks", simulator.Ticks(), "collisions", simulator.Collisions())
		return nil
	},
}

// applyOverrides layers the tick flag and the TICK_INTERVAL and RUN_LABEL
// environment variables over the loaded configuration.
func applyOverrides(cfg *config.SimulationConfig, tick time.Duration) error {
	if tick > 0 {
		cfg.TickMS = float64(tick) / float64(time.Millisecond)
	}
	if envTick := os.Getenv("TICK_INTERVAL"); envTick != "" {
		d, err := time.ParseDuration(envTick)
		if err != nil {
			return fmt.Errorf("invalid TICK_INTERVAL: %w", err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid TICK_INTERVAL: must be positive")
		}
		cfg.TickMS = float64(d) / float64(time.Millisecond)
	}
	if label := os.Getenv("RUN_LABEL"); label != "" {
		cfg.RunLabel = label
	}
	return nil
}

// loadScenario resolves name as a built-in arc first, then as a YAML file.
func loadScenario(name string) (*scenario.Scenario, error) {
	if sc, ok := scenario.BuiltIn()[name]; ok {
		return &sc, nil
	}
	if !strings.HasSuffix(name, ".yaml") && !strings.HasSuffix(name, ".yml") {
		return nil, fmt.Errorf("unknown scenario %q", name)
	}
	return scenario.Load(name)
}

// runSteps advances the simulator a fixed number of ticks without a clock
// and prints a summary.
func runSteps(out io.Writer, s *sim.Simulator, n int) error {
	s.Start()
	for i := 0; i < n; i++ {
		if !s.Step() {
			break
		}
	}
	s.Stop()
	snap := s.Snapshot()
	reason := string(snap.EndReason)
	if reason == "" {
		reason = "steps"
	}
	_, err := fmt.Fprintf(out, "run %s: %d ticks, elapsed %s, %d collisions, ended by %s\n",
		snap.RunID, snap.Tick, snap.Elapsed, snap.Collisions, reason)
	return err
}

func init() {
	simulateCmd.Flags().BoolVar(&simPrintOnly, "print-only", false, "Print telemetry to STDOUT instead of writing to DB")
	simulateCmd.Flags().BoolVar(&simTUI, "tui", false, "Show an interactive terminal UI")
	simulateCmd.Flags().StringVar(&simConfigPath, "config", "config/simulation.yaml", "Path to simulation configuration YAML")
	simulateCmd.Flags().StringVar(&simSchemaPath, "schema", "schemas/simulation.cue", "Path to CUE schema file")
	simulateCmd.Flags().DurationVar(&simTick, "tick", 0, "Override the time step (e.g. 16ms)")
	simulateCmd.Flags().StringVar(&simLogFile, "log-file", "", "Path to export agent/event/state logs (JSONL)")
	simulateCmd.Flags().StringVar(&simScene, "scene", "", "Scene file (text or YAML); overrides the config")
	simulateCmd.Flags().StringVar(&simScenario, "scenario", "", "Built-in scenario name or scenario YAML file")
	simulateCmd.Flags().IntVar(&simSteps, "steps", 0, "Run this many ticks headless and exit")
	simulateCmd.Flags().StringVar(&simAdminAddr, "admin-addr", ":8080", "Admin UI listen address, empty to disable")
}
