package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"vedad/internal/config"
	"vedad/internal/httpapi"
	"vedad/internal/platform"
	"vedad/internal/policy"
	"vedad/internal/sched"
	"vedad/internal/telemetry"
	"vedad/internal/tracker"
	"vedad/pkg/types"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	var (
		addr       string
		configPath string
		logLevel   string
		eventLog   string
	)
	root := &cobra.Command{
		Use:           "vedad",
		Short:         "On-device inference runtime supervisor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Config{}
			if configPath != "" {
				loaded, err := config.Load(configPath)
				if err != nil {
					return err
				}
				cfg = loaded
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if cfg.Addr == "" {
				cfg.Addr = ":7788"
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if eventLog != "" {
				cfg.EventLog = eventLog
			}
			return serve(cfg)
		},
	}
	root.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :7788")
	root.Flags().StringVar(&configPath, "config", "", "Path to a yaml/json/toml config file")
	root.Flags().StringVar(&logLevel, "log-level", "", "Log level: debug|info|warn|error")
	root.Flags().StringVar(&eventLog, "event-log", "", "Path for NDJSON telemetry event records")
	return root
}

func serve(cfg config.Config) error {
	log := newLogger(cfg.LogLevel)

	var recorder *telemetry.Recorder
	if cfg.EventLog != "" {
		f, err := os.OpenFile(cfg.EventLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		defer f.Close()
		recorder = telemetry.NewRecorder(f)
	}

	lat := tracker.NewLatencyTracker()
	mem := tracker.NewResourceMonitor()
	therm := tracker.NewThermalMonitor()
	// Host adapters; SDK wrappers swap in platform-native sources here.
	memSrc := platform.NewHostMemory()
	battSrc := platform.NoBattery{}
	thermSrc := platform.NoThermal{}
	batt := tracker.NewBatteryDrainTracker(battSrc.Fraction() != nil)

	var telem *telemetry.Telemetry
	pol := policy.New(policy.Config{
		Cooldown:   time.Duration(cfg.Policy.CooldownSeconds) * time.Second,
		Thresholds: thresholdsFrom(cfg.Policy),
		Logger:     log,
		OnTransition: func(from, to policy.Level) {
			if telem != nil {
				telem.QoSTransition(from.String(), to.String(), int(to))
			}
		},
	})
	telem = telemetry.New(telemetry.Config{
		Latency:    lat,
		Memory:     mem,
		Thermal:    therm,
		Battery:    batt,
		QoSLevelFn: func() string { return pol.CurrentLevel().String() },
		Recorder:   recorder,
	})

	pump := platform.NewPump(platform.PumpConfig{
		Thermal:      thermSrc,
		Battery:      battSrc,
		Memory:       memSrc,
		ThermalSink:  therm,
		BatterySink:  batt,
		MemorySink:   mem,
		Policy:       pol,
		BatteryEvery: time.Duration(cfg.Sampler.BatterySeconds) * time.Second,
		MemoryEvery:  time.Duration(cfg.Sampler.MemorySeconds) * time.Second,
		Logger:       log,
	})

	scheduler := sched.New(sched.Config{
		Latency:       lat,
		Memory:        mem,
		Thermal:       therm,
		Battery:       batt,
		Policy:        pol,
		Telemetry:     telem,
		Clock:         platform.SystemClock{},
		MemorySource:  memSrc,
		SignalsFn:     pump.Signals,
		WarmupSamples: cfg.WarmupSamples,
		Profiles:      profilesFrom(cfg.Policy),
		Logger:        log,
	})
	scheduler.RegisterWorkload(types.WorkloadText, types.PriorityNormal)
	scheduler.RegisterWorkload(types.WorkloadVision, types.PriorityLow)
	scheduler.RegisterWorkload(types.WorkloadSpeech, types.PriorityHigh)

	if budget := cfg.Budget.ToBudget(); budget != (types.ComputeBudget{}) || budget.Adaptive() {
		if err := scheduler.SetComputeBudget(budget); err != nil {
			return err
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go func() {
		_ = scheduler.Run(ctx)
	}()
	go pump.Run(ctx)

	httpapi.SetLogger(log)
	httpapi.SetCORSOptions(cfg.CORSEnabled, cfg.CORSOrigins)
	mux := httpapi.NewMux(&service{sched: scheduler, pol: pol, telem: telem})
	srv := &http.Server{Addr: cfg.Addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("vedad listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	scheduler.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown")
	}
	return nil
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
}

// thresholdsFrom overlays configured values on the shipped defaults.
func thresholdsFrom(pc config.PolicyConfig) policy.Thresholds {
	th := policy.DefaultThresholds()
	if pc.DegradeThermal > 0 {
		th.DegradeThermal = pc.DegradeThermal
	}
	if pc.PauseThermal > 0 {
		th.PauseThermal = pc.PauseThermal
	}
	if pc.LowBattery > 0 {
		th.LowBattery = pc.LowBattery
	}
	if pc.MinHeadroomMB > 0 {
		th.MinHeadroomMB = pc.MinHeadroomMB
	}
	if pc.PauseHeadroomMB > 0 {
		th.PauseHeadroomMB = pc.PauseHeadroomMB
	}
	return th
}

// profilesFrom overlays configured multiplier rows on the shipped table.
func profilesFrom(pc config.PolicyConfig) sched.ProfileTable {
	table := sched.DefaultProfiles()
	for name, row := range pc.Profiles {
		table[types.AdaptiveProfile(name)] = sched.Profile{
			LatencyFactor:  row.LatencyFactor,
			DrainFactor:    row.DrainFactor,
			ThermalCeiling: row.ThermalCeiling,
		}
	}
	return table
}
