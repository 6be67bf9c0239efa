package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/gwillem/autonrec/pkg/recorder"
	"github.com/gwillem/autonrec/pkg/robot"
	"github.com/gwillem/autonrec/pkg/store"
	"github.com/gwillem/autonrec/pkg/telemetry"
)

// RuntimeOptions are shared by the commands that run the recorder.
type RuntimeOptions struct {
	Hz      int    `long:"hz" description:"Control loop frequency (default: poll_hz)"`
	LogFile string `long:"log" description:"Also write log lines to this file"`
	Backend string `long:"backend" choice:"dir" choice:"sqlite" choice:"memory" description:"Override the store backend"`
}

// loadConfig reads the configuration file. With optional set a missing
// file yields the defaults.
func loadConfig(optional bool) (*robot.Config, error) {
	cfg, err := robot.LoadConfigFrom(opts.Config)
	if errors.Is(err, fs.ErrNotExist) && optional {
		def := robot.DefaultConfig()
		return &def, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func recorderParams(rc robot.RecorderConfig) recorder.Params {
	return recorder.Params{
		AutonTime:  rc.AutonTime,
		SkillsTime: rc.SkillsTime,
		PollHz:     rc.PollHz,
		MaxSlots:   rc.MaxSlots,
		PotHigh:    rc.PotHigh,
	}
}

func openStore(cfg *robot.Config, override string) (store.Backend, error) {
	backend := cfg.Store.Backend
	if override != "" {
		backend = override
	}
	st, err := store.New(backend, cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s store at %s: %w", backend, cfg.Store.Path, err)
	}
	return st, nil
}

// openLogger returns a logger writing to path, or nil loggers without one.
func openLogger(path string) (*log.Logger, *os.File, error) {
	if path == "" {
		return nil, nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return log.New(f, "", log.LstdFlags), f, nil
}

// openTelemetry connects the MQTT publisher when a broker is configured.
func openTelemetry(cfg robot.TelemetryConfig, logger *log.Logger) (*telemetry.Publisher, error) {
	if cfg.Broker == "" {
		return nil, nil
	}
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return telemetry.New(telemetry.Config{
		Broker:   cfg.Broker,
		Topic:    cfg.Topic,
		ClientID: cfg.ClientID,
		Logger:   logger,
	})
}

// skillsStep is one leg of the built-in skills routine.
type skillsStep struct {
	cmd robot.Snapshot
	dur time.Duration
}

var builtinSkills = []skillsStep{
	{robot.Snapshot{}.With(robot.Speed, 100), 1500 * time.Millisecond},
	{robot.Snapshot{}.With(robot.Turn, 80), 600 * time.Millisecond},
	{robot.Snapshot{}.With(robot.Shooter, 127).With(robot.Intake, 127), 3 * time.Second},
	{robot.Snapshot{}.With(robot.Speed, -100), 1500 * time.Millisecond},
}

// hardcodedSkills returns the built-in skills routine, re-sending each
// command at hz.
func hardcodedSkills(act recorder.Actuator, hz int) func(ctx context.Context) error {
	tick := time.Second / time.Duration(hz)
	return func(ctx context.Context) error {
		var clock recorder.RealClock
		for _, step := range builtinSkills {
			for elapsed := time.Duration(0); elapsed < step.dur; elapsed += tick {
				if err := act.Apply(ctx, step.cmd); err != nil {
					return err
				}
				if err := clock.Sleep(ctx, tick); err != nil {
					return err
				}
			}
		}
		return nil
	}
}
