package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/gwillem/autonrec/pkg/recorder"
	"github.com/gwillem/autonrec/pkg/robot"
	"github.com/gwillem/autonrec/pkg/sim"
	"github.com/gwillem/autonrec/pkg/teleop"
)

type DriveCommand struct {
	RuntimeOptions
}

func (c *DriveCommand) Execute(args []string) error {
	cfg, err := loadConfig(false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "No configuration found (%v). Run 'autonrec setup' first.\n", err)
		os.Exit(1)
	}

	// Check ports are configured
	if cfg.Leader.Port == "" || cfg.Follower.Port == "" {
		fmt.Fprintln(os.Stderr, "Arms not configured. Run 'autonrec setup' first.")
		os.Exit(1)
	}

	// Check calibration
	if !cfg.Leader.IsCalibrated() || !cfg.Follower.IsCalibrated() {
		fmt.Fprintln(os.Stderr, "Arms not calibrated. Run 'autonrec setup' first.")
		os.Exit(1)
	}

	fmt.Printf("Loaded configuration from %s\n", opts.Config)

	logger, logFile, err := openLogger(c.LogFile)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

	leader, err := robot.NewArm(cfg.Leader.Port, cfg.Leader.Calibration)
	if err != nil {
		return fmt.Errorf("open leader arm: %w", err)
	}
	defer leader.Close()

	follower, err := robot.NewArm(cfg.Follower.Port, cfg.Follower.Calibration)
	if err != nil {
		return fmt.Errorf("open follower arm: %w", err)
	}
	defer follower.Close()

	ctx := context.Background()
	if err := leader.Disable(ctx); err != nil {
		log.Printf("Warning: failed to disable leader: %v", err)
	}
	if err := follower.Enable(ctx); err != nil {
		log.Printf("Warning: failed to enable follower: %v", err)
	}
	defer follower.Disable(ctx)

	st, err := openStore(cfg, c.Backend)
	if err != nil {
		return err
	}
	defer st.Close()

	pub, err := openTelemetry(cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	var observer recorder.Observer
	if pub != nil {
		defer pub.Close()
		observer = pub
	}

	params := recorderParams(cfg.Recorder)
	panel := sim.NewPanel(params.PotHigh)

	ctrl, err := teleop.NewController(teleop.Config{
		Params:    params,
		Input:     panel,
		Display:   panel,
		Actuator:  follower,
		Source:    leader,
		Store:     st,
		Observer:  observer,
		Hz:        c.Hz,
		Hardcoded: hardcodedSkills(follower, params.PollHz),
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	return runConsole(newConsoleModel("autonrec drive", ctrl, panel, nil, nil))
}
