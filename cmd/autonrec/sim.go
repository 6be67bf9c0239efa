package main

import (
	"fmt"
	"log"

	"github.com/gwillem/autonrec/pkg/recorder"
	"github.com/gwillem/autonrec/pkg/sim"
	"github.com/gwillem/autonrec/pkg/teleop"
)

type SimCommand struct {
	RuntimeOptions
}

func (c *SimCommand) Execute(args []string) error {
	cfg, err := loadConfig(true)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, logFile, err := openLogger(c.LogFile)
	if err != nil {
		return err
	}
	if logFile != nil {
		defer logFile.Close()
	}

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
	stick := &sim.Stick{}
	plant := &sim.Drivetrain{}

	ctrl, err := teleop.NewController(teleop.Config{
		Params:    params,
		Input:     panel,
		Display:   panel,
		Actuator:  plant,
		Source:    stick,
		Store:     st,
		Observer:  observer,
		Hz:        c.Hz,
		Hardcoded: hardcodedSkills(plant, params.PollHz),
		Logger:    logger,
	})
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	return runConsole(newConsoleModel("autonrec sim", ctrl, panel, stick, plant))
}
