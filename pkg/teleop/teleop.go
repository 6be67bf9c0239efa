// Package teleop runs the operator-control loop: it drives the robot from
// the live command source and starts record and playback pipelines from the
// operator's buttons.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gwillem/autonrec/pkg/recorder"
	"github.com/gwillem/autonrec/pkg/robot"
)

// Mode is what the control loop is currently doing.
type Mode string

const (
	ModeIdle       Mode = "idle"
	ModeDrive      Mode = "drive"
	ModeRecord     Mode = "record"
	ModePlayback   Mode = "playback"
	ModeAuton      Mode = "auton"
	ModeSkillsWait Mode = "skills"
)

// State represents the current state of operator control.
type State struct {
	Command   robot.Snapshot
	Mode      Mode
	Recorder  recorder.State
	Timestamp time.Time
	Error     error
}

// Controller manages the operator-control loop.
type Controller struct {
	session *recorder.Session
	in      recorder.Input
	src     recorder.CommandSource
	act     recorder.Actuator
	hz      int

	record *recorder.Edge
	load   *recorder.Edge
	cancel *recorder.Edge

	mu      sync.RWMutex
	mode    Mode
	running bool
	stopped bool // actuators already stopped while waiting for the next skills section
	stateCh chan State
	logCh   chan string
	autonCh chan struct{}
}

// Config holds configuration for the controller.
type Config struct {
	Params   recorder.Params
	Input    recorder.Input
	Display  recorder.Display
	Actuator recorder.Actuator
	Source   recorder.CommandSource
	Store    recorder.Store
	Clock    recorder.Clock
	Observer recorder.Observer
	Hz       int

	// Hardcoded runs the built-in skills routine.
	Hardcoded func(ctx context.Context) error

	// Logger also receives the controller's log lines when set.
	Logger *log.Logger
}

// NewController creates a controller and the recorder session it drives.
func NewController(cfg Config) (*Controller, error) {
	if cfg.Hz <= 0 {
		cfg.Hz = cfg.Params.PollHz
	}
	if cfg.Hz <= 0 {
		cfg.Hz = 50
	}

	c := &Controller{
		in:      cfg.Input,
		src:     cfg.Source,
		hz:      cfg.Hz,
		mode:    ModeIdle,
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 64),
		autonCh: make(chan struct{}, 1),
	}
	c.act = &tap{Actuator: cfg.Actuator, c: c}

	var out io.Writer = logWriter{c}
	if cfg.Logger != nil {
		out = io.MultiWriter(out, cfg.Logger.Writer())
	}

	session, err := recorder.New(recorder.Config{
		Params:    cfg.Params,
		Input:     cfg.Input,
		Display:   cfg.Display,
		Actuator:  c.act,
		Source:    cfg.Source,
		Store:     cfg.Store,
		Clock:     cfg.Clock,
		Logger:    log.New(out, "", 0),
		Observer:  cfg.Observer,
		Hardcoded: cfg.Hardcoded,
	})
	if err != nil {
		return nil, fmt.Errorf("create recorder session: %w", err)
	}
	c.session = session

	c.record = recorder.NewEdge(cfg.Input, recorder.Record)
	c.load = recorder.NewEdge(cfg.Input, recorder.Load)
	c.cancel = recorder.NewEdge(cfg.Input, recorder.Cancel)
	return c, nil
}

// Session returns the recorder session driven by the controller.
func (c *Controller) Session() *recorder.Session {
	return c.session
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Mode returns what the loop is doing right now.
func (c *Controller) Mode() Mode {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.mode
}

// RunAutonomous asks the loop to play the loaded routine as the autonomous
// period, loading one first if needed. Requests made while one is pending
// are dropped.
func (c *Controller) RunAutonomous() {
	select {
	case c.autonCh <- struct{}{}:
	default:
	}
}

func (c *Controller) setMode(m Mode) {
	c.mu.Lock()
	c.mode = m
	c.mu.Unlock()
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// Start begins the operator-control loop and blocks until ctx is done.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return errors.New("already running")
	}
	c.running = true
	c.mu.Unlock()

	c.log("Operator control started at %d Hz", c.hz)

	if c.session.State().Loaded == c.session.Params().Hardcoded() {
		c.log("Hardcoded skills loaded, running them first")
		c.run(ctx, ModePlayback, c.session.Playback)
	}

	ticker := time.NewTicker(time.Second / time.Duration(c.hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown(ctx)
			return ctx.Err()
		case <-c.autonCh:
			c.run(ctx, ModeAuton, c.session.Playback)
		case <-ticker.C:
			c.step(ctx)
		}
	}
}

func (c *Controller) step(ctx context.Context) {
	st := c.session.State()
	online := c.in.Online()
	record, load, cancel := c.record.Pressed(), c.load.Pressed(), c.cancel.Pressed()

	if !online && st.SkillsSection != 0 {
		c.waitSkills(ctx, st, record, cancel)
		return
	}
	c.stopped = false

	c.session.Exclusive(func(d recorder.Display) {
		d.SetText(1, "autonrec")
		d.SetText(2, statusLine(c.session.Params(), st))
	})

	c.setMode(ModeDrive)
	cmd, err := c.src.Command(ctx)
	if err != nil {
		c.log("Read error: %v", err)
		c.sendState(State{Mode: ModeDrive, Recorder: st, Error: err, Timestamp: time.Now()})
		return
	}
	if err := c.act.Apply(ctx, cmd); err != nil {
		c.log("Write error: %v", err)
	}

	if online {
		return
	}
	switch {
	case record:
		c.run(ctx, ModeRecord, c.session.RecordAndSave)
	case load:
		c.run(ctx, ModePlayback, c.session.LoadAndPlayback)
	}
}

// waitSkills holds the robot still between skills sections until the
// operator records the next one or abandons the run.
func (c *Controller) waitSkills(ctx context.Context, st recorder.State, record, cancel bool) {
	c.setMode(ModeSkillsWait)
	if !c.stopped {
		if err := c.act.Stop(ctx); err != nil {
			c.log("Stop error: %v", err)
		}
		c.stopped = true
	}
	c.session.Exclusive(func(d recorder.Display) {
		d.SetText(1, "Press 7R")
		d.SetText(2, fmt.Sprintf("Last Skills: %d", st.SkillsSection))
	})

	switch {
	case record:
		c.stopped = false
		c.run(ctx, ModeRecord, c.session.RecordAndSave)
	case cancel:
		c.session.ResetSkills()
		c.log("Skills run abandoned after %d sections", st.SkillsSection)
	}
}

// run executes a pipeline. Failures are logged and control continues.
func (c *Controller) run(ctx context.Context, m Mode, pipeline func(context.Context) error) {
	c.setMode(m)
	c.log("Starting %s", m)
	err := pipeline(ctx)
	c.setMode(ModeDrive)

	// Buttons still held from the pipeline are not new presses.
	c.record.Rearm()
	c.load.Rearm()
	c.cancel.Rearm()

	switch {
	case err == nil:
		c.log("Finished %s", m)
	case errors.Is(err, context.Canceled):
	default:
		c.log("%s failed: %v", m, err)
		c.sendState(State{Mode: m, Recorder: c.session.State(), Error: err, Timestamp: time.Now()})
	}
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}

func (c *Controller) shutdown(ctx context.Context) {
	c.mu.Lock()
	c.running = false
	c.mode = ModeIdle
	c.mu.Unlock()

	if err := c.act.Stop(context.WithoutCancel(ctx)); err != nil {
		c.log("Warning: failed to stop actuators: %v", err)
	}
	c.log("Operator control stopped")
}

// statusLine describes the loaded routine for the idle display.
func statusLine(p recorder.Params, st recorder.State) string {
	switch p.Kind(st.Loaded) {
	case recorder.KindNone:
		return "Auton: NONE"
	case recorder.KindSkills:
		return "Prog. Skills"
	case recorder.KindHardcoded:
		return "Hardcoded Skills"
	case recorder.KindNumbered:
		if st.Name != "" {
			return st.Name
		}
		return fmt.Sprintf("Auton: %d", st.Loaded)
	}
	return "Auton: none loaded"
}

// tap reports every command sent to the actuators as a state update.
type tap struct {
	recorder.Actuator
	c *Controller
}

func (t *tap) Apply(ctx context.Context, s robot.Snapshot) error {
	err := t.Actuator.Apply(ctx, s)
	t.c.sendState(State{
		Command:   s,
		Mode:      t.c.Mode(),
		Recorder:  t.c.session.State(),
		Timestamp: time.Now(),
		Error:     err,
	})
	return err
}

func (t *tap) Stop(ctx context.Context) error {
	err := t.Actuator.Stop(ctx)
	t.c.sendState(State{Mode: t.c.Mode(), Recorder: t.c.session.State(), Timestamp: time.Now(), Error: err})
	return err
}

// logWriter feeds log.Logger output into the controller's log channel.
type logWriter struct {
	c *Controller
}

func (w logWriter) Write(p []byte) (int, error) {
	msg := string(p)
	if n := len(msg); n > 0 && msg[n-1] == '\n' {
		msg = msg[:n-1]
	}
	w.c.log("%s", msg)
	return len(p), nil
}
