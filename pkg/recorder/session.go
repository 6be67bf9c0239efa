// Package recorder records operator commands into a fixed-length buffer,
// persists them to numbered slots or chained programming-skills sections,
// and plays them back at the original sample rate.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/gwillem/autonrec/pkg/robot"
)

var (
	// ErrNoRoutine is returned when a slot has nothing stored.
	ErrNoRoutine = errors.New("no routine saved")
	// ErrStore wraps failures of the persistent store.
	ErrStore = errors.New("store failure")
	// ErrInvalidSlot is returned for slot numbers outside the configured range.
	ErrInvalidSlot = errors.New("invalid slot")
)

// noSection marks a buffer that does not hold a clean skills section.
const noSection = -1

// statusPause is how long result messages stay on the display.
const statusPause = time.Second

// State is the session's externally visible state.
type State struct {
	Loaded        Slot   // slot in the buffer, None for blank, Unloaded before any load
	SkillsSection int    // next skills section to record
	Name          string // name of the loaded routine, if any
}

// Config wires a Session to its hardware.
type Config struct {
	Params   Params
	Input    Input
	Display  Display
	Actuator Actuator
	Source   CommandSource
	Store    Store

	Clock    Clock       // defaults to RealClock
	Logger   *log.Logger // defaults to log.Default()
	Observer Observer    // optional

	// Hardcoded runs the built-in skills routine. Nil makes that slot a no-op.
	Hardcoded func(ctx context.Context) error
}

// Session owns the sample buffer and recorder state. Its pipelines hold
// the device lock for their whole duration so nothing else writes the
// display or actuators meanwhile.
type Session struct {
	p        Params
	in       Input
	display  Display
	act      Actuator
	src      CommandSource
	store    Store
	clock    Clock
	log      *log.Logger
	observer Observer
	hardcode func(ctx context.Context) error

	mu      sync.Mutex // devices and buffer
	buf     *Buffer
	section int // skills section held by buf, or noSection

	stateMu sync.RWMutex
	state   State
}

// New creates an initialized session.
func New(cfg Config) (*Session, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("params: %w", err)
	}
	if cfg.Input == nil || cfg.Display == nil || cfg.Actuator == nil || cfg.Source == nil || cfg.Store == nil {
		return nil, errors.New("input, display, actuator, source and store are required")
	}
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}

	s := &Session{
		p:        cfg.Params,
		in:       cfg.Input,
		display:  cfg.Display,
		act:      cfg.Actuator,
		src:      cfg.Source,
		store:    cfg.Store,
		clock:    cfg.Clock,
		log:      cfg.Logger,
		observer: cfg.Observer,
		hardcode: cfg.Hardcoded,
		buf:      NewBuffer(cfg.Params.Samples()),
	}
	s.Initialize()
	return s, nil
}

// Initialize zeroes the buffer and forgets any loaded routine.
func (s *Session) Initialize() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Printf("Beginning initialization of autonomous recorder...")
	s.show("Init recorder...", "")
	s.buf.Reset()
	s.section = noSection
	s.update(func(st *State) {
		*st = State{Loaded: Unloaded}
	})
	s.show("Init-ed recorder!", "")
	s.log.Printf("Completed initialization of autonomous recorder.")
}

// Params returns the session's constants.
func (s *Session) Params() Params {
	return s.p
}

// State returns a copy of the current state. It never waits on a running pipeline.
func (s *Session) State() State {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()
	return s.state
}

// Samples returns a copy of the buffer. It waits for any running pipeline.
func (s *Session) Samples() []robot.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Snapshots()
}

// SetSamples replaces the buffer contents and marks it as a blank recording.
func (s *Session) SetSamples(samples []robot.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf.CopyFrom(samples)
	s.section = noSection
	s.update(func(st *State) {
		st.Loaded = None
		st.Name = ""
	})
}

// ResetSkills abandons a partially recorded skills run.
func (s *Session) ResetSkills() {
	s.update(func(st *State) {
		st.SkillsSection = 0
	})
	s.log.Printf("Programming skills recording reset.")
}

// Exclusive runs fn while holding the device lock.
func (s *Session) Exclusive(fn func(d Display)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.display)
}

// RecordAndSave records a routine and saves it.
func (s *Session) RecordAndSave(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.record(ctx); err != nil {
		return err
	}
	s.display.SetBacklight(true)
	_, err := s.save(ctx)
	return err
}

// LoadAndPlayback selects and loads a routine, then plays it.
func (s *Session) LoadAndPlayback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.display.SetBacklight(true)
	if _, err := s.load(ctx); err != nil {
		return err
	}
	return s.playback(ctx)
}

func (s *Session) update(fn func(st *State)) {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	fn(&s.state)
}

func (s *Session) show(line1, line2 string) {
	s.display.SetText(1, line1)
	s.display.SetText(2, line2)
}

func (s *Session) pause(ctx context.Context) {
	_ = s.clock.Sleep(ctx, statusPause)
}

func (s *Session) apply(ctx context.Context, cmd robot.Snapshot) {
	if err := s.act.Apply(ctx, cmd); err != nil {
		s.log.Printf("Write error: %v", err)
	}
}

// stop halts the actuators even when ctx is already cancelled.
func (s *Session) stop(ctx context.Context) {
	if err := s.act.Stop(context.WithoutCancel(ctx)); err != nil {
		s.log.Printf("Stop error: %v", err)
	}
}

func (s *Session) emit(e Event) {
	if s.observer == nil {
		return
	}
	e.Time = time.Now()
	s.observer.Observe(e)
}

func (s *Session) slotLine(slot Slot) string {
	if s.p.Kind(slot) == KindSkills {
		return "Prog. Skills"
	}
	return fmt.Sprintf("Slot: %d", slot)
}
