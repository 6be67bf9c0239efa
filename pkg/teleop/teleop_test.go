package teleop

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/gwillem/autonrec/pkg/recorder"
	"github.com/gwillem/autonrec/pkg/robot"
	"github.com/gwillem/autonrec/pkg/sim"
	"github.com/gwillem/autonrec/pkg/store"
)

// instant is a clock that never waits.
type instant struct{}

func (instant) Sleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}

// 2-sample sections, a 2-section skills run and three numbered slots.
var params = recorder.Params{
	AutonTime:  1,
	SkillsTime: 2,
	PollHz:     2,
	MaxSlots:   3,
	PotHigh:    4095,
}

func potFor(slot recorder.Slot) int {
	n := params.Buckets()
	return (2*int(slot) + 1) * params.PotHigh / (2 * n)
}

type rig struct {
	panel *sim.Panel
	stick *sim.Stick
	drive *sim.Drivetrain
	store *store.Memory
	c     *Controller
}

func newRig(t *testing.T, hardcoded func(context.Context) error, opts ...func(*Config)) *rig {
	t.Helper()
	r := &rig{
		panel: sim.NewPanel(params.PotHigh),
		stick: &sim.Stick{},
		drive: &sim.Drivetrain{},
		store: store.NewMemory(),
	}
	cfg := Config{
		Params:    params,
		Input:     r.panel,
		Display:   r.panel,
		Actuator:  r.drive,
		Source:    r.stick,
		Store:     r.store,
		Clock:     instant{},
		Hardcoded: hardcoded,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	c, err := NewController(cfg)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	r.c = c
	return r
}

// press latches b and steps until the loop has seen it: the first poll
// reads the key released, the second reads it down.
func (r *rig) press(ctx context.Context, b recorder.Button) {
	r.panel.Press(b)
	r.c.step(ctx)
	r.c.step(ctx)
}

// holdPanel keeps buttons down until they are released.
type holdPanel struct {
	*sim.Panel
	held map[recorder.Button]bool
}

func (h *holdPanel) Digital(b recorder.Button) bool {
	if h.held[b] {
		return true
	}
	return h.Panel.Digital(b)
}

func (r *rig) put(t *testing.T, slot recorder.Slot, samples ...robot.Snapshot) {
	t.Helper()
	buf := recorder.NewBuffer(params.Samples())
	buf.CopyFrom(samples)
	var b bytes.Buffer
	if err := recorder.EncodeRoutine(&b, true, "", buf); err != nil {
		t.Fatal(err)
	}
	r.store.Put(params.SlotKey(slot), b.Bytes())
}

func TestStep_Drives(t *testing.T) {
	r := newRig(t, nil)
	r.stick.Set(robot.Speed, 80)
	r.c.step(context.Background())

	want := robot.Snapshot{}.With(robot.Speed, 80)
	if got := r.drive.Last(); got != want {
		t.Errorf("drive = %v, want %v", got, want)
	}
	st := <-r.c.States()
	if st.Command != want || st.Mode != ModeDrive {
		t.Errorf("state = %+v", st)
	}
	if l1, l2 := r.panel.Lines(); l1 != "autonrec" || l2 != "Auton: none loaded" {
		t.Errorf("idle display = %q, %q", l1, l2)
	}
}

func TestStep_OnlineIgnoresButtons(t *testing.T) {
	r := newRig(t, nil)
	r.panel.SetOnline(true)
	r.press(context.Background(), recorder.Record)

	if n := r.drive.Applies(); n != 2 {
		t.Errorf("applies = %d, want 2 drive commands", n)
	}
	if keys, _ := r.store.Keys(); len(keys) != 0 {
		t.Errorf("store = %v, want empty", keys)
	}
}

func TestStep_RecordSkillsRun(t *testing.T) {
	r := newRig(t, nil)
	ctx := context.Background()
	r.stick.Set(robot.Intake, 50)
	r.panel.SetPot(potFor(params.Skills()))

	r.panel.Press(recorder.Confirm)
	r.press(ctx, recorder.Record)

	if _, ok := r.store.Get("p0"); !ok {
		t.Fatal("first skills section not saved")
	}
	if st := r.c.Session().State(); st.SkillsSection != 1 {
		t.Fatalf("skills section = %d, want 1", st.SkillsSection)
	}

	// Between sections driving is disabled.
	r.c.step(ctx)
	if r.c.Mode() != ModeSkillsWait {
		t.Errorf("mode = %s, want %s", r.c.Mode(), ModeSkillsWait)
	}
	if l1, l2 := r.panel.Lines(); l1 != "Press 7R" || l2 != "Last Skills: 1" {
		t.Errorf("display = %q, %q", l1, l2)
	}
	if !r.drive.Last().IsZero() {
		t.Error("robot not stopped while waiting")
	}

	r.press(ctx, recorder.Record)
	if _, ok := r.store.Get("p1"); !ok {
		t.Fatal("second skills section not saved")
	}
	if st := r.c.Session().State(); st.SkillsSection != 0 {
		t.Errorf("skills section = %d, want wrap to 0", st.SkillsSection)
	}
}

func TestStep_CancelSkillsRun(t *testing.T) {
	r := newRig(t, nil)
	ctx := context.Background()
	r.panel.SetPot(potFor(params.Skills()))
	r.panel.Press(recorder.Confirm)
	r.press(ctx, recorder.Record)

	r.c.step(ctx)
	r.press(ctx, recorder.Cancel)
	if st := r.c.Session().State(); st.SkillsSection != 0 {
		t.Errorf("skills section = %d, want reset", st.SkillsSection)
	}
	if _, ok := r.store.Get("p1"); ok {
		t.Error("cancel should not record")
	}
}

func TestStep_LoadAndPlayback(t *testing.T) {
	r := newRig(t, nil)
	a := robot.Snapshot{}.With(robot.Speed, 30)
	b := robot.Snapshot{}.With(robot.Turn, -30)
	r.put(t, 1, a, b)
	r.panel.SetPot(potFor(1))

	r.panel.Press(recorder.Confirm)
	r.press(context.Background(), recorder.Load)

	// two drive commands, two played samples
	if n := r.drive.Applies(); n != 4 {
		t.Errorf("applies = %d, want 4", n)
	}
	if !r.drive.Last().IsZero() {
		t.Error("playback should end stopped")
	}
	if st := r.c.Session().State(); st.Loaded != 1 {
		t.Errorf("loaded = %d, want 1", st.Loaded)
	}
	if r.c.Mode() != ModeDrive {
		t.Errorf("mode = %s after playback", r.c.Mode())
	}
}

func TestStep_CancelHeldFromRecordingKeepsSkillsRun(t *testing.T) {
	hold := &holdPanel{held: make(map[recorder.Button]bool)}
	r := newRig(t, nil, func(cfg *Config) {
		hold.Panel = cfg.Input.(*sim.Panel)
		cfg.Input = hold
		cfg.Observer = recorder.ObserverFunc(func(e recorder.Event) {
			if e.Kind == recorder.EventRecordStart {
				hold.held[recorder.Cancel] = true
			}
		})
	})
	ctx := context.Background()
	r.panel.SetPot(potFor(params.Skills()))

	// Cancel goes down during the recording and stays down afterwards.
	r.panel.Press(recorder.Confirm)
	r.press(ctx, recorder.Record)
	if st := r.c.Session().State(); st.SkillsSection != 1 {
		t.Fatalf("skills section = %d, want 1", st.SkillsSection)
	}

	r.c.step(ctx)
	r.c.step(ctx)
	if st := r.c.Session().State(); st.SkillsSection != 1 {
		t.Errorf("held cancel reset the skills run, section = %d", st.SkillsSection)
	}

	hold.held[recorder.Cancel] = false
	r.press(ctx, recorder.Cancel)
	if st := r.c.Session().State(); st.SkillsSection != 0 {
		t.Errorf("skills section = %d after a fresh cancel, want 0", st.SkillsSection)
	}
}

func TestStart_RunsHardcoded(t *testing.T) {
	ran := 0
	r := newRig(t, func(context.Context) error {
		ran++
		return nil
	})
	if err := r.c.Session().LoadSlot(context.Background(), params.Hardcoded()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.c.Start(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Start = %v, want context.Canceled", err)
	}
	if ran != 1 {
		t.Errorf("hardcoded ran %d times, want 1", ran)
	}
	if r.c.Mode() != ModeIdle {
		t.Errorf("mode = %s after shutdown", r.c.Mode())
	}
}

func TestRunAutonomous_DoesNotBlock(t *testing.T) {
	r := newRig(t, nil)
	r.c.RunAutonomous()
	r.c.RunAutonomous()
	if len(r.c.autonCh) != 1 {
		t.Errorf("pending requests = %d, want 1", len(r.c.autonCh))
	}
}

func TestLogs(t *testing.T) {
	r := newRig(t, nil)
	select {
	case msg := <-r.c.Logs():
		if !strings.HasPrefix(msg, "[") || !strings.Contains(msg, "initialization") {
			t.Errorf("log = %q", msg)
		}
	default:
		t.Fatal("no log from session initialization")
	}
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		st   recorder.State
		want string
	}{
		{recorder.State{Loaded: recorder.Unloaded}, "Auton: none loaded"},
		{recorder.State{Loaded: recorder.None}, "Auton: NONE"},
		{recorder.State{Loaded: 2}, "Auton: 2"},
		{recorder.State{Loaded: 2, Name: "Left"}, "Left"},
		{recorder.State{Loaded: params.Skills()}, "Prog. Skills"},
		{recorder.State{Loaded: params.Hardcoded()}, "Hardcoded Skills"},
	}
	for _, tt := range tests {
		if got := statusLine(params, tt.st); got != tt.want {
			t.Errorf("statusLine(%+v) = %q, want %q", tt.st, got, tt.want)
		}
	}
}
