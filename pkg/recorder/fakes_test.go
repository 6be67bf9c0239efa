package recorder

import (
	"context"
	"errors"
	"io"
	"log"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/gwillem/autonrec/pkg/robot"
	"github.com/gwillem/autonrec/pkg/store"
)

// testParams gives 4-sample sections at 1 Hz and a 3-section skills run.
func testParams() Params {
	return Params{
		AutonTime:  4,
		SkillsTime: 12,
		PollHz:     1,
		MaxSlots:   10,
		PotHigh:    4095,
	}
}

// bucketRaw returns an analog reading in the middle of bucket b of n.
func bucketRaw(b, n int) int {
	return (2*b + 1) * 4095 / (2 * n)
}

// fakeInput scripts the operator. Each confirm press moves on to the next
// analog reading.
type fakeInput struct {
	analogs []int
	idx     int
	script  map[Button][]bool
	online  bool
	reads   map[Button]int
}

func newFakeInput() *fakeInput {
	return &fakeInput{
		script: make(map[Button][]bool),
		reads:  make(map[Button]int),
	}
}

func (f *fakeInput) Analog() int {
	switch {
	case len(f.analogs) == 0:
		return 0
	case f.idx >= len(f.analogs):
		return f.analogs[len(f.analogs)-1]
	}
	return f.analogs[f.idx]
}

func (f *fakeInput) Digital(b Button) bool {
	f.reads[b]++
	q := f.script[b]
	if len(q) == 0 {
		return false
	}
	v := q[0]
	f.script[b] = q[1:]
	if b == Confirm && v {
		f.idx++
	}
	return v
}

func (f *fakeInput) Online() bool { return f.online }

// choose queues slot selections. Each prompt first sees Confirm released,
// then one press.
func (f *fakeInput) choose(p Params, slots ...Slot) {
	f.analogs, f.idx = nil, 0
	f.script[Confirm] = nil
	for _, s := range slots {
		f.analogs = append(f.analogs, bucketRaw(int(s), p.Buckets()))
		f.script[Confirm] = append(f.script[Confirm], false, true)
	}
}

// cancelAt makes the n-th poll of Cancel (0-based) report pressed.
func (f *fakeInput) cancelAt(n int) {
	q := make([]bool, n+1)
	q[n] = true
	f.script[Cancel] = q
}

type fakeDisplay struct {
	lines     [3]string
	history   []string
	backlight bool
}

func (d *fakeDisplay) SetText(line int, text string) {
	if line >= 1 && line <= 2 {
		d.lines[line] = text
	}
	d.history = append(d.history, text)
}

func (d *fakeDisplay) SetBacklight(on bool) { d.backlight = on }

func (d *fakeDisplay) showed(text string) bool {
	return slices.Contains(d.history, text)
}

// actCall is one actuator call; stop calls carry no snapshot.
type actCall struct {
	stop bool
	cmd  robot.Snapshot
}

type fakeActuator struct {
	calls []actCall
}

func (a *fakeActuator) Apply(_ context.Context, s robot.Snapshot) error {
	a.calls = append(a.calls, actCall{cmd: s})
	return nil
}

func (a *fakeActuator) Stop(context.Context) error {
	a.calls = append(a.calls, actCall{stop: true})
	return nil
}

func (a *fakeActuator) applied() []robot.Snapshot {
	var out []robot.Snapshot
	for _, c := range a.calls {
		if !c.stop {
			out = append(out, c.cmd)
		}
	}
	return out
}

func (a *fakeActuator) reset() { a.calls = nil }

// fakeSource returns snap(i) for the i-th read.
type fakeSource struct {
	n int
}

func snap(i int) robot.Snapshot {
	v := int8(i + 1)
	return robot.Snapshot{v, -v, v * 2, 0, 1}
}

func (s *fakeSource) Command(context.Context) (robot.Snapshot, error) {
	out := snap(s.n)
	s.n++
	return out, nil
}

var errRunaway = errors.New("too many sleeps")

// fakeClock records sleeps without waiting. It fails after limit sleeps so
// a loop waiting on input that never comes ends the test instead of hanging.
type fakeClock struct {
	sleeps []time.Duration
	limit  int
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(c.sleeps) >= c.limit {
		return errRunaway
	}
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) count(d time.Duration) int {
	n := 0
	for _, s := range c.sleeps {
		if s == d {
			n++
		}
	}
	return n
}

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) Observe(e Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
}

func (l *eventLog) kinds(k EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

type rig struct {
	p       Params
	in      *fakeInput
	display *fakeDisplay
	act     *fakeActuator
	src     *fakeSource
	store   *store.Memory
	clock   *fakeClock
	events  *eventLog
	session *Session
}

func newRig(t *testing.T) *rig {
	t.Helper()
	r := &rig{
		p:       testParams(),
		in:      newFakeInput(),
		display: &fakeDisplay{},
		act:     &fakeActuator{},
		src:     &fakeSource{},
		store:   store.NewMemory(),
		clock:   &fakeClock{limit: 10_000},
		events:  &eventLog{},
	}
	s, err := New(Config{
		Params:   r.p,
		Input:    r.in,
		Display:  r.display,
		Actuator: r.act,
		Source:   r.src,
		Store:    r.store,
		Clock:    r.clock,
		Logger:   log.New(io.Discard, "", 0),
		Observer: r.events,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.session = s
	return r
}

// put stores an encoded routine directly.
func (r *rig) put(t *testing.T, key string, header bool, name string, samples []robot.Snapshot) {
	t.Helper()
	buf := NewBuffer(r.p.Samples())
	buf.CopyFrom(samples)
	w, err := r.store.Create(key)
	if err != nil {
		t.Fatal(err)
	}
	if err := EncodeRoutine(w, header, name, buf); err != nil {
		t.Fatal(err)
	}
	w.Close()
}

// section returns distinct samples for skills section k.
func section(k, n int) []robot.Snapshot {
	out := make([]robot.Snapshot, n)
	for i := range out {
		v := int8(k*10 + i + 1)
		out[i] = robot.Snapshot{v, v, v, v, v}
	}
	return out
}
