package recorder

import (
	"context"
	"io"
	"time"

	"github.com/gwillem/autonrec/pkg/robot"
)

// Button is a digital input the recorder polls.
type Button int

const (
	Confirm Button = iota // select slot / accept character
	Cancel                // abort recording or playback
	Charset               // cycle name-entry character set
	Delete                // remove last name character
	Record                // start record + save from operator control
	Load                  // start load + playback from operator control
)

func (b Button) String() string {
	switch b {
	case Confirm:
		return "confirm"
	case Cancel:
		return "cancel"
	case Charset:
		return "charset"
	case Delete:
		return "delete"
	case Record:
		return "record"
	case Load:
		return "load"
	}
	return "unknown"
}

// Input is the operator's analog selector, buttons and the competition switch.
type Input interface {
	// Analog returns the raw selector reading in [0, PotHigh].
	Analog() int
	// Digital reports whether b is currently held.
	Digital(b Button) bool
	// Online reports whether the robot is under field or competition control.
	Online() bool
}

// Display is a two-line character LCD. Lines are numbered from 1.
type Display interface {
	SetText(line int, text string)
	SetBacklight(on bool)
}

// Actuator applies command snapshots to the robot's motors.
type Actuator interface {
	Apply(ctx context.Context, s robot.Snapshot) error
	Stop(ctx context.Context) error
}

// CommandSource produces the live command the operator is giving.
type CommandSource interface {
	Command(ctx context.Context) (robot.Snapshot, error)
}

// Store is a key-addressed persistent byte store.
// Open must return an error matching fs.ErrNotExist for missing keys.
type Store interface {
	Open(key string) (io.ReadCloser, error)
	Create(key string) (io.WriteCloser, error)
}

// Clock paces the polling loops.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock sleeps on the wall clock.
type RealClock struct{}

// Sleep waits for d or until ctx is done.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Edge turns a level-polled button into press events.
type Edge struct {
	in   Input
	b    Button
	prev bool
}

// NewEdge returns an edge detector for b. A button already held when the
// detector is created has to be released before it reports a press.
func NewEdge(in Input, b Button) *Edge {
	e := &Edge{in: in, b: b}
	e.Rearm()
	return e
}

// Rearm samples the button without reporting a press.
func (e *Edge) Rearm() {
	e.prev = e.in.Digital(e.b)
}

// Pressed polls the button and reports a released-to-held transition.
func (e *Edge) Pressed() bool {
	cur := e.in.Digital(e.b)
	rising := cur && !e.prev
	e.prev = cur
	return rising
}
