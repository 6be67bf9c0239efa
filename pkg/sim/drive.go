package sim

import (
	"context"
	"sync"

	"github.com/gwillem/autonrec/pkg/robot"
)

// Stick is a keyboard-driven command source. Values persist until changed.
type Stick struct {
	mu  sync.Mutex
	cmd robot.Snapshot
}

// Command returns the current stick position.
func (s *Stick) Command(context.Context) (robot.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cmd, nil
}

// Nudge moves one channel by delta, clamped to the command range.
func (s *Stick) Nudge(ch robot.Channel, delta int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmd = s.cmd.With(ch, robot.ClampCommand(int(s.cmd.Get(ch))+delta))
}

// Set sets one channel.
func (s *Stick) Set(ch robot.Channel, v int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cmd = s.cmd.With(ch, robot.ClampCommand(v))
}

// Center releases every channel.
func (s *Stick) Center() {
	s.mu.Lock()
	s.cmd = robot.Snapshot{}
	s.mu.Unlock()
}

// Drivetrain is a virtual actuator. It keeps the last command and a rough
// heading and distance integrated from the speed and turn channels.
type Drivetrain struct {
	mu       sync.Mutex
	last     robot.Snapshot
	applies  int
	distance float64
	heading  float64
}

// Apply drives with s.
func (d *Drivetrain) Apply(_ context.Context, s robot.Snapshot) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.last = s
	d.applies++
	d.distance += float64(s.Get(robot.Speed)) / robot.CommandMax
	d.heading += float64(s.Get(robot.Turn)) / robot.CommandMax
	return nil
}

// Stop zeroes every output.
func (d *Drivetrain) Stop(context.Context) error {
	d.mu.Lock()
	d.last = robot.Snapshot{}
	d.mu.Unlock()
	return nil
}

// Last returns the most recent command.
func (d *Drivetrain) Last() robot.Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.last
}

// Odometry returns the integrated distance and heading, in full-power ticks.
func (d *Drivetrain) Odometry() (distance, heading float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.distance, d.heading
}

// Applies returns the number of commands received.
func (d *Drivetrain) Applies() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.applies
}
