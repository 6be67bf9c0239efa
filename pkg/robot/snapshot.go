// Package robot provides the actuator command model and the servo arms
// that produce and consume it.
package robot

import "fmt"

// Channel identifies one actuator command value.
type Channel string

// Command channels, in snapshot order.
const (
	Speed        Channel = "speed"
	Turn         Channel = "turn"
	Shooter      Channel = "shooter"
	Intake       Channel = "intake"
	Transmission Channel = "transmission"
)

// NumChannels is the number of values in a Snapshot.
const NumChannels = 5

// CommandMax is the largest magnitude of a command value.
const CommandMax = 127

// AllChannels returns all channels in snapshot order.
func AllChannels() []Channel {
	return []Channel{
		Speed,
		Turn,
		Shooter,
		Intake,
		Transmission,
	}
}

// Index returns the snapshot position of a channel, or -1 if unknown.
func (c Channel) Index() int {
	for i, ch := range AllChannels() {
		if ch == c {
			return i
		}
	}
	return -1
}

// Snapshot is one sampled instant of all actuator command values.
type Snapshot [NumChannels]int8

// Get returns the value of a channel. Unknown channels read as zero.
func (s Snapshot) Get(c Channel) int8 {
	i := c.Index()
	if i < 0 {
		return 0
	}
	return s[i]
}

// With returns a copy of s with channel c set to v.
func (s Snapshot) With(c Channel, v int8) Snapshot {
	if i := c.Index(); i >= 0 {
		s[i] = v
	}
	return s
}

// IsZero reports whether every channel is zero.
func (s Snapshot) IsZero() bool {
	return s == Snapshot{}
}

func (s Snapshot) String() string {
	return fmt.Sprintf("spd=%d turn=%d sht=%d intk=%d trans=%d", s[0], s[1], s[2], s[3], s[4])
}

// ClampCommand saturates v into the [-CommandMax, CommandMax] range.
func ClampCommand(v int) int8 {
	switch {
	case v > CommandMax:
		return CommandMax
	case v < -CommandMax:
		return -CommandMax
	}
	return int8(v)
}
