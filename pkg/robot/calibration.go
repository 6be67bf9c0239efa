package robot

import (
	"fmt"
	"math"
)

// ServoCalibration maps one command channel onto a servo's travel.
type ServoCalibration struct {
	ID       int  `toml:"id"`
	Inverted bool `toml:"inverted,omitempty"`
	RangeMin int  `toml:"range_min"`
	RangeMax int  `toml:"range_max"`
}

// Calibration holds servo calibration for each channel an arm drives.
type Calibration map[Channel]ServoCalibration

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c ServoCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	norm := (float64(raw-c.RangeMin)/rangeSize)*200 - 100
	if c.Inverted {
		norm = -norm
	}
	return norm
}

// Denormalize converts a normalized value [-100, 100] to a raw servo position.
func (c ServoCalibration) Denormalize(norm float64) int {
	if c.Inverted {
		norm = -norm
	}
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+100)/200*rangeSize) + c.RangeMin
}

// Command converts a raw servo position to a command value.
// Positions outside the calibrated range saturate.
func (c ServoCalibration) Command(raw int) int8 {
	norm := c.Normalize(raw)
	return ClampCommand(int(math.Round(norm * CommandMax / 100)))
}

// Position converts a command value to a raw servo position.
func (c ServoCalibration) Position(cmd int8) int {
	return c.Denormalize(float64(cmd) * 100 / CommandMax)
}

// Positions maps a snapshot onto raw positions keyed by servo ID.
func (c Calibration) Positions(s Snapshot) map[int]int {
	positions := make(map[int]int, len(c))
	for ch, sc := range c {
		positions[sc.ID] = sc.Position(s.Get(ch))
	}
	return positions
}

// ServoIDs returns the servo IDs in channel order.
func (c Calibration) ServoIDs() []int {
	ids := make([]int, 0, len(c))
	for _, ch := range AllChannels() {
		if sc, ok := c[ch]; ok {
			ids = append(ids, sc.ID)
		}
	}
	return ids
}

// ByID returns the channel and calibration bound to a servo ID.
func (c Calibration) ByID(id int) (Channel, ServoCalibration, bool) {
	for ch, sc := range c {
		if sc.ID == id {
			return ch, sc, true
		}
	}
	return "", ServoCalibration{}, false
}

// Validate checks that channels are known and servo IDs are unique.
func (c Calibration) Validate() error {
	seen := make(map[int]Channel, len(c))
	for ch, sc := range c {
		if ch.Index() < 0 {
			return fmt.Errorf("unknown channel %q", ch)
		}
		if other, dup := seen[sc.ID]; dup {
			return fmt.Errorf("servo %d bound to both %s and %s", sc.ID, other, ch)
		}
		seen[sc.ID] = ch
	}
	return nil
}
