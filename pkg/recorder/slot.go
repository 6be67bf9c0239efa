package recorder

import (
	"fmt"
	"time"
)

// Slot identifies a stored routine.
type Slot int

const (
	// Unloaded means nothing has been loaded or recorded since Initialize.
	Unloaded Slot = -1
	// None is the blank routine: playback does nothing.
	None Slot = 0
)

// SlotKind classifies a slot number under a given Params.
type SlotKind int

const (
	KindInvalid SlotKind = iota
	KindNone
	KindNumbered
	KindSkills
	KindHardcoded
)

// PollInterval is the period of the interactive selection loops.
const PollInterval = 20 * time.Millisecond

// MaxKeyLength bounds store keys.
const MaxKeyLength = 8

// Params are the recorder's timing and slot constants.
type Params struct {
	AutonTime  int // seconds per section
	SkillsTime int // seconds per skills run
	PollHz     int // samples per second
	MaxSlots   int
	PotHigh    int // analog reading at full travel
}

// DefaultParams returns the competition values: 15 s sections at 50 Hz,
// a 60 s skills run and ten numbered slots.
func DefaultParams() Params {
	return Params{
		AutonTime:  15,
		SkillsTime: 60,
		PollHz:     50,
		MaxSlots:   10,
		PotHigh:    4095,
	}
}

// Validate reports parameter combinations the recorder cannot run with.
func (p Params) Validate() error {
	if p.AutonTime <= 0 || p.PollHz <= 0 || p.PotHigh <= 0 {
		return fmt.Errorf("non-positive timing parameters: %+v", p)
	}
	if p.MaxSlots < 1 {
		return fmt.Errorf("max slots %d < 1", p.MaxSlots)
	}
	if p.SkillsTime < p.AutonTime || p.SkillsTime%p.AutonTime != 0 {
		return fmt.Errorf("skills time %d is not a multiple of auton time %d", p.SkillsTime, p.AutonTime)
	}
	if len(p.SectionKey(p.Sections()-1)) > MaxKeyLength || len(p.SlotKey(Slot(p.MaxSlots))) > MaxKeyLength {
		return fmt.Errorf("store keys exceed %d characters", MaxKeyLength)
	}
	return nil
}

// Samples is the number of snapshots in one section.
func (p Params) Samples() int {
	return p.AutonTime * p.PollHz
}

// Tick is the sampling period.
func (p Params) Tick() time.Duration {
	return time.Second / time.Duration(p.PollHz)
}

// Sections is the number of sections in a skills run.
func (p Params) Sections() int {
	return p.SkillsTime / p.AutonTime
}

// Buckets is the number of selector positions: none, numbered slots,
// skills and hardcoded skills.
func (p Params) Buckets() int {
	return p.MaxSlots + 3
}

// Skills is the composite programming-skills slot.
func (p Params) Skills() Slot {
	return Slot(p.MaxSlots + 1)
}

// Hardcoded is the slot that runs the built-in skills routine.
func (p Params) Hardcoded() Slot {
	return Slot(p.MaxSlots + 2)
}

// Kind classifies s.
func (p Params) Kind(s Slot) SlotKind {
	switch {
	case s == None:
		return KindNone
	case s >= 1 && int(s) <= p.MaxSlots:
		return KindNumbered
	case s == p.Skills():
		return KindSkills
	case s == p.Hardcoded():
		return KindHardcoded
	}
	return KindInvalid
}

// SlotKey is the store key of a numbered slot.
func (p Params) SlotKey(s Slot) string {
	return fmt.Sprintf("a%d", s)
}

// SectionKey is the store key of skills section k.
func (p Params) SectionKey(k int) string {
	return fmt.Sprintf("p%d", k)
}

// Quantize maps a raw analog reading onto n buckets. Readings below zero
// land in the first bucket; readings at or above high land in the last.
func Quantize(raw, high, n int) int {
	if n <= 0 || high <= 0 || raw <= 0 {
		return 0
	}
	b := int(int64(raw) * int64(n) / int64(high))
	if b >= n {
		return n - 1
	}
	return b
}
