package recorder

import (
	"time"

	"github.com/gwillem/autonrec/pkg/robot"
)

// EventKind names a recorder lifecycle event.
type EventKind string

const (
	EventRecordStart    EventKind = "record_start"
	EventRecordDone     EventKind = "record_done"
	EventRecordCancel   EventKind = "record_cancel"
	EventSaved          EventKind = "saved"
	EventLoaded         EventKind = "loaded"
	EventPlaybackStart  EventKind = "playback_start"
	EventSectionStart   EventKind = "section_start"
	EventPlaybackTick   EventKind = "playback_tick"
	EventPlaybackDone   EventKind = "playback_done"
	EventPlaybackCancel EventKind = "playback_cancel"
)

// Event describes something the session did.
type Event struct {
	Kind    EventKind      `json:"kind"`
	Slot    Slot           `json:"slot"`
	Section int            `json:"section,omitempty"`
	Tick    int            `json:"tick,omitempty"`
	Key     string         `json:"key,omitempty"`
	Command robot.Snapshot `json:"command,omitzero"`
	Time    time.Time      `json:"time"`
}

// Observer receives session events. Implementations must not block.
type Observer interface {
	Observe(e Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }
