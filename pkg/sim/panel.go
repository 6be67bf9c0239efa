// Package sim provides virtual robot hardware: an operator panel with a
// potentiometer, buttons and a two-line LCD, and a drive train steered from
// the keyboard.
package sim

import (
	"sync"

	"github.com/gwillem/autonrec/pkg/recorder"
)

// Panel is a virtual operator panel. Button presses are latched until the
// recorder polls them, so a single key press reads as one press.
type Panel struct {
	mu        sync.Mutex
	pot       int
	potHigh   int
	online    bool
	pending   map[recorder.Button]int
	lines     [2]string
	backlight bool
}

// NewPanel creates a panel whose potentiometer reads 0..potHigh.
func NewPanel(potHigh int) *Panel {
	return &Panel{
		potHigh:   potHigh,
		pending:   make(map[recorder.Button]int),
		backlight: true,
	}
}

// Analog returns the potentiometer reading.
func (p *Panel) Analog() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pot
}

// Digital reports whether b is down and advances its latched presses. Each
// press reads released for one poll and held for the next, so an edge
// detector created after the key went down still sees a fresh press.
func (p *Panel) Digital(b recorder.Button) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := p.pending[b]
	if n <= 0 {
		return false
	}
	p.pending[b] = n - 1
	return n%2 == 1
}

// Online reports whether the field controller is connected.
func (p *Panel) Online() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// SetText sets LCD line 1 or 2.
func (p *Panel) SetText(line int, text string) {
	if line < 1 || line > 2 {
		return
	}
	p.mu.Lock()
	p.lines[line-1] = text
	p.mu.Unlock()
}

// SetBacklight switches the LCD backlight.
func (p *Panel) SetBacklight(on bool) {
	p.mu.Lock()
	p.backlight = on
	p.mu.Unlock()
}

// Press latches one press of b behind any pending ones.
func (p *Panel) Press(b recorder.Button) {
	p.mu.Lock()
	p.pending[b] += 2
	p.mu.Unlock()
}

// SetPot sets the potentiometer, clamped to its range.
func (p *Panel) SetPot(v int) {
	p.mu.Lock()
	p.pot = min(max(v, 0), p.potHigh)
	p.mu.Unlock()
}

// TurnPot moves the potentiometer by delta.
func (p *Panel) TurnPot(delta int) {
	p.mu.Lock()
	p.pot = min(max(p.pot+delta, 0), p.potHigh)
	p.mu.Unlock()
}

// Pot returns the reading and the full-travel value.
func (p *Panel) Pot() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pot, p.potHigh
}

// SetOnline connects or disconnects the field controller.
func (p *Panel) SetOnline(on bool) {
	p.mu.Lock()
	p.online = on
	p.mu.Unlock()
}

// Lines returns the two LCD lines.
func (p *Panel) Lines() (string, string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lines[0], p.lines[1]
}

// Backlight reports whether the backlight is on.
func (p *Panel) Backlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.backlight
}
