package recorder

import (
	"context"
	"strings"
)

// charset is the character group the name-entry selector currently maps to.
type charset int

const (
	upper charset = iota
	lower
	digits
)

// buckets is the selector resolution: each character plus space and end.
func (c charset) buckets() int {
	if c == digits {
		return 12
	}
	return 28
}

func (c charset) next() charset {
	return (c + 1) % 3
}

// legend names the set the Charset button switches to.
func (c charset) legend() string {
	switch c.next() {
	case lower:
		return "abc"
	case digits:
		return "123"
	}
	return "ABC"
}

// char maps a bucket to a character. The last bucket is the end marker.
func (c charset) char(bucket int) (ch byte, end bool) {
	n := c.buckets()
	switch {
	case bucket >= n-1:
		return '^', true
	case bucket == n-2:
		return ' ', false
	case c == upper:
		return 'A' + byte(bucket), false
	case c == lower:
		return 'a' + byte(bucket), false
	}
	return '0' + byte(bucket), false
}

// nameInput is one poll of the name-entry controls.
type nameInput struct {
	bucket  int
	confirm bool
	del     bool
	cycle   bool
}

// nameEntry is the pure state of the name-entry loop.
type nameEntry struct {
	text []byte
	set  charset
}

// step applies one poll and reports whether entry is finished.
func (e *nameEntry) step(in nameInput) bool {
	ch, end := e.set.char(in.bucket)
	switch {
	case in.confirm && end:
		return true
	case in.confirm:
		e.text = append(e.text, ch)
		return len(e.text) >= NameMax
	case in.del && len(e.text) > 0:
		e.text = e.text[:len(e.text)-1]
	case in.cycle:
		e.set = e.set.next()
	}
	return false
}

// render returns both LCD lines for the current entry and cursor.
func (e *nameEntry) render(bucket int) (string, string) {
	ch, _ := e.set.char(bucket)
	line1 := center(string(e.text) + string(ch))
	del := "   "
	if len(e.text) > 0 {
		del = "DEL"
	}
	return line1, del + "    SEL   " + e.set.legend()
}

// TypeName runs the name-entry loop and returns the entered text.
func (s *Session) TypeName(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typeName(ctx)
}

func (s *Session) typeName(ctx context.Context) (string, error) {
	var entry nameEntry
	confirm := NewEdge(s.in, Confirm)
	del := NewEdge(s.in, Delete)
	cycle := NewEdge(s.in, Charset)

	for {
		bucket := Quantize(s.in.Analog(), s.p.PotHigh, entry.set.buckets())
		line1, line2 := entry.render(bucket)
		s.show(line1, line2)

		in := nameInput{
			bucket:  bucket,
			confirm: confirm.Pressed(),
			del:     del.Pressed(),
			cycle:   cycle.Pressed(),
		}
		if entry.step(in) {
			name := string(entry.text)
			s.log.Printf("Entered name %q", name)
			return name, nil
		}
		if err := s.clock.Sleep(ctx, PollInterval); err != nil {
			return "", err
		}
	}
}

// center pads text to sit in the middle of a 16-character line.
func center(text string) string {
	if len(text) >= NameMax {
		return text
	}
	pad := strings.Repeat(" ", (NameMax-len(text))/2)
	return pad + text + pad
}
