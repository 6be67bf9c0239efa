package recorder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// SelectSlot shows a live slot preview on line 2 until Confirm is pressed
// and returns the chosen slot. It blocks until confirmed or ctx is done.
func (s *Session) SelectSlot(ctx context.Context) (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectSlot(ctx)
}

func (s *Session) selectSlot(ctx context.Context) (Slot, error) {
	confirm := NewEdge(s.in, Confirm)
	shown := Unloaded
	label := ""
	for {
		slot := Slot(Quantize(s.in.Analog(), s.p.PotHigh, s.p.Buckets()))
		if slot != shown {
			label = s.slotLabel(slot)
			shown = slot
		}
		s.display.SetText(2, label)

		if confirm.Pressed() {
			s.log.Printf("Selected autonomous: %d", slot)
			return slot, nil
		}
		if err := s.clock.Sleep(ctx, PollInterval); err != nil {
			return None, err
		}
	}
}

// slotLabel renders the selector preview for a slot.
func (s *Session) slotLabel(slot Slot) string {
	switch s.p.Kind(slot) {
	case KindNone:
		return "NONE"
	case KindSkills:
		return "Prog. Skills"
	case KindHardcoded:
		return "Hardcoded Skills"
	case KindNumbered:
		if st := s.State(); st.Loaded == slot {
			if st.Name == "" {
				return fmt.Sprintf("Slot: %d", slot)
			}
			return st.Name
		}
		name, err := s.storedName(slot)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return fmt.Sprintf("Slot: %d (EMPTY)", slot)
		case err != nil:
			s.log.Printf("Read name of slot %d: %v", slot, err)
			return fmt.Sprintf("Slot: %d (ERROR)", slot)
		case name == "":
			return fmt.Sprintf("Slot: %d", slot)
		}
		return name
	}
	return fmt.Sprintf("Slot: %d", slot)
}

func (s *Session) storedName(slot Slot) (string, error) {
	r, err := s.store.Open(s.p.SlotKey(slot))
	if err != nil {
		return "", err
	}
	defer r.Close()
	return ReadName(r)
}

// SlotName returns the stored name of a numbered slot.
func (s *Session) SlotName(slot Slot) (string, error) {
	if s.p.Kind(slot) != KindNumbered {
		return "", fmt.Errorf("slot %d: %w", slot, ErrInvalidSlot)
	}
	name, err := s.storedName(slot)
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("slot %d: %w", slot, ErrNoRoutine)
	}
	return name, err
}
