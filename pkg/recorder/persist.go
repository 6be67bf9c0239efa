package recorder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
)

// Save picks the destination and writes the buffer to it. Outside a skills
// run the operator selects a slot and, for numbered slots, types a name;
// during a skills run the next section is written without prompting.
// Selecting none saves nothing and returns None.
func (s *Session) Save(ctx context.Context) (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx)
}

// SaveAs writes the buffer to slot without prompting.
func (s *Session) SaveAs(ctx context.Context, slot Slot, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveAs(ctx, slot, name)
}

func (s *Session) save(ctx context.Context) (Slot, error) {
	s.log.Printf("Waiting for file selection...")
	s.show("Save to?", "")

	var slot Slot
	if section := s.State().SkillsSection; section == 0 {
		var err error
		if slot, err = s.selectSlot(ctx); err != nil {
			return None, err
		}
	} else {
		s.log.Printf("Currently in the middle of a programming skills run (section %d).", section)
		slot = s.p.Skills()
	}

	var name string
	if s.p.Kind(slot) == KindNumbered {
		var err error
		if name, err = s.typeName(ctx); err != nil {
			return None, err
		}
	}

	if err := s.saveAs(ctx, slot, name); err != nil {
		return None, err
	}
	if k := s.p.Kind(slot); k == KindNone || k == KindHardcoded {
		return None, nil
	}
	return slot, nil
}

func (s *Session) saveAs(ctx context.Context, slot Slot, name string) error {
	kind := s.p.Kind(slot)
	switch kind {
	case KindNone, KindHardcoded:
		s.log.Printf("Not saving this autonomous!")
		s.show("Not saving!", "")
		return nil
	case KindInvalid:
		return fmt.Errorf("save slot %d: %w", slot, ErrInvalidSlot)
	}

	section := s.State().SkillsSection
	key, header, line2 := s.p.SlotKey(slot), true, fmt.Sprintf("Slot: %d", slot)
	if kind == KindSkills {
		key, header, line2 = s.p.SectionKey(section), false, fmt.Sprintf("Skills Part: %d", section+1)
		name = ""
	}

	s.show("Saving auton...", line2)
	s.log.Printf("Saving to file %s...", key)

	w, err := s.store.Create(key)
	if err != nil {
		s.log.Printf("Cannot open %s for writing: %v", key, err)
		s.show("Save failed!", line2)
		s.pause(ctx)
		return fmt.Errorf("%w: create %s: %w", ErrStore, key, err)
	}
	werr := EncodeRoutine(w, header, name, s.buf)
	if cerr := w.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		s.log.Printf("Cannot write %s: %v", key, werr)
		s.show("Save failed!", line2)
		s.pause(ctx)
		return fmt.Errorf("%w: write %s: %w", ErrStore, key, werr)
	}

	s.log.Printf("Completed saving autonomous to file %s.", key)
	s.show("Saved auton!", line2)
	s.emit(Event{Kind: EventSaved, Slot: slot, Section: section, Key: key})

	if kind == KindSkills {
		s.section = section
		next := section + 1
		s.log.Printf("Proceeding to next programming skills section (%d).", next)
		if next == s.p.Sections() {
			s.log.Printf("Finished recording programming skills (all parts).")
			next = 0
		}
		s.update(func(st *State) {
			st.SkillsSection = next
		})
	} else {
		s.section = noSection
	}
	s.update(func(st *State) {
		st.Loaded = slot
		st.Name = name
	})
	s.pause(ctx)
	return nil
}

// Load asks for a slot until one that exists is chosen, or none or
// hardcoded skills is picked, and reads it into the buffer. Choosing the
// numbered slot that is already loaded does not touch the store.
func (s *Session) Load(ctx context.Context) (Slot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// LoadSlot reads slot into the buffer without prompting. It returns
// ErrNoRoutine when nothing is stored there.
func (s *Session) LoadSlot(ctx context.Context, slot Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadSlot(ctx, slot)
}

func (s *Session) load(ctx context.Context) (Slot, error) {
	for {
		s.log.Printf("Waiting for file selection...")
		s.show("Load from?", "")

		slot, err := s.selectSlot(ctx)
		if err != nil {
			return None, err
		}

		err = s.loadSlot(ctx, slot)
		if errors.Is(err, ErrNoRoutine) {
			s.pause(ctx)
			if err := ctx.Err(); err != nil {
				return None, err
			}
			continue
		}
		if err != nil {
			return None, err
		}
		return slot, nil
	}
}

func (s *Session) loadSlot(ctx context.Context, slot Slot) error {
	kind := s.p.Kind(slot)
	switch kind {
	case KindInvalid:
		return fmt.Errorf("load slot %d: %w", slot, ErrInvalidSlot)
	case KindNone:
		s.log.Printf("Not loading an autonomous!")
		s.show("Not loading!", "")
		s.setLoaded(None, "")
		return nil
	case KindHardcoded:
		s.log.Printf("Hardcoded skills selected.")
		s.show("Loaded skills!", "Hardcoded Skills")
		s.setLoaded(slot, "")
		return nil
	case KindNumbered:
		if slot == s.State().Loaded {
			s.log.Printf("Autonomous %d is already loaded.", slot)
			s.show("Loaded auton!", s.slotLine(slot))
			return nil
		}
	}

	key, header := s.p.SlotKey(slot), true
	if kind == KindSkills {
		key, header = s.p.SectionKey(0), false
	}

	s.log.Printf("Loading from file %s...", key)
	s.show("Loading auton...", s.slotLine(slot))

	r, err := s.store.Open(key)
	if errors.Is(err, fs.ErrNotExist) {
		s.log.Printf("No autonomous was saved in file %s!", key)
		if kind == KindSkills {
			s.show("No skills saved!", "")
		} else {
			s.show("No auton saved!", s.slotLine(slot))
		}
		return fmt.Errorf("%s: %w", key, ErrNoRoutine)
	}
	if err != nil {
		s.log.Printf("Cannot open %s: %v", key, err)
		s.show("Load failed!", s.slotLine(slot))
		return fmt.Errorf("%w: open %s: %w", ErrStore, key, err)
	}
	defer r.Close()

	name, err := DecodeRoutine(r, header, s.buf)
	if err != nil {
		s.section = noSection
		s.setLoaded(Unloaded, "")
		s.show("Load failed!", s.slotLine(slot))
		return fmt.Errorf("%w: %s: %w", ErrStore, key, err)
	}

	s.section = noSection
	if kind == KindSkills {
		s.section = 0
	}
	s.setLoaded(slot, name)
	s.log.Printf("Completed loading autonomous from file %s.", key)
	s.show("Loaded auton!", s.slotLine(slot))
	s.emit(Event{Kind: EventLoaded, Slot: slot, Key: key})
	return nil
}

func (s *Session) setLoaded(slot Slot, name string) {
	s.update(func(st *State) {
		st.Loaded = slot
		st.Name = name
	})
}
