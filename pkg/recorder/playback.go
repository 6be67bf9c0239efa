package recorder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/gwillem/autonrec/pkg/robot"
)

// Playback replays the loaded routine at the recorded rate. If nothing has
// been loaded yet it runs Load first. The blank routine plays nothing.
//
// A skills routine plays every section back to back: while section k
// plays, each consumed sample is replaced by the same sample of section
// k+1 so the next section is ready when the current one ends. A missing
// section ends the run after the current one.
//
// Cancel stops playback unless the robot is online.
func (s *Session) Playback(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playback(ctx)
}

func (s *Session) playback(ctx context.Context) error {
	if s.State().Loaded == Unloaded {
		s.log.Printf("No autonomous loaded, loading first.")
		if _, err := s.load(ctx); err != nil {
			return err
		}
	}

	loaded := s.State().Loaded
	kind := s.p.Kind(loaded)
	switch kind {
	case KindNone:
		s.log.Printf("Blank autonomous loaded, doing nothing.")
		return nil
	case KindHardcoded:
		return s.runHardcoded(ctx)
	case KindInvalid:
		return fmt.Errorf("playback slot %d: %w", loaded, ErrInvalidSlot)
	case KindSkills:
		if s.section != 0 {
			if err := s.loadSlot(ctx, loaded); err != nil {
				return err
			}
		}
	}

	s.log.Printf("Beginning playback...")
	s.show("Playing back...", "")
	s.display.SetBacklight(true)
	s.emit(Event{Kind: EventPlaybackStart, Slot: loaded})

	sections := 1
	if kind == KindSkills {
		sections = s.p.Sections()
	}

	var (
		cancelled bool
		err       error
	)
	for k := 0; k < sections; k++ {
		s.display.SetText(2, fmt.Sprintf("File: %d", k+1))
		s.emit(Event{Kind: EventSectionStart, Slot: loaded, Section: k})

		var next io.ReadCloser
		if k < sections-1 {
			next = s.openSection(k + 1)
		}
		cancelled, err = s.playSection(ctx, loaded, k, next)
		if next != nil {
			next.Close()
			s.section = k + 1
		}
		if cancelled || err != nil {
			s.section = noSection
			break
		}
		if k < sections-1 && next == nil {
			s.log.Printf("Skills section %d missing, ending playback after section %d.", k+1, k)
			break
		}
	}

	s.stop(ctx)
	switch {
	case err != nil:
		return err
	case cancelled:
		s.emit(Event{Kind: EventPlaybackCancel, Slot: loaded})
		return nil
	}
	s.log.Printf("Completed playback.")
	s.show("Played back!", "")
	s.emit(Event{Kind: EventPlaybackDone, Slot: loaded})
	s.pause(ctx)
	return nil
}

// openSection opens skills section k, or returns nil if it cannot be read.
func (s *Session) openSection(k int) io.ReadCloser {
	key := s.p.SectionKey(k)
	s.log.Printf("Next section: %s", key)
	r, err := s.store.Open(key)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.log.Printf("Cannot open %s: %v", key, err)
		}
		return nil
	}
	return r
}

// playSection plays the buffer once. When next is non-nil each played
// sample is overwritten with the matching sample read from next.
func (s *Session) playSection(ctx context.Context, slot Slot, section int, next io.Reader) (bool, error) {
	short := false
	for i := 0; i < s.buf.Len(); i++ {
		cmd := s.buf.At(i)
		if !s.in.Online() && s.in.Digital(Cancel) {
			s.log.Printf("Playback manually cancelled at section %d sample %d.", section, i)
			s.show("Cancelled playback.", "")
			return true, nil
		}
		s.apply(ctx, cmd)
		s.emit(Event{Kind: EventPlaybackTick, Slot: slot, Section: section, Tick: i, Command: cmd})

		if next != nil {
			var prefetched robot.Snapshot
			if !short {
				var err error
				if prefetched, err = readSnapshot(next); err != nil {
					short = true
					if !isShort(err) {
						s.log.Printf("Read error in section %d: %v", section+1, err)
					}
				}
			}
			s.buf.Set(i, prefetched)
		}

		if err := s.clock.Sleep(ctx, s.p.Tick()); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (s *Session) runHardcoded(ctx context.Context) error {
	if s.hardcode == nil {
		s.log.Printf("No hardcoded skills routine configured.")
		return nil
	}
	s.log.Printf("Running hardcoded skills.")
	s.show("Hardcoded Skills", "")
	err := s.hardcode(ctx)
	s.stop(ctx)
	if err != nil {
		return fmt.Errorf("hardcoded skills: %w", err)
	}
	return nil
}
