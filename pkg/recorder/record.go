package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/gwillem/autonrec/pkg/robot"
)

const countdownTicks = 3

// Record counts down, then samples the live command source once per tick
// into the buffer while driving the robot with the same command. Pressing
// Cancel zero-fills the rest of the buffer and ends the recording; that is
// a normal result, not an error. The buffer afterwards is the blank routine.
func (s *Session) Record(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record(ctx)
}

func (s *Session) record(ctx context.Context) error {
	s.display.SetText(1, "")
	s.display.SetText(2, "")
	for i := countdownTicks; i > 0; i-- {
		s.display.SetBacklight(true)
		s.log.Printf("Beginning autonomous recording in %d...", i)
		s.show("Recording auton", fmt.Sprintf("in %d...", i))
		if err := s.clock.Sleep(ctx, time.Second); err != nil {
			return err
		}
	}

	s.log.Printf("Ready to begin autonomous recording.")
	s.show("Recording auton...", "")
	s.emit(Event{Kind: EventRecordStart})

	n := s.buf.Len()
	light := false
	var err error
	for i := 0; i < n; i++ {
		if s.in.Digital(Cancel) {
			s.log.Printf("Autonomous recording manually cancelled at sample %d.", i)
			s.show("Cancelled record.", "")
			s.buf.ZeroFrom(i)
			s.emit(Event{Kind: EventRecordCancel, Tick: i})
			break
		}

		s.display.SetBacklight(light)
		light = !light

		cmd, cerr := s.src.Command(ctx)
		if cerr != nil {
			s.log.Printf("Read error: %v", cerr)
			cmd = robot.Snapshot{}
		}
		s.buf.Set(i, cmd)
		s.apply(ctx, cmd)

		if err = s.clock.Sleep(ctx, s.p.Tick()); err != nil {
			s.buf.ZeroFrom(i + 1)
			break
		}
	}

	s.stop(ctx)
	s.display.SetBacklight(true)
	s.section = noSection
	s.update(func(st *State) {
		st.Loaded = None
		st.Name = ""
	})
	if err != nil {
		return err
	}

	s.log.Printf("Completed autonomous recording.")
	s.show("Recorded auton!", "")
	s.emit(Event{Kind: EventRecordDone})
	s.pause(ctx)
	return nil
}
