package recorder

import (
	"context"
	"errors"
	"testing"
)

func TestSlotLabel(t *testing.T) {
	r := newRig(t)
	r.put(t, "a1", true, "Red Right", nil)
	r.put(t, "a2", true, "", nil)

	tests := []struct {
		slot Slot
		want string
	}{
		{0, "NONE"},
		{1, "Red Right"},
		{2, "Slot: 2"},
		{3, "Slot: 3 (EMPTY)"},
		{11, "Prog. Skills"},
		{12, "Hardcoded Skills"},
	}

	for _, tt := range tests {
		if got := r.session.slotLabel(tt.slot); got != tt.want {
			t.Errorf("slotLabel(%d) = %q, want %q", tt.slot, got, tt.want)
		}
	}
}

func TestSlotLabel_LoadedSlotFromState(t *testing.T) {
	r := newRig(t)
	r.put(t, "a1", true, "Red Right", nil)
	if err := r.session.LoadSlot(context.Background(), 1); err != nil {
		t.Fatal(err)
	}
	opens := r.store.Opens("a1")

	if got := r.session.slotLabel(1); got != "Red Right" {
		t.Errorf("slotLabel(1) = %q", got)
	}
	if r.store.Opens("a1") != opens {
		t.Error("label of the loaded slot read the store")
	}
}

func TestSelectSlot_WaitsForConfirm(t *testing.T) {
	r := newRig(t)
	r.in.analogs = []int{bucketRaw(3, r.p.Buckets())}
	r.in.script[Confirm] = []bool{false, false, false, true}

	slot, err := r.session.SelectSlot(context.Background())
	if err != nil {
		t.Fatalf("SelectSlot: %v", err)
	}
	if slot != 3 {
		t.Errorf("slot = %d, want 3", slot)
	}
	if n := r.clock.count(PollInterval); n != 2 {
		t.Errorf("polled %d times before confirm, want 2 sleeps", n)
	}
	if r.display.lines[2] != "Slot: 3 (EMPTY)" {
		t.Errorf("preview = %q", r.display.lines[2])
	}
}

func TestSelectSlot_HeldConfirmMustBeReleased(t *testing.T) {
	r := newRig(t)
	r.in.analogs = []int{bucketRaw(2, r.p.Buckets())}
	// held when the prompt opens, released, pressed again
	r.in.script[Confirm] = []bool{true, true, false, true}

	slot, err := r.session.SelectSlot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if slot != 2 {
		t.Errorf("slot = %d, want 2", slot)
	}
	if n := r.clock.count(PollInterval); n != 2 {
		t.Errorf("sleeps = %d, want 2", n)
	}

	// A held button counts once until released.
	r.in.script[Confirm] = []bool{false, true, true, false, true}
	e := NewEdge(r.in, Confirm)
	got := []bool{e.Pressed(), e.Pressed(), e.Pressed(), e.Pressed()}
	want := []bool{true, false, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("press %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestSelectSlot_SaturatesAtFullTravel(t *testing.T) {
	r := newRig(t)
	r.in.analogs = []int{1 << 20}
	r.in.script[Confirm] = []bool{false, true}

	slot, err := r.session.SelectSlot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if slot != r.p.Hardcoded() {
		t.Errorf("slot = %d, want hardcoded %d", slot, r.p.Hardcoded())
	}
}

func TestSelectSlot_ContextCancelled(t *testing.T) {
	r := newRig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := r.session.SelectSlot(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSlotName(t *testing.T) {
	r := newRig(t)
	r.put(t, "a4", true, "Skills A", nil)

	if name, err := r.session.SlotName(4); err != nil || name != "Skills A" {
		t.Errorf("SlotName(4) = %q, %v", name, err)
	}
	if _, err := r.session.SlotName(5); !errors.Is(err, ErrNoRoutine) {
		t.Errorf("SlotName(5) err = %v", err)
	}
	if _, err := r.session.SlotName(11); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("SlotName(11) err = %v", err)
	}
}
