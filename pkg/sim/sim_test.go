package sim

import (
	"context"
	"testing"

	"github.com/gwillem/autonrec/pkg/recorder"
	"github.com/gwillem/autonrec/pkg/robot"
)

func TestPanel_Press(t *testing.T) {
	tests := []struct {
		name    string
		presses int
		want    []bool
	}{
		{"none", 0, []bool{false, false}},
		{"single", 1, []bool{false, true, false}},
		{"double", 2, []bool{false, true, false, true, false}},
		{"triple", 3, []bool{false, true, false, true, false, true, false}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPanel(4095)
			for range tt.presses {
				p.Press(recorder.Record)
			}
			for i, want := range tt.want {
				if got := p.Digital(recorder.Record); got != want {
					t.Errorf("poll %d = %v, want %v", i, got, want)
				}
			}
		})
	}
}

func TestPanel_PressesFormEdges(t *testing.T) {
	p := NewPanel(4095)
	p.Press(recorder.Confirm)
	p.Press(recorder.Confirm)
	edge := recorder.NewEdge(p, recorder.Confirm)
	n := 0
	for range 6 {
		if edge.Pressed() {
			n++
		}
	}
	if n != 2 {
		t.Errorf("edges = %d, want 2", n)
	}
}

func TestPanel_ButtonsIndependent(t *testing.T) {
	p := NewPanel(4095)
	p.Press(recorder.Load)
	if p.Digital(recorder.Record) {
		t.Error("Record reported pressed")
	}
	p.Digital(recorder.Load)
	if !p.Digital(recorder.Load) {
		t.Error("Load press lost")
	}
}

func TestPanel_Pot(t *testing.T) {
	p := NewPanel(1000)
	p.TurnPot(-50)
	if v, _ := p.Pot(); v != 0 {
		t.Errorf("pot = %d, want 0", v)
	}
	p.TurnPot(600)
	p.TurnPot(600)
	if v, high := p.Pot(); v != 1000 || high != 1000 {
		t.Errorf("pot = %d/%d, want 1000/1000", v, high)
	}
	p.SetPot(250)
	if p.Analog() != 250 {
		t.Errorf("Analog = %d, want 250", p.Analog())
	}
}

func TestPanel_Display(t *testing.T) {
	p := NewPanel(4095)
	p.SetText(1, "Save to?")
	p.SetText(2, "Slot: 3")
	p.SetText(3, "ignored")
	if l1, l2 := p.Lines(); l1 != "Save to?" || l2 != "Slot: 3" {
		t.Errorf("lines = %q, %q", l1, l2)
	}
	p.SetBacklight(false)
	if p.Backlight() {
		t.Error("backlight still on")
	}
}

func TestStick(t *testing.T) {
	var s Stick
	s.Nudge(robot.Speed, 100)
	s.Nudge(robot.Speed, 100)
	s.Set(robot.Turn, -300)
	cmd, err := s.Command(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if cmd.Get(robot.Speed) != 127 || cmd.Get(robot.Turn) != -127 {
		t.Errorf("cmd = %v, want clamped speed and turn", cmd)
	}
	s.Center()
	if cmd, _ := s.Command(context.Background()); !cmd.IsZero() {
		t.Errorf("centered cmd = %v", cmd)
	}
}

func TestDrivetrain(t *testing.T) {
	var d Drivetrain
	ctx := context.Background()
	full := robot.Snapshot{}.With(robot.Speed, robot.CommandMax).With(robot.Turn, -robot.CommandMax)
	for range 3 {
		if err := d.Apply(ctx, full); err != nil {
			t.Fatal(err)
		}
	}
	dist, heading := d.Odometry()
	if dist != 3 || heading != -3 {
		t.Errorf("odometry = %v, %v, want 3, -3", dist, heading)
	}
	if d.Last() != full || d.Applies() != 3 {
		t.Errorf("last = %v applies = %d", d.Last(), d.Applies())
	}
	d.Stop(ctx)
	if !d.Last().IsZero() {
		t.Error("Stop did not zero outputs")
	}
}
