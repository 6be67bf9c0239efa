package robot

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// BaudRate is the feetech bus speed used by the arms.
const BaudRate = 1_000_000

// Arm is a set of feetech servos, one per calibrated channel.
// A leader arm is read as a live command source; a follower arm is
// driven as the actuator.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
}

// NewArm opens the bus on port and binds the calibrated servos.
func NewArm(port string, cal Calibration) (*Arm, error) {
	if err := cal.Validate(); err != nil {
		return nil, fmt.Errorf("calibration: %w", err)
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: BaudRate,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	return &Arm{
		bus:         bus,
		group:       feetech.NewServoGroupByIDs(bus, cal.ServoIDs()...),
		calibration: cal,
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// Command reads the servo positions and converts them to a snapshot.
// Channels without a servo read as zero.
func (a *Arm) Command(ctx context.Context) (Snapshot, error) {
	raw, err := a.group.Positions(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("read positions: %w", err)
	}

	var s Snapshot
	for id, pos := range raw {
		ch, cal, ok := a.calibration.ByID(id)
		if !ok {
			continue
		}
		s = s.With(ch, cal.Command(pos))
	}
	return s, nil
}

// Apply drives every calibrated servo to the position for its channel.
func (a *Arm) Apply(ctx context.Context, s Snapshot) error {
	if err := a.group.SetPositions(ctx, feetech.PositionMap(a.calibration.Positions(s))); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

// Stop applies the zero command, which puts every servo at the middle of
// its calibrated range.
func (a *Arm) Stop(ctx context.Context) error {
	if err := a.Apply(ctx, Snapshot{}); err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	return nil
}
