package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
	"github.com/rs/zerolog"

	"github.com/gwillem/meped/pkg/quad"
)

// DefaultBaudRate is the factory baud rate of STS servos.
const DefaultBaudRate = 1_000_000

// ServoBus drives the 8 leg servos over a feetech serial bus.
type ServoBus struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
	log         zerolog.Logger
}

// NewServoBus opens the serial port and creates the servo group.
func NewServoBus(port string, baudRate int, cal Calibration, log zerolog.Logger) (*ServoBus, error) {
	if baudRate <= 0 {
		baudRate = DefaultBaudRate
	}

	// Open serial bus
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: baudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	// Create servo group in actuator order
	group := feetech.NewServoGroupByIDs(bus, cal.ServoIDs()...)
	log.Info().Str("port", port).Int("baud", baudRate).Msg("servo bus opened")

	return &ServoBus{
		bus:         bus,
		group:       group,
		calibration: cal,
		log:         log,
	}, nil
}

// Close closes the serial bus.
func (b *ServoBus) Close() error {
	return b.bus.Close()
}

// Enable enables torque on all servos.
func (b *ServoBus) Enable(ctx context.Context) error {
	return b.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (b *ServoBus) Disable(ctx context.Context) error {
	return b.group.DisableAll(ctx)
}

// ReadAngles reads the current position of all servos in degrees.
// Servos that did not answer read as 90 degrees.
func (b *ServoBus) ReadAngles(ctx context.Context) (quad.Pose, error) {
	pose := quad.NeutralPose()

	raw, err := b.group.Positions(ctx)
	if err != nil {
		return pose, fmt.Errorf("read positions: %w", err)
	}

	for id, pos := range raw {
		a, sc, ok := b.calibration.ByID(id)
		if !ok {
			continue
		}
		pose[a] = sc.Angle(pos)
	}
	return pose, nil
}

// Write sends all angles, biased by trim, in one sync write.
func (b *ServoBus) Write(ctx context.Context, angles quad.Pose, trim quad.TrimTable) error {
	raw := make(feetech.PositionMap, quad.NumActuators)
	for _, a := range quad.AllActuators() {
		sc := b.calibration.For(a)
		raw[sc.ID] = sc.Raw(angles[a], trim[a])
	}

	if err := b.group.SetPositions(ctx, raw); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}
