package robot

import (
	"context"
	"sync"

	"github.com/gwillem/meped/pkg/quad"
)

// SimBus stands in for the servo bus when no hardware is attached. It keeps
// the trimmed angles of the last write.
type SimBus struct {
	mu     sync.Mutex
	angles quad.Pose
	writes int
}

// NewSimBus returns a simulated bus with all servos at 90 degrees.
func NewSimBus() *SimBus {
	return &SimBus{angles: quad.NeutralPose()}
}

// Write records angles with trim applied.
func (s *SimBus) Write(ctx context.Context, angles quad.Pose, trim quad.TrimTable) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range angles {
		s.angles[i] = angles[i] + float64(trim[i])
	}
	s.writes++
	return nil
}

// ReadAngles returns the angles of the last write.
func (s *SimBus) ReadAngles(ctx context.Context) (quad.Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.angles, nil
}

// Writes returns the number of writes so far.
func (s *SimBus) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Close is a no-op.
func (s *SimBus) Close() error {
	return nil
}
