package world

import (
	"math"

	"github.com/matschaffer/Floating-Sandbox/internal/sim"
)

// Ocean is the flat-waterline world collaborator: everything below the
// configured level counts as underwater. A waves model would slot in
// here without touching the containers.
type Ocean struct {
	level float64
}

func NewOcean(level float64) *Ocean {
	return &Ocean{level: level}
}

var _ sim.World = (*Ocean)(nil)

// IsUnderwater reports whether the position is below the waterline.
func (o *Ocean) IsUnderwater(position sim.Vec2) bool {
	return position.Y < o.level
}

// DepthAt returns how far below the waterline the position is, zero at
// or above it.
func (o *Ocean) DepthAt(position sim.Vec2) float64 {
	return math.Max(0, o.level-position.Y)
}
