package sim

import (
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/matschaffer/Floating-Sandbox/internal/data"
)

// PointDefinition describes one permanent point of a ship blueprint.
type PointDefinition struct {
	Position           Vec2
	StructuralMaterial string
	ElectricalMaterial string // empty = no electrical element
	InstanceIndex      InstanceIndex
	IsRope             bool
	IsLeaking          bool
	Water              float64
	Color              RGBA
	TextureCoordinates Vec2
}

// SpringDefinition links two points of a blueprint by index.
type SpringDefinition struct {
	PointA int
	PointB int
}

// ShipDefinition is a complete ship blueprint, as produced by the
// scenario loader.
type ShipDefinition struct {
	Name                   string
	Points                 []PointDefinition
	Springs                []SpringDefinition
	EphemeralParticleCount uint32
}

// Spring is a structural link between two points. The simulation here
// cares about springs only as carriers of connectivity; the mechanical
// relaxation lives with the external physics collaborator.
type Spring struct {
	PointA    ElementIndex
	PointB    ElementIndex
	IsDeleted bool
}

// Ship owns one ship's particle and electrical containers and drives
// their per-step update pipeline. Single goroutine only.
type Ship struct {
	log    *zap.Logger
	params *Params

	Points             *Points
	ElectricalElements *ElectricalElements

	springs []Spring

	// Electrical adjacency at build time, consulted on Restore to
	// re-link an element with its still-live neighbors.
	buildElectricalConnections [][]ElementIndex

	currentConnectivityVisitSeq SequenceNumber
	currentSimulationTime       float64
}

// NewShip builds a ship from its blueprint, resolving material names
// against the database and wiring the point, spring and electrical
// topologies.
func NewShip(
	definition *ShipDefinition,
	materials *data.MaterialDatabase,
	world World,
	gameEventHandler GameEventHandler,
	rng *rand.Rand,
	params *Params,
	log *zap.Logger,
) (*Ship, error) {
	airMaterial := materials.Structural("Air")
	if airMaterial == nil {
		return nil, fmt.Errorf("material database has no Air material")
	}

	s := &Ship{
		log:    log,
		params: params,
	}

	s.Points = NewPoints(
		uint32(len(definition.Points)),
		definition.EphemeralParticleCount,
		airMaterial,
		world,
		gameEventHandler,
		s.handlePointDestroy,
		rng,
		params)

	s.ElectricalElements = NewElectricalElements(
		uint32(len(definition.Points)),
		world,
		gameEventHandler,
		rng,
		params)
	s.ElectricalElements.SetPhysicsHandler(s)

	// Points first, electrical elements second, then bind the two.
	for i := range definition.Points {
		def := &definition.Points[i]

		structural := materials.Structural(def.StructuralMaterial)
		if structural == nil {
			return nil, fmt.Errorf("point %d: unknown structural material %q", i, def.StructuralMaterial)
		}

		var electrical *data.ElectricalMaterial
		if def.ElectricalMaterial != "" {
			electrical = materials.Electrical(def.ElectricalMaterial)
			if electrical == nil {
				return nil, fmt.Errorf("point %d: unknown electrical material %q", i, def.ElectricalMaterial)
			}
		}

		pointIndex := s.Points.Add(
			def.Position,
			structural,
			electrical,
			def.IsRope,
			NoneElementIndex,
			def.IsLeaking,
			def.Color,
			def.TextureCoordinates)

		if def.Water > 0 {
			s.Points.SetWater(pointIndex, def.Water)
		}

		if electrical != nil {
			electricalElementIndex := s.ElectricalElements.Add(
				pointIndex,
				def.InstanceIndex,
				electrical)
			s.Points.SetElectricalElement(pointIndex, electricalElementIndex)
		}
	}

	s.Points.AddEphemeralRange()

	// Springs carry both structural and electrical connectivity
	s.springs = make([]Spring, 0, len(definition.Springs))
	for i, springDef := range definition.Springs {
		if springDef.PointA < 0 || springDef.PointA >= len(definition.Points) ||
			springDef.PointB < 0 || springDef.PointB >= len(definition.Points) {
			return nil, fmt.Errorf("spring %d: point index out of range", i)
		}

		springIndex := ElementIndex(len(s.springs))
		pointA := ElementIndex(springDef.PointA)
		pointB := ElementIndex(springDef.PointB)

		s.springs = append(s.springs, Spring{PointA: pointA, PointB: pointB})
		s.Points.ConnectSpring(pointA, springIndex)
		s.Points.ConnectSpring(pointB, springIndex)

		electricalA := s.Points.GetElectricalElement(pointA)
		electricalB := s.Points.GetElectricalElement(pointB)
		if electricalA != NoneElementIndex && electricalB != NoneElementIndex {
			s.ElectricalElements.AddConnectedElectricalElement(electricalA, electricalB)
			s.ElectricalElements.AddConnectedElectricalElement(electricalB, electricalA)
		}
	}

	// Snapshot the electrical topology for restores
	elementCount := s.ElectricalElements.ElementCount()
	s.buildElectricalConnections = make([][]ElementIndex, elementCount)
	for elementIndex := ElementIndex(0); elementIndex < ElementIndex(elementCount); elementIndex++ {
		connections := s.ElectricalElements.ConnectedElements(elementIndex)
		s.buildElectricalConnections[elementIndex] = append(
			[]ElementIndex(nil), connections...)
	}

	log.Info("ship built",
		zap.String("name", definition.Name),
		zap.Int("points", len(definition.Points)),
		zap.Int("springs", len(s.springs)),
		zap.Uint32("electrical_elements", elementCount),
		zap.Uint32("ephemeral_slots", definition.EphemeralParticleCount))

	return s, nil
}

// AnnounceElectricalElements publishes the ship's electrical panel.
func (s *Ship) AnnounceElectricalElements() {
	s.ElectricalElements.AnnounceInstancedElements()
}

// Update runs one simulation step.
func (s *Ship) Update(currentWallclockTime time.Time) {
	s.Points.UpdateForGameParameters(s.params)
	s.ElectricalElements.UpdateForGameParameters(s.params)

	s.Points.UpdateTotalMasses(s.params)

	s.ElectricalElements.UpdateAutomaticConductivityToggles(
		s.Points, s.params, currentWallclockTime)

	s.currentConnectivityVisitSeq = s.currentConnectivityVisitSeq.Next()
	s.ElectricalElements.UpdateSourcesAndPropagation(
		s.currentConnectivityVisitSeq, s.Points, s.params, currentWallclockTime)

	s.ElectricalElements.UpdateSinks(
		currentWallclockTime,
		s.currentSimulationTime,
		s.currentConnectivityVisitSeq,
		s.Points,
		s.params)

	s.updateLightFromLamps()

	s.Points.UpdateEphemeralParticles(s.currentSimulationTime)
	s.Points.UpdateHighlights(currentWallclockTime)

	s.currentSimulationTime += SimulationStepTimeDuration
}

// updateLightFromLamps writes each live lamp's available light into its
// owning point's light column for the renderer.
func (s *Ship) updateLightFromLamps() {
	for _, lampElementIndex := range s.ElectricalElements.Lamps() {
		if s.ElectricalElements.IsDeleted(lampElementIndex) {
			continue
		}
		s.Points.SetLight(
			s.ElectricalElements.GetPointIndex(lampElementIndex),
			s.ElectricalElements.GetAvailableLight(lampElementIndex))
	}
}

// CurrentSimulationTime returns the accumulated simulated seconds.
func (s *Ship) CurrentSimulationTime() float64 { return s.currentSimulationTime }

// SetSwitchState toggles a switch on the ship's panel.
func (s *Ship) SetSwitchState(elementIndex ElementIndex, switchState ElectricalState, currentWallclockTime time.Time) error {
	return s.ElectricalElements.SetSwitchState(
		elementIndex, switchState, s.Points, s.params, currentWallclockTime)
}

// DestroyPoint removes a permanent point, cascading to its springs and
// electrical element.
func (s *Ship) DestroyPoint(pointIndex ElementIndex) {
	if s.Points.IsDeleted(pointIndex) {
		return
	}
	s.Points.Destroy(pointIndex, s.currentSimulationTime, s.params)
}

// RestorePoint undoes a point destruction, re-linking the point's
// electrical element with its surviving build-time neighbors.
func (s *Ship) RestorePoint(pointIndex ElementIndex) {
	if !s.Points.IsDeleted(pointIndex) {
		return
	}

	s.Points.Restore(pointIndex)

	// Re-link every severed spring whose endpoints are both alive again
	for springIndex := range s.springs {
		spring := &s.springs[springIndex]
		if !spring.IsDeleted || (spring.PointA != pointIndex && spring.PointB != pointIndex) {
			continue
		}
		if s.Points.IsDeleted(spring.PointA) || s.Points.IsDeleted(spring.PointB) {
			continue
		}
		spring.IsDeleted = false
		s.Points.ConnectSpring(spring.PointA, ElementIndex(springIndex))
		s.Points.ConnectSpring(spring.PointB, ElementIndex(springIndex))
	}

	electricalElementIndex := s.Points.GetElectricalElement(pointIndex)
	if electricalElementIndex != NoneElementIndex {
		s.ElectricalElements.Restore(electricalElementIndex)
	}
}

// handlePointDestroy is the Points destroy hook: severs the point's
// springs and destroys its electrical element.
func (s *Ship) handlePointDestroy(pointIndex ElementIndex, currentSimulationTime float64, params *Params) {
	// Copy: DisconnectSpring mutates the list under iteration
	connectedSprings := append([]ElementIndex(nil), s.Points.ConnectedSprings(pointIndex)...)
	for _, springIndex := range connectedSprings {
		s.destroySpring(springIndex)
	}

	electricalElementIndex := s.Points.GetElectricalElement(pointIndex)
	if electricalElementIndex != NoneElementIndex &&
		!s.ElectricalElements.IsDeleted(electricalElementIndex) {
		s.ElectricalElements.Destroy(electricalElementIndex)
	}
}

func (s *Ship) destroySpring(springIndex ElementIndex) {
	spring := &s.springs[springIndex]
	if spring.IsDeleted {
		return
	}
	spring.IsDeleted = true
	s.Points.DisconnectSpring(spring.PointA, springIndex)
	s.Points.DisconnectSpring(spring.PointB, springIndex)

	// A broken spring also breaks the circuit between its endpoints
	electricalA := s.Points.GetElectricalElement(spring.PointA)
	electricalB := s.Points.GetElectricalElement(spring.PointB)
	if electricalA != NoneElementIndex && electricalB != NoneElementIndex {
		s.ElectricalElements.RemoveConnectedElectricalElement(electricalA, electricalB)
		s.ElectricalElements.RemoveConnectedElectricalElement(electricalB, electricalA)
	}
}

// HandleElectricalElementDestroy implements ElectricalPhysicsHandler:
// severs the element's topological and conducting adjacency so the
// flood never reaches a deleted element.
func (s *Ship) HandleElectricalElementDestroy(electricalElementIndex ElementIndex) {
	connections := append([]ElementIndex(nil),
		s.ElectricalElements.ConnectedElements(electricalElementIndex)...)
	for _, otherElementIndex := range connections {
		s.ElectricalElements.RemoveConnectedElectricalElement(electricalElementIndex, otherElementIndex)
		s.ElectricalElements.RemoveConnectedElectricalElement(otherElementIndex, electricalElementIndex)
	}
}

// HandleElectricalElementRestore implements ElectricalPhysicsHandler:
// re-links the element with every build-time neighbor that is alive.
func (s *Ship) HandleElectricalElementRestore(electricalElementIndex ElementIndex) {
	for _, otherElementIndex := range s.buildElectricalConnections[electricalElementIndex] {
		if s.ElectricalElements.IsDeleted(otherElementIndex) {
			continue
		}
		s.ElectricalElements.AddConnectedElectricalElement(electricalElementIndex, otherElementIndex)
		s.ElectricalElements.AddConnectedElectricalElement(otherElementIndex, electricalElementIndex)
	}
}
