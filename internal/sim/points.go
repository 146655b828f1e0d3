package sim

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/matschaffer/Floating-Sandbox/internal/data"
)

// How long a notification highlight stays visible on a point.
const pointHighlightDuration = 500 * time.Millisecond

// Points is the struct-of-arrays particle container. One attribute
// column per property, one row per point. The index space is
// partitioned: rows [0, shipPointCount) are permanent ship points,
// rows [shipPointCount, allPointCount) are recyclable ephemeral slots.
//
// Permanent points are never removed from the arrays; destruction only
// flags them deleted and zeroes their dynamic state. Accessed only from
// the simulation goroutine — no locks needed.
type Points struct {
	world            World
	gameEventHandler GameEventHandler
	destroyHandler   PointDestroyHandler
	rng              *rand.Rand

	shipPointCount     ElementIndex
	ephemeralPointCap  ElementIndex
	allPointCount      ElementIndex // 0 until the ephemeral range is added
	airMaterial        *data.StructuralMaterial
	defaultTemperature float64

	isDeleted []bool

	// Identity / material
	structuralMaterial []*data.StructuralMaterial
	electricalMaterial []*data.ElectricalMaterial
	isRope             []bool

	// Kinematics
	position                         []Vec2
	velocity                         []Vec2
	force                            []Vec2
	mass                             []float64
	integrationFactorTimeCoefficient []float64
	totalMass                        []float64 // recomputed each step
	integrationFactor                []Vec2    // recomputed each step

	// Water
	isHull              []bool
	waterVolumeFill     []float64
	waterRestitution    []float64
	waterDiffusionSpeed []float64
	water               []float64
	waterVelocity       []Vec2
	waterMomentum       []Vec2
	isLeaking           []bool

	// Heat
	temperature []float64

	// Electrical dynamics
	electricalElement  []ElementIndex
	light              []float64
	highlightColor     []RGB
	highlightStartTime []time.Time
	highlightActive    []bool

	// Ephemeral particles
	ephemeralType        []EphemeralType
	ephemeralStartTime   []float64
	ephemeralMaxLifetime []float64
	ephemeralState       []EphemeralState

	// Structure
	connectedSprings     [][]ElementIndex
	connectedComponentID []ConnectedComponentID
	connectivityVisitSeq []SequenceNumber
	isPinned             []bool

	// Render
	color              []RGBA
	textureCoordinates []Vec2

	currentNumMechanicalDynamicsIterations float64
	freeEphemeralParticleSearchStart       ElementIndex
	areEphemeralParticlesDirty             bool
}

// NewPoints creates an empty container with fixed capacity for
// shipPointCount permanent points plus ephemeralPointCount recyclable
// slots. airMaterial fills free ephemeral slots so every row always has
// a strictly positive mass.
func NewPoints(
	shipPointCount uint32,
	ephemeralPointCount uint32,
	airMaterial *data.StructuralMaterial,
	world World,
	gameEventHandler GameEventHandler,
	destroyHandler PointDestroyHandler,
	rng *rand.Rand,
	params *Params,
) *Points {
	capacity := int(shipPointCount + ephemeralPointCount)
	p := &Points{
		world:              world,
		gameEventHandler:   gameEventHandler,
		destroyHandler:     destroyHandler,
		rng:                rng,
		shipPointCount:     ElementIndex(shipPointCount),
		ephemeralPointCap:  ElementIndex(ephemeralPointCount),
		airMaterial:        airMaterial,
		defaultTemperature: params.AirTemperature,

		isDeleted:          make([]bool, 0, capacity),
		structuralMaterial: make([]*data.StructuralMaterial, 0, capacity),
		electricalMaterial: make([]*data.ElectricalMaterial, 0, capacity),
		isRope:             make([]bool, 0, capacity),

		position:                         make([]Vec2, 0, capacity),
		velocity:                         make([]Vec2, 0, capacity),
		force:                            make([]Vec2, 0, capacity),
		mass:                             make([]float64, 0, capacity),
		integrationFactorTimeCoefficient: make([]float64, 0, capacity),
		totalMass:                        make([]float64, 0, capacity),
		integrationFactor:                make([]Vec2, 0, capacity),

		isHull:              make([]bool, 0, capacity),
		waterVolumeFill:     make([]float64, 0, capacity),
		waterRestitution:    make([]float64, 0, capacity),
		waterDiffusionSpeed: make([]float64, 0, capacity),
		water:               make([]float64, 0, capacity),
		waterVelocity:       make([]Vec2, 0, capacity),
		waterMomentum:       make([]Vec2, 0, capacity),
		isLeaking:           make([]bool, 0, capacity),

		temperature: make([]float64, 0, capacity),

		electricalElement:  make([]ElementIndex, 0, capacity),
		light:              make([]float64, 0, capacity),
		highlightColor:     make([]RGB, 0, capacity),
		highlightStartTime: make([]time.Time, 0, capacity),
		highlightActive:    make([]bool, 0, capacity),

		ephemeralType:        make([]EphemeralType, 0, capacity),
		ephemeralStartTime:   make([]float64, 0, capacity),
		ephemeralMaxLifetime: make([]float64, 0, capacity),
		ephemeralState:       make([]EphemeralState, 0, capacity),

		connectedSprings:     make([][]ElementIndex, 0, capacity),
		connectedComponentID: make([]ConnectedComponentID, 0, capacity),
		connectivityVisitSeq: make([]SequenceNumber, 0, capacity),
		isPinned:             make([]bool, 0, capacity),

		color:              make([]RGBA, 0, capacity),
		textureCoordinates: make([]Vec2, 0, capacity),

		currentNumMechanicalDynamicsIterations: params.NumMechanicalDynamicsIterations,
	}
	return p
}

// Add appends a permanent ship point. The ship builder is the only
// caller; exhausting the fixed capacity is a programming error.
func (p *Points) Add(
	position Vec2,
	structuralMaterial *data.StructuralMaterial,
	electricalMaterial *data.ElectricalMaterial,
	isRope bool,
	electricalElementIndex ElementIndex,
	isLeaking bool,
	color RGBA,
	textureCoordinates Vec2,
) ElementIndex {
	index := ElementIndex(len(p.isDeleted))
	if index >= p.shipPointCount {
		panic(fmt.Sprintf("points: Add beyond ship point capacity %d", p.shipPointCount))
	}

	p.isDeleted = append(p.isDeleted, false)

	p.structuralMaterial = append(p.structuralMaterial, structuralMaterial)
	p.electricalMaterial = append(p.electricalMaterial, electricalMaterial)
	p.isRope = append(p.isRope, isRope)

	p.position = append(p.position, position)
	p.velocity = append(p.velocity, Vec2{})
	p.force = append(p.force, Vec2{})
	p.mass = append(p.mass, structuralMaterial.Mass())
	p.integrationFactorTimeCoefficient = append(p.integrationFactorTimeCoefficient,
		calculateIntegrationFactorTimeCoefficient(p.currentNumMechanicalDynamicsIterations))

	// Recomputed every step
	p.totalMass = append(p.totalMass, 0)
	p.integrationFactor = append(p.integrationFactor, Vec2{})

	p.isHull = append(p.isHull, structuralMaterial.IsHull)
	p.waterVolumeFill = append(p.waterVolumeFill, structuralMaterial.WaterIntake)
	p.waterRestitution = append(p.waterRestitution, 1.0-structuralMaterial.WaterRetention)
	p.waterDiffusionSpeed = append(p.waterDiffusionSpeed, structuralMaterial.WaterDiffusionSpeed)

	p.water = append(p.water, 0)
	p.waterVelocity = append(p.waterVelocity, Vec2{})
	p.waterMomentum = append(p.waterMomentum, Vec2{})
	p.isLeaking = append(p.isLeaking, isLeaking)

	p.temperature = append(p.temperature, p.defaultTemperature)

	p.electricalElement = append(p.electricalElement, electricalElementIndex)
	p.light = append(p.light, 0)
	p.highlightColor = append(p.highlightColor, RGB{})
	p.highlightStartTime = append(p.highlightStartTime, time.Time{})
	p.highlightActive = append(p.highlightActive, false)

	p.ephemeralType = append(p.ephemeralType, EphemeralTypeNone)
	p.ephemeralStartTime = append(p.ephemeralStartTime, 0)
	p.ephemeralMaxLifetime = append(p.ephemeralMaxLifetime, 0)
	p.ephemeralState = append(p.ephemeralState, EphemeralState{})

	p.connectedSprings = append(p.connectedSprings, nil)
	p.connectedComponentID = append(p.connectedComponentID, NoneConnectedComponentID)
	p.connectivityVisitSeq = append(p.connectivityVisitSeq, 0)
	p.isPinned = append(p.isPinned, false)

	p.color = append(p.color, color)
	p.textureCoordinates = append(p.textureCoordinates, textureCoordinates)

	return index
}

// AddEphemeralRange appends the recyclable ephemeral slots. Called once
// by the ship builder after every permanent point has been added; free
// slots hold the air material so the total-mass invariant holds for
// every row.
func (p *Points) AddEphemeralRange() {
	if ElementIndex(len(p.isDeleted)) != p.shipPointCount {
		panic("points: AddEphemeralRange before all ship points were added")
	}
	for i := ElementIndex(0); i < p.ephemeralPointCap; i++ {
		p.isDeleted = append(p.isDeleted, false)

		p.structuralMaterial = append(p.structuralMaterial, p.airMaterial)
		p.electricalMaterial = append(p.electricalMaterial, nil)
		p.isRope = append(p.isRope, false)

		p.position = append(p.position, Vec2{})
		p.velocity = append(p.velocity, Vec2{})
		p.force = append(p.force, Vec2{})
		p.mass = append(p.mass, p.airMaterial.Mass())
		p.integrationFactorTimeCoefficient = append(p.integrationFactorTimeCoefficient, 0)

		p.totalMass = append(p.totalMass, 0)
		p.integrationFactor = append(p.integrationFactor, Vec2{})

		p.isHull = append(p.isHull, false)
		p.waterVolumeFill = append(p.waterVolumeFill, 0)
		p.waterRestitution = append(p.waterRestitution, 1)
		p.waterDiffusionSpeed = append(p.waterDiffusionSpeed, 0)

		p.water = append(p.water, 0)
		p.waterVelocity = append(p.waterVelocity, Vec2{})
		p.waterMomentum = append(p.waterMomentum, Vec2{})
		p.isLeaking = append(p.isLeaking, false)

		p.temperature = append(p.temperature, p.defaultTemperature)

		p.electricalElement = append(p.electricalElement, NoneElementIndex)
		p.light = append(p.light, 0)
		p.highlightColor = append(p.highlightColor, RGB{})
		p.highlightStartTime = append(p.highlightStartTime, time.Time{})
		p.highlightActive = append(p.highlightActive, false)

		p.ephemeralType = append(p.ephemeralType, EphemeralTypeNone)
		p.ephemeralStartTime = append(p.ephemeralStartTime, 0)
		p.ephemeralMaxLifetime = append(p.ephemeralMaxLifetime, 0)
		p.ephemeralState = append(p.ephemeralState, EphemeralState{})

		p.connectedSprings = append(p.connectedSprings, nil)
		p.connectedComponentID = append(p.connectedComponentID, NoneConnectedComponentID)
		p.connectivityVisitSeq = append(p.connectivityVisitSeq, 0)
		p.isPinned = append(p.isPinned, false)

		p.color = append(p.color, RGBA{})
		p.textureCoordinates = append(p.textureCoordinates, Vec2{})
	}
	p.allPointCount = p.shipPointCount + p.ephemeralPointCap
	p.freeEphemeralParticleSearchStart = p.shipPointCount
}

// Destroy flags a permanent point deleted, after letting the spring
// network react, and removes it from the physical world: zero position,
// velocity, water transport and integration coefficient so the slot no
// longer perturbs the simulation.
func (p *Points) Destroy(pointIndex ElementIndex, currentSimulationTime float64, params *Params) {
	if p.isDeleted[pointIndex] {
		panic(fmt.Sprintf("points: Destroy of already-deleted point %d", pointIndex))
	}

	if p.destroyHandler != nil {
		p.destroyHandler(pointIndex, currentSimulationTime, params)
	}

	p.gameEventHandler.OnPointDestroyed(
		p.structuralMaterial[pointIndex],
		p.world.IsUnderwater(p.position[pointIndex]),
		1)

	p.isDeleted[pointIndex] = true

	p.position[pointIndex] = Vec2{}
	p.velocity[pointIndex] = Vec2{}
	p.integrationFactorTimeCoefficient[pointIndex] = 0
	p.waterVelocity[pointIndex] = Vec2{}
	p.waterMomentum[pointIndex] = Vec2{}
	p.light[pointIndex] = 0
}

// Restore clears a permanent point's deleted flag. The caller is
// responsible for re-linking springs and the electrical element.
func (p *Points) Restore(pointIndex ElementIndex) {
	if !p.isDeleted[pointIndex] {
		panic(fmt.Sprintf("points: Restore of non-deleted point %d", pointIndex))
	}

	p.isDeleted[pointIndex] = false
	p.integrationFactorTimeCoefficient[pointIndex] =
		calculateIntegrationFactorTimeCoefficient(p.currentNumMechanicalDynamicsIterations)
}

// Freeze zeroes a point's dynamic state so it stops drifting.
func (p *Points) Freeze(pointIndex ElementIndex) {
	p.velocity[pointIndex] = Vec2{}
	p.force[pointIndex] = Vec2{}
	p.waterVelocity[pointIndex] = Vec2{}
	p.waterMomentum[pointIndex] = Vec2{}
}

// UpdateForGameParameters reacts to tuning changes; today only the
// mechanical iteration count feeds a cached per-point coefficient.
func (p *Points) UpdateForGameParameters(params *Params) {
	if params.NumMechanicalDynamicsIterations != p.currentNumMechanicalDynamicsIterations {
		coefficient := calculateIntegrationFactorTimeCoefficient(params.NumMechanicalDynamicsIterations)
		for i := range p.integrationFactorTimeCoefficient {
			if !p.isDeleted[i] {
				p.integrationFactorTimeCoefficient[i] = coefficient
			}
		}
		p.currentNumMechanicalDynamicsIterations = params.NumMechanicalDynamicsIterations
	}
}

// UpdateTotalMasses recomputes every point's total mass (material mass
// plus entrained water mass) and the integration factor derived from
// it. Must run once per step before any integration consumes it.
func (p *Points) UpdateTotalMasses(params *Params) {
	densityAdjustedWaterMass := waterMass * params.WaterDensityAdjustment

	for i := range p.totalMass {
		w := p.water[i]
		if fill := p.waterVolumeFill[i]; w > fill {
			w = fill
		}
		totalMass := p.mass[i] + w*densityAdjustedWaterMass
		if totalMass <= 0 {
			panic(fmt.Sprintf("points: non-positive total mass at point %d", i))
		}

		p.totalMass[i] = totalMass

		f := p.integrationFactorTimeCoefficient[i] / totalMass
		p.integrationFactor[i] = Vec2{f, f}
	}
}

// UpdateHighlights expires notification highlights.
func (p *Points) UpdateHighlights(currentWallclockTime time.Time) {
	for i := range p.highlightActive {
		if p.highlightActive[i] &&
			currentWallclockTime.Sub(p.highlightStartTime[i]) >= pointHighlightDuration {
			p.highlightActive[i] = false
		}
	}
}

// StartPointHighlight begins a visual highlight on a point.
func (p *Points) StartPointHighlight(pointIndex ElementIndex, color RGB, currentWallclockTime time.Time) {
	p.highlightColor[pointIndex] = color
	p.highlightStartTime[pointIndex] = currentWallclockTime
	p.highlightActive[pointIndex] = true
}

//
// Accessors. Mutators exist for the quantities owned by external
// collaborators (the water and heat layers); everything else is owned
// by this container.
//

func (p *Points) ShipPointCount() uint32      { return uint32(p.shipPointCount) }
func (p *Points) EphemeralPointCount() uint32 { return uint32(p.ephemeralPointCap) }
func (p *Points) AllPointCount() uint32       { return uint32(len(p.isDeleted)) }

func (p *Points) IsDeleted(pointIndex ElementIndex) bool { return p.isDeleted[pointIndex] }

func (p *Points) GetStructuralMaterial(pointIndex ElementIndex) *data.StructuralMaterial {
	return p.structuralMaterial[pointIndex]
}

func (p *Points) GetElectricalMaterial(pointIndex ElementIndex) *data.ElectricalMaterial {
	return p.electricalMaterial[pointIndex]
}

func (p *Points) IsRope(pointIndex ElementIndex) bool { return p.isRope[pointIndex] }

func (p *Points) GetPosition(pointIndex ElementIndex) Vec2 { return p.position[pointIndex] }
func (p *Points) SetPosition(pointIndex ElementIndex, position Vec2) {
	p.position[pointIndex] = position
}

func (p *Points) GetVelocity(pointIndex ElementIndex) Vec2 { return p.velocity[pointIndex] }
func (p *Points) SetVelocity(pointIndex ElementIndex, velocity Vec2) {
	p.velocity[pointIndex] = velocity
}

func (p *Points) GetForce(pointIndex ElementIndex) Vec2 { return p.force[pointIndex] }
func (p *Points) AddForce(pointIndex ElementIndex, force Vec2) {
	p.force[pointIndex] = p.force[pointIndex].Add(force)
}

func (p *Points) GetMass(pointIndex ElementIndex) float64      { return p.mass[pointIndex] }
func (p *Points) GetTotalMass(pointIndex ElementIndex) float64 { return p.totalMass[pointIndex] }
func (p *Points) GetIntegrationFactor(pointIndex ElementIndex) Vec2 {
	return p.integrationFactor[pointIndex]
}

func (p *Points) GetWater(pointIndex ElementIndex) float64 { return p.water[pointIndex] }
func (p *Points) SetWater(pointIndex ElementIndex, water float64) {
	p.water[pointIndex] = water
}

// IsWet reports whether the point's water content exceeds the given
// normalized threshold.
func (p *Points) IsWet(pointIndex ElementIndex, threshold float64) bool {
	return p.water[pointIndex] > threshold
}

func (p *Points) IsLeaking(pointIndex ElementIndex) bool { return p.isLeaking[pointIndex] }
func (p *Points) SetLeaking(pointIndex ElementIndex)     { p.isLeaking[pointIndex] = true }

func (p *Points) GetTemperature(pointIndex ElementIndex) float64 {
	return p.temperature[pointIndex]
}

func (p *Points) SetTemperature(pointIndex ElementIndex, temperature float64) {
	p.temperature[pointIndex] = temperature
}

// AddHeat injects heat (J) into a point, scaled by the material's heat
// capacity into a temperature delta.
func (p *Points) AddHeat(pointIndex ElementIndex, heat float64) {
	p.temperature[pointIndex] += heat / p.structuralMaterial[pointIndex].HeatCapacity()
}

// SetElectricalElement binds a point to its electrical element. Called
// by the ship builder, which creates electrical elements after points.
func (p *Points) SetElectricalElement(pointIndex, electricalElementIndex ElementIndex) {
	p.electricalElement[pointIndex] = electricalElementIndex
}

func (p *Points) GetElectricalElement(pointIndex ElementIndex) ElementIndex {
	return p.electricalElement[pointIndex]
}

func (p *Points) GetLight(pointIndex ElementIndex) float64 { return p.light[pointIndex] }
func (p *Points) SetLight(pointIndex ElementIndex, light float64) {
	p.light[pointIndex] = light
}

func (p *Points) GetConnectedComponentID(pointIndex ElementIndex) ConnectedComponentID {
	return p.connectedComponentID[pointIndex]
}

func (p *Points) SetConnectedComponentID(pointIndex ElementIndex, id ConnectedComponentID) {
	p.connectedComponentID[pointIndex] = id
}

func (p *Points) IsPinned(pointIndex ElementIndex) bool { return p.isPinned[pointIndex] }
func (p *Points) Pin(pointIndex ElementIndex)           { p.isPinned[pointIndex] = true }
func (p *Points) Unpin(pointIndex ElementIndex)         { p.isPinned[pointIndex] = false }

// ConnectSpring records a spring attached to this point.
func (p *Points) ConnectSpring(pointIndex, springIndex ElementIndex) {
	p.connectedSprings[pointIndex] = append(p.connectedSprings[pointIndex], springIndex)
}

// DisconnectSpring removes a spring from this point's bookkeeping.
func (p *Points) DisconnectSpring(pointIndex, springIndex ElementIndex) {
	springs := p.connectedSprings[pointIndex]
	for i, s := range springs {
		if s == springIndex {
			springs[i] = springs[len(springs)-1]
			p.connectedSprings[pointIndex] = springs[:len(springs)-1]
			return
		}
	}
}

// ConnectedSprings returns the point's attached spring indices. The
// returned slice is owned by the container.
func (p *Points) ConnectedSprings(pointIndex ElementIndex) []ElementIndex {
	return p.connectedSprings[pointIndex]
}

//
// Render-facing bulk views. Read-only by contract; only the external
// renderer may call these, and only between steps.
//

func (p *Points) PositionBuffer() []Vec2              { return p.position }
func (p *Points) LightBuffer() []float64              { return p.light }
func (p *Points) WaterBuffer() []float64              { return p.water }
func (p *Points) ColorBuffer() []RGBA                 { return p.color }
func (p *Points) TextureCoordinatesBuffer() []Vec2    { return p.textureCoordinates }

// AreEphemeralParticlesDirty gates expensive ephemeral re-uploads.
func (p *Points) AreEphemeralParticlesDirty() bool { return p.areEphemeralParticlesDirty }

// MarkEphemeralParticlesClean is called by the renderer after a
// successful upload.
func (p *Points) MarkEphemeralParticlesClean() { p.areEphemeralParticlesDirty = false }
