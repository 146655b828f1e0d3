package sim

import (
	"time"

	"github.com/matschaffer/Floating-Sandbox/internal/data"
)

// EphemeralType tags an ephemeral slot. None marks the slot free for
// reuse; any other tag marks it live and renderable.
type EphemeralType int

const (
	EphemeralTypeNone EphemeralType = iota
	EphemeralTypeDebris
	EphemeralTypeSparkle
	EphemeralTypeAirBubble
	EphemeralTypeSmoke
)

// EphemeralState carries the per-kind animation payload; the ephemeral
// type column is the discriminant for which member is live. Keeping the
// payload inline keeps the column cache-dense and avoids dispatching
// through an interface.
type EphemeralState struct {
	Sparkle   SparkleState
	AirBubble AirBubbleState
	Smoke     SmokeState
}

// SparkleState animates a sparkle through its texture frames.
type SparkleState struct {
	FrameIndex int
	Progress   float64 // normalized elapsed lifetime
}

// AirBubbleState drives a bubble's sideways vortex wiggle.
type AirBubbleState struct {
	VortexAmplitude float64
	VortexPeriod    float64 // s
	VortexPhase     float64 // radians
	Progress        float64
}

// SmokeState grows a smoke puff over its lifetime.
type SmokeState struct {
	GrowthProgress float64
}

// Smoke particle lifetime bounds.
const (
	smokeMinLifetime = 3500 * time.Millisecond
	smokeMaxLifetime = 4500 * time.Millisecond
)

// CreateEphemeralParticleDebris spawns a debris particle into a free
// (or stolen) ephemeral slot.
func (p *Points) CreateEphemeralParticleDebris(
	position Vec2,
	velocity Vec2,
	structuralMaterial *data.StructuralMaterial,
	currentSimulationTime float64,
	maxLifetime time.Duration,
	connectedComponentID ConnectedComponentID,
) {
	pointIndex := p.findFreeEphemeralParticle(currentSimulationTime)

	p.resetEphemeralSlot(pointIndex, position, velocity, structuralMaterial)

	p.ephemeralType[pointIndex] = EphemeralTypeDebris
	p.ephemeralStartTime[pointIndex] = currentSimulationTime
	p.ephemeralMaxLifetime[pointIndex] = maxLifetime.Seconds()
	p.ephemeralState[pointIndex] = EphemeralState{}
	p.connectedComponentID[pointIndex] = connectedComponentID

	c := structuralMaterial.RenderColor
	p.color[pointIndex] = RGBA{float64(c.R) / 255, float64(c.G) / 255, float64(c.B) / 255, 1}

	p.areEphemeralParticlesDirty = true
}

// CreateEphemeralParticleSparkle spawns a sparkle particle with a
// randomly chosen texture frame.
func (p *Points) CreateEphemeralParticleSparkle(
	position Vec2,
	velocity Vec2,
	structuralMaterial *data.StructuralMaterial,
	currentSimulationTime float64,
	maxLifetime time.Duration,
	connectedComponentID ConnectedComponentID,
) {
	pointIndex := p.findFreeEphemeralParticle(currentSimulationTime)

	p.resetEphemeralSlot(pointIndex, position, velocity, structuralMaterial)

	p.ephemeralType[pointIndex] = EphemeralTypeSparkle
	p.ephemeralStartTime[pointIndex] = currentSimulationTime
	p.ephemeralMaxLifetime[pointIndex] = maxLifetime.Seconds()
	p.ephemeralState[pointIndex] = EphemeralState{
		Sparkle: SparkleState{FrameIndex: p.rng.Intn(2)},
	}
	p.connectedComponentID[pointIndex] = connectedComponentID

	p.areEphemeralParticlesDirty = true
}

// CreateEphemeralParticleAirBubble spawns a rising air bubble made of
// the air material.
func (p *Points) CreateEphemeralParticleAirBubble(
	position Vec2,
	currentSimulationTime float64,
	maxLifetime time.Duration,
	connectedComponentID ConnectedComponentID,
) {
	pointIndex := p.findFreeEphemeralParticle(currentSimulationTime)

	p.resetEphemeralSlot(pointIndex, position, Vec2{}, p.airMaterial)

	p.ephemeralType[pointIndex] = EphemeralTypeAirBubble
	p.ephemeralStartTime[pointIndex] = currentSimulationTime
	p.ephemeralMaxLifetime[pointIndex] = maxLifetime.Seconds()
	p.ephemeralState[pointIndex] = EphemeralState{
		AirBubble: AirBubbleState{
			VortexAmplitude: 0.05 + 0.15*p.rng.Float64(),
			VortexPeriod:    1.0 + p.rng.Float64(),
		},
	}
	p.connectedComponentID[pointIndex] = connectedComponentID

	p.areEphemeralParticlesDirty = true
}

// CreateEphemeralParticleLightSmoke spawns a smoke puff made of the air
// material, at the given temperature, with a randomized lifetime.
func (p *Points) CreateEphemeralParticleLightSmoke(
	position Vec2,
	temperature float64,
	currentSimulationTime float64,
	connectedComponentID ConnectedComponentID,
) {
	pointIndex := p.findFreeEphemeralParticle(currentSimulationTime)

	p.resetEphemeralSlot(pointIndex, position, Vec2{}, p.airMaterial)

	lifetimeRange := (smokeMaxLifetime - smokeMinLifetime).Seconds()
	maxLifetime := smokeMinLifetime.Seconds() + p.rng.Float64()*lifetimeRange

	p.temperature[pointIndex] = temperature

	p.ephemeralType[pointIndex] = EphemeralTypeSmoke
	p.ephemeralStartTime[pointIndex] = currentSimulationTime
	p.ephemeralMaxLifetime[pointIndex] = maxLifetime
	p.ephemeralState[pointIndex] = EphemeralState{}
	p.connectedComponentID[pointIndex] = connectedComponentID

	p.areEphemeralParticlesDirty = true
}

// resetEphemeralSlot overwrites the columns shared by all ephemeral
// kinds.
func (p *Points) resetEphemeralSlot(
	pointIndex ElementIndex,
	position Vec2,
	velocity Vec2,
	structuralMaterial *data.StructuralMaterial,
) {
	if p.isDeleted[pointIndex] {
		panic("points: ephemeral slot is flagged deleted")
	}

	p.position[pointIndex] = position
	p.velocity[pointIndex] = velocity
	p.force[pointIndex] = Vec2{}
	p.mass[pointIndex] = structuralMaterial.Mass()
	p.structuralMaterial[pointIndex] = structuralMaterial
	p.electricalMaterial[pointIndex] = nil
	p.integrationFactorTimeCoefficient[pointIndex] =
		calculateIntegrationFactorTimeCoefficient(p.currentNumMechanicalDynamicsIterations)

	p.waterVolumeFill[pointIndex] = 0
	p.water[pointIndex] = 0

	p.temperature[pointIndex] = p.defaultTemperature
	p.light[pointIndex] = 0
}

// UpdateEphemeralParticles expires and animates live ephemeral slots.
// An expired particle is frozen and demoted to None, which makes the
// slot immediately reclaimable.
func (p *Points) UpdateEphemeralParticles(currentSimulationTime float64) {
	for pointIndex := p.shipPointCount; pointIndex < p.allPointCount; pointIndex++ {
		ephemeralType := p.ephemeralType[pointIndex]
		if ephemeralType == EphemeralTypeNone {
			continue
		}

		elapsedLifetime := currentSimulationTime - p.ephemeralStartTime[pointIndex]
		if elapsedLifetime >= p.ephemeralMaxLifetime[pointIndex] {
			// Freeze first so the dead slot does not drift, then hide
			// it from rendering and the allocator.
			p.Freeze(pointIndex)
			p.ephemeralType[pointIndex] = EphemeralTypeNone
			p.areEphemeralParticlesDirty = true
			continue
		}

		progress := elapsedLifetime / p.ephemeralMaxLifetime[pointIndex]

		switch ephemeralType {
		case EphemeralTypeDebris:
			// Linear fade-out over the remaining lifetime
			alpha := 1.0 - progress
			if alpha < 0 {
				alpha = 0
			}
			p.color[pointIndex].A = alpha

		case EphemeralTypeSparkle:
			p.ephemeralState[pointIndex].Sparkle.Progress = progress

		case EphemeralTypeAirBubble:
			state := &p.ephemeralState[pointIndex].AirBubble
			state.Progress = progress
			state.VortexPhase += SimulationStepTimeDuration / state.VortexPeriod

		case EphemeralTypeSmoke:
			p.ephemeralState[pointIndex].Smoke.GrowthProgress = progress
		}
	}
}

// GetEphemeralType returns the slot's kind tag.
func (p *Points) GetEphemeralType(pointIndex ElementIndex) EphemeralType {
	return p.ephemeralType[pointIndex]
}

// GetEphemeralStartTime returns the simulation time the particle was
// created at.
func (p *Points) GetEphemeralStartTime(pointIndex ElementIndex) float64 {
	return p.ephemeralStartTime[pointIndex]
}

// GetEphemeralState returns the slot's animation payload.
func (p *Points) GetEphemeralState(pointIndex ElementIndex) EphemeralState {
	return p.ephemeralState[pointIndex]
}

// findFreeEphemeralParticle returns the index of a free ephemeral slot,
// scanning circularly from the remembered cursor. When every slot is
// live it steals the one with the largest elapsed lifetime instead of
// failing, so a slot is always returned; callers must expect particles
// to be silently evicted under load.
func (p *Points) findFreeEphemeralParticle(currentSimulationTime float64) ElementIndex {
	if p.allPointCount == 0 || p.ephemeralPointCap == 0 {
		panic("points: no ephemeral range")
	}

	oldestParticle := NoneElementIndex
	oldestParticleLifetime := 0.0

	for pointIndex := p.freeEphemeralParticleSearchStart; ; {
		if p.ephemeralType[pointIndex] == EphemeralTypeNone {
			// Free slot; next search starts after it for round-robin
			// fairness.
			p.freeEphemeralParticleSearchStart = p.nextEphemeralIndex(pointIndex)
			return pointIndex
		}

		if lifetime := currentSimulationTime - p.ephemeralStartTime[pointIndex]; lifetime >= oldestParticleLifetime {
			oldestParticle = pointIndex
			oldestParticleLifetime = lifetime
		}

		pointIndex = p.nextEphemeralIndex(pointIndex)
		if pointIndex == p.freeEphemeralParticleSearchStart {
			// Went around
			break
		}
	}

	// No free slot; steal the oldest
	p.freeEphemeralParticleSearchStart = p.nextEphemeralIndex(oldestParticle)
	return oldestParticle
}

func (p *Points) nextEphemeralIndex(pointIndex ElementIndex) ElementIndex {
	pointIndex++
	if pointIndex >= p.allPointCount {
		pointIndex = p.shipPointCount
	}
	return pointIndex
}
