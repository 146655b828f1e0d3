package sim

import "time"

// Fixed per-step simulation duration. Every Update advances the
// simulation clock by exactly this much, independent of wall time.
const SimulationStepTimeDuration = 0.02 // s

// SimulationStepWallDuration is the pacing interval for real-time runs.
const SimulationStepWallDuration = time.Duration(SimulationStepTimeDuration * float64(time.Second))

// Mass of 1m³ of water, adjusted per-run by WaterDensityAdjustment.
const waterMass = 1000.0 // Kg

// Params is the global tuning surface consumed, never owned, by the
// per-step update entry points of both containers.
type Params struct {
	WaterDensityAdjustment                  float64
	NumMechanicalDynamicsIterations         float64
	LuminiscenceAdjustment                  float64
	LightSpreadAdjustment                   float64
	ElectricalElementHeatProducedAdjustment float64
	SmokeEmissionDensityAdjustment          float64
	AirTemperature                          float64 // K
	DoShowElectricalNotifications           bool
}

// DefaultParams returns the neutral tuning used when a run does not
// override anything.
func DefaultParams() Params {
	return Params{
		WaterDensityAdjustment:                  1.0,
		NumMechanicalDynamicsIterations:         24.0,
		LuminiscenceAdjustment:                  1.0,
		LightSpreadAdjustment:                   1.0,
		ElectricalElementHeatProducedAdjustment: 1.0,
		SmokeEmissionDensityAdjustment:          1.0,
		AirTemperature:                          298.15,
		DoShowElectricalNotifications:           true,
	}
}

// calculateIntegrationFactorTimeCoefficient derives the per-point time
// coefficient of the integration factor: the square of one mechanical
// sub-step's duration.
func calculateIntegrationFactorTimeCoefficient(numMechanicalDynamicsIterations float64) float64 {
	dt := SimulationStepTimeDuration / numMechanicalDynamicsIterations
	return dt * dt
}
