package sim

import (
	"math"
	"time"
)

// Lamp state machine timing. Wall-clock based so the flicker cadence
// stays constant regardless of simulation speed.
const (
	lampWetFailureCheckInterval = 1 * time.Second
	flickerStartInterval        = 100 * time.Millisecond
	flickerAInterval            = 150 * time.Millisecond
	flickerBInterval            = 100 * time.Millisecond
)

type lampStateType uint8

const (
	lampStateInitial lampStateType = iota
	lampStateLightOn
	lampStateFlickerA
	lampStateFlickerB
	lampStateLightOff
)

type lampState struct {
	isSelfPowered bool

	// Probability that a wet lamp fails within one check interval
	wetFailureRateCdf float64

	state                   lampStateType
	flickerCounter          uint8
	nextStateTransitionTime time.Time
	nextWetFailureCheckTime time.Time
}

func newLampState(isSelfPowered bool, wetFailureRate float64) lampState {
	return lampState{
		isSelfPowered:     isSelfPowered,
		wetFailureRateCdf: 1.0 - math.Exp(-wetFailureRate/60.0),
		state:             lampStateInitial,
	}
}

// reset returns the lamp to its initial state, as after a repair.
func (l *lampState) reset() {
	l.state = lampStateInitial
	l.flickerCounter = 0
	l.nextStateTransitionTime = time.Time{}
	l.nextWetFailureCheckTime = time.Time{}
}

// runLampStateMachine advances one lamp one step. Power is read off the
// connectivity flood's sequence number; wetness and temperature come
// from the owning point.
func (e *ElectricalElements) runLampStateMachine(
	lampElementIndex ElementIndex,
	currentWallclockTime time.Time,
	currentConnectivityVisitSeq SequenceNumber,
	points *Points,
) {
	lamp := &e.elementState[lampElementIndex].lamp
	lampPointIndex := e.pointIndex[lampElementIndex]
	temperatures := e.materialOperatingTemperatures[lampElementIndex]

	isPowered := lamp.isSelfPowered ||
		e.connectivityVisitSeq[lampElementIndex] == currentConnectivityVisitSeq

	switch lamp.state {
	case lampStateInitial:
		if isPowered && temperatures.IsInRange(points.GetTemperature(lampPointIndex)) {
			e.availableLight[lampElementIndex] = 1.0
			lamp.state = lampStateLightOn
			lamp.nextWetFailureCheckTime = currentWallclockTime.Add(lampWetFailureCheckInterval)
		} else {
			e.availableLight[lampElementIndex] = 0.0
			lamp.state = lampStateLightOff
		}

	case lampStateLightOn:
		if !isPowered ||
			(points.IsWet(lampPointIndex, lampWetFailureWaterThreshold) &&
				lamp.checkWetFailureTime(e.rng, currentWallclockTime)) ||
			!temperatures.IsInRange(points.GetTemperature(lampPointIndex)) {

			e.availableLight[lampElementIndex] = 0.0

			if e.hasSwitchBeenToggledInStep {
				// Graceful shutdown, no flicker drama
				lamp.state = lampStateLightOff
			} else {
				lamp.flickerCounter = 0
				lamp.nextStateTransitionTime = currentWallclockTime.Add(flickerStartInterval)
				if e.rng.Intn(2) == 0 {
					lamp.state = lampStateFlickerA
				} else {
					lamp.state = lampStateFlickerB
				}
			}
		}

	case lampStateFlickerA:
		// On - off - on - off for good

		if e.lampRestorationCondition(lampElementIndex, lamp, currentConnectivityVisitSeq, points) {
			e.availableLight[lampElementIndex] = 1.0
			lamp.state = lampStateLightOn
		} else if !currentWallclockTime.Before(lamp.nextStateTransitionTime) {
			lamp.flickerCounter++

			switch lamp.flickerCounter {
			case 1, 3:
				e.availableLight[lampElementIndex] = 1.0
				e.gameEventHandler.OnLightFlicker(
					DurationShort,
					e.world.IsUnderwater(points.GetPosition(lampPointIndex)),
					1)
				lamp.nextStateTransitionTime = currentWallclockTime.Add(flickerAInterval)

			case 2:
				e.availableLight[lampElementIndex] = 0.0
				lamp.nextStateTransitionTime = currentWallclockTime.Add(flickerAInterval)

			case 4:
				e.availableLight[lampElementIndex] = 0.0
				lamp.state = lampStateLightOff

			default:
				panic("lamp: flicker A counter out of range")
			}
		}

	case lampStateFlickerB:
		// On - off - on, longer - off - on - off for good

		if e.lampRestorationCondition(lampElementIndex, lamp, currentConnectivityVisitSeq, points) {
			e.availableLight[lampElementIndex] = 1.0
			lamp.state = lampStateLightOn
		} else if !currentWallclockTime.Before(lamp.nextStateTransitionTime) {
			lamp.flickerCounter++

			switch lamp.flickerCounter {
			case 1, 5:
				e.availableLight[lampElementIndex] = 1.0
				e.gameEventHandler.OnLightFlicker(
					DurationShort,
					e.world.IsUnderwater(points.GetPosition(lampPointIndex)),
					1)
				lamp.nextStateTransitionTime = currentWallclockTime.Add(flickerBInterval)

			case 2, 4:
				e.availableLight[lampElementIndex] = 0.0
				lamp.nextStateTransitionTime = currentWallclockTime.Add(flickerBInterval)

			case 3:
				e.availableLight[lampElementIndex] = 1.0
				e.gameEventHandler.OnLightFlicker(
					DurationLong,
					e.world.IsUnderwater(points.GetPosition(lampPointIndex)),
					1)
				lamp.nextStateTransitionTime = currentWallclockTime.Add(2 * flickerBInterval)

			case 6:
				e.availableLight[lampElementIndex] = 0.0
				lamp.state = lampStateLightOff

			default:
				panic("lamp: flicker B counter out of range")
			}
		}

	case lampStateLightOff:
		if e.availableLight[lampElementIndex] != 0 {
			panic("lamp: light off with non-zero available light")
		}

		if e.lampRestorationCondition(lampElementIndex, lamp, currentConnectivityVisitSeq, points) {
			e.availableLight[lampElementIndex] = 1.0
			lamp.state = lampStateLightOn

			// Lets audio react to the power-up
			e.gameEventHandler.OnLightFlicker(
				DurationShort,
				e.world.IsUnderwater(points.GetPosition(lampPointIndex)),
				1)
		}
	}
}

// lampRestorationCondition tells whether a failed lamp may turn back
// on: powered again, dry, and temperature back in range.
func (e *ElectricalElements) lampRestorationCondition(
	lampElementIndex ElementIndex,
	lamp *lampState,
	currentConnectivityVisitSeq SequenceNumber,
	points *Points,
) bool {
	lampPointIndex := e.pointIndex[lampElementIndex]
	return (lamp.isSelfPowered ||
		e.connectivityVisitSeq[lampElementIndex] == currentConnectivityVisitSeq) &&
		!points.IsWet(lampPointIndex, lampWetFailureWaterThreshold) &&
		e.materialOperatingTemperatures[lampElementIndex].IsBackInRange(points.GetTemperature(lampPointIndex))
}

// checkWetFailureTime samples the wet-failure Bernoulli trial, at most
// once per check interval.
func (l *lampState) checkWetFailureTime(rng randSource, currentWallclockTime time.Time) bool {
	isFailure := false
	if !currentWallclockTime.Before(l.nextWetFailureCheckTime) {
		isFailure = rng.Float64() < l.wetFailureRateCdf
		l.nextWetFailureCheckTime = currentWallclockTime.Add(lampWetFailureCheckInterval)
	}
	return isFailure
}

// randSource is the subset of math/rand used by the lamp machine; tests
// substitute deterministic sources.
type randSource interface {
	Float64() float64
}
