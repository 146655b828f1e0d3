package sim

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/matschaffer/Floating-Sandbox/internal/data"
)

// Notification highlight colors.
var (
	powerOnHighlightColor  = RGB{0x02, 0x5e, 0x1e}
	powerOffHighlightColor = RGB{0xb5, 0x00, 0x00}
)

// Water thresholds for the state machines.
const (
	generatorWetThreshold        = 0.3
	lampWetFailureWaterThreshold = 0.1
	waterSwitchLowWatermark      = 0.15
	waterSwitchHighWatermark     = 0.45
)

// conductivity pairs the material's default with the element's current
// state; switches are the only elements where the two diverge.
type conductivity struct {
	materialConductsElectricity bool
	conductsElectricity         bool
}

// generatorState is the source state machine payload.
type generatorState struct {
	isProducingCurrent bool
}

type otherSinkState struct {
	isPowered bool
}

type powerMonitorState struct {
	isPowered bool
}

type smokeEmitterState struct {
	emissionRate                    float64 // particles per second
	isOperating                     bool
	nextEmissionSimulationTimestamp float64 // 0 = needs scheduling
}

// elementState is the per-element tagged payload; the material type
// column is the discriminant for which member is live.
type elementState struct {
	generator    generatorState
	lamp         lampState
	otherSink    otherSinkState
	powerMonitor powerMonitorState
	smokeEmitter smokeEmitterState
}

type instanceInfo struct {
	instanceIndex InstanceIndex
}

// ElectricalElements is the struct-of-arrays electrical container. Each
// element references its owning point by index; the Sources, Sinks,
// Lamps and automatic-toggling subsets are plain index lists into the
// main columns for efficient iteration. Accessed only from the
// simulation goroutine — no locks needed.
type ElectricalElements struct {
	world            World
	gameEventHandler GameEventHandler
	physicsHandler   ElectricalPhysicsHandler
	rng              *rand.Rand

	isDeleted []bool

	// Identity
	pointIndex    []ElementIndex
	instanceInfos []instanceInfo

	// Material-derived, immutable per element
	materialType                  []data.ElectricalElementType
	materialHeatGenerated         []float64
	materialOperatingTemperatures []OperatingTemperatures
	materialLuminiscence          []float64
	materialLightColor            []data.RenderColor
	materialLightSpread           []float64

	// Mutable
	conductivity                []conductivity
	connectedElements           [][]ElementIndex
	conductingConnectedElements [][]ElementIndex
	availableLight              []float64
	connectivityVisitSeq        []SequenceNumber
	elementState                []elementState

	// Subsets
	sources                               []ElementIndex
	sinks                                 []ElementIndex
	lamps                                 []ElementIndex
	automaticConductivityTogglingElements []ElementIndex

	// Per-lamp render coefficients, parallel to the lamps subset
	lampRawDistanceCoefficient    []float64
	lampLightSpreadMaxDistance    []float64
	currentLightSpreadAdjustment  float64
	currentLuminiscenceAdjustment float64

	// Step-local flag consumed by the lamp state machine to tell a
	// graceful shutdown apart from a power failure.
	hasSwitchBeenToggledInStep bool

	// Reused BFS queue
	visitQueue []ElementIndex
}

// NewElectricalElements creates an empty container. The physics handler
// is attached later by the owning ship, which needs the container to
// exist first.
func NewElectricalElements(
	elementCount uint32,
	world World,
	gameEventHandler GameEventHandler,
	rng *rand.Rand,
	params *Params,
) *ElectricalElements {
	capacity := int(elementCount)
	return &ElectricalElements{
		world:            world,
		gameEventHandler: gameEventHandler,
		rng:              rng,

		isDeleted: make([]bool, 0, capacity),

		pointIndex:    make([]ElementIndex, 0, capacity),
		instanceInfos: make([]instanceInfo, 0, capacity),

		materialType:                  make([]data.ElectricalElementType, 0, capacity),
		materialHeatGenerated:         make([]float64, 0, capacity),
		materialOperatingTemperatures: make([]OperatingTemperatures, 0, capacity),
		materialLuminiscence:          make([]float64, 0, capacity),
		materialLightColor:            make([]data.RenderColor, 0, capacity),
		materialLightSpread:           make([]float64, 0, capacity),

		conductivity:                make([]conductivity, 0, capacity),
		connectedElements:           make([][]ElementIndex, 0, capacity),
		conductingConnectedElements: make([][]ElementIndex, 0, capacity),
		availableLight:              make([]float64, 0, capacity),
		connectivityVisitSeq:        make([]SequenceNumber, 0, capacity),
		elementState:                make([]elementState, 0, capacity),

		currentLightSpreadAdjustment:  params.LightSpreadAdjustment,
		currentLuminiscenceAdjustment: params.LuminiscenceAdjustment,
	}
}

// SetPhysicsHandler attaches the destroy/restore hook. Must be called
// before any Destroy or Restore.
func (e *ElectricalElements) SetPhysicsHandler(handler ElectricalPhysicsHandler) {
	e.physicsHandler = handler
}

// Add appends an element for the given owning point, initializes its
// type-specific state payload and registers it into the relevant
// subsets. Connectivity lists are populated later by the ship builder.
func (e *ElectricalElements) Add(
	pointElementIndex ElementIndex,
	instanceIndex InstanceIndex,
	material *data.ElectricalMaterial,
) ElementIndex {
	elementIndex := ElementIndex(len(e.isDeleted))

	e.isDeleted = append(e.isDeleted, false)
	e.pointIndex = append(e.pointIndex, pointElementIndex)
	e.materialType = append(e.materialType, material.ElementType)
	e.conductivity = append(e.conductivity, conductivity{
		materialConductsElectricity: material.ConductsElectricity,
		conductsElectricity:         material.ConductsElectricity,
	})
	e.materialHeatGenerated = append(e.materialHeatGenerated, material.HeatGenerated)
	e.materialOperatingTemperatures = append(e.materialOperatingTemperatures, OperatingTemperatures{
		Min: material.MinimumOperatingTemperature,
		Max: material.MaximumOperatingTemperature,
	})
	e.materialLuminiscence = append(e.materialLuminiscence, material.Luminiscence)
	e.materialLightColor = append(e.materialLightColor, material.LightColor)
	e.materialLightSpread = append(e.materialLightSpread, material.LightSpread)
	e.connectedElements = append(e.connectedElements, nil)
	e.conductingConnectedElements = append(e.conductingConnectedElements, nil)
	e.availableLight = append(e.availableLight, 0)
	e.connectivityVisitSeq = append(e.connectivityVisitSeq, 0)

	var state elementState
	switch material.ElementType {
	case data.ElectricalElementTypeGenerator:
		state.generator = generatorState{isProducingCurrent: true}
		e.sources = append(e.sources, elementIndex)

	case data.ElectricalElementTypeLamp:
		state.lamp = newLampState(material.IsSelfPowered, material.WetFailureRate)
		e.sinks = append(e.sinks, elementIndex)
		e.lamps = append(e.lamps, elementIndex)

		maxDistance := calculateLampLightSpreadMaxDistance(material.LightSpread, e.currentLightSpreadAdjustment)
		e.lampRawDistanceCoefficient = append(e.lampRawDistanceCoefficient,
			calculateLampRawDistanceCoefficient(material.Luminiscence, e.currentLuminiscenceAdjustment, maxDistance))
		e.lampLightSpreadMaxDistance = append(e.lampLightSpreadMaxDistance, maxDistance)

	case data.ElectricalElementTypeOtherSink:
		state.otherSink = otherSinkState{}
		e.sinks = append(e.sinks, elementIndex)

	case data.ElectricalElementTypePowerMonitor:
		state.powerMonitor = powerMonitorState{}
		e.sinks = append(e.sinks, elementIndex)

	case data.ElectricalElementTypeSmokeEmitter:
		state.smokeEmitter = smokeEmitterState{emissionRate: material.ParticleEmissionRate}
		e.sinks = append(e.sinks, elementIndex)

	case data.ElectricalElementTypeWaterSensingSwitch:
		e.automaticConductivityTogglingElements = append(e.automaticConductivityTogglingElements, elementIndex)

	case data.ElectricalElementTypeCable,
		data.ElectricalElementTypeInteractivePushSwitch,
		data.ElectricalElementTypeInteractiveToggleSwitch:
		// No state machine

	default:
		panic(fmt.Sprintf("electrical: unknown element type %v", material.ElementType))
	}
	e.elementState = append(e.elementState, state)

	e.instanceInfos = append(e.instanceInfos, instanceInfo{instanceIndex: instanceIndex})

	return elementIndex
}

// AnnounceInstancedElements publishes the electrical panel: instanced
// generators and power monitors as probes, all switch types as
// switches, bracketed by begin/end notifications.
func (e *ElectricalElements) AnnounceInstancedElements() {
	e.gameEventHandler.OnElectricalElementAnnouncementsBegin()

	for elementIndex := ElementIndex(0); elementIndex < ElementIndex(len(e.isDeleted)); elementIndex++ {
		switch e.materialType[elementIndex] {
		case data.ElectricalElementTypeGenerator:
			// Instanced generators double as power probes
			if e.instanceInfos[elementIndex].instanceIndex != NoneInstanceIndex {
				e.gameEventHandler.OnPowerProbeCreated(
					elementIndex,
					e.instanceInfos[elementIndex].instanceIndex,
					PowerProbeTypeGenerator,
					ElectricalState(e.elementState[elementIndex].generator.isProducingCurrent))
			}

		case data.ElectricalElementTypePowerMonitor:
			e.gameEventHandler.OnPowerProbeCreated(
				elementIndex,
				e.instanceInfos[elementIndex].instanceIndex,
				PowerProbeTypePowerMonitor,
				ElectricalState(e.elementState[elementIndex].powerMonitor.isPowered))

		case data.ElectricalElementTypeInteractivePushSwitch:
			e.gameEventHandler.OnSwitchCreated(
				elementIndex,
				e.instanceInfos[elementIndex].instanceIndex,
				SwitchTypeInteractivePush,
				ElectricalState(e.conductivity[elementIndex].conductsElectricity))

		case data.ElectricalElementTypeInteractiveToggleSwitch:
			e.gameEventHandler.OnSwitchCreated(
				elementIndex,
				e.instanceInfos[elementIndex].instanceIndex,
				SwitchTypeInteractiveToggle,
				ElectricalState(e.conductivity[elementIndex].conductsElectricity))

		case data.ElectricalElementTypeWaterSensingSwitch:
			e.gameEventHandler.OnSwitchCreated(
				elementIndex,
				e.instanceInfos[elementIndex].instanceIndex,
				SwitchTypeAutomatic,
				ElectricalState(e.conductivity[elementIndex].conductsElectricity))
		}
	}

	e.gameEventHandler.OnElectricalElementAnnouncementsEnd()
}

// Destroy flags an element deleted. The severing of its conducting
// adjacency is the physics handler's responsibility, as usual.
func (e *ElectricalElements) Destroy(elementIndex ElementIndex) {
	if e.isDeleted[elementIndex] {
		panic(fmt.Sprintf("electrical: Destroy of already-deleted element %d", elementIndex))
	}

	// A deleted element emits no light
	e.availableLight[elementIndex] = 0

	if e.materialType[elementIndex].IsSwitch() {
		e.gameEventHandler.OnSwitchEnabled(elementIndex, false)
	}

	e.physicsHandler.HandleElectricalElementDestroy(elementIndex)

	e.isDeleted[elementIndex] = true
}

// Restore undoes a destruction, resetting the element's state machine
// to its initial state where it has one.
func (e *ElectricalElements) Restore(elementIndex ElementIndex) {
	if !e.isDeleted[elementIndex] {
		panic(fmt.Sprintf("electrical: Restore of non-deleted element %d", elementIndex))
	}

	e.isDeleted[elementIndex] = false

	if e.materialType[elementIndex] == data.ElectricalElementTypeLamp {
		e.elementState[elementIndex].lamp.reset()
	}

	e.physicsHandler.HandleElectricalElementRestore(elementIndex)

	if e.materialType[elementIndex].IsSwitch() {
		e.gameEventHandler.OnSwitchEnabled(elementIndex, true)
	}
}

// AddConnectedElectricalElement records a topological connection from
// elementIndex to otherElementIndex (one direction; the builder calls
// it for both), maintaining the conducting subset.
func (e *ElectricalElements) AddConnectedElectricalElement(elementIndex, otherElementIndex ElementIndex) {
	e.connectedElements[elementIndex] = append(e.connectedElements[elementIndex], otherElementIndex)

	if e.conductivity[elementIndex].conductsElectricity &&
		e.conductivity[otherElementIndex].conductsElectricity {
		e.conductingConnectedElements[elementIndex] = append(
			e.conductingConnectedElements[elementIndex], otherElementIndex)
	}
}

// RemoveConnectedElectricalElement severs a topological connection
// (one direction).
func (e *ElectricalElements) RemoveConnectedElectricalElement(elementIndex, otherElementIndex ElementIndex) {
	e.connectedElements[elementIndex] = removeFirstElement(e.connectedElements[elementIndex], otherElementIndex)
	e.conductingConnectedElements[elementIndex] = removeFirstElement(e.conductingConnectedElements[elementIndex], otherElementIndex)
}

// UpdateForGameParameters reacts to tuning changes; today only the lamp
// light coefficients need recalculation.
func (e *ElectricalElements) UpdateForGameParameters(params *Params) {
	if params.LightSpreadAdjustment != e.currentLightSpreadAdjustment ||
		params.LuminiscenceAdjustment != e.currentLuminiscenceAdjustment {
		for l, lampElementIndex := range e.lamps {
			maxDistance := calculateLampLightSpreadMaxDistance(
				e.materialLightSpread[lampElementIndex],
				params.LightSpreadAdjustment)

			e.lampRawDistanceCoefficient[l] = calculateLampRawDistanceCoefficient(
				e.materialLuminiscence[lampElementIndex],
				params.LuminiscenceAdjustment,
				maxDistance)

			e.lampLightSpreadMaxDistance[l] = maxDistance
		}

		e.currentLightSpreadAdjustment = params.LightSpreadAdjustment
		e.currentLuminiscenceAdjustment = params.LuminiscenceAdjustment
	}
}

// UpdateAutomaticConductivityToggles visits all elements that change
// their conductivity on their own. Water-sensing switches toggle away
// from the material default above the high watermark and back at the
// low watermark; the gap prevents chatter at the waterline.
func (e *ElectricalElements) UpdateAutomaticConductivityToggles(points *Points, params *Params, currentWallclockTime time.Time) {
	for _, elementIndex := range e.automaticConductivityTogglingElements {
		if e.isDeleted[elementIndex] {
			continue
		}

		switch e.materialType[elementIndex] {
		case data.ElectricalElementTypeWaterSensingSwitch:
			c := e.conductivity[elementIndex]
			water := points.GetWater(e.pointIndex[elementIndex])

			if c.conductsElectricity == c.materialConductsElectricity && water >= waterSwitchHighWatermark {
				e.InternalSetSwitchState(
					elementIndex,
					ElectricalState(!c.materialConductsElectricity),
					points, params, currentWallclockTime)
			} else if c.conductsElectricity != c.materialConductsElectricity && water <= waterSwitchLowWatermark {
				e.InternalSetSwitchState(
					elementIndex,
					ElectricalState(c.materialConductsElectricity),
					points, params, currentWallclockTime)
			}

		default:
			panic("electrical: unexpected automatically-toggling element type")
		}
	}
}

// UpdateSourcesAndPropagation visits the electrical graph starting from
// every live source and propagates connectivity state by marking
// reached elements with the new visit sequence number. Elements whose
// sequence number equals the step's number afterwards are powered this
// step; the flood is the single source of truth for reachability.
func (e *ElectricalElements) UpdateSourcesAndPropagation(
	newConnectivityVisitSeq SequenceNumber,
	points *Points,
	params *Params,
	currentWallclockTime time.Time,
) {
	for _, sourceElementIndex := range e.sources {
		if e.isDeleted[sourceElementIndex] {
			continue
		}
		if e.connectivityVisitSeq[sourceElementIndex] == newConnectivityVisitSeq {
			// Already reached through another source
			continue
		}
		e.connectivityVisitSeq[sourceElementIndex] = newConnectivityVisitSeq

		sourcePointIndex := e.pointIndex[sourceElementIndex]

		// Production precondition: not excessively wet and within the
		// operating temperature range, with hysteresis on the way back.
		var preconditionsSatisfied bool
		switch e.materialType[sourceElementIndex] {
		case data.ElectricalElementTypeGenerator:
			state := &e.elementState[sourceElementIndex].generator
			temperatures := e.materialOperatingTemperatures[sourceElementIndex]
			temperature := points.GetTemperature(sourcePointIndex)

			var isProducingCurrent bool
			if state.isProducingCurrent {
				isProducingCurrent = !points.IsWet(sourcePointIndex, generatorWetThreshold) &&
					temperatures.IsInRange(temperature)
			} else {
				isProducingCurrent = !points.IsWet(sourcePointIndex, generatorWetThreshold) &&
					temperatures.IsBackInRange(temperature)
			}

			preconditionsSatisfied = isProducingCurrent

			if state.isProducingCurrent != isProducingCurrent {
				state.isProducingCurrent = isProducingCurrent

				// Only instanced generators are monitorable as probes
				if e.instanceInfos[sourceElementIndex].instanceIndex != NoneInstanceIndex {
					e.gameEventHandler.OnPowerProbeToggled(
						sourceElementIndex,
						ElectricalState(isProducingCurrent))

					if params.DoShowElectricalNotifications {
						color := powerOffHighlightColor
						if isProducingCurrent {
							color = powerOnHighlightColor
						}
						points.StartPointHighlight(sourcePointIndex, color, currentWallclockTime)
					}
				}
			}

		default:
			panic("electrical: unexpected source element type")
		}

		if !preconditionsSatisfied {
			continue
		}

		// Flood: tag neighbors as they are pushed, not as they are
		// popped, so no element is enqueued twice.
		queue := e.visitQueue[:0]
		queue = append(queue, sourceElementIndex)
		for len(queue) > 0 {
			elementIndex := queue[0]
			queue = queue[1:]

			for _, connectedIndex := range e.conductingConnectedElements[elementIndex] {
				if e.isDeleted[connectedIndex] {
					panic("electrical: deleted element in conducting adjacency")
				}
				if e.connectivityVisitSeq[connectedIndex] != newConnectivityVisitSeq {
					e.connectivityVisitSeq[connectedIndex] = newConnectivityVisitSeq
					queue = append(queue, connectedIndex)
				}
			}
		}
		e.visitQueue = queue[:0]

		// The producing source heats its own point
		points.AddHeat(sourcePointIndex,
			e.materialHeatGenerated[sourceElementIndex]*
				params.ElectricalElementHeatProducedAdjustment*
				SimulationStepTimeDuration)
	}
}

// UpdateSinks advances every non-deleted sink's state machine using the
// result of this step's connectivity flood, then injects heat into the
// owning point for sinks that are working. Also clears the step-local
// switch-toggled flag.
func (e *ElectricalElements) UpdateSinks(
	currentWallclockTime time.Time,
	currentSimulationTime float64,
	currentConnectivityVisitSeq SequenceNumber,
	points *Points,
	params *Params,
) {
	for _, sinkElementIndex := range e.sinks {
		if e.isDeleted[sinkElementIndex] {
			continue
		}

		isProducingHeat := false

		switch e.materialType[sinkElementIndex] {
		case data.ElectricalElementTypeLamp:
			e.runLampStateMachine(
				sinkElementIndex,
				currentWallclockTime,
				currentConnectivityVisitSeq,
				points)

			isProducingHeat = e.availableLight[sinkElementIndex] > 0

		case data.ElectricalElementTypeOtherSink:
			state := &e.elementState[sinkElementIndex].otherSink
			temperatures := e.materialOperatingTemperatures[sinkElementIndex]
			temperature := points.GetTemperature(e.pointIndex[sinkElementIndex])
			isVisited := e.connectivityVisitSeq[sinkElementIndex] == currentConnectivityVisitSeq

			if state.isPowered {
				if !isVisited || !temperatures.IsInRange(temperature) {
					state.isPowered = false
				}
			} else {
				if isVisited && temperatures.IsBackInRange(temperature) {
					state.isPowered = true
				}
			}

			isProducingHeat = state.isPowered

		case data.ElectricalElementTypePowerMonitor:
			state := &e.elementState[sinkElementIndex].powerMonitor
			isVisited := e.connectivityVisitSeq[sinkElementIndex] == currentConnectivityVisitSeq

			if state.isPowered && !isVisited {
				e.gameEventHandler.OnPowerProbeToggled(sinkElementIndex, ElectricalStateOff)
				if params.DoShowElectricalNotifications {
					points.StartPointHighlight(
						e.pointIndex[sinkElementIndex],
						powerOffHighlightColor,
						currentWallclockTime)
				}
				state.isPowered = false
			} else if !state.isPowered && isVisited {
				e.gameEventHandler.OnPowerProbeToggled(sinkElementIndex, ElectricalStateOn)
				if params.DoShowElectricalNotifications {
					points.StartPointHighlight(
						e.pointIndex[sinkElementIndex],
						powerOnHighlightColor,
						currentWallclockTime)
				}
				state.isPowered = true
			}

		case data.ElectricalElementTypeSmokeEmitter:
			e.runSmokeEmitter(sinkElementIndex, currentSimulationTime, currentConnectivityVisitSeq, points, params)

		default:
			panic("electrical: unexpected sink element type")
		}

		if isProducingHeat {
			points.AddHeat(e.pointIndex[sinkElementIndex],
				e.materialHeatGenerated[sinkElementIndex]*
					params.ElectricalElementHeatProducedAdjustment*
					SimulationStepTimeDuration)
		}
	}

	// Clear switch toggle dirtyness
	e.hasSwitchBeenToggledInStep = false
}

func (e *ElectricalElements) runSmokeEmitter(
	sinkElementIndex ElementIndex,
	currentSimulationTime float64,
	currentConnectivityVisitSeq SequenceNumber,
	points *Points,
	params *Params,
) {
	state := &e.elementState[sinkElementIndex].smokeEmitter
	emitterPointIndex := e.pointIndex[sinkElementIndex]
	isVisited := e.connectivityVisitSeq[sinkElementIndex] == currentConnectivityVisitSeq
	isUnderwater := e.world.IsUnderwater(points.GetPosition(emitterPointIndex))

	if state.isOperating {
		if !isVisited || isUnderwater {
			state.isOperating = false
		}
	} else {
		if isVisited && !isUnderwater {
			state.isOperating = true
			// Forces scheduling of the next emission below
			state.nextEmissionSimulationTimestamp = 0
		}
	}

	if !state.isOperating {
		return
	}

	if state.nextEmissionSimulationTimestamp == 0 {
		state.nextEmissionSimulationTimestamp = currentSimulationTime +
			e.rng.ExpFloat64()*params.SmokeEmissionDensityAdjustment/state.emissionRate
	}

	if currentSimulationTime >= state.nextEmissionSimulationTimestamp {
		// Highest of the emitter's temperature and warm air, so the
		// puff is buoyant
		temperature := math.Max(
			points.GetTemperature(emitterPointIndex),
			params.AirTemperature+200.0)

		points.CreateEphemeralParticleLightSmoke(
			points.GetPosition(emitterPointIndex),
			temperature,
			currentSimulationTime,
			points.GetConnectedComponentID(emitterPointIndex))

		state.nextEmissionSimulationTimestamp = 0
	}
}

// SetSwitchState toggles a switch from gameplay code.
func (e *ElectricalElements) SetSwitchState(
	elementIndex ElementIndex,
	switchState ElectricalState,
	points *Points,
	params *Params,
	currentWallclockTime time.Time,
) error {
	if !e.materialType[elementIndex].IsSwitch() {
		return fmt.Errorf("element %d is not a switch", elementIndex)
	}
	if e.isDeleted[elementIndex] {
		return fmt.Errorf("switch %d is deleted", elementIndex)
	}
	e.InternalSetSwitchState(elementIndex, switchState, points, params, currentWallclockTime)
	return nil
}

// InternalSetSwitchState is the only path that mutates a conductivity
// flag. On a state change it incrementally repairs the conducting
// adjacency against every topologically connected neighbor, notifies,
// and marks the step-local toggle flag.
func (e *ElectricalElements) InternalSetSwitchState(
	elementIndex ElementIndex,
	switchState ElectricalState,
	points *Points,
	params *Params,
	currentWallclockTime time.Time,
) {
	if bool(switchState) == e.conductivity[elementIndex].conductsElectricity {
		return
	}

	e.conductivity[elementIndex].conductsElectricity = bool(switchState)

	if switchState == ElectricalStateOn {
		// OFF->ON: conduct-connect to every conducting neighbor
		for _, otherElementIndex := range e.connectedElements[elementIndex] {
			if e.conductivity[otherElementIndex].conductsElectricity {
				e.conductingConnectedElements[elementIndex] = append(
					e.conductingConnectedElements[elementIndex], otherElementIndex)
				e.conductingConnectedElements[otherElementIndex] = append(
					e.conductingConnectedElements[otherElementIndex], elementIndex)
			}
		}
	} else {
		// ON->OFF: sever conduct-connection to every conducting neighbor
		for _, otherElementIndex := range e.connectedElements[elementIndex] {
			if e.conductivity[otherElementIndex].conductsElectricity {
				e.conductingConnectedElements[elementIndex] = removeFirstElement(
					e.conductingConnectedElements[elementIndex], otherElementIndex)
				e.conductingConnectedElements[otherElementIndex] = removeFirstElement(
					e.conductingConnectedElements[otherElementIndex], elementIndex)
			}
		}
	}

	e.gameEventHandler.OnSwitchToggled(elementIndex, switchState)

	if params.DoShowElectricalNotifications {
		color := powerOffHighlightColor
		if switchState == ElectricalStateOn {
			color = powerOnHighlightColor
		}
		points.StartPointHighlight(e.pointIndex[elementIndex], color, currentWallclockTime)
	}

	e.hasSwitchBeenToggledInStep = true
}

//
// Accessors
//

func (e *ElectricalElements) ElementCount() uint32 { return uint32(len(e.isDeleted)) }

func (e *ElectricalElements) IsDeleted(elementIndex ElementIndex) bool {
	return e.isDeleted[elementIndex]
}

func (e *ElectricalElements) GetPointIndex(elementIndex ElementIndex) ElementIndex {
	return e.pointIndex[elementIndex]
}

func (e *ElectricalElements) GetMaterialType(elementIndex ElementIndex) data.ElectricalElementType {
	return e.materialType[elementIndex]
}

func (e *ElectricalElements) ConductsElectricity(elementIndex ElementIndex) bool {
	return e.conductivity[elementIndex].conductsElectricity
}

func (e *ElectricalElements) GetAvailableLight(elementIndex ElementIndex) float64 {
	return e.availableLight[elementIndex]
}

// GetConnectivityVisitSeq returns the last flood sequence number that
// reached this element.
func (e *ElectricalElements) GetConnectivityVisitSeq(elementIndex ElementIndex) SequenceNumber {
	return e.connectivityVisitSeq[elementIndex]
}

// ConnectedElements returns the element's topological adjacency. Owned
// by the container.
func (e *ElectricalElements) ConnectedElements(elementIndex ElementIndex) []ElementIndex {
	return e.connectedElements[elementIndex]
}

// ConductingConnectedElements returns the subset of the adjacency where
// both endpoints currently conduct. Owned by the container.
func (e *ElectricalElements) ConductingConnectedElements(elementIndex ElementIndex) []ElementIndex {
	return e.conductingConnectedElements[elementIndex]
}

// Sources returns the source subset.
func (e *ElectricalElements) Sources() []ElementIndex { return e.sources }

// Lamps returns the lamp subset.
func (e *ElectricalElements) Lamps() []ElementIndex { return e.lamps }

// Lamp render coefficients, parallel to Lamps().

func (e *ElectricalElements) LampRawDistanceCoefficients() []float64 {
	return e.lampRawDistanceCoefficient
}

func (e *ElectricalElements) LampLightSpreadMaxDistances() []float64 {
	return e.lampLightSpreadMaxDistance
}

// The lamp light-spread halo must never collapse to a point.
func calculateLampLightSpreadMaxDistance(materialLightSpread, lightSpreadAdjustment float64) float64 {
	return materialLightSpread*lightSpreadAdjustment + 0.5
}

func calculateLampRawDistanceCoefficient(materialLuminiscence, luminiscenceAdjustment, lampLightSpreadMaxDistance float64) float64 {
	return materialLuminiscence * luminiscenceAdjustment * lampLightSpreadMaxDistance
}

// removeFirstElement removes the first occurrence of value, preserving
// order of the remainder.
func removeFirstElement(list []ElementIndex, value ElementIndex) []ElementIndex {
	for i, v := range list {
		if v == value {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
