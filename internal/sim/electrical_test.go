package sim

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matschaffer/Floating-Sandbox/internal/data"
)

func stepTime(step int) time.Time {
	return time.Unix(1000, 0).Add(time.Duration(step) * SimulationStepWallDuration)
}

func TestElectricalElements_FloodPowersChain(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testCable(), testLamp(0)},
		springs:    [][2]int{{0, 1}, {1, 2}},
	})

	seq := c.step(stepTime(0))

	for _, elementIndex := range c.element {
		assert.Equal(t, seq, c.ee.GetConnectivityVisitSeq(elementIndex))
	}
	assert.Equal(t, 1.0, c.ee.GetAvailableLight(c.element[2]))
}

func TestElectricalElements_AdjacencyIsSymmetric(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testCable(), testToggleSwitch()},
		springs:    [][2]int{{0, 1}, {1, 2}},
	})

	assertAdjacencySymmetric(t, c.ee)
	assert.ElementsMatch(t, []ElementIndex{c.element[0], c.element[2]},
		c.ee.ConnectedElements(c.element[1]))
	assert.ElementsMatch(t, []ElementIndex{c.element[0], c.element[2]},
		c.ee.ConductingConnectedElements(c.element[1]))
}

// assertAdjacencySymmetric checks that both the topological and the
// conducting adjacency contain an edge in one direction exactly when
// they contain it in the other.
func assertAdjacencySymmetric(t *testing.T, ee *ElectricalElements) {
	t.Helper()
	for elementIndex := ElementIndex(0); elementIndex < ElementIndex(ee.ElementCount()); elementIndex++ {
		for _, otherElementIndex := range ee.ConnectedElements(elementIndex) {
			assert.Contains(t, ee.ConnectedElements(otherElementIndex), elementIndex,
				"topological edge %d->%d has no mirror", elementIndex, otherElementIndex)
		}
		for _, otherElementIndex := range ee.ConductingConnectedElements(elementIndex) {
			assert.Contains(t, ee.ConductingConnectedElements(otherElementIndex), elementIndex,
				"conducting edge %d->%d has no mirror", elementIndex, otherElementIndex)
		}
	}
}

func TestElectricalElements_SwitchTogglingRepairsAdjacency(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testToggleSwitch(), testLamp(0)},
		springs:    [][2]int{{0, 1}, {1, 2}},
	})
	switchElement := c.element[1]
	lampElement := c.element[2]

	seq := c.step(stepTime(0))
	require.Equal(t, seq, c.ee.GetConnectivityVisitSeq(lampElement))
	require.Equal(t, 1.0, c.ee.GetAvailableLight(lampElement))

	// Open the switch: conducting edges vanish both ways, topology stays
	require.NoError(t, c.ee.SetSwitchState(
		switchElement, ElectricalStateOff, c.points, c.params, stepTime(1)))
	assert.Empty(t, c.ee.ConductingConnectedElements(switchElement))
	assert.Len(t, c.ee.ConnectedElements(switchElement), 2)
	assertAdjacencySymmetric(t, c.ee)
	assert.Equal(t, []toggleEvent{{switchElement, ElectricalStateOff}}, c.rec.switchToggles)

	seq = c.step(stepTime(1))
	assert.NotEqual(t, seq, c.ee.GetConnectivityVisitSeq(lampElement))
	// The toggle makes the lamp shut down gracefully, without flickering
	assert.Equal(t, 0.0, c.ee.GetAvailableLight(lampElement))
	assert.Empty(t, c.rec.flickers)

	// Close it again: edges are restored and power returns
	require.NoError(t, c.ee.SetSwitchState(
		switchElement, ElectricalStateOn, c.points, c.params, stepTime(2)))
	assert.Len(t, c.ee.ConductingConnectedElements(switchElement), 2)
	assertAdjacencySymmetric(t, c.ee)

	seq = c.step(stepTime(2))
	assert.Equal(t, seq, c.ee.GetConnectivityVisitSeq(lampElement))
	assert.Equal(t, 1.0, c.ee.GetAvailableLight(lampElement))
}

func TestElectricalElements_SetSwitchStateValidation(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testToggleSwitch()},
		springs:    [][2]int{{0, 1}},
	})

	err := c.ee.SetSwitchState(c.element[0], ElectricalStateOff, c.points, c.params, stepTime(0))
	assert.Error(t, err, "a generator is not a switch")

	c.ee.Destroy(c.element[1])
	err = c.ee.SetSwitchState(c.element[1], ElectricalStateOff, c.points, c.params, stepTime(0))
	assert.Error(t, err, "a deleted switch cannot be toggled")
}

func TestElectricalElements_SetSwitchStateSameStateIsNoOp(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testToggleSwitch()},
		springs:    [][2]int{{0, 1}},
	})

	require.NoError(t, c.ee.SetSwitchState(
		c.element[1], ElectricalStateOn, c.points, c.params, stepTime(0)))
	assert.Empty(t, c.rec.switchToggles)
	assert.Len(t, c.ee.ConductingConnectedElements(c.element[1]), 1)
}

func TestElectricalElements_GeneratorStopsWhenWet(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testLamp(0)},
		instances:  map[int]InstanceIndex{0: 0},
		springs:    [][2]int{{0, 1}},
	})
	generatorElement := c.element[0]
	lampElement := c.element[1]

	seq := c.step(stepTime(0))
	require.Equal(t, seq, c.ee.GetConnectivityVisitSeq(lampElement))

	c.points.SetWater(0, generatorWetThreshold+0.01)
	seq = c.step(stepTime(1))

	assert.NotEqual(t, seq, c.ee.GetConnectivityVisitSeq(lampElement))
	assert.Equal(t, []toggleEvent{{generatorElement, ElectricalStateOff}}, c.rec.probeToggles)

	// Pump it dry: production resumes
	c.points.SetWater(0, 0)
	seq = c.step(stepTime(2))

	assert.Equal(t, seq, c.ee.GetConnectivityVisitSeq(lampElement))
	assert.Equal(t, toggleEvent{generatorElement, ElectricalStateOn}, c.rec.probeToggles[1])
}

func TestElectricalElements_GeneratorTemperatureHysteresis(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGeneratorWithRange(0, 400), testCable()},
		springs:    [][2]int{{0, 1}},
	})
	cableElement := c.element[1]

	// Producing up to the widened bound
	c.points.SetTemperature(0, 409)
	seq := c.step(stepTime(0))
	require.Equal(t, seq, c.ee.GetConnectivityVisitSeq(cableElement))

	// Past the bound production stops
	c.points.SetTemperature(0, 411)
	seq = c.step(stepTime(1))
	assert.NotEqual(t, seq, c.ee.GetConnectivityVisitSeq(cableElement))

	// Cooling into the widened band is not enough to restart
	c.points.SetTemperature(0, 395)
	seq = c.step(stepTime(2))
	assert.NotEqual(t, seq, c.ee.GetConnectivityVisitSeq(cableElement))

	// It must cool into the narrowed band
	c.points.SetTemperature(0, 389)
	seq = c.step(stepTime(3))
	assert.Equal(t, seq, c.ee.GetConnectivityVisitSeq(cableElement))
}

func TestElectricalElements_GeneratorHeatsOwnPoint(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator()},
	})

	before := c.points.GetTemperature(0)
	c.step(stepTime(0))
	after := c.points.GetTemperature(0)

	wantDelta := testGenerator().HeatGenerated *
		c.params.ElectricalElementHeatProducedAdjustment *
		SimulationStepTimeDuration / testIronMaterial().HeatCapacity()
	assert.InDelta(t, wantDelta, after-before, 1e-12)
}

func TestElectricalElements_PowerMonitorReportsEdges(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testToggleSwitch(), testPowerMonitor()},
		instances:  map[int]InstanceIndex{2: 0},
		springs:    [][2]int{{0, 1}, {1, 2}},
	})
	switchElement := c.element[1]
	monitorElement := c.element[2]

	c.step(stepTime(0))
	require.Equal(t, []toggleEvent{{monitorElement, ElectricalStateOn}}, c.rec.probeToggles)
	assert.True(t, c.points.highlightActive[2])

	// Steady state: no repeated notification
	c.step(stepTime(1))
	assert.Len(t, c.rec.probeToggles, 1)

	require.NoError(t, c.ee.SetSwitchState(
		switchElement, ElectricalStateOff, c.points, c.params, stepTime(2)))
	c.step(stepTime(2))
	assert.Equal(t, toggleEvent{monitorElement, ElectricalStateOff}, c.rec.probeToggles[1])
}

func TestElectricalElements_WaterSensingSwitchWatermarks(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testWaterSensingSwitch(), testLamp(0)},
		springs:    [][2]int{{0, 1}, {1, 2}},
	})
	sensorElement := c.element[1]

	// Below the high watermark nothing happens
	c.points.SetWater(1, waterSwitchHighWatermark-0.01)
	c.step(stepTime(0))
	assert.True(t, c.ee.ConductsElectricity(sensorElement))
	assert.Empty(t, c.rec.switchToggles)

	// At the high watermark the switch toggles away from its default
	c.points.SetWater(1, waterSwitchHighWatermark)
	c.step(stepTime(1))
	assert.False(t, c.ee.ConductsElectricity(sensorElement))
	assert.Equal(t, []toggleEvent{{sensorElement, ElectricalStateOff}}, c.rec.switchToggles)

	// Between the watermarks it holds
	c.points.SetWater(1, waterSwitchLowWatermark+0.01)
	c.step(stepTime(2))
	assert.False(t, c.ee.ConductsElectricity(sensorElement))

	// At the low watermark it reverts
	c.points.SetWater(1, waterSwitchLowWatermark)
	c.step(stepTime(3))
	assert.True(t, c.ee.ConductsElectricity(sensorElement))
	assert.Equal(t, toggleEvent{sensorElement, ElectricalStateOn}, c.rec.switchToggles[1])
	assertAdjacencySymmetric(t, c.ee)
}

func TestElectricalElements_DestroyAndRestore(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testCable(), testLamp(0)},
		springs:    [][2]int{{0, 1}, {1, 2}},
	})
	cableElement := c.element[1]
	lampElement := c.element[2]

	seq := c.step(stepTime(0))
	require.Equal(t, seq, c.ee.GetConnectivityVisitSeq(lampElement))

	c.ee.Destroy(cableElement)
	assert.True(t, c.ee.IsDeleted(cableElement))
	assert.Empty(t, c.ee.ConnectedElements(cableElement))
	assert.NotContains(t, c.ee.ConnectedElements(c.element[0]), cableElement)

	seq = c.step(stepTime(1))
	assert.NotEqual(t, seq, c.ee.GetConnectivityVisitSeq(lampElement))
	assert.Equal(t, 0.0, c.ee.GetAvailableLight(lampElement))

	assert.Panics(t, func() { c.ee.Destroy(cableElement) })

	c.ee.Restore(cableElement)
	assert.False(t, c.ee.IsDeleted(cableElement))
	assertAdjacencySymmetric(t, c.ee)

	seq = c.step(stepTime(2))
	assert.Equal(t, seq, c.ee.GetConnectivityVisitSeq(lampElement))
	assert.Equal(t, 1.0, c.ee.GetAvailableLight(lampElement))
}

func TestElectricalElements_DestroySwitchDisablesIt(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testToggleSwitch()},
		springs:    [][2]int{{0, 1}},
	})
	switchElement := c.element[1]

	c.ee.Destroy(switchElement)
	c.ee.Restore(switchElement)

	assert.Equal(t, []enableEvent{
		{switchElement, false},
		{switchElement, true},
	}, c.rec.switchEnables)
}

func TestElectricalElements_AnnounceInstancedElements(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{
			testGenerator(),          // instanced: announced as probe
			testGenerator(),          // anonymous: not announced
			testPowerMonitor(),       // always announced as probe
			testToggleSwitch(),       // announced as switch
			testPushSwitch(),         // announced as switch
			testWaterSensingSwitch(), // announced as switch
			testLamp(0),              // never announced
		},
		instances: map[int]InstanceIndex{0: 0, 2: 1, 3: 2, 4: 3, 5: 4},
	})

	c.ee.AnnounceInstancedElements()

	assert.Equal(t, 1, c.rec.announcementsBegun)
	assert.Equal(t, 1, c.rec.announcementsEnded)
	assert.Equal(t, []ElementIndex{c.element[0], c.element[2]}, c.rec.probesCreated)
	assert.Equal(t, []ElementIndex{c.element[3], c.element[4], c.element[5]}, c.rec.switchesCreated)
}

func TestElectricalElements_SmokeEmitterEmits(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical:     []*data.ElectricalMaterial{testGenerator(), testSmokeEmitter(2.0)},
		springs:        [][2]int{{0, 1}},
		ephemeralSlots: 4,
		oceanLevel:     -10, // everything dry
	})
	emitterPoint := ElementIndex(1)
	c.points.SetTemperature(emitterPoint, 300)

	// First pass starts the emitter and schedules the first emission
	c.step(stepTime(0))

	// Far enough in the future the scheduled emission must have fired
	c.simTime = 1000
	c.step(stepTime(1))

	smoke := NoneElementIndex
	for i := c.points.ShipPointCount(); i < c.points.AllPointCount(); i++ {
		if c.points.GetEphemeralType(ElementIndex(i)) == EphemeralTypeSmoke {
			smoke = ElementIndex(i)
		}
	}
	require.NotEqual(t, NoneElementIndex, smoke, "no smoke particle emitted")

	// The puff is at least as warm as warm air, so it rises
	assert.Equal(t, c.params.AirTemperature+200.0, c.points.GetTemperature(smoke))
	assert.Equal(t, c.points.GetPosition(emitterPoint), c.points.GetPosition(smoke))
}

func TestElectricalElements_SmokeEmitterStopsUnderwater(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testSmokeEmitter(2.0)},
		springs:    [][2]int{{0, 1}},
		oceanLevel: 10, // everything submerged
	})

	c.step(stepTime(0))
	c.simTime = 1000
	c.step(stepTime(1))

	for i := c.points.ShipPointCount(); i < c.points.AllPointCount(); i++ {
		assert.Equal(t, EphemeralTypeNone, c.points.GetEphemeralType(ElementIndex(i)))
	}
}

func TestElectricalElements_OtherSinkFollowsPower(t *testing.T) {
	c := newCircuit(t, circuitSpec{
		electrical: []*data.ElectricalMaterial{testGenerator(), testToggleSwitch(), testOtherSink()},
		springs:    [][2]int{{0, 1}, {1, 2}},
	})
	sinkElement := c.element[2]

	c.step(stepTime(0))
	assert.True(t, c.ee.elementState[sinkElement].otherSink.isPowered)

	// A powered sink produces heat at its point
	before := c.points.GetTemperature(2)
	c.step(stepTime(1))
	assert.Greater(t, c.points.GetTemperature(2), before)

	require.NoError(t, c.ee.SetSwitchState(
		c.element[1], ElectricalStateOff, c.points, c.params, stepTime(2)))
	c.step(stepTime(2))
	assert.False(t, c.ee.elementState[sinkElement].otherSink.isPowered)
}
