package sim

import (
	"math/rand"
	"testing"
	"time"

	"github.com/matschaffer/Floating-Sandbox/internal/data"
)

// fixedWorld reports underwater for positions below a fixed level.
type fixedWorld struct {
	oceanLevel float64
}

func (w fixedWorld) IsUnderwater(position Vec2) bool { return position.Y < w.oceanLevel }

type toggleEvent struct {
	elementIndex ElementIndex
	state        ElectricalState
}

type enableEvent struct {
	elementIndex ElementIndex
	enabled      bool
}

// eventRecorder captures notifications for assertions.
type eventRecorder struct {
	NullGameEventHandler

	pointsDestroyed    int
	announcementsBegun int
	announcementsEnded int
	probesCreated      []ElementIndex
	switchesCreated    []ElementIndex
	probeToggles       []toggleEvent
	switchToggles      []toggleEvent
	switchEnables      []enableEvent
	flickers           []DurationShortLong
}

func (r *eventRecorder) OnPointDestroyed(material *data.StructuralMaterial, isUnderwater bool, size uint32) {
	r.pointsDestroyed++
}

func (r *eventRecorder) OnElectricalElementAnnouncementsBegin() { r.announcementsBegun++ }
func (r *eventRecorder) OnElectricalElementAnnouncementsEnd()   { r.announcementsEnded++ }

func (r *eventRecorder) OnPowerProbeCreated(elementIndex ElementIndex, instanceIndex InstanceIndex, probeType PowerProbeType, state ElectricalState) {
	r.probesCreated = append(r.probesCreated, elementIndex)
}

func (r *eventRecorder) OnSwitchCreated(elementIndex ElementIndex, instanceIndex InstanceIndex, switchType SwitchType, state ElectricalState) {
	r.switchesCreated = append(r.switchesCreated, elementIndex)
}

func (r *eventRecorder) OnPowerProbeToggled(elementIndex ElementIndex, state ElectricalState) {
	r.probeToggles = append(r.probeToggles, toggleEvent{elementIndex, state})
}

func (r *eventRecorder) OnSwitchToggled(elementIndex ElementIndex, state ElectricalState) {
	r.switchToggles = append(r.switchToggles, toggleEvent{elementIndex, state})
}

func (r *eventRecorder) OnSwitchEnabled(elementIndex ElementIndex, enabled bool) {
	r.switchEnables = append(r.switchEnables, enableEvent{elementIndex, enabled})
}

func (r *eventRecorder) OnLightFlicker(duration DurationShortLong, isUnderwater bool, size uint32) {
	r.flickers = append(r.flickers, duration)
}

//
// Material fixtures
//

func testAirMaterial() *data.StructuralMaterial {
	return &data.StructuralMaterial{
		Name:         "Air",
		NominalMass:  1.2754,
		Density:      1.0,
		SpecificHeat: 1003.2,
	}
}

func testIronMaterial() *data.StructuralMaterial {
	return &data.StructuralMaterial{
		Name:                "Structural Iron",
		NominalMass:         7850,
		Density:             0.1,
		SpecificHeat:        449,
		WaterIntake:         1.0,
		WaterRetention:      0.1,
		WaterDiffusionSpeed: 0.5,
	}
}

func testCable() *data.ElectricalMaterial {
	return &data.ElectricalMaterial{
		Name:                        "Cable",
		ElementType:                 data.ElectricalElementTypeCable,
		ConductsElectricity:         true,
		MaximumOperatingTemperature: 1123.15,
	}
}

func testGenerator() *data.ElectricalMaterial {
	return testGeneratorWithRange(0, 473.15)
}

func testGeneratorWithRange(minTemperature, maxTemperature float64) *data.ElectricalMaterial {
	return &data.ElectricalMaterial{
		Name:                        "Generator",
		ElementType:                 data.ElectricalElementTypeGenerator,
		ConductsElectricity:         true,
		HeatGenerated:               15.0,
		MinimumOperatingTemperature: minTemperature,
		MaximumOperatingTemperature: maxTemperature,
	}
}

func testLamp(wetFailureRate float64) *data.ElectricalMaterial {
	return &data.ElectricalMaterial{
		Name:                        "Lamp",
		ElementType:                 data.ElectricalElementTypeLamp,
		ConductsElectricity:         true,
		Luminiscence:                1.0,
		LightSpread:                 4.0,
		WetFailureRate:              wetFailureRate,
		HeatGenerated:               0.4,
		MaximumOperatingTemperature: 398.15,
	}
}

func testSelfPoweredLamp() *data.ElectricalMaterial {
	m := testLamp(0)
	m.IsSelfPowered = true
	return m
}

func testToggleSwitch() *data.ElectricalMaterial {
	return &data.ElectricalMaterial{
		Name:                        "Toggle Switch",
		ElementType:                 data.ElectricalElementTypeInteractiveToggleSwitch,
		ConductsElectricity:         true,
		MaximumOperatingTemperature: 1123.15,
	}
}

func testPushSwitch() *data.ElectricalMaterial {
	return &data.ElectricalMaterial{
		Name:                        "Push Switch",
		ElementType:                 data.ElectricalElementTypeInteractivePushSwitch,
		ConductsElectricity:         false,
		MaximumOperatingTemperature: 1123.15,
	}
}

func testWaterSensingSwitch() *data.ElectricalMaterial {
	return &data.ElectricalMaterial{
		Name:                        "Water Sensing Switch",
		ElementType:                 data.ElectricalElementTypeWaterSensingSwitch,
		ConductsElectricity:         true,
		MaximumOperatingTemperature: 1123.15,
	}
}

func testPowerMonitor() *data.ElectricalMaterial {
	return &data.ElectricalMaterial{
		Name:                        "Power Monitor",
		ElementType:                 data.ElectricalElementTypePowerMonitor,
		ConductsElectricity:         true,
		MaximumOperatingTemperature: 1123.15,
	}
}

func testSmokeEmitter(emissionRate float64) *data.ElectricalMaterial {
	return &data.ElectricalMaterial{
		Name:                        "Funnel",
		ElementType:                 data.ElectricalElementTypeSmokeEmitter,
		ConductsElectricity:         true,
		ParticleEmissionRate:        emissionRate,
		MaximumOperatingTemperature: 1123.15,
	}
}

func testOtherSink() *data.ElectricalMaterial {
	return &data.ElectricalMaterial{
		Name:                        "Engine Sink",
		ElementType:                 data.ElectricalElementTypeOtherSink,
		ConductsElectricity:         true,
		HeatGenerated:               20.0,
		MaximumOperatingTemperature: 523.15,
	}
}

//
// Circuit harness: a row of points at Y=1, one electrical element per
// non-nil material, every spring carrying electrical connectivity.
//

type circuitSpec struct {
	electrical     []*data.ElectricalMaterial // one per point, nil = bare point
	instances      map[int]InstanceIndex
	springs        [][2]int
	ephemeralSlots uint32
	oceanLevel     float64
}

type circuit struct {
	t      *testing.T
	rec    *eventRecorder
	points *Points
	ee     *ElectricalElements
	params *Params

	// Per blueprint point, its electrical element index or None
	element []ElementIndex

	buildConnections [][]ElementIndex

	seq     SequenceNumber
	simTime float64
}

func newCircuit(t *testing.T, spec circuitSpec) *circuit {
	t.Helper()

	params := DefaultParams()
	rng := rand.New(rand.NewSource(1))
	rec := &eventRecorder{}
	world := fixedWorld{oceanLevel: spec.oceanLevel}

	slots := spec.ephemeralSlots
	if slots == 0 {
		slots = 4
	}

	c := &circuit{
		t:      t,
		rec:    rec,
		params: &params,
	}

	c.points = NewPoints(
		uint32(len(spec.electrical)), slots,
		testAirMaterial(), world, rec, nil, rng, &params)
	c.ee = NewElectricalElements(uint32(len(spec.electrical)), world, rec, rng, &params)
	c.ee.SetPhysicsHandler(c)

	for i, material := range spec.electrical {
		pointIndex := c.points.Add(
			Vec2{float64(i), 1.0}, testIronMaterial(), material,
			false, NoneElementIndex, false, RGBA{}, Vec2{})

		if material == nil {
			c.element = append(c.element, NoneElementIndex)
			continue
		}

		instanceIndex := NoneInstanceIndex
		if v, ok := spec.instances[i]; ok {
			instanceIndex = v
		}
		elementIndex := c.ee.Add(pointIndex, instanceIndex, material)
		c.points.SetElectricalElement(pointIndex, elementIndex)
		c.element = append(c.element, elementIndex)
	}

	c.points.AddEphemeralRange()

	for _, spring := range spec.springs {
		a, b := c.element[spring[0]], c.element[spring[1]]
		if a != NoneElementIndex && b != NoneElementIndex {
			c.ee.AddConnectedElectricalElement(a, b)
			c.ee.AddConnectedElectricalElement(b, a)
		}
	}

	elementCount := c.ee.ElementCount()
	c.buildConnections = make([][]ElementIndex, elementCount)
	for elementIndex := ElementIndex(0); elementIndex < ElementIndex(elementCount); elementIndex++ {
		c.buildConnections[elementIndex] = append(
			[]ElementIndex(nil), c.ee.ConnectedElements(elementIndex)...)
	}

	return c
}

// step runs one electrical update pass, the same sequence the owning
// ship performs.
func (c *circuit) step(now time.Time) SequenceNumber {
	c.seq = c.seq.Next()
	c.ee.UpdateAutomaticConductivityToggles(c.points, c.params, now)
	c.ee.UpdateSourcesAndPropagation(c.seq, c.points, c.params, now)
	c.ee.UpdateSinks(now, c.simTime, c.seq, c.points, c.params)
	c.simTime += SimulationStepTimeDuration
	return c.seq
}

func (c *circuit) HandleElectricalElementDestroy(elementIndex ElementIndex) {
	connections := append([]ElementIndex(nil), c.ee.ConnectedElements(elementIndex)...)
	for _, otherElementIndex := range connections {
		c.ee.RemoveConnectedElectricalElement(elementIndex, otherElementIndex)
		c.ee.RemoveConnectedElectricalElement(otherElementIndex, elementIndex)
	}
}

func (c *circuit) HandleElectricalElementRestore(elementIndex ElementIndex) {
	for _, otherElementIndex := range c.buildConnections[elementIndex] {
		if c.ee.IsDeleted(otherElementIndex) {
			continue
		}
		c.ee.AddConnectedElectricalElement(elementIndex, otherElementIndex)
		c.ee.AddConnectedElectricalElement(otherElementIndex, elementIndex)
	}
}
