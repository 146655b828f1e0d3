package event

import (
	"github.com/matschaffer/Floating-Sandbox/internal/data"
	"github.com/matschaffer/Floating-Sandbox/internal/sim"
)

// Dispatcher adapts the simulation's notification callbacks onto the
// bus, so subscribers (logging, telemetry) stay decoupled from the
// containers that raise them.
type Dispatcher struct {
	bus *Bus
}

var _ sim.GameEventHandler = (*Dispatcher)(nil)

func NewDispatcher(bus *Bus) *Dispatcher {
	return &Dispatcher{bus: bus}
}

func (d *Dispatcher) OnPointDestroyed(material *data.StructuralMaterial, isUnderwater bool, size uint32) {
	Emit(d.bus, PointDestroyed{
		MaterialName: materialName(material),
		IsUnderwater: isUnderwater,
		Size:         size,
	})
}

func (d *Dispatcher) OnElectricalElementAnnouncementsBegin() {
	Emit(d.bus, AnnouncementsBegin{})
}

func (d *Dispatcher) OnElectricalElementAnnouncementsEnd() {
	Emit(d.bus, AnnouncementsEnd{})
}

func (d *Dispatcher) OnSwitchCreated(
	elementIndex sim.ElementIndex,
	instanceIndex sim.InstanceIndex,
	switchType sim.SwitchType,
	state sim.ElectricalState,
) {
	Emit(d.bus, SwitchCreated{
		ElementIndex:  elementIndex,
		InstanceIndex: instanceIndex,
		Type:          switchType,
		State:         state,
	})
}

func (d *Dispatcher) OnSwitchToggled(elementIndex sim.ElementIndex, state sim.ElectricalState) {
	Emit(d.bus, SwitchToggled{ElementIndex: elementIndex, State: state})
}

func (d *Dispatcher) OnSwitchEnabled(elementIndex sim.ElementIndex, enabled bool) {
	Emit(d.bus, SwitchEnabled{ElementIndex: elementIndex, Enabled: enabled})
}

func (d *Dispatcher) OnPowerProbeCreated(
	elementIndex sim.ElementIndex,
	instanceIndex sim.InstanceIndex,
	probeType sim.PowerProbeType,
	state sim.ElectricalState,
) {
	Emit(d.bus, PowerProbeCreated{
		ElementIndex:  elementIndex,
		InstanceIndex: instanceIndex,
		Type:          probeType,
		State:         state,
	})
}

func (d *Dispatcher) OnPowerProbeToggled(elementIndex sim.ElementIndex, state sim.ElectricalState) {
	Emit(d.bus, PowerProbeToggled{ElementIndex: elementIndex, State: state})
}

func (d *Dispatcher) OnLightFlicker(duration sim.DurationShortLong, isUnderwater bool, size uint32) {
	Emit(d.bus, LightFlicker{Duration: duration, IsUnderwater: isUnderwater, Size: size})
}
