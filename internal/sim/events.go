package sim

import "github.com/matschaffer/Floating-Sandbox/internal/data"

// GameEventHandler receives fire-and-forget notifications raised by the
// simulation. Implementations must not call back into the containers;
// they are invoked mid-step. Injected at construction so the core can
// run against a null or recording implementation.
type GameEventHandler interface {
	// OnPointDestroyed is raised once per destroyed point.
	OnPointDestroyed(material *data.StructuralMaterial, isUnderwater bool, size uint32)

	// Electrical panel announcements, bracketed begin/end. Raised by
	// AnnounceInstancedElements after a ship is built or restored.
	OnElectricalElementAnnouncementsBegin()
	OnPowerProbeCreated(elementIndex ElementIndex, instanceIndex InstanceIndex, probeType PowerProbeType, state ElectricalState)
	OnSwitchCreated(elementIndex ElementIndex, instanceIndex InstanceIndex, switchType SwitchType, state ElectricalState)
	OnElectricalElementAnnouncementsEnd()

	OnPowerProbeToggled(elementIndex ElementIndex, state ElectricalState)
	OnSwitchToggled(elementIndex ElementIndex, state ElectricalState)
	OnSwitchEnabled(elementIndex ElementIndex, enabled bool)

	// OnLightFlicker is raised at each visible lamp transition so audio
	// can react.
	OnLightFlicker(duration DurationShortLong, isUnderwater bool, size uint32)
}

// NullGameEventHandler discards every notification.
type NullGameEventHandler struct{}

func (NullGameEventHandler) OnPointDestroyed(*data.StructuralMaterial, bool, uint32) {}
func (NullGameEventHandler) OnElectricalElementAnnouncementsBegin()                  {}
func (NullGameEventHandler) OnPowerProbeCreated(ElementIndex, InstanceIndex, PowerProbeType, ElectricalState) {
}
func (NullGameEventHandler) OnSwitchCreated(ElementIndex, InstanceIndex, SwitchType, ElectricalState) {
}
func (NullGameEventHandler) OnElectricalElementAnnouncementsEnd()          {}
func (NullGameEventHandler) OnPowerProbeToggled(ElementIndex, ElectricalState) {}
func (NullGameEventHandler) OnSwitchToggled(ElementIndex, ElectricalState)     {}
func (NullGameEventHandler) OnSwitchEnabled(ElementIndex, bool)                {}
func (NullGameEventHandler) OnLightFlicker(DurationShortLong, bool, uint32)    {}

var _ GameEventHandler = NullGameEventHandler{}

// World is the narrow view of the surrounding world the containers
// need. The broader ocean/wind simulation lives behind it.
type World interface {
	IsUnderwater(position Vec2) bool
}

// PointDestroyHandler lets the spring network react to a point being
// destroyed, before the point is flagged deleted.
type PointDestroyHandler func(pointIndex ElementIndex, currentSimulationTime float64, params *Params)

// ElectricalPhysicsHandler lets the owning ship react to electrical
// element destruction and restoration. Connectivity bookkeeping (the
// conducting adjacency of the severed element) is this handler's
// responsibility, not the container's.
type ElectricalPhysicsHandler interface {
	HandleElectricalElementDestroy(elementIndex ElementIndex)
	HandleElectricalElementRestore(elementIndex ElementIndex)
}
