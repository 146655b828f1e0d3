package event

import (
	"github.com/matschaffer/Floating-Sandbox/internal/data"
	"github.com/matschaffer/Floating-Sandbox/internal/sim"
)

// Simulation notification event types, one per outbound notification.

type PointDestroyed struct {
	MaterialName string
	IsUnderwater bool
	Size         uint32
}

type SwitchCreated struct {
	ElementIndex  sim.ElementIndex
	InstanceIndex sim.InstanceIndex
	Type          sim.SwitchType
	State         sim.ElectricalState
}

type SwitchToggled struct {
	ElementIndex sim.ElementIndex
	State        sim.ElectricalState
}

type SwitchEnabled struct {
	ElementIndex sim.ElementIndex
	Enabled      bool
}

type PowerProbeCreated struct {
	ElementIndex  sim.ElementIndex
	InstanceIndex sim.InstanceIndex
	Type          sim.PowerProbeType
	State         sim.ElectricalState
}

type PowerProbeToggled struct {
	ElementIndex sim.ElementIndex
	State        sim.ElectricalState
}

type LightFlicker struct {
	Duration     sim.DurationShortLong
	IsUnderwater bool
	Size         uint32
}

// AnnouncementsBegin and AnnouncementsEnd bracket the electrical panel
// announcement burst so subscribers can batch it.

type AnnouncementsBegin struct{}

type AnnouncementsEnd struct{}

// materialName tolerates announcements for points with no material.
func materialName(material *data.StructuralMaterial) string {
	if material == nil {
		return ""
	}
	return material.Name
}
