package sim

import "math"

// ElementIndex identifies an element (point, spring, electrical element)
// within its own dense index space. Relationships between entities are
// always expressed as indices, never as pointers; containers own the
// lifetime of every index they hand out.
type ElementIndex uint32

// NoneElementIndex is the reserved "no element" sentinel.
const NoneElementIndex ElementIndex = math.MaxUint32

// InstanceIndex is the persisted identity of an instanced electrical
// element (the identity shown on the electrical panel). It survives
// ship edits, unlike the element's positional index.
type InstanceIndex uint32

const NoneInstanceIndex InstanceIndex = math.MaxUint32

// ConnectedComponentID identifies a connected component of the ship's
// structure.
type ConnectedComponentID uint32

const NoneConnectedComponentID ConnectedComponentID = math.MaxUint32

// SequenceNumber is a monotonic visit counter that is never zero.
// Marking elements with the current sequence number replaces a boolean
// "visited" flag, so the mark never has to be cleared between steps.
// At one increment per frame it wraps after roughly 700 days.
type SequenceNumber uint32

// Next returns the successor sequence number, skipping zero on wrap.
func (s SequenceNumber) Next() SequenceNumber {
	s++
	if s == 0 {
		s = 1
	}
	return s
}

// IsNone reports whether s is the zero "never visited" value.
func (s SequenceNumber) IsNone() bool { return s == 0 }

// ElectricalState is the on/off state of a switch, probe or source.
type ElectricalState bool

const (
	ElectricalStateOff ElectricalState = false
	ElectricalStateOn  ElectricalState = true
)

func (s ElectricalState) String() string {
	if s == ElectricalStateOn {
		return "ON"
	}
	return "OFF"
}

// SwitchType classifies switches for announcement purposes.
type SwitchType int

const (
	SwitchTypeInteractiveToggle SwitchType = iota
	SwitchTypeInteractivePush
	SwitchTypeAutomatic
)

// PowerProbeType classifies power probes for announcement purposes.
type PowerProbeType int

const (
	PowerProbeTypePowerMonitor PowerProbeType = iota
	PowerProbeTypeGenerator
)

// DurationShortLong qualifies flicker notifications.
type DurationShortLong int

const (
	DurationShort DurationShortLong = iota
	DurationLong
)

// Vec2 is a 2D vector.
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(f float64) Vec2 { return Vec2{v.X * f, v.Y * f} }
func (v Vec2) Length() float64      { return math.Hypot(v.X, v.Y) }

// RGBA is a point render color with alpha in [0, 1].
type RGBA struct {
	R, G, B, A float64
}

// RGB is an 8-bit highlight color.
type RGB struct {
	R, G, B uint8
}

// OperatingTemperatures is an electrical material's operating range,
// with built-in hysteresis: staying in range is judged against the
// range widened by an outer watermark, while coming back in range
// requires the range narrowed by an inner watermark. The two distinct
// thresholds prevent state oscillation at the boundary.
type OperatingTemperatures struct {
	Min float64 // K
	Max float64 // K
}

const operatingTemperatureWatermarkOffset = 10.0 // K

// IsInRange reports whether an element already operating at this
// temperature may keep operating.
func (o OperatingTemperatures) IsInRange(temperature float64) bool {
	return temperature >= o.Min-operatingTemperatureWatermarkOffset &&
		temperature <= o.Max+operatingTemperatureWatermarkOffset
}

// IsBackInRange reports whether an element that stopped operating may
// start operating again at this temperature.
func (o OperatingTemperatures) IsBackInRange(temperature float64) bool {
	return temperature >= o.Min+operatingTemperatureWatermarkOffset &&
		temperature <= o.Max-operatingTemperatureWatermarkOffset
}
