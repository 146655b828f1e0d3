package data

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ElectricalElementType classifies an electrical material's behavior.
type ElectricalElementType int

const (
	ElectricalElementTypeCable ElectricalElementType = iota
	ElectricalElementTypeGenerator
	ElectricalElementTypeLamp
	ElectricalElementTypeOtherSink
	ElectricalElementTypePowerMonitor
	ElectricalElementTypeSmokeEmitter
	ElectricalElementTypeInteractivePushSwitch
	ElectricalElementTypeInteractiveToggleSwitch
	ElectricalElementTypeWaterSensingSwitch
)

var electricalElementTypeNames = map[string]ElectricalElementType{
	"cable":                     ElectricalElementTypeCable,
	"generator":                 ElectricalElementTypeGenerator,
	"lamp":                      ElectricalElementTypeLamp,
	"other_sink":                ElectricalElementTypeOtherSink,
	"power_monitor":             ElectricalElementTypePowerMonitor,
	"smoke_emitter":             ElectricalElementTypeSmokeEmitter,
	"interactive_push_switch":   ElectricalElementTypeInteractivePushSwitch,
	"interactive_toggle_switch": ElectricalElementTypeInteractiveToggleSwitch,
	"water_sensing_switch":      ElectricalElementTypeWaterSensingSwitch,
}

// ParseElectricalElementType parses the YAML spelling of an electrical
// element type.
func ParseElectricalElementType(s string) (ElectricalElementType, error) {
	t, ok := electricalElementTypeNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown electrical element type %q", s)
	}
	return t, nil
}

func (t ElectricalElementType) String() string {
	for name, v := range electricalElementTypeNames {
		if v == t {
			return name
		}
	}
	return fmt.Sprintf("ElectricalElementType(%d)", int(t))
}

// IsSwitch reports whether the type is announced and enabled/disabled
// as a switch.
func (t ElectricalElementType) IsSwitch() bool {
	return t == ElectricalElementTypeInteractivePushSwitch ||
		t == ElectricalElementTypeInteractiveToggleSwitch ||
		t == ElectricalElementTypeWaterSensingSwitch
}

// RenderColor is an 8-bit RGB triple as spelled in the material files.
type RenderColor struct {
	R uint8 `yaml:"r"`
	G uint8 `yaml:"g"`
	B uint8 `yaml:"b"`
}

// StructuralMaterial holds the immutable physical properties shared by
// every point made of it.
type StructuralMaterial struct {
	Name        string      `yaml:"name"`
	RenderColor RenderColor `yaml:"render_color"`

	Strength    float64 `yaml:"strength"`
	NominalMass float64 `yaml:"nominal_mass"` // Kg
	Density     float64 `yaml:"density"`      // adimensional fill fraction
	Stiffness   float64 `yaml:"stiffness"`

	// Water
	IsHull              bool    `yaml:"is_hull"`
	WaterIntake         float64 `yaml:"water_intake"` // volume fill fraction
	WaterDiffusionSpeed float64 `yaml:"water_diffusion_speed"`
	WaterRetention      float64 `yaml:"water_retention"`

	// Heat
	IgnitionTemperature float64 `yaml:"ignition_temperature"` // K
	MeltingTemperature  float64 `yaml:"melting_temperature"`  // K
	SpecificHeat        float64 `yaml:"specific_heat"`        // J/(Kg*K)

	IsRope bool `yaml:"is_rope"`
}

// Mass returns the mass of one particle: a cubic meter holding a
// quantity of material equal to the density (an iron truss is lighter
// than solid iron).
func (m *StructuralMaterial) Mass() float64 {
	return m.NominalMass * m.Density
}

// HeatCapacity returns the particle's heat capacity in J/K.
func (m *StructuralMaterial) HeatCapacity() float64 {
	return m.SpecificHeat * m.Mass()
}

// ElectricalMaterial holds the immutable electrical properties shared
// by every electrical element made of it.
type ElectricalMaterial struct {
	Name        string      `yaml:"name"`
	RenderColor RenderColor `yaml:"render_color"`

	Type                string `yaml:"type"` // parsed into ElementType at load
	IsSelfPowered       bool   `yaml:"is_self_powered"`
	ConductsElectricity bool   `yaml:"conducts_electricity"`
	IsInstanced         bool   `yaml:"is_instanced"`

	// Light (lamps only)
	Luminiscence   float64     `yaml:"luminiscence"`
	LightColor     RenderColor `yaml:"light_color"`
	LightSpread    float64     `yaml:"light_spread"`
	WetFailureRate float64     `yaml:"wet_failure_rate"` // failures per minute

	// Heat
	HeatGenerated               float64 `yaml:"heat_generated"`                // KJ/s
	MinimumOperatingTemperature float64 `yaml:"minimum_operating_temperature"` // K
	MaximumOperatingTemperature float64 `yaml:"maximum_operating_temperature"` // K

	// Particle emission (smoke emitters only)
	ParticleEmissionRate float64 `yaml:"particle_emission_rate"` // particles per second

	ElementType ElectricalElementType `yaml:"-"`
}

type structuralMaterialsFile struct {
	Materials []StructuralMaterial `yaml:"materials"`
}

type electricalMaterialsFile struct {
	Materials []ElectricalMaterial `yaml:"materials"`
}

// MaterialDatabase holds all material templates indexed by name.
type MaterialDatabase struct {
	structural map[string]*StructuralMaterial
	electrical map[string]*ElectricalMaterial
}

// LoadMaterialDatabase loads structural and electrical material tables
// from their YAML files.
func LoadMaterialDatabase(structuralPath, electricalPath string) (*MaterialDatabase, error) {
	raw, err := os.ReadFile(structuralPath)
	if err != nil {
		return nil, fmt.Errorf("read structural materials: %w", err)
	}
	var sf structuralMaterialsFile
	if err := yaml.Unmarshal(raw, &sf); err != nil {
		return nil, fmt.Errorf("parse structural materials: %w", err)
	}

	raw, err = os.ReadFile(electricalPath)
	if err != nil {
		return nil, fmt.Errorf("read electrical materials: %w", err)
	}
	var ef electricalMaterialsFile
	if err := yaml.Unmarshal(raw, &ef); err != nil {
		return nil, fmt.Errorf("parse electrical materials: %w", err)
	}

	db := &MaterialDatabase{
		structural: make(map[string]*StructuralMaterial, len(sf.Materials)),
		electrical: make(map[string]*ElectricalMaterial, len(ef.Materials)),
	}
	for i := range sf.Materials {
		m := &sf.Materials[i]
		if m.Mass() <= 0 {
			return nil, fmt.Errorf("structural material %q has non-positive mass", m.Name)
		}
		if _, dup := db.structural[m.Name]; dup {
			return nil, fmt.Errorf("duplicate structural material %q", m.Name)
		}
		db.structural[m.Name] = m
	}
	for i := range ef.Materials {
		m := &ef.Materials[i]
		t, err := ParseElectricalElementType(m.Type)
		if err != nil {
			return nil, fmt.Errorf("electrical material %q: %w", m.Name, err)
		}
		m.ElementType = t
		if _, dup := db.electrical[m.Name]; dup {
			return nil, fmt.Errorf("duplicate electrical material %q", m.Name)
		}
		db.electrical[m.Name] = m
	}
	return db, nil
}

// Structural returns a structural material by name, or nil.
func (db *MaterialDatabase) Structural(name string) *StructuralMaterial {
	return db.structural[name]
}

// Electrical returns an electrical material by name, or nil.
func (db *MaterialDatabase) Electrical(name string) *ElectricalMaterial {
	return db.electrical[name]
}

// StructuralCount returns the number of loaded structural materials.
func (db *MaterialDatabase) StructuralCount() int { return len(db.structural) }

// ElectricalCount returns the number of loaded electrical materials.
func (db *MaterialDatabase) ElectricalCount() int { return len(db.electrical) }
