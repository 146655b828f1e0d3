package sim

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/matschaffer/Floating-Sandbox/internal/data"
)

const testStructuralYAML = `
materials:
  - name: Air
    nominal_mass: 1.2754
    density: 1.0
    specific_heat: 1003.2
  - name: Structural Iron
    nominal_mass: 7850
    density: 0.1
    specific_heat: 449
    water_intake: 1.0
    water_retention: 0.1
    water_diffusion_speed: 0.5
`

const testElectricalYAML = `
materials:
  - name: Cable
    type: cable
    conducts_electricity: true
    maximum_operating_temperature: 1123.15
  - name: Generator
    type: generator
    conducts_electricity: true
    heat_generated: 15.0
    maximum_operating_temperature: 473.15
  - name: Lamp
    type: lamp
    conducts_electricity: true
    luminiscence: 1.0
    light_spread: 4.0
    wet_failure_rate: 4.0
    heat_generated: 0.4
    maximum_operating_temperature: 398.15
  - name: Toggle Switch
    type: interactive_toggle_switch
    conducts_electricity: true
    maximum_operating_temperature: 1123.15
`

func testMaterials(t *testing.T) *data.MaterialDatabase {
	t.Helper()
	dir := t.TempDir()
	structuralPath := filepath.Join(dir, "structural.yaml")
	electricalPath := filepath.Join(dir, "electrical.yaml")
	require.NoError(t, os.WriteFile(structuralPath, []byte(testStructuralYAML), 0o644))
	require.NoError(t, os.WriteFile(electricalPath, []byte(testElectricalYAML), 0o644))

	materials, err := data.LoadMaterialDatabase(structuralPath, electricalPath)
	require.NoError(t, err)
	return materials
}

// testShipDefinition wires generator - cable - switch - lamp in a row,
// plus one bare structural point hanging off the lamp.
func testShipDefinition() *ShipDefinition {
	return &ShipDefinition{
		Name: "test rig",
		Points: []PointDefinition{
			{Position: Vec2{0, 1}, StructuralMaterial: "Structural Iron", ElectricalMaterial: "Generator", InstanceIndex: 0},
			{Position: Vec2{1, 1}, StructuralMaterial: "Structural Iron", ElectricalMaterial: "Cable", InstanceIndex: NoneInstanceIndex},
			{Position: Vec2{2, 1}, StructuralMaterial: "Structural Iron", ElectricalMaterial: "Toggle Switch", InstanceIndex: 1},
			{Position: Vec2{3, 1}, StructuralMaterial: "Structural Iron", ElectricalMaterial: "Lamp", InstanceIndex: NoneInstanceIndex},
			{Position: Vec2{3, 2}, StructuralMaterial: "Structural Iron", InstanceIndex: NoneInstanceIndex},
		},
		Springs: []SpringDefinition{
			{PointA: 0, PointB: 1},
			{PointA: 1, PointB: 2},
			{PointA: 2, PointB: 3},
			{PointA: 3, PointB: 4},
		},
		EphemeralParticleCount: 8,
	}
}

func newTestShip(t *testing.T) (*Ship, *eventRecorder) {
	t.Helper()
	rec := &eventRecorder{}
	params := DefaultParams()
	ship, err := NewShip(
		testShipDefinition(),
		testMaterials(t),
		fixedWorld{},
		rec,
		rand.New(rand.NewSource(1)),
		&params,
		zap.NewNop())
	require.NoError(t, err)
	return ship, rec
}

func TestNewShip_BuildsTopology(t *testing.T) {
	ship, _ := newTestShip(t)

	assert.Equal(t, uint32(5), ship.Points.ShipPointCount())
	assert.Equal(t, uint32(13), ship.Points.AllPointCount())
	assert.Equal(t, uint32(4), ship.ElectricalElements.ElementCount())

	// The bare point carries no electrical element
	assert.Equal(t, NoneElementIndex, ship.Points.GetElectricalElement(4))

	// Springs between electrical points carry electrical connectivity,
	// the lamp-to-bare-point spring does not
	cableElement := ship.Points.GetElectricalElement(1)
	lampElement := ship.Points.GetElectricalElement(3)
	assert.Len(t, ship.ElectricalElements.ConnectedElements(cableElement), 2)
	assert.Len(t, ship.ElectricalElements.ConnectedElements(lampElement), 1)
}

func TestNewShip_RejectsUnknownMaterials(t *testing.T) {
	params := DefaultParams()
	rng := rand.New(rand.NewSource(1))
	materials := testMaterials(t)

	definition := testShipDefinition()
	definition.Points[1].StructuralMaterial = "Unobtainium"
	_, err := NewShip(definition, materials, fixedWorld{}, &eventRecorder{}, rng, &params, zap.NewNop())
	assert.Error(t, err)

	definition = testShipDefinition()
	definition.Points[1].ElectricalMaterial = "Flux Capacitor"
	_, err = NewShip(definition, materials, fixedWorld{}, &eventRecorder{}, rng, &params, zap.NewNop())
	assert.Error(t, err)

	definition = testShipDefinition()
	definition.Springs[0].PointB = 99
	_, err = NewShip(definition, materials, fixedWorld{}, &eventRecorder{}, rng, &params, zap.NewNop())
	assert.Error(t, err)
}

func TestShip_UpdatePowersLamp(t *testing.T) {
	ship, _ := newTestShip(t)

	ship.Update(stepTime(0))

	assert.Equal(t, 1.0, ship.Points.GetLight(3))
	assert.InDelta(t, SimulationStepTimeDuration, ship.CurrentSimulationTime(), 1e-12)
}

func TestShip_SwitchOffCutsLamp(t *testing.T) {
	ship, rec := newTestShip(t)
	ship.Update(stepTime(0))
	require.Equal(t, 1.0, ship.Points.GetLight(3))

	switchElement := ship.Points.GetElectricalElement(2)
	require.NoError(t, ship.SetSwitchState(switchElement, ElectricalStateOff, stepTime(1)))
	ship.Update(stepTime(1))

	assert.Equal(t, 0.0, ship.Points.GetLight(3))
	assert.Equal(t, []toggleEvent{{switchElement, ElectricalStateOff}}, rec.switchToggles)
	// Deliberate shutdowns do not flicker
	assert.Empty(t, rec.flickers)
}

func TestShip_AnnounceElectricalElements(t *testing.T) {
	ship, rec := newTestShip(t)

	ship.AnnounceElectricalElements()

	require.Equal(t, 1, rec.announcementsBegun)
	require.Equal(t, 1, rec.announcementsEnded)
	assert.Equal(t, []ElementIndex{ship.Points.GetElectricalElement(0)}, rec.probesCreated)
	assert.Equal(t, []ElementIndex{ship.Points.GetElectricalElement(2)}, rec.switchesCreated)
}

func TestShip_DestroyPointCascades(t *testing.T) {
	ship, rec := newTestShip(t)
	ship.Update(stepTime(0))

	cableElement := ship.Points.GetElectricalElement(1)

	ship.DestroyPoint(1)

	assert.True(t, ship.Points.IsDeleted(1))
	assert.Equal(t, 1, rec.pointsDestroyed)
	assert.Empty(t, ship.Points.ConnectedSprings(1))
	assert.True(t, ship.ElectricalElements.IsDeleted(cableElement))
	assert.Empty(t, ship.ElectricalElements.ConnectedElements(cableElement))

	// Downstream of the break the lamp loses power
	ship.Update(stepTime(1))
	assert.Equal(t, 0.0, ship.Points.GetLight(3))

	// Destroying twice is a no-op at the ship level
	ship.DestroyPoint(1)
	assert.Equal(t, 1, rec.pointsDestroyed)
}

func TestShip_RestorePointRelinks(t *testing.T) {
	ship, _ := newTestShip(t)
	ship.Update(stepTime(0))

	ship.DestroyPoint(1)
	ship.Update(stepTime(1))
	require.Equal(t, 0.0, ship.Points.GetLight(3))

	ship.RestorePoint(1)

	assert.False(t, ship.Points.IsDeleted(1))
	cableElement := ship.Points.GetElectricalElement(1)
	assert.False(t, ship.ElectricalElements.IsDeleted(cableElement))
	assert.Len(t, ship.ElectricalElements.ConnectedElements(cableElement), 2)
	assert.Len(t, ship.Points.ConnectedSprings(1), 2)

	// Power flows again and the lamp relights
	ship.Update(stepTime(2))
	assert.Equal(t, 1.0, ship.Points.GetLight(3))
}

func TestShip_DestroyEndpointSeversSharedSpring(t *testing.T) {
	ship, _ := newTestShip(t)

	ship.DestroyPoint(3)

	// The lamp's neighbors lost their shared springs too
	assert.Len(t, ship.Points.ConnectedSprings(2), 1)
	assert.Empty(t, ship.Points.ConnectedSprings(4))

	// Restoring the lamp point brings both springs back
	ship.RestorePoint(3)
	assert.Len(t, ship.Points.ConnectedSprings(3), 2)
	assert.Len(t, ship.Points.ConnectedSprings(2), 2)
	assert.Len(t, ship.Points.ConnectedSprings(4), 1)
}

func TestShip_LampRelightAfterRestoreIsImmediate(t *testing.T) {
	ship, rec := newTestShip(t)
	ship.Update(stepTime(0))

	// Kill the lamp itself, then bring it back
	ship.DestroyPoint(3)
	ship.Update(stepTime(1))
	require.Equal(t, 1, rec.pointsDestroyed)
	require.Equal(t, 0.0, ship.Points.GetLight(3))

	ship.RestorePoint(3)
	ship.Update(stepTime(2))

	assert.Equal(t, 1.0, ship.Points.GetLight(3))
}

func TestShip_SimulationTimeAdvancesPerStep(t *testing.T) {
	ship, _ := newTestShip(t)

	for step := 0; step < 50; step++ {
		ship.Update(stepTime(step))
	}

	assert.InDelta(t, 1.0, ship.CurrentSimulationTime(), 1e-9)
}
