package scripting

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM for scenario definition.
// Single-goroutine access only (simulation loop).
type Engine struct {
	vm  *lua.LState
	log *zap.Logger
}

// NewEngine creates a Lua engine and loads the scenario script.
func NewEngine(scriptPath string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})

	// Set API version global
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log}

	if err := vm.DoFile(scriptPath); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load scenario %s: %w", scriptPath, err)
	}
	log.Debug("loaded lua scenario", zap.String("file", scriptPath))

	return e, nil
}

// ScenarioPoint describes one particle of the scripted ship.
type ScenarioPoint struct {
	X, Y               float64
	StructuralMaterial string
	ElectricalMaterial string // empty = no electrical element
	InstanceIndex      int    // -1 = not instanced
	IsRope             bool
	IsLeaking          bool
	Water              float64
}

// ScenarioSpring links two scripted points by index.
type ScenarioSpring struct {
	PointA, PointB int
}

// ScheduledAction is a scripted intervention executed at a given step.
type ScheduledAction struct {
	AtStep int
	Type   string // "set_switch", "set_water", "set_temperature", "destroy_point", "restore_point"
	Target int    // point or electrical element index
	State  bool   // set_switch
	Value  float64
}

// Scenario is the complete scripted setup returned by get_scenario().
type Scenario struct {
	Name                   string
	EphemeralParticleCount int
	Points                 []ScenarioPoint
	Springs                []ScenarioSpring
	Actions                []ScheduledAction
}

// LoadScenario calls the Lua get_scenario function and converts its
// table into plain Go structs.
func (e *Engine) LoadScenario() (*Scenario, error) {
	fn := e.vm.GetGlobal("get_scenario")
	if fn == lua.LNil {
		return nil, fmt.Errorf("lua function get_scenario not found")
	}

	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}); err != nil {
		return nil, fmt.Errorf("lua get_scenario: %w", err)
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	rt, ok := result.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("lua get_scenario returned non-table")
	}

	scenario := &Scenario{
		Name:                   lStr(rt, "name"),
		EphemeralParticleCount: lInt(rt, "ephemeral_particle_count"),
	}

	pointsVal := rt.RawGetString("points")
	pointsTbl, ok := pointsVal.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("scenario %q has no points table", scenario.Name)
	}
	var convErr error
	pointsTbl.ForEach(func(_, v lua.LValue) {
		row, ok := v.(*lua.LTable)
		if !ok {
			convErr = fmt.Errorf("scenario %q: non-table point row", scenario.Name)
			return
		}
		point := ScenarioPoint{
			X:                  lFloat(row, "x"),
			Y:                  lFloat(row, "y"),
			StructuralMaterial: lStr(row, "structural_material"),
			ElectricalMaterial: lStr(row, "electrical_material"),
			InstanceIndex:      -1,
			IsRope:             lBool(row, "is_rope"),
			IsLeaking:          lBool(row, "is_leaking"),
			Water:              lFloat(row, "water"),
		}
		if iv := row.RawGetString("instance_index"); iv != lua.LNil {
			point.InstanceIndex = int(lua.LVAsNumber(iv))
		}
		scenario.Points = append(scenario.Points, point)
	})
	if convErr != nil {
		return nil, convErr
	}

	if springsTbl, ok := rt.RawGetString("springs").(*lua.LTable); ok {
		springsTbl.ForEach(func(_, v lua.LValue) {
			row, ok := v.(*lua.LTable)
			if !ok {
				return
			}
			scenario.Springs = append(scenario.Springs, ScenarioSpring{
				// Lua tables are 1-based, indices here are 0-based
				PointA: lInt(row, "a"),
				PointB: lInt(row, "b"),
			})
		})
	}

	if actionsTbl, ok := rt.RawGetString("actions").(*lua.LTable); ok {
		actionsTbl.ForEach(func(_, v lua.LValue) {
			row, ok := v.(*lua.LTable)
			if !ok {
				return
			}
			scenario.Actions = append(scenario.Actions, ScheduledAction{
				AtStep: lInt(row, "at_step"),
				Type:   lStr(row, "type"),
				Target: lInt(row, "target"),
				State:  lBool(row, "state"),
				Value:  lFloat(row, "value"),
			})
		})
	}

	if len(scenario.Points) == 0 {
		return nil, fmt.Errorf("scenario %q has no points", scenario.Name)
	}

	return scenario, nil
}

// --- Lua helpers ---

// lInt reads an integer field from a Lua table.
func lInt(t *lua.LTable, key string) int {
	return int(lua.LVAsNumber(t.RawGetString(key)))
}

// lFloat reads a float field from a Lua table.
func lFloat(t *lua.LTable, key string) float64 {
	return float64(lua.LVAsNumber(t.RawGetString(key)))
}

// lStr reads a string field from a Lua table.
func lStr(t *lua.LTable, key string) string {
	v := t.RawGetString(key)
	if v == lua.LNil {
		return ""
	}
	return lua.LVAsString(v)
}

// lBool reads a boolean field from a Lua table.
func lBool(t *lua.LTable, key string) bool {
	return t.RawGetString(key) == lua.LTrue
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
