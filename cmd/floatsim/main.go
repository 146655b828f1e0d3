package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/matschaffer/Floating-Sandbox/internal/config"
	"github.com/matschaffer/Floating-Sandbox/internal/core/event"
	"github.com/matschaffer/Floating-Sandbox/internal/data"
	"github.com/matschaffer/Floating-Sandbox/internal/persist"
	"github.com/matschaffer/Floating-Sandbox/internal/scripting"
	"github.com/matschaffer/Floating-Sandbox/internal/sim"
	"github.com/matschaffer/Floating-Sandbox/internal/world"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(scenarioName string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m          floatsim  v0.1.0                 \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m      particle & circuit simulator         \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mscenario:\033[0m %s\n\n", scenarioName)
}

func printSection(title string) {
	lineLen := 46 - len(title) - 1
	if lineLen < 3 {
		lineLen = 3
	}
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := 42 - len(label) - len(numStr)
	if dotsLen < 3 {
		dotsLen = 3
	}
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main simulator logic ──────────────────────────────────────────

func run() error {
	// 1. Load config
	cfgPath := "config/floatsim.toml"
	if p := os.Getenv("FLOATSIM_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	// 3. Load material tables
	printSection("data")

	materials, err := data.LoadMaterialDatabase(
		cfg.Materials.StructuralPath,
		cfg.Materials.ElectricalPath,
	)
	if err != nil {
		return fmt.Errorf("load materials: %w", err)
	}
	printStat("structural materials", materials.StructuralCount())
	printStat("electrical materials", materials.ElectricalCount())

	// 4. Load the scripted scenario
	luaEngine, err := scripting.NewEngine(cfg.Scenario.Path, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()

	scenario, err := luaEngine.LoadScenario()
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	printOK("lua scenario loaded")
	printStat("points", len(scenario.Points))
	printStat("springs", len(scenario.Springs))
	printStat("scheduled actions", len(scenario.Actions))
	fmt.Println()

	printBanner(scenario.Name)

	// 5. Build the simulation
	params := simParams(cfg.Simulation)
	bus := event.NewBus()
	dispatcher := event.NewDispatcher(bus)
	ocean := world.NewOcean(cfg.Simulation.OceanLevel)
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	ship, err := sim.NewShip(
		shipDefinition(scenario, cfg.Simulation.EphemeralParticleCount),
		materials, ocean, dispatcher, rng, params, log)
	if err != nil {
		return fmt.Errorf("build ship: %w", err)
	}

	attachEventLogging(bus, log)

	// 6. Telemetry (optional)
	var recorder *persist.Recorder
	if cfg.Telemetry.Enabled {
		printSection("telemetry")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		db, err := persist.NewDB(ctx, cfg.Telemetry, log)
		if err != nil {
			cancel()
			return fmt.Errorf("telemetry db: %w", err)
		}
		defer db.Close()
		printOK("postgres connected")

		if err := persist.RunMigrations(ctx, db.Pool); err != nil {
			cancel()
			return fmt.Errorf("migrations: %w", err)
		}
		printOK("migrations applied")

		recorder = persist.NewRecorder(persist.NewTelemetryRepo(db), log)
		if err := recorder.Begin(ctx, scenario.Name); err != nil {
			cancel()
			return fmt.Errorf("telemetry run: %w", err)
		}
		recorder.Attach(bus)
		cancel()
		fmt.Println()
	}

	// 7. Announce the electrical panel
	ship.AnnounceElectricalElements()

	// Scheduled actions sorted by step for in-order dispatch
	actions := append([]scripting.ScheduledAction(nil), scenario.Actions...)
	sort.SliceStable(actions, func(i, j int) bool { return actions[i].AtStep < actions[j].AtStep })
	nextAction := 0

	// 8. Start simulation loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Simulation.TickRate.Duration)
	defer ticker.Stop()

	printSection("simulator ready")
	printReady(fmt.Sprintf("simulation loop started (tick: %s)", cfg.Simulation.TickRate))
	fmt.Println()

	flushEvery := int64(cfg.Telemetry.FlushInterval.Duration / cfg.Simulation.TickRate.Duration)
	if flushEvery < 1 {
		flushEvery = 1
	}

	var step int64
	for {
		select {
		case <-ticker.C:
			now := time.Now()

			// Deliver last step's events before mutating state
			bus.SwapBuffers()
			bus.DispatchAll()

			for nextAction < len(actions) && int64(actions[nextAction].AtStep) <= step {
				applyAction(ship, actions[nextAction], now, log)
				nextAction++
			}

			ship.Update(now)

			step++
			if recorder != nil {
				recorder.SetStep(step)
				if step%flushEvery == 0 {
					flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					recorder.Flush(flushCtx)
					cancel()
				}
			}

		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			// Deliver events still buffered from the last step
			bus.SwapBuffers()
			bus.DispatchAll()
			if recorder != nil {
				finishCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				recorder.Finish(finishCtx)
				cancel()
			}
			log.Info("simulator stopped", zap.Int64("steps", step))
			return nil
		}
	}
}

// simParams maps the config section onto the tuning parameters.
func simParams(cfg config.SimulationConfig) *sim.Params {
	params := sim.DefaultParams()
	params.WaterDensityAdjustment = cfg.WaterDensityAdjustment
	params.NumMechanicalDynamicsIterations = float64(cfg.NumMechanicalDynamicsIterations)
	params.LuminiscenceAdjustment = cfg.LuminiscenceAdjustment
	params.LightSpreadAdjustment = cfg.LightSpreadAdjustment
	params.ElectricalElementHeatProducedAdjustment = cfg.HeatProducedAdjustment
	params.SmokeEmissionDensityAdjustment = cfg.SmokeEmissionDensityAdjustment
	params.AirTemperature = cfg.AirTemperature
	params.DoShowElectricalNotifications = cfg.ShowElectricalNotifications
	return &params
}

// shipDefinition converts the scripted scenario into a ship blueprint.
func shipDefinition(scenario *scripting.Scenario, defaultEphemeralCount uint32) *sim.ShipDefinition {
	ephemeralCount := defaultEphemeralCount
	if scenario.EphemeralParticleCount > 0 {
		ephemeralCount = uint32(scenario.EphemeralParticleCount)
	}

	def := &sim.ShipDefinition{
		Name:                   scenario.Name,
		Points:                 make([]sim.PointDefinition, len(scenario.Points)),
		Springs:                make([]sim.SpringDefinition, len(scenario.Springs)),
		EphemeralParticleCount: ephemeralCount,
	}

	for i, p := range scenario.Points {
		instanceIndex := sim.NoneInstanceIndex
		if p.InstanceIndex >= 0 {
			instanceIndex = sim.InstanceIndex(p.InstanceIndex)
		}
		def.Points[i] = sim.PointDefinition{
			Position:           sim.Vec2{X: p.X, Y: p.Y},
			StructuralMaterial: p.StructuralMaterial,
			ElectricalMaterial: p.ElectricalMaterial,
			InstanceIndex:      instanceIndex,
			IsRope:             p.IsRope,
			IsLeaking:          p.IsLeaking,
			Water:              p.Water,
		}
	}
	for i, s := range scenario.Springs {
		def.Springs[i] = sim.SpringDefinition{PointA: s.PointA, PointB: s.PointB}
	}

	return def
}

// applyAction executes one scheduled intervention.
func applyAction(ship *sim.Ship, action scripting.ScheduledAction, now time.Time, log *zap.Logger) {
	switch action.Type {
	case "set_switch":
		elementIndex := ship.Points.GetElectricalElement(sim.ElementIndex(action.Target))
		if elementIndex == sim.NoneElementIndex {
			log.Warn("scheduled set_switch on point without electrical element",
				zap.Int("point", action.Target))
			return
		}
		if err := ship.SetSwitchState(elementIndex, sim.ElectricalState(action.State), now); err != nil {
			log.Warn("scheduled set_switch failed", zap.Int("point", action.Target), zap.Error(err))
		}

	case "set_water":
		ship.Points.SetWater(sim.ElementIndex(action.Target), action.Value)

	case "set_temperature":
		ship.Points.SetTemperature(sim.ElementIndex(action.Target), action.Value)

	case "destroy_point":
		ship.DestroyPoint(sim.ElementIndex(action.Target))

	case "restore_point":
		ship.RestorePoint(sim.ElementIndex(action.Target))

	default:
		log.Warn("unknown scheduled action", zap.String("type", action.Type))
	}
}

// attachEventLogging logs every simulation notification.
func attachEventLogging(bus *event.Bus, log *zap.Logger) {
	event.Subscribe(bus, func(e event.SwitchCreated) {
		log.Info("switch created",
			zap.Uint32("element", uint32(e.ElementIndex)),
			zap.Uint32("instance", uint32(e.InstanceIndex)),
			zap.String("state", e.State.String()))
	})
	event.Subscribe(bus, func(e event.PowerProbeCreated) {
		log.Info("power probe created",
			zap.Uint32("element", uint32(e.ElementIndex)),
			zap.Uint32("instance", uint32(e.InstanceIndex)),
			zap.String("state", e.State.String()))
	})
	event.Subscribe(bus, func(e event.SwitchToggled) {
		log.Info("switch toggled",
			zap.Uint32("element", uint32(e.ElementIndex)),
			zap.String("state", e.State.String()))
	})
	event.Subscribe(bus, func(e event.SwitchEnabled) {
		log.Info("switch enabled",
			zap.Uint32("element", uint32(e.ElementIndex)),
			zap.Bool("enabled", e.Enabled))
	})
	event.Subscribe(bus, func(e event.PowerProbeToggled) {
		log.Info("power probe toggled",
			zap.Uint32("element", uint32(e.ElementIndex)),
			zap.String("state", e.State.String()))
	})
	event.Subscribe(bus, func(e event.LightFlicker) {
		log.Debug("light flicker",
			zap.Int("duration", int(e.Duration)),
			zap.Bool("underwater", e.IsUnderwater))
	})
	event.Subscribe(bus, func(e event.PointDestroyed) {
		log.Info("point destroyed",
			zap.String("material", e.MaterialName),
			zap.Bool("underwater", e.IsUnderwater))
	})
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
