package persist

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/matschaffer/Floating-Sandbox/internal/core/event"
)

// Recorder buffers simulation notifications off the event bus and
// flushes them to the telemetry store in batches. Accessed only from
// the simulation loop goroutine.
type Recorder struct {
	repo *TelemetryRepo
	log  *zap.Logger

	runID       int64
	currentStep int64
	buffer      []EventEntry
}

func NewRecorder(repo *TelemetryRepo, log *zap.Logger) *Recorder {
	return &Recorder{repo: repo, log: log}
}

// Begin opens the run this recorder writes into.
func (r *Recorder) Begin(ctx context.Context, scenario string) error {
	runID, err := r.repo.CreateRun(ctx, scenario)
	if err != nil {
		return err
	}
	r.runID = runID
	return nil
}

// Attach subscribes the recorder to the bus.
func (r *Recorder) Attach(bus *event.Bus) {
	event.Subscribe(bus, func(e event.SwitchToggled) {
		r.append("switch_toggled", int64(e.ElementIndex), bool(e.State), "")
	})
	event.Subscribe(bus, func(e event.SwitchEnabled) {
		r.append("switch_enabled", int64(e.ElementIndex), e.Enabled, "")
	})
	event.Subscribe(bus, func(e event.SwitchCreated) {
		r.append("switch_created", int64(e.ElementIndex), bool(e.State),
			fmt.Sprintf("instance=%d type=%d", e.InstanceIndex, e.Type))
	})
	event.Subscribe(bus, func(e event.PowerProbeCreated) {
		r.append("power_probe_created", int64(e.ElementIndex), bool(e.State),
			fmt.Sprintf("instance=%d type=%d", e.InstanceIndex, e.Type))
	})
	event.Subscribe(bus, func(e event.PowerProbeToggled) {
		r.append("power_probe_toggled", int64(e.ElementIndex), bool(e.State), "")
	})
	event.Subscribe(bus, func(e event.LightFlicker) {
		r.append("light_flicker", -1, e.IsUnderwater,
			fmt.Sprintf("duration=%d", e.Duration))
	})
	event.Subscribe(bus, func(e event.PointDestroyed) {
		r.append("point_destroyed", -1, e.IsUnderwater, e.MaterialName)
	})
}

// SetStep records the step number stamped onto subsequent entries.
func (r *Recorder) SetStep(step int64) {
	r.currentStep = step
}

func (r *Recorder) append(eventType string, elementIndex int64, state bool, detail string) {
	r.buffer = append(r.buffer, EventEntry{
		Step:         r.currentStep,
		EventType:    eventType,
		ElementIndex: elementIndex,
		State:        state,
		Detail:       detail,
	})
}

// Flush writes the buffered entries. On failure the buffer is kept for
// the next flush.
func (r *Recorder) Flush(ctx context.Context) {
	if len(r.buffer) == 0 {
		return
	}
	if err := r.repo.WriteEvents(ctx, r.runID, r.buffer); err != nil {
		r.log.Warn("telemetry flush failed", zap.Error(err), zap.Int("buffered", len(r.buffer)))
		return
	}
	r.buffer = r.buffer[:0]
}

// Finish flushes remaining entries and closes the run.
func (r *Recorder) Finish(ctx context.Context) {
	r.Flush(ctx)
	if err := r.repo.FinishRun(ctx, r.runID, r.currentStep); err != nil {
		r.log.Warn("telemetry finish failed", zap.Error(err))
	}
}
