// Package telemetry streams simulation snapshots to websocket clients and
// accepts platform commands from them.
package telemetry

import (
	"sort"

	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/ecs/system"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type BodyState struct {
	Position Point   `json:"position"`
	Angle    float64 `json:"angle"`
	// Platform-only fields.
	Velocity *Point `json:"velocity,omitempty"`
	Running  *bool  `json:"running,omitempty"`
	Carrying int    `json:"carrying,omitempty"`
}

type EventState struct {
	Type     string `json:"type"`
	Platform string `json:"platform"`
	Data     any    `json:"data,omitempty"`
}

type Snapshot struct {
	Run    string               `json:"run"`
	Level  string               `json:"level"`
	Frame  int                  `json:"frame"`
	Time   float64              `json:"time"`
	Bodies map[string]BodyState `json:"bodies"`
	Events []EventState         `json:"events,omitempty"`
}

// Capture reads the state of every named entity. events are the events to
// report with this snapshot, usually everything since the previous one.
func Capture(sim *system.Simulation, run string, events []ecs.Event) Snapshot {
	snap := Snapshot{
		Run:    run,
		Level:  sim.Level.Name,
		Frame:  sim.Frame(),
		Time:   sim.Time(),
		Bodies: make(map[string]BodyState, len(sim.Named)),
	}

	names := make(map[ecs.Entity]string, len(sim.Named))
	for name, e := range sim.Named {
		names[e] = name
		t, ok := ecs.Get(sim.World, e, component.TransformComponent)
		if !ok {
			continue
		}
		state := BodyState{Position: Point{X: t.X, Y: t.Y}, Angle: t.Rotation}
		if plat, ok := ecs.Get(sim.World, e, component.PlatformComponent); ok && plat.Follower != nil {
			v := sim.Velocity(name)
			running := plat.Follower.Running()
			state.Velocity = &Point{X: v.X, Y: v.Y}
			state.Running = &running
		}
		if c, ok := ecs.Get(sim.World, e, component.CarrierComponent); ok && c.Runtime != nil {
			state.Carrying = c.Runtime.CarriedCount()
		}
		snap.Bodies[name] = state
	}

	for _, ev := range events {
		name, ok := names[ev.Entity]
		if !ok {
			name = ev.Entity.String()
		}
		snap.Events = append(snap.Events, EventState{Type: ev.Type, Platform: name, Data: ev.Data})
	}
	return snap
}

// Names returns the snapshot's body names in order.
func (s Snapshot) Names() []string {
	out := make([]string, 0, len(s.Bodies))
	for name := range s.Bodies {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
