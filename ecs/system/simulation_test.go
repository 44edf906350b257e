package system_test

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/ecs/system"
	"github.com/milk9111/platformkit/prefabs"
)

func newSim(t *testing.T, yamlSrc string) *system.Simulation {
	t.Helper()
	return newSimWithLog(t, yamlSrc, nil)
}

func newSimWithLog(t *testing.T, yamlSrc string, log *zap.Logger) *system.Simulation {
	t.Helper()
	level, err := prefabs.ParseLevel([]byte(yamlSrc))
	require.NoError(t, err)
	sim, err := system.NewSimulation(level, log)
	require.NoError(t, err)
	return sim
}

func run(sim *system.Simulation, steps int) []ecs.Event {
	var events []ecs.Event
	for i := 0; i < steps; i++ {
		sim.Step()
		events = append(events, sim.Events()...)
	}
	return events
}

func position(t *testing.T, sim *system.Simulation, name string) cp.Vector {
	t.Helper()
	p, ok := sim.Position(name)
	require.True(t, ok, "no entity %q", name)
	return p
}

func running(t *testing.T, sim *system.Simulation, name string) bool {
	t.Helper()
	e, ok := sim.Entity(name)
	require.True(t, ok)
	plat, ok := ecs.Get(sim.World, e, component.PlatformComponent)
	require.True(t, ok)
	require.NotNil(t, plat.Follower)
	return plat.Follower.Running()
}

func eventsOf(events []ecs.Event, typ string) []ecs.Event {
	var out []ecs.Event
	for _, ev := range events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

const stackLevel = `
name: stack
platforms:
  - name: belt
    transform: { x: 0, y: 0 }
    size: { width: 6, height: 0.5 }
    speed: 1
    motion: ping_pong
    moving_at_start: true
    waypoints:
      - { x: 0, y: 0 }
      - { x: 20, y: 0 }
bodies:
  - name: low
    transform: { x: 0, y: 0.75 }
    size: { width: 1, height: 1 }
    mass: 2
    friction: 0.8
  - name: high
    transform: { x: 0, y: 1.75 }
    size: { width: 1, height: 1 }
    mass: 1
    friction: 0.8
`

func TestCarriedStackMovesWithPlatform(t *testing.T) {
	sim := newSim(t, stackLevel)
	run(sim, 120)

	belt := position(t, sim, "belt")
	require.InDelta(t, 2, belt.X, 1e-6)
	require.InDelta(t, belt.X, position(t, sim, "low").X, 0.1)
	require.InDelta(t, belt.X, position(t, sim, "high").X, 0.1)
	require.Greater(t, position(t, sim, "high").Y, position(t, sim, "low").Y)

	e, _ := sim.Entity("belt")
	carrier, ok := ecs.Get(sim.World, e, component.CarrierComponent)
	require.True(t, ok)
	require.Equal(t, 2, carrier.Runtime.CarriedCount())
	require.InDelta(t, 3, carrier.Runtime.CarriedMass(), 1e-9)
	require.InDelta(t, 1, sim.Velocity("belt").X, 1e-6)
}

const nestedLevel = `
name: nested
platforms:
  - name: rider
    parent: ferry
    transform: { x: 0, y: 0.5 }
    size: { width: 2, height: 0.5 }
    speed: 0.5
    motion: ping_pong
    moving_at_start: true
    waypoints:
      - { x: 0, y: 0 }
      - { x: 5, y: 0 }
  - name: ferry
    transform: { x: 0, y: 0 }
    size: { width: 8, height: 0.5 }
    speed: 1
    motion: ping_pong
    moving_at_start: true
    waypoints:
      - { x: 0, y: 0 }
      - { x: 20, y: 0 }
bodies:
  - name: crate
    transform: { x: 0, y: 1.25 }
    size: { width: 1, height: 1 }
    mass: 1
    friction: 0.8
`

func TestNestedPlatformAddsParentMotionOnce(t *testing.T) {
	sim := newSim(t, nestedLevel)

	ferry, _ := sim.Entity("ferry")
	rider, _ := sim.Entity("rider")
	parent, ok := sim.Hierarchy().PlatformParent(rider)
	require.True(t, ok)
	require.Equal(t, ferry, parent)
	require.Equal(t, []string{"ferry", "rider"}, sim.Platforms())

	run(sim, 120)

	require.InDelta(t, 2, position(t, sim, "ferry").X, 1e-6)
	require.InDelta(t, 3, position(t, sim, "rider").X, 1e-6)
	require.InDelta(t, 3, position(t, sim, "crate").X, 0.1)
	require.InDelta(t, 1.5, sim.Velocity("rider").X, 1e-6)
	require.Equal(t, 1, sim.Hierarchy().Resolutions())
}

func TestResetParentKeepsChildFrame(t *testing.T) {
	sim := newSim(t, nestedLevel)
	run(sim, 120)
	offset := position(t, sim, "rider").X - position(t, sim, "ferry").X
	require.InDelta(t, 1, offset, 1e-6)

	require.True(t, sim.Stop("rider"))
	require.True(t, sim.Reset("ferry"))
	require.True(t, sim.Stop("ferry"))
	run(sim, 1)

	require.InDelta(t, 0, position(t, sim, "ferry").X, 1e-6)
	require.InDelta(t, 1, position(t, sim, "rider").X, 1e-6)
	require.InDelta(t, 0, sim.Velocity("rider").X, 1e-9)

	run(sim, 30)
	require.InDelta(t, 1, position(t, sim, "rider").X, 1e-6)
}

const shuttleLevel = `
name: shuttle
platforms:
  - name: shuttle
    transform: { x: 0, y: 0 }
    size: { width: 2, height: 0.5 }
    speed: 6
    motion: %s
    moving_at_start: %t
    waypoints:
      - { x: 0, y: 0 }
      - { x: 1, y: 0 }
`

func shuttle(motion string, moving bool) string {
	return fmt.Sprintf(shuttleLevel, motion, moving)
}

func TestArrivalEventsCarryWaypointIndex(t *testing.T) {
	sim := newSim(t, shuttle("ping_pong", true))
	events := run(sim, 25)

	arrived := eventsOf(events, system.EventPlatformArrived)
	require.GreaterOrEqual(t, len(arrived), 2)
	e, _ := sim.Entity("shuttle")
	require.Equal(t, e, arrived[0].Entity)
	require.Equal(t, 1, arrived[0].Data)
	require.Equal(t, 0, arrived[1].Data)
}

func TestOnceStopsThenResets(t *testing.T) {
	sim := newSim(t, shuttle("once", true))
	events := run(sim, 30)

	require.Len(t, eventsOf(events, system.EventPlatformArrived), 1)
	require.Len(t, eventsOf(events, system.EventPlatformStopped), 1)
	require.False(t, running(t, sim, "shuttle"))
	require.InDelta(t, 1, position(t, sim, "shuttle").X, 1e-9)
	require.Equal(t, cp.Vector{}, sim.Velocity("shuttle"))

	require.True(t, sim.Reset("shuttle"))
	require.InDelta(t, 0, position(t, sim, "shuttle").X, 1e-9)
	events = run(sim, 1)
	require.Len(t, eventsOf(events, system.EventPlatformReset), 1)
	require.True(t, running(t, sim, "shuttle"))
	require.Greater(t, position(t, sim, "shuttle").X, 0.0)

	require.False(t, sim.Reset("nobody"))
}

func TestStartStopControls(t *testing.T) {
	sim := newSim(t, shuttle("ping_pong", false))
	run(sim, 10)
	require.Equal(t, 0.0, position(t, sim, "shuttle").X)

	require.True(t, sim.Start("shuttle"))
	events := run(sim, 2)
	require.Len(t, eventsOf(events, system.EventPlatformStarted), 1)
	moved := position(t, sim, "shuttle").X
	require.InDelta(t, 0.2, moved, 1e-9)

	require.True(t, sim.Stop("shuttle"))
	run(sim, 5)
	require.Equal(t, moved, position(t, sim, "shuttle").X)
	require.Equal(t, cp.Vector{}, sim.Velocity("shuttle"))
}

const shyLevel = `
name: shy
camera: { x: 0, y: 0, width: 10, height: 10 }
platforms:
  - name: shy
    transform: { x: 30, y: 0 }
    size: { width: 2, height: 0.5 }
    speed: 1
    moving_at_start: true
    only_when_visible: true
    waypoints:
      - { x: 0, y: 0 }
      - { x: 0, y: 5 }
`

func TestOnlyWhenVisibleStartsOnSight(t *testing.T) {
	sim := newSim(t, shyLevel)
	events := run(sim, 30)
	require.Empty(t, eventsOf(events, system.EventPlatformVisible))
	require.Equal(t, 0.0, position(t, sim, "shy").Y)
	require.False(t, running(t, sim, "shy"))

	_, cam, ok := ecs.First(sim.World, component.CameraComponent)
	require.True(t, ok)
	cam.X = 28

	events = run(sim, 30)
	require.Len(t, eventsOf(events, system.EventPlatformVisible), 1)
	require.True(t, running(t, sim, "shy"))
	require.Greater(t, position(t, sim, "shy").Y, 0.0)

	// Moving the camera away again does not stop it.
	cam.X = 0
	y := position(t, sim, "shy").Y
	run(sim, 10)
	require.Greater(t, position(t, sim, "shy").Y, y)
}

const plateLevel = `
name: plate
platforms:
  - name: plate
    transform: { x: 0, y: 0 }
    size: { width: 2, height: 0.2 }
    waypoints:
      - { x: 0, y: 0 }
    script: plate.tengo
  - name: gate_lift
    transform: { x: 10, y: 0 }
    size: { width: 3, height: 0.5 }
    speed: 1.5
    motion: once
    waypoints:
      - { x: 0, y: 0 }
      - { x: 0, y: 4, wait: 1 }
      - { x: 6, y: 4 }
bodies:
  - name: crate
    transform: { x: 0, y: 0.6 }
    size: { width: 1, height: 1 }
    mass: 2
`

func TestPlateScriptReleasesAndRewindsGate(t *testing.T) {
	prefabs.SetDiskRoot("")
	t.Cleanup(func() { prefabs.SetDiskRoot("prefabs") })

	sim := newSim(t, plateLevel)
	events := run(sim, 30)

	started := eventsOf(events, system.EventPlatformStarted)
	require.Len(t, started, 1)
	gate, _ := sim.Entity("gate_lift")
	require.Equal(t, gate, started[0].Entity)
	require.True(t, running(t, sim, "gate_lift"))

	run(sim, 30)
	require.Greater(t, position(t, sim, "gate_lift").Y, 0.0)

	// Take the crate off the plate; two seconds later the gate rewinds.
	crate, _ := sim.Entity("crate")
	body, ok := ecs.Get(sim.World, crate, component.PhysicsBodyComponent)
	require.True(t, ok)
	body.Body.SetPosition(cp.Vector{X: -20, Y: 5})

	events = run(sim, 150)
	require.Len(t, eventsOf(events, system.EventPlatformReset), 1)
	require.False(t, running(t, sim, "gate_lift"))
	require.Equal(t, cp.Vector{X: 10, Y: 0}, position(t, sim, "gate_lift"))
}

const counterScript = `
update := func(engine, state) {
	state.frames = (state.frames || 0) + 1
}

on_event := func(engine, state, name) {
	if name == "platform_arrived" && engine.event_data() == 1 {
		engine.stop()
		engine.log("parked after", state.frames, "frames at", engine.position())
	}
}
`

func writeScript(t *testing.T, name, src string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", name), []byte(src), 0o644))
	prefabs.SetDiskRoot(dir)
	t.Cleanup(func() { prefabs.SetDiskRoot("prefabs") })
}

func TestScriptEventHandlerStopsPlatform(t *testing.T) {
	writeScript(t, "counter.tengo", counterScript)
	core, logs := observer.New(zapcore.InfoLevel)

	sim := newSimWithLog(t, shuttle("ping_pong", true)+"    script: counter.tengo\n", zap.New(core))
	events := run(sim, 40)

	require.Len(t, eventsOf(events, system.EventPlatformArrived), 1)
	require.Len(t, eventsOf(events, system.EventPlatformStopped), 1)
	require.False(t, running(t, sim, "shuttle"))
	// Leftover travel from the arrival step may already head back.
	require.InDelta(t, 1, position(t, sim, "shuttle").X, 0.11)
	require.Equal(t, 1, logs.FilterMessageSnippet("parked after").Len())
	require.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestBrokenScriptIsReportedOnce(t *testing.T) {
	writeScript(t, "broken.tengo", "update := func(engine, state) {\n")
	core, logs := observer.New(zapcore.ErrorLevel)

	sim := newSimWithLog(t, shuttle("ping_pong", true)+"    script: broken.tengo\n", zap.New(core))
	run(sim, 10)

	require.Equal(t, 1, logs.FilterMessage("script: load failed").Len())
	require.Greater(t, position(t, sim, "shuttle").X, 0.0, "platform keeps moving without its script")

	writeScript(t, "broken.tengo", counterScript)
	sim.Scripts().Invalidate("broken.tengo")
	run(sim, 40)
	require.False(t, running(t, sim, "shuttle"))
}

const heroLevel = `
name: hero
platforms:
  - name: belt
    transform: { x: 0, y: 0 }
    size: { width: 6, height: 0.5 }
    speed: 1
    moving_at_start: true
    waypoints:
      - { x: 0, y: 0 }
      - { x: 20, y: 0 }
bodies:
  - name: hero
    transform: { x: 0, y: 1.05 }
    size: { width: 0.8, height: 1.6 }
    mass: 1
    character: { speed: 6, jump_speed: 9 }
`

func TestCharacterRidesPlatformThroughMover(t *testing.T) {
	sim := newSim(t, heroLevel)
	run(sim, 120)

	belt := position(t, sim, "belt")
	hero := position(t, sim, "hero")
	require.InDelta(t, belt.X, hero.X, 0.1)
	require.Greater(t, hero.Y, belt.Y)
}

const wallLevel = `
name: wall
bodies:
  - name: ground
    kind: static
    transform: { x: 0, y: -0.5 }
    size: { width: 40, height: 1 }
  - name: wall
    kind: static
    transform: { x: 3, y: 2 }
    size: { width: 1, height: 4 }
  - name: hero
    transform: { x: 0, y: 0.8 }
    size: { width: 0.8, height: 1.6 }
    mass: 1
    character: { speed: 6, jump_speed: 9 }
`

func TestCharacterInputWalksJumpsAndStopsAtWalls(t *testing.T) {
	sim := newSim(t, wallLevel)
	run(sim, 30)
	require.True(t, sim.SetInput("hero", component.Input{Right: true}))
	run(sim, 60)

	hero := position(t, sim, "hero")
	// The wall's left face is at 2.5; the hero is 0.8 wide.
	require.LessOrEqual(t, hero.X, 2.1+1e-6)
	require.Greater(t, hero.X, 1.5)

	require.True(t, sim.SetInput("hero", component.Input{Jump: true}))
	run(sim, 10)
	require.Greater(t, position(t, sim, "hero").Y, hero.Y+0.5)

	require.False(t, sim.SetInput("ground", component.Input{}))
}
