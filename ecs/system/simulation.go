package system

import (
	"fmt"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/platformkit/common"
	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/ecs/entity"
	"github.com/milk9111/platformkit/physics"
	"github.com/milk9111/platformkit/prefabs"
)

// Simulation is a built level plus the systems that tick it at a fixed dt.
type Simulation struct {
	World *ecs.World
	Space *physics.Space
	Level *prefabs.LevelSpec
	Named map[string]ecs.Entity

	physics   *PhysicsSystem
	hierarchy *HierarchySystem
	scripts   *ScriptSystem
	scheduler *ecs.Scheduler
	recorder  *eventRecorder

	dt    float64
	frame int
	log   *zap.Logger
}

// NewSimulation validates level, builds its entities and bodies and resolves
// the platform hierarchy so the first Step already moves everything.
func NewSimulation(level *prefabs.LevelSpec, log *zap.Logger) (*Simulation, error) {
	if level == nil {
		return nil, fmt.Errorf("simulation: level is nil")
	}
	if log == nil {
		log = zap.NewNop()
	}
	if err := level.Validate(); err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}

	gravity := level.Gravity
	if gravity == 0 {
		gravity = common.Gravity
	}
	space := physics.NewSpace(cp.Vector{X: 0, Y: gravity}, common.SolverIters, log.Named("physics"))

	w := ecs.NewWorld()
	named, err := entity.BuildLevel(w, level)
	if err != nil {
		return nil, fmt.Errorf("simulation: %w", err)
	}

	dt := common.FixedDT
	sim := &Simulation{
		World: w,
		Space: space,
		Level: level,
		Named: named,
		dt:    dt,
		log:   log,
	}
	sim.physics = NewPhysicsSystem(space, dt, log.Named("physics"))
	sim.hierarchy = NewHierarchySystem(space, log.Named("platform"))
	sim.scripts = NewScriptSystem(dt, log.Named("script"))
	sim.recorder = &eventRecorder{}
	sim.scheduler = ecs.NewScheduler(
		NewCameraSystem(),
		sim.hierarchy,
		NewVisibilitySystem(log.Named("platform")),
		NewPlatformSystem(sim.hierarchy, dt, log.Named("platform")),
		sim.scripts,
		NewCharacterSystem(space, dt),
		sim.physics,
		sim.recorder,
	)

	sim.physics.Sync(w)
	sim.hierarchy.Update(w)

	log.Info("simulation: level built",
		zap.String("level", level.Name),
		zap.Int("platforms", len(level.Platforms)),
		zap.Int("bodies", len(level.Bodies)),
		zap.Float64("gravity", gravity),
	)
	return sim, nil
}

// LoadSimulation loads a level by prefab name and builds it.
func LoadSimulation(name string, log *zap.Logger) (*Simulation, error) {
	level, err := prefabs.LoadLevel(name)
	if err != nil {
		return nil, err
	}
	return NewSimulation(level, log)
}

// Step runs one fixed tick.
func (s *Simulation) Step() {
	s.scheduler.Update(s.World)
	s.frame++
}

// Events returns the events pushed during the last Step. The slice is
// reused by the next Step.
func (s *Simulation) Events() []ecs.Event { return s.recorder.events }

func (s *Simulation) Frame() int    { return s.frame }
func (s *Simulation) DT() float64   { return s.dt }
func (s *Simulation) Time() float64 { return float64(s.frame) * s.dt }

func (s *Simulation) Physics() *PhysicsSystem     { return s.physics }
func (s *Simulation) Hierarchy() *HierarchySystem { return s.hierarchy }
func (s *Simulation) Scripts() *ScriptSystem      { return s.scripts }

// Entity looks an entity up by its authored name.
func (s *Simulation) Entity(name string) (ecs.Entity, bool) {
	if e, ok := s.Named[name]; ok && s.World.IsAlive(e) {
		return e, true
	}
	return entity.FindByName(s.World, name)
}

// Position returns the transform position of a named entity.
func (s *Simulation) Position(name string) (cp.Vector, bool) {
	e, ok := s.Entity(name)
	if !ok {
		return cp.Vector{}, false
	}
	t, ok := ecs.Get(s.World, e, component.TransformComponent)
	if !ok {
		return cp.Vector{}, false
	}
	return cp.Vector{X: t.X, Y: t.Y}, true
}

// Start, Stop and Reset control a named platform.
func (s *Simulation) Start(name string) bool { return s.control(name, StartPlatform) }
func (s *Simulation) Stop(name string) bool  { return s.control(name, StopPlatform) }
func (s *Simulation) Reset(name string) bool { return s.control(name, ResetPlatform) }

func (s *Simulation) control(name string, fn func(*ecs.World, ecs.Entity) bool) bool {
	e, ok := s.Entity(name)
	if !ok {
		s.log.Warn("simulation: no such platform", zap.String("name", name))
		return false
	}
	return fn(s.World, e)
}

// Velocity is the last step's displacement of a named platform per second.
func (s *Simulation) Velocity(name string) cp.Vector {
	e, ok := s.Entity(name)
	if !ok {
		return cp.Vector{}
	}
	return PlatformVelocity(s.World, e, s.dt)
}

// Platforms lists platform names in hierarchy order.
func (s *Simulation) Platforms() []string {
	out := make([]string, 0, len(s.hierarchy.Order()))
	for _, e := range s.hierarchy.Order() {
		out = append(out, entityName(s.World, e))
	}
	return out
}

// SetInput replaces the input of the named character.
func (s *Simulation) SetInput(name string, in component.Input) bool {
	e, ok := s.Entity(name)
	if !ok {
		return false
	}
	cur, ok := ecs.Get(s.World, e, component.InputComponent)
	if !ok {
		return false
	}
	*cur = in
	return true
}

// eventRecorder runs last and keeps a copy of the frame's events before the
// scheduler clears the queue.
type eventRecorder struct {
	events []ecs.Event
}

func (r *eventRecorder) Update(w *ecs.World) {
	r.events = append(r.events[:0], w.Events().Pending()...)
}
