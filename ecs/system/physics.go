package system

import (
	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/physics"
)

// PhysicsSystem owns the physics space. It creates bodies for new
// PhysicsBody components, removes bodies of destroyed entities, steps the
// space and copies dynamic body positions back into transforms.
type PhysicsSystem struct {
	space *physics.Space
	dt    float64
	log   *zap.Logger

	entities map[ecs.Entity]*physics.Body
}

func NewPhysicsSystem(space *physics.Space, dt float64, log *zap.Logger) *PhysicsSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &PhysicsSystem{
		space:    space,
		dt:       dt,
		log:      log,
		entities: make(map[ecs.Entity]*physics.Body),
	}
}

func (ps *PhysicsSystem) Space() *physics.Space {
	if ps == nil {
		return nil
	}
	return ps.space
}

// Body returns the body created for e.
func (ps *PhysicsSystem) Body(e ecs.Entity) (*physics.Body, bool) {
	b, ok := ps.entities[e]
	return b, ok
}

func (ps *PhysicsSystem) Update(w *ecs.World) {
	if ps == nil || ps.space == nil || w == nil {
		return
	}
	ps.Sync(w)
	ps.space.Step(ps.dt)
	ps.syncTransforms(w)
}

// Sync creates missing bodies and drops bodies whose entity is gone. It runs
// at the start of Update and can be called directly after building a level.
func (ps *PhysicsSystem) Sync(w *ecs.World) {
	ps.cleanupEntities(w)

	ecs.ForEach2(w, component.PhysicsBodyComponent, component.TransformComponent, func(e ecs.Entity, bodyComp *component.PhysicsBody, transform *component.Transform) {
		if bodyComp.Body != nil {
			return
		}
		name := ""
		if n, ok := ecs.Get(w, e, component.NameComponent); ok {
			name = n.Value
		}
		body := ps.space.AddBox(physics.BoxOptions{
			Name:          name,
			Kind:          bodyComp.Kind,
			Position:      cp.Vector{X: transform.X, Y: transform.Y},
			Width:         bodyComp.Width,
			Height:        bodyComp.Height,
			Mass:          bodyComp.Mass,
			Friction:      bodyComp.Friction,
			Layer:         bodyComp.Layer,
			Sensor:        bodyComp.Sensor,
			FixedRotation: bodyComp.FixedRotation,
		})
		if transform.Rotation != 0 {
			body.Raw().SetAngle(transform.Rotation)
		}
		bodyComp.Body = body
		ps.entities[e] = body

		if ctrl, ok := ecs.Get(w, e, component.CharacterControllerComponent); ok && ctrl.Controller == nil && body.Dynamic() {
			ctrl.Controller = ps.space.AttachCharacter(body)
		}
	})
}

func (ps *PhysicsSystem) syncTransforms(w *ecs.World) {
	ecs.ForEach2(w, component.PhysicsBodyComponent, component.TransformComponent, func(_ ecs.Entity, bodyComp *component.PhysicsBody, transform *component.Transform) {
		if bodyComp.Body == nil || bodyComp.Kind != physics.Dynamic {
			return
		}
		pos := bodyComp.Body.Position()
		transform.X = pos.X
		transform.Y = pos.Y
		transform.Rotation = bodyComp.Body.Angle()
	})
}

func (ps *PhysicsSystem) cleanupEntities(w *ecs.World) {
	for e, body := range ps.entities {
		if w.IsAlive(e) {
			if bodyComp, ok := ecs.Get(w, e, component.PhysicsBodyComponent); ok && bodyComp.Body == body {
				continue
			}
		}
		ps.space.Remove(body)
		delete(ps.entities, e)
		ps.log.Debug("physics: removed body", zap.Stringer("entity", e), zap.String("body", body.Name))
	}
}
