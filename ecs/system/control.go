package system

import (
	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/platformkit/common"
	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
)

// StartPlatform resumes e's path. It reports false when e is not an active
// platform.
func StartPlatform(w *ecs.World, e ecs.Entity) bool {
	plat, ok := ecs.Get(w, e, component.PlatformComponent)
	if !ok || plat.Follower == nil {
		return false
	}
	if !plat.Follower.Running() {
		plat.Follower.StartMoving()
		common.Logger().Info("platform: started", zap.String("name", entityName(w, e)))
		w.Events().Push(ecs.Event{Type: EventPlatformStarted, Entity: e})
	}
	return true
}

// StopPlatform pauses e's path where it is.
func StopPlatform(w *ecs.World, e ecs.Entity) bool {
	plat, ok := ecs.Get(w, e, component.PlatformComponent)
	if !ok || plat.Follower == nil {
		return false
	}
	if plat.Follower.Running() {
		plat.Follower.StopMoving()
		common.Logger().Info("platform: stopped", zap.String("name", entityName(w, e)))
		w.Events().Push(ecs.Event{Type: EventPlatformStopped, Entity: e})
	}
	return true
}

// ResetPlatform teleports e back to its first waypoint and restores the
// initial path state. Carried bodies are not moved along; child platforms
// follow the jump on the next step.
func ResetPlatform(w *ecs.World, e ecs.Entity) bool {
	plat, ok := ecs.Get(w, e, component.PlatformComponent)
	if !ok || plat.Follower == nil {
		return false
	}
	before := plat.Follower.Position()
	plat.Follower.Reset()
	plat.Jump = plat.Jump.Add(plat.Follower.Position().Sub(before))
	plat.Moved = cp.Vector{}
	plat.Total = cp.Vector{}
	pos := plat.Follower.Position()
	if body, ok := ecs.Get(w, e, component.PhysicsBodyComponent); ok && body.Body != nil {
		body.Body.SetPosition(pos)
		body.Body.SetVelocity(cp.Vector{})
	}
	if t, ok := ecs.Get(w, e, component.TransformComponent); ok {
		t.X, t.Y = pos.X, pos.Y
	}
	common.Logger().Info("platform: reset", zap.String("name", entityName(w, e)))
	w.Events().Push(ecs.Event{Type: EventPlatformReset, Entity: e})
	return true
}

// PlatformVelocity is e's displacement over the last step divided by the
// step length, including inherited parent motion.
func PlatformVelocity(w *ecs.World, e ecs.Entity, dt float64) cp.Vector {
	plat, ok := ecs.Get(w, e, component.PlatformComponent)
	if !ok || dt <= 0 {
		return cp.Vector{}
	}
	return plat.Total.Mult(1 / dt)
}
