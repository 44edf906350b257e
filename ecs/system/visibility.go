package system

import (
	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
)

// VisibilitySystem tests collider bounds against the camera view and starts
// armed platforms the first time they are seen. Only the entity's own
// collider counts; attached entities do not make a platform visible.
type VisibilitySystem struct {
	log *zap.Logger
}

func NewVisibilitySystem(log *zap.Logger) *VisibilitySystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &VisibilitySystem{log: log}
}

func (vs *VisibilitySystem) Update(w *ecs.World) {
	_, cam, ok := ecs.First(w, component.CameraComponent)
	if !ok {
		return
	}
	view := CameraView(cam)

	ecs.ForEach2(w, component.VisibilityComponent, component.PhysicsBodyComponent, func(e ecs.Entity, vis *component.Visibility, body *component.PhysicsBody) {
		if body.Body == nil {
			vis.Visible = false
			return
		}
		bb := body.Body.Bounds()
		if vis.Margin > 0 {
			bb = cp.BB{L: bb.L - vis.Margin, B: bb.B - vis.Margin, R: bb.R + vis.Margin, T: bb.T + vis.Margin}
		}
		vis.Visible = view.Intersects(bb)
		if !vis.Visible {
			return
		}

		plat, ok := ecs.Get(w, e, component.PlatformComponent)
		if !ok || plat.Follower == nil || !plat.Follower.Armed() {
			return
		}
		if plat.Follower.BecameVisible() {
			vs.log.Info("platform: started on sight", zap.String("name", entityName(w, e)))
			w.Events().Push(ecs.Event{Type: EventPlatformVisible, Entity: e})
		}
	})
}

// CameraView is the world rectangle covered by cam.
func CameraView(cam *component.Camera) cp.BB {
	return cp.NewBBForExtents(cp.Vector{X: cam.X, Y: cam.Y}, cam.Width/2, cam.Height/2)
}
