package system

import (
	"github.com/milk9111/platformkit/common"
	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/ecs/entity"
)

type CameraSystem struct {
	camEntity    ecs.Entity
	targetEntity ecs.Entity
}

func NewCameraSystem() *CameraSystem {
	return &CameraSystem{}
}

// Update eases the camera toward its target entity's position.
func (cs *CameraSystem) Update(w *ecs.World) {
	if !w.IsAlive(cs.camEntity) {
		cs.camEntity = 0
		if e, ok := w.First(component.CameraComponent.Kind()); ok {
			cs.camEntity = e
		}
	}
	cam, ok := ecs.Get(w, cs.camEntity, component.CameraComponent)
	if !ok {
		return
	}

	if !w.IsAlive(cs.targetEntity) {
		cs.targetEntity = 0
		if e, ok := entity.FindByName(w, cam.TargetName); ok {
			cs.targetEntity = e
		}
	}
	target, ok := ecs.Get(w, cs.targetEntity, component.TransformComponent)
	if !ok {
		return
	}

	if cam.Follow <= 0 || cam.Follow >= 1 {
		cam.X, cam.Y = target.X, target.Y
		return
	}
	cam.X = common.Lerp(cam.X, target.X, cam.Follow)
	cam.Y = common.Lerp(cam.Y, target.Y, cam.Follow)
}
