package system

import (
	"github.com/jakecoffman/cp"

	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/physics"
	"github.com/milk9111/platformkit/platform"
)

// CharacterSystem turns Input into character movement and resolves the
// movement queued this frame, including what carriers pushed.
type CharacterSystem struct {
	space *physics.Space
	dt    float64

	contacts []platform.Contact
}

func NewCharacterSystem(space *physics.Space, dt float64) *CharacterSystem {
	return &CharacterSystem{space: space, dt: dt}
}

func (cs *CharacterSystem) Update(w *ecs.World) {
	if cs == nil || cs.space == nil || w == nil {
		return
	}
	ecs.ForEach2(w, component.CharacterControllerComponent, component.InputComponent, func(_ ecs.Entity, ctrl *component.CharacterController, in *component.Input) {
		if ctrl.Controller == nil {
			return
		}
		dir := 0.0
		if in.Left {
			dir--
		}
		if in.Right {
			dir++
		}
		if dir != 0 {
			ctrl.Controller.Move(cp.Vector{X: dir * ctrl.Speed * cs.dt})
		}
		if in.Jump && cs.Grounded(ctrl.Controller.Body()) {
			v := ctrl.Controller.Body().Velocity()
			ctrl.Controller.Body().SetVelocity(cp.Vector{X: v.X, Y: ctrl.JumpSpeed})
		}
	})
	cs.space.FlushCharacters()
}

// Grounded reports whether b stands on something: a contact whose normal
// pushes b up.
func (cs *CharacterSystem) Grounded(b *physics.Body) bool {
	if b == nil {
		return false
	}
	cs.contacts = cs.space.Contacts(b, platform.ContactFilter{}, cs.contacts[:0])
	for _, c := range cs.contacts {
		if c.Normal.Dot(platform.Down) < -platform.SupportDot {
			return true
		}
	}
	return false
}
