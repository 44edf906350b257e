package component

import "github.com/milk9111/platformkit/physics"

// CharacterController walks a dynamic body through a physics.Character.
type CharacterController struct {
	Speed     float64
	JumpSpeed float64

	Controller *physics.Character
}

var CharacterControllerComponent = NewComponent[CharacterController]()
