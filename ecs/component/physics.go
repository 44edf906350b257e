package component

import "github.com/milk9111/platformkit/physics"

// PhysicsBody stores the collider configuration and, once the physics system
// has created it, the runtime body.
type PhysicsBody struct {
	Kind          physics.Kind
	Width         float64
	Height        float64
	Mass          float64
	Friction      float64
	Layer         uint
	Sensor        bool
	FixedRotation bool

	Body *physics.Body
}

var PhysicsBodyComponent = NewComponent[PhysicsBody]()
