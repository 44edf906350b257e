package physics

import (
	"fmt"

	"github.com/jakecoffman/cp"

	"github.com/milk9111/platformkit/platform"
)

// Kind selects how a body takes part in the simulation.
type Kind int

const (
	Dynamic Kind = iota
	Kinematic
	Static
)

func (k Kind) String() string {
	switch k {
	case Dynamic:
		return "dynamic"
	case Kinematic:
		return "kinematic"
	case Static:
		return "static"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ParseKind maps "dynamic", "kinematic" and "static" to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "", "dynamic":
		return Dynamic, nil
	case "kinematic":
		return Kinematic, nil
	case "static":
		return Static, nil
	}
	return Dynamic, fmt.Errorf("physics: unknown body kind %q", s)
}

// BoxOptions describes an axis-aligned box collider. Position is the box
// center in world space.
type BoxOptions struct {
	Name     string
	Kind     Kind
	Position cp.Vector
	Width    float64
	Height   float64
	Mass     float64
	Friction float64
	// Layer is the shape's category bitmask; zero means layer 1.
	Layer  uint
	Sensor bool
	// FixedRotation keeps dynamic boxes upright.
	FixedRotation bool
}

// Body wraps one cp body and its single box shape.
type Body struct {
	Name string

	space     *Space
	body      *cp.Body
	shape     *cp.Shape
	kind      Kind
	mass      float64
	width     float64
	height    float64
	character *Character
}

var _ platform.CharacterBody = (*Body)(nil)

// AddBox creates a body with a box collider and adds it to the space.
func (s *Space) AddBox(opts BoxOptions) *Body {
	w, h := opts.Width, opts.Height
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}

	var body *cp.Body
	mass := opts.Mass
	switch opts.Kind {
	case Kinematic:
		body = cp.NewKinematicBody()
	case Static:
		body = cp.NewStaticBody()
	default:
		if mass <= 0 {
			mass = 1
		}
		moment := cp.MomentForBox(mass, w, h)
		if opts.FixedRotation {
			moment = cp.INFINITY
		}
		body = cp.NewBody(mass, moment)
	}
	body.SetPosition(opts.Position)

	shape := cp.NewBox(body, w, h, 0)
	shape.SetFriction(opts.Friction)
	shape.SetSensor(opts.Sensor)
	layer := opts.Layer
	if layer == 0 {
		layer = 1
	}
	shape.Filter = cp.NewShapeFilter(cp.NO_GROUP, layer, cp.ALL_CATEGORIES)

	b := &Body{
		Name:   opts.Name,
		space:  s,
		body:   body,
		shape:  shape,
		kind:   opts.Kind,
		mass:   mass,
		width:  w,
		height: h,
	}
	body.UserData = b
	shape.UserData = b

	s.space.AddBody(body)
	s.space.AddShape(shape)
	s.bodies = append(s.bodies, b)
	s.log.Debug("physics: add body",
		zapName(b.Name),
		zapKind(b.kind),
		zapVec("position", opts.Position),
	)
	return b
}

func (b *Body) Kind() Kind { return b.kind }

// Raw returns the cp body.
func (b *Body) Raw() *cp.Body { return b.body }

// Shape returns the box shape.
func (b *Body) Shape() *cp.Shape { return b.shape }

func (b *Body) Size() (float64, float64) { return b.width, b.height }

func (b *Body) Dynamic() bool { return b.kind == Dynamic }

// Bounds recomputes the box from the body's current transform, so it is
// valid right after a Translate.
func (b *Body) Bounds() cp.BB {
	if b.shape == nil {
		return cp.BB{}
	}
	return b.shape.CacheBB()
}

// Translate teleports the body by d. Velocities are left untouched.
func (b *Body) Translate(d cp.Vector) {
	if b.body == nil || (d.X == 0 && d.Y == 0) {
		return
	}
	b.SetPosition(b.body.Position().Add(d))
}

// SetPosition places the body center at p.
func (b *Body) SetPosition(p cp.Vector) {
	if b.body == nil {
		return
	}
	if b.kind == Static && b.space != nil {
		// Static shapes live in a separate index that is not refreshed by
		// Step, so they have to be re-inserted.
		b.space.space.RemoveShape(b.shape)
		b.body.SetPosition(p)
		b.space.space.AddShape(b.shape)
		return
	}
	b.body.SetPosition(p)
}

func (b *Body) Position() cp.Vector {
	if b.body == nil {
		return cp.Vector{}
	}
	return b.body.Position()
}

func (b *Body) Velocity() cp.Vector {
	if b.body == nil {
		return cp.Vector{}
	}
	return b.body.Velocity()
}

func (b *Body) SetVelocity(v cp.Vector) {
	if b.body == nil || b.kind == Static {
		return
	}
	b.body.SetVelocityVector(v)
}

func (b *Body) Angle() float64 {
	if b.body == nil {
		return 0
	}
	return b.body.Angle()
}

// Mass is the authored mass of dynamic bodies and zero otherwise.
func (b *Body) Mass() float64 {
	if b.kind != Dynamic {
		return 0
	}
	return b.mass
}

// Layer returns the shape's category bitmask.
func (b *Body) Layer() uint {
	if b.shape == nil {
		return 0
	}
	return b.shape.Filter.Categories
}

// Character returns the body's controller, or nil.
func (b *Body) Character() platform.Mover {
	if b.character == nil {
		return nil
	}
	return b.character
}

// Controller returns the typed controller, or nil.
func (b *Body) Controller() *Character { return b.character }
