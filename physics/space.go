// Package physics adapts a Chipmunk2D space to the platform package: it owns
// the cp.Space, wraps its bodies and answers contact queries.
package physics

import (
	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/platformkit/platform"
)

// Space owns a cp.Space and every Body created in it.
type Space struct {
	space  *cp.Space
	bodies []*Body
	log    *zap.Logger

	characters []*Character
}

// NewSpace creates a space with the given gravity. A nil logger is replaced
// by a no-op one.
func NewSpace(gravity cp.Vector, iterations uint, log *zap.Logger) *Space {
	if log == nil {
		log = zap.NewNop()
	}
	space := cp.NewSpace()
	if iterations > 0 {
		space.Iterations = iterations
	}
	space.SetGravity(gravity)
	return &Space{space: space, log: log}
}

// Raw exposes the underlying cp.Space, e.g. for debug drawing.
func (s *Space) Raw() *cp.Space {
	if s == nil {
		return nil
	}
	return s.space
}

// Bodies lists the bodies in creation order.
func (s *Space) Bodies() []*Body { return s.bodies }

// Step advances the simulation by dt after flushing pending character moves.
func (s *Space) Step(dt float64) {
	if s == nil || s.space == nil || dt <= 0 {
		return
	}
	s.FlushCharacters()
	s.space.Step(dt)
}

// FlushCharacters resolves every character's accumulated displacement.
func (s *Space) FlushCharacters() {
	for _, c := range s.characters {
		c.Flush()
	}
}

// Remove takes b out of the space. The Body must not be used afterwards.
func (s *Space) Remove(b *Body) {
	if s == nil || b == nil || b.space != s {
		return
	}
	if b.shape != nil {
		s.space.RemoveShape(b.shape)
	}
	if b.body != nil {
		s.space.RemoveBody(b.body)
	}
	for i, other := range s.bodies {
		if other == b {
			s.bodies = append(s.bodies[:i], s.bodies[i+1:]...)
			break
		}
	}
	if b.character != nil {
		for i, c := range s.characters {
			if c == b.character {
				s.characters = append(s.characters[:i], s.characters[i+1:]...)
				break
			}
		}
	}
	b.space = nil
}

// Contacts implements platform.ContactSource. Solid contacts come from the
// arbiters of the last step; sensor overlaps are found with a shape query
// when the filter asks for triggers.
func (s *Space) Contacts(pb platform.Body, filter platform.ContactFilter, dst []platform.Contact) []platform.Contact {
	b, ok := pb.(*Body)
	if !ok || b == nil || b.space != s || b.body == nil {
		return dst
	}

	b.body.EachArbiter(func(arb *cp.Arbiter) {
		if arb.Count() == 0 {
			return
		}
		own, other := arb.Shapes()
		if own != b.shape {
			return
		}
		ob := bodyOf(other)
		if ob == nil || !filter.Accepts(other.Filter.Categories, other.Sensor()) {
			return
		}
		dst = append(dst, platform.Contact{Other: ob, Normal: arb.Normal().Neg()})
	})

	if filter.IncludeTriggers && b.shape != nil {
		s.space.ShapeQuery(b.shape, func(shape *cp.Shape, points *cp.ContactPointSet) {
			if !shape.Sensor() && !b.shape.Sensor() {
				return
			}
			ob := bodyOf(shape)
			if ob == nil || ob == b || !filter.Accepts(shape.Filter.Categories, true) {
				return
			}
			dst = append(dst, platform.Contact{Other: ob, Normal: points.Normal.Neg()})
		})
	}
	return dst
}

func bodyOf(shape *cp.Shape) *Body {
	if shape == nil {
		return nil
	}
	b, _ := shape.UserData.(*Body)
	return b
}
