package physics

import "github.com/jakecoffman/cp"

// Character is a collision-aware mover for a dynamic body. Displacements
// requested through Move accumulate and are resolved against non-dynamic
// solids, one axis at a time, when the space flushes characters.
type Character struct {
	body    *Body
	pending cp.Vector
	blocked [2]bool
}

// AttachCharacter gives b a controller. Bodies that already have one return
// it unchanged.
func (s *Space) AttachCharacter(b *Body) *Character {
	if b == nil || b.space != s {
		return nil
	}
	if b.character != nil {
		return b.character
	}
	c := &Character{body: b}
	b.character = c
	s.characters = append(s.characters, c)
	return c
}

func (c *Character) Body() *Body { return c.body }

// Move queues d for the next flush.
func (c *Character) Move(d cp.Vector) {
	c.pending = c.pending.Add(d)
}

// Pending is the displacement waiting for the next flush.
func (c *Character) Pending() cp.Vector { return c.pending }

// Blocked reports whether the last flush dropped horizontal or vertical
// motion against a solid.
func (c *Character) Blocked() (x, y bool) { return c.blocked[0], c.blocked[1] }

// Flush applies the pending displacement and returns the part that was
// actually applied. A solid blocks an axis when the box would start
// overlapping it; solids already overlapping the box (for instance a
// platform that just moved into it) do not block.
func (c *Character) Flush() cp.Vector {
	d := c.pending
	c.pending = cp.Vector{}
	c.blocked = [2]bool{}
	if c.body == nil || c.body.space == nil || (d.X == 0 && d.Y == 0) {
		return cp.Vector{}
	}

	applied := cp.Vector{}
	if d.X != 0 {
		step := cp.Vector{X: d.X}
		if c.clear(step) {
			c.body.Translate(step)
			applied.X = d.X
		} else {
			c.blocked[0] = true
		}
	}
	if d.Y != 0 {
		step := cp.Vector{Y: d.Y}
		if c.clear(step) {
			c.body.Translate(step)
			applied.Y = d.Y
		} else {
			c.blocked[1] = true
		}
	}
	if c.blocked[0] || c.blocked[1] {
		c.body.space.log.Debug("physics: character move blocked",
			zapName(c.body.Name),
			zapVec("requested", d),
			zapVec("applied", applied),
		)
	}
	return applied
}

func (c *Character) clear(step cp.Vector) bool {
	own := c.body.Bounds()
	moved := own.Offset(step)
	free := true
	c.body.space.space.BBQuery(moved, cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, _ interface{}) {
		if !free || shape == c.body.shape {
			return
		}
		other := bodyOf(shape)
		if other == nil || other.Dynamic() {
			return
		}
		bb := other.Bounds()
		if overlaps(own, bb) {
			return
		}
		if overlaps(moved, bb) {
			free = false
		}
	}, nil)
	return free
}

func overlaps(a, b cp.BB) bool {
	return a.L < b.R && b.L < a.R && a.B < b.T && b.B < a.T
}
