// Package platform moves kinematic platforms along waypoint paths and carries
// the dynamic bodies that rest on them.
//
// The package is independent of the physics backend. Bodies and contact
// queries are reached through the Body and ContactSource interfaces; vector
// math uses cp.Vector and cp.BB.
package platform

import "github.com/jakecoffman/cp"

// Down is the world-space gravity direction used to classify supporting contacts.
var Down = cp.Vector{X: 0, Y: -1}

// SupportDot is the minimum dot product between a contact normal and Down for
// the contact to count as "resting on top" (roughly a 36 degree cone).
const SupportDot = 0.8

// DefaultTolerance is the largest vertical gap, in world units, that still
// counts as touching when geometric contact has been lost.
const DefaultTolerance = 0.05

// Body is a rigid body the carrier can inspect and move. Implementations must
// be comparable (pointer types) since bodies are used as identity keys.
type Body interface {
	// Dynamic reports whether the body is simulated (not static or kinematic).
	Dynamic() bool
	// Bounds returns the world-space bounding box of the body's collider.
	Bounds() cp.BB
	// Translate repositions the body by d without collision resolution.
	Translate(d cp.Vector)
	Mass() float64
}

// Mover resolves a displacement with the body's own collision handling, e.g. a
// character controller.
type Mover interface {
	Move(d cp.Vector)
}

// CharacterBody is a Body that may expose a Mover. Character returns nil when
// the body has no controlled movement.
type CharacterBody interface {
	Body
	Character() Mover
}

// ContactFilter selects which contacts a query reports.
type ContactFilter struct {
	// Layers is a category bitmask; zero means every layer.
	Layers uint
	// IncludeTriggers reports contacts with sensor shapes too.
	IncludeTriggers bool
}

// Accepts reports whether a shape on the given layers, sensor or not, passes
// the filter.
func (f ContactFilter) Accepts(layers uint, sensor bool) bool {
	if sensor && !f.IncludeTriggers {
		return false
	}
	if f.Layers == 0 {
		return true
	}
	return f.Layers&layers != 0
}

// Contact is one touching pair as seen from the queried body.
type Contact struct {
	Other Body
	// Normal points from Other onto the queried body.
	Normal cp.Vector
}

// Supporting reports whether Other rests on top of the queried body.
func (c Contact) Supporting() bool {
	return c.Normal.Dot(Down) > SupportDot
}

// ContactSource answers point-in-time contact queries against the current
// physics state. Results are appended to dst.
type ContactSource interface {
	Contacts(body Body, filter ContactFilter, dst []Contact) []Contact
}
