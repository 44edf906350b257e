package platform

import "github.com/jakecoffman/cp"

// CarriedBody is a body a carrier has seen resting on it. Entries are never
// removed; InContact is recomputed every step.
type CarriedBody struct {
	Body      Body
	InContact bool

	mover   Mover
	checked bool
}

// Mover returns the body's movement handle, or nil when the carrier moves the
// body by direct reposition.
func (c *CarriedBody) Mover() Mover { return c.mover }

func (c *CarriedBody) move(d cp.Vector) {
	if c.mover != nil {
		c.mover.Move(d)
		return
	}
	c.Body.Translate(d)
}

// Carrier tracks which bodies ride a platform and moves them with it.
// Carriers form a tree: a carrier attached to a parent receives the parent's
// displacement before the parent moves its own bodies.
type Carrier struct {
	// Filter selects the contacts considered by RefreshContacts.
	Filter ContactFilter
	// Tolerance is the largest vertical gap accepted by the proximity
	// fallback. Zero means DefaultTolerance.
	Tolerance float64

	body   Body
	source ContactSource

	parent   *Carrier
	children []*Carrier

	entries  []*CarriedBody
	index    map[Body]int
	contacts []Contact
}

// NewCarrier creates a carrier for the platform body, querying contacts from
// source.
func NewCarrier(body Body, source ContactSource, filter ContactFilter) *Carrier {
	return &Carrier{
		Filter:    filter,
		Tolerance: DefaultTolerance,
		body:      body,
		source:    source,
		index:     make(map[Body]int),
		contacts:  make([]Contact, 0, 20),
	}
}

// Body returns the platform body this carrier belongs to.
func (c *Carrier) Body() Body { return c.body }

func (c *Carrier) Parent() *Carrier { return c.parent }

// Children returns the carriers attached below this one.
func (c *Carrier) Children() []*Carrier { return c.children }

// Depth is the number of ancestors above this carrier.
func (c *Carrier) Depth() int {
	d := 0
	for p := c.parent; p != nil; p = p.parent {
		d++
	}
	return d
}

// AttachTo makes parent the ancestor of c. It refuses to create a cycle and
// detaches c from any previous parent. A nil parent detaches.
func (c *Carrier) AttachTo(parent *Carrier) bool {
	for p := parent; p != nil; p = p.parent {
		if p == c {
			return false
		}
	}
	if c.parent == parent {
		return true
	}
	if c.parent != nil {
		c.parent.removeChild(c)
	}
	c.parent = parent
	if parent != nil {
		parent.children = append(parent.children, c)
	}
	return true
}

func (c *Carrier) removeChild(child *Carrier) {
	for i, ch := range c.children {
		if ch == child {
			c.children = append(c.children[:i], c.children[i+1:]...)
			return
		}
	}
}

// RefreshContacts recomputes which known bodies touch the platform this step
// and discovers new ones, following stacks of bodies until nothing changes.
func (c *Carrier) RefreshContacts() {
	for _, e := range c.entries {
		e.InContact = false
		e.checked = false
	}
	if c.body == nil || c.source == nil {
		return
	}

	c.collect(c.body)

	for {
		for i, n := 0, len(c.entries); i < n; i++ {
			e := c.entries[i]
			if e.InContact {
				if !e.checked {
					c.collect(e.Body)
					e.checked = true
				}
				continue
			}
			// Collider resizes can drop every contact for a step, so fall
			// back to the gap above the platform.
			if c.resting(e.Body) {
				e.InContact = true
				e.checked = true
			}
		}
		if !c.pending() {
			return
		}
	}
}

func (c *Carrier) pending() bool {
	for _, e := range c.entries {
		if e.InContact && !e.checked {
			return true
		}
	}
	return false
}

func (c *Carrier) collect(b Body) {
	c.contacts = c.source.Contacts(b, c.Filter, c.contacts[:0])
	for _, ct := range c.contacts {
		if ct.Other == nil || !ct.Supporting() {
			continue
		}
		if i, ok := c.index[ct.Other]; ok {
			c.entries[i].InContact = true
			continue
		}
		if ct.Other == c.body || !ct.Other.Dynamic() {
			continue
		}
		c.add(ct.Other)
	}
}

func (c *Carrier) add(b Body) *CarriedBody {
	e := &CarriedBody{Body: b, InContact: true}
	if ch, ok := b.(CharacterBody); ok {
		e.mover = ch.Character()
	}
	c.index[b] = len(c.entries)
	c.entries = append(c.entries, e)
	return e
}

// resting reports whether b sits just above the platform: horizontally
// overlapping and with its bottom inside (0, Tolerance) of the platform top.
func (c *Carrier) resting(b Body) bool {
	own := c.body.Bounds()
	bb := b.Bounds()
	if bb.R <= own.L || bb.L >= own.R {
		return false
	}
	gap := bb.B - own.T
	return gap > 0 && gap < c.tolerance()
}

func (c *Carrier) tolerance() float64 {
	if c.Tolerance > 0 {
		return c.Tolerance
	}
	return DefaultTolerance
}

// Apply moves every carried body by d. Child carriers receive d first; bodies
// that an ancestor currently carries are left to that ancestor.
func (c *Carrier) Apply(d cp.Vector) {
	if d.X == 0 && d.Y == 0 {
		return
	}
	for _, child := range c.children {
		child.Apply(d)
	}
	for _, e := range c.entries {
		if !e.InContact || c.ancestorCarries(e.Body) {
			continue
		}
		e.move(d)
	}
}

func (c *Carrier) ancestorCarries(b Body) bool {
	for p := c.parent; p != nil; p = p.parent {
		if p.IsCarrying(b) {
			return true
		}
	}
	return false
}

// IsCarrying reports whether b is known and currently in contact.
func (c *Carrier) IsCarrying(b Body) bool {
	i, ok := c.index[b]
	return ok && c.entries[i].InContact
}

// Known reports whether b has ever been carried.
func (c *Carrier) Known(b Body) bool {
	_, ok := c.index[b]
	return ok
}

// CarriedCount is the number of bodies currently in contact.
func (c *Carrier) CarriedCount() int {
	n := 0
	for _, e := range c.entries {
		if e.InContact {
			n++
		}
	}
	return n
}

// CarriedMass sums the mass of the bodies currently in contact.
func (c *Carrier) CarriedMass() float64 {
	m := 0.0
	for _, e := range c.entries {
		if e.InContact {
			m += e.Body.Mass()
		}
	}
	return m
}

// Entries returns every body the carrier has discovered. The slice is owned
// by the carrier.
func (c *Carrier) Entries() []*CarriedBody { return c.entries }
