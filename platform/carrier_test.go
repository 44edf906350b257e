package platform_test

import (
	"testing"

	"github.com/jakecoffman/cp"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/platformkit/platform"
)

type fakeBody struct {
	name    string
	dynamic bool
	bb      cp.BB
	mass    float64
	moved   cp.Vector
	mover   platform.Mover
}

func (b *fakeBody) Dynamic() bool  { return b.dynamic }
func (b *fakeBody) Bounds() cp.BB  { return b.bb }
func (b *fakeBody) Mass() float64  { return b.mass }
func (b *fakeBody) String() string { return b.name }

func (b *fakeBody) Translate(d cp.Vector) {
	b.bb = b.bb.Offset(d)
	b.moved = b.moved.Add(d)
}

type fakeCharacter struct {
	*fakeBody
}

func (c fakeCharacter) Character() platform.Mover { return c.mover }

type recordingMover struct {
	total cp.Vector
	calls int
}

func (m *recordingMover) Move(d cp.Vector) {
	m.total = m.total.Add(d)
	m.calls++
}

// fakeContacts answers queries from a fixed adjacency list.
type fakeContacts struct {
	touching map[platform.Body][]platform.Contact
	queries  int
	filters  []platform.ContactFilter
}

func newFakeContacts() *fakeContacts {
	return &fakeContacts{touching: make(map[platform.Body][]platform.Contact)}
}

// rest records top lying on bottom.
func (f *fakeContacts) rest(top, bottom platform.Body) {
	f.touching[bottom] = append(f.touching[bottom], platform.Contact{Other: top, Normal: cp.Vector{Y: -1}})
	f.touching[top] = append(f.touching[top], platform.Contact{Other: bottom, Normal: cp.Vector{Y: 1}})
}

// side records a horizontal push between a and b.
func (f *fakeContacts) side(a, b platform.Body) {
	f.touching[a] = append(f.touching[a], platform.Contact{Other: b, Normal: cp.Vector{X: 1}})
	f.touching[b] = append(f.touching[b], platform.Contact{Other: a, Normal: cp.Vector{X: -1}})
}

func (f *fakeContacts) clear() {
	f.touching = make(map[platform.Body][]platform.Contact)
}

func (f *fakeContacts) Contacts(body platform.Body, filter platform.ContactFilter, dst []platform.Contact) []platform.Contact {
	f.queries++
	f.filters = append(f.filters, filter)
	return append(dst, f.touching[body]...)
}

func box(name string, dynamic bool, l, b, r, t float64) *fakeBody {
	return &fakeBody{name: name, dynamic: dynamic, bb: cp.BB{L: l, B: b, R: r, T: t}, mass: 1}
}

func TestRefreshFindsWholeStackInOneCall(t *testing.T) {
	const n = 6
	world := newFakeContacts()
	plat := box("platform", false, -2, -1, 2, 0)
	carrier := platform.NewCarrier(plat, world, platform.ContactFilter{})

	var below platform.Body = plat
	stack := make([]*fakeBody, 0, n)
	for i := 0; i < n; i++ {
		b := box("crate", true, -0.5, float64(i), 0.5, float64(i+1))
		world.rest(b, below)
		stack = append(stack, b)
		below = b
	}

	carrier.RefreshContacts()

	require.Len(t, carrier.Entries(), n)
	for _, b := range stack {
		require.True(t, carrier.IsCarrying(b))
	}
	require.Equal(t, n, carrier.CarriedCount())
	require.Equal(t, float64(n), carrier.CarriedMass())
}

func TestRefreshIgnoresNonSupportingContacts(t *testing.T) {
	world := newFakeContacts()
	plat := box("platform", false, -2, -1, 2, 0)
	pusher := box("pusher", true, 2, -1, 3, 0)
	wall := box("wall", false, -3, 0, -2, 3)
	carrier := platform.NewCarrier(plat, world, platform.ContactFilter{})

	world.side(plat, pusher)
	world.rest(wall, plat)
	world.touching[plat] = append(world.touching[plat], platform.Contact{Other: plat, Normal: cp.Vector{Y: -1}})

	carrier.RefreshContacts()
	require.Empty(t, carrier.Entries())
}

func TestMembershipPersistsAcrossContactLoss(t *testing.T) {
	world := newFakeContacts()
	plat := box("platform", false, -2, -1, 2, 0)
	crate := box("crate", true, -0.5, 0, 0.5, 1)
	carrier := platform.NewCarrier(plat, world, platform.ContactFilter{})

	world.rest(crate, plat)
	carrier.RefreshContacts()
	require.True(t, carrier.IsCarrying(crate))

	world.clear()
	crate.bb = crate.bb.Offset(cp.Vector{Y: 3})
	carrier.RefreshContacts()
	require.False(t, carrier.IsCarrying(crate))
	require.True(t, carrier.Known(crate))
	require.Len(t, carrier.Entries(), 1)
	require.Zero(t, carrier.CarriedCount())

	crate.bb = crate.bb.Offset(cp.Vector{Y: -3})
	world.rest(crate, plat)
	carrier.RefreshContacts()
	require.True(t, carrier.IsCarrying(crate))
	require.Len(t, carrier.Entries(), 1)
}

func TestProximityFallbackBoundary(t *testing.T) {
	cases := []struct {
		name    string
		gap     float64
		left    float64
		contact bool
	}{
		{name: "inside", gap: 0.049, left: -0.5, contact: true},
		{name: "exact_tolerance", gap: 0.05, left: -0.5, contact: false},
		{name: "touching", gap: 0, left: -0.5, contact: false},
		{name: "far", gap: 0.5, left: -0.5, contact: false},
		{name: "not_aligned", gap: 0.01, left: 2, contact: false},
		{name: "edge_aligned", gap: 0.01, left: 1.9, contact: true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			world := newFakeContacts()
			plat := box("platform", false, -2, -1, 2, 0)
			crate := box("crate", true, -0.5, 0, 0.5, 1)
			carrier := platform.NewCarrier(plat, world, platform.ContactFilter{})

			world.rest(crate, plat)
			carrier.RefreshContacts()
			require.True(t, carrier.IsCarrying(crate))

			world.clear()
			crate.bb = cp.BB{L: c.left, B: c.gap, R: c.left + 1, T: c.gap + 1}
			carrier.RefreshContacts()
			require.Equal(t, c.contact, carrier.IsCarrying(crate))
		})
	}
}

func TestCustomTolerance(t *testing.T) {
	world := newFakeContacts()
	plat := box("platform", false, -2, -1, 2, 0)
	crate := box("crate", true, -0.5, 0, 0.5, 1)
	carrier := platform.NewCarrier(plat, world, platform.ContactFilter{})
	carrier.Tolerance = 0.5

	world.rest(crate, plat)
	carrier.RefreshContacts()
	world.clear()
	crate.bb = cp.BB{L: -0.5, B: 0.3, R: 0.5, T: 1.3}
	carrier.RefreshContacts()
	require.True(t, carrier.IsCarrying(crate))
}

func TestFallbackBodyStillCarriesItsStack(t *testing.T) {
	world := newFakeContacts()
	plat := box("platform", false, -2, -1, 2, 0)
	low := box("low", true, -0.5, 0, 0.5, 1)
	high := box("high", true, -0.5, 1, 0.5, 2)
	carrier := platform.NewCarrier(plat, world, platform.ContactFilter{})

	world.rest(low, plat)
	world.rest(high, low)
	carrier.RefreshContacts()
	require.Equal(t, 2, carrier.CarriedCount())

	// low loses its contact with the platform but keeps high on top.
	world.clear()
	world.rest(high, low)
	low.bb = cp.BB{L: -0.5, B: 0.02, R: 0.5, T: 1.02}
	carrier.RefreshContacts()

	require.True(t, carrier.IsCarrying(low))
	// Fallback-marked bodies are not re-queried, so high relies on its own fallback.
	require.False(t, carrier.IsCarrying(high))
}

func TestApplyMovesCarriedBodies(t *testing.T) {
	world := newFakeContacts()
	plat := box("platform", false, -2, -1, 2, 0)
	crate := box("crate", true, -0.5, 0, 0.5, 1)
	loose := box("loose", true, 5, 5, 6, 6)
	carrier := platform.NewCarrier(plat, world, platform.ContactFilter{})

	world.rest(crate, plat)
	carrier.RefreshContacts()
	carrier.Apply(cp.Vector{X: 0.25, Y: 0.5})

	require.Equal(t, cp.Vector{X: 0.25, Y: 0.5}, crate.moved)
	require.Equal(t, cp.Vector{}, loose.moved)
	require.Equal(t, cp.Vector{}, plat.moved)
}

func TestApplyDelegatesToMover(t *testing.T) {
	world := newFakeContacts()
	plat := box("platform", false, -2, -1, 2, 0)
	mover := &recordingMover{}
	body := box("hero", true, -0.5, 0, 0.5, 2)
	body.mover = mover
	hero := fakeCharacter{fakeBody: body}
	carrier := platform.NewCarrier(plat, world, platform.ContactFilter{})

	world.rest(hero, plat)
	carrier.RefreshContacts()
	require.Same(t, mover, carrier.Entries()[0].Mover())

	carrier.Apply(cp.Vector{X: 1})
	require.Equal(t, 1, mover.calls)
	require.Equal(t, cp.Vector{X: 1}, mover.total)
	require.Equal(t, cp.Vector{}, body.moved)
}

func TestApplyFallsBackWithoutMover(t *testing.T) {
	world := newFakeContacts()
	plat := box("platform", false, -2, -1, 2, 0)
	body := box("npc", true, -0.5, 0, 0.5, 2)
	npc := fakeCharacter{fakeBody: body}
	carrier := platform.NewCarrier(plat, world, platform.ContactFilter{})

	world.rest(npc, plat)
	carrier.RefreshContacts()
	require.Nil(t, carrier.Entries()[0].Mover())

	carrier.Apply(cp.Vector{X: -1})
	require.Equal(t, cp.Vector{X: -1}, body.moved)
}

func TestNestedCarriersApplyOnce(t *testing.T) {
	world := newFakeContacts()
	outerBody := box("outer", false, -10, -2, 10, -1)
	innerBody := box("inner", false, -1, -1, 1, 0)
	rider := box("rider", true, -0.5, 0, 0.5, 1)
	outer := platform.NewCarrier(outerBody, world, platform.ContactFilter{})
	inner := platform.NewCarrier(innerBody, world, platform.ContactFilter{})
	require.True(t, inner.AttachTo(outer))

	world.rest(rider, innerBody)
	outer.RefreshContacts()
	inner.RefreshContacts()
	require.False(t, outer.IsCarrying(rider))
	require.True(t, inner.IsCarrying(rider))

	dOuter := cp.Vector{X: 2}
	dInner := cp.Vector{Y: 0.5}
	for _, c := range platform.RootFirst([]*platform.Carrier{inner, outer}) {
		if c == outer {
			c.Apply(dOuter)
		} else {
			c.Apply(dInner)
		}
	}
	require.Equal(t, dOuter.Add(dInner), rider.moved)
}

func TestAncestorOwnsSharedBody(t *testing.T) {
	world := newFakeContacts()
	outerBody := box("outer", false, -10, -1, 10, 0)
	innerBody := box("inner", false, -1, -1, 1, 0)
	rider := box("rider", true, -0.5, 0, 0.5, 1)
	outer := platform.NewCarrier(outerBody, world, platform.ContactFilter{})
	inner := platform.NewCarrier(innerBody, world, platform.ContactFilter{})
	inner.AttachTo(outer)

	world.rest(rider, innerBody)
	world.rest(rider, outerBody)
	outer.RefreshContacts()
	inner.RefreshContacts()
	require.True(t, outer.IsCarrying(rider))
	require.True(t, inner.IsCarrying(rider))

	outer.Apply(cp.Vector{X: 3})
	require.Equal(t, cp.Vector{X: 3}, rider.moved)

	inner.Apply(cp.Vector{X: 1})
	require.Equal(t, cp.Vector{X: 3}, rider.moved)
}

func TestGrandchildReceivesCascade(t *testing.T) {
	world := newFakeContacts()
	a := platform.NewCarrier(box("a", false, 0, 0, 1, 1), world, platform.ContactFilter{})
	bBody := box("b", false, 0, 1, 1, 2)
	b := platform.NewCarrier(bBody, world, platform.ContactFilter{})
	cBody := box("c", false, 0, 2, 1, 3)
	c := platform.NewCarrier(cBody, world, platform.ContactFilter{})
	rider := box("rider", true, 0, 3, 1, 4)
	b.AttachTo(a)
	c.AttachTo(b)
	require.Equal(t, 2, c.Depth())

	world.rest(rider, cBody)
	for _, carrier := range []*platform.Carrier{a, b, c} {
		carrier.RefreshContacts()
	}
	a.Apply(cp.Vector{X: 1})
	require.Equal(t, cp.Vector{X: 1}, rider.moved)
}

func TestAttachToRejectsCycles(t *testing.T) {
	world := newFakeContacts()
	a := platform.NewCarrier(box("a", false, 0, 0, 1, 1), world, platform.ContactFilter{})
	b := platform.NewCarrier(box("b", false, 0, 0, 1, 1), world, platform.ContactFilter{})

	require.True(t, b.AttachTo(a))
	require.False(t, a.AttachTo(b))
	require.False(t, a.AttachTo(a))
	require.Nil(t, a.Parent())

	require.True(t, b.AttachTo(nil))
	require.Empty(t, a.Children())
}

func TestRefreshPassesFilter(t *testing.T) {
	world := newFakeContacts()
	plat := box("platform", false, -2, -1, 2, 0)
	crate := box("crate", true, -0.5, 0, 0.5, 1)
	filter := platform.ContactFilter{Layers: 0b100, IncludeTriggers: true}
	carrier := platform.NewCarrier(plat, world, filter)

	world.rest(crate, plat)
	carrier.RefreshContacts()

	require.Equal(t, 2, world.queries)
	for _, f := range world.filters {
		require.Equal(t, filter, f)
	}
}

func TestContactFilterAccepts(t *testing.T) {
	require.True(t, platform.ContactFilter{}.Accepts(0b1, false))
	require.False(t, platform.ContactFilter{}.Accepts(0b1, true))
	require.True(t, platform.ContactFilter{IncludeTriggers: true}.Accepts(0b1, true))
	require.False(t, platform.ContactFilter{Layers: 0b10}.Accepts(0b1, false))
	require.True(t, platform.ContactFilter{Layers: 0b11}.Accepts(0b1, false))
}

func TestResolveHierarchy(t *testing.T) {
	world := newFakeContacts()
	mk := func(name string) *platform.Carrier {
		return platform.NewCarrier(box(name, false, 0, 0, 1, 1), world, platform.ContactFilter{})
	}
	root, child, loopA, loopB := mk("root"), mk("child"), mk("loopA"), mk("loopB")
	parents := map[string]string{
		"child": "group",
		"group": "root",
		"loopA": "loopB",
		"loopB": "loopA",
	}
	nodes := map[string]*platform.Carrier{
		"root":  root,
		"child": child,
		"loopA": loopA,
		"loopB": loopB,
	}
	parentOf := func(k string) (string, bool) {
		p, ok := parents[k]
		return p, ok
	}

	links := platform.ResolveHierarchy(nodes, parentOf)

	require.Equal(t, "root", links["child"])
	require.Same(t, root, child.Parent())
	require.Nil(t, root.Parent())

	// loopA and loopB name each other; one attaches, the other is refused.
	attached := 0
	for _, c := range []*platform.Carrier{loopA, loopB} {
		if c.Parent() != nil {
			attached++
		}
	}
	require.Equal(t, 1, attached)

	order := platform.RootFirst([]*platform.Carrier{child, root})
	require.Same(t, root, order[0])
}
