package system

import (
	"cmp"
	"slices"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/platform"
)

// HierarchySystem activates new platforms once their physics body exists and
// wires carriers and platform frames to their nearest ancestors. The wiring
// runs again only when a platform is added or removed.
type HierarchySystem struct {
	source platform.ContactSource
	log    *zap.Logger

	known    map[ecs.Entity]struct{}
	parents  map[ecs.Entity]ecs.Entity
	depth    map[ecs.Entity]int
	order    []ecs.Entity
	resolved int
	unlinked map[ecs.Entity]string
}

func NewHierarchySystem(source platform.ContactSource, log *zap.Logger) *HierarchySystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &HierarchySystem{
		source:   source,
		log:      log,
		known:    make(map[ecs.Entity]struct{}),
		parents:  make(map[ecs.Entity]ecs.Entity),
		depth:    make(map[ecs.Entity]int),
		unlinked: make(map[ecs.Entity]string),
	}
}

// Order lists active platform entities with every ancestor before its
// descendants.
func (hs *HierarchySystem) Order() []ecs.Entity { return hs.order }

// PlatformParent returns the nearest ancestor platform of e.
func (hs *HierarchySystem) PlatformParent(e ecs.Entity) (ecs.Entity, bool) {
	p, ok := hs.parents[e]
	return p, ok
}

// Resolutions counts how many times the hierarchy has been rebuilt.
func (hs *HierarchySystem) Resolutions() int { return hs.resolved }

func (hs *HierarchySystem) Update(w *ecs.World) {
	if hs == nil || w == nil {
		return
	}
	changed := hs.activate(w)
	for e := range hs.known {
		if !w.IsAlive(e) || !ecs.Has(w, e, component.PlatformComponent) {
			delete(hs.known, e)
			changed = true
		}
	}
	if changed {
		hs.resolve(w)
	}
}

// activate creates the follower and carrier runtimes of platforms whose body
// has been created.
func (hs *HierarchySystem) activate(w *ecs.World) bool {
	changed := false
	ecs.ForEach3(w, component.PlatformComponent, component.PhysicsBodyComponent, component.TransformComponent, func(e ecs.Entity, plat *component.Platform, bodyComp *component.PhysicsBody, transform *component.Transform) {
		if bodyComp.Body == nil {
			return
		}
		if plat.Follower == nil {
			plat.Follower = platform.NewPathFollower(plat.Config, plat.Waypoints)
			placement := cp.NewTransformRigid(cp.Vector{X: transform.X, Y: transform.Y}, transform.Rotation)
			plat.Follower.Activate(placement)
			hs.log.Info("platform: spawned",
				zap.Stringer("entity", e),
				zap.String("name", entityName(w, e)),
				zap.Stringer("motion", plat.Config.Motion),
				zap.Int("waypoints", len(plat.Waypoints)),
				zap.Bool("running", plat.Follower.Running()),
			)
		}
		if c, ok := ecs.Get(w, e, component.CarrierComponent); ok && c.Runtime == nil {
			c.Runtime = platform.NewCarrier(bodyComp.Body, hs.source, c.Filter)
			if c.Tolerance > 0 {
				c.Runtime.Tolerance = c.Tolerance
			}
		}
		if _, ok := hs.known[e]; !ok {
			hs.known[e] = struct{}{}
			changed = true
		}
	})
	return changed
}

func (hs *HierarchySystem) resolve(w *ecs.World) {
	hs.resolved++

	byName := make(map[string]ecs.Entity)
	ecs.ForEach(w, component.NameComponent, func(e ecs.Entity, n *component.Name) {
		if _, dup := byName[n.Value]; !dup {
			byName[n.Value] = e
		}
	})
	parentOf := func(e ecs.Entity) (ecs.Entity, bool) {
		p, ok := ecs.Get(w, e, component.ParentComponent)
		if !ok || p.Name == "" {
			return 0, false
		}
		target, ok := byName[p.Name]
		if !ok {
			if hs.unlinked[e] != p.Name {
				hs.unlinked[e] = p.Name
				hs.log.Warn("platform: unknown parent", zap.String("name", entityName(w, e)), zap.String("parent", p.Name))
			}
			return 0, false
		}
		return target, true
	}

	carriers := make(map[ecs.Entity]*platform.Carrier)
	for e := range hs.known {
		if c, ok := ecs.Get(w, e, component.CarrierComponent); ok && c.Runtime != nil {
			carriers[e] = c.Runtime
		}
	}
	links := platform.ResolveHierarchy(carriers, parentOf)
	for child, parent := range links {
		hs.log.Info("platform: parent resolved",
			zap.String("name", entityName(w, child)),
			zap.String("parent", entityName(w, parent)),
		)
	}

	// Platform frames follow the nearest ancestor platform whether or not
	// either side carries bodies.
	clear(hs.parents)
	for e := range hs.known {
		seen := map[ecs.Entity]bool{e: true}
		for cur, ok := parentOf(e); ok && !seen[cur]; cur, ok = parentOf(cur) {
			seen[cur] = true
			if _, isPlatform := hs.known[cur]; isPlatform {
				hs.parents[e] = cur
				break
			}
		}
	}

	clear(hs.depth)
	hs.order = hs.order[:0]
	for e := range hs.known {
		d := 0
		for p, ok := hs.parents[e]; ok && d <= len(hs.known); p, ok = hs.parents[p] {
			d++
		}
		hs.depth[e] = d
		hs.order = append(hs.order, e)
	}
	slices.SortFunc(hs.order, func(a, b ecs.Entity) int {
		if c := cmp.Compare(hs.depth[a], hs.depth[b]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
}

func entityName(w *ecs.World, e ecs.Entity) string {
	if n, ok := ecs.Get(w, e, component.NameComponent); ok {
		return n.Value
	}
	return e.String()
}
