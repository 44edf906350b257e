package system

import (
	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/platform"
)

// PlatformSystem runs one platform step: every follower advances, every
// carrier refreshes its contacts, platform bodies move root first, then
// carriers push their bodies root first.
type PlatformSystem struct {
	hierarchy *HierarchySystem
	dt        float64
	log       *zap.Logger
}

func NewPlatformSystem(hierarchy *HierarchySystem, dt float64, log *zap.Logger) *PlatformSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &PlatformSystem{hierarchy: hierarchy, dt: dt, log: log}
}

type platformStep struct {
	e       ecs.Entity
	plat    *component.Platform
	body    *component.PhysicsBody
	carrier *component.Carrier
}

func (ps *PlatformSystem) Update(w *ecs.World) {
	if ps == nil || w == nil || ps.hierarchy == nil {
		return
	}

	steps := make([]platformStep, 0, len(ps.hierarchy.Order()))
	for _, e := range ps.hierarchy.Order() {
		plat, ok := ecs.Get(w, e, component.PlatformComponent)
		if !ok || plat.Follower == nil {
			continue
		}
		body, ok := ecs.Get(w, e, component.PhysicsBodyComponent)
		if !ok || body.Body == nil {
			continue
		}
		carrier, _ := ecs.Get(w, e, component.CarrierComponent)
		steps = append(steps, platformStep{e: e, plat: plat, body: body, carrier: carrier})
	}

	for _, s := range steps {
		wasRunning := s.plat.Follower.Running()
		s.plat.Moved = s.plat.Follower.Advance(ps.dt)
		for _, idx := range s.plat.Follower.Arrivals() {
			ps.log.Debug("platform: arrived", zap.String("name", entityName(w, s.e)), zap.Int("waypoint", idx))
			w.Events().Push(ecs.Event{Type: EventPlatformArrived, Entity: s.e, Data: idx})
		}
		if wasRunning && !s.plat.Follower.Running() {
			ps.log.Info("platform: path finished", zap.String("name", entityName(w, s.e)))
			w.Events().Push(ecs.Event{Type: EventPlatformStopped, Entity: s.e})
		}
	}

	for _, s := range steps {
		if s.carrier != nil && s.carrier.Runtime != nil {
			s.carrier.Runtime.RefreshContacts()
		}
	}

	// Reset jumps move child frames and bodies but are never carried.
	totals := make(map[ecs.Entity]cp.Vector, len(steps))
	jumps := make(map[ecs.Entity]cp.Vector, len(steps))
	for _, s := range steps {
		inherited, jump := cp.Vector{}, cp.Vector{}
		if parent, ok := ps.hierarchy.PlatformParent(s.e); ok {
			inherited, jump = totals[parent], jumps[parent]
		}
		s.plat.Follower.Shift(inherited.Add(jump))
		s.plat.Total = inherited.Add(s.plat.Moved)
		totals[s.e] = s.plat.Total
		jumps[s.e] = jump.Add(s.plat.Jump)
		s.plat.Jump = cp.Vector{}

		if s.plat.Total.X == 0 && s.plat.Total.Y == 0 && jump.X == 0 && jump.Y == 0 {
			continue
		}
		s.body.Body.SetPosition(s.plat.Follower.Position())
		s.body.Body.SetVelocity(cp.Vector{})
		if t, ok := ecs.Get(w, s.e, component.TransformComponent); ok {
			pos := s.plat.Follower.Position()
			t.X, t.Y = pos.X, pos.Y
		}
	}

	// A carrier receives its carrier ancestors' motion through Apply's
	// cascade, so it only adds what happened below the nearest one.
	carried := make(map[*platform.Carrier]cp.Vector, len(steps))
	for _, s := range steps {
		if s.carrier != nil && s.carrier.Runtime != nil {
			carried[s.carrier.Runtime] = s.plat.Total
		}
	}
	for _, s := range steps {
		if s.carrier == nil || s.carrier.Runtime == nil {
			continue
		}
		d := s.plat.Total
		if parent := s.carrier.Runtime.Parent(); parent != nil {
			d = d.Sub(carried[parent])
		}
		s.carrier.Runtime.Apply(d)
	}
}
