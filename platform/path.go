package platform

import (
	"fmt"
	"strings"

	"github.com/jakecoffman/cp"
)

// Motion decides what a path follower does at the end of its waypoints.
type Motion int

const (
	// PingPong reverses direction at either end.
	PingPong Motion = iota
	// Loop wraps from the last waypoint back to the first.
	Loop
	// Once stops at the last waypoint.
	Once
)

func (m Motion) String() string {
	switch m {
	case PingPong:
		return "ping_pong"
	case Loop:
		return "loop"
	case Once:
		return "once"
	default:
		return fmt.Sprintf("motion(%d)", int(m))
	}
}

// ParseMotion accepts the names produced by Motion.String. The empty string
// maps to PingPong.
func ParseMotion(s string) (Motion, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "ping_pong", "pingpong", "back_forth":
		return PingPong, nil
	case "loop":
		return Loop, nil
	case "once":
		return Once, nil
	}
	return PingPong, fmt.Errorf("platform: unknown motion %q", s)
}

// waitEpsilon is the dwell below which a waypoint does not interrupt motion.
const waitEpsilon = 0.001

// Waypoint is a path node in platform-local space.
type Waypoint struct {
	Position cp.Vector
	// Wait is the dwell in seconds after arriving here.
	Wait float64
}

// PathConfig holds the authored motion settings of a platform.
type PathConfig struct {
	Speed           float64
	Motion          Motion
	MovingAtStart   bool
	OnlyWhenVisible bool
}

// PathFollower walks a platform along its waypoints and reports the
// displacement of every step.
type PathFollower struct {
	cfg       PathConfig
	waypoints []Waypoint
	world     []cp.Vector

	position cp.Vector
	current  int
	next     int
	dir      int
	wait     float64
	running  bool
	armed    bool

	dt           float64
	displacement cp.Vector
	arrivals     []int
}

// NewPathFollower copies the waypoints. The follower does nothing until
// Activate resolves them to world space.
func NewPathFollower(cfg PathConfig, waypoints []Waypoint) *PathFollower {
	return &PathFollower{
		cfg:       cfg,
		waypoints: append([]Waypoint(nil), waypoints...),
	}
}

// Activate converts the local waypoints to world space with the platform's
// placement transform and initializes the path state. The platform's logical
// position starts at the transform origin.
func (p *PathFollower) Activate(toWorld cp.Transform) {
	p.world = make([]cp.Vector, len(p.waypoints))
	for i, wp := range p.waypoints {
		p.world[i] = toWorld.Point(wp.Position)
	}
	p.position = toWorld.Point(cp.Vector{})
	p.init()
}

func (p *PathFollower) init() {
	p.current = 0
	p.dir = 1
	p.next = 0
	if len(p.world) > 1 && !p.collapsed() {
		p.next = 1
	}
	p.wait = 0
	if len(p.waypoints) > 0 {
		p.wait = p.waypoints[0].Wait
	}
	p.armed = false
	p.running = false
	if p.cfg.MovingAtStart {
		p.running = !p.cfg.OnlyWhenVisible
		p.armed = p.cfg.OnlyWhenVisible
	}
	p.displacement = cp.Vector{}
	p.arrivals = p.arrivals[:0]
}

// collapsed reports whether every world node sits on the same point. Such a
// path never moves, like a single waypoint.
func (p *PathFollower) collapsed() bool {
	for _, n := range p.world[1:] {
		if n != p.world[0] {
			return false
		}
	}
	return true
}

// Advance moves the logical position by speed*dt along the path and returns
// the displacement for this step.
func (p *PathFollower) Advance(dt float64) cp.Vector {
	p.dt = dt
	p.displacement = cp.Vector{}
	p.arrivals = p.arrivals[:0]

	if !p.running || p.current == p.next || len(p.world) < 2 {
		return p.displacement
	}
	if p.wait > 0 {
		p.wait -= dt
		return p.displacement
	}

	start := p.position
	remaining := p.cfg.Speed * dt
	idle := 0
	for remaining > 0 {
		delta := p.world[p.next].Sub(p.position)
		dist := delta.Length()
		// Landing exactly on a waypoint counts as arriving there.
		if dist > remaining {
			p.position = p.position.Add(delta.Mult(remaining / dist))
			break
		}

		remaining -= dist
		p.position = p.world[p.next]
		p.arrive()

		if p.wait > waitEpsilon || !p.running || p.current == p.next {
			break
		}
		// A full lap of zero-length hops can never use up the travel.
		if dist == 0 {
			idle++
			if idle >= len(p.world) {
				break
			}
		} else {
			idle = 0
		}
	}

	p.displacement = p.position.Sub(start)
	return p.displacement
}

func (p *PathFollower) arrive() {
	n := len(p.world)
	p.current = p.next
	p.wait = p.waypoints[p.current].Wait
	p.arrivals = append(p.arrivals, p.current)

	if p.dir > 0 {
		p.next++
		if p.next < n {
			return
		}
		switch p.cfg.Motion {
		case PingPong:
			p.next = n - 2
			p.dir = -1
		case Loop:
			p.next = 0
		case Once:
			p.next--
			p.running = false
		}
		return
	}

	p.next--
	if p.next >= 0 {
		return
	}
	switch p.cfg.Motion {
	case PingPong:
		p.next = 1
		p.dir = 1
	case Loop:
		p.next = n - 1
	case Once:
		p.next++
		p.running = false
	}
}

// StartMoving resumes the path.
func (p *PathFollower) StartMoving() { p.running = true }

// StopMoving pauses the path where it is.
func (p *PathFollower) StopMoving() { p.running = false }

// Reset snaps the logical position back to the first waypoint and restores the
// initial path state. The caller teleports the platform body to Position.
func (p *PathFollower) Reset() {
	if len(p.world) > 0 {
		p.position = p.world[0]
	}
	p.init()
}

// BecameVisible starts an armed platform. It has no effect once the platform
// has been started this way.
func (p *PathFollower) BecameVisible() bool {
	if !p.armed {
		return false
	}
	p.armed = false
	p.running = true
	return true
}

// Shift translates the whole resolved path with a parent platform.
func (p *PathFollower) Shift(d cp.Vector) {
	if d.X == 0 && d.Y == 0 {
		return
	}
	for i := range p.world {
		p.world[i] = p.world[i].Add(d)
	}
	p.position = p.position.Add(d)
}

func (p *PathFollower) Position() cp.Vector { return p.position }

// Displacement is the movement produced by the last Advance.
func (p *PathFollower) Displacement() cp.Vector { return p.displacement }

// Velocity is the last displacement divided by its step length.
func (p *PathFollower) Velocity() cp.Vector {
	if p.dt <= 0 {
		return cp.Vector{}
	}
	return p.displacement.Mult(1 / p.dt)
}

// Arrivals lists the waypoint indexes reached during the last Advance, in
// order. The slice is reused by the next call.
func (p *PathFollower) Arrivals() []int { return p.arrivals }

func (p *PathFollower) Current() int      { return p.current }
func (p *PathFollower) Next() int         { return p.next }
func (p *PathFollower) Direction() int    { return p.dir }
func (p *PathFollower) Running() bool     { return p.running }
func (p *PathFollower) Armed() bool       { return p.armed }
func (p *PathFollower) Waiting() bool     { return p.wait > 0 }
func (p *PathFollower) WaitLeft() float64 { return p.wait }
func (p *PathFollower) Config() PathConfig {
	return p.cfg
}

// WorldNodes returns the resolved waypoint positions.
func (p *PathFollower) WorldNodes() []cp.Vector {
	return append([]cp.Vector(nil), p.world...)
}
