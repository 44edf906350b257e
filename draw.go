package main

import (
	"image/color"
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/vector"
	"github.com/jakecoffman/cp"
	"golang.org/x/image/colornames"

	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/ecs/system"
)

const debugCircleSegments = 24

// view maps world units (y up) to screen pixels (y down) around the camera.
type view struct {
	camX, camY float64
	scale      float64
	halfW      float64
	halfH      float64
}

func newView(w *ecs.World) view {
	v := view{scale: baseWidth / 40.0, halfW: baseWidth / 2, halfH: baseHeight / 2}
	if _, cam, ok := ecs.First(w, component.CameraComponent); ok {
		v.camX, v.camY = cam.X, cam.Y
		if cam.Width > 0 {
			v.scale = baseWidth / cam.Width
		}
	}
	return v
}

func (v view) toScreen(p cp.Vector) (float64, float64) {
	return (p.X-v.camX)*v.scale + v.halfW, v.halfH - (p.Y-v.camY)*v.scale
}

func (v view) rect(bb cp.BB) (x, y, w, h float32) {
	left, top := v.toScreen(cp.Vector{X: bb.L, Y: bb.T})
	return float32(left), float32(top), float32((bb.R - bb.L) * v.scale), float32((bb.T - bb.B) * v.scale)
}

// drawBodies fills every body that has an Appearance with its color and
// outlines platforms that are carrying something.
func drawBodies(screen *ebiten.Image, w *ecs.World, v view) {
	ecs.ForEach2(w, component.PhysicsBodyComponent, component.AppearanceComponent, func(e ecs.Entity, body *component.PhysicsBody, look *component.Appearance) {
		if body.Body == nil {
			return
		}
		x, y, width, height := v.rect(body.Body.Bounds())
		vector.DrawFilledRect(screen, x, y, width, height, look.Color, false)

		if c, ok := ecs.Get(w, e, component.CarrierComponent); ok && c.Runtime != nil && c.Runtime.CarriedCount() > 0 {
			vector.StrokeRect(screen, x, y, width, height, 2, colornames.White, false)
		}
	})
}

// drawPaths draws each platform's resolved waypoints.
func drawPaths(screen *ebiten.Image, w *ecs.World, v view) {
	ecs.ForEach(w, component.PlatformComponent, func(_ ecs.Entity, plat *component.Platform) {
		if plat.Follower == nil {
			return
		}
		nodes := plat.Follower.WorldNodes()
		for i := 1; i < len(nodes); i++ {
			x1, y1 := v.toScreen(nodes[i-1])
			x2, y2 := v.toScreen(nodes[i])
			vector.StrokeLine(screen, float32(x1), float32(y1), float32(x2), float32(y2), 1, colornames.Lightgrey, true)
		}
	})
}

func drawPhysicsDebug(screen *ebiten.Image, sim *system.Simulation, v view) {
	if sim == nil || sim.Space == nil {
		return
	}
	cp.DrawSpace(sim.Space.Raw(), &physicsDebugDrawer{screen: screen, view: v})
}

type physicsDebugDrawer struct {
	screen *ebiten.Image
	view   view
}

func (d *physicsDebugDrawer) DrawCircle(pos cp.Vector, angle, radius float64, outline, fill cp.FColor, data interface{}) {
	d.drawCircle(pos, radius, outline)
	end := cp.Vector{X: pos.X + math.Cos(angle)*radius, Y: pos.Y + math.Sin(angle)*radius}
	d.drawLine(pos, end, outline)
}

func (d *physicsDebugDrawer) DrawSegment(a, b cp.Vector, fill cp.FColor, data interface{}) {
	d.drawLine(a, b, fill)
}

func (d *physicsDebugDrawer) DrawFatSegment(a, b cp.Vector, radius float64, outline, fill cp.FColor, data interface{}) {
	d.drawLine(a, b, outline)
	d.drawCircle(a, radius, outline)
	d.drawCircle(b, radius, outline)
}

func (d *physicsDebugDrawer) DrawPolygon(count int, verts []cp.Vector, radius float64, outline, fill cp.FColor, data interface{}) {
	if count <= 0 {
		return
	}
	d.drawPolygon(verts[:count], outline)
}

func (d *physicsDebugDrawer) DrawDot(size float64, pos cp.Vector, fill cp.FColor, data interface{}) {
	half := size / 2 / d.view.scale
	d.drawLine(cp.Vector{X: pos.X - half, Y: pos.Y}, cp.Vector{X: pos.X + half, Y: pos.Y}, fill)
	d.drawLine(cp.Vector{X: pos.X, Y: pos.Y - half}, cp.Vector{X: pos.X, Y: pos.Y + half}, fill)
}

func (d *physicsDebugDrawer) Flags() uint {
	return cp.DRAW_SHAPES | cp.DRAW_COLLISION_POINTS
}

func (d *physicsDebugDrawer) OutlineColor() cp.FColor {
	return cp.FColor{R: 0.2, G: 1, B: 0.2, A: 0.9}
}

func (d *physicsDebugDrawer) ShapeColor(shape *cp.Shape, data interface{}) cp.FColor {
	if shape.Sensor() {
		return cp.FColor{R: 0.9, G: 0.8, B: 0.1, A: 0.5}
	}
	return cp.FColor{R: 0.1, G: 0.6, B: 0.1, A: 0.5}
}

func (d *physicsDebugDrawer) ConstraintColor() cp.FColor {
	return cp.FColor{R: 1, G: 0.5, B: 0.1, A: 0.9}
}

func (d *physicsDebugDrawer) CollisionPointColor() cp.FColor {
	return cp.FColor{R: 1, G: 0.2, B: 0.2, A: 0.9}
}

func (d *physicsDebugDrawer) Data() interface{} {
	return nil
}

func (d *physicsDebugDrawer) drawLine(a, b cp.Vector, c cp.FColor) {
	x1, y1 := d.view.toScreen(a)
	x2, y2 := d.view.toScreen(b)
	ebitenutil.DrawLine(d.screen, x1, y1, x2, y2, toNRGBA(c))
}

func (d *physicsDebugDrawer) drawPolygon(verts []cp.Vector, c cp.FColor) {
	for i := range verts {
		d.drawLine(verts[i], verts[(i+1)%len(verts)], c)
	}
}

func (d *physicsDebugDrawer) drawCircle(center cp.Vector, radius float64, c cp.FColor) {
	if radius <= 0 {
		return
	}
	points := make([]cp.Vector, 0, debugCircleSegments)
	for i := 0; i < debugCircleSegments; i++ {
		t := (2 * math.Pi) * (float64(i) / float64(debugCircleSegments))
		points = append(points, cp.Vector{X: center.X + math.Cos(t)*radius, Y: center.Y + math.Sin(t)*radius})
	}
	d.drawPolygon(points, c)
}

func toNRGBA(c cp.FColor) color.NRGBA {
	return color.NRGBA{
		R: uint8(clamp01(c.R) * 255),
		G: uint8(clamp01(c.G) * 255),
		B: uint8(clamp01(c.B) * 255),
		A: uint8(clamp01(c.A) * 255),
	}
}

func clamp01(v float32) float32 {
	return float32(math.Max(0, math.Min(1, float64(v))))
}
