package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"
	"golang.org/x/image/colornames"

	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/ecs/system"
	"github.com/milk9111/platformkit/prefabs"
)

const (
	baseWidth  = 1280
	baseHeight = 720
)

type Game struct {
	levelName string
	log       *zap.Logger

	sim      *system.Simulation
	panel    *controlPanel
	watcher  *prefabs.Watcher
	selected int

	paused bool
	debug  bool
	paths  bool
}

func NewGame(levelName string, debug bool, watcher *prefabs.Watcher, log *zap.Logger) (*Game, error) {
	if log == nil {
		log = zap.NewNop()
	}
	sim, err := system.LoadSimulation(levelName, log)
	if err != nil {
		return nil, err
	}
	g := &Game{
		levelName: levelName,
		log:       log,
		sim:       sim,
		watcher:   watcher,
		debug:     debug,
		paths:     true,
	}
	g.panel = newControlPanel(g)
	return g, nil
}

func (g *Game) Update() error {
	g.pollWatcher()
	g.handleKeys()
	g.panel.ui.Update()

	if !g.paused {
		g.sim.Step()
		for _, ev := range g.sim.Events() {
			g.log.Debug("event", zap.String("type", ev.Type), zap.Stringer("entity", ev.Entity), zap.Any("data", ev.Data))
		}
	}
	g.panel.refresh(g.status(), g.paused)
	return nil
}

func (g *Game) handleKeys() {
	in := component.Input{
		Left:  ebiten.IsKeyPressed(ebiten.KeyA) || ebiten.IsKeyPressed(ebiten.KeyArrowLeft),
		Right: ebiten.IsKeyPressed(ebiten.KeyD) || ebiten.IsKeyPressed(ebiten.KeyArrowRight),
		Jump:  ebiten.IsKeyPressed(ebiten.KeySpace) || ebiten.IsKeyPressed(ebiten.KeyW),
	}
	g.sim.SetInput(g.sim.Level.Camera.Target, in)

	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeyTab):
		g.selectPlatform(1)
	case inpututil.IsKeyJustPressed(ebiten.Key1):
		g.startSelected()
	case inpututil.IsKeyJustPressed(ebiten.Key2):
		g.stopSelected()
	case inpututil.IsKeyJustPressed(ebiten.Key3):
		g.resetSelected()
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.togglePause()
	case inpututil.IsKeyJustPressed(ebiten.KeyF1):
		g.debug = !g.debug
	case inpututil.IsKeyJustPressed(ebiten.KeyF2):
		g.paths = !g.paths
	case inpututil.IsKeyJustPressed(ebiten.KeyF5):
		g.reload()
	case inpututil.IsKeyJustPressed(ebiten.KeyPeriod):
		if g.paused {
			g.sim.Step()
		}
	}
}

// pollWatcher drains the watcher without blocking. Script edits recompile
// in place; level edits rebuild the simulation.
func (g *Game) pollWatcher() {
	if g.watcher == nil {
		return
	}
	for {
		select {
		case path, ok := <-g.watcher.Events:
			if !ok {
				g.watcher = nil
				return
			}
			if strings.EqualFold(filepath.Ext(path), ".tengo") {
				g.log.Info("reload: script changed", zap.String("path", path))
				g.sim.Scripts().Invalidate(path)
				continue
			}
			g.log.Info("reload: level changed", zap.String("path", path))
			g.reload()
		case err, ok := <-g.watcher.Errors:
			if ok {
				g.log.Warn("reload: watcher error", zap.Error(err))
			}
		default:
			return
		}
	}
}

func (g *Game) reload() {
	sim, err := system.LoadSimulation(g.levelName, g.log)
	if err != nil {
		g.log.Error("reload: keeping the current level", zap.String("level", g.levelName), zap.Error(err))
		return
	}
	g.sim = sim
	g.selectPlatform(0)
}

func (g *Game) selectedName() string {
	names := g.sim.Platforms()
	if len(names) == 0 {
		return ""
	}
	return names[g.selected%len(names)]
}

func (g *Game) selectPlatform(delta int) {
	n := len(g.sim.Platforms())
	if n == 0 {
		g.selected = 0
		return
	}
	g.selected = ((g.selected+delta)%n + n) % n
}

func (g *Game) startSelected() {
	if name := g.selectedName(); name != "" {
		g.sim.Start(name)
	}
}

func (g *Game) stopSelected() {
	if name := g.selectedName(); name != "" {
		g.sim.Stop(name)
	}
}

func (g *Game) resetSelected() {
	if name := g.selectedName(); name != "" {
		g.sim.Reset(name)
	}
}

func (g *Game) togglePause() { g.paused = !g.paused }

func (g *Game) status() string {
	name := g.selectedName()
	if name == "" {
		return "no platforms"
	}
	pos, _ := g.sim.Position(name)
	vel := g.sim.Velocity(name)
	return fmt.Sprintf("%s\npos (%.2f, %.2f)\nvel (%.2f, %.2f)", name, pos.X, pos.Y, vel.X, vel.Y)
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(colornames.Midnightblue)

	v := newView(g.sim.World)
	if g.paths {
		drawPaths(screen, g.sim.World, v)
	}
	drawBodies(screen, g.sim.World, v)
	if g.debug {
		drawPhysicsDebug(screen, g.sim, v)
	}

	ebitenutil.DebugPrint(screen, fmt.Sprintf("%s  t=%.2fs  FPS: %.1f\nA/D move, space jump, tab select, 1/2/3 start/stop/reset, P pause, F1 debug, F5 reload",
		g.sim.Level.Name, g.sim.Time(), ebiten.ActualFPS()))
	g.panel.ui.Draw(screen)
}

func (g *Game) LayoutF(outsideWidth, outsideHeight float64) (float64, float64) {
	return baseWidth, baseHeight
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	panic("shouldn't use Layout")
}
