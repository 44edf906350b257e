package entity

import (
	"fmt"

	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/physics"
	"github.com/milk9111/platformkit/prefabs"
)

// BuildLevel creates every camera, platform and body entity of level. The
// returned map indexes named entities.
func BuildLevel(w *ecs.World, level *prefabs.LevelSpec) (map[string]ecs.Entity, error) {
	if w == nil {
		return nil, fmt.Errorf("build level: world is nil")
	}
	if level == nil {
		return nil, fmt.Errorf("build level: level is nil")
	}

	named := make(map[string]ecs.Entity, len(level.Platforms)+len(level.Bodies))
	built := make([]ecs.Entity, 0, len(level.Platforms)+len(level.Bodies)+1)
	fail := func(err error) (map[string]ecs.Entity, error) {
		for _, e := range built {
			ecs.DestroyEntity(w, e)
		}
		return nil, fmt.Errorf("build level %q: %w", level.Name, err)
	}

	cam, err := BuildCamera(w, level.Camera)
	if err != nil {
		return fail(err)
	}
	built = append(built, cam)

	for i := range level.Platforms {
		spec := &level.Platforms[i]
		e, err := BuildPlatform(w, spec)
		if err != nil {
			return fail(fmt.Errorf("platform %d: %w", i, err))
		}
		built = append(built, e)
		if spec.Name != "" {
			named[spec.Name] = e
		}
	}
	for i := range level.Bodies {
		spec := &level.Bodies[i]
		e, err := BuildBody(w, spec)
		if err != nil {
			return fail(fmt.Errorf("body %d: %w", i, err))
		}
		built = append(built, e)
		if spec.Name != "" {
			named[spec.Name] = e
		}
	}
	return named, nil
}

func BuildCamera(w *ecs.World, spec prefabs.CameraSpec) (ecs.Entity, error) {
	e := ecs.CreateEntity(w)
	cam := &component.Camera{
		X:          spec.X,
		Y:          spec.Y,
		Width:      spec.Width,
		Height:     spec.Height,
		TargetName: spec.Target,
		Follow:     spec.Follow,
	}
	if cam.Width <= 0 || cam.Height <= 0 {
		cam.Width, cam.Height = 40, 22.5
	}
	if err := ecs.Add(w, e, component.CameraComponent, cam); err != nil {
		ecs.DestroyEntity(w, e)
		return 0, fmt.Errorf("camera: %w", err)
	}
	return e, nil
}

// BuildPlatform creates a kinematic platform entity. The follower and
// carrier runtimes are created once the physics body exists.
func BuildPlatform(w *ecs.World, spec *prefabs.PlatformSpec) (ecs.Entity, error) {
	cfg, err := spec.PathConfig()
	if err != nil {
		return 0, err
	}

	e := ecs.CreateEntity(w)
	adds := []func() error{
		func() error {
			return SetEntityTransform(w, e, spec.Transform.X, spec.Transform.Y, spec.Transform.Rotation)
		},
		func() error { return addName(w, e, spec.Name) },
		func() error {
			return ecs.Add(w, e, component.PhysicsBodyComponent, &component.PhysicsBody{
				Kind:   physics.Kinematic,
				Width:  spec.Size.Width,
				Height: spec.Size.Height,
				Layer:  spec.Layer,
			})
		},
		func() error {
			return ecs.Add(w, e, component.PlatformComponent, &component.Platform{
				Waypoints: spec.PathWaypoints(),
				Config:    cfg,
			})
		},
		func() error {
			if !spec.Carries() {
				return nil
			}
			return ecs.Add(w, e, component.CarrierComponent, &component.Carrier{
				Filter:    spec.Contact.Filter(),
				Tolerance: spec.Contact.Tolerance,
			})
		},
		func() error {
			if spec.Parent == "" {
				return nil
			}
			return ecs.Add(w, e, component.ParentComponent, &component.Parent{Name: spec.Parent})
		},
		func() error {
			if !cfg.OnlyWhenVisible {
				return nil
			}
			return ecs.Add(w, e, component.VisibilityComponent, &component.Visibility{})
		},
		func() error {
			if spec.Script == "" {
				return nil
			}
			return ecs.Add(w, e, component.PlatformScriptComponent, &component.PlatformScript{Path: spec.Script})
		},
		func() error { return addAppearance(w, e, spec.Color) },
	}
	for _, add := range adds {
		if err := add(); err != nil {
			ecs.DestroyEntity(w, e)
			return 0, fmt.Errorf("build platform %q: %w", spec.Name, err)
		}
	}
	return e, nil
}

// BuildBody creates a crate, character or static block.
func BuildBody(w *ecs.World, spec *prefabs.BodySpec) (ecs.Entity, error) {
	kind, err := spec.BodyKind()
	if err != nil {
		return 0, err
	}

	e := ecs.CreateEntity(w)
	adds := []func() error{
		func() error {
			return SetEntityTransform(w, e, spec.Transform.X, spec.Transform.Y, spec.Transform.Rotation)
		},
		func() error { return addName(w, e, spec.Name) },
		func() error {
			return ecs.Add(w, e, component.PhysicsBodyComponent, &component.PhysicsBody{
				Kind:          kind,
				Width:         spec.Size.Width,
				Height:        spec.Size.Height,
				Mass:          spec.Mass,
				Friction:      spec.Friction,
				Layer:         spec.Layer,
				Sensor:        spec.Sensor,
				FixedRotation: spec.Character != nil,
			})
		},
		func() error {
			if spec.Character == nil {
				return nil
			}
			if kind != physics.Dynamic {
				return fmt.Errorf("character needs a dynamic body, got %s", kind)
			}
			if err := ecs.Add(w, e, component.InputComponent, &component.Input{}); err != nil {
				return err
			}
			return ecs.Add(w, e, component.CharacterControllerComponent, &component.CharacterController{
				Speed:     spec.Character.Speed,
				JumpSpeed: spec.Character.JumpSpeed,
			})
		},
		func() error { return addAppearance(w, e, spec.Color) },
	}
	for _, add := range adds {
		if err := add(); err != nil {
			ecs.DestroyEntity(w, e)
			return 0, fmt.Errorf("build body %q: %w", spec.Name, err)
		}
	}
	return e, nil
}

func SetEntityTransform(w *ecs.World, e ecs.Entity, x, y, rotation float64) error {
	t, ok := ecs.Get(w, e, component.TransformComponent)
	if !ok || t == nil {
		t = &component.Transform{}
	}
	t.X = x
	t.Y = y
	t.Rotation = rotation
	return ecs.Add(w, e, component.TransformComponent, t)
}

func addName(w *ecs.World, e ecs.Entity, name string) error {
	if name == "" {
		return nil
	}
	return ecs.Add(w, e, component.NameComponent, &component.Name{Value: name})
}

func addAppearance(w *ecs.World, e ecs.Entity, c prefabs.YAMLColor) error {
	if c.Color == nil {
		return nil
	}
	return ecs.Add(w, e, component.AppearanceComponent, &component.Appearance{Color: c.Color})
}

// FindByName returns the first entity whose Name component equals name.
func FindByName(w *ecs.World, name string) (ecs.Entity, bool) {
	if name == "" {
		return 0, false
	}
	for _, e := range w.Query(component.NameComponent.Kind()) {
		if n, ok := ecs.Get(w, e, component.NameComponent); ok && n.Value == name {
			return e, true
		}
	}
	return 0, false
}
