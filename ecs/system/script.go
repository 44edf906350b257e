package system

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"go.uber.org/zap"

	"github.com/milk9111/platformkit/ecs"
	"github.com/milk9111/platformkit/ecs/component"
	"github.com/milk9111/platformkit/ecs/entity"
	"github.com/milk9111/platformkit/prefabs"
)

// Scripts define update(engine, state) and on_event(engine, state, name).
// The dispatcher below is appended to every script.
const platformDispatchScript = `
if __phase == "update" {
	update(__engine, __state)
} else if __phase == "event" {
	on_event(__engine, __state, __event)
}
`

type platformScript struct {
	path     string
	compiled *tengo.Compiled
	state    *tengo.Map
}

// ScriptSystem runs the tengo script bound to each platform once per frame
// and once per event the platform received this frame.
type ScriptSystem struct {
	dt  float64
	log *zap.Logger

	runtimes map[ecs.Entity]*platformScript
	failed   map[ecs.Entity]string
}

func NewScriptSystem(dt float64, log *zap.Logger) *ScriptSystem {
	if log == nil {
		log = zap.NewNop()
	}
	return &ScriptSystem{
		dt:       dt,
		log:      log,
		runtimes: make(map[ecs.Entity]*platformScript),
		failed:   make(map[ecs.Entity]string),
	}
}

// Invalidate drops compiled scripts loaded from path so the next update
// recompiles them. An empty path drops every script.
func (ss *ScriptSystem) Invalidate(path string) {
	for e, rt := range ss.runtimes {
		if path == "" || sameScript(rt.path, path) {
			delete(ss.runtimes, e)
		}
	}
	for e, p := range ss.failed {
		if path == "" || sameScript(p, path) {
			delete(ss.failed, e)
		}
	}
}

func sameScript(a, b string) bool {
	base := func(s string) string {
		s = strings.ReplaceAll(s, "\\", "/")
		if i := strings.LastIndex(s, "/"); i >= 0 {
			s = s[i+1:]
		}
		return s
	}
	return base(a) == base(b)
}

func (ss *ScriptSystem) Update(w *ecs.World) {
	if ss == nil || w == nil {
		return
	}
	for e := range ss.runtimes {
		if !ecs.Has(w, e, component.PlatformScriptComponent) {
			delete(ss.runtimes, e)
		}
	}

	events := append([]ecs.Event(nil), w.Events().Pending()...)
	ecs.ForEach(w, component.PlatformScriptComponent, func(e ecs.Entity, ps *component.PlatformScript) {
		rt, err := ss.runtime(e, ps.Path)
		if err != nil {
			if ss.failed[e] != ps.Path {
				ss.failed[e] = ps.Path
				ss.log.Error("script: load failed", zap.String("path", ps.Path), zap.Error(err))
			}
			return
		}

		var current *ecs.Event
		engine := ss.buildEngine(w, e, rt, &current)
		if err := rt.run("update", "", engine); err != nil {
			ss.log.Error("script: update failed", zap.String("path", rt.path), zap.Stringer("entity", e), zap.Error(err))
			return
		}
		for i := range events {
			if events[i].Entity != e {
				continue
			}
			current = &events[i]
			if err := rt.run("event", events[i].Type, engine); err != nil {
				ss.log.Error("script: on_event failed", zap.String("path", rt.path), zap.String("event", events[i].Type), zap.Error(err))
				return
			}
		}
	})
}

func (ss *ScriptSystem) runtime(e ecs.Entity, path string) (*platformScript, error) {
	if rt, ok := ss.runtimes[e]; ok && rt.path == path {
		return rt, nil
	}
	if ss.failed[e] == path {
		return nil, fmt.Errorf("script %s failed earlier", path)
	}
	rt, err := compilePlatformScript(path)
	if err != nil {
		return nil, err
	}
	delete(ss.failed, e)
	ss.runtimes[e] = rt
	ss.log.Debug("script: compiled", zap.String("path", path), zap.Stringer("entity", e))
	return rt, nil
}

func compilePlatformScript(path string) (*platformScript, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("empty script path")
	}
	src, err := prefabs.LoadScript(path)
	if err != nil {
		return nil, err
	}

	script := tengo.NewScript([]byte(string(src) + "\n" + platformDispatchScript))
	_ = script.Add("__phase", "")
	_ = script.Add("__engine", map[string]any{})
	_ = script.Add("__state", map[string]any{})
	_ = script.Add("__event", "")
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", path, err)
	}
	return &platformScript{
		path:     path,
		compiled: compiled,
		state:    &tengo.Map{Value: map[string]tengo.Object{}},
	}, nil
}

func (rt *platformScript) run(phase, event string, engine *tengo.ImmutableMap) error {
	if err := rt.compiled.Set("__phase", phase); err != nil {
		return err
	}
	if err := rt.compiled.Set("__engine", engine); err != nil {
		return err
	}
	if err := rt.compiled.Set("__state", rt.state); err != nil {
		return err
	}
	if err := rt.compiled.Set("__event", event); err != nil {
		return err
	}
	return rt.compiled.Run()
}

func (ss *ScriptSystem) buildEngine(w *ecs.World, self ecs.Entity, rt *platformScript, current **ecs.Event) *tengo.ImmutableMap {
	target := func(args []tengo.Object) (ecs.Entity, bool) {
		if len(args) == 0 {
			return self, true
		}
		return entity.FindByName(w, objectAsString(args[0]))
	}
	control := func(name string, fn func(*ecs.World, ecs.Entity) bool) *tengo.UserFunction {
		return &tengo.UserFunction{Name: name, Value: func(args ...tengo.Object) (tengo.Object, error) {
			e, ok := target(args)
			if !ok {
				return tengo.FalseValue, nil
			}
			return boolObject(fn(w, e)), nil
		}}
	}
	carrier := func() *component.Carrier {
		c, ok := ecs.Get(w, self, component.CarrierComponent)
		if !ok || c.Runtime == nil {
			return nil
		}
		return c
	}

	values := map[string]tengo.Object{
		"start": control("start", StartPlatform),
		"stop":  control("stop", StopPlatform),
		"reset": control("reset", ResetPlatform),
	}

	values["is_running"] = &tengo.UserFunction{Name: "is_running", Value: func(args ...tengo.Object) (tengo.Object, error) {
		e, ok := target(args)
		if !ok {
			return tengo.FalseValue, nil
		}
		plat, ok := ecs.Get(w, e, component.PlatformComponent)
		return boolObject(ok && plat.Follower != nil && plat.Follower.Running()), nil
	}}

	values["carried_count"] = &tengo.UserFunction{Name: "carried_count", Value: func(args ...tengo.Object) (tengo.Object, error) {
		c := carrier()
		if c == nil {
			return &tengo.Int{Value: 0}, nil
		}
		return &tengo.Int{Value: int64(c.Runtime.CarriedCount())}, nil
	}}

	values["carried_mass"] = &tengo.UserFunction{Name: "carried_mass", Value: func(args ...tengo.Object) (tengo.Object, error) {
		c := carrier()
		if c == nil {
			return &tengo.Float{Value: 0}, nil
		}
		return &tengo.Float{Value: c.Runtime.CarriedMass()}, nil
	}}

	values["is_carrying"] = &tengo.UserFunction{Name: "is_carrying", Value: func(args ...tengo.Object) (tengo.Object, error) {
		c := carrier()
		if c == nil || len(args) < 1 {
			return tengo.FalseValue, nil
		}
		e, ok := entity.FindByName(w, objectAsString(args[0]))
		if !ok {
			return tengo.FalseValue, nil
		}
		body, ok := ecs.Get(w, e, component.PhysicsBodyComponent)
		return boolObject(ok && body.Body != nil && c.Runtime.IsCarrying(body.Body)), nil
	}}

	values["position"] = &tengo.UserFunction{Name: "position", Value: func(args ...tengo.Object) (tengo.Object, error) {
		e, ok := target(args)
		if !ok {
			return vectorObject(0, 0), nil
		}
		t, ok := ecs.Get(w, e, component.TransformComponent)
		if !ok {
			return vectorObject(0, 0), nil
		}
		return vectorObject(t.X, t.Y), nil
	}}

	values["velocity"] = &tengo.UserFunction{Name: "velocity", Value: func(args ...tengo.Object) (tengo.Object, error) {
		e, ok := target(args)
		if !ok {
			return vectorObject(0, 0), nil
		}
		v := PlatformVelocity(w, e, ss.dt)
		return vectorObject(v.X, v.Y), nil
	}}

	values["dt"] = &tengo.UserFunction{Name: "dt", Value: func(args ...tengo.Object) (tengo.Object, error) {
		return &tengo.Float{Value: ss.dt}, nil
	}}

	values["event_data"] = &tengo.UserFunction{Name: "event_data", Value: func(args ...tengo.Object) (tengo.Object, error) {
		if *current == nil || (*current).Data == nil {
			return tengo.UndefinedValue, nil
		}
		obj, err := tengo.FromInterface((*current).Data)
		if err != nil {
			return tengo.UndefinedValue, nil
		}
		return obj, nil
	}}

	values["log"] = &tengo.UserFunction{Name: "log", Value: func(args ...tengo.Object) (tengo.Object, error) {
		parts := make([]string, 0, len(args))
		for _, a := range args {
			parts = append(parts, objectAsString(a))
		}
		ss.log.Info("script: "+strings.Join(parts, " "), zap.String("path", rt.path), zap.String("platform", entityName(w, self)))
		return tengo.UndefinedValue, nil
	}}

	return &tengo.ImmutableMap{Value: values}
}

func boolObject(v bool) tengo.Object {
	if v {
		return tengo.TrueValue
	}
	return tengo.FalseValue
}

func vectorObject(x, y float64) tengo.Object {
	return &tengo.Array{Value: []tengo.Object{&tengo.Float{Value: x}, &tengo.Float{Value: y}}}
}

func objectAsString(obj tengo.Object) string {
	if obj == nil {
		return ""
	}
	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	default:
		return strings.Trim(v.String(), "\"")
	}
}
