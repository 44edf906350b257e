package prefabs

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"github.com/jakecoffman/cp"
	"gopkg.in/yaml.v3"

	"github.com/milk9111/platformkit/physics"
	"github.com/milk9111/platformkit/platform"
)

func LoadSpec[T any](filename string) (T, error) {
	var zero T
	data, err := Load(filename)
	if err != nil {
		return zero, fmt.Errorf("prefabs: load %s: %w", filename, err)
	}

	var spec T
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return zero, fmt.Errorf("prefabs: unmarshal %s: %w", filename, err)
	}

	return spec, nil
}

// LoadLevel reads and validates a level file.
func LoadLevel(filename string) (*LevelSpec, error) {
	spec, err := LoadSpec[LevelSpec](filename)
	if err != nil {
		return nil, err
	}
	if err := spec.Validate(); err != nil {
		return nil, fmt.Errorf("prefabs: level %s: %w", filename, err)
	}
	return &spec, nil
}

// ParseLevel decodes and validates level YAML that did not come from a file.
func ParseLevel(data []byte) (*LevelSpec, error) {
	var spec LevelSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("prefabs: unmarshal level: %w", err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

type TransformSpec struct {
	X        float64 `yaml:"x"`
	Y        float64 `yaml:"y"`
	Rotation float64 `yaml:"rotation"`
}

func (t TransformSpec) Position() cp.Vector { return cp.Vector{X: t.X, Y: t.Y} }

type SizeSpec struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type WaypointSpec struct {
	X    float64 `yaml:"x"`
	Y    float64 `yaml:"y"`
	Wait float64 `yaml:"wait"`
}

type ContactSpec struct {
	Layers          uint    `yaml:"layers"`
	IncludeTriggers bool    `yaml:"include_triggers"`
	Tolerance       float64 `yaml:"tolerance"`
}

func (c ContactSpec) Filter() platform.ContactFilter {
	return platform.ContactFilter{Layers: c.Layers, IncludeTriggers: c.IncludeTriggers}
}

type PlatformSpec struct {
	Name            string         `yaml:"name"`
	Transform       TransformSpec  `yaml:"transform"`
	Size            SizeSpec       `yaml:"size"`
	Speed           float64        `yaml:"speed"`
	Motion          string         `yaml:"motion"`
	MovingAtStart   bool           `yaml:"moving_at_start"`
	OnlyWhenVisible bool           `yaml:"only_when_visible"`
	Waypoints       []WaypointSpec `yaml:"waypoints"`
	Contact         ContactSpec    `yaml:"contact"`
	// Carry defaults to true; set it to false for decorative movers.
	Carry  *bool     `yaml:"carry"`
	Layer  uint      `yaml:"layer"`
	Parent string    `yaml:"parent"`
	Script string    `yaml:"script"`
	Color  YAMLColor `yaml:"color"`
}

// PathConfig converts the authored motion settings.
func (p PlatformSpec) PathConfig() (platform.PathConfig, error) {
	motion, err := platform.ParseMotion(p.Motion)
	if err != nil {
		return platform.PathConfig{}, fmt.Errorf("%w %q", ErrUnknownMotion, p.Motion)
	}
	return platform.PathConfig{
		Speed:           p.Speed,
		Motion:          motion,
		MovingAtStart:   p.MovingAtStart,
		OnlyWhenVisible: p.OnlyWhenVisible,
	}, nil
}

func (p PlatformSpec) PathWaypoints() []platform.Waypoint {
	out := make([]platform.Waypoint, 0, len(p.Waypoints))
	for _, wp := range p.Waypoints {
		out = append(out, platform.Waypoint{Position: cp.Vector{X: wp.X, Y: wp.Y}, Wait: wp.Wait})
	}
	return out
}

func (p PlatformSpec) Carries() bool {
	return p.Carry == nil || *p.Carry
}

type CharacterSpec struct {
	Speed     float64 `yaml:"speed"`
	JumpSpeed float64 `yaml:"jump_speed"`
}

type BodySpec struct {
	Name      string         `yaml:"name"`
	Kind      string         `yaml:"kind"`
	Transform TransformSpec  `yaml:"transform"`
	Size      SizeSpec       `yaml:"size"`
	Mass      float64        `yaml:"mass"`
	Friction  float64        `yaml:"friction"`
	Layer     uint           `yaml:"layer"`
	Sensor    bool           `yaml:"sensor"`
	Character *CharacterSpec `yaml:"character"`
	Color     YAMLColor      `yaml:"color"`
}

func (b BodySpec) BodyKind() (physics.Kind, error) {
	return physics.ParseKind(b.Kind)
}

type CameraSpec struct {
	X      float64 `yaml:"x"`
	Y      float64 `yaml:"y"`
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
	Target string  `yaml:"target"`
	Follow float64 `yaml:"follow"`
}

type LevelSpec struct {
	Name      string         `yaml:"name"`
	Gravity   float64        `yaml:"gravity"`
	Camera    CameraSpec     `yaml:"camera"`
	Platforms []PlatformSpec `yaml:"platforms"`
	Bodies    []BodySpec     `yaml:"bodies"`
}

// Validate checks what the loaders cannot recover from: motion names,
// degenerate paths, duplicate names and broken parent links.
func (l *LevelSpec) Validate() error {
	names := make(map[string]string, len(l.Platforms)+len(l.Bodies))
	claim := func(name, what string) error {
		if name == "" {
			return nil
		}
		if prev, ok := names[name]; ok {
			return fmt.Errorf("%w: %q used by %s and %s", ErrDuplicateName, name, prev, what)
		}
		names[name] = what
		return nil
	}

	parents := make(map[string]string, len(l.Platforms))
	for i, p := range l.Platforms {
		label := fmt.Sprintf("platform %d", i)
		if p.Name != "" {
			label = fmt.Sprintf("platform %q", p.Name)
		}
		if err := claim(p.Name, label); err != nil {
			return err
		}
		if _, err := p.PathConfig(); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		if len(p.Waypoints) == 0 {
			return fmt.Errorf("%s: %w", label, ErrEmptyPath)
		}
		if p.Speed < 0 {
			return fmt.Errorf("%s: %w: negative speed %v", label, ErrBadValue, p.Speed)
		}
		for j, wp := range p.Waypoints {
			if wp.Wait < 0 {
				return fmt.Errorf("%s: waypoint %d: %w: negative wait %v", label, j, ErrBadValue, wp.Wait)
			}
		}
		if p.Contact.Tolerance < 0 {
			return fmt.Errorf("%s: %w: negative contact tolerance", label, ErrBadValue)
		}
		if p.Parent != "" {
			if p.Name == "" {
				return fmt.Errorf("%s: a platform with a parent needs a name", label)
			}
			parents[p.Name] = p.Parent
		}
	}
	for i, b := range l.Bodies {
		label := fmt.Sprintf("body %d", i)
		if b.Name != "" {
			label = fmt.Sprintf("body %q", b.Name)
		}
		if err := claim(b.Name, label); err != nil {
			return err
		}
		if _, err := b.BodyKind(); err != nil {
			return fmt.Errorf("%s: %w", label, err)
		}
		if b.Mass < 0 {
			return fmt.Errorf("%s: %w: negative mass", label, ErrBadValue)
		}
	}

	for child, parent := range parents {
		if _, ok := names[parent]; !ok {
			return fmt.Errorf("platform %q: %w %q", child, ErrUnknownParent, parent)
		}
		seen := map[string]bool{child: true}
		for cur := parent; cur != ""; cur = parents[cur] {
			if seen[cur] {
				return fmt.Errorf("platform %q: %w through %q", child, ErrParentCycle, cur)
			}
			seen[cur] = true
		}
	}
	return nil
}

// YAMLColor decodes "#rrggbb" or "#rrggbbaa". The zero value has a nil Color.
type YAMLColor struct {
	color.Color
}

func (c *YAMLColor) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("color must be a string")
	}

	s := strings.TrimPrefix(value.Value, "#")

	if len(s) != 6 && len(s) != 8 {
		return fmt.Errorf("invalid color format: %s", value.Value)
	}

	parse := func(start int) (uint8, error) {
		v, err := strconv.ParseUint(s[start:start+2], 16, 8)
		return uint8(v), err
	}

	var rgba [4]uint8
	rgba[3] = 255
	for i := 0; i < len(s)/2; i++ {
		v, err := parse(i * 2)
		if err != nil {
			return fmt.Errorf("invalid color format: %s: %w", value.Value, err)
		}
		rgba[i] = v
	}

	c.Color = color.NRGBA{R: rgba[0], G: rgba[1], B: rgba[2], A: rgba[3]}
	return nil
}

// Or returns the decoded color, or fallback when none was set.
func (c YAMLColor) Or(fallback color.Color) color.Color {
	if c.Color == nil {
		return fallback
	}
	return c.Color
}
