package prefabs

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const DefaultRulesFile = "rules.yaml"

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

// RulesSpec configures the default classifier.
type RulesSpec struct {
	Tiles   TileRulesSpec             `yaml:"tiles"`
	Objects map[string]ObjectRuleSpec `yaml:"objects"`
}

// TileRulesSpec picks a kind for tiles. Types overrides Kind by the tile's
// type (or class) in its tileset.
type TileRulesSpec struct {
	Kind  string                    `yaml:"kind"`
	Types map[string]ObjectRuleSpec `yaml:"types"`
}

type ObjectRuleSpec struct {
	Kind          string    `yaml:"kind"`
	Shapes        []string  `yaml:"shapes"`
	RequireSprite bool      `yaml:"require_sprite"`
	Body          *BodySpec `yaml:"body"`
}

// BodySpec holds body defaults. Pointer fields fall back to the built-in
// defaults when unset.
type BodySpec struct {
	Density        *float64             `yaml:"density"`
	Restitution    *float64             `yaml:"restitution"`
	Friction       *float64             `yaml:"friction"`
	GravityEnabled *bool                `yaml:"gravity_enabled"`
	NoRotate       bool                 `yaml:"no_rotate"`
	Sensor         bool                 `yaml:"sensor"`
	ColliderOnly   bool                 `yaml:"collider_only"`
	CollisionGroup *CollisionGroupsSpec `yaml:"collision_groups"`
}

type CollisionGroupsSpec struct {
	Membership []int `yaml:"membership"`
	Whitelist  []int `yaml:"whitelist"`
	Blacklist  []int `yaml:"blacklist"`
}

// LoadRules reads classifier rules from path, or the embedded defaults when
// path is empty.
func LoadRules(path string) (*RulesSpec, error) {
	if path == "" {
		spec, err := LoadSpec[RulesSpec](DefaultRulesFile)
		if err != nil {
			return nil, err
		}
		if err := spec.validate(); err != nil {
			return nil, fmt.Errorf("prefabs: %s: %w", DefaultRulesFile, err)
		}
		return &spec, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prefabs: load %s: %w", path, err)
	}
	return ParseRules(data, path)
}

func ParseRules(data []byte, name string) (*RulesSpec, error) {
	var spec RulesSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("prefabs: unmarshal %s: %w", name, err)
	}
	if err := spec.validate(); err != nil {
		return nil, fmt.Errorf("prefabs: %s: %w", name, err)
	}
	return &spec, nil
}

func (s *RulesSpec) validate() error {
	if err := checkKind(s.Tiles.Kind, "tiles"); err != nil {
		return err
	}
	for name, r := range s.Tiles.Types {
		if err := checkKind(r.Kind, "tile type "+name); err != nil {
			return err
		}
	}
	for name, r := range s.Objects {
		if err := checkKind(r.Kind, "object type "+name); err != nil {
			return err
		}
	}
	return nil
}

func checkKind(kind, where string) error {
	switch kind {
	case "", "tile", "static", "body", "drop":
		return nil
	}
	return fmt.Errorf("%s: unknown kind %q", where, kind)
}
