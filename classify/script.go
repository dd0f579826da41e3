package classify

import (
	"fmt"
	"strings"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/milk9111/tilebake/levels"
	"github.com/milk9111/tilebake/prefabs"
	"github.com/milk9111/tilebake/scene"
)

const DefaultScript = "classify.tengo"

// Script classifies with a tengo script. The script reads `tile` or
// `object` and assigns `result`, plus an optional `body` map.
type Script struct {
	name     string
	compiled *tengo.Compiled
}

// LoadScript compiles the script at path, falling back to the embedded
// scripts by name.
func LoadScript(path string) (*Script, error) {
	src, err := prefabs.LoadScript(path)
	if err != nil {
		return nil, fmt.Errorf("classify: load script %s: %w", path, err)
	}
	return NewScript(path, src)
}

func NewScript(name string, src []byte) (*Script, error) {
	script := tengo.NewScript(src)
	_ = script.Add("tile", nil)
	_ = script.Add("object", nil)
	_ = script.Add("result", "drop")
	_ = script.Add("body", nil)

	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("classify: compile %s: %w", name, err)
	}
	return &Script{name: name, compiled: compiled}, nil
}

func (s *Script) ClassifyTile(in TileInput) (Decision, error) {
	tile := map[string]any{
		"gid":        int64(in.GID),
		"tileset":    in.TilesetName,
		"local":      int64(in.Local),
		"sprite":     in.Sprite,
		"type":       in.TileType,
		"layer":      in.Layer,
		"properties": propertiesMap(in.Properties),
	}
	geom := Geometry{Shape: levels.ShapeRect, Width: in.Width, Height: in.Height}
	return s.run(tile, nil, geom, in.Transform.Translation, in.Properties, fmt.Sprintf("tile %d", in.GID))
}

func (s *Script) ClassifyObject(in ObjectInput) (Decision, error) {
	obj := in.Object
	object := map[string]any{
		"id":         int64(obj.ID),
		"name":       obj.Name,
		"type":       obj.Type,
		"group":      in.Group,
		"shape":      ObjectGeometry(obj).Shape.String(),
		"x":          obj.X,
		"y":          obj.Y,
		"width":      obj.Width,
		"height":     obj.Height,
		"rotation":   obj.Rotation,
		"gid":        int64(levels.GIDValue(obj.GID)),
		"has_sprite": in.HasSprite,
		"properties": propertiesMap(obj.Properties),
	}
	return s.run(nil, object, ObjectGeometry(obj), in.Transform.Translation, obj.Properties,
		fmt.Sprintf("object %d", obj.ID))
}

func (s *Script) run(tile, object map[string]any, geom Geometry, at scene.Vec3, props levels.Properties, what string) (Decision, error) {
	if err := s.set(tile, object); err != nil {
		return Decision{}, err
	}
	if err := s.compiled.Run(); err != nil {
		return Decision{}, fmt.Errorf("classify: %s: %s: %w", s.name, what, err)
	}

	result := strings.TrimSpace(s.compiled.Get("result").String())
	kind, err := parseKind(result)
	if err != nil {
		return Decision{}, fmt.Errorf("classify: %s: %s: %w", s.name, what, err)
	}
	switch kind {
	case KindDrop:
		return Drop(s.name + " drops " + what), nil
	case KindTile, KindStatic:
		return Decision{Kind: kind}, nil
	}

	spec, err := prefabs.DecodeSpec[*prefabs.BodySpec](objectToAny(s.compiled.Get("body").Object()))
	if err != nil {
		return Decision{}, fmt.Errorf("classify: %s: %s: body: %w", s.name, what, err)
	}
	params := DefaultBodyParams().Apply(spec).Override(props)
	body, err := NewBody(geom, at, params)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Kind: KindBody, Body: body}, nil
}

func (s *Script) set(tile, object map[string]any) error {
	values := map[string]any{"tile": nil, "object": nil, "result": "drop", "body": nil}
	if tile != nil {
		values["tile"] = tile
	}
	if object != nil {
		values["object"] = object
	}
	for _, name := range []string{"tile", "object", "result", "body"} {
		if err := s.compiled.Set(name, values[name]); err != nil {
			return fmt.Errorf("classify: %s: set %s: %w", s.name, name, err)
		}
	}
	return nil
}

func propertiesMap(p levels.Properties) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func objectToAny(obj tengo.Object) any {
	if obj == nil {
		return nil
	}

	switch v := obj.(type) {
	case *tengo.String:
		return v.Value
	case *tengo.Int:
		return int(v.Value)
	case *tengo.Float:
		return v.Value
	case *tengo.Bool:
		return !v.IsFalsy()
	case *tengo.Array:
		out := make([]any, 0, len(v.Value))
		for _, item := range v.Value {
			out = append(out, objectToAny(item))
		}
		return out
	case *tengo.Map:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	case *tengo.ImmutableMap:
		out := make(map[string]any, len(v.Value))
		for k, item := range v.Value {
			out[k] = objectToAny(item)
		}
		return out
	default:
		return nil
	}
}
