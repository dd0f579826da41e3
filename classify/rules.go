package classify

import (
	"fmt"
	"strings"

	"github.com/milk9111/tilebake/common"
	"github.com/milk9111/tilebake/levels"
	"github.com/milk9111/tilebake/prefabs"
	"github.com/milk9111/tilebake/scene"
)

// Rules classifies by object type using a RulesSpec.
type Rules struct {
	spec *prefabs.RulesSpec
}

func NewRules(spec *prefabs.RulesSpec) *Rules {
	if spec == nil {
		spec = &prefabs.RulesSpec{}
	}
	return &Rules{spec: spec}
}

// LoadRules reads rules from path, or the embedded defaults when path is
// empty.
func LoadRules(path string) (*Rules, error) {
	spec, err := prefabs.LoadRules(path)
	if err != nil {
		return nil, err
	}
	return NewRules(spec), nil
}

func (r *Rules) ClassifyTile(in TileInput) (Decision, error) {
	rule := prefabs.ObjectRuleSpec{Kind: r.spec.Tiles.Kind}
	if t, ok := r.spec.Tiles.Types[in.TileType]; ok && in.TileType != "" {
		rule = t
	}
	if rule.Kind == "" {
		rule.Kind = "tile"
	}
	geom := Geometry{Shape: levels.ShapeRect, Width: in.Width, Height: in.Height}
	return r.apply(rule, geom, true, in.Properties, in.Transform.Translation, "tile")
}

func (r *Rules) ClassifyObject(in ObjectInput) (Decision, error) {
	obj := in.Object
	rule, ok := r.lookup(obj.Type)
	if !ok {
		return Drop(fmt.Sprintf("no rule for object type %q", obj.Type)), nil
	}
	geom := ObjectGeometry(obj)
	if len(rule.Shapes) > 0 && !allowsShape(rule.Shapes, geom.Shape) {
		return Decision{}, common.Errorf(common.KindUnsupportedShape, "",
			"classify: object %d type %q does not accept %s", obj.ID, obj.Type, geom.Shape)
	}
	if rule.RequireSprite && !in.HasSprite {
		return Decision{}, common.Errorf(common.KindUnsupportedShape, "",
			"classify: object %d type %q needs a tile sprite", obj.ID, obj.Type)
	}
	return r.apply(rule, geom, in.HasSprite, obj.Properties, in.Transform.Translation,
		fmt.Sprintf("object %d", obj.ID))
}

func (r *Rules) lookup(typ string) (prefabs.ObjectRuleSpec, bool) {
	if rule, ok := r.spec.Objects[typ]; ok {
		return rule, true
	}
	rule, ok := r.spec.Objects[strings.ToLower(typ)]
	return rule, ok
}

func (r *Rules) apply(rule prefabs.ObjectRuleSpec, geom Geometry, hasSprite bool, props levels.Properties, at scene.Vec3, what string) (Decision, error) {
	kind, err := parseKind(rule.Kind)
	if err != nil {
		return Decision{}, fmt.Errorf("classify: %s: %w", what, err)
	}
	switch kind {
	case KindDrop:
		return Drop("rule drops " + what), nil
	case KindTile, KindStatic:
		if !hasSprite {
			return Decision{}, common.Errorf(common.KindUnsupportedShape, "",
				"classify: %s is %s but has no sprite", what, kind)
		}
		return Decision{Kind: kind}, nil
	}

	params := DefaultBodyParams().Apply(rule.Body).Override(props)
	body, err := NewBody(geom, at, params)
	if err != nil {
		return Decision{}, err
	}
	return Decision{Kind: KindBody, Body: body}, nil
}

func allowsShape(shapes []string, s levels.Shape) bool {
	for _, name := range shapes {
		if shape, ok := levels.ParseShape(name); ok && shape == s {
			return true
		}
	}
	return false
}
