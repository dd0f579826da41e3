// Package classify decides what each tile and map object becomes in the
// compiled scene.
package classify

import (
	"fmt"
	"strings"

	"github.com/milk9111/tilebake/levels"
	"github.com/milk9111/tilebake/scene"
)

// Kind is the closed set of classification outcomes.
type Kind int

const (
	KindDrop Kind = iota
	KindTile
	KindStatic
	KindBody
)

func (k Kind) String() string {
	switch k {
	case KindTile:
		return "tile"
	case KindStatic:
		return "static"
	case KindBody:
		return "body"
	default:
		return "drop"
	}
}

func parseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tile":
		return KindTile, nil
	case "static":
		return KindStatic, nil
	case "body":
		return KindBody, nil
	case "drop", "":
		return KindDrop, nil
	}
	return KindDrop, fmt.Errorf("unknown classification %q", s)
}

// Decision is a classifier's verdict. Body is set only for KindBody.
// Reason explains a drop.
type Decision struct {
	Kind   Kind
	Body   *scene.Body
	Reason string
}

// Detail converts the decision into the scene payload.
func (d Decision) Detail() scene.Detail {
	switch d.Kind {
	case KindStatic:
		return scene.Detail{Kind: scene.DetailStatic}
	case KindBody:
		return scene.Detail{Kind: scene.DetailBody, Body: d.Body}
	default:
		return scene.Detail{Kind: scene.DetailTile}
	}
}

func Drop(reason string) Decision {
	return Decision{Kind: KindDrop, Reason: reason}
}

// TileInput describes one non-empty tile cell.
type TileInput struct {
	GID         uint32
	Tileset     int
	TilesetName string
	Local       uint32
	Sprite      int
	TileType    string
	Properties  levels.Properties
	Layer       string
	LayerIndex  int
	Width       float64
	Height      float64
	Transform   scene.Transform
}

// ObjectInput describes one map object. HasSprite is true when the object
// references a tile.
type ObjectInput struct {
	Object    *levels.Object
	Group     string
	HasSprite bool
	Transform scene.Transform
}

// Classifier decides the detail payload for tiles and objects. Returning an
// error of kind UnsupportedShape drops the entity with a warning; any other
// error aborts compilation.
type Classifier interface {
	ClassifyTile(in TileInput) (Decision, error)
	ClassifyObject(in ObjectInput) (Decision, error)
}
