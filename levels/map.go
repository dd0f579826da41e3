package levels

import (
	"strconv"
	"strings"
)

// Flip flags stored in the high bits of a raw GID.
const (
	FlipHorizontal uint32 = 0x80000000
	FlipVertical   uint32 = 0x40000000
	FlipDiagonal   uint32 = 0x20000000
	RotateHex120   uint32 = 0x10000000

	gidFlagMask = FlipHorizontal | FlipVertical | FlipDiagonal | RotateHex120
)

// GIDValue strips the flip flags from a raw GID.
func GIDValue(raw uint32) uint32 {
	return raw &^ gidFlagMask
}

// GIDFlips reports the horizontal and vertical flip flags of a raw GID.
func GIDFlips(raw uint32) (h, v bool) {
	return raw&FlipHorizontal != 0, raw&FlipVertical != 0
}

// Map is a parsed tile map. Tilesets are sorted by ascending FirstGID.
type Map struct {
	Path         string
	Dir          string
	Orientation  string
	Width        int
	Height       int
	TileWidth    int
	TileHeight   int
	Properties   Properties
	Tilesets     []*Tileset
	Layers       []*TileLayer
	ObjectGroups []*ObjectGroup
}

type Image struct {
	Source string
	// Path is Source resolved against the directory of the file that declared it.
	Path   string
	Width  int
	Height int
}

type Tile struct {
	ID         uint32
	Type       string
	Image      *Image
	Properties Properties
	// Frames counts animation frames; only the first image is compiled.
	Frames int
}

type Tileset struct {
	FirstGID   uint32
	Name       string
	Source     string
	Dir        string
	TileWidth  int
	TileHeight int
	Spacing    int
	Margin     int
	TileCount  int
	Columns    int
	Image      *Image
	Tiles      []*Tile
	Properties Properties
}

// IsSheet reports whether the tileset is a single pre-built sheet image
// rather than a collection of loose per-tile images.
func (ts *Tileset) IsSheet() bool {
	return ts != nil && ts.Image != nil
}

// TileLayer holds raw GIDs (flags included) row by row, top row first.
type TileLayer struct {
	Name       string
	Width      int
	Height     int
	Visible    bool
	Properties Properties
	GIDs       [][]uint32
}

type ObjectGroup struct {
	Name       string
	Visible    bool
	Properties Properties
	Objects    []*Object
}

type Shape int

const (
	ShapeRect Shape = iota
	ShapeEllipse
	ShapePoint
	ShapePolygon
	ShapePolyline
	ShapeText
)

func (s Shape) String() string {
	switch s {
	case ShapeRect:
		return "rect"
	case ShapeEllipse:
		return "ellipse"
	case ShapePoint:
		return "point"
	case ShapePolygon:
		return "polygon"
	case ShapePolyline:
		return "polyline"
	case ShapeText:
		return "text"
	default:
		return "unknown"
	}
}

// ParseShape is the inverse of Shape.String.
func ParseShape(s string) (Shape, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "rect", "rectangle":
		return ShapeRect, true
	case "ellipse":
		return ShapeEllipse, true
	case "point":
		return ShapePoint, true
	case "polygon":
		return ShapePolygon, true
	case "polyline":
		return ShapePolyline, true
	case "text":
		return ShapeText, true
	}
	return ShapeRect, false
}

// Point is relative to the owning object's position, in map pixels.
type Point struct {
	X float64
	Y float64
}

// Object is a freely placed map object. GID keeps its raw flip flags.
type Object struct {
	ID         uint32
	Name       string
	Type       string
	X          float64
	Y          float64
	Width      float64
	Height     float64
	Rotation   float64
	GID        uint32
	Visible    bool
	Shape      Shape
	Points     []Point
	Properties Properties
}

// Properties are the custom properties attached to a map element.
type Properties map[string]string

func (p Properties) String(name string) (string, bool) {
	if p == nil {
		return "", false
	}
	v, ok := p[name]
	return v, ok
}

func (p Properties) Bool(name string) (bool, bool) {
	v, ok := p.String(name)
	if !ok {
		return false, false
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, false
	}
	return b, true
}

func (p Properties) Float(name string) (float64, bool) {
	v, ok := p.String(name)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
