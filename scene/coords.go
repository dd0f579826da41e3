package scene

import (
	"math"

	"github.com/milk9111/tilebake/levels"
)

// TileToWorld returns the centre of the tile at row, col in world space.
// Depth is the layer index.
func TileToWorld(row, col, depth int, tw, th float64) Vec3 {
	return Vec3{
		float64(col)*tw + tw/2,
		-(float64(row) * th) - th/2,
		float64(depth),
	}
}

// ObjectToWorld converts an object's map position to a world transform.
// Tile objects are anchored bottom-left and shapes top-left; both become
// centre anchored, with the anchor-to-centre offset turned by the object's
// rotation. Points and polygons keep their origin.
func ObjectToWorld(obj *levels.Object, depth int) Transform {
	// offset from the anchor to the centre, in map space (y down)
	var ox, oy float64
	switch {
	case obj.GID != 0:
		ox, oy = obj.Width/2, -obj.Height/2
	case obj.Shape == levels.ShapeRect || obj.Shape == levels.ShapeEllipse || obj.Shape == levels.ShapeText:
		ox, oy = obj.Width/2, obj.Height/2
	}
	if obj.Rotation != 0 {
		// Tiled turns clockwise on screen, which is counter-clockwise math
		// in y-down coordinates.
		sin, cos := math.Sincos(obj.Rotation * math.Pi / 180)
		ox, oy = ox*cos-oy*sin, ox*sin+oy*cos
	}
	return Transform{
		Translation: Vec3{obj.X + ox, -(obj.Y + oy), float64(depth)},
		Rotation:    Rotation(obj.Rotation),
	}
}

// Rotation converts clockwise degrees in map space to counter-clockwise
// radians in world space.
func Rotation(degrees float64) float64 {
	if degrees == 0 {
		return 0
	}
	return -degrees * math.Pi / 180
}

// FlipPoints mirrors object-relative points into world orientation.
func FlipPoints(points []levels.Point) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{p.X, -p.Y}
	}
	return out
}
