package classify

import (
	"math"

	"github.com/jakecoffman/cp"
	"github.com/milk9111/tilebake/common"
	"github.com/milk9111/tilebake/levels"
	"github.com/milk9111/tilebake/prefabs"
	"github.com/milk9111/tilebake/scene"
)

// BodyParams are the physical settings applied to a generated body.
type BodyParams struct {
	Density        float64
	Restitution    float64
	Friction       float64
	GravityEnabled bool
	NoRotate       bool
	Sensor         bool
	ColliderOnly   bool
	Groups         *scene.CollisionGroups
}

func DefaultBodyParams() BodyParams {
	return BodyParams{
		Density:        1,
		Restitution:    0.8,
		Friction:       0.5,
		GravityEnabled: true,
	}
}

// Apply layers a rule's body settings over p.
func (p BodyParams) Apply(spec *prefabs.BodySpec) BodyParams {
	if spec == nil {
		return p
	}
	if spec.Density != nil {
		p.Density = *spec.Density
	}
	if spec.Restitution != nil {
		p.Restitution = *spec.Restitution
	}
	if spec.Friction != nil {
		p.Friction = *spec.Friction
	}
	if spec.GravityEnabled != nil {
		p.GravityEnabled = *spec.GravityEnabled
	}
	p.NoRotate = p.NoRotate || spec.NoRotate
	p.Sensor = p.Sensor || spec.Sensor
	p.ColliderOnly = p.ColliderOnly || spec.ColliderOnly
	if g := spec.CollisionGroup; g != nil {
		p.Groups = &scene.CollisionGroups{
			Membership: append([]int(nil), g.Membership...),
			Whitelist:  append([]int(nil), g.Whitelist...),
			Blacklist:  append([]int(nil), g.Blacklist...),
		}
	}
	return p
}

// Override applies per-object custom properties.
func (p BodyParams) Override(props levels.Properties) BodyParams {
	if v, ok := props.Float("density"); ok {
		p.Density = v
	}
	if v, ok := props.Float("friction"); ok {
		p.Friction = v
	}
	if v, ok := props.Float("restitution"); ok {
		p.Restitution = v
	}
	if v, ok := props.Bool("sensor"); ok {
		p.Sensor = v
	}
	if v, ok := props.Bool("no_rotate"); ok {
		p.NoRotate = v
	}
	if v, ok := props.Bool("gravity"); ok {
		p.GravityEnabled = v
	}
	if v, ok := props.Bool("collider_only"); ok {
		p.ColliderOnly = v
	}
	return p
}

// Geometry is the outline a body is built from, in map pixels.
type Geometry struct {
	Shape  levels.Shape
	Width  float64
	Height float64
	Points []levels.Point
}

// ObjectGeometry returns the outline of obj. Tile objects are rectangles.
func ObjectGeometry(obj *levels.Object) Geometry {
	g := Geometry{Shape: obj.Shape, Width: obj.Width, Height: obj.Height, Points: obj.Points}
	if obj.GID != 0 {
		g.Shape = levels.ShapeRect
	}
	return g
}

// NewBody builds a single-collider body at location. Rectangles, circles
// and convex polygons are supported; everything else is UnsupportedShape.
func NewBody(g Geometry, location scene.Vec3, p BodyParams) (*scene.Body, error) {
	shape, area, moment, err := colliderShape(g)
	if err != nil {
		return nil, err
	}

	body := &scene.Body{
		Colliders: []scene.Collider{{
			Shape:       shape,
			Density:     p.Density,
			Restitution: p.Restitution,
			Friction:    p.Friction,
			Sensor:      p.Sensor,
			Groups:      p.Groups,
		}},
		GravityEnabled: p.GravityEnabled,
		NoRotate:       p.NoRotate,
		ColliderOnly:   p.ColliderOnly,
		Location:       [2]float64{location[0], location[1]},
	}
	if !p.ColliderOnly {
		mass := p.Density * area
		body.Mass = mass
		body.Moment = moment(mass)
		if p.NoRotate {
			body.Moment = 0
		}
	}
	return body, nil
}

func colliderShape(g Geometry) (scene.Shape, float64, func(float64) float64, error) {
	switch g.Shape {
	case levels.ShapeRect:
		if g.Width <= 0 || g.Height <= 0 {
			return scene.Shape{}, 0, nil, unsupported("rect of size %gx%g", g.Width, g.Height)
		}
		w, h := g.Width, g.Height
		return scene.Shape{Kind: scene.ShapeRect, Width: w, Height: h}, w * h,
			func(m float64) float64 { return cp.MomentForBox(m, w, h) }, nil

	case levels.ShapeEllipse:
		if g.Width <= 0 || math.Abs(g.Width-g.Height) > 1e-9 {
			return scene.Shape{}, 0, nil, unsupported("ellipse %gx%g is not a circle", g.Width, g.Height)
		}
		r := g.Width / 2
		return scene.Shape{Kind: scene.ShapeBall, Radius: r}, cp.AreaForCircle(0, r),
			func(m float64) float64 { return cp.MomentForCircle(m, 0, r, cp.Vector{}) }, nil

	case levels.ShapePolygon:
		if len(g.Points) < 3 {
			return scene.Shape{}, 0, nil, unsupported("polygon with %d points", len(g.Points))
		}
		points := scene.FlipPoints(g.Points)
		verts := make([]cp.Vector, len(points))
		for i, p := range points {
			verts[i] = cp.Vector{X: p[0], Y: p[1]}
		}
		if !convex(verts) {
			return scene.Shape{}, 0, nil, unsupported("concave polygon")
		}
		area := math.Abs(cp.AreaForPoly(len(verts), verts, 0))
		if area == 0 {
			return scene.Shape{}, 0, nil, unsupported("degenerate polygon")
		}
		centroid := cp.CentroidForPoly(len(verts), verts)
		return scene.Shape{Kind: scene.ShapePolygon, Points: points}, area,
			func(m float64) float64 {
				return math.Abs(cp.MomentForPoly(m, len(verts), verts, centroid.Neg(), 0))
			}, nil

	default:
		return scene.Shape{}, 0, nil, unsupported("%s has no collider shape", g.Shape)
	}
}

// convex reports whether verts turn the same way at every corner.
func convex(verts []cp.Vector) bool {
	n := len(verts)
	sign := 0.0
	for i := 0; i < n; i++ {
		a, b, c := verts[i], verts[(i+1)%n], verts[(i+2)%n]
		cross := b.Sub(a).Cross(c.Sub(b))
		if cross == 0 {
			continue
		}
		if sign == 0 {
			sign = cross
			continue
		}
		if (cross > 0) != (sign > 0) {
			return false
		}
	}
	return true
}

func unsupported(format string, args ...any) error {
	return common.Errorf(common.KindUnsupportedShape, "", "classify: "+format, args...)
}
