package scene

// Prefab is the compiled scene: every emitted entity in emission order.
type Prefab struct {
	Entities []Entity `yaml:"entities" json:"entities"`
}

// Entity is one record of the scene. Sheet is set only on the first entity
// that references that sheet; later ones carry Render alone.
type Entity struct {
	Name      string     `yaml:"name,omitempty" json:"name,omitempty"`
	Sheet     *SheetDef  `yaml:"sheet,omitempty" json:"sheet,omitempty"`
	Render    *Render    `yaml:"render,omitempty" json:"render,omitempty"`
	Transform *Transform `yaml:"transform,omitempty" json:"transform,omitempty"`
	Detail    Detail     `yaml:"detail" json:"detail"`
}

type SheetDef struct {
	Name          string   `yaml:"name" json:"name"`
	Texture       Texture  `yaml:"texture" json:"texture"`
	TextureWidth  int      `yaml:"texture_width" json:"texture_width"`
	TextureHeight int      `yaml:"texture_height" json:"texture_height"`
	Sprites       []Sprite `yaml:"sprites" json:"sprites"`
}

const TextureFormatImage = "IMAGE"

type Texture struct {
	Path   string `yaml:"path" json:"path"`
	Format string `yaml:"format" json:"format"`
}

type Sprite struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

type Render struct {
	Sheet          string `yaml:"sheet" json:"sheet"`
	SpriteNumber   int    `yaml:"sprite_number" json:"sprite_number"`
	FlipHorizontal bool   `yaml:"flip_horizontal,omitempty" json:"flip_horizontal,omitempty"`
	FlipVertical   bool   `yaml:"flip_vertical,omitempty" json:"flip_vertical,omitempty"`
}

// Vec3 is x, y and depth in world space, Y up.
type Vec3 [3]float64

type Transform struct {
	Translation Vec3 `yaml:"translation,flow" json:"translation"`
	// Rotation is in radians, counter-clockwise.
	Rotation float64 `yaml:"rotation,omitempty" json:"rotation,omitempty"`
}

type DetailKind string

const (
	DetailTile   DetailKind = "tile"
	DetailStatic DetailKind = "static"
	DetailBody   DetailKind = "body"
)

type Detail struct {
	Kind DetailKind `yaml:"kind" json:"kind"`
	Body *Body      `yaml:"body,omitempty" json:"body,omitempty"`
}

// Body describes a physics body for the consuming engine. ColliderOnly
// bodies are static and carry no mass.
type Body struct {
	Colliders      []Collider `yaml:"colliders" json:"colliders"`
	GravityEnabled bool       `yaml:"gravity_enabled" json:"gravity_enabled"`
	NoRotate       bool       `yaml:"no_rotate,omitempty" json:"no_rotate,omitempty"`
	ColliderOnly   bool       `yaml:"collider_only,omitempty" json:"collider_only,omitempty"`
	Location       [2]float64 `yaml:"location,flow" json:"location"`
	Mass           float64    `yaml:"mass,omitempty" json:"mass,omitempty"`
	Moment         float64    `yaml:"moment,omitempty" json:"moment,omitempty"`
}

type Collider struct {
	Shape       Shape            `yaml:"shape" json:"shape"`
	OffsetX     float64          `yaml:"offset_x,omitempty" json:"offset_x,omitempty"`
	OffsetY     float64          `yaml:"offset_y,omitempty" json:"offset_y,omitempty"`
	Density     float64          `yaml:"density" json:"density"`
	Restitution float64          `yaml:"restitution" json:"restitution"`
	Friction    float64          `yaml:"friction" json:"friction"`
	Sensor      bool             `yaml:"sensor,omitempty" json:"sensor,omitempty"`
	Groups      *CollisionGroups `yaml:"collision_groups,omitempty" json:"collision_groups,omitempty"`
}

type ShapeKind string

const (
	ShapeRect    ShapeKind = "rect"
	ShapeBall    ShapeKind = "ball"
	ShapePolygon ShapeKind = "polygon"
)

// Shape is a collider outline centred on the body. Points are in world
// orientation, Y up.
type Shape struct {
	Kind   ShapeKind    `yaml:"kind" json:"kind"`
	Width  float64      `yaml:"width,omitempty" json:"width,omitempty"`
	Height float64      `yaml:"height,omitempty" json:"height,omitempty"`
	Radius float64      `yaml:"radius,omitempty" json:"radius,omitempty"`
	Points [][2]float64 `yaml:"points,omitempty,flow" json:"points,omitempty"`
}

type CollisionGroups struct {
	Membership []int `yaml:"membership,omitempty,flow" json:"membership,omitempty"`
	Whitelist  []int `yaml:"whitelist,omitempty,flow" json:"whitelist,omitempty"`
	Blacklist  []int `yaml:"blacklist,omitempty,flow" json:"blacklist,omitempty"`
}
