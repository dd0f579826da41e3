package atlas

import (
	"errors"
	"fmt"
	"image"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/milk9111/tilebake/common"
	"github.com/milk9111/tilebake/levels"
	"github.com/sirupsen/logrus"
)

// Rect is a sprite's position inside its atlas, in pixels from the top-left.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Source says how an atlas image reaches the output directory.
type Source interface {
	isSource()
}

// CopySource is a pre-built sheet copied through unchanged.
type CopySource struct {
	Path string
}

// PackedSource is a newly packed atlas, already PNG encoded.
type PackedSource struct {
	PNG []byte
}

func (CopySource) isSource()   {}
func (PackedSource) isSource() {}

// Sheet is the atlas built for one tileset.
type Sheet struct {
	Index       int
	Name        string
	File        string
	TexturePath string
	Width       int
	Height      int
	Sprites     []Rect
	Source      Source

	// ids maps tile IDs of loose-image tilesets to sprite indices.
	ids map[uint32]int
}

// SpriteIndex maps a tileset-local tile ID to a sprite index.
func (s *Sheet) SpriteIndex(local uint32) (int, bool) {
	if s.ids != nil {
		idx, ok := s.ids[local]
		return idx, ok
	}
	if int64(local) >= int64(len(s.Sprites)) {
		return 0, false
	}
	return int(local), true
}

// Count is the number of tile IDs the sheet covers.
func (s *Sheet) Count() int {
	if s.ids == nil {
		return len(s.Sprites)
	}
	n := 0
	for id := range s.ids {
		if int(id)+1 > n {
			n = int(id) + 1
		}
	}
	return n
}

type Options struct {
	Padding     int
	MaxSize     int
	SheetName   string
	TextureName string
	Prefix      string
	Cache       *ImageCache
	Logger      logrus.FieldLogger
}

func (o Options) logger() logrus.FieldLogger {
	if o.Logger == nil {
		return logrus.StandardLogger()
	}
	return o.Logger
}

func (o Options) names(i int) (name, file, texture string) {
	sheetPattern := o.SheetName
	if sheetPattern == "" {
		sheetPattern = "map_sprite_sheet_%d"
	}
	texturePattern := o.TextureName
	if texturePattern == "" {
		texturePattern = "sprite_sheet_%d"
	}
	name = fmt.Sprintf(sheetPattern, i)
	file = fmt.Sprintf(texturePattern, i) + ".png"
	texture = path.Join(filepath.ToSlash(o.Prefix), file)
	return name, file, texture
}

// LoadSheets builds one Sheet per tileset, in tileset order.
func LoadSheets(m *levels.Map, opts Options) ([]*Sheet, error) {
	sheets := make([]*Sheet, 0, len(m.Tilesets))
	for i, ts := range m.Tilesets {
		s, err := LoadSheet(i, ts, opts)
		if err != nil {
			return nil, fmt.Errorf("atlas: tileset %d (%s): %w", i, ts.Name, err)
		}
		sheets = append(sheets, s)
	}
	return sheets, nil
}

// LoadSheet builds the Sheet for tileset i. Sheet tilesets are sliced on
// their tile grid; loose-image tilesets are decoded and packed.
func LoadSheet(i int, ts *levels.Tileset, opts Options) (*Sheet, error) {
	name, file, texture := opts.names(i)
	s := &Sheet{Index: i, Name: name, File: file, TexturePath: texture}
	log := opts.logger().WithFields(logrus.Fields{"tileset": ts.Name, "atlas": name})

	if ts.IsSheet() {
		if err := sliceSheet(s, ts, opts.Cache); err != nil {
			return nil, err
		}
		log.WithField("sprites", len(s.Sprites)).Debug("atlas: sheet tileset")
		return s, nil
	}

	if err := packLoose(s, ts, opts); err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"sprites": len(s.Sprites),
		"size":    fmt.Sprintf("%dx%d", s.Width, s.Height),
	}).Debug("atlas: packed tileset")
	return s, nil
}

func sliceSheet(s *Sheet, ts *levels.Tileset, cache *ImageCache) error {
	img := ts.Image
	if _, err := os.Stat(img.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return common.Wrap(common.KindMissingImage, img.Path, err)
		}
		return common.Wrap(common.KindIo, img.Path, err)
	}
	w, h := img.Width, img.Height
	if w <= 0 || h <= 0 {
		cfg, err := cache.Config(img.Path)
		if err != nil {
			return err
		}
		w, h = cfg.Width, cfg.Height
	}
	s.Width, s.Height = w, h
	s.Sprites = GridSprites(w, h, ts.TileWidth, ts.TileHeight, ts.Margin, ts.Spacing)
	s.Source = CopySource{Path: img.Path}
	return nil
}

// GridSprites slices a w×h sheet into tw×th cells. Sprite 0 is the top-left
// cell and indices run row-major, matching tile ID order. Without margin or
// spacing the grid is anchored at the image bottom: rows are counted from the
// bottom and emitted top row first.
func GridSprites(w, h, tw, th, margin, spacing int) []Rect {
	if tw <= 0 || th <= 0 {
		return nil
	}
	if margin == 0 && spacing == 0 {
		cols, rows := w/tw, h/th
		sprites := make([]Rect, 0, cols*rows)
		for r := rows - 1; r >= 0; r-- {
			for c := 0; c < cols; c++ {
				sprites = append(sprites, Rect{
					X:      c * tw,
					Y:      h - (r+1)*th,
					Width:  tw,
					Height: th,
				})
			}
		}
		return sprites
	}

	cols := (w - 2*margin + spacing) / (tw + spacing)
	rows := (h - 2*margin + spacing) / (th + spacing)
	if cols <= 0 || rows <= 0 {
		return nil
	}
	sprites := make([]Rect, 0, cols*rows)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			sprites = append(sprites, Rect{
				X:      margin + c*(tw+spacing),
				Y:      margin + r*(th+spacing),
				Width:  tw,
				Height: th,
			})
		}
	}
	return sprites
}

func packLoose(s *Sheet, ts *levels.Tileset, opts Options) error {
	log := opts.logger()
	images := make([]*image.NRGBA, 0, len(ts.Tiles))
	s.ids = make(map[uint32]int, len(ts.Tiles))
	for _, tile := range ts.Tiles {
		img, err := opts.Cache.Load(tile.Image.Path)
		if err != nil {
			return err
		}
		if tile.Frames > 1 {
			log.WithFields(logrus.Fields{"tileset": ts.Name, "tile": tile.ID}).
				Debug("atlas: animation frames ignored, using the tile image")
		}
		s.ids[tile.ID] = len(images)
		images = append(images, img)
	}

	packed, err := Pack(images, opts.Padding, opts.MaxSize)
	if err != nil {
		return err
	}
	data, err := EncodePNG(packed.Image)
	if err != nil {
		return err
	}
	s.Width, s.Height = packed.Width, packed.Height
	s.Sprites = make([]Rect, len(packed.Rects))
	for i, r := range packed.Rects {
		s.Sprites[i] = Rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
	}
	s.Source = PackedSource{PNG: data}
	return nil
}
