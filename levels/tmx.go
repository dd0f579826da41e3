package levels

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/lafriks/go-tiled"
	"github.com/milk9111/tilebake/common"
)

// LoadMap reads a TMX file. Relative image and tileset paths are resolved
// against the map's directory.
func LoadMap(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, common.Wrap(common.KindIo, path, fmt.Errorf("levels: read map: %w", err))
	}
	defer f.Close()

	m, err := ParseMap(f, filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	m.Path = path
	return m, nil
}

// ParseMap decodes a TMX document. dir is the directory relative paths are
// resolved against.
func ParseMap(r io.Reader, dir string) (*Map, error) {
	tm, err := tiled.LoadReader(dir, r)
	if err != nil {
		return nil, loadErr(dir, err)
	}
	if tm.Orientation != "" && tm.Orientation != "orthogonal" {
		return nil, parseErr(dir, "orientation %q is not supported", tm.Orientation)
	}
	if tm.TileWidth <= 0 || tm.TileHeight <= 0 {
		return nil, parseErr(dir, "invalid tile size %dx%d", tm.TileWidth, tm.TileHeight)
	}

	// go-tiled picks a tileset by scanning Tilesets backwards, so they must
	// be in firstgid order before any lookup.
	sort.SliceStable(tm.Tilesets, func(i, j int) bool {
		return tm.Tilesets[i].FirstGID < tm.Tilesets[j].FirstGID
	})

	m := &Map{
		Dir:         dir,
		Orientation: tm.Orientation,
		Width:       tm.Width,
		Height:      tm.Height,
		TileWidth:   tm.TileWidth,
		TileHeight:  tm.TileHeight,
	}
	if tm.Properties != nil {
		m.Properties = convertProperties(*tm.Properties)
	}

	for i, ts := range tm.Tilesets {
		if i > 0 && ts.FirstGID == tm.Tilesets[i-1].FirstGID {
			return nil, parseErr(dir, "tilesets %q and %q share firstgid %d",
				tm.Tilesets[i-1].Name, ts.Name, ts.FirstGID)
		}
		converted, err := convertTileset(tm, ts, dir)
		if err != nil {
			return nil, err
		}
		m.Tilesets = append(m.Tilesets, converted)
	}

	for _, l := range tm.Layers {
		m.Layers = append(m.Layers, convertLayer(l, tm))
	}
	for _, og := range tm.ObjectGroups {
		m.ObjectGroups = append(m.ObjectGroups, convertObjectGroup(og))
	}
	addGroups(m, tm, tm.Groups)
	return m, nil
}

// addGroups flattens nested groups after the top-level layers.
func addGroups(m *Map, tm *tiled.Map, groups []*tiled.Group) {
	for _, g := range groups {
		for _, l := range g.Layers {
			m.Layers = append(m.Layers, convertLayer(l, tm))
		}
		for _, og := range g.ObjectGroups {
			m.ObjectGroups = append(m.ObjectGroups, convertObjectGroup(og))
		}
		addGroups(m, tm, g.Groups)
	}
}

func convertTileset(tm *tiled.Map, ts *tiled.Tileset, dir string) (*Tileset, error) {
	if ts.FirstGID == 0 {
		return nil, parseErr(dir, "tileset %q has no firstgid", ts.Name)
	}
	// External tilesets only load on first lookup.
	if !ts.SourceLoaded {
		if _, err := tm.TileGIDToTile(ts.FirstGID); err != nil {
			return nil, loadErr(tm.GetFileFullPath(ts.Source), err)
		}
	}
	if ts.TileWidth <= 0 || ts.TileHeight <= 0 {
		return nil, parseErr(dir, "tileset %q has invalid tile size %dx%d", ts.Name, ts.TileWidth, ts.TileHeight)
	}

	out := &Tileset{
		FirstGID:   ts.FirstGID,
		Name:       ts.Name,
		Dir:        ts.BaseDir(),
		TileWidth:  ts.TileWidth,
		TileHeight: ts.TileHeight,
		Spacing:    ts.Spacing,
		Margin:     ts.Margin,
		TileCount:  ts.TileCount,
		Columns:    ts.Columns,
		Properties: convertProperties(ts.Properties),
	}
	if ts.Source != "" {
		out.Source = tm.GetFileFullPath(filepath.FromSlash(ts.Source))
	}
	if ts.Image != nil {
		out.Image = convertImage(ts, ts.Image)
	}
	for _, t := range ts.Tiles {
		// Collection tilesets list metadata only for tiles that carry an image.
		if out.Image == nil && t.Image == nil {
			continue
		}
		tile := &Tile{
			ID:         t.ID,
			Type:       firstNonEmpty(t.Type, t.Class),
			Properties: convertProperties(t.Properties),
			Frames:     len(t.Animation),
		}
		if t.Image != nil {
			tile.Image = convertImage(ts, t.Image)
		}
		out.Tiles = append(out.Tiles, tile)
	}
	return out, nil
}

func convertImage(ts *tiled.Tileset, img *tiled.Image) *Image {
	return &Image{
		Source: img.Source,
		Path:   ts.GetFileFullPath(filepath.FromSlash(img.Source)),
		Width:  img.Width,
		Height: img.Height,
	}
}

// convertLayer rebuilds raw GIDs, flip flags included, from go-tiled's
// decoded tiles so resolution stays with the scene GID table.
func convertLayer(l *tiled.Layer, tm *tiled.Map) *TileLayer {
	layer := &TileLayer{
		Name:       l.Name,
		Width:      tm.Width,
		Height:     tm.Height,
		Visible:    l.Visible,
		Properties: convertProperties(l.Properties),
		GIDs:       make([][]uint32, tm.Height),
	}
	for row := 0; row < tm.Height; row++ {
		layer.GIDs[row] = make([]uint32, tm.Width)
		for col := 0; col < tm.Width; col++ {
			i := row*tm.Width + col
			if i < len(l.Tiles) {
				layer.GIDs[row][col] = rawGID(l.Tiles[i])
			}
		}
	}
	return layer
}

func rawGID(t *tiled.LayerTile) uint32 {
	if t == nil || t.IsNil() || t.Tileset == nil {
		return 0
	}
	gid := t.Tileset.FirstGID + t.ID
	if t.HorizontalFlip {
		gid |= FlipHorizontal
	}
	if t.VerticalFlip {
		gid |= FlipVertical
	}
	if t.DiagonalFlip {
		gid |= FlipDiagonal
	}
	return gid
}

func convertObjectGroup(og *tiled.ObjectGroup) *ObjectGroup {
	g := &ObjectGroup{
		Name:       og.Name,
		Visible:    og.Visible,
		Properties: convertProperties(og.Properties),
	}
	for _, o := range og.Objects {
		obj := &Object{
			ID:         o.ID,
			Name:       o.Name,
			Type:       firstNonEmpty(o.Type, o.Class),
			X:          o.X,
			Y:          o.Y,
			Width:      o.Width,
			Height:     o.Height,
			Rotation:   o.Rotation,
			GID:        o.GID,
			Visible:    o.Visible,
			Shape:      ShapeRect,
			Properties: convertProperties(o.Properties),
		}
		switch {
		case len(o.Ellipses) > 0:
			obj.Shape = ShapeEllipse
		case len(o.Polygons) > 0:
			obj.Shape = ShapePolygon
			obj.Points = convertPoints(o.Polygons[0].Points)
		case len(o.PolyLines) > 0:
			obj.Shape = ShapePolyline
			obj.Points = convertPoints(o.PolyLines[0].Points)
		case o.Text != nil:
			obj.Shape = ShapeText
		case o.GID == 0 && o.Width == 0 && o.Height == 0:
			// go-tiled drops <point/>; Tiled always writes points without a size.
			obj.Shape = ShapePoint
		}
		g.Objects = append(g.Objects, obj)
	}
	return g
}

func convertPoints(points *tiled.Points) []Point {
	if points == nil {
		return nil
	}
	out := make([]Point, 0, len(*points))
	for _, p := range *points {
		out = append(out, Point{X: p.X, Y: p.Y})
	}
	return out
}

func convertProperties(props tiled.Properties) Properties {
	if len(props) == 0 {
		return nil
	}
	out := make(Properties, len(props))
	for _, p := range props {
		out[p.Name] = p.Value
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// loadErr classifies a go-tiled load failure. A referenced file that does
// not exist is MissingImage, like an absent tile image.
func loadErr(path string, err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return common.Wrap(common.KindMissingImage, path, fmt.Errorf("levels: %w", err))
	case errors.Is(err, tiled.ErrInvalidTileGID):
		return common.Wrap(common.KindInvalidGid, path, fmt.Errorf("levels: %w", err))
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return common.Wrap(common.KindIo, path, fmt.Errorf("levels: %w", err))
	}
	return parseErr(path, "%w", err)
}

func parseErr(path string, format string, args ...any) error {
	return common.Errorf(common.KindMapParse, path, "levels: "+format, args...)
}
