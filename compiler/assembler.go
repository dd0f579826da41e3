package compiler

import (
	"fmt"

	"github.com/milk9111/tilebake/atlas"
	"github.com/milk9111/tilebake/classify"
	"github.com/milk9111/tilebake/common"
	"github.com/milk9111/tilebake/levels"
	"github.com/milk9111/tilebake/scene"
	"github.com/sirupsen/logrus"
)

// mergedFriction matches the friction used for merged level geometry.
const mergedFriction = 0.9

// Assembler walks a map and emits scene entities: tiles first, then
// objects, then merged colliders when enabled. Each sheet is defined on the
// first entity that uses it and referenced by name afterwards.
type Assembler struct {
	Map            *levels.Map
	Sheets         []*atlas.Sheet
	Table          *scene.GidTable
	Classifier     classify.Classifier
	MergeColliders bool
	Log            logrus.FieldLogger

	used  *scene.UsedSheets
	tiles []map[uint32]*levels.Tile
}

// Assembly is the result of one assembler run.
type Assembly struct {
	Prefab  *scene.Prefab
	Used    []int
	Tiles   int
	Objects int
	Merged  int
	Dropped int
}

func (a *Assembler) Assemble() (*Assembly, error) {
	if a.Log == nil {
		a.Log = logrus.StandardLogger()
	}
	if len(a.Sheets) != len(a.Map.Tilesets) {
		return nil, fmt.Errorf("compiler: %d sheets for %d tilesets", len(a.Sheets), len(a.Map.Tilesets))
	}
	a.used = scene.NewUsedSheets()
	a.tiles = make([]map[uint32]*levels.Tile, len(a.Map.Tilesets))
	for i, ts := range a.Map.Tilesets {
		a.tiles[i] = make(map[uint32]*levels.Tile, len(ts.Tiles))
		for _, t := range ts.Tiles {
			a.tiles[i][t.ID] = t
		}
	}

	out := &Assembly{Prefab: &scene.Prefab{}}
	if err := a.assembleTiles(out); err != nil {
		return nil, err
	}
	if err := a.assembleObjects(out); err != nil {
		return nil, err
	}
	if a.MergeColliders {
		if err := a.assembleColliders(out); err != nil {
			return nil, err
		}
	}
	out.Used = a.used.Indices()
	return out, nil
}

func (a *Assembler) assembleTiles(out *Assembly) error {
	tw, th := float64(a.Map.TileWidth), float64(a.Map.TileHeight)
	for li, layer := range a.Map.Layers {
		log := a.Log.WithField("layer", layer.Name)
		for row, gids := range layer.GIDs {
			for col, raw := range gids {
				ref, ok, err := a.Table.Resolve(raw)
				if err != nil {
					return fmt.Errorf("compiler: layer %q row %d col %d: %w", layer.Name, row, col, err)
				}
				if !ok {
					continue
				}
				sprite, err := a.sprite(ref)
				if err != nil {
					return fmt.Errorf("compiler: layer %q row %d col %d: %w", layer.Name, row, col, err)
				}

				ts := a.Map.Tilesets[ref.Tileset]
				in := classify.TileInput{
					GID:         levels.GIDValue(raw),
					Tileset:     ref.Tileset,
					TilesetName: ts.Name,
					Local:       ref.Local,
					Sprite:      sprite,
					Layer:       layer.Name,
					LayerIndex:  li,
					Width:       tw,
					Height:      th,
					Transform:   scene.Transform{Translation: scene.TileToWorld(row, col, li, tw, th)},
				}
				if tile := a.tiles[ref.Tileset][ref.Local]; tile != nil {
					in.TileType = tile.Type
					in.Properties = tile.Properties
				}

				d, err := a.Classifier.ClassifyTile(in)
				if err != nil {
					if common.Fatal(err) {
						return fmt.Errorf("compiler: layer %q row %d col %d: %w", layer.Name, row, col, err)
					}
					log.WithError(err).Warnf("compiler: dropped tile at row %d col %d", row, col)
					out.Dropped++
					continue
				}
				if d.Kind == classify.KindDrop {
					log.Debugf("compiler: dropped tile at row %d col %d: %s", row, col, d.Reason)
					out.Dropped++
					continue
				}

				e := scene.Entity{
					Transform: &in.Transform,
					Detail:    d.Detail(),
				}
				a.attach(&e, ref, sprite)
				out.Prefab.Entities = append(out.Prefab.Entities, e)
				out.Tiles++
			}
		}
	}
	return nil
}

func (a *Assembler) assembleObjects(out *Assembly) error {
	for gi, group := range a.Map.ObjectGroups {
		for _, obj := range group.Objects {
			log := a.Log.WithFields(logrus.Fields{"group": group.Name, "object": obj.ID, "type": obj.Type})

			var ref scene.TileRef
			sprite := -1
			if obj.GID != 0 {
				r, ok, err := a.Table.Resolve(obj.GID)
				if err != nil {
					return fmt.Errorf("compiler: object %d: %w", obj.ID, err)
				}
				if ok {
					ref = r
					if sprite, err = a.sprite(ref); err != nil {
						return fmt.Errorf("compiler: object %d: %w", obj.ID, err)
					}
				}
			}

			transform := scene.ObjectToWorld(obj, gi)
			d, err := a.Classifier.ClassifyObject(classify.ObjectInput{
				Object:    obj,
				Group:     group.Name,
				HasSprite: sprite >= 0,
				Transform: transform,
			})
			if err != nil {
				if common.Fatal(err) {
					return fmt.Errorf("compiler: object %d: %w", obj.ID, err)
				}
				log.WithError(err).Warn("compiler: dropped object")
				out.Dropped++
				continue
			}
			if d.Kind == classify.KindDrop {
				log.Debugf("compiler: dropped object: %s", d.Reason)
				out.Dropped++
				continue
			}

			e := scene.Entity{
				Name:      obj.Name,
				Transform: &transform,
				Detail:    d.Detail(),
			}
			if sprite >= 0 {
				a.attach(&e, ref, sprite)
			}
			out.Prefab.Entities = append(out.Prefab.Entities, e)
			out.Objects++
		}
	}
	return nil
}

func (a *Assembler) assembleColliders(out *Assembly) error {
	tw, th := float64(a.Map.TileWidth), float64(a.Map.TileHeight)
	for li, layer := range a.Map.Layers {
		if collision, _ := layer.Properties.Bool("collision"); !collision {
			continue
		}
		for _, r := range mergeCells(layer) {
			w, h := float64(r.w)*tw, float64(r.h)*th
			at := scene.Vec3{float64(r.x)*tw + w/2, -float64(r.y)*th - h/2, float64(li)}
			params := classify.DefaultBodyParams()
			params.ColliderOnly = true
			params.GravityEnabled = false
			params.Friction = mergedFriction
			body, err := classify.NewBody(classify.Geometry{Shape: levels.ShapeRect, Width: w, Height: h}, at, params)
			if err != nil {
				return fmt.Errorf("compiler: merge layer %q: %w", layer.Name, err)
			}
			out.Prefab.Entities = append(out.Prefab.Entities, scene.Entity{
				Transform: &scene.Transform{Translation: at},
				Detail:    scene.Detail{Kind: scene.DetailBody, Body: body},
			})
			out.Merged++
		}
		a.Log.WithField("layer", layer.Name).Debugf("compiler: merged colliders for layer %d", li)
	}
	return nil
}

// sprite maps a resolved tile to its sprite index in the tileset's sheet.
func (a *Assembler) sprite(ref scene.TileRef) (int, error) {
	sheet := a.Sheets[ref.Tileset]
	idx, ok := sheet.SpriteIndex(ref.Local)
	if !ok {
		return 0, common.Errorf(common.KindInvalidGid, "",
			"compiler: tile %d has no sprite in %s", ref.Local, sheet.Name)
	}
	return idx, nil
}

// attach gives e its sprite reference, and the full sheet definition when
// this is the sheet's first use.
func (a *Assembler) attach(e *scene.Entity, ref scene.TileRef, sprite int) {
	sheet := a.Sheets[ref.Tileset]
	if a.used.Mark(ref.Tileset) {
		e.Sheet = SheetDef(sheet)
	}
	e.Render = &scene.Render{
		Sheet:          sheet.Name,
		SpriteNumber:   sprite,
		FlipHorizontal: ref.FlipH,
		FlipVertical:   ref.FlipV,
	}
}

// SheetDef converts a loaded sheet into its scene definition.
func SheetDef(s *atlas.Sheet) *scene.SheetDef {
	sprites := make([]scene.Sprite, len(s.Sprites))
	for i, r := range s.Sprites {
		sprites[i] = scene.Sprite{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
	}
	return &scene.SheetDef{
		Name:          s.Name,
		Texture:       scene.Texture{Path: s.TexturePath, Format: scene.TextureFormatImage},
		TextureWidth:  s.Width,
		TextureHeight: s.Height,
		Sprites:       sprites,
	}
}
