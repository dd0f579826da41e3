package compiler

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/milk9111/tilebake/common"
	"github.com/milk9111/tilebake/config"
	"github.com/milk9111/tilebake/levels"
	"github.com/milk9111/tilebake/scene"
	"github.com/sirupsen/logrus"
)

const levelTMX = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" renderorder="right-down" width="4" height="2" tilewidth="8" tileheight="8" infinite="0">
 <tileset firstgid="1" name="terrain" tilewidth="8" tileheight="8" tilecount="2" columns="2">
  <image source="terrain.png" width="16" height="8"/>
 </tileset>
 <tileset firstgid="3" name="props" tilewidth="8" tileheight="8" tilecount="2" columns="0">
  <tile id="0"><image source="props/crate.png" width="8" height="8"/></tile>
  <tile id="1"><image source="props/barrel.png" width="6" height="8"/></tile>
 </tileset>
 <tileset firstgid="5" name="unused" tilewidth="8" tileheight="8" tilecount="1" columns="1">
  <image source="unused.png" width="8" height="8"/>
 </tileset>
 <layer id="1" name="ground" width="4" height="2">
  <properties>
   <property name="collision" type="bool" value="true"/>
  </properties>
  <data encoding="csv">
1,2,2147483650,0,
1,1,0,0
</data>
 </layer>
 <objectgroup id="2" name="things">
  <object id="1" name="crate" type="static" x="8" y="16" width="8" height="8" gid="3"/>
  <object id="2" name="box" type="dynamic" x="0" y="0" width="4" height="2"/>
  <object id="3" type="spawn" x="2" y="3"><point/></object>
  <object id="4" type="dynamic" x="0" y="0" width="6" height="3"><ellipse/></object>
  <object id="5" type="collision" x="0" y="0" width="32" height="4"/>
  <object id="6" name="barrel" type="dynamic" x="16" y="8" width="6" height="8" gid="4"/>
 </objectgroup>
</map>
`

func pattern(w, h int, seed uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: seed, A: 255})
		}
	}
	return img
}

func writeLevel(t *testing.T, tmx string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "props"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	images := map[string]*image.NRGBA{
		"terrain.png":      pattern(16, 8, 1),
		"unused.png":       pattern(8, 8, 2),
		"props/crate.png":  pattern(8, 8, 3),
		"props/barrel.png": pattern(6, 8, 4),
	}
	for name, img := range images {
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			t.Fatalf("encode %s: %v", name, err)
		}
		if err := os.WriteFile(filepath.Join(dir, filepath.FromSlash(name)), buf.Bytes(), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	path := filepath.Join(dir, "level.tmx")
	if err := os.WriteFile(path, []byte(tmx), 0o644); err != nil {
		t.Fatalf("write tmx: %v", err)
	}
	return path
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(new(bytes.Buffer))
	return log
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Prefix = "levels/one"
	return cfg
}

func TestCompile(t *testing.T) {
	path := writeLevel(t, levelTMX)
	res, err := Compile(path, testConfig(), nil, quietLogger())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ents := res.Assembly.Prefab.Entities

	t.Run("counts", func(t *testing.T) {
		a := res.Assembly
		if a.Tiles != 5 || a.Objects != 4 || a.Dropped != 2 || a.Merged != 0 {
			t.Fatalf("unexpected counts tiles=%d objects=%d dropped=%d merged=%d", a.Tiles, a.Objects, a.Dropped, a.Merged)
		}
		if len(ents) != 9 {
			t.Fatalf("expected 9 entities, got %d", len(ents))
		}
	})

	t.Run("tiles_before_objects", func(t *testing.T) {
		for i, e := range ents {
			isTile := e.Detail.Kind == scene.DetailTile
			if isTile != (i < 5) {
				t.Fatalf("entity %d has detail %s", i, e.Detail.Kind)
			}
		}
	})

	t.Run("sheet_defined_once_on_first_use", func(t *testing.T) {
		defined := map[string]int{}
		firstUse := map[string]int{}
		for i, e := range ents {
			if e.Sheet != nil {
				defined[e.Sheet.Name]++
				if e.Render == nil || e.Render.Sheet != e.Sheet.Name {
					t.Fatalf("entity %d defines %s without rendering it", i, e.Sheet.Name)
				}
			}
			if e.Render != nil {
				if _, ok := firstUse[e.Render.Sheet]; !ok {
					firstUse[e.Render.Sheet] = i
					if e.Sheet == nil {
						t.Fatalf("first use of %s at entity %d carries no definition", e.Render.Sheet, i)
					}
				}
			}
		}
		if len(defined) != 2 || defined["map_sprite_sheet_0"] != 1 || defined["map_sprite_sheet_1"] != 1 {
			t.Fatalf("unexpected definitions %v", defined)
		}
		if firstUse["map_sprite_sheet_0"] != 0 || firstUse["map_sprite_sheet_1"] != 5 {
			t.Fatalf("unexpected first uses %v", firstUse)
		}
	})

	t.Run("tile_entities", func(t *testing.T) {
		first := ents[0]
		if first.Sheet.Texture.Path != "levels/one/sprite_sheet_0.png" || first.Sheet.TextureWidth != 16 {
			t.Fatalf("unexpected sheet %s", spew.Sdump(first.Sheet))
		}
		if first.Transform.Translation != (scene.Vec3{4, -4, 0}) {
			t.Fatalf("first tile at %v", first.Transform.Translation)
		}
		flipped := ents[2]
		if flipped.Render.SpriteNumber != 1 || !flipped.Render.FlipHorizontal {
			t.Fatalf("flip flags lost: %+v", flipped.Render)
		}
		if ents[3].Transform.Translation != (scene.Vec3{4, -12, 0}) {
			t.Fatalf("second row tile at %v", ents[3].Transform.Translation)
		}
	})

	t.Run("object_entities", func(t *testing.T) {
		crate := ents[5]
		if crate.Name != "crate" || crate.Detail.Kind != scene.DetailStatic || crate.Render.SpriteNumber != 0 {
			t.Fatalf("unexpected crate %s", spew.Sdump(crate))
		}
		if crate.Transform.Translation != (scene.Vec3{12, -12, 0}) {
			t.Fatalf("crate at %v", crate.Transform.Translation)
		}
		box := ents[6]
		if box.Name != "box" || box.Detail.Kind != scene.DetailBody || box.Render != nil || box.Sheet != nil {
			t.Fatalf("unexpected box %s", spew.Sdump(box))
		}
		wall := ents[7]
		if wall.Detail.Body == nil || !wall.Detail.Body.ColliderOnly {
			t.Fatalf("unexpected collision entity %s", spew.Sdump(wall))
		}
		barrel := ents[8]
		if barrel.Sheet != nil || barrel.Render == nil || barrel.Render.Sheet != "map_sprite_sheet_1" || barrel.Render.SpriteNumber != 1 {
			t.Fatalf("unexpected barrel %s", spew.Sdump(barrel))
		}
	})

	t.Run("unused_sheet_not_bundled", func(t *testing.T) {
		got := res.Bundle.Dests()
		want := []string{"sprite_sheet_0.png", "sprite_sheet_1.png", "map.yaml"}
		if strings.Join(got, ",") != strings.Join(want, ",") {
			t.Fatalf("bundle = %v, want %v", got, want)
		}
		if strings.Contains(string(res.Scene), "map_sprite_sheet_2") {
			t.Fatalf("scene mentions the unused sheet")
		}
	})

	t.Run("scene_parses", func(t *testing.T) {
		p, err := scene.Parse(res.Scene, scene.FormatYAML)
		if err != nil {
			t.Fatalf("Parse: %v", err)
		}
		if len(p.Entities) != len(ents) {
			t.Fatalf("parsed %d entities, want %d", len(p.Entities), len(ents))
		}
		if err := scene.Validate(p); err != nil {
			t.Fatalf("Validate: %v", err)
		}
	})
}

func TestRunDeterministic(t *testing.T) {
	path := writeLevel(t, levelTMX)
	out := t.TempDir()
	cfg := testConfig()

	read := func() map[string][]byte {
		files := map[string][]byte{}
		entries, err := os.ReadDir(out)
		if err != nil {
			t.Fatalf("read dir: %v", err)
		}
		for _, e := range entries {
			data, err := os.ReadFile(filepath.Join(out, e.Name()))
			if err != nil {
				t.Fatalf("read %s: %v", e.Name(), err)
			}
			files[e.Name()] = data
		}
		return files
	}

	if err := Run(path, out, cfg, quietLogger()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	first := read()
	if err := Run(path, out, cfg, quietLogger()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	second := read()

	names := make([]string, 0, len(first))
	for name := range first {
		names = append(names, name)
	}
	sort.Strings(names)
	if strings.Join(names, ",") != "map.yaml,sprite_sheet_0.png,sprite_sheet_1.png" {
		t.Fatalf("unexpected output files %v", names)
	}
	for _, name := range names {
		if !bytes.Equal(first[name], second[name]) {
			t.Fatalf("%s differs between runs", name)
		}
	}

	src, err := os.ReadFile(filepath.Join(filepath.Dir(path), "terrain.png"))
	if err != nil {
		t.Fatalf("read source sheet: %v", err)
	}
	if !bytes.Equal(first["sprite_sheet_0.png"], src) {
		t.Fatalf("pre-built sheet was not copied byte for byte")
	}
}

func TestCompileJSON(t *testing.T) {
	path := writeLevel(t, levelTMX)
	cfg := testConfig()
	cfg.SceneFormat = "json"
	cfg.SceneName = "level"
	res, err := Compile(path, cfg, nil, quietLogger())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	dests := res.Bundle.Dests()
	if dests[len(dests)-1] != "level.json" {
		t.Fatalf("scene file = %s", dests[len(dests)-1])
	}
	if _, err := scene.Parse(res.Scene, scene.FormatJSON); err != nil {
		t.Fatalf("Parse: %v", err)
	}
}

func TestCompileMergeColliders(t *testing.T) {
	path := writeLevel(t, levelTMX)
	cfg := testConfig()
	cfg.MergeColliders = true
	res, err := Compile(path, cfg, nil, quietLogger())
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if res.Assembly.Merged != 2 {
		t.Fatalf("merged = %d, want 2", res.Assembly.Merged)
	}
	ents := res.Assembly.Prefab.Entities
	merged := ents[len(ents)-2:]
	wantSizes := [][2]float64{{24, 8}, {16, 8}}
	wantAt := []scene.Vec3{{12, -4, 0}, {8, -12, 0}}
	for i, e := range merged {
		b := e.Detail.Body
		if b == nil || !b.ColliderOnly || e.Render != nil {
			t.Fatalf("merged entity %d: %s", i, spew.Sdump(e))
		}
		s := b.Colliders[0].Shape
		if s.Width != wantSizes[i][0] || s.Height != wantSizes[i][1] {
			t.Fatalf("merged %d size %vx%v, want %v", i, s.Width, s.Height, wantSizes[i])
		}
		if e.Transform.Translation != wantAt[i] {
			t.Fatalf("merged %d at %v, want %v", i, e.Transform.Translation, wantAt[i])
		}
	}
}

func TestMergeCellsCoversEachCellOnce(t *testing.T) {
	layer := &levels.TileLayer{Width: 5, Height: 4, GIDs: [][]uint32{
		{1, 1, 0, 1, 1},
		{1, 1, 0, 1, 0},
		{0, 1, 1, 1, 0},
		{1, 0, 0, 0, levels.FlipHorizontal | 2},
	}}
	rects := mergeCells(layer)
	count := make([][]int, layer.Height)
	for y := range count {
		count[y] = make([]int, layer.Width)
	}
	for _, r := range rects {
		for y := r.y; y < r.y+r.h; y++ {
			for x := r.x; x < r.x+r.w; x++ {
				count[y][x]++
			}
		}
	}
	for y, row := range layer.GIDs {
		for x, gid := range row {
			want := 0
			if levels.GIDValue(gid) != 0 {
				want = 1
			}
			if count[y][x] != want {
				t.Fatalf("cell (%d,%d) covered %d times, want %d\n%s", x, y, count[y][x], want, spew.Sdump(rects))
			}
		}
	}
}

func TestGidTableDump(t *testing.T) {
	path := writeLevel(t, levelTMX)
	tests := []struct {
		name  string
		level logrus.Level
		dump  bool
	}{
		{name: "info", level: logrus.InfoLevel, dump: false},
		{name: "debug", level: logrus.DebugLevel, dump: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			log := logrus.New()
			log.SetOutput(&buf)
			log.SetLevel(tt.level)

			if debugEnabled(log) != tt.dump || debugEnabled(log.WithField("map", path)) != tt.dump {
				t.Fatalf("debugEnabled disagrees with level %v", tt.level)
			}
			if _, err := Compile(path, testConfig(), nil, log); err != nil {
				t.Fatalf("Compile: %v", err)
			}
			if got := strings.Contains(buf.String(), "gid table"); got != tt.dump {
				t.Fatalf("gid table dumped = %v, want %v", got, tt.dump)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	cases := []struct {
		name string
		tmx  string
		want error
	}{
		{
			name: "invalid_gid",
			tmx:  strings.Replace(levelTMX, "1,1,0,0", "1,1,0,99", 1),
			want: common.ErrInvalidGid,
		},
		{
			name: "missing_image",
			tmx:  strings.Replace(levelTMX, "props/crate.png", "props/gone.png", 1),
			want: common.ErrMissingImage,
		},
		{
			name: "malformed_map",
			tmx:  strings.Replace(levelTMX, "<map ", "<mop ", 1),
			want: common.ErrMapParse,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeLevel(t, c.tmx)
			out := filepath.Join(t.TempDir(), "out")
			err := Run(path, out, testConfig(), quietLogger())
			if !errors.Is(err, c.want) {
				t.Fatalf("expected %v, got %v", c.want, err)
			}
			if _, statErr := os.Stat(out); !os.IsNotExist(statErr) {
				t.Fatalf("output written despite failure")
			}
		})
	}
}
