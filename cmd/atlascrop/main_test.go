package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/milk9111/tilebake/atlas"
	"github.com/milk9111/tilebake/scene"
)

func TestCrop(t *testing.T) {
	dir := t.TempDir()
	outputDir := filepath.Join(dir, "out")
	cropDir := filepath.Join(dir, "crops")
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	// left half red, right half blue
	sheet := image.NewNRGBA(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			c := color.NRGBA{R: 0xff, A: 0xff}
			if x >= 4 {
				c = color.NRGBA{B: 0xff, A: 0xff}
			}
			sheet.SetNRGBA(x, y, c)
		}
	}
	data, err := atlas.EncodePNG(sheet)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(filepath.Join(outputDir, "sprite_sheet_0.png"), data, 0o644); err != nil {
		t.Fatalf("write sheet: %v", err)
	}

	p := &scene.Prefab{Entities: []scene.Entity{{
		Sheet: &scene.SheetDef{
			Name:          "map_sprite_sheet_0",
			Texture:       scene.Texture{Path: "maps/level1/sprite_sheet_0.png", Format: scene.TextureFormatImage},
			TextureWidth:  8,
			TextureHeight: 4,
			Sprites: []scene.Sprite{
				{X: 0, Y: 0, Width: 4, Height: 4},
				{X: 4, Y: 0, Width: 4, Height: 4},
			},
		},
		Render: &scene.Render{Sheet: "map_sprite_sheet_0", SpriteNumber: 1},
	}}}
	sceneData, err := scene.Serialize(p, scene.FormatYAML)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	scenePath := filepath.Join(outputDir, "map.yaml")
	if err := os.WriteFile(scenePath, sceneData, 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}

	n, err := crop(scenePath, outputDir, cropDir, true)
	if err != nil {
		t.Fatalf("crop: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 sprites, got %d", n)
	}

	want := []color.NRGBA{{R: 0xff, A: 0xff}, {B: 0xff, A: 0xff}}
	for i, c := range want {
		img := readPNG(t, filepath.Join(cropDir, "map_sprite_sheet_0", []string{"0.png", "1.png"}[i]))
		if img.Bounds().Dx() != 4 || img.Bounds().Dy() != 4 {
			t.Fatalf("sprite %d: size %v", i, img.Bounds())
		}
		r, g, b, a := img.At(2, 2).RGBA()
		got := color.NRGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
		if got != c {
			t.Fatalf("sprite %d: pixel %v, want %v", i, got, c)
		}
	}
	if _, err := os.Stat(filepath.Join(cropDir, "map_sprite_sheet_0.png")); err != nil {
		t.Fatalf("overlay missing: %v", err)
	}
}

func TestCropSizeMismatch(t *testing.T) {
	dir := t.TempDir()
	data, err := atlas.EncodePNG(image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sprite_sheet_0.png"), data, 0o644); err != nil {
		t.Fatalf("write sheet: %v", err)
	}
	p := &scene.Prefab{Entities: []scene.Entity{{
		Sheet: &scene.SheetDef{
			Name:          "map_sprite_sheet_0",
			Texture:       scene.Texture{Path: "sprite_sheet_0.png", Format: scene.TextureFormatImage},
			TextureWidth:  4,
			TextureHeight: 4,
		},
	}}}
	sceneData, err := scene.Serialize(p, scene.FormatJSON)
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	scenePath := filepath.Join(dir, "map.json")
	if err := os.WriteFile(scenePath, sceneData, 0o644); err != nil {
		t.Fatalf("write scene: %v", err)
	}
	if _, err := crop(scenePath, dir, filepath.Join(dir, "crops"), false); err == nil {
		t.Fatalf("expected size mismatch error")
	}
}

func readPNG(t *testing.T, path string) image.Image {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return img
}
