// Command atlascrop cuts every sprite of a compiled scene back out of its
// atlas so the packing can be checked by eye or by diff.
package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/milk9111/tilebake/atlas"
	"github.com/milk9111/tilebake/scene"
	"github.com/sirupsen/logrus"
	xdraw "golang.org/x/image/draw"
)

func main() {
	overlay := flag.Bool("overlay", false, "also write each atlas with sprite bounds outlined")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <scene-file> <output-dir> <crop-dir>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 3 {
		flag.Usage()
		os.Exit(2)
	}

	n, err := crop(flag.Arg(0), flag.Arg(1), flag.Arg(2), *overlay)
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.Infof("atlascrop: wrote %d sprites", n)
}

func crop(scenePath, outputDir, cropDir string, overlay bool) (int, error) {
	data, err := os.ReadFile(scenePath)
	if err != nil {
		return 0, err
	}
	format := scene.FormatYAML
	if strings.EqualFold(filepath.Ext(scenePath), ".json") {
		format = scene.FormatJSON
	}
	p, err := scene.Parse(data, format)
	if err != nil {
		return 0, err
	}

	cache, err := atlas.NewImageCache(0)
	if err != nil {
		return 0, err
	}
	defer cache.Close()

	total := 0
	for _, e := range p.Entities {
		if e.Sheet == nil {
			continue
		}
		n, err := cropSheet(cache, e.Sheet, outputDir, cropDir, overlay)
		if err != nil {
			return total, fmt.Errorf("atlascrop: %s: %w", e.Sheet.Name, err)
		}
		total += n
	}
	return total, nil
}

func cropSheet(cache *atlas.ImageCache, def *scene.SheetDef, outputDir, cropDir string, overlay bool) (int, error) {
	// texture paths carry the asset prefix; files sit at the output root
	src := filepath.Join(outputDir, path.Base(def.Texture.Path))
	sheet, err := cache.Load(src)
	if err != nil {
		return 0, err
	}
	if sheet.Bounds().Dx() != def.TextureWidth || sheet.Bounds().Dy() != def.TextureHeight {
		return 0, fmt.Errorf("%s is %v, scene says %dx%d", src, sheet.Bounds().Size(), def.TextureWidth, def.TextureHeight)
	}

	dir := filepath.Join(cropDir, def.Name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	for i, s := range def.Sprites {
		r := image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)
		if !r.In(sheet.Bounds()) {
			return i, fmt.Errorf("sprite %d %v outside %v", i, r, sheet.Bounds())
		}
		frame := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))
		xdraw.Copy(frame, image.Point{}, sheet, r, xdraw.Src, nil)
		if err := writePNG(filepath.Join(dir, fmt.Sprintf("%d.png", i)), frame); err != nil {
			return i, err
		}
	}

	if overlay {
		out := image.NewNRGBA(sheet.Bounds())
		xdraw.Copy(out, image.Point{}, sheet, sheet.Bounds(), xdraw.Src, nil)
		red := image.NewUniform(color.NRGBA{R: 0xff, A: 0xff})
		for _, s := range def.Sprites {
			for _, edge := range outline(image.Rect(s.X, s.Y, s.X+s.Width, s.Y+s.Height)) {
				xdraw.Draw(out, edge, red, image.Point{}, xdraw.Over)
			}
		}
		if err := writePNG(filepath.Join(cropDir, def.Name+".png"), out); err != nil {
			return len(def.Sprites), err
		}
	}
	return len(def.Sprites), nil
}

// outline returns the one-pixel border of r as four strips.
func outline(r image.Rectangle) []image.Rectangle {
	return []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1),
		image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y),
		image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y),
	}
}

func writePNG(path string, img image.Image) error {
	data, err := atlas.EncodePNG(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
