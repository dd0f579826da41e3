package atlas

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"
	"sort"

	"github.com/milk9111/tilebake/common"
)

// Packed is the result of packing loose images into one atlas.
// Rects[i] is where inputs[i] landed.
type Packed struct {
	Width  int
	Height int
	Image  *image.NRGBA
	Rects  []image.Rectangle
}

// Pack places inputs on shelves, tallest first, and copies their pixels into
// a single atlas. The layout depends only on the order and sizes of inputs.
func Pack(inputs []*image.NRGBA, padding, maxSize int) (*Packed, error) {
	if padding < 0 {
		padding = 0
	}
	if len(inputs) == 0 {
		return &Packed{Width: 1, Height: 1, Image: image.NewNRGBA(image.Rect(0, 0, 1, 1))}, nil
	}

	order := make([]int, len(inputs))
	widest := 0
	area := 0
	for i, img := range inputs {
		order[i] = i
		w, h := img.Bounds().Dx(), img.Bounds().Dy()
		if maxSize > 0 && (w > maxSize || h > maxSize) {
			return nil, common.Errorf(common.KindPackingOverflow, "",
				"atlas: image %d is %dx%d, larger than max atlas size %d", i, w, h, maxSize)
		}
		if w+padding > widest {
			widest = w + padding
		}
		area += (w + padding) * (h + padding)
	}
	sort.SliceStable(order, func(a, b int) bool {
		ba, bb := inputs[order[a]].Bounds(), inputs[order[b]].Bounds()
		if ba.Dy() != bb.Dy() {
			return ba.Dy() > bb.Dy()
		}
		return ba.Dx() > bb.Dx()
	})

	shelfWidth := nextPow2(max(widest, int(math.Ceil(math.Sqrt(float64(area))))))
	if maxSize > 0 && shelfWidth > maxSize {
		shelfWidth = max(maxSize, widest)
	}

	rects := make([]image.Rectangle, len(inputs))
	x, y, shelfH := 0, 0, 0
	usedW, usedH := 0, 0
	for _, i := range order {
		w, h := inputs[i].Bounds().Dx(), inputs[i].Bounds().Dy()
		if x > 0 && x+w > shelfWidth {
			y += shelfH
			x, shelfH = 0, 0
		}
		rects[i] = image.Rect(x, y, x+w, y+h)
		usedW = max(usedW, x+w)
		usedH = max(usedH, y+h)
		x += w + padding
		shelfH = max(shelfH, h+padding)
	}
	usedW = max(usedW, 1)
	usedH = max(usedH, 1)
	if maxSize > 0 && (usedW > maxSize || usedH > maxSize) {
		return nil, common.Errorf(common.KindPackingOverflow, "",
			"atlas: %d images need %dx%d, max atlas size is %d", len(inputs), usedW, usedH, maxSize)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, usedW, usedH))
	for i, img := range inputs {
		copyPixels(dst, rects[i].Min, img)
	}
	return &Packed{Width: usedW, Height: usedH, Image: dst, Rects: rects}, nil
}

// EncodePNG encodes img with fixed settings so identical pixels give
// identical bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("atlas: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func nextPow2(v int) int {
	p := 1
	for p < v {
		p <<= 1
	}
	return p
}
