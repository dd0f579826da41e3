package atlas

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/milk9111/tilebake/common"
)

// solid returns a w×h image whose pixels encode their own coordinates so
// misplaced copies are detectable.
func solid(w, h int, seed uint8) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x), G: uint8(y), B: seed, A: uint8(128 + x%100)})
		}
	}
	return img
}

func TestPackRoundTrip(t *testing.T) {
	inputs := []*image.NRGBA{
		solid(5, 3, 1),
		solid(7, 9, 2),
		solid(1, 1, 3),
		solid(12, 4, 4),
		solid(3, 11, 5),
	}
	packed, err := Pack(inputs, 0, 0)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	if len(packed.Rects) != len(inputs) {
		t.Fatalf("expected %d rects, got %d", len(inputs), len(packed.Rects))
	}
	for i, in := range inputs {
		r := packed.Rects[i]
		if r.Dx() != in.Bounds().Dx() || r.Dy() != in.Bounds().Dy() {
			t.Fatalf("rect %d is %v, want size %v", i, r, in.Bounds().Size())
		}
		if !r.In(image.Rect(0, 0, packed.Width, packed.Height)) {
			t.Fatalf("rect %d %v outside atlas %dx%d", i, r, packed.Width, packed.Height)
		}
		crop := packed.Image.SubImage(r).(*image.NRGBA)
		for y := 0; y < r.Dy(); y++ {
			for x := 0; x < r.Dx(); x++ {
				got := crop.NRGBAAt(r.Min.X+x, r.Min.Y+y)
				want := in.NRGBAAt(x, y)
				if got != want {
					t.Fatalf("input %d pixel (%d,%d) = %v, want %v", i, x, y, got, want)
				}
			}
		}
	}
	for i := range packed.Rects {
		for j := i + 1; j < len(packed.Rects); j++ {
			if packed.Rects[i].Overlaps(packed.Rects[j]) {
				t.Fatalf("rects %d and %d overlap:\n%s", i, j, spew.Sdump(packed.Rects))
			}
		}
	}
}

func TestPackPadding(t *testing.T) {
	inputs := []*image.NRGBA{solid(4, 4, 1), solid(4, 4, 2), solid(4, 4, 3)}
	packed, err := Pack(inputs, 4, 0)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	for i := range packed.Rects {
		for j := i + 1; j < len(packed.Rects); j++ {
			if packed.Rects[i].Inset(-2).Overlaps(packed.Rects[j].Inset(-2)) {
				t.Fatalf("rects %d and %d closer than padding: %v %v", i, j, packed.Rects[i], packed.Rects[j])
			}
		}
	}
}

func TestPackDeterministic(t *testing.T) {
	build := func() []*image.NRGBA {
		return []*image.NRGBA{solid(6, 6, 1), solid(6, 6, 2), solid(2, 8, 3), solid(9, 2, 4)}
	}
	a, err := Pack(build(), 4, 0)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	b, err := Pack(build(), 4, 0)
	if err != nil {
		t.Fatalf("Pack: %v", err)
	}
	for i := range a.Rects {
		if a.Rects[i] != b.Rects[i] {
			t.Fatalf("rect %d differs: %v vs %v", i, a.Rects[i], b.Rects[i])
		}
	}
	pa, err := EncodePNG(a.Image)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	pb, err := EncodePNG(b.Image)
	if err != nil {
		t.Fatalf("EncodePNG: %v", err)
	}
	if !bytes.Equal(pa, pb) {
		t.Fatalf("png bytes differ between runs")
	}
}

func TestPackEdgeCases(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		packed, err := Pack(nil, 4, 0)
		if err != nil {
			t.Fatalf("Pack: %v", err)
		}
		if packed.Width != 1 || packed.Height != 1 || len(packed.Rects) != 0 {
			t.Fatalf("unexpected empty atlas %+v", packed)
		}
	})

	t.Run("oversize_item", func(t *testing.T) {
		_, err := Pack([]*image.NRGBA{solid(20, 4, 1)}, 0, 16)
		if !errors.Is(err, common.ErrPackingOverflow) {
			t.Fatalf("expected packing overflow, got %v", err)
		}
	})

	t.Run("too_many_items", func(t *testing.T) {
		inputs := make([]*image.NRGBA, 10)
		for i := range inputs {
			inputs[i] = solid(8, 8, uint8(i))
		}
		_, err := Pack(inputs, 0, 16)
		if !errors.Is(err, common.ErrPackingOverflow) {
			t.Fatalf("expected packing overflow, got %v", err)
		}
	})

	t.Run("fits_exactly", func(t *testing.T) {
		inputs := []*image.NRGBA{solid(8, 8, 1), solid(8, 8, 2), solid(8, 8, 3), solid(8, 8, 4)}
		packed, err := Pack(inputs, 0, 16)
		if err != nil {
			t.Fatalf("Pack: %v", err)
		}
		if packed.Width != 16 || packed.Height != 16 {
			t.Fatalf("expected 16x16 atlas, got %dx%d", packed.Width, packed.Height)
		}
	})
}
