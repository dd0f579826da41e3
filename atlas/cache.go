package atlas

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	"github.com/dgraph-io/ristretto/v2"
	"github.com/milk9111/tilebake/common"
	xdraw "golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

const defaultCacheBytes = 256 << 20

// ImageCache decodes tile images once per path. A nil *ImageCache decodes
// every time.
type ImageCache struct {
	images *ristretto.Cache[string, *image.NRGBA]
}

func NewImageCache(maxBytes int64) (*ImageCache, error) {
	if maxBytes <= 0 {
		maxBytes = defaultCacheBytes
	}
	c, err := ristretto.NewCache[string, *image.NRGBA](&ristretto.Config[string, *image.NRGBA]{
		NumCounters: 10000,
		MaxCost:     maxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("atlas: image cache: %w", err)
	}
	return &ImageCache{images: c}, nil
}

func (c *ImageCache) Close() {
	if c == nil || c.images == nil {
		return
	}
	c.images.Close()
}

// Load returns the image at path as 8-bit non-premultiplied RGBA.
// Callers must not modify the returned pixels.
func (c *ImageCache) Load(path string) (*image.NRGBA, error) {
	if c != nil && c.images != nil {
		if img, ok := c.images.Get(path); ok {
			return img, nil
		}
	}
	img, err := decodeImage(path)
	if err != nil {
		return nil, err
	}
	if c != nil && c.images != nil {
		c.images.Set(path, img, int64(len(img.Pix)))
		c.images.Wait()
	}
	return img, nil
}

// Config reads only the header of the image at path.
func (c *ImageCache) Config(path string) (image.Config, error) {
	f, err := openImage(path)
	if err != nil {
		return image.Config{}, err
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return image.Config{}, common.Wrap(common.KindImageDecode, path, err)
	}
	return cfg, nil
}

func openImage(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, common.Wrap(common.KindMissingImage, path, err)
		}
		return nil, common.Wrap(common.KindIo, path, err)
	}
	return f, nil
}

func decodeImage(path string) (*image.NRGBA, error) {
	f, err := openImage(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, common.Wrap(common.KindImageDecode, path, err)
	}
	return toNRGBA(img), nil
}

// toNRGBA converts img to a zero-origin *image.NRGBA. NRGBA sources are
// copied byte for byte.
func toNRGBA(img image.Image) *image.NRGBA {
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	if src, ok := img.(*image.NRGBA); ok {
		copyPixels(dst, image.Point{}, src)
		return dst
	}
	xdraw.Draw(dst, dst.Bounds(), img, b.Min, xdraw.Src)
	return dst
}

// copyPixels copies every row of src into dst at p.
func copyPixels(dst *image.NRGBA, p image.Point, src *image.NRGBA) {
	b := src.Bounds()
	rowLen := b.Dx() * 4
	for y := 0; y < b.Dy(); y++ {
		so := src.PixOffset(b.Min.X, b.Min.Y+y)
		do := dst.PixOffset(p.X, p.Y+y)
		copy(dst.Pix[do:do+rowLen], src.Pix[so:so+rowLen])
	}
}
