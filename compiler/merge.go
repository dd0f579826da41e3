package compiler

import (
	"github.com/milk9111/tilebake/levels"
)

// cellRect is a run of cells in tile units: column x, row y, w wide, h tall.
type cellRect struct {
	x, y, w, h int
}

// mergeCells covers every non-empty cell of layer with as few rectangles as
// a greedy scan finds: widest run first, then grown downwards.
func mergeCells(layer *levels.TileLayer) []cellRect {
	width, height := layer.Width, layer.Height
	if width <= 0 || height <= 0 {
		return nil
	}
	filled := func(x, y int) bool {
		if y >= len(layer.GIDs) || x >= len(layer.GIDs[y]) {
			return false
		}
		return levels.GIDValue(layer.GIDs[y][x]) != 0
	}
	visited := make([]bool, width*height)
	index := func(x, y int) int { return y*width + x }

	var rects []cellRect
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if visited[index(x, y)] || !filled(x, y) {
				continue
			}

			maxW := 0
			for x2 := x; x2 < width; x2++ {
				if visited[index(x2, y)] || !filled(x2, y) {
					break
				}
				maxW++
			}

			maxH := 1
			for y2 := y + 1; y2 < height; y2++ {
				rowOK := true
				for x2 := x; x2 < x+maxW; x2++ {
					if visited[index(x2, y2)] || !filled(x2, y2) {
						rowOK = false
						break
					}
				}
				if !rowOK {
					break
				}
				maxH++
			}

			for yy := y; yy < y+maxH; yy++ {
				for xx := x; xx < x+maxW; xx++ {
					visited[index(xx, yy)] = true
				}
			}
			rects = append(rects, cellRect{x: x, y: y, w: maxW, h: maxH})
		}
	}
	return rects
}
