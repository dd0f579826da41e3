package scene

import (
	"fmt"
	"sort"

	"github.com/milk9111/tilebake/common"
	"github.com/milk9111/tilebake/levels"
)

// TileRef is a resolved GID: which tileset, which tile inside it, and the
// flips that were set on the raw value.
type TileRef struct {
	Tileset int
	Local   uint32
	FlipH   bool
	FlipV   bool
}

// GidTable maps GIDs to tilesets. Each tileset owns the range from its
// first GID up to the next tileset's first GID; the last one owns count IDs.
type GidTable struct {
	first []uint32
	end   uint32
}

// NewGidTable builds the table from first GIDs in ascending order and the
// ID count of the last tileset.
func NewGidTable(firstGIDs []uint32, lastCount int) (*GidTable, error) {
	for i, g := range firstGIDs {
		if g == 0 {
			return nil, common.Errorf(common.KindMapParse, "", "scene: tileset %d has first gid 0", i)
		}
		if i > 0 && g <= firstGIDs[i-1] {
			return nil, common.Errorf(common.KindMapParse, "",
				"scene: tileset %d first gid %d not above %d", i, g, firstGIDs[i-1])
		}
	}
	t := &GidTable{first: append([]uint32(nil), firstGIDs...)}
	if n := len(firstGIDs); n > 0 {
		t.end = firstGIDs[n-1] + uint32(max(lastCount, 0))
	}
	return t, nil
}

// GidTableFor builds the table for m, using count for the size of the last
// tileset's range.
func GidTableFor(m *levels.Map, count func(i int) int) (*GidTable, error) {
	first := make([]uint32, len(m.Tilesets))
	for i, ts := range m.Tilesets {
		first[i] = ts.FirstGID
	}
	last := 0
	if n := len(first); n > 0 {
		last = count(n - 1)
	}
	return NewGidTable(first, last)
}

// Resolve looks up a raw GID. A GID of 0, after masking flip flags, is an
// empty cell and reports ok=false with no error.
func (t *GidTable) Resolve(raw uint32) (TileRef, bool, error) {
	gid := levels.GIDValue(raw)
	if gid == 0 {
		return TileRef{}, false, nil
	}
	if len(t.first) == 0 || gid < t.first[0] || gid >= t.end {
		return TileRef{}, false, common.Errorf(common.KindInvalidGid, "",
			"scene: gid %d outside every tileset range", gid)
	}
	// greatest first gid <= gid
	i := sort.Search(len(t.first), func(i int) bool { return t.first[i] > gid }) - 1
	h, v := levels.GIDFlips(raw)
	return TileRef{Tileset: i, Local: gid - t.first[i], FlipH: h, FlipV: v}, true, nil
}

func (t *GidTable) String() string {
	return fmt.Sprintf("GidTable{first: %v, end: %d}", t.first, t.end)
}
