package output

import (
	"fmt"

	"github.com/milk9111/tilebake/atlas"
)

// Build assembles the bundle for a compilation: one file per used sheet, in
// sheet order, followed by the scene file. Sheets not listed in used are
// left out.
func Build(sheets []*atlas.Sheet, used []int, sceneFile string, sceneData []byte) (*Bundle, error) {
	b := &Bundle{}
	for _, i := range used {
		if i < 0 || i >= len(sheets) {
			return nil, fmt.Errorf("output: used sheet %d out of range", i)
		}
		s := sheets[i]
		switch src := s.Source.(type) {
		case atlas.CopySource:
			b.Add(Copy{Src: src.Path, Path: s.File})
		case atlas.PackedSource:
			b.Add(Data{Path: s.File, Bytes: src.PNG})
		default:
			return nil, fmt.Errorf("output: sheet %s has no source", s.Name)
		}
	}
	b.Add(Data{Path: sceneFile, Bytes: sceneData})
	return b, nil
}
