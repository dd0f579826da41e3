package scene

import "sort"

// UsedSheets records which sheets have already been defined in the entity
// stream. It only grows.
type UsedSheets struct {
	seen map[int]struct{}
}

func NewUsedSheets() *UsedSheets {
	return &UsedSheets{seen: map[int]struct{}{}}
}

// Mark adds sheet i and reports whether it was new.
func (u *UsedSheets) Mark(i int) bool {
	if _, ok := u.seen[i]; ok {
		return false
	}
	u.seen[i] = struct{}{}
	return true
}

func (u *UsedSheets) Has(i int) bool {
	_, ok := u.seen[i]
	return ok
}

func (u *UsedSheets) Len() int {
	return len(u.seen)
}

// Indices returns the used sheet indices in ascending order.
func (u *UsedSheets) Indices() []int {
	out := make([]int, 0, len(u.seen))
	for i := range u.seen {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
