// Package page slices an ordered ID universe into fixed-size pages.
package page

// DefaultSize is the number of ids requested per page.
const DefaultSize = 20

// Page is one slice of the universe.
type Page struct {
	IDs    []int // universe[offset:end]; shares the universe's backing array
	Offset int   // cursor after consuming IDs
	Last   bool  // this page reaches or passes the end of the universe
}

// Next returns the page starting at offset. Once offset has reached the end
// of the universe it returns an empty page, the unchanged offset and
// Last=true, so calling it again is harmless. A size below 1 uses DefaultSize.
func Next(universe []int, offset, size int) Page {
	if size < 1 {
		size = DefaultSize
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(universe) {
		return Page{Offset: offset, Last: true}
	}

	end := min(offset+size, len(universe))
	return Page{
		IDs:    universe[offset:end:end],
		Offset: end,
		Last:   offset+size >= len(universe),
	}
}

// Remaining reports how many ids are left after offset.
func Remaining(universe []int, offset int) int {
	if offset >= len(universe) {
		return 0
	}
	return len(universe) - max(offset, 0)
}
