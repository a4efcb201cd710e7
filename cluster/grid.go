package cluster

import (
	"math"

	"github.com/paulmach/orb"
)

// cellKey addresses one grid cell. Cells exist only for the duration of a
// single pass.
type cellKey struct {
	row, col int64
}

func cellFor(p orb.Point, size float64) cellKey {
	return cellKey{
		row: int64(math.Floor(p.Y() / size)),
		col: int64(math.Floor(p.X() / size)),
	}
}

// grid buckets point indices into cells of a fixed degree size, bounding
// neighbor search to one cell instead of the whole input. Neighbors split
// across a cell boundary are not merged; the cell size equals the merge
// threshold, so true neighbors almost never straddle one at clustering
// scale.
type grid struct {
	size  float64
	cells map[cellKey][]int
	// order keeps first-appearance cell order, so iteration (and with it
	// the whole pass) stays deterministic.
	order []cellKey
}

func newGrid(size float64) *grid {
	return &grid{
		size:  size,
		cells: make(map[cellKey][]int),
	}
}

func (g *grid) add(idx int, p orb.Point) {
	key := cellFor(p, g.size)
	if _, ok := g.cells[key]; !ok {
		g.order = append(g.order, key)
	}
	g.cells[key] = append(g.cells[key], idx)
}

func distanceSquared(a, b orb.Point) float64 {
	d0 := a.X() - b.X()
	d1 := a.Y() - b.Y()
	return d0*d0 + d1*d1
}
