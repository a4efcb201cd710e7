package cluster

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/geomarkers/poicluster/poimodel"
)

// resolveCoincident nudges items whose display positions coincide (within
// CoincidenceEpsilon) into a small circle: the first item stays put, item
// i of n moves to angle 2πi/n at OffsetRadius. Only the display position
// changes; POI coordinates are untouched.
func (c *Clusterer) resolveCoincident(items []poimodel.RenderItem) {
	if len(items) < 2 {
		return
	}

	eps := c.cfg.CoincidenceEpsilon
	groups := make(map[cellKey][]int)
	var order []cellKey
	for i, it := range items {
		key := cellFor(it.Position, eps)
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], i)
	}

	for _, key := range order {
		idxs := groups[key]
		if len(idxs) < 2 {
			continue
		}

		base := items[idxs[0]].Position
		n := float64(len(idxs))
		for i, idx := range idxs[1:] {
			angle := 2 * math.Pi * float64(i+1) / n
			items[idx].Position = orb.Point{
				base.X() + c.cfg.OffsetRadius*math.Cos(angle),
				base.Y() + c.cfg.OffsetRadius*math.Sin(angle),
			}
		}
	}
}
