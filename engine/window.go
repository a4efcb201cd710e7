package engine

import (
	"github.com/paulmach/orb"
	"github.com/tidwall/qtree"

	"github.com/geomarkers/poicluster/poimodel"
)

// TierCaps bounds how many markers one render returns, per zoom tier.
// Wide views get fewer markers than street-level views.
type TierCaps struct {
	Low, Mid, High int
	// MidZoom and HighZoom are the tier boundaries: zoom below MidZoom is
	// the low tier, at or above HighZoom the high tier.
	MidZoom, HighZoom float64
}

func DefaultTierCaps() TierCaps {
	return TierCaps{Low: 80, Mid: 160, High: 320, MidZoom: 9, HighZoom: 14}
}

func (t TierCaps) capFor(zoom float64) int {
	switch {
	case zoom >= t.HighZoom:
		return t.High
	case zoom >= t.MidZoom:
		return t.Mid
	default:
		return t.Low
	}
}

// windowItems trims a computed marker set to the tier budget. Priority
// markers always pass; the remainder fills up with in-viewport items
// first (spatial lookup over display positions), then out-of-viewport
// ones. Relative input order is preserved within each band. Without
// bounds the fill is plain input order.
func windowItems(items []poimodel.RenderItem, zoom float64, bounds *orb.Bound, caps TierCaps, isPriority func(poimodel.RenderItem) bool) []poimodel.RenderItem {
	budget := caps.capFor(zoom)

	out := make([]poimodel.RenderItem, 0, len(items))
	var rest []int
	for i, it := range items {
		if isPriority(it) {
			out = append(out, it)
		} else {
			rest = append(rest, i)
		}
	}

	remaining := budget - len(out)
	if remaining < 0 {
		remaining = 0
	}
	if len(rest) <= remaining {
		for _, i := range rest {
			out = append(out, items[i])
		}
		return out
	}

	var inView map[int]bool
	if bounds != nil {
		var qt qtree.QTree
		for _, i := range rest {
			qt.Insert(items[i].Position, items[i].Position, i)
		}
		inView = make(map[int]bool)
		qt.Search(bounds.Min, bounds.Max, func(_, _ [2]float64, data interface{}) bool {
			inView[data.(int)] = true
			return true
		})
	}

	taken := 0
	for _, i := range rest {
		if taken >= remaining {
			break
		}
		if bounds == nil || inView[i] {
			out = append(out, items[i])
			taken++
		}
	}
	if bounds != nil {
		for _, i := range rest {
			if taken >= remaining {
				break
			}
			if !inView[i] {
				out = append(out, items[i])
				taken++
			}
		}
	}
	return out
}
