package cluster

import (
	"github.com/geomarkers/poicluster/poimodel"
)

// mergeReason records which rule produced a candidate cluster.
type mergeReason uint8

const (
	// mergedByDistance marks clusters from the grid pass. They are
	// trusted as-is: re-checking them against pixel overlap would make
	// clusters flicker while zooming.
	mergedByDistance mergeReason = iota + 1
	// mergedByPixel marks candidates assembled outside the distance
	// rule; they stay clustered only with confirmed pixel overlap.
	mergedByPixel
)

// resolveCluster decides whether a candidate cluster survives at this
// zoom. Dissolution is a normal branch of the algorithm: every member is
// re-emitted individually, nothing is logged.
func (c *Clusterer) resolveCluster(rep *poimodel.ClusterRepresentative, reason mergeReason, zoom float64) ([]poimodel.RenderItem, bool) {
	if reason == mergedByDistance || c.pixelOverlapConfirmed(rep, zoom) {
		return []poimodel.RenderItem{poimodel.ClusterItem(rep)}, true
	}

	items := make([]poimodel.RenderItem, len(rep.Members))
	for i := range rep.Members {
		items[i] = poimodel.IndividualItem(&rep.Members[i])
	}
	return items, false
}

func (c *Clusterer) pixelOverlapConfirmed(rep *poimodel.ClusterRepresentative, zoom float64) bool {
	seed := rep.Members[0].Point
	for _, m := range rep.Members[1:] {
		if pixelDistance(c.project, seed, m.Point, zoom) >= c.cfg.PixelThreshold {
			return false
		}
	}
	return true
}

// mergeVisualOverlaps is the secondary path: pairs that the distance rule
// left apart can still overlap visually (degrees apart, pixels together at
// low zoom). Still-individual items are regrouped on a pixel-sized grid
// and each candidate group must pass pixel-overlap confirmation before it
// becomes a cluster.
func (c *Clusterer) mergeVisualOverlaps(items []poimodel.RenderItem, zoom float64, seq *idSequence) []poimodel.RenderItem {
	eps := c.pixelEpsilonSafe(zoom)

	g := newGrid(eps)
	pool := make([]poimodel.POI, 0, len(items))
	poolItem := make([]int, 0, len(items)) // pool index -> items index
	for idx, it := range items {
		if it.Kind == poimodel.KindPOI {
			g.add(len(pool), it.Position)
			pool = append(pool, *it.POI)
			poolItem = append(poolItem, idx)
		}
	}
	if len(pool) < 2 {
		return items
	}

	type pixelGroup struct {
		seed    int
		members []int
	}

	processed := make([]bool, len(pool))
	var groups []pixelGroup // seed order, for deterministic ids
	for _, key := range g.order {
		idxs := g.cells[key]
		for pos, i := range idxs {
			if processed[i] {
				continue
			}
			processed[i] = true

			members := []int{i}
			for _, j := range idxs[pos+1:] {
				if processed[j] {
					continue
				}
				if pixelDistance(c.project, pool[i].Point, pool[j].Point, zoom) < c.cfg.PixelThreshold {
					processed[j] = true
					members = append(members, j)
				}
			}
			if len(members) > 1 {
				groups = append(groups, pixelGroup{seed: i, members: members})
			}
		}
	}
	if len(groups) == 0 {
		return items
	}

	claimed := make(map[int]bool) // items indices folded into a cluster
	replacement := make(map[int][]poimodel.RenderItem)
	for _, grp := range groups {
		rep := newRepresentative(pool, grp.members, seq)
		kept, ok := c.resolveCluster(rep, mergedByPixel, zoom)
		if !ok {
			continue
		}
		for _, m := range grp.members {
			claimed[poolItem[m]] = true
		}
		replacement[poolItem[grp.seed]] = kept
	}

	out := make([]poimodel.RenderItem, 0, len(items))
	for idx, it := range items {
		if kept, ok := replacement[idx]; ok {
			out = append(out, kept...)
			continue
		}
		if claimed[idx] {
			continue
		}
		out = append(out, it)
	}
	return out
}

// pixelEpsilonSafe keeps the candidate grid from degenerating when the
// pixel threshold converts to a degree size below the coincidence scale.
func (c *Clusterer) pixelEpsilonSafe(zoom float64) float64 {
	eps := c.cfg.pixelEpsilon(zoom)
	if eps < c.cfg.CoincidenceEpsilon {
		return c.cfg.CoincidenceEpsilon
	}
	return eps
}
