package cluster

import (
	"github.com/paulmach/orb"

	"github.com/geomarkers/poicluster/poimodel"
)

// Clusterer runs clustering passes with a fixed configuration. It holds no
// per-pass state; one instance can serve many computations.
type Clusterer struct {
	cfg     Config
	project Projector

	priorityOrigins map[string]struct{}
	// labelZoom is the zoom at or above which priority markers carry a
	// show-label hint.
	labelZoom float64
}

// DefaultPriorityOrigin marks editorially recommended POIs that must never
// be merged into a cluster.
const DefaultPriorityOrigin = "recommended"

const defaultLabelZoom = 14

func New(cfg Config, project Projector, priorityOrigins ...string) *Clusterer {
	if project == nil {
		project = WebMercator(cfg.TileSize)
	}
	if len(priorityOrigins) == 0 {
		priorityOrigins = []string{DefaultPriorityOrigin}
	}
	labelZoom := cfg.LabelZoom
	if labelZoom == 0 {
		labelZoom = defaultLabelZoom
	}

	origins := make(map[string]struct{}, len(priorityOrigins))
	for _, o := range priorityOrigins {
		origins[o] = struct{}{}
	}
	return &Clusterer{
		cfg:             cfg,
		project:         project,
		priorityOrigins: origins,
		labelZoom:       labelZoom,
	}
}

// Compute runs one full pass: priority partitioning, grid clustering,
// overlap resolution, coincidence offsets, priority re-merge. The result
// covers every input POI exactly once, either standalone or as exactly one
// cluster's member. Every POI must have a valid position; a violation is a
// precondition failure, not a skipped item.
func (c *Clusterer) Compute(pois []poimodel.POI, zoom float64, clusteringEnabled bool) ([]poimodel.RenderItem, error) {
	for i := range pois {
		if err := pois[i].Validate(); err != nil {
			return nil, err
		}
	}

	priority, clusterable := c.partitionPriority(pois)

	seq := &idSequence{}
	var items []poimodel.RenderItem
	if clusteringEnabled {
		items = c.clusterPool(clusterable, zoom, seq)
		items = c.mergeVisualOverlaps(items, zoom, seq)
	} else {
		items = individualItems(clusterable)
	}

	c.resolveCoincident(items)

	return append(items, c.priorityItems(priority, zoom)...), nil
}

// clusterPool is the distance rule: bucket the pool into zoom-sized grid
// cells and merge, within each cell, every unprocessed POI within the
// merge distance of the seed. Squared distances keep the hot path free of
// square roots.
func (c *Clusterer) clusterPool(pool []poimodel.POI, zoom float64, seq *idSequence) []poimodel.RenderItem {
	d := c.cfg.DistanceForZoom(zoom)
	dd := d * d

	g := newGrid(d)
	for i := range pool {
		g.add(i, pool[i].Point)
	}

	processed := make([]bool, len(pool))
	items := make([]poimodel.RenderItem, 0, len(pool))

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
				if distanceSquared(pool[i].Point, pool[j].Point) < dd {
					processed[j] = true
					members = append(members, j)
				}
			}

			if len(members) == 1 {
				items = append(items, poimodel.IndividualItem(&pool[i]))
				continue
			}

			rep := newRepresentative(pool, members, seq)
			// Distance merges are always kept; see resolveCluster.
			kept, _ := c.resolveCluster(rep, mergedByDistance, zoom)
			items = append(items, kept...)
		}
	}
	return items
}

func newRepresentative(pool []poimodel.POI, members []int, seq *idSequence) *poimodel.ClusterRepresentative {
	var latSum, lngSum float64
	ms := make([]poimodel.POI, len(members))
	for i, idx := range members {
		ms[i] = pool[idx]
		latSum += pool[idx].Lat()
		lngSum += pool[idx].Lng()
	}

	n := float64(len(members))
	centroid := orb.Point{lngSum / n, latSum / n}
	return &poimodel.ClusterRepresentative{
		ID:       seq.clusterID(centroid, len(members)),
		Centroid: centroid,
		Members:  ms,
	}
}

func individualItems(pool []poimodel.POI) []poimodel.RenderItem {
	items := make([]poimodel.RenderItem, len(pool))
	for i := range pool {
		items[i] = poimodel.IndividualItem(&pool[i])
	}
	return items
}
