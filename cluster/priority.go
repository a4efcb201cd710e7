package cluster

import "github.com/geomarkers/poicluster/poimodel"

// IsPriority reports whether a POI's origin tag marks it as
// always-individual: it is withheld from clustering and never appears as a
// cluster member.
func (c *Clusterer) IsPriority(p poimodel.POI) bool {
	_, ok := c.priorityOrigins[p.Origin]
	return ok
}

// partitionPriority splits the input into priority POIs and the
// clusterable remainder, both in input order.
func (c *Clusterer) partitionPriority(pois []poimodel.POI) (priority, clusterable []poimodel.POI) {
	for _, p := range pois {
		if c.IsPriority(p) {
			priority = append(priority, p)
		} else {
			clusterable = append(clusterable, p)
		}
	}
	return priority, clusterable
}

// priorityItems re-emits withheld POIs as individual items, with a label
// hint at high zoom.
func (c *Clusterer) priorityItems(priority []poimodel.POI, zoom float64) []poimodel.RenderItem {
	showLabel := zoom >= c.labelZoom
	items := make([]poimodel.RenderItem, len(priority))
	for i := range priority {
		items[i] = poimodel.IndividualItem(&priority[i])
		items[i].ShowLabel = showLabel
	}
	return items
}
