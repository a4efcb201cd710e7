package cluster

import (
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"

	"github.com/geomarkers/poicluster/poimodel"
)

// Fingerprint derives a stable cache key from everything a clustering
// result depends on: the POI id set, the zoom (rounded), the viewport
// bounds (rounded) and the clustering toggle. Identical inputs hash to the
// same slot regardless of the order POIs arrive in.
func Fingerprint(pois []poimodel.POI, zoom float64, bounds *orb.Bound, clusteringEnabled bool) string {
	ids := make([]string, len(pois))
	for i := range pois {
		ids[i] = pois[i].ID
	}
	sort.Strings(ids)

	h := xxhash.New()
	for _, id := range ids {
		_, _ = h.WriteString(id)
		_, _ = h.Write([]byte{0})
	}
	fmt.Fprintf(h, "z=%.2f;c=%t", zoom, clusteringEnabled)
	if bounds != nil {
		fmt.Fprintf(h, ";b=%.4f,%.4f,%.4f,%.4f",
			bounds.Min.X(), bounds.Min.Y(), bounds.Max.X(), bounds.Max.Y())
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
