package cluster

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/paulmach/orb"
)

// idSequence disambiguates clusters that share a centroid within one
// compute pass. It is owned by the pass and reset per call, so repeated
// runs over the same input generate the same ids.
type idSequence struct {
	next uint32
}

func (s *idSequence) clusterID(centroid orb.Point, size int) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%.6f:%.6f:%d:%d", centroid.Y(), centroid.X(), size, s.next)
	s.next++
	return fmt.Sprintf("cluster-%016x", h.Sum64())
}
