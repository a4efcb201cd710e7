package cluster

import (
	"testing"

	"github.com/paulmach/orb"

	"github.com/geomarkers/poicluster/poimodel"
)

func coincidentItems(n int, at orb.Point) []poimodel.RenderItem {
	items := make([]poimodel.RenderItem, n)
	for i := range items {
		p := poimodel.POI{ID: string(rune('a' + i)), Point: at}
		items[i] = poimodel.IndividualItem(&p)
	}
	return items
}

func TestResolveCoincidentFansOutOnCircle(t *testing.T) {
	c := New(DefaultConfig(), nil)
	base := orb.Point{138.5, 38.5}

	items := coincidentItems(4, base)
	c.resolveCoincident(items)

	if items[0].Position != base {
		t.Fatalf("first item moved to %v", items[0].Position)
	}

	seen := map[orb.Point]bool{}
	for _, it := range items {
		if seen[it.Position] {
			t.Fatalf("two items share display position %v", it.Position)
		}
		seen[it.Position] = true
	}

	// Offsets stay at the configured radius.
	for _, it := range items[1:] {
		dd := distanceSquared(it.Position, base)
		r := c.cfg.OffsetRadius
		if dd > r*r*1.0001 || dd < r*r*0.9999 {
			t.Fatalf("offset distance² = %v, want %v", dd, r*r)
		}
	}
}

func TestResolveCoincidentLeavesDistinctAlone(t *testing.T) {
	c := New(DefaultConfig(), nil)

	a := poimodel.POI{ID: "a", Point: orb.Point{138.5, 38.5}}
	b := poimodel.POI{ID: "b", Point: orb.Point{138.6, 38.6}}
	items := []poimodel.RenderItem{poimodel.IndividualItem(&a), poimodel.IndividualItem(&b)}

	c.resolveCoincident(items)

	if items[0].Position != a.Point || items[1].Position != b.Point {
		t.Fatal("distinct positions were moved")
	}
}

func FuzzResolveCoincident(f *testing.F) {
	f.Add(138.5, 38.5, uint8(2))
	f.Add(0.0, 0.0, uint8(5))
	f.Add(-179.99, -89.99, uint8(8))

	c := New(DefaultConfig(), nil)

	f.Fuzz(func(t *testing.T, lng, lat float64, n uint8) {
		if !(lng >= -180 && lng <= 180 && lat >= -90 && lat <= 90) {
			t.Skip()
		}
		count := int(n%12) + 2

		items := coincidentItems(count, orb.Point{lng, lat})
		c.resolveCoincident(items)

		seen := map[orb.Point]bool{}
		for i, it := range items {
			if seen[it.Position] {
				t.Fatalf("item %d shares a display position", i)
			}
			seen[it.Position] = true
			if it.POI.Point != (orb.Point{lng, lat}) {
				t.Fatalf("item %d: source coordinates mutated", i)
			}
		}
	})
}
