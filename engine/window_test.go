package engine

import (
	"fmt"
	"testing"

	"github.com/paulmach/orb"

	"github.com/geomarkers/poicluster/poimodel"
)

func windowFixture(n int, priorityEvery int) []poimodel.RenderItem {
	items := make([]poimodel.RenderItem, 0, n)
	for i := 0; i < n; i++ {
		p := poimodel.POI{
			ID:    fmt.Sprintf("p%03d", i),
			Point: orb.Point{138.0 + float64(i)*0.01, 38.0},
		}
		if priorityEvery > 0 && i%priorityEvery == 0 {
			p.Origin = "recommended"
		}
		items = append(items, poimodel.IndividualItem(&p))
	}
	return items
}

func isRecommended(it poimodel.RenderItem) bool {
	return it.Kind == poimodel.KindPOI && it.POI.Origin == "recommended"
}

func never(poimodel.RenderItem) bool { return false }

func TestTierCapFor(t *testing.T) {
	caps := DefaultTierCaps()
	cases := []struct {
		zoom float64
		want int
	}{
		{3, 80}, {8.9, 80}, {9, 160}, {13.9, 160}, {14, 320}, {19, 320},
	}
	for _, tc := range cases {
		if got := caps.capFor(tc.zoom); got != tc.want {
			t.Errorf("capFor(%v) = %d, want %d", tc.zoom, got, tc.want)
		}
	}
}

func TestWindowCapsLowTier(t *testing.T) {
	items := windowFixture(200, 0)
	out := windowItems(items, 5, nil, DefaultTierCaps(), never)
	if len(out) != 80 {
		t.Fatalf("low tier returned %d items, want 80", len(out))
	}
	// Input order fallback without bounds.
	for i := range out {
		if out[i].POI.ID != items[i].POI.ID {
			t.Fatalf("order broken at %d: %s", i, out[i].POI.ID)
		}
	}
}

func TestWindowPriorityUncapped(t *testing.T) {
	// 100 items, every one priority: the cap does not apply.
	items := windowFixture(100, 1)
	out := windowItems(items, 5, nil, DefaultTierCaps(), isRecommended)
	if len(out) != 100 {
		t.Fatalf("priority items capped: %d of 100", len(out))
	}
}

func TestWindowPrefersViewport(t *testing.T) {
	items := windowFixture(200, 0)
	// Viewport covering only the tail half of the strip.
	bounds := &orb.Bound{
		Min: orb.Point{138.0 + 100*0.01, 37.0},
		Max: orb.Point{138.0 + 200*0.01, 39.0},
	}

	out := windowItems(items, 5, bounds, DefaultTierCaps(), never)
	if len(out) != 80 {
		t.Fatalf("got %d items, want 80", len(out))
	}
	for _, it := range out {
		if !bounds.Contains(it.Position) {
			t.Fatalf("out-of-viewport item %s chosen while in-view items remained", it.POI.ID)
		}
	}
}

func TestWindowBackfillsOutOfViewport(t *testing.T) {
	items := windowFixture(60, 0)
	// Viewport holding only the first 10 items.
	bounds := &orb.Bound{
		Min: orb.Point{137.9, 37.0},
		Max: orb.Point{138.0 + 9*0.01, 39.0},
	}

	out := windowItems(items, 5, bounds, DefaultTierCaps(), never)
	if len(out) != 60 {
		t.Fatalf("got %d items, want all 60 under the cap", len(out))
	}
	// In-view items come first.
	for i := 0; i < 10; i++ {
		if !bounds.Contains(out[i].Position) {
			t.Fatalf("item %d (%s) should be in-viewport", i, out[i].POI.ID)
		}
	}
}

func TestWindowPriorityCountsAgainstBudget(t *testing.T) {
	// 10 priority + 200 plain at low tier: 80 total, 10 priority plus 70
	// plain.
	items := windowFixture(210, 21)
	out := windowItems(items, 5, nil, DefaultTierCaps(), isRecommended)
	if len(out) != 80 {
		t.Fatalf("got %d items, want 80", len(out))
	}
	priority := 0
	for _, it := range out {
		if isRecommended(it) {
			priority++
		}
	}
	if priority != 10 {
		t.Fatalf("got %d priority items, want 10", priority)
	}
}
