package engine_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/fogleman/poissondisc"
	"github.com/paulmach/orb"

	"github.com/geomarkers/poicluster/cluster"
	"github.com/geomarkers/poicluster/engine"
	"github.com/geomarkers/poicluster/poimodel"
)

// generatePOIs lays out a realistic dataset: points with a minimum
// spacing inside a small city-sized bbox, every tenth one editorially
// recommended.
func generatePOIs(t testing.TB) []poimodel.POI {
	t.Helper()

	rng := rand.New(rand.NewSource(42))
	points := poissondisc.Sample(138.00, 38.00, 138.02, 38.02, 0.0025, 16, rng)
	if len(points) < 20 {
		t.Fatalf("sampler produced only %d points", len(points))
	}

	pois := make([]poimodel.POI, 0, len(points))
	for i, p := range points {
		poi := poimodel.POI{
			ID:    fmt.Sprintf("poi-%03d", i),
			Name:  fmt.Sprintf("spot %d", i),
			Genre: "cafe",
			Point: orb.Point{p.X, p.Y},
		}
		if i%10 == 0 {
			poi.Origin = cluster.DefaultPriorityOrigin
		}
		pois = append(pois, poi)
	}
	return pois
}

func newTestEngine(t testing.TB, pois []poimodel.POI) *engine.Engine {
	t.Helper()
	e, err := engine.New(pois,
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		engine.WithDebounce(0),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(e.Close)
	return e
}

func TestEndToEndCoverageAcrossZooms(t *testing.T) {
	pois := generatePOIs(t)
	e := newTestEngine(t, pois)
	ctx := context.Background()

	for _, zoom := range []float64{5, 10, 14, 18} {
		items, err := e.RenderAt(ctx, zoom, nil)
		if err != nil {
			t.Fatalf("zoom %v: %v", zoom, err)
		}

		seen := map[string]int{}
		for _, it := range items {
			switch it.Kind {
			case poimodel.KindPOI:
				seen[it.POI.ID]++
			case poimodel.KindCluster:
				if it.Cluster.Size() < 2 {
					t.Fatalf("zoom %v: degenerate cluster of %d", zoom, it.Cluster.Size())
				}
				for _, m := range it.Cluster.Members {
					seen[m.ID]++
				}
			}
		}

		for _, p := range pois {
			if seen[p.ID] != 1 {
				t.Fatalf("zoom %v: poi %s covered %d times", zoom, p.ID, seen[p.ID])
			}
		}

		// Priority POIs never end up inside clusters.
		for _, it := range items {
			if it.Kind != poimodel.KindCluster {
				continue
			}
			for _, m := range it.Cluster.Members {
				if m.Origin == cluster.DefaultPriorityOrigin {
					t.Fatalf("zoom %v: recommended poi %s clustered", zoom, m.ID)
				}
			}
		}
	}
}

func TestEndToEndDeterministicAcrossEngines(t *testing.T) {
	pois := generatePOIs(t)
	ctx := context.Background()

	a := newTestEngine(t, pois)
	b := newTestEngine(t, pois)

	for _, zoom := range []float64{8, 12, 16} {
		itemsA, err := a.RenderAt(ctx, zoom, nil)
		if err != nil {
			t.Fatal(err)
		}
		itemsB, err := b.RenderAt(ctx, zoom, nil)
		if err != nil {
			t.Fatal(err)
		}

		if len(itemsA) != len(itemsB) {
			t.Fatalf("zoom %v: %d vs %d items", zoom, len(itemsA), len(itemsB))
		}
		for i := range itemsA {
			if itemsA[i].ID() != itemsB[i].ID() || itemsA[i].Position != itemsB[i].Position {
				t.Fatalf("zoom %v: item %d differs (%s vs %s)", zoom, i, itemsA[i].ID(), itemsB[i].ID())
			}
		}
	}
}

func TestEndToEndViewportWindow(t *testing.T) {
	pois := generatePOIs(t)
	e := newTestEngine(t, pois)

	// Viewport over one quadrant of the dataset.
	bounds := &orb.Bound{
		Min: orb.Point{138.00, 38.00},
		Max: orb.Point{138.01, 38.01},
	}

	items, err := e.RenderAt(context.Background(), 16, bounds)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) == 0 {
		t.Fatal("empty window")
	}
	caps := engine.DefaultTierCaps()
	if len(items) > caps.High+len(pois)/10+1 {
		t.Fatalf("window returned %d items, above the high-tier budget", len(items))
	}
}

func BenchmarkRenderColdCache(b *testing.B) {
	pois := generatePOIs(b)
	clusterer := cluster.New(cluster.DefaultConfig(), nil)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := clusterer.Compute(pois, float64(3+i%16), true); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkRenderWarmCache(b *testing.B) {
	pois := generatePOIs(b)
	e := newTestEngine(b, pois)
	ctx := context.Background()

	if _, err := e.RenderAt(ctx, 12, nil); err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.RenderAt(ctx, 12, nil); err != nil {
			b.Fatal(err)
		}
	}
}
