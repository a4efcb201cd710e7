// Package engine ties the clustering pipeline to a result cache and the
// map-facing input state: the POI set, the viewport, the zoom level and
// the clustering toggle. Renders are atomic reads over that state; input
// changes never leave a half-updated result visible.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"github.com/sourcegraph/conc/pool"

	"github.com/geomarkers/poicluster/cluster"
	"github.com/geomarkers/poicluster/memcache"
	"github.com/geomarkers/poicluster/poimodel"
)

type Engine struct {
	log       *slog.Logger
	clusterer *cluster.Clusterer
	cache     *memcache.Cache[[]poimodel.RenderItem]
	ttl       time.Duration
	cleanup   time.Duration
	caps      TierCaps

	debounce *zoomDebouncer

	mu         sync.RWMutex
	pois       []poimodel.POI
	zoom       float64
	bounds     *orb.Bound
	clustering bool
	onSettle   func(zoom float64)
}

// New builds an engine around the given POI set. The set may be empty and
// replaced later with SetPOIs; every POI must carry a valid position.
func New(pois []poimodel.POI, opts ...Option) (*Engine, error) {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}

	e := &Engine{
		log:        s.log,
		clusterer:  cluster.New(s.cfg, s.project, s.origins...),
		cache:      memcache.New[[]poimodel.RenderItem](s.capacity, memcache.WithLogger[[]poimodel.RenderItem](s.log)),
		ttl:        s.ttl,
		cleanup:    s.cleanupInterval,
		caps:       s.caps,
		zoom:       s.cfg.BaseZoom,
		clustering: true,
	}
	e.debounce = newZoomDebouncer(s.debounceWindow, e.applyZoom)
	if s.debounceWindow <= 0 {
		e.debounce = nil
	}

	if err := e.SetPOIs(pois); err != nil {
		return nil, err
	}
	return e, nil
}

// Start launches the cache janitor. Optional; without it expired entries
// are still dropped lazily on access.
func (e *Engine) Start() {
	e.cache.StartCleanup(e.cleanup)
}

// Close stops the janitor and cancels any pending zoom settle.
func (e *Engine) Close() {
	if e.debounce != nil {
		e.debounce.Close()
	}
	e.cache.Stop()
}

// SetPOIs replaces the dataset. Each POI is precondition-checked; on
// failure the previous set stays in place.
func (e *Engine) SetPOIs(pois []poimodel.POI) error {
	for i := range pois {
		if err := pois[i].Validate(); err != nil {
			return fmt.Errorf("poi %d: %w", i, err)
		}
	}

	e.mu.Lock()
	e.pois = pois
	e.mu.Unlock()
	return nil
}

// SetBounds replaces the viewport. Nil means unbounded.
func (e *Engine) SetBounds(bounds *orb.Bound) {
	e.mu.Lock()
	e.bounds = bounds
	e.mu.Unlock()
}

// SetZoom records a zoom change. With debouncing enabled the value takes
// effect only once the zoom holds still for the settle window; a burst of
// calls applies the last value exactly once.
func (e *Engine) SetZoom(zoom float64) {
	if e.debounce == nil {
		e.applyZoom(zoom)
		return
	}
	e.debounce.Observe(zoom)
}

func (e *Engine) applyZoom(zoom float64) {
	e.mu.Lock()
	e.zoom = zoom
	notify := e.onSettle
	e.mu.Unlock()

	if notify != nil {
		notify(zoom)
	}
}

// Zoom returns the current effective zoom, after any debounced changes
// that have settled.
func (e *Engine) Zoom() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.zoom
}

// SetClusteringEnabled flips the toggle and drops every cached clustering
// result, so the next render recomputes under the new mode.
func (e *Engine) SetClusteringEnabled(enabled bool) {
	e.mu.Lock()
	changed := e.clustering != enabled
	e.clustering = enabled
	e.mu.Unlock()

	if changed {
		n := e.cache.Clear("cluster:*")
		e.log.Debug("clustering toggled", "enabled", enabled, "invalidated", n)
	}
}

// Subscribe registers the callback invoked with the final zoom after a
// debounced zoom change settles. One subscriber; a later call replaces an
// earlier one.
func (e *Engine) Subscribe(fn func(zoom float64)) {
	e.mu.Lock()
	e.onSettle = fn
	e.mu.Unlock()
}

// Render computes (or serves from cache) the marker set for the current
// input state.
func (e *Engine) Render(ctx context.Context) ([]poimodel.RenderItem, error) {
	e.mu.RLock()
	pois, zoom, bounds, clustering := e.pois, e.zoom, e.bounds, e.clustering
	e.mu.RUnlock()
	return e.render(ctx, pois, zoom, bounds, clustering)
}

// RenderAt renders for an explicit zoom and viewport without touching the
// engine's current state; the dataset and clustering toggle still apply.
func (e *Engine) RenderAt(ctx context.Context, zoom float64, bounds *orb.Bound) ([]poimodel.RenderItem, error) {
	e.mu.RLock()
	pois, clustering := e.pois, e.clustering
	e.mu.RUnlock()
	return e.render(ctx, pois, zoom, bounds, clustering)
}

func (e *Engine) render(ctx context.Context, pois []poimodel.POI, zoom float64, bounds *orb.Bound, clustering bool) ([]poimodel.RenderItem, error) {
	key := "cluster:" + cluster.Fingerprint(pois, zoom, bounds, clustering)

	items, err := e.cache.GetOrCompute(ctx, key, e.ttl, func(context.Context) ([]poimodel.RenderItem, error) {
		start := time.Now()
		out, err := e.clusterer.Compute(pois, zoom, clustering)
		if err != nil {
			return nil, fmt.Errorf("compute markers: %w", err)
		}
		e.log.Debug("recomputed markers",
			"zoom", zoom, "pois", len(pois), "items", len(out), "took", time.Since(start))
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	return windowItems(items, zoom, bounds, e.caps, e.isPriorityItem), nil
}

func (e *Engine) isPriorityItem(it poimodel.RenderItem) bool {
	return it.Kind == poimodel.KindPOI && e.clusterer.IsPriority(*it.POI)
}

// Warm precomputes the cache for a set of zoom levels concurrently. The
// first error cancels the rest.
func (e *Engine) Warm(ctx context.Context, zooms []float64) error {
	p := pool.New().WithContext(ctx).WithCancelOnError()
	for _, zoom := range zooms {
		p.Go(func(ctx context.Context) error {
			_, err := e.RenderAt(ctx, zoom, nil)
			return err
		})
	}
	return p.Wait()
}

// CacheStats snapshots the result-cache counters.
func (e *Engine) CacheStats() memcache.Stats {
	return e.cache.Stats()
}
