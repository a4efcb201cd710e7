package engine

import (
	"log/slog"
	"time"

	"github.com/geomarkers/poicluster/cluster"
)

type settings struct {
	log     *slog.Logger
	cfg     cluster.Config
	project cluster.Projector
	origins []string

	ttl             time.Duration
	capacity        int
	cleanupInterval time.Duration
	debounceWindow  time.Duration
	caps            TierCaps
}

type Option func(*settings)

func defaultSettings() settings {
	return settings{
		log:             slog.Default(),
		cfg:             cluster.DefaultConfig(),
		ttl:             5 * time.Minute,
		cleanupInterval: time.Minute,
		debounceWindow:  DefaultDebounceWindow,
		caps:            DefaultTierCaps(),
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *settings) { s.log = log }
}

func WithClusterConfig(cfg cluster.Config) Option {
	return func(s *settings) { s.cfg = cfg }
}

// WithProjector replaces the web-mercator default, for mapping surfaces
// with their own pixel projection.
func WithProjector(project cluster.Projector) Option {
	return func(s *settings) { s.project = project }
}

// WithPriorityOrigins sets the origin tags whose POIs are never clustered.
func WithPriorityOrigins(origins ...string) Option {
	return func(s *settings) { s.origins = origins }
}

// WithLabelZoom sets the zoom at or above which priority markers carry a
// show-label hint.
func WithLabelZoom(zoom float64) Option {
	return func(s *settings) { s.cfg.LabelZoom = zoom }
}

// WithTTL sets how long computed marker sets stay cached.
func WithTTL(ttl time.Duration) Option {
	return func(s *settings) { s.ttl = ttl }
}

func WithCacheCapacity(capacity int) Option {
	return func(s *settings) { s.capacity = capacity }
}

// WithCleanupInterval sets how often the cache janitor sweeps expired
// entries once Start is called.
func WithCleanupInterval(interval time.Duration) Option {
	return func(s *settings) { s.cleanupInterval = interval }
}

// WithDebounce sets the zoom settle window. Zero disables debouncing:
// every observed zoom applies immediately.
func WithDebounce(window time.Duration) Option {
	return func(s *settings) { s.debounceWindow = window }
}

func WithTierCaps(caps TierCaps) Option {
	return func(s *settings) { s.caps = caps }
}
