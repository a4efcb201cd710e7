// Package cluster groups nearby POIs into cluster representatives for a
// map at a given zoom level. The pass is synchronous and deterministic:
// identical input always produces identical output, including generated
// cluster ids.
package cluster

import "math"

// Config holds the geometric tuning of one clustering pass. Distances are
// in degrees, pixel values in CSS pixels of the mapping surface.
type Config struct {
	// BaseZoom is the zoom level at which BaseDistance applies; the
	// merge distance halves with every zoom level above it.
	BaseZoom     float64
	BaseDistance float64
	// MinDistance floors the merge distance so very high zoom cannot
	// shrink grid cells without bound.
	MinDistance float64

	// PixelThreshold is the projected distance below which two markers
	// are considered visually overlapping.
	PixelThreshold float64

	// CoincidenceEpsilon is the degree distance below which two display
	// positions count as the same point (a data-entry artifact, not a
	// real cluster); OffsetRadius is how far coincident markers are
	// fanned out.
	CoincidenceEpsilon float64
	OffsetRadius       float64

	// TileSize is the pixel extent of one map tile at zoom 0.
	TileSize float64

	// LabelZoom is the zoom at or above which always-individual markers
	// carry a show-label hint. Zero means the default.
	LabelZoom float64
}

func DefaultConfig() Config {
	return Config{
		BaseZoom:           10,
		BaseDistance:       0.002,
		MinDistance:        1e-5,
		PixelThreshold:     10,
		CoincidenceEpsilon: 5e-6,
		OffsetRadius:       2.5e-5,
		TileSize:           256,
	}
}

// DistanceForZoom returns the merge distance in degrees for a zoom level,
// clamped to MinDistance.
func (c Config) DistanceForZoom(zoom float64) float64 {
	d := c.BaseDistance / math.Exp2(zoom-c.BaseZoom)
	if d < c.MinDistance {
		return c.MinDistance
	}
	return d
}

// pixelEpsilon converts PixelThreshold to degrees of longitude at a zoom
// level, used to size the candidate grid of the pixel-overlap pass.
func (c Config) pixelEpsilon(zoom float64) float64 {
	return c.PixelThreshold * 360 / (c.TileSize * math.Exp2(zoom))
}
