package cluster

import (
	"math"

	"github.com/paulmach/orb"
)

// Projector maps a geographic position to pixel coordinates at a zoom
// level. In production the mapping surface supplies its own; WebMercator
// matches the projection used by the common tiled map providers.
type Projector func(p orb.Point, zoom float64) (x, y float64)

// WebMercator returns a spherical-mercator projector for the given tile
// size.
func WebMercator(tileSize float64) Projector {
	return func(p orb.Point, zoom float64) (float64, float64) {
		scale := tileSize * math.Exp2(zoom)
		x := (p.X() + 180) / 360 * scale

		sin := math.Sin(p.Y() * math.Pi / 180)
		y := (0.5 - 0.25*math.Log((1+sin)/(1-sin))/math.Pi) * scale
		return x, y
	}
}

func pixelDistance(project Projector, a, b orb.Point, zoom float64) float64 {
	ax, ay := project(a, zoom)
	bx, by := project(b, zoom)
	return math.Hypot(ax-bx, ay-by)
}
