package poimodel

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ErrInvalidPOI is returned when a POI with a missing or non-finite
// position reaches a consumer that requires a valid one.
var ErrInvalidPOI = errors.New("poimodel: invalid poi position")

// POI is a single point of interest. Values are immutable once
// constructed; the clustering engine only ever reads them.
type POI struct {
	ID     string
	Name   string
	Genre  string
	Origin string
	Point  orb.Point // X is longitude, Y is latitude

	// Details carries free-form fields through the pipeline unchanged.
	Details map[string]string
}

func (p POI) Lat() float64 { return p.Point.Y() }

func (p POI) Lng() float64 { return p.Point.X() }

// Validate checks the position precondition. Violations are surfaced as
// errors instead of silently skipping the record, so upstream data-quality
// bugs show up early.
func (p POI) Validate() error {
	lat, lng := p.Lat(), p.Lng()
	if math.IsNaN(lat) || math.IsInf(lat, 0) || math.IsNaN(lng) || math.IsInf(lng, 0) {
		return fmt.Errorf("%w: poi %q has a non-finite position", ErrInvalidPOI, p.ID)
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return fmt.Errorf("%w: poi %q position out of range (%v, %v)", ErrInvalidPOI, p.ID, lat, lng)
	}
	return nil
}
