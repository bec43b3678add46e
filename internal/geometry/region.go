// Package geometry maps between a page's native coordinate space and the
// resolution-independent [0,1]x[0,1] space templates are persisted in.
package geometry

import (
	"fmt"
	"math"
)

// Precision is the fixed denominator for stored coordinates. Regions are
// persisted as integers scaled by Precision so save/load cycles cannot
// accumulate floating-point drift.
const Precision = 1000

// Rect is an axis-aligned rectangle in a page's native units (points or
// pixels, depending on the producer).
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// Width returns the rectangle's horizontal extent.
func (r Rect) Width() float64 { return r.X1 - r.X0 }

// Height returns the rectangle's vertical extent.
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Region is a page-size-independent rectangle. Coordinates are stored as
// integers in [0, Precision] relative to one specific page of the reference
// document; X0 < X1 and Y0 < Y1 always hold.
type Region struct {
	Page int `json:"page"`
	X0   int `json:"x0"`
	Y0   int `json:"y0"`
	X1   int `json:"x1"`
	Y1   int `json:"y1"`
}

// Normalize converts a native rectangle on a page of the given dimensions
// into a Region. Coordinates are clamped to the page; a degenerate
// rectangle or non-positive page dimensions are rejected.
func Normalize(r Rect, pageW, pageH float64, page int) (Region, error) {
	if pageW <= 0 || pageH <= 0 {
		return Region{}, fmt.Errorf("page dimensions must be positive, got %gx%g", pageW, pageH)
	}
	if page < 0 {
		return Region{}, fmt.Errorf("page index must be non-negative, got %d", page)
	}
	reg := Region{
		Page: page,
		X0:   clampUnit(r.X0 / pageW),
		Y0:   clampUnit(r.Y0 / pageH),
		X1:   clampUnit(r.X1 / pageW),
		Y1:   clampUnit(r.Y1 / pageH),
	}
	if reg.X0 >= reg.X1 || reg.Y0 >= reg.Y1 {
		return Region{}, fmt.Errorf("degenerate region %gx%g on %gx%g page", r.Width(), r.Height(), pageW, pageH)
	}
	return reg, nil
}

// Denormalize projects the region onto a target page of the given
// dimensions. The target need not be the page the region was created on;
// replaying a template across documents of differing size or DPI is exactly
// this call with the target document's page dimensions. Scaling is
// proportional per axis; aspect-ratio differences are not corrected.
func (g Region) Denormalize(pageW, pageH float64) Rect {
	return Rect{
		X0: float64(g.X0) / Precision * pageW,
		Y0: float64(g.Y0) / Precision * pageH,
		X1: float64(g.X1) / Precision * pageW,
		Y1: float64(g.Y1) / Precision * pageH,
	}
}

// Valid reports whether the region holds its invariants.
func (g Region) Valid() bool {
	return g.Page >= 0 &&
		g.X0 >= 0 && g.Y0 >= 0 &&
		g.X1 <= Precision && g.Y1 <= Precision &&
		g.X0 < g.X1 && g.Y0 < g.Y1
}

// Offset is a horizontal position in the same scaled units as Region,
// used for column boundaries inside a table region.
type Offset = int

// DenormalizeOffset projects a stored horizontal offset onto a native width.
func DenormalizeOffset(off Offset, width float64) float64 {
	return float64(off) / Precision * width
}

func clampUnit(v float64) int {
	s := math.Round(v * Precision)
	if s < 0 {
		return 0
	}
	if s > Precision {
		return Precision
	}
	return int(s)
}
