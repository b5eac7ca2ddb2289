package geofence

import "github.com/zKi3v/ECOALERTA-FTD/internal/core/domain"

// Source tells which geometry answered a containment query.
type Source string

const (
	SourcePolygon  Source = "polygon"
	SourceFallback Source = "fallback_bbox"
)

// Result is the outcome of one containment query.
type Result struct {
	Inside  bool   `json:"inside"`
	// Precise is false when the answer came from the coarse fallback box.
	Precise bool   `json:"precise"`
	Source  Source `json:"source"`
}

// Evaluator answers containment against a boundary when one is loaded and
// against a static fallback box otherwise.
type Evaluator struct {
	fallback domain.Bounds
}

// NewEvaluator creates an Evaluator with the given fallback extent.
func NewEvaluator(fallback domain.Bounds) *Evaluator {
	return &Evaluator{fallback: fallback}
}

// Fallback returns the coarse district extent.
func (e *Evaluator) Fallback() domain.Bounds {
	return e.fallback
}

// Evaluate checks p against b, or against the fallback box when b is nil or
// has no polygons.
func (e *Evaluator) Evaluate(b *domain.Boundary, p domain.GeoPoint) Result {
	if b == nil || len(b.Polygons) == 0 {
		return Result{Inside: e.fallback.Contains(p), Precise: false, Source: SourceFallback}
	}
	return Result{Inside: Contains(b, p), Precise: true, Source: SourcePolygon}
}
