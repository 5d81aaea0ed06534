package layout

import (
	"math"
	"sort"

	"github.com/playperu/bonuslights/internal/garland"
)

// Curve is a continuous path parameterised by arc length.
type Curve interface {
	Length() float64
	PointAt(s float64) garland.Point
}

// SubpathCurve is a Curve made of disconnected pieces. Tangent samples
// must not cross from one piece into the next.
type SubpathCurve interface {
	Curve
	// Span returns the arc-length range of the piece containing s. A point
	// on a jump belongs to the piece that ends there.
	Span(s float64) (lo, hi float64)
	// PointIn samples s, clamped to the piece containing anchor.
	PointIn(s, anchor float64) garland.Point
}

// Polyline is a Curve made of straight segments. Subpath jumps are stored as
// zero-length segments so they add nothing to the arc length.
type Polyline struct {
	pts []garland.Point
	cum []float64
	// starts holds the index of the first point of every subpath.
	starts []int
}

// NewPolyline builds a single connected polyline through pts.
func NewPolyline(pts ...garland.Point) *Polyline {
	p := &Polyline{}
	for i, pt := range pts {
		if i == 0 {
			p.moveTo(pt)
			continue
		}
		p.lineTo(pt)
	}
	return p
}

func (p *Polyline) moveTo(pt garland.Point) {
	p.starts = append(p.starts, len(p.pts))
	if len(p.pts) == 0 {
		p.pts = append(p.pts, pt)
		p.cum = append(p.cum, 0)
		return
	}
	p.pts = append(p.pts, pt)
	p.cum = append(p.cum, p.cum[len(p.cum)-1])
}

func (p *Polyline) lineTo(pt garland.Point) {
	if len(p.pts) == 0 {
		p.moveTo(pt)
		return
	}
	last := p.pts[len(p.pts)-1]
	d := math.Hypot(pt.X-last.X, pt.Y-last.Y)
	if d == 0 {
		return
	}
	p.pts = append(p.pts, pt)
	p.cum = append(p.cum, p.cum[len(p.cum)-1]+d)
}

func (p *Polyline) current() garland.Point {
	if len(p.pts) == 0 {
		return garland.Point{}
	}
	return p.pts[len(p.pts)-1]
}

func (p *Polyline) Length() float64 {
	if len(p.cum) == 0 {
		return 0
	}
	return p.cum[len(p.cum)-1]
}

// PointAt clamps s into [0, Length] and interpolates inside the segment that
// contains it.
func (p *Polyline) PointAt(s float64) garland.Point {
	if len(p.pts) == 0 {
		return garland.Point{}
	}
	return p.interp(s, 0, len(p.pts)-1)
}

func (p *Polyline) Span(s float64) (lo, hi float64) {
	first, last := p.subpath(s)
	if first < 0 {
		return 0, 0
	}
	return p.cum[first], p.cum[last]
}

func (p *Polyline) PointIn(s, anchor float64) garland.Point {
	first, last := p.subpath(anchor)
	if first < 0 {
		return garland.Point{}
	}
	return p.interp(s, first, last)
}

// subpath returns the point index range of the first subpath whose end is at
// or beyond s.
func (p *Polyline) subpath(s float64) (first, last int) {
	if len(p.pts) == 0 {
		return -1, -1
	}
	for k, start := range p.starts {
		end := len(p.pts) - 1
		if k+1 < len(p.starts) {
			end = p.starts[k+1] - 1
		}
		if s <= p.cum[end] {
			return start, end
		}
	}
	return p.starts[len(p.starts)-1], len(p.pts) - 1
}

func (p *Polyline) interp(s float64, first, last int) garland.Point {
	switch {
	case s <= p.cum[first] || first == last:
		return p.pts[first]
	case s >= p.cum[last]:
		return p.pts[last]
	}

	i := first + sort.SearchFloat64s(p.cum[first:last+1], s)
	seg := p.cum[i] - p.cum[i-1]
	if seg == 0 {
		return p.pts[i]
	}
	f := (s - p.cum[i-1]) / seg
	a, b := p.pts[i-1], p.pts[i]
	return garland.Point{X: a.X + (b.X-a.X)*f, Y: a.Y + (b.Y-a.Y)*f}
}
