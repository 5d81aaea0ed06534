// Package layout distributes markers evenly along a curve, offsets them
// perpendicular to it and maps the result into screen space.
package layout

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f64"

	"github.com/playperu/bonuslights/internal/garland"
)

type Side string

const (
	SideSingle    Side = "single"
	SideAlternate Side = "alternate"
)

func ParseSide(s string) (Side, error) {
	switch sd := Side(s); sd {
	case SideSingle, SideAlternate:
		return sd, nil
	}
	return "", fmt.Errorf("unknown offset side %q", s)
}

type Options struct {
	// Offset is the perpendicular distance from the curve in screen pixels.
	Offset float64
	Side   Side
}

// Compute places n markers along c. Marker i sits at arc-length fraction
// (i+1)/(n+1); its tangent is estimated from two samples delta either side,
// delta = max(1, length*0.002), clamped to the curve ends or, for a
// SubpathCurve, to the ends of the piece the marker sits on.
//
// Tangent, normal and offset are taken after mapping into screen space so the
// offset distance and the angle are right under any affine transform. The
// returned curve position is the offset screen point mapped back through the
// inverse.
//
// Compute reports false, without side effects, when the curve or surface is
// not measurable yet or the arguments are out of range. Callers retry on the
// next layout trigger.
func Compute(c Curve, n int, opts Options, m Mapping) ([]garland.Placement, bool) {
	if c == nil || m == nil || n < 1 || opts.Offset < 0 || !finite(opts.Offset) {
		return nil, false
	}
	length := c.Length()
	if !(length > 0) || !finite(length) {
		return nil, false
	}
	delta := math.Max(1, length*0.002)

	out := make([]garland.Placement, n)
	for i := range out {
		t := garland.ParamFor(i, n)
		s := t * length

		lo, hi := 0.0, length
		sample := c.PointAt
		if sc, ok := c.(SubpathCurve); ok {
			lo, hi = sc.Span(s)
			sample = func(x float64) garland.Point { return sc.PointIn(x, s) }
		}
		p := m.ToScreen(sample(s))
		a := m.ToScreen(sample(math.Max(lo, s-delta)))
		b := m.ToScreen(sample(math.Min(hi, s+delta)))

		tangent := f64.Vec2{b.X - a.X, b.Y - a.Y}
		tl := math.Hypot(tangent[0], tangent[1])
		if tl == 0 || !finite(tl) {
			return nil, false
		}
		tangent[0] /= tl
		tangent[1] /= tl
		normal := f64.Vec2{-tangent[1], tangent[0]}

		d := opts.Offset
		if opts.Side == SideAlternate && i%2 == 1 {
			d = -d
		}
		screen := garland.Point{X: p.X + d*normal[0], Y: p.Y + d*normal[1]}
		angle := math.Atan2(tangent[1], tangent[0]) * 180 / math.Pi

		out[i] = garland.Placement{
			T:          t,
			Screen:     screen,
			Curve:      m.ToCurve(screen),
			Angle:      angle,
			GlyphAngle: -angle,
		}
	}
	return out, true
}

// Engine owns the curve and layout options and caches the last successful
// layout. Every Layout call is a full recompute.
type Engine struct {
	curve    Curve
	opts     Options
	strategy Strategy
	resolved Strategy
	last     []garland.Placement
	valid    bool
}

func NewEngine(c Curve, opts Options, strategy Strategy) *Engine {
	if strategy == "" {
		strategy = StrategyAuto
	}
	return &Engine{curve: c, opts: opts, strategy: strategy}
}

// Layout recomputes all n placements for vp. The mapping strategy is fixed by
// the first measurable viewport and reused afterwards.
func (e *Engine) Layout(n int, vp Viewport) ([]garland.Placement, bool) {
	if !vp.Measurable() {
		return nil, false
	}
	if e.resolved == "" {
		e.resolved = e.strategy.Resolve(vp)
	}
	m, ok := e.resolved.Mapping(vp)
	if !ok {
		return nil, false
	}
	placements, ok := Compute(e.curve, n, e.opts, m)
	if !ok {
		return nil, false
	}
	e.last = placements
	e.valid = true
	return placements, true
}

// Invalidate marks the cached layout stale. It never patches placements; the
// next Layout call recomputes everything.
func (e *Engine) Invalidate() { e.valid = false }

// Last returns the most recent placements and whether they are still current.
func (e *Engine) Last() ([]garland.Placement, bool) {
	return e.last, e.valid
}

// Strategy returns the strategy in use, or the configured one before the
// first measurable viewport.
func (e *Engine) Strategy() Strategy {
	if e.resolved != "" {
		return e.resolved
	}
	return e.strategy
}
