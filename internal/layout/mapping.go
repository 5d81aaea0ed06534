package layout

import (
	"fmt"
	"math"

	"golang.org/x/image/math/f64"

	"github.com/playperu/bonuslights/internal/garland"
)

type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Viewport is the rendering surface geometry reported by the renderer.
// ViewBox is the curve's logical coordinate system. Rendered, Container and
// CTM are all in page coordinates: Rendered is where the surface sits,
// Container is the origin marker positions are relative to, and CTM, when
// present, is the surface's screen transform in SVG order [a b c d e f].
type Viewport struct {
	ViewBox   Rect          `json:"viewBox"`
	Rendered  Rect          `json:"rendered"`
	Container garland.Point `json:"container"`
	CTM       *[6]float64   `json:"ctm,omitempty"`
}

// Measurable reports whether the surface has been laid out yet.
func (v Viewport) Measurable() bool {
	return v.Rendered.W > 0 && v.Rendered.H > 0 && finite(v.Rendered.W) && finite(v.Rendered.H)
}

// Mapping converts between curve space and container-relative screen space.
type Mapping interface {
	ToScreen(p garland.Point) garland.Point
	ToCurve(p garland.Point) garland.Point
}

type Strategy string

const (
	StrategyAuto   Strategy = "auto"
	StrategyMatrix Strategy = "matrix"
	StrategyBox    Strategy = "box"
)

func ParseStrategy(s string) (Strategy, error) {
	switch st := Strategy(s); st {
	case StrategyAuto, StrategyMatrix, StrategyBox:
		return st, nil
	}
	return "", fmt.Errorf("unknown mapping strategy %q", s)
}

// Resolve picks the concrete strategy for a platform: auto prefers the
// transform matrix whenever the renderer can supply one.
func (s Strategy) Resolve(vp Viewport) Strategy {
	if s != StrategyAuto {
		return s
	}
	if vp.CTM != nil {
		return StrategyMatrix
	}
	return StrategyBox
}

// Mapping builds the mapping for vp. It reports false when the surface is not
// measurable or the transform is singular. A matrix strategy falls back to
// box scaling for a report that carries no matrix.
func (s Strategy) Mapping(vp Viewport) (Mapping, bool) {
	if !vp.Measurable() {
		return nil, false
	}
	var (
		a  Affine
		ok bool
	)
	if s.Resolve(vp) == StrategyMatrix && vp.CTM != nil {
		a, ok = NewMatrix(*vp.CTM, vp.Container)
	} else {
		a, ok = NewBoxScale(vp.ViewBox, vp.Rendered, vp.Container)
	}
	if !ok {
		return nil, false
	}
	return a, true
}

// Affine is an invertible affine mapping with its inverse precomputed.
type Affine struct {
	m   f64.Aff3
	inv f64.Aff3
}

func newAffine(m f64.Aff3) (Affine, bool) {
	for _, v := range m {
		if !finite(v) {
			return Affine{}, false
		}
	}
	det := m[0]*m[4] - m[1]*m[3]
	if det == 0 || !finite(det) {
		return Affine{}, false
	}
	inv := f64.Aff3{
		m[4] / det, -m[1] / det, (m[1]*m[5] - m[2]*m[4]) / det,
		-m[3] / det, m[0] / det, (m[2]*m[3] - m[0]*m[5]) / det,
	}
	return Affine{m: m, inv: inv}, true
}

// NewBoxScale maps curve space onto the rendered box by the ratio of the
// rendered size to the view box size. It is exact only for axis-aligned
// scaling without rotation or skew.
func NewBoxScale(viewBox, rendered Rect, container garland.Point) (Affine, bool) {
	vbW, vbH := viewBox.W, viewBox.H
	if vbW <= 0 {
		vbW = rendered.W
	}
	if vbH <= 0 {
		vbH = rendered.H
	}
	if vbW <= 0 || vbH <= 0 {
		return Affine{}, false
	}
	sx := rendered.W / vbW
	sy := rendered.H / vbH
	return newAffine(f64.Aff3{
		sx, 0, rendered.X - container.X - viewBox.X*sx,
		0, sy, rendered.Y - container.Y - viewBox.Y*sy,
	})
}

// NewMatrix maps through the surface's screen transform, given in SVG
// [a b c d e f] order, then shifts into container coordinates.
func NewMatrix(ctm [6]float64, container garland.Point) (Affine, bool) {
	a, b, c, d, e, f := ctm[0], ctm[1], ctm[2], ctm[3], ctm[4], ctm[5]
	return newAffine(f64.Aff3{
		a, c, e - container.X,
		b, d, f - container.Y,
	})
}

// Identity maps curve space straight onto screen space.
func Identity() Affine {
	a, _ := newAffine(f64.Aff3{1, 0, 0, 0, 1, 0})
	return a
}

func (a Affine) ToScreen(p garland.Point) garland.Point { return apply(a.m, p) }

func (a Affine) ToCurve(p garland.Point) garland.Point { return apply(a.inv, p) }

func apply(m f64.Aff3, p garland.Point) garland.Point {
	return garland.Point{
		X: m[0]*p.X + m[1]*p.Y + m[2],
		Y: m[3]*p.X + m[4]*p.Y + m[5],
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
