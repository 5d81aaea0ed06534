package layout

import (
	"math"
	"testing"

	"github.com/playperu/bonuslights/internal/garland"
)

const eps = 1e-9

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func straight() *Polyline {
	return NewPolyline(garland.Point{X: 0, Y: 0}, garland.Point{X: 100, Y: 0})
}

func sag(t *testing.T) *Polyline {
	t.Helper()
	c, err := ParsePath("M10 30 C 150 150, 450 150, 590 30")
	if err != nil {
		t.Fatalf("parsing path: %v", err)
	}
	return c
}

func TestParamForEvenSpacing(t *testing.T) {
	for _, n := range []int{1, 2, 3, 9, 10} {
		prev := 0.0
		for i := 0; i < n; i++ {
			p := garland.ParamFor(i, n)
			if p <= 0 || p >= 1 {
				t.Fatalf("n=%d i=%d: t=%v outside (0,1)", n, i, p)
			}
			if p <= prev {
				t.Fatalf("n=%d i=%d: t=%v not increasing after %v", n, i, p, prev)
			}
			prev = p
		}
	}
}

func TestComputeStraightLine(t *testing.T) {
	got, ok := Compute(straight(), 4, Options{}, Identity())
	if !ok {
		t.Fatal("expected layout")
	}
	want := []float64{20, 40, 60, 80}
	for i, p := range got {
		if !approx(p.Screen.X, want[i], eps) || !approx(p.Screen.Y, 0, eps) {
			t.Errorf("marker %d at %+v, want (%v, 0)", i, p.Screen, want[i])
		}
		if !approx(p.Angle, 0, eps) {
			t.Errorf("marker %d angle = %v, want 0", i, p.Angle)
		}
	}
}

func TestComputeIdempotent(t *testing.T) {
	c := sag(t)
	ctm := [6]float64{1.5, 0.2, -0.3, 1.1, 40, 12}
	vp := Viewport{
		ViewBox:  Rect{W: 600, H: 180},
		Rendered: Rect{X: 40, Y: 12, W: 900, H: 270},
		CTM:      &ctm,
	}
	e := NewEngine(c, Options{Offset: 20, Side: SideAlternate}, StrategyAuto)

	first, ok := e.Layout(9, vp)
	if !ok {
		t.Fatal("expected layout")
	}
	second, ok := e.Layout(9, vp)
	if !ok {
		t.Fatal("expected layout on second pass")
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("marker %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestComputeOffsetPerpendicular(t *testing.T) {
	c := sag(t)
	ctm := [6]float64{0.9, 0.4, -0.5, 1.3, 15, -8}
	matrix, ok := NewMatrix(ctm, garland.Point{X: 5, Y: 5})
	if !ok {
		t.Fatal("matrix not invertible")
	}
	box, ok := NewBoxScale(Rect{W: 600, H: 180}, Rect{X: 10, Y: 20, W: 300, H: 120}, garland.Point{})
	if !ok {
		t.Fatal("box scale not ready")
	}

	tests := []struct {
		name string
		m    Mapping
		side Side
	}{
		{"identity single", Identity(), SideSingle},
		{"box alternate", box, SideAlternate},
		{"matrix single", matrix, SideSingle},
		{"matrix alternate", matrix, SideAlternate},
	}

	const offset = 20.0
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := 9
			got, ok := Compute(c, n, Options{Offset: offset, Side: tt.side}, tt.m)
			if !ok {
				t.Fatal("expected layout")
			}
			length := c.Length()
			delta := math.Max(1, length*0.002)
			for i, p := range got {
				s := garland.ParamFor(i, n) * length
				base := tt.m.ToScreen(c.PointAt(s))
				a := tt.m.ToScreen(c.PointAt(math.Max(0, s-delta)))
				b := tt.m.ToScreen(c.PointAt(math.Min(length, s+delta)))

				ox, oy := p.Screen.X-base.X, p.Screen.Y-base.Y
				if d := math.Hypot(ox, oy); !approx(d, offset, 1e-6) {
					t.Errorf("marker %d offset distance = %v, want %v", i, d, offset)
				}
				tx, ty := b.X-a.X, b.Y-a.Y
				tl := math.Hypot(tx, ty)
				if dot := (ox*tx + oy*ty) / tl; !approx(dot, 0, 1e-6) {
					t.Errorf("marker %d offset not perpendicular, dot = %v", i, dot)
				}
				if !approx(p.GlyphAngle, -p.Angle, eps) {
					t.Errorf("marker %d glyph angle %v does not counter-rotate %v", i, p.GlyphAngle, p.Angle)
				}
			}
		})
	}
}

func TestComputeAlternateSides(t *testing.T) {
	got, ok := Compute(straight(), 4, Options{Offset: 10, Side: SideAlternate}, Identity())
	if !ok {
		t.Fatal("expected layout")
	}
	for i, p := range got {
		want := 10.0
		if i%2 == 1 {
			want = -10
		}
		if !approx(p.Screen.Y, want, eps) {
			t.Errorf("marker %d y = %v, want %v", i, p.Screen.Y, want)
		}
	}
}

func TestComputeCurveRoundTrip(t *testing.T) {
	ctm := [6]float64{0.7, -0.7, 0.7, 0.7, 100, 50}
	m, ok := NewMatrix(ctm, garland.Point{X: 30, Y: 30})
	if !ok {
		t.Fatal("matrix not invertible")
	}
	got, ok := Compute(sag(t), 5, Options{Offset: 12}, m)
	if !ok {
		t.Fatal("expected layout")
	}
	for i, p := range got {
		back := m.ToScreen(p.Curve)
		if !approx(back.X, p.Screen.X, 1e-6) || !approx(back.Y, p.Screen.Y, 1e-6) {
			t.Errorf("marker %d curve position does not map back: %+v vs %+v", i, back, p.Screen)
		}
	}
}

func TestComputeNotReady(t *testing.T) {
	tests := []struct {
		name string
		c    Curve
		n    int
		opts Options
		m    Mapping
	}{
		{"nil curve", nil, 3, Options{}, Identity()},
		{"nil mapping", straight(), 3, Options{}, nil},
		{"zero markers", straight(), 0, Options{}, Identity()},
		{"negative offset", straight(), 3, Options{Offset: -1}, Identity()},
		{"empty curve", NewPolyline(), 3, Options{}, Identity()},
		{"single point", NewPolyline(garland.Point{X: 4, Y: 4}), 3, Options{}, Identity()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := Compute(tt.c, tt.n, tt.opts, tt.m); ok || got != nil {
				t.Fatalf("expected no-op, got %v, %v", got, ok)
			}
		})
	}
}

func TestEngineZeroViewport(t *testing.T) {
	e := NewEngine(straight(), Options{}, StrategyAuto)
	if _, ok := e.Layout(3, Viewport{ViewBox: Rect{W: 100, H: 10}}); ok {
		t.Fatal("expected zero-size viewport to skip layout")
	}
	if e.Strategy() != StrategyAuto {
		t.Fatalf("strategy resolved before a measurable viewport: %q", e.Strategy())
	}
	if _, valid := e.Last(); valid {
		t.Fatal("expected no cached layout")
	}

	vp := Viewport{ViewBox: Rect{W: 100, H: 10}, Rendered: Rect{W: 200, H: 20}}
	got, ok := e.Layout(3, vp)
	if !ok {
		t.Fatal("expected layout once measurable")
	}
	if e.Strategy() != StrategyBox {
		t.Fatalf("strategy = %q, want box", e.Strategy())
	}
	if !approx(got[1].Screen.X, 100, eps) {
		t.Fatalf("middle marker x = %v, want 100", got[1].Screen.X)
	}

	e.Invalidate()
	if _, valid := e.Last(); valid {
		t.Fatal("expected invalidated layout")
	}
}

func TestEngineSingularMatrix(t *testing.T) {
	ctm := [6]float64{1, 2, 2, 4, 0, 0}
	vp := Viewport{Rendered: Rect{W: 10, H: 10}, CTM: &ctm}
	e := NewEngine(straight(), Options{}, StrategyMatrix)
	if _, ok := e.Layout(3, vp); ok {
		t.Fatal("expected singular matrix to skip layout")
	}
}

func TestBoxScaleMatchesMatrixForAxisAligned(t *testing.T) {
	vb := Rect{X: 0, Y: 0, W: 600, H: 180}
	r := Rect{X: 50, Y: 70, W: 1200, H: 360}
	ctm := [6]float64{2, 0, 0, 2, 50, 70}

	box, _ := StrategyBox.Mapping(Viewport{ViewBox: vb, Rendered: r})
	mat, _ := StrategyMatrix.Mapping(Viewport{ViewBox: vb, Rendered: r, CTM: &ctm})

	c := sag(t)
	a, _ := Compute(c, 9, Options{Offset: 20}, box)
	b, _ := Compute(c, 9, Options{Offset: 20}, mat)
	for i := range a {
		if !approx(a[i].Screen.X, b[i].Screen.X, 1e-9) || !approx(a[i].Screen.Y, b[i].Screen.Y, 1e-9) {
			t.Errorf("marker %d: box %+v, matrix %+v", i, a[i].Screen, b[i].Screen)
		}
	}
}

func TestBoxScaleUsesPageCoordinates(t *testing.T) {
	// Container at page (0, 50) with the surface flush inside it.
	ctm := [6]float64{1, 0, 0, 1, 0, 50}
	vp := Viewport{
		ViewBox:   Rect{W: 400, H: 200},
		Rendered:  Rect{X: 0, Y: 50, W: 400, H: 200},
		Container: garland.Point{X: 0, Y: 50},
		CTM:       &ctm,
	}
	box, ok := StrategyBox.Mapping(vp)
	if !ok {
		t.Fatal("box mapping not available")
	}
	mat, ok := StrategyMatrix.Mapping(vp)
	if !ok {
		t.Fatal("matrix mapping not available")
	}
	p := garland.Point{X: 100, Y: 60}
	want := garland.Point{X: 100, Y: 60}
	if got := box.ToScreen(p); got != want {
		t.Errorf("box ToScreen = %+v, want %+v", got, want)
	}
	if got := mat.ToScreen(p); got != want {
		t.Errorf("matrix ToScreen = %+v, want %+v", got, want)
	}
}

func TestMatrixWithoutCTMFallsBackToBox(t *testing.T) {
	vp := Viewport{ViewBox: Rect{W: 600, H: 180}, Rendered: Rect{W: 300, H: 90}}

	box, ok := StrategyBox.Mapping(vp)
	if !ok {
		t.Fatal("box mapping not available")
	}
	mat, ok := StrategyMatrix.Mapping(vp)
	if !ok {
		t.Fatal("matrix strategy should fall back to box scaling")
	}
	p := garland.Point{X: 100, Y: 40}
	if got, want := mat.ToScreen(p), box.ToScreen(p); got != want {
		t.Errorf("ToScreen = %+v, want %+v", got, want)
	}
}

func TestComputeTangentStaysOnSubpath(t *testing.T) {
	// Marker 4 sits 1.17 past the jump, marker 3 well before it.
	c, err := ParsePath("M0 0 L998 0 M0 100 L0 1500")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	got, ok := Compute(c, 11, Options{}, Identity())
	if !ok {
		t.Fatal("Compute not ok")
	}
	if p := got[4].Screen; !approx(p.X, 0, 1e-9) || !approx(p.Y, 100+2398.0*5/12-998, 1e-9) {
		t.Fatalf("marker 4 at %+v, want on the second subpath", p)
	}
	for i, pl := range got {
		want := 0.0
		if pl.Screen.X == 0 && pl.Screen.Y >= 100 {
			want = 90
		}
		if !approx(pl.Angle, want, 1e-9) {
			t.Errorf("marker %d at %+v: angle %v, want %v", i, pl.Screen, pl.Angle, want)
		}
	}
}

func TestPolylineSpan(t *testing.T) {
	c, err := ParsePath("M0 0 L10 0 M100 100 L100 110")
	if err != nil {
		t.Fatalf("ParsePath: %v", err)
	}
	tests := []struct {
		s      float64
		lo, hi float64
	}{
		{0, 0, 10},
		{5, 0, 10},
		{10, 0, 10},
		{10.5, 10, 20},
		{20, 10, 20},
	}
	for _, tt := range tests {
		lo, hi := c.Span(tt.s)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("Span(%v) = [%v, %v], want [%v, %v]", tt.s, lo, hi, tt.lo, tt.hi)
		}
	}
	if p := c.PointIn(9, 15); p != (garland.Point{X: 100, Y: 100}) {
		t.Errorf("PointIn(9, 15) = %+v, want start of second subpath", p)
	}
}

func TestParseStrategyAndSide(t *testing.T) {
	if _, err := ParseStrategy("box"); err != nil {
		t.Fatalf("box: %v", err)
	}
	if _, err := ParseStrategy("css"); err == nil {
		t.Fatal("expected error for unknown strategy")
	}
	if _, err := ParseSide("alternate"); err != nil {
		t.Fatalf("alternate: %v", err)
	}
	if _, err := ParseSide("both"); err == nil {
		t.Fatal("expected error for unknown side")
	}
}
