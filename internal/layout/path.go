package layout

import (
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/playperu/bonuslights/internal/garland"
)

var ErrUnsupportedCommand = errors.New("unsupported path command")

const (
	flatness     = 0.05
	maxSubdivide = 16
	reflectCubic = 'C'
	reflectQuad  = 'Q'
	reflectNone  = 0
)

// ParsePath flattens SVG path data into a Polyline. It understands the
// M, L, H, V, C, S, Q, T and Z commands in absolute and relative form.
func ParsePath(d string) (*Polyline, error) {
	sc := &pathScanner{s: d}
	p := &Polyline{}

	var (
		start, cur garland.Point
		ctrl       garland.Point
		lastKind   byte = reflectNone
	)

	for {
		cmd, ok, err := sc.command()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		rel := cmd >= 'a' && cmd <= 'z'
		upper := cmd &^ 0x20

		if upper == 'Z' {
			p.lineTo(start)
			cur = start
			lastKind = reflectNone
			continue
		}
		if upper == 'A' {
			return nil, fmt.Errorf("parsing path at offset %d: %w %q", sc.pos-1, ErrUnsupportedCommand, cmd)
		}

		first := true
		for first || sc.hasNumber() {
			var args []float64
			switch upper {
			case 'M', 'L', 'T':
				args, err = sc.numbers(2)
			case 'H', 'V':
				args, err = sc.numbers(1)
			case 'C':
				args, err = sc.numbers(6)
			case 'S', 'Q':
				args, err = sc.numbers(4)
			default:
				return nil, fmt.Errorf("parsing path at offset %d: %w %q", sc.pos-1, ErrUnsupportedCommand, cmd)
			}
			if err != nil {
				return nil, err
			}

			abs := func(x, y float64) garland.Point {
				if rel {
					return garland.Point{X: cur.X + x, Y: cur.Y + y}
				}
				return garland.Point{X: x, Y: y}
			}

			switch upper {
			case 'M':
				pt := abs(args[0], args[1])
				if first {
					p.moveTo(pt)
					start = pt
				} else {
					// extra coordinate pairs after a moveto are implicit linetos
					p.lineTo(pt)
				}
				cur = pt
				lastKind = reflectNone
			case 'L':
				cur = abs(args[0], args[1])
				p.lineTo(cur)
				lastKind = reflectNone
			case 'H':
				x := args[0]
				if rel {
					x += cur.X
				}
				cur = garland.Point{X: x, Y: cur.Y}
				p.lineTo(cur)
				lastKind = reflectNone
			case 'V':
				y := args[0]
				if rel {
					y += cur.Y
				}
				cur = garland.Point{X: cur.X, Y: y}
				p.lineTo(cur)
				lastKind = reflectNone
			case 'C':
				c1, c2, end := abs(args[0], args[1]), abs(args[2], args[3]), abs(args[4], args[5])
				flattenCubic(p, cur, c1, c2, end, 0)
				ctrl, cur, lastKind = c2, end, reflectCubic
			case 'S':
				c1 := cur
				if lastKind == reflectCubic {
					c1 = reflect(ctrl, cur)
				}
				c2, end := abs(args[0], args[1]), abs(args[2], args[3])
				flattenCubic(p, cur, c1, c2, end, 0)
				ctrl, cur, lastKind = c2, end, reflectCubic
			case 'Q':
				q, end := abs(args[0], args[1]), abs(args[2], args[3])
				flattenQuad(p, cur, q, end)
				ctrl, cur, lastKind = q, end, reflectQuad
			case 'T':
				q := cur
				if lastKind == reflectQuad {
					q = reflect(ctrl, cur)
				}
				end := abs(args[0], args[1])
				flattenQuad(p, cur, q, end)
				ctrl, cur, lastKind = q, end, reflectQuad
			}
			first = false
		}
	}

	if len(p.pts) == 0 {
		return nil, errors.New("path has no drawing commands")
	}
	return p, nil
}

func reflect(ctrl, about garland.Point) garland.Point {
	return garland.Point{X: 2*about.X - ctrl.X, Y: 2*about.Y - ctrl.Y}
}

func lerp(a, b garland.Point, t float64) garland.Point {
	return garland.Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

func distToLine(p, a, b garland.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	if dx == 0 && dy == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	return math.Abs(dx*(a.Y-p.Y)-dy*(a.X-p.X)) / math.Hypot(dx, dy)
}

// flattenCubic appends line segments approximating the cubic Bézier
// p0..p3, subdividing with De Casteljau until the control points lie within
// flatness of the chord.
func flattenCubic(out *Polyline, p0, p1, p2, p3 garland.Point, depth int) {
	if depth >= maxSubdivide || (distToLine(p1, p0, p3) <= flatness && distToLine(p2, p0, p3) <= flatness) {
		out.lineTo(p3)
		return
	}
	m01 := lerp(p0, p1, 0.5)
	m12 := lerp(p1, p2, 0.5)
	m23 := lerp(p2, p3, 0.5)
	m012 := lerp(m01, m12, 0.5)
	m123 := lerp(m12, m23, 0.5)
	mid := lerp(m012, m123, 0.5)
	flattenCubic(out, p0, m01, m012, mid, depth+1)
	flattenCubic(out, mid, m123, m23, p3, depth+1)
}

// flattenQuad elevates the quadratic to a cubic.
func flattenQuad(out *Polyline, p0, q, p2 garland.Point) {
	c1 := lerp(p0, q, 2.0/3)
	c2 := lerp(p2, q, 2.0/3)
	flattenCubic(out, p0, c1, c2, p2, 0)
}

type pathScanner struct {
	s   string
	pos int
}

func (sc *pathScanner) skipSeparators() {
	for sc.pos < len(sc.s) {
		switch sc.s[sc.pos] {
		case ' ', '\t', '\n', '\r', '\f', ',':
			sc.pos++
		default:
			return
		}
	}
}

func (sc *pathScanner) command() (byte, bool, error) {
	sc.skipSeparators()
	if sc.pos >= len(sc.s) {
		return 0, false, nil
	}
	c := sc.s[sc.pos]
	if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') {
		sc.pos++
		return c, true, nil
	}
	return 0, false, fmt.Errorf("parsing path at offset %d: expected command, got %q", sc.pos, c)
}

func (sc *pathScanner) hasNumber() bool {
	sc.skipSeparators()
	if sc.pos >= len(sc.s) {
		return false
	}
	c := sc.s[sc.pos]
	return c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9')
}

func (sc *pathScanner) numbers(n int) ([]float64, error) {
	out := make([]float64, n)
	for i := range out {
		v, err := sc.number()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// number scans one SVG number. Numbers may abut without separators when the
// next one starts with a sign or a second decimal point ("1-2", ".5.5").
func (sc *pathScanner) number() (float64, error) {
	if !sc.hasNumber() {
		return 0, fmt.Errorf("parsing path at offset %d: expected number", sc.pos)
	}
	begin := sc.pos
	if c := sc.s[sc.pos]; c == '-' || c == '+' {
		sc.pos++
	}
	digits := sc.digits()
	if sc.pos < len(sc.s) && sc.s[sc.pos] == '.' {
		sc.pos++
		digits += sc.digits()
	}
	if digits == 0 {
		return 0, fmt.Errorf("parsing path at offset %d: malformed number", begin)
	}
	if sc.pos < len(sc.s) && (sc.s[sc.pos] == 'e' || sc.s[sc.pos] == 'E') {
		mark := sc.pos
		sc.pos++
		if sc.pos < len(sc.s) && (sc.s[sc.pos] == '-' || sc.s[sc.pos] == '+') {
			sc.pos++
		}
		if sc.digits() == 0 {
			sc.pos = mark
		}
	}
	v, err := strconv.ParseFloat(sc.s[begin:sc.pos], 64)
	if err != nil {
		return 0, fmt.Errorf("parsing path at offset %d: %w", begin, err)
	}
	return v, nil
}

func (sc *pathScanner) digits() int {
	n := 0
	for sc.pos < len(sc.s) && sc.s[sc.pos] >= '0' && sc.s[sc.pos] <= '9' {
		sc.pos++
		n++
	}
	return n
}
