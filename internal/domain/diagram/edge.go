package diagram

// Edge is one side of a shape's bounding box.
type Edge int

const (
	EdgeLeft Edge = iota
	EdgeRight
	EdgeTop
	EdgeBottom
)

func (e Edge) String() string {
	switch e {
	case EdgeLeft:
		return "left"
	case EdgeRight:
		return "right"
	case EdgeTop:
		return "top"
	case EdgeBottom:
		return "bottom"
	default:
		return "unknown"
	}
}

// defaultExtent is used for geometry when a shape has no usable width or height.
const defaultExtent = 100

// Point is a canvas coordinate.
type Point struct {
	X, Y float64
}

// box is the resolved geometry of a bound shape.
type box struct {
	x, y, w, h float64
}

func boxOf(e Element) box {
	return box{x: e.X, y: e.Y, w: extent(e.Width), h: extent(e.Height)}
}

func extent(v *float64) float64 {
	if v == nil || *v == 0 {
		return defaultExtent
	}
	return *v
}

func (b box) center() Point {
	return Point{X: b.x + b.w/2, Y: b.y + b.h/2}
}

// midpoint returns the center of the given side.
func (b box) midpoint(e Edge) Point {
	switch e {
	case EdgeLeft:
		return Point{X: b.x, Y: b.y + b.h/2}
	case EdgeTop:
		return Point{X: b.x + b.w/2, Y: b.y}
	case EdgeBottom:
		return Point{X: b.x + b.w/2, Y: b.y + b.h}
	default:
		return Point{X: b.x + b.w, Y: b.y + b.h/2}
	}
}

// chooseEdges picks the sides of start and end that a connector should join.
// The choice depends only on the two boxes, never on the connector.
func chooseEdges(start, end box) (startEdge, endEdge Edge) {
	sc, ec := start.center(), end.center()
	dx := sc.X - ec.X
	dy := sc.Y - ec.Y

	// Gaps between facing sides; positive when the boxes are apart on that axis.
	leftToRight := start.x - (end.x + end.w)
	rightToLeft := -((start.x + start.w) - end.x)
	topToBottom := start.y - (end.y + end.h)
	bottomToTop := -((start.y + start.h) - end.y)

	switch {
	case dx > 0 && dy > 0:
		if leftToRight > topToBottom {
			return EdgeLeft, EdgeRight
		}
		return EdgeTop, EdgeBottom
	case dx < 0 && dy > 0:
		if rightToLeft > topToBottom {
			return EdgeRight, EdgeLeft
		}
		return EdgeTop, EdgeBottom
	case dx > 0 && dy < 0:
		if leftToRight > bottomToTop {
			return EdgeLeft, EdgeRight
		}
		return EdgeBottom, EdgeTop
	case dx < 0 && dy < 0:
		if rightToLeft > bottomToTop {
			return EdgeRight, EdgeLeft
		}
		return EdgeBottom, EdgeTop
	case dx == 0 && dy > 0:
		return EdgeTop, EdgeBottom
	case dx == 0 && dy < 0:
		return EdgeBottom, EdgeTop
	case dx > 0 && dy == 0:
		return EdgeLeft, EdgeRight
	case dx < 0 && dy == 0:
		return EdgeRight, EdgeLeft
	default:
		return EdgeRight, EdgeLeft
	}
}
