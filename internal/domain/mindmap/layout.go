package mindmap

import (
	"fmt"
	"math"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/diagram"
)

// Layout defaults.
const (
	DefaultBaseRadius = 240
	DefaultRadiusStep = 240

	spanNarrowing   = 0.6
	maxFontSize     = 22
	minFontSize     = 14
	fontStepPerRing = 2
	connectorStroke = "#a78bfa"
)

var palette = []string{"#f4b6ff", "#b28dff", "#7aa2ff", "#6ef2ff", "#9afcbd", "#ffe39a"}

// LayoutOptions places the tree. A zero BaseRadius or RadiusStep selects
// DefaultBaseRadius or DefaultRadiusStep, so the zero value lays out with the
// defaults. Coordinates are rounded, so a RadiusStep below 0.5 such as 1e-9
// puts every ring at BaseRadius. MaxDepth <= 0 selects DefaultMaxDepth.
type LayoutOptions struct {
	Center     diagram.Point
	BaseRadius float64
	RadiusStep float64
	MaxDepth   int
}

func (o LayoutOptions) withDefaults() LayoutOptions {
	if o.BaseRadius == 0 {
		o.BaseRadius = DefaultBaseRadius
	}
	if o.RadiusStep == 0 {
		o.RadiusStep = DefaultRadiusStep
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	return o
}

// Result holds one shape per node in visit order and one connector per
// parent to child relation.
type Result struct {
	Shapes     []diagram.Element `json:"shapes"`
	Connectors []diagram.Element `json:"connectors"`
}

// Elements returns shapes followed by connectors.
func (r Result) Elements() []diagram.Element {
	out := make([]diagram.Element, 0, len(r.Shapes)+len(r.Connectors))
	out = append(out, r.Shapes...)
	return append(out, r.Connectors...)
}

// layoutNode is a placed node.
type layoutNode struct {
	id    string
	node  *Node
	depth int
	x, y  float64
}

type placer struct {
	opts       LayoutOptions
	counter    int
	shapes     []diagram.Element
	connectors []diagram.Element
}

// Layout places root at the center and every descendant on a ring whose
// radius grows with depth. Each node narrows the angle it received before
// sharing it evenly between its children. A nil root or a root without text
// yields an empty Result.
func Layout(root *Node, opts LayoutOptions) (Result, error) {
	if root == nil || root.Text == nil {
		return Result{}, nil
	}
	opts = opts.withDefaults()
	if d := Depth(root); d > opts.MaxDepth {
		return Result{}, fmt.Errorf("%w: depth %d exceeds %d", ErrTooDeep, d, opts.MaxDepth)
	}

	p := &placer{opts: opts}
	p.place(root, 0, 0, 0, 2*math.Pi, nil)
	return Result{Shapes: p.shapes, Connectors: p.connectors}, nil
}

func (p *placer) place(n *Node, depth, sibling int, angle, span float64, parent *layoutNode) {
	p.counter++
	ln := layoutNode{id: fmt.Sprintf("node-%d", p.counter), node: n, depth: depth}
	if depth == 0 {
		ln.x, ln.y = p.opts.Center.X, p.opts.Center.Y
	} else {
		r := p.opts.BaseRadius + p.opts.RadiusStep*float64(depth-1)
		ln.x = math.Round(p.opts.Center.X + r*math.Cos(angle))
		ln.y = math.Round(p.opts.Center.Y + r*math.Sin(angle))
	}

	p.shapes = append(p.shapes, shapeFor(ln, sibling))
	if parent != nil {
		p.connectors = append(p.connectors, connectorFor(*parent, ln))
	}

	if len(n.Children) == 0 {
		return
	}
	narrowed := span * spanNarrowing
	start := angle - narrowed/2
	count := float64(len(n.Children))
	for i := range n.Children {
		a := start + (float64(i)+0.5)/count*narrowed
		p.place(&n.Children[i], depth+1, i, a, narrowed, &ln)
	}
}

func shapeFor(n layoutNode, sibling int) diagram.Element {
	text := ""
	if n.node.Text != nil {
		text = *n.node.Text
	}
	return diagram.Element{
		Type:            diagram.TypeRectangle,
		ID:              n.id,
		X:               n.x,
		Y:               n.y,
		Label:           &diagram.Label{Text: text, FontSize: diagram.Float(FontSize(n.depth))},
		BackgroundColor: Color(n.depth, sibling),
	}
}

func connectorFor(from, to layoutNode) diagram.Element {
	return diagram.Element{
		Type:        diagram.TypeArrow,
		X:           from.x,
		Y:           from.y,
		Width:       diagram.Float(to.x - from.x),
		Height:      diagram.Float(to.y - from.y),
		StrokeColor: connectorStroke,
	}
}

// FontSize shrinks with depth down to a floor.
func FontSize(depth int) float64 {
	return math.Max(minFontSize, float64(maxFontSize-fontStepPerRing*depth))
}

// Color picks the palette entry for a node.
func Color(depth, sibling int) string {
	return palette[(depth+sibling)%len(palette)]
}

// ToElements validates doc, lays it out and returns the element array.
func ToElements(doc Document, v *Validator, opts LayoutOptions) ([]diagram.Element, error) {
	if v == nil {
		v = NewValidator(opts.MaxDepth)
	}
	if err := v.Validate(doc); err != nil {
		return nil, err
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = v.MaxDepth()
	}
	res, err := Layout(doc.Root, opts)
	if err != nil {
		return nil, err
	}
	return res.Elements(), nil
}
