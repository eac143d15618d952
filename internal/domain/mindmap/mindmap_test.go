package mindmap

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/diagram"
)

// ============================================================================
// Decoding
// ============================================================================

func TestDecodeJSON_Envelopes(t *testing.T) {
	t.Parallel()

	for _, in := range []string{
		`{"root":{"text":"Go","children":[{"text":"chans"}]}}`,
		`{"mindmap":{"root":{"text":"Go","children":[{"text":"chans"}]}}}`,
		`{"text":"Go","children":[{"text":"chans"}]}`,
	} {
		doc, err := DecodeJSON([]byte(in))
		require.NoError(t, err, in)
		require.NotNil(t, doc.Root)
		assert.Equal(t, "Go", *doc.Root.Text)
		require.Len(t, doc.Root.Children, 1)
		assert.Equal(t, "chans", *doc.Root.Children[0].Text)
	}

	_, err := DecodeJSON([]byte(`{"nodes":[]}`))
	assert.ErrorIs(t, err, ErrInvalidMindmap)
	_, err = DecodeJSON([]byte(`{"root":{"text":5}}`))
	assert.ErrorIs(t, err, ErrInvalidMindmap)
}

func TestDecode_YAML(t *testing.T) {
	t.Parallel()

	doc, err := Decode([]byte("mindmap:\n  root:\n    text: Plan\n    children:\n      - text: Build\n      - text: Ship\n"))
	require.NoError(t, err)
	assert.Equal(t, "Plan", *doc.Root.Text)
	assert.Len(t, doc.Root.Children, 2)
}

func TestFromValue(t *testing.T) {
	t.Parallel()

	doc, err := FromValue(map[string]any{"root": map[string]any{"text": "x"}})
	require.NoError(t, err)
	assert.Equal(t, "x", *doc.Root.Text)
}

// ============================================================================
// Validation
// ============================================================================

func TestValidator(t *testing.T) {
	t.Parallel()

	v := NewValidator(0)
	assert.Equal(t, DefaultMaxDepth, v.MaxDepth())

	root := NewNode("root", NewNode(""), NewNode("b", NewNode("c")))
	assert.NoError(t, v.Validate(Document{Root: &root}), "empty text is still text")

	missing := NewNode("root", Node{})
	err := v.Validate(Document{Root: &missing})
	assert.ErrorIs(t, err, ErrInvalidMindmap)
	assert.Contains(t, err.Error(), "Children[0].Text")

	assert.ErrorIs(t, v.Validate(Document{}), ErrInvalidMindmap)
}

func chain(depth int) Node {
	n := NewNode("leaf")
	for i := 0; i < depth; i++ {
		n = NewNode("level", n)
	}
	return n
}

func TestValidator_DepthBound(t *testing.T) {
	t.Parallel()

	v := NewValidator(3)
	ok := chain(3)
	assert.NoError(t, v.Validate(Document{Root: &ok}))

	deep := chain(4)
	err := v.Validate(Document{Root: &deep})
	assert.True(t, errors.Is(err, ErrTooDeep))

	huge := chain(100000)
	assert.ErrorIs(t, NewValidator(0).Validate(Document{Root: &huge}), ErrTooDeep)
}

// ============================================================================
// Layout
// ============================================================================

func TestLayout_TwoChildren(t *testing.T) {
	t.Parallel()

	root := NewNode("center", NewNode("a"), NewNode("b"))
	res, err := Layout(&root, LayoutOptions{})
	require.NoError(t, err)

	require.Len(t, res.Shapes, 3)
	require.Len(t, res.Connectors, 2)

	r := res.Shapes[0]
	assert.Equal(t, "node-1", r.ID)
	assert.Equal(t, 0.0, r.X)
	assert.Equal(t, 0.0, r.Y)
	assert.Equal(t, diagram.TypeRectangle, r.Type)
	assert.Equal(t, "center", r.Label.Text)
	assert.Equal(t, 22.0, *r.Label.FontSize)
	assert.Equal(t, "#f4b6ff", r.BackgroundColor)

	// Children split the narrowed span (0.6 of the full circle) at -0.3π and +0.3π.
	a, b := res.Shapes[1], res.Shapes[2]
	assert.Equal(t, "node-2", a.ID)
	assert.Equal(t, [2]float64{141, -194}, [2]float64{a.X, a.Y})
	assert.Equal(t, "node-3", b.ID)
	assert.Equal(t, [2]float64{141, 194}, [2]float64{b.X, b.Y})
	assert.Equal(t, 20.0, *a.Label.FontSize)
	assert.Equal(t, "#b28dff", a.BackgroundColor)
	assert.Equal(t, "#7aa2ff", b.BackgroundColor)

	c := res.Connectors[1]
	assert.Equal(t, diagram.TypeArrow, c.Type)
	assert.Equal(t, 0.0, c.X)
	assert.Equal(t, 141.0, *c.Width)
	assert.Equal(t, 194.0, *c.Height)
	assert.Equal(t, "#a78bfa", c.StrokeColor)
	assert.Nil(t, c.Start)
	assert.Nil(t, c.End)

	assert.Len(t, res.Elements(), 5)
	assert.Equal(t, res.Connectors[0], res.Elements()[3])
}

func TestLayout_CenterAndRings(t *testing.T) {
	t.Parallel()

	root := NewNode("r", NewNode("only", NewNode("grandchild")))
	res, err := Layout(&root, LayoutOptions{Center: diagram.Point{X: 1000, Y: 500}, BaseRadius: 100, RadiusStep: 50})
	require.NoError(t, err)

	assert.Equal(t, [2]float64{1000, 500}, [2]float64{res.Shapes[0].X, res.Shapes[0].Y})
	assert.Equal(t, [2]float64{1100, 500}, [2]float64{res.Shapes[1].X, res.Shapes[1].Y})
	assert.Equal(t, [2]float64{1150, 500}, [2]float64{res.Shapes[2].X, res.Shapes[2].Y})
}

func TestLayout_RadiusOptions(t *testing.T) {
	t.Parallel()

	root := NewNode("r", NewNode("only", NewNode("grandchild")))
	center := diagram.Point{X: 1000, Y: 500}

	res, err := Layout(&root, LayoutOptions{Center: center})
	require.NoError(t, err)
	assert.Equal(t, 1000.0+DefaultBaseRadius, res.Shapes[1].X, "zero radius selects the default")
	assert.Equal(t, 1000.0+DefaultBaseRadius+DefaultRadiusStep, res.Shapes[2].X, "zero step selects the default")

	res, err = Layout(&root, LayoutOptions{Center: center, BaseRadius: 100, RadiusStep: 1e-9})
	require.NoError(t, err)
	assert.Equal(t, 1100.0, res.Shapes[1].X)
	assert.Equal(t, 1100.0, res.Shapes[2].X, "every ring at the base radius")
}

func TestLayout_IDsResetPerCall(t *testing.T) {
	t.Parallel()

	root := NewNode("r", NewNode("a"))
	first, err := Layout(&root, LayoutOptions{})
	require.NoError(t, err)
	second, err := Layout(&root, LayoutOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, "node-2", second.Shapes[1].ID)
}

func TestLayout_Degenerate(t *testing.T) {
	t.Parallel()

	res, err := Layout(&Node{Children: []Node{NewNode("orphan")}}, LayoutOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Elements())

	res, err = Layout(nil, LayoutOptions{})
	require.NoError(t, err)
	assert.Empty(t, res.Shapes)
}

func TestLayout_TooDeep(t *testing.T) {
	t.Parallel()

	deep := chain(5)
	_, err := Layout(&deep, LayoutOptions{MaxDepth: 4})
	assert.ErrorIs(t, err, ErrTooDeep)
}

func TestFontSizeAndColor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 22.0, FontSize(0))
	assert.Equal(t, 18.0, FontSize(2))
	assert.Equal(t, 14.0, FontSize(4))
	assert.Equal(t, 14.0, FontSize(9))

	assert.Equal(t, "#ffe39a", Color(2, 3))
	assert.Equal(t, "#f4b6ff", Color(5, 1))
}

func TestToElements(t *testing.T) {
	t.Parallel()

	doc, err := DecodeJSON([]byte(`{"root":{"text":"r","children":[{"text":"a"},{"text":"b"},{"text":"c"}]}}`))
	require.NoError(t, err)

	els, err := ToElements(doc, nil, LayoutOptions{})
	require.NoError(t, err)
	assert.Len(t, els, 7)

	bad, err := DecodeJSON([]byte(`{"root":{"text":"r","children":[{"children":[]}]}}`))
	require.NoError(t, err)
	_, err = ToElements(bad, nil, LayoutOptions{})
	assert.ErrorIs(t, err, ErrInvalidMindmap)
}
