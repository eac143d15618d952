package diagram

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func rect(id string, x, y, w, h float64) Element {
	return Element{Type: TypeRectangle, ID: id, X: x, Y: y, Width: Float(w), Height: Float(h)}
}

func arrow(id, from, to string) Element {
	return Element{Type: TypeArrow, ID: id, Start: &Binding{ID: from}, End: &Binding{ID: to}}
}

func TestOptimize_HorizontalNeighbours(t *testing.T) {
	t.Parallel()

	in := []Element{
		rect("a", 0, 0, 100, 100),
		rect("b", 300, 0, 100, 100),
		arrow("c", "a", "b"),
	}
	out := Optimize(in, nil)

	require.Len(t, out, 3)
	c := out[2]
	assert.Equal(t, 100.0, c.X)
	assert.Equal(t, 50.0, c.Y)
	assert.Equal(t, 200.0, *c.Width)
	assert.Equal(t, 1.0, *c.Height, "zero extent is forced to 1")
	assert.Equal(t, in[0], out[0])
	assert.Equal(t, in[1], out[1])
	assert.Nil(t, in[2].Width, "input must not be mutated")
}

func TestOptimize_EdgeSelection(t *testing.T) {
	t.Parallel()

	// Start shape at the origin, end shape placed around it.
	cases := []struct {
		name     string
		end      Element
		wantFrom Point
		wantTo   Point
	}{
		{"below", rect("b", 0, 300, 100, 100), Point{50, 100}, Point{50, 300}},
		{"above", rect("b", 0, -300, 100, 100), Point{50, 0}, Point{50, -200}},
		{"left", rect("b", -300, 0, 100, 100), Point{0, 50}, Point{-200, 50}},
		{"far right slightly below", rect("b", 400, 50, 100, 100), Point{100, 50}, Point{400, 100}},
		{"far below slightly right", rect("b", 50, 400, 100, 100), Point{50, 100}, Point{100, 400}},
		{"far left slightly above", rect("b", -400, -50, 100, 100), Point{0, 50}, Point{-300, 0}},
		{"far above slightly left", rect("b", -50, -400, 100, 100), Point{50, 0}, Point{0, -300}},
		{"overlapping centers", rect("b", 0, 0, 100, 100), Point{100, 50}, Point{0, 50}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			out := Optimize([]Element{rect("a", 0, 0, 100, 100), tc.end, arrow("c", "a", "b")}, nil)
			c := out[2]
			assert.Equal(t, tc.wantFrom, Point{c.X, c.Y})
			to := Point{c.X + *c.Width, c.Y + *c.Height}
			if tc.wantTo.X == tc.wantFrom.X {
				to.X = c.X
			}
			if tc.wantTo.Y == tc.wantFrom.Y {
				to.Y = c.Y
			}
			assert.Equal(t, tc.wantTo, to)
		})
	}
}

func TestChooseEdges_Midpoints(t *testing.T) {
	t.Parallel()

	b := box{x: 10, y: 20, w: 40, h: 60}
	assert.Equal(t, Point{10, 50}, b.midpoint(EdgeLeft))
	assert.Equal(t, Point{50, 50}, b.midpoint(EdgeRight))
	assert.Equal(t, Point{30, 20}, b.midpoint(EdgeTop))
	assert.Equal(t, Point{30, 80}, b.midpoint(EdgeBottom))
}

func TestOptimize_MissingSizeUsesDefaultExtent(t *testing.T) {
	t.Parallel()

	out := Optimize([]Element{
		{Type: TypeEllipse, ID: "a"},
		{Type: TypeEllipse, ID: "b", X: 300, Width: Float(0)},
		arrow("c", "a", "b"),
	}, nil)
	assert.Equal(t, 100.0, out[2].X)
	assert.Equal(t, 50.0, out[2].Y)
	assert.Equal(t, 200.0, *out[2].Width)
}

func TestOptimize_Idempotent(t *testing.T) {
	t.Parallel()

	in := []Element{
		rect("a", 0, 0, 120, 60),
		rect("b", 420, 260, 80, 40),
		rect("d", -300, 90, 100, 100),
		arrow("c1", "a", "b"),
		arrow("c2", "b", "d"),
		{Type: TypeLine, ID: "c3", Start: &Binding{ID: "d"}, End: &Binding{ID: "a"}},
	}
	once := Optimize(in, nil)
	twice := Optimize(once, nil)
	assert.Equal(t, once, twice)
}

func TestOptimize_UnresolvableBindingUnchanged(t *testing.T) {
	t.Parallel()

	dangling := Element{Type: TypeArrow, ID: "c", X: 5, Y: 6, Width: Float(0), Start: &Binding{ID: "missing"}, End: &Binding{ID: "b"}}
	unbound := Element{Type: TypeArrow, ID: "u", X: 1, Y: 2, Width: Float(0), Height: Float(30)}
	onConnector := arrow("x", "u", "b")
	in := []Element{rect("b", 0, 0, 10, 10), dangling, unbound, onConnector}

	out := Optimize(in, nil)
	assert.Equal(t, dangling, out[1])
	assert.Equal(t, unbound, out[2])
	assert.Equal(t, onConnector, out[3], "connectors are not binding targets")
}

func TestOptimize_InconsistentInputReturnedAsIs(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	logger := zap.New(core)

	dup := []Element{rect("a", 0, 0, 1, 1), rect("a", 5, 5, 1, 1), arrow("c", "a", "a")}
	out := Optimize(dup, logger)
	assert.Equal(t, dup, out)

	nan := []Element{rect("a", math.NaN(), 0, 1, 1), rect("b", 5, 5, 1, 1), arrow("c", "a", "b")}
	out = Optimize(nan, logger)
	assert.Nil(t, out[2].Width)

	assert.Equal(t, 2, logs.FilterMessage("arrow optimization skipped").Len())
}

func TestOptimizeCode(t *testing.T) {
	t.Parallel()

	text := "Here you go:\n" + `[
	  {"type":"rectangle","id":"a","x":0,"y":0,"width":100,"height":100,"roundness":{"type":3}},
	  {"type":"rectangle","id":"b","x":300,"y":0,"width":100,"height":100},
	  {"type":"arrow","id":"c","x":0,"y":0,"start":{"id":"a"},"end":{"id":"b"},"endArrowhead":"arrow"}
	]` + "\nEnjoy."

	got := OptimizeCode(text, nil)

	var decoded []map[string]any
	require.NoError(t, json.Unmarshal([]byte(got), &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, map[string]any{"type": float64(3)}, decoded[0]["roundness"])
	assert.Equal(t, "arrow", decoded[2]["endArrowhead"])
	assert.Equal(t, float64(100), decoded[2]["x"])
	assert.Equal(t, float64(200), decoded[2]["width"])
	assert.Contains(t, got, "\n  {", "output is indented")
}

func TestOptimizeCode_UndecodableReturnedUnchanged(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "no array here", `[{"type":]`, `{"type":"arrow"}`} {
		assert.Equal(t, in, OptimizeCode(in, nil))
	}
}
