package diagram

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
)

// Optimize snaps every connector whose start and end both resolve to a shape
// in elements onto the midpoints of the facing shape edges. Other elements
// are returned as they are. The input slice is not modified.
//
// When the collection is inconsistent (duplicate ids, non-finite geometry)
// the original slice is returned and the cause is logged.
func Optimize(elements []Element, logger *zap.Logger) []Element {
	if logger == nil {
		logger = zap.NewNop()
	}

	shapes, err := indexShapes(elements)
	if err != nil {
		logger.Warn("arrow optimization skipped", zap.Error(err))
		return elements
	}

	out := make([]Element, len(elements))
	for i, el := range elements {
		out[i] = el
		if !el.IsConnector() || el.Start == nil || el.End == nil {
			continue
		}
		start, okStart := shapes[el.Start.ID]
		end, okEnd := shapes[el.End.ID]
		if !okStart || !okEnd {
			continue
		}
		out[i] = snap(el, boxOf(start), boxOf(end))
	}
	return out
}

func snap(conn Element, start, end box) Element {
	startEdge, endEdge := chooseEdges(start, end)
	from := start.midpoint(startEdge)
	to := end.midpoint(endEdge)

	width := to.X - from.X
	height := to.Y - from.Y
	// Zero-extent connectors render invisibly in the canvas.
	if width == 0 {
		width = 1
	}
	if height == 0 {
		height = 1
	}

	conn.X, conn.Y = from.X, from.Y
	conn.Width = Float(width)
	conn.Height = Float(height)
	return conn
}

// indexShapes maps ids of non-connector elements to the element.
func indexShapes(elements []Element) (map[string]Element, error) {
	seen := make(map[string]struct{}, len(elements))
	shapes := make(map[string]Element, len(elements))
	for _, el := range elements {
		if el.ID == "" {
			continue
		}
		if _, dup := seen[el.ID]; dup {
			return nil, fmt.Errorf("duplicate element id %q", el.ID)
		}
		seen[el.ID] = struct{}{}
		if el.IsConnector() {
			continue
		}
		if !finite(el.X, el.Y) || !finitePtr(el.Width) || !finitePtr(el.Height) {
			return nil, fmt.Errorf("element %q has non-finite geometry", el.ID)
		}
		shapes[el.ID] = el
	}
	return shapes, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func finitePtr(v *float64) bool {
	return v == nil || finite(*v)
}

// OptimizeCode runs Optimize over the element array embedded in text (from
// the first '[' to the last ']') and returns it as indented JSON. When no
// array can be decoded, text is returned unchanged.
func OptimizeCode(text string, logger *zap.Logger) string {
	if logger == nil {
		logger = zap.NewNop()
	}
	trimmed := strings.TrimSpace(text)
	open := strings.IndexByte(trimmed, '[')
	end := strings.LastIndexByte(trimmed, ']')
	if open < 0 || end < open {
		logger.Warn("arrow optimization skipped: no element array found")
		return text
	}

	var elements []Element
	if err := json.Unmarshal([]byte(trimmed[open:end+1]), &elements); err != nil {
		logger.Warn("arrow optimization skipped: element array did not decode", zap.Error(err))
		return text
	}

	out, err := json.MarshalIndent(Optimize(elements, logger), "", "  ")
	if err != nil {
		logger.Warn("arrow optimization skipped: encode failed", zap.Error(err))
		return text
	}
	return string(out)
}
