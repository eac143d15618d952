// Package diagram holds the element wire schema shared with the canvas
// renderer and the arrow optimizer that runs over it.
package diagram

import (
	"bytes"
	"encoding/json"
	"sort"
)

// Element types the pipeline itself produces or inspects. Anything else the
// model emits is carried through untouched.
const (
	TypeRectangle = "rectangle"
	TypeEllipse   = "ellipse"
	TypeDiamond   = "diamond"
	TypeText      = "text"
	TypeArrow     = "arrow"
	TypeLine      = "line"
)

// Element is one entry of a diagram element array:
//
//	{type, id?, x, y, width?, height?, label?, backgroundColor?, strokeColor?, start?, end?}
//
// Fields outside that set are kept in Extra and written back on encode.
type Element struct {
	Type            string
	ID              string
	X               float64
	Y               float64
	Width           *float64
	Height          *float64
	Label           *Label
	BackgroundColor string
	StrokeColor     string
	Start           *Binding
	End             *Binding

	Extra map[string]json.RawMessage
}

// Label is the text rendered inside a shape or along a connector.
type Label struct {
	Text     string
	FontSize *float64

	Extra map[string]json.RawMessage
}

// Binding references another element of the same collection by id.
type Binding struct {
	ID string

	Extra map[string]json.RawMessage
}

// IsConnector reports whether e is an arrow or a line.
func (e Element) IsConnector() bool {
	return e.Type == TypeArrow || e.Type == TypeLine
}

// Float returns a pointer to v, for the optional size fields.
func Float(v float64) *float64 { return &v }

type elementWire struct {
	Type            string   `json:"type"`
	ID              string   `json:"id,omitempty"`
	X               float64  `json:"x"`
	Y               float64  `json:"y"`
	Width           *float64 `json:"width,omitempty"`
	Height          *float64 `json:"height,omitempty"`
	Label           *Label   `json:"label,omitempty"`
	BackgroundColor string   `json:"backgroundColor,omitempty"`
	StrokeColor     string   `json:"strokeColor,omitempty"`
	Start           *Binding `json:"start,omitempty"`
	End             *Binding `json:"end,omitempty"`
}

var elementKeys = []string{"type", "id", "x", "y", "width", "height", "label", "backgroundColor", "strokeColor", "start", "end"}

func (e Element) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(elementWire{
		Type: e.Type, ID: e.ID, X: e.X, Y: e.Y, Width: e.Width, Height: e.Height,
		Label: e.Label, BackgroundColor: e.BackgroundColor, StrokeColor: e.StrokeColor,
		Start: e.Start, End: e.End,
	})
	if err != nil {
		return nil, err
	}
	return appendExtra(known, e.Extra, elementKeys)
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var w elementWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	extra, err := splitExtra(data, elementKeys)
	if err != nil {
		return err
	}
	*e = Element{
		Type: w.Type, ID: w.ID, X: w.X, Y: w.Y, Width: w.Width, Height: w.Height,
		Label: w.Label, BackgroundColor: w.BackgroundColor, StrokeColor: w.StrokeColor,
		Start: w.Start, End: w.End, Extra: extra,
	}
	return nil
}

type labelWire struct {
	Text     string   `json:"text"`
	FontSize *float64 `json:"fontSize,omitempty"`
}

var labelKeys = []string{"text", "fontSize"}

func (l Label) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(labelWire{Text: l.Text, FontSize: l.FontSize})
	if err != nil {
		return nil, err
	}
	return appendExtra(known, l.Extra, labelKeys)
}

func (l *Label) UnmarshalJSON(data []byte) error {
	var w labelWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	extra, err := splitExtra(data, labelKeys)
	if err != nil {
		return err
	}
	*l = Label{Text: w.Text, FontSize: w.FontSize, Extra: extra}
	return nil
}

type bindingWire struct {
	ID string `json:"id,omitempty"`
}

var bindingKeys = []string{"id"}

func (b Binding) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(bindingWire{ID: b.ID})
	if err != nil {
		return nil, err
	}
	return appendExtra(known, b.Extra, bindingKeys)
}

func (b *Binding) UnmarshalJSON(data []byte) error {
	var w bindingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	extra, err := splitExtra(data, bindingKeys)
	if err != nil {
		return err
	}
	*b = Binding{ID: w.ID, Extra: extra}
	return nil
}

// splitExtra returns the members of the JSON object data whose keys are not
// in known, or nil when there are none.
func splitExtra(data []byte, known []string) (map[string]json.RawMessage, error) {
	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, err
	}
	for _, k := range known {
		delete(all, k)
	}
	if len(all) == 0 {
		return nil, nil
	}
	return all, nil
}

// appendExtra splices extra members into the encoded object obj. Keys are
// written in sorted order; keys colliding with known fields are dropped.
func appendExtra(obj []byte, extra map[string]json.RawMessage, known []string) ([]byte, error) {
	if len(extra) == 0 {
		return obj, nil
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		if !contains(known, k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return obj, nil
	}
	sort.Strings(keys)

	var buf bytes.Buffer
	buf.Write(obj[:len(obj)-1])
	empty := len(bytes.TrimSpace(obj[1:len(obj)-1])) == 0
	for i, k := range keys {
		if i > 0 || !empty {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(extra[k])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
