// Package mindmap decodes, validates and lays out mindmap trees.
package mindmap

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Node is one mindmap topic. Each node owns its children.
type Node struct {
	Text     *string `json:"text" yaml:"text" validate:"required"`
	Children []Node  `json:"children,omitempty" yaml:"children,omitempty" validate:"omitempty,dive"`
}

// NewNode builds a node with text and children.
func NewNode(text string, children ...Node) Node {
	return Node{Text: &text, Children: children}
}

// Document is a mindmap as exchanged over the API: {"root": {...}}.
type Document struct {
	Root *Node `json:"root" yaml:"root" validate:"required"`
}

// envelope accepts {mindmap:{root}}, {root} and a bare root node.
type envelope struct {
	Mindmap  *Document `json:"mindmap" yaml:"mindmap"`
	Root     *Node     `json:"root" yaml:"root"`
	Text     *string   `json:"text" yaml:"text"`
	Children []Node    `json:"children" yaml:"children"`
}

func (e envelope) document() (Document, error) {
	switch {
	case e.Mindmap != nil && e.Mindmap.Root != nil:
		return *e.Mindmap, nil
	case e.Root != nil:
		return Document{Root: e.Root}, nil
	case e.Text != nil:
		return Document{Root: &Node{Text: e.Text, Children: e.Children}}, nil
	default:
		return Document{}, fmt.Errorf("%w: no root node", ErrInvalidMindmap)
	}
}

// DecodeJSON reads a mindmap document from JSON.
func DecodeJSON(data []byte) (Document, error) {
	var e envelope
	if err := json.Unmarshal(data, &e); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidMindmap, err)
	}
	return e.document()
}

// DecodeYAML reads a mindmap document from YAML.
func DecodeYAML(data []byte) (Document, error) {
	var e envelope
	if err := yaml.Unmarshal(data, &e); err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidMindmap, err)
	}
	return e.document()
}

// Decode tries JSON first and falls back to YAML.
func Decode(data []byte) (Document, error) {
	doc, err := DecodeJSON(data)
	if err == nil || json.Valid(data) {
		return doc, err
	}
	return DecodeYAML(data)
}

// FromValue converts an already parsed JSON value (as produced by
// jsonrepair.SafeParse) into a Document.
func FromValue(v any) (Document, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrInvalidMindmap, err)
	}
	return DecodeJSON(raw)
}

var (
	// ErrInvalidMindmap reports a document that does not match the node schema.
	ErrInvalidMindmap = errors.New("mindmap structure is invalid")
	// ErrTooDeep reports a tree nested deeper than the configured bound.
	ErrTooDeep = errors.New("mindmap is nested too deeply")
)

// Depth returns the depth of the deepest node below root (root alone is 0).
// It walks the tree without recursion.
func Depth(root *Node) int {
	if root == nil {
		return 0
	}
	type frame struct {
		n     *Node
		depth int
	}
	deepest := 0
	stack := []frame{{root, 0}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if f.depth > deepest {
			deepest = f.depth
		}
		for i := range f.n.Children {
			stack = append(stack, frame{&f.n.Children[i], f.depth + 1})
		}
	}
	return deepest
}
