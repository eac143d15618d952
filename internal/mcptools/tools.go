// Package mcptools exposes the deterministic canvas helpers as Model Context
// Protocol tools so an agent can lay out mindmaps, snap arrows and repair
// model JSON without going through the HTTP API.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/diagram"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/mindmap"
	"github.com/matiasleandrokruk/smartdraw/pkg/jsonrepair"
)

// Tool names.
const (
	ToolLayoutMindmap  = "layout_mindmap"
	ToolOptimizeArrows = "optimize_arrows"
	ToolRepairJSON     = "repair_json"
)

type LayoutMindmapInput struct {
	Document any      `json:"document" jsonschema:"mindmap document: {\"root\":{...}}, {\"mindmap\":{\"root\":{...}}} or a bare node with text and children"`
	CenterX  *float64 `json:"center_x,omitempty" jsonschema:"x coordinate of the root node"`
	CenterY  *float64 `json:"center_y,omitempty" jsonschema:"y coordinate of the root node"`
}

type OptimizeArrowsInput struct {
	Elements []map[string]any `json:"elements" jsonschema:"canvas elements; arrows bound to shapes through start.id and end.id are snapped to facing edges"`
}

type RepairJSONInput struct {
	Text string `json:"text" jsonschema:"model output that should contain a JSON object or array"`
}

// Tools implements the tool handlers.
type Tools struct {
	validator *mindmap.Validator
	repairer  jsonrepair.Repairer
	logger    *zap.Logger
}

func New(validator *mindmap.Validator, repairer jsonrepair.Repairer, logger *zap.Logger) *Tools {
	if validator == nil {
		validator = mindmap.NewValidator(mindmap.DefaultMaxDepth)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tools{validator: validator, repairer: repairer, logger: logger}
}

// NewServer returns an MCP server with every tool registered.
func (t *Tools) NewServer(version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "smartdraw", Version: version}, nil)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolLayoutMindmap,
		Description: "Lay out a mindmap tree radially and return canvas elements (shapes, then connectors).",
	}, t.LayoutMindmap)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolOptimizeArrows,
		Description: "Snap bound arrows onto the midpoints of the facing edges of their shapes.",
	}, t.OptimizeArrows)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolRepairJSON,
		Description: "Extract and repair the first JSON value in model output (fences, prose, truncation).",
	}, t.RepairJSON)
	return server
}

// Serve runs server over stdin/stdout until ctx is done or the client
// disconnects.
func Serve(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (t *Tools) LayoutMindmap(_ context.Context, _ *mcp.CallToolRequest, in LayoutMindmapInput) (*mcp.CallToolResult, any, error) {
	raw, err := json.Marshal(in.Document)
	if err != nil {
		return toolError(fmt.Errorf("encode document: %w", err)), nil, nil
	}
	doc, err := mindmap.DecodeJSON(raw)
	if err != nil {
		return toolError(err), nil, nil
	}
	var opts mindmap.LayoutOptions
	if in.CenterX != nil {
		opts.Center.X = *in.CenterX
	}
	if in.CenterY != nil {
		opts.Center.Y = *in.CenterY
	}
	elements, err := mindmap.ToElements(doc, t.validator, opts)
	if err != nil {
		t.logger.Info("mcp: invalid mindmap", zap.Error(err))
		return toolError(err), nil, nil
	}
	return jsonResult(map[string]any{"elements": elements})
}

func (t *Tools) OptimizeArrows(_ context.Context, _ *mcp.CallToolRequest, in OptimizeArrowsInput) (*mcp.CallToolResult, any, error) {
	raw, err := json.Marshal(in.Elements)
	if err != nil {
		return toolError(fmt.Errorf("encode elements: %w", err)), nil, nil
	}
	var elements []diagram.Element
	if err := json.Unmarshal(raw, &elements); err != nil {
		return toolError(fmt.Errorf("decode elements: %w", err)), nil, nil
	}
	if elements == nil {
		elements = []diagram.Element{}
	}
	return jsonResult(map[string]any{"elements": diagram.Optimize(elements, t.logger)})
}

func (t *Tools) RepairJSON(_ context.Context, _ *mcp.CallToolRequest, in RepairJSONInput) (*mcp.CallToolResult, any, error) {
	value, err := t.repairer.SafeParse(in.Text)
	if err != nil {
		return toolError(err), nil, nil
	}
	return jsonResult(value)
}

func jsonResult(v any) (*mcp.CallToolResult, any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return toolError(fmt.Errorf("encode result: %w", err)), nil, nil
	}
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: string(b)}}}, nil, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
	}
}
