package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// parseModelList accepts {data:[...]}, {models:[...]} or a bare array whose
// entries are strings or objects carrying id, name, model or slug.
func parseModelList(raw []byte) ([]ModelInfo, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		var wrapped struct {
			Data   []json.RawMessage `json:"data"`
			Models []json.RawMessage `json:"models"`
		}
		if err := json.Unmarshal(raw, &wrapped); err != nil {
			return nil, fmt.Errorf("llm: decode model list: %w", err)
		}
		entries = wrapped.Data
		if entries == nil {
			entries = wrapped.Models
		}
	}

	out := make([]ModelInfo, 0, len(entries))
	for _, e := range entries {
		var s string
		if json.Unmarshal(e, &s) == nil {
			if s != "" {
				out = append(out, ModelInfo{ID: s, Name: s})
			}
			continue
		}
		var obj struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Model string `json:"model"`
			Slug  string `json:"slug"`
		}
		if json.Unmarshal(e, &obj) != nil {
			continue
		}
		id := firstNonEmpty(obj.ID, obj.Name, obj.Model, obj.Slug)
		if id == "" {
			continue
		}
		out = append(out, ModelInfo{ID: id, Name: firstNonEmpty(obj.Name, obj.ID, obj.Model, obj.Slug)})
	}
	return out, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// ConnectionResult is the outcome of TestConnection.
type ConnectionResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Models  []ModelInfo `json:"models,omitempty"`
}

const connectionPreviewModels = 5

// TestConnection lists models as a cheap reachability probe. Failures are
// reported in the result, never as an error.
func TestConnection(ctx context.Context, p Provider) ConnectionResult {
	models, err := p.ListModels(ctx)
	if err != nil {
		return ConnectionResult{Message: fmt.Sprintf("connection failed: %v", err)}
	}
	if len(models) == 0 {
		return ConnectionResult{Message: "connected, but no models are available"}
	}
	preview := models
	if len(preview) > connectionPreviewModels {
		preview = preview[:connectionPreviewModels]
	}
	return ConnectionResult{
		Success: true,
		Message: fmt.Sprintf("connected, found %d models", len(models)),
		Models:  preview,
	}
}
