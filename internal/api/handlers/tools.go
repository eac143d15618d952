package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/diagram"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/mindmap"
	"github.com/matiasleandrokruk/smartdraw/pkg/jsonrepair"
)

// ToolsHandler serves the deterministic canvas helpers: mindmap layout,
// arrow optimization and JSON repair. None of them call a provider.
type ToolsHandler struct {
	validator *mindmap.Validator
	repairer  jsonrepair.Repairer
	logger    *zap.Logger
}

func NewToolsHandler(validator *mindmap.Validator, repairer jsonrepair.Repairer, logger *zap.Logger) *ToolsHandler {
	if validator == nil {
		validator = mindmap.NewValidator(mindmap.DefaultMaxDepth)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolsHandler{validator: validator, repairer: repairer, logger: logger}
}

type elementsResponse struct {
	Elements []diagram.Element `json:"elements"`
}

type layoutCenter struct {
	Center *struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	} `json:"center"`
}

// LayoutMindmap handles POST /api/v1/layout/mindmap. The body is a mindmap
// document ({"mindmap":{"root":...}}, {"root":...} or a bare node) with an
// optional "center" point.
func (h *ToolsHandler) LayoutMindmap(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r)
	if !ok {
		return
	}

	doc, err := mindmap.DecodeJSON(raw)
	if err != nil {
		h.logger.Info("layout: invalid mindmap", zap.Error(err))
		writeDomainError(w, err)
		return
	}
	var opts mindmap.LayoutOptions
	var c layoutCenter
	if json.Unmarshal(raw, &c) == nil && c.Center != nil {
		opts.Center = diagram.Point{X: c.Center.X, Y: c.Center.Y}
	}

	elements, err := mindmap.ToElements(doc, h.validator, opts)
	if err != nil {
		h.logger.Info("layout: invalid mindmap", zap.Error(err))
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, elementsResponse{Elements: elements})
}

type optimizeRequest struct {
	Elements []diagram.Element `json:"elements"`
	Code     *string           `json:"code"`
}

// Optimize handles POST /api/v1/optimize. It accepts either an element array
// ({"elements":[...]}) or model text ({"code":"..."}) and answers in kind.
func (h *ToolsHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req optimizeRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Code != nil {
		writeJSON(w, http.StatusOK, map[string]string{"code": diagram.OptimizeCode(*req.Code, h.logger)})
		return
	}
	if req.Elements == nil {
		writeError(w, http.StatusBadRequest, "elements or code is required")
		return
	}
	writeJSON(w, http.StatusOK, elementsResponse{Elements: diagram.Optimize(req.Elements, h.logger)})
}

type repairRequest struct {
	Text string `json:"text"`
}

type repairResponse struct {
	Repaired string `json:"repaired"`
	Value    any    `json:"value"`
}

type repairFailure struct {
	Error     string `json:"error"`
	Candidate string `json:"candidate,omitempty"`
}

// Repair handles POST /api/v1/repair.
func (h *ToolsHandler) Repair(w http.ResponseWriter, r *http.Request) {
	var req repairRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	value, err := h.repairer.SafeParse(req.Text)
	if err != nil {
		resp := repairFailure{Error: err.Error()}
		var perr *jsonrepair.ParseError
		if errors.As(err, &perr) {
			resp.Candidate = perr.Candidate
		}
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	repaired, err := json.Marshal(value)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response")
		return
	}
	writeJSON(w, http.StatusOK, repairResponse{Repaired: string(repaired), Value: value})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return nil, false
		}
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	return raw, true
}
