package handlers

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/generate"
)

type GenerateService interface {
	Generate(ctx context.Context, in generate.Input) (<-chan generate.StreamChunk, error)
	GenerateMindmap(ctx context.Context, in generate.Input) (*generate.MindmapResult, error)
}

type GenerateHandler struct {
	service GenerateService
	logger  *zap.Logger
}

func NewGenerateHandler(service GenerateService, logger *zap.Logger) *GenerateHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenerateHandler{service: service, logger: logger}
}

// Generate handles POST /api/v1/generate. The response is an SSE stream of
// generate.StreamChunk frames; failures before the stream opens are plain
// JSON errors.
func (h *GenerateHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var in generate.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	stream, err := h.service.Generate(r.Context(), in)
	if err != nil {
		h.logFailure("generate", err)
		writeDomainError(w, err)
		return
	}

	bw, flusher, err := prepareEventStream(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}
	streamChunks(bw, flusher, stream)
}

// Mindmap handles POST /api/v1/mindmap.
func (h *GenerateHandler) Mindmap(w http.ResponseWriter, r *http.Request) {
	var in generate.Input
	if !decodeJSON(w, r, &in) {
		return
	}

	res, err := h.service.GenerateMindmap(r.Context(), in)
	if err != nil {
		h.logFailure("mindmap", err)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ChartTypes handles GET /api/v1/chart-types.
func (h *GenerateHandler) ChartTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"data": generate.ChartTypes()})
}

func (h *GenerateHandler) logFailure(op string, err error) {
	if isTransportFailure(err) {
		h.logger.Error("provider request failed", zap.String("op", op), zap.Error(err))
		return
	}
	h.logger.Info("generation rejected", zap.String("op", op), zap.Error(err))
}

func prepareEventStream(w http.ResponseWriter) (*bufio.Writer, http.Flusher, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Flusher")
	}

	w.Header().Set(headerContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return bufio.NewWriter(w), flusher, nil
}

// streamChunks writes frames until the stream closes. A write failure means
// the client went away; the remaining chunks are drained so the producer is
// not left blocked until its context is cancelled.
func streamChunks(bw *bufio.Writer, flusher http.Flusher, stream <-chan generate.StreamChunk) {
	for chunk := range stream {
		b, _ := json.Marshal(chunk)
		if _, err := fmt.Fprintf(bw, "data: %s\n\n", b); err != nil {
			break
		}
		if err := bw.Flush(); err != nil {
			break
		}
		flusher.Flush()
	}
	for range stream {
	}
}
