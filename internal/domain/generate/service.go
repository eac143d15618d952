// Package generate turns a user request into diagram elements: it prompts a
// provider, relays the streamed text, repairs the structured output and
// snaps connector geometry before handing the result to the canvas.
package generate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/diagram"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/history"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/mindmap"
	"github.com/matiasleandrokruk/smartdraw/internal/domain/profile"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/eventbus"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/llm"
	"github.com/matiasleandrokruk/smartdraw/pkg/jsonrepair"
)

// ErrUnparseableOutput means the model answered but no diagram could be
// recovered from the text.
var ErrUnparseableOutput = errors.New("model output could not be parsed")

// Chunk types, in stream order.
const (
	ChunkToken    = "token"
	ChunkElements = "elements"
	ChunkDone     = "done"
	ChunkError    = "error"
)

// Error kinds carried by ChunkError.
const (
	ErrorKindTransport   = "transport"
	ErrorKindUnparseable = "unparseable"
)

// StreamChunk is one event of a streaming generation.
type StreamChunk struct {
	Type     string            `json:"type"`
	Delta    string            `json:"delta,omitempty"`
	Elements []diagram.Element `json:"elements,omitempty"`
	Code     string            `json:"code,omitempty"`
	Kind     string            `json:"kind,omitempty"`
	Status   int               `json:"status,omitempty"`
	Error    string            `json:"error,omitempty"`
	Done     bool              `json:"done,omitempty"`
}

// MindmapResult is the outcome of GenerateMindmap.
type MindmapResult struct {
	Mindmap  mindmap.Document  `json:"mindmap"`
	Elements []diagram.Element `json:"elements"`
}

// ProviderResolver returns the provider for a request-supplied config, or
// the server default when cfg is nil.
type ProviderResolver interface {
	Resolve(ctx context.Context, cfg *llm.ProviderConfig) (llm.Provider, error)
}

// ActiveProfiles supplies the active saved profile.
type ActiveProfiles interface {
	Active(ctx context.Context) (profile.Profile, error)
}

// Publisher receives finished generations.
type Publisher interface {
	Publish(topic string, payload any)
}

// Recorder receives generation metrics.
type Recorder interface {
	GenerationFinished(kind, outcome string, d time.Duration)
	RepairAttempted(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) GenerationFinished(string, string, time.Duration) {}
func (nopRecorder) RepairAttempted(string)                           {}

// Service runs generations.
type Service struct {
	providers ProviderResolver
	profiles  ActiveProfiles
	publisher Publisher
	recorder  Recorder
	repairer  jsonrepair.Repairer
	validator *mindmap.Validator
	logger    *zap.Logger
	tracer    trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

func WithProfiles(p ActiveProfiles) Option             { return func(s *Service) { s.profiles = p } }
func WithPublisher(p Publisher) Option                 { return func(s *Service) { s.publisher = p } }
func WithRecorder(r Recorder) Option                   { return func(s *Service) { s.recorder = r } }
func WithRepairer(r jsonrepair.Repairer) Option        { return func(s *Service) { s.repairer = r } }
func WithMindmapValidator(v *mindmap.Validator) Option { return func(s *Service) { s.validator = v } }
func WithLogger(l *zap.Logger) Option                  { return func(s *Service) { s.logger = l } }

func NewService(providers ProviderResolver, opts ...Option) *Service {
	s := &Service{
		providers: providers,
		recorder:  nopRecorder{},
		repairer:  jsonrepair.Default,
		logger:    zap.NewNop(),
		tracer:    otel.Tracer("github.com/matiasleandrokruk/smartdraw/internal/domain/generate"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = mindmap.NewValidator(mindmap.DefaultMaxDepth)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// resolve picks the request config, then the active profile, then the
// server default.
func (s *Service) resolve(ctx context.Context, cfg *llm.ProviderConfig) (llm.Provider, string, error) {
	if cfg == nil && s.profiles != nil {
		p, err := s.profiles.Active(ctx)
		switch {
		case err == nil:
			pc := p.ProviderConfig()
			cfg = &pc
		case !errors.Is(err, profile.ErrNoActive):
			return nil, "", fmt.Errorf("load active profile: %w", err)
		}
	}
	provider, err := s.providers.Resolve(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	model := ""
	if cfg != nil {
		model = cfg.Model
	}
	return provider, model, nil
}

func buildMessages(system string, ct ChartType, in Input) []llm.Message {
	msgs := []llm.Message{{Role: llm.RoleSystem, Content: system}}
	if in.Image != nil {
		img := *in.Image
		return append(msgs, llm.Message{Role: llm.RoleUser, Content: imagePrompt(ct, in.UserInput), Image: &img})
	}
	return append(msgs, llm.Message{Role: llm.RoleUser, Content: userPrompt(ct, in.UserInput)})
}

// Generate streams a diagram. Token chunks arrive in provider order, then one
// elements chunk and a done chunk. A failure before the provider sent
// anything is returned directly; later failures end the stream with an
// error chunk. The channel is closed when the generation ends or ctx is done.
func (s *Service) Generate(ctx context.Context, in Input) (<-chan StreamChunk, error) {
	ct, err := in.Validate()
	if err != nil {
		return nil, err
	}
	provider, model, err := s.resolve(ctx, in.Config)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "generate.diagram", trace.WithAttributes(
		attribute.String("chart_type", string(ct)),
		attribute.String("provider.kind", string(provider.Kind())),
		attribute.Bool("image", in.Image != nil),
	))
	started := time.Now()
	req := llm.ChatRequest{Messages: buildMessages(DiagramSystemPrompt, ct, in)}

	out := make(chan StreamChunk, 16)
	first := make(chan error, 1)
	go func() {
		defer close(out)
		defer span.End()

		signaled := false
		signal := func(err error) {
			if !signaled {
				signaled = true
				first <- err
			}
		}
		emit := func(c StreamChunk) bool {
			select {
			case out <- c:
				return true
			case <-ctx.Done():
				return false
			}
		}
		finish := func(outcome string, err error) {
			span.SetAttributes(attribute.String("outcome", outcome))
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, outcome)
			}
			s.recorder.GenerationFinished("diagram", outcome, time.Since(started))
		}

		resp, err := provider.StreamChat(ctx, req, func(fragment string) error {
			signal(nil)
			if !emit(StreamChunk{Type: ChunkToken, Delta: fragment}) {
				return ctx.Err()
			}
			return nil
		})
		if err != nil {
			if !signaled && isTransport(err) {
				finish(ErrorKindTransport, err)
				signal(err)
				return
			}
			signal(nil)
			if ctx.Err() != nil {
				finish("cancelled", ctx.Err())
				return
			}
			finish(ErrorKindTransport, err)
			emit(errorChunk(err))
			return
		}
		signal(nil)

		elements, code, err := s.parseElements(resp.Content)
		if err != nil {
			s.logger.Warn("generate: unparseable model output", zap.Error(err), zap.Int("length", len(resp.Content)))
			finish(ErrorKindUnparseable, err)
			emit(errorChunk(err))
			return
		}
		if !emit(StreamChunk{Type: ChunkElements, Elements: elements, Code: code}) {
			finish("cancelled", ctx.Err())
			return
		}
		s.publish(history.Entry{
			ChartType:     string(ct),
			UserInput:     in.UserInput,
			GeneratedCode: code,
			ProviderKind:  string(provider.Kind()),
			Model:         model,
		})
		finish("ok", nil)
		emit(StreamChunk{Type: ChunkDone, Done: true})
	}()

	select {
	case err := <-first:
		if err != nil {
			return nil, err
		}
		return out, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GenerateMindmap asks for a mindmap tree, validates it and lays it out.
func (s *Service) GenerateMindmap(ctx context.Context, in Input) (*MindmapResult, error) {
	if _, err := in.Validate(); err != nil {
		return nil, err
	}
	provider, model, err := s.resolve(ctx, in.Config)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "generate.mindmap", trace.WithAttributes(
		attribute.String("provider.kind", string(provider.Kind())),
	))
	defer span.End()
	started := time.Now()

	res, outcome, err := s.mindmap(ctx, provider, in)
	span.SetAttributes(attribute.String("outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	s.recorder.GenerationFinished("mindmap", outcome, time.Since(started))
	if err != nil {
		return nil, err
	}

	code, err := json.Marshal(res.Elements)
	if err == nil {
		s.publish(history.Entry{
			ChartType:     "mindmap",
			UserInput:     in.UserInput,
			GeneratedCode: string(code),
			ProviderKind:  string(provider.Kind()),
			Model:         model,
		})
	}
	return res, nil
}

func (s *Service) mindmap(ctx context.Context, provider llm.Provider, in Input) (*MindmapResult, string, error) {
	resp, err := provider.StreamChat(ctx, llm.ChatRequest{Messages: buildMessages(MindmapSystemPrompt, ChartType("mindmap"), in)}, nil)
	if err != nil {
		return nil, ErrorKindTransport, err
	}

	value, err := s.repairer.SafeParse(resp.Content)
	if err != nil {
		s.recorder.RepairAttempted("failed")
		return nil, ErrorKindUnparseable, fmt.Errorf("%w: %w", ErrUnparseableOutput, err)
	}
	s.recorder.RepairAttempted("ok")

	doc, err := mindmap.FromValue(value)
	if err != nil {
		return nil, "invalid", err
	}
	if err := s.validator.Validate(doc); err != nil {
		return nil, "invalid", err
	}
	layout, err := mindmap.Layout(doc.Root, mindmap.LayoutOptions{MaxDepth: s.validator.MaxDepth()})
	if err != nil {
		return nil, "invalid", err
	}
	return &MindmapResult{
		Mindmap:  doc,
		Elements: diagram.Optimize(layout.Elements(), s.logger),
	}, "ok", nil
}

// parseElements recovers the element array from model text and returns it
// with its indented JSON. A top-level object carrying an "elements" array is
// accepted as well. An array whose entries do not fit the element schema is
// returned as code only, without arrow optimization.
func (s *Service) parseElements(text string) ([]diagram.Element, string, error) {
	value, err := s.repairer.SafeParse(text)
	if err != nil {
		s.recorder.RepairAttempted("failed")
		return nil, "", fmt.Errorf("%w: %w", ErrUnparseableOutput, err)
	}
	if obj, ok := value.(map[string]any); ok {
		if inner, ok := obj["elements"]; ok {
			value = inner
		}
	}
	if _, ok := value.([]any); !ok {
		s.recorder.RepairAttempted("failed")
		return nil, "", fmt.Errorf("%w: expected an element array, got %T", ErrUnparseableOutput, value)
	}
	s.recorder.RepairAttempted("ok")

	raw, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil, "", err
	}
	var elements []diagram.Element
	if err := json.Unmarshal(raw, &elements); err != nil {
		s.logger.Warn("generate: arrow optimization skipped: elements did not decode", zap.Error(err))
		return nil, string(raw), nil
	}
	elements = diagram.Optimize(elements, s.logger)
	code, err := json.MarshalIndent(elements, "", "  ")
	if err != nil {
		return nil, "", err
	}
	return elements, string(code), nil
}

func (s *Service) publish(e history.Entry) {
	if s.publisher != nil {
		s.publisher.Publish(eventbus.TopicDiagramGenerated, e)
	}
}

func isTransport(err error) bool {
	var te *llm.TransportError
	return errors.As(err, &te) || errors.Is(err, llm.ErrProviderUnavailable)
}

func errorChunk(err error) StreamChunk {
	c := StreamChunk{Type: ChunkError, Error: err.Error(), Kind: ErrorKindTransport}
	if errors.Is(err, ErrUnparseableOutput) {
		c.Kind = ErrorKindUnparseable
		c.Error = ErrUnparseableOutput.Error()
	}
	var te *llm.TransportError
	if errors.As(err, &te) {
		c.Status = te.StatusCode
	}
	return c
}
