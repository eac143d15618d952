// Package history keeps the generation history: one record per finished
// diagram, newest first.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/matiasleandrokruk/smartdraw/internal/infra/eventbus"
)

// ErrNotFound is returned for unknown record ids.
var ErrNotFound = errors.New("history record not found")

// Record is one saved generation.
type Record struct {
	ID            string    `json:"id"`
	ChartType     string    `json:"chartType"`
	UserInput     string    `json:"userInput"`
	GeneratedCode string    `json:"generatedCode"`
	ProviderKind  string    `json:"providerKind,omitempty"`
	Model         string    `json:"model,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Entry is what a finished generation reports. It never carries credentials.
type Entry struct {
	ChartType     string
	UserInput     string
	GeneratedCode string
	ProviderKind  string
	Model         string
}

// Store persists records.
type Store interface {
	Insert(ctx context.Context, r Record) error
	List(ctx context.Context, limit, offset int) ([]Record, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) (int64, error)
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
	defaultChart    = "auto"
)

// Page is one slice of the history plus the total record count.
type Page struct {
	Items []Record `json:"items"`
	Total int      `json:"total"`
}

// Service manages history over an injected Store.
type Service struct {
	store  Store
	logger *zap.Logger
	now    func() time.Time
}

func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Add saves e as a new record.
func (s *Service) Add(ctx context.Context, e Entry) (Record, error) {
	if e.GeneratedCode == "" {
		return Record{}, fmt.Errorf("history: generated code is empty")
	}
	if e.ChartType == "" {
		e.ChartType = defaultChart
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Record{}, fmt.Errorf("history: new id: %w", err)
	}
	r := Record{
		ID:            id.String(),
		ChartType:     e.ChartType,
		UserInput:     e.UserInput,
		GeneratedCode: e.GeneratedCode,
		ProviderKind:  e.ProviderKind,
		Model:         e.Model,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.store.Insert(ctx, r); err != nil {
		return Record{}, fmt.Errorf("history: insert: %w", err)
	}
	return r, nil
}

// List returns records newest first. limit <= 0 selects DefaultPageSize and
// limits are capped at MaxPageSize.
func (s *Service) List(ctx context.Context, limit, offset int) (Page, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	total, err := s.store.Count(ctx)
	if err != nil {
		return Page{}, fmt.Errorf("history: count: %w", err)
	}
	items, err := s.store.List(ctx, limit, offset)
	if err != nil {
		return Page{}, fmt.Errorf("history: list: %w", err)
	}
	if items == nil {
		items = []Record{}
	}
	return Page{Items: items, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, id string) (Record, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.store.Delete(ctx, id)
}

// Clear removes every record and reports how many were removed.
func (s *Service) Clear(ctx context.Context) (int64, error) {
	return s.store.DeleteAll(ctx)
}

// Start records every Entry published on eventbus.TopicDiagramGenerated until
// ctx is done or the subscription is closed. The returned channel is closed
// when the consumer has stopped.
func (s *Service) Start(ctx context.Context, bus eventbus.EventBus) <-chan struct{} {
	events := bus.Subscribe(eventbus.TopicDiagramGenerated)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer bus.Unsubscribe(eventbus.TopicDiagramGenerated, events)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-events:
				if !ok {
					return
				}
				s.consume(ctx, evt)
			}
		}
	}()
	return done
}

func (s *Service) consume(ctx context.Context, evt eventbus.Event) {
	e, ok := evt.Payload.(Entry)
	if !ok {
		s.logger.Warn("history: unexpected event payload", zap.String("topic", evt.Topic), zap.String("type", fmt.Sprintf("%T", evt.Payload)))
		return
	}
	if _, err := s.Add(ctx, e); err != nil {
		s.logger.Error("history: record generation", zap.Error(err))
	}
}
