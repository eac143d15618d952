// Package profile manages saved provider configurations. At most one profile
// is active; generation requests without their own config use it.
package profile

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/matiasleandrokruk/smartdraw/internal/infra/llm"
)

var (
	// ErrNotFound is returned for unknown profile ids.
	ErrNotFound = errors.New("profile not found")
	// ErrNoActive is returned by Active when no profile exists.
	ErrNoActive = errors.New("no active profile")
)

// Profile is a saved provider configuration.
type Profile struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Kind        llm.ProviderKind `json:"type"`
	BaseURL     string           `json:"baseUrl"`
	APIKey      string           `json:"apiKey"`
	Model       string           `json:"model"`
	Description string           `json:"description,omitempty"`
	Active      bool             `json:"isActive"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// ProviderConfig returns the llm config the profile describes.
func (p Profile) ProviderConfig() llm.ProviderConfig {
	return llm.ProviderConfig{Kind: p.Kind, BaseURL: p.BaseURL, APIKey: p.APIKey, Model: p.Model}
}

// Masked returns a copy safe to show: the api key keeps only its last four
// characters.
func (p Profile) Masked() Profile {
	p.APIKey = MaskKey(p.APIKey)
	return p
}

// MaskKey hides all but the last four characters of key.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", 8) + key[len(key)-4:]
}

// Input is the user-editable part of a profile.
type Input struct {
	Name        string `json:"name" validate:"required,max=100"`
	Kind        string `json:"type" validate:"required,oneof=openai anthropic openai-compatible anthropic-compatible"`
	BaseURL     string `json:"baseUrl" validate:"required,url"`
	APIKey      string `json:"apiKey" validate:"required"`
	Model       string `json:"model" validate:"required"`
	Description string `json:"description" validate:"max=500"`
}

// ValidationError lists the fields that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, tag := range e.Fields {
		parts = append(parts, f+" ("+tag+")")
	}
	sort.Strings(parts)
	return "invalid profile: " + strings.Join(parts, ", ")
}

// Store persists profiles. SetActive must leave exactly the given profile
// active.
type Store interface {
	Insert(ctx context.Context, p Profile) error
	Update(ctx context.Context, p Profile) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	SetActive(ctx context.Context, id string, at time.Time) error
}

// Service manages profiles over an injected Store.
type Service struct {
	store    Store
	validate *validator.Validate
	now      func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:    store,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

func (s *Service) check(in Input) (llm.ProviderKind, error) {
	if err := s.validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return "", err
		}
		ve := &ValidationError{Fields: make(map[string]string, len(verrs))}
		for _, fe := range verrs {
			ve.Fields[fe.Field()] = fe.Tag()
		}
		return "", ve
	}
	return llm.ParseProviderKind(in.Kind)
}

// Create saves a new profile. The first profile becomes active.
func (s *Service) Create(ctx context.Context, in Input) (Profile, error) {
	kind, err := s.check(in)
	if err != nil {
		return Profile{}, err
	}
	existing, err := s.store.List(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("profile: list: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return Profile{}, fmt.Errorf("profile: new id: %w", err)
	}
	now := s.now().UTC()
	p := Profile{
		ID:          id.String(),
		Name:        in.Name,
		Kind:        kind,
		BaseURL:     in.BaseURL,
		APIKey:      in.APIKey,
		Model:       in.Model,
		Description: in.Description,
		Active:      len(existing) == 0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return Profile{}, fmt.Errorf("profile: insert: %w", err)
	}
	return p, nil
}

// Update replaces the editable fields of profile id.
func (s *Service) Update(ctx context.Context, id string, in Input) (Profile, error) {
	kind, err := s.check(in)
	if err != nil {
		return Profile{}, err
	}
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return Profile{}, err
	}
	p.Name = in.Name
	p.Kind = kind
	p.BaseURL = in.BaseURL
	p.APIKey = in.APIKey
	p.Model = in.Model
	p.Description = in.Description
	p.UpdatedAt = s.now().UTC()
	if err := s.store.Update(ctx, p); err != nil {
		return Profile{}, fmt.Errorf("profile: update: %w", err)
	}
	return p, nil
}

// Delete removes profile id. When it was active, the most recently created
// remaining profile becomes active.
func (s *Service) Delete(ctx context.Context, id string) error {
	p, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	if !p.Active {
		return nil
	}
	rest, err := s.store.List(ctx)
	if err != nil {
		return fmt.Errorf("profile: list: %w", err)
	}
	if len(rest) == 0 {
		return nil
	}
	return s.store.SetActive(ctx, rest[0].ID, s.now().UTC())
}

// List returns all profiles, most recently created first.
func (s *Service) List(ctx context.Context) ([]Profile, error) {
	return s.store.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (Profile, error) {
	return s.store.Get(ctx, id)
}

// Activate makes id the only active profile.
func (s *Service) Activate(ctx context.Context, id string) (Profile, error) {
	if _, err := s.store.Get(ctx, id); err != nil {
		return Profile{}, err
	}
	if err := s.store.SetActive(ctx, id, s.now().UTC()); err != nil {
		return Profile{}, fmt.Errorf("profile: activate: %w", err)
	}
	return s.store.Get(ctx, id)
}

// Active returns the active profile or ErrNoActive.
func (s *Service) Active(ctx context.Context) (Profile, error) {
	all, err := s.store.List(ctx)
	if err != nil {
		return Profile{}, fmt.Errorf("profile: list: %w", err)
	}
	for _, p := range all {
		if p.Active {
			return p, nil
		}
	}
	return Profile{}, ErrNoActive
}
