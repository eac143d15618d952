package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/profile"
	"github.com/matiasleandrokruk/smartdraw/internal/infra/llm"
)

// ProfileStore implements profile.Store.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) *ProfileStore {
	return &ProfileStore{db: db}
}

var _ profile.Store = (*ProfileStore)(nil)

const profileColumns = "id, name, kind, base_url, api_key, model, description, is_active, created_at, updated_at"

func (s *ProfileStore) Insert(ctx context.Context, p profile.Profile) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO provider_profiles ("+profileColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID, p.Name, string(p.Kind), p.BaseURL, p.APIKey, p.Model, p.Description, boolInt(p.Active),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	return err
}

func (s *ProfileStore) Update(ctx context.Context, p profile.Profile) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE provider_profiles
		SET name = ?, kind = ?, base_url = ?, api_key = ?, model = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		p.Name, string(p.Kind), p.BaseURL, p.APIKey, p.Model, p.Description, formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return err
	}
	return requireAffected(res, profile.ErrNotFound)
}

func (s *ProfileStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM provider_profiles WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, profile.ErrNotFound)
}

func (s *ProfileStore) Get(ctx context.Context, id string) (profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM provider_profiles WHERE id = ?", id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, profile.ErrNotFound
	}
	return p, err
}

// List returns profiles most recently created first.
func (s *ProfileStore) List(ctx context.Context) ([]profile.Profile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+profileColumns+" FROM provider_profiles ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []profile.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// SetActive clears the active flag everywhere and sets it on id, atomically.
func (s *ProfileStore) SetActive(ctx context.Context, id string, at time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "UPDATE provider_profiles SET is_active = 0 WHERE is_active = 1"); err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, "UPDATE provider_profiles SET is_active = 1, updated_at = ? WHERE id = ?", formatTime(at), id)
	if err != nil {
		return err
	}
	if err := requireAffected(res, profile.ErrNotFound); err != nil {
		return err
	}
	return tx.Commit()
}

func scanProfile(sc scanner) (profile.Profile, error) {
	var (
		p                profile.Profile
		kind             string
		created, updated string
	)
	if err := sc.Scan(&p.ID, &p.Name, &kind, &p.BaseURL, &p.APIKey, &p.Model, &p.Description, &p.Active, &created, &updated); err != nil {
		return profile.Profile{}, err
	}
	p.Kind = llm.ProviderKind(kind)
	var err error
	if p.CreatedAt, err = parseTime(created); err != nil {
		return profile.Profile{}, fmt.Errorf("profile %s: created_at: %w", p.ID, err)
	}
	if p.UpdatedAt, err = parseTime(updated); err != nil {
		return profile.Profile{}, fmt.Errorf("profile %s: updated_at: %w", p.ID, err)
	}
	return p, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
