package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/matiasleandrokruk/smartdraw/internal/domain/history"
)

// timeLayout is fixed-width so text ordering matches time ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// HistoryStore implements history.Store.
type HistoryStore struct {
	db *sql.DB
}

func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

var _ history.Store = (*HistoryStore)(nil)

const historyColumns = "id, chart_type, user_input, generated_code, provider_kind, model, created_at"

func (s *HistoryStore) Insert(ctx context.Context, r history.Record) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO generation_history ("+historyColumns+") VALUES (?, ?, ?, ?, ?, ?, ?)",
		r.ID, r.ChartType, r.UserInput, r.GeneratedCode, r.ProviderKind, r.Model, formatTime(r.CreatedAt))
	return err
}

func (s *HistoryStore) List(ctx context.Context, limit, offset int) ([]history.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+historyColumns+" FROM generation_history ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?",
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []history.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *HistoryStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM generation_history").Scan(&n)
	return n, err
}

func (s *HistoryStore) Get(ctx context.Context, id string) (history.Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+historyColumns+" FROM generation_history WHERE id = ?", id)
	r, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return history.Record{}, history.ErrNotFound
	}
	return r, err
}

func (s *HistoryStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM generation_history WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireAffected(res, history.ErrNotFound)
}

func (s *HistoryStore) DeleteAll(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM generation_history")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (history.Record, error) {
	var (
		r       history.Record
		created string
	)
	if err := sc.Scan(&r.ID, &r.ChartType, &r.UserInput, &r.GeneratedCode, &r.ProviderKind, &r.Model, &created); err != nil {
		return history.Record{}, err
	}
	t, err := parseTime(created)
	if err != nil {
		return history.Record{}, fmt.Errorf("history %s: created_at: %w", r.ID, err)
	}
	r.CreatedAt = t
	return r, nil
}

func requireAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
