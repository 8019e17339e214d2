package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/galkinart-netizen/tg-bot-911/internal/store"
)

// ConclusionStore implements store.ConclusionStore on a SQL table.
// Queries use $N placeholders, which both SQLite and Postgres accept.
type ConclusionStore struct {
	db *sql.DB
}

func NewConclusionStore(db *sql.DB) *ConclusionStore {
	return &ConclusionStore{db: db}
}

func (s *ConclusionStore) Get(ctx context.Context, userID string) (*store.ConclusionRecord, error) {
	var rec store.ConclusionRecord
	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT diagnosis, treatment, provider, updated_at FROM conclusions WHERE user_id = $1`, userID,
	).Scan(&rec.Diagnosis, &rec.Treatment, &rec.Provider, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get conclusion: %w", err)
	}
	rec.UpdatedAt = time.Unix(updated, 0).UTC()
	return &rec, nil
}

func (s *ConclusionStore) Put(ctx context.Context, userID string, rec store.ConclusionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conclusions (user_id, diagnosis, treatment, provider, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		   diagnosis = excluded.diagnosis,
		   treatment = excluded.treatment,
		   provider = excluded.provider,
		   updated_at = excluded.updated_at`,
		userID, rec.Diagnosis, rec.Treatment, rec.Provider, rec.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("put conclusion: %w", err)
	}
	return nil
}

func (s *ConclusionStore) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conclusions WHERE updated_at < $1`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("purge conclusions: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}
