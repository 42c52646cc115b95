package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("heat score not found")

// getMultiBatchSize bounds the id list per ANY() query.
const getMultiBatchSize = 100

const defaultMaxAgeHours = 72

const columns = `id, news_id, source_id, title, url,
	heat_score, relevance_score, recency_score, popularity_score,
	meta_data, keywords, calculated_at, published_at, updated_at`

// Store runs heat-score queries against either a live *sqlx.DB (each write
// auto-commits) or a Session transaction.
type Store struct {
	ext     sqlx.ExtContext
	timeout time.Duration
}

// New creates a Store over a database handle.
func New(db *sqlx.DB, timeout time.Duration) *Store {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Store{ext: db, timeout: timeout}
}

// Begin opens a Session whose Store shares one transaction. The scheduler
// uses this for its commit-on-clean, rollback-on-error task envelope.
func (s *Store) Begin(ctx context.Context) (*Session, error) {
	db, ok := s.ext.(*sqlx.DB)
	if !ok {
		return nil, errors.New("cannot begin a session inside a session")
	}
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin session: %w", err)
	}
	return &Session{
		tx:    tx,
		store: &Store{ext: tx, timeout: s.timeout},
	}, nil
}

// Create inserts a new calculation result. Timestamps are converted to UTC
// and written without offsets; calculated_at and updated_at are set here.
func (s *Store) Create(ctx context.Context, hs *HeatScore) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if hs.ID == "" {
		hs.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	hs.CalculatedAt = now
	hs.UpdatedAt = now
	hs.PublishedAt = hs.PublishedAt.UTC()

	query := `
		INSERT INTO news_heat_scores (` + columns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := s.ext.ExecContext(ctx, query,
		hs.ID, hs.NewsID, hs.SourceID, hs.Title, hs.URL,
		hs.HeatScore, hs.RelevanceScore, hs.RecencyScore, hs.PopularityScore,
		hs.Meta, hs.Keywords, hs.CalculatedAt, hs.PublishedAt, hs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert heat score: %w", err)
	}
	return nil
}

// GetByID fetches a single row by primary key.
func (s *Store) GetByID(ctx context.Context, id string) (*HeatScore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var hs HeatScore
	query := `SELECT ` + columns + ` FROM news_heat_scores WHERE id = $1`
	if err := sqlx.GetContext(ctx, s.ext, &hs, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get heat score %s: %w", id, err)
	}
	return &hs, nil
}

// GetLatestByNewsID fetches the most recent calculation for a news item.
func (s *Store) GetLatestByNewsID(ctx context.Context, newsID string) (*HeatScore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var hs HeatScore
	query := `
		SELECT ` + columns + ` FROM news_heat_scores
		WHERE news_id = $1
		ORDER BY calculated_at DESC
		LIMIT 1`
	if err := sqlx.GetContext(ctx, s.ext, &hs, query, newsID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get heat score for news %s: %w", newsID, err)
	}
	return &hs, nil
}

// GetMultiByNewsIDs fetches the latest calculation per news id. The id list
// is queried in batches so arbitrarily large requests stay bounded; missing
// ids are simply absent from the result map.
func (s *Store) GetMultiByNewsIDs(ctx context.Context, newsIDs []string) (map[string]*HeatScore, error) {
	scores := make(map[string]*HeatScore, len(newsIDs))
	if len(newsIDs) == 0 {
		return scores, nil
	}

	query := `
		SELECT ` + columns + ` FROM news_heat_scores
		WHERE news_id = ANY($1)
		ORDER BY calculated_at DESC`

	for start := 0; start < len(newsIDs); start += getMultiBatchSize {
		end := start + getMultiBatchSize
		if end > len(newsIDs) {
			end = len(newsIDs)
		}
		batch := newsIDs[start:end]

		err := func() error {
			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()

			var rows []HeatScore
			if err := sqlx.SelectContext(ctx, s.ext, &rows, query, pq.Array(batch)); err != nil {
				return fmt.Errorf("failed to get heat scores batch: %w", err)
			}
			// Rows come back newest first, keep the first per news id.
			for i := range rows {
				if _, seen := scores[rows[i].NewsID]; !seen {
					scores[rows[i].NewsID] = &rows[i]
				}
			}
			return nil
		}()
		if err != nil {
			return nil, err
		}
	}
	return scores, nil
}

// TopQuery filters GetTop. Zero Limit means 50; zero MaxAgeHours means 72.
type TopQuery struct {
	Limit       int
	Skip        int
	MinScore    *float64
	MaxAgeHours int
	// Categories OR-combine over the derived category in meta_data.
	Categories []string
}

// GetTop lists rows ordered by heat score descending within the recency
// window.
func (s *Store) GetTop(ctx context.Context, q TopQuery) ([]HeatScore, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if q.Limit == 0 {
		q.Limit = 50
	}
	if q.MaxAgeHours == 0 {
		q.MaxAgeHours = defaultMaxAgeHours
	}
	minTime := time.Now().UTC().Add(-time.Duration(q.MaxAgeHours) * time.Hour)

	query := `SELECT ` + columns + ` FROM news_heat_scores WHERE published_at >= $1`
	args := []any{minTime}

	if q.MinScore != nil {
		args = append(args, *q.MinScore)
		query += fmt.Sprintf(" AND heat_score >= $%d", len(args))
	}
	if len(q.Categories) > 0 {
		args = append(args, pq.Array(q.Categories))
		query += fmt.Sprintf(" AND meta_data->>'category' = ANY($%d)", len(args))
	}

	args = append(args, q.Limit)
	query += fmt.Sprintf(" ORDER BY heat_score DESC LIMIT $%d", len(args))
	args = append(args, q.Skip)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	var rows []HeatScore
	if err := sqlx.SelectContext(ctx, s.ext, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get top heat scores: %w", err)
	}
	return rows, nil
}

// Update rewrites a row in place, refreshing updated_at. The original
// calculated_at is kept.
func (s *Store) Update(ctx context.Context, hs *HeatScore) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	hs.UpdatedAt = time.Now().UTC()
	hs.PublishedAt = hs.PublishedAt.UTC()

	query := `
		UPDATE news_heat_scores
		SET news_id = $2, source_id = $3, title = $4, url = $5,
		    heat_score = $6, relevance_score = $7, recency_score = $8,
		    popularity_score = $9, meta_data = $10, keywords = $11,
		    published_at = $12, updated_at = $13
		WHERE id = $1`

	res, err := s.ext.ExecContext(ctx, query,
		hs.ID, hs.NewsID, hs.SourceID, hs.Title, hs.URL,
		hs.HeatScore, hs.RelevanceScore, hs.RecencyScore, hs.PopularityScore,
		hs.Meta, hs.Keywords, hs.PublishedAt, hs.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update heat score %s: %w", hs.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a row by primary key.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.ext.ExecContext(ctx, `DELETE FROM news_heat_scores WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete heat score %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// BackfillCategories derives a category for rows that lack one and stores
// it in meta_data. categorize maps a source id to its category name.
func (s *Store) BackfillCategories(ctx context.Context, limit int, categorize func(sourceID string) string) (int, error) {
	if limit == 0 {
		limit = 1000
	}

	var rows []HeatScore
	err := func() error {
		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		query := `
			SELECT ` + columns + ` FROM news_heat_scores
			WHERE meta_data IS NULL OR meta_data->>'category' IS NULL
			LIMIT $1`
		return sqlx.SelectContext(ctx, s.ext, &rows, query, limit)
	}()
	if err != nil {
		return 0, fmt.Errorf("failed to list rows without category: %w", err)
	}

	updated := 0
	for i := range rows {
		hs := &rows[i]
		if hs.Meta == nil {
			hs.Meta = Meta{}
		}
		hs.Meta["category"] = categorize(hs.SourceID)

		err := func() error {
			ctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			_, err := s.ext.ExecContext(ctx,
				`UPDATE news_heat_scores SET meta_data = $2, updated_at = $3 WHERE id = $1`,
				hs.ID, hs.Meta, time.Now().UTC())
			return err
		}()
		if err != nil {
			log.Warn().Err(err).Str("id", hs.ID).Msg("Failed to backfill category")
			continue
		}
		updated++
	}
	return updated, nil
}

// Session wraps one transaction.
type Session struct {
	tx    *sqlx.Tx
	store *Store
	done  bool
}

// Store returns the transaction-bound store.
func (s *Session) Store() *Store { return s.store }

// Commit finishes the transaction.
func (s *Session) Commit() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit session: %w", err)
	}
	return nil
}

// Rollback discards the transaction. Safe to call after Commit.
func (s *Session) Rollback() error {
	if s.done {
		return nil
	}
	s.done = true
	if err := s.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("failed to roll back session: %w", err)
	}
	return nil
}
