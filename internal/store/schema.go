package store

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Schema for the news_heat_scores table. Timestamp columns are deliberately
// TIMESTAMP WITHOUT TIME ZONE; writers normalize to UTC before insert.
const schema = `
CREATE TABLE IF NOT EXISTS news_heat_scores (
	id               TEXT PRIMARY KEY,
	news_id          TEXT NOT NULL,
	source_id        TEXT NOT NULL,
	title            TEXT NOT NULL,
	url              TEXT NOT NULL,
	heat_score       DOUBLE PRECISION NOT NULL,
	relevance_score  DOUBLE PRECISION,
	recency_score    DOUBLE PRECISION,
	popularity_score DOUBLE PRECISION,
	meta_data        JSONB,
	keywords         JSONB,
	calculated_at    TIMESTAMP NOT NULL,
	published_at     TIMESTAMP NOT NULL,
	updated_at       TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_news_heat_scores_news_id      ON news_heat_scores (news_id);
CREATE INDEX IF NOT EXISTS idx_news_heat_scores_source_id    ON news_heat_scores (source_id);
CREATE INDEX IF NOT EXISTS idx_news_heat_scores_heat_score   ON news_heat_scores (heat_score);
CREATE INDEX IF NOT EXISTS idx_news_heat_scores_published_at ON news_heat_scores (published_at);
`

// EnsureSchema creates the table and indexes when they do not exist yet.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}
