package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	return New(db, 5*time.Second), mock
}

func scoreColumns() []string {
	return []string{
		"id", "news_id", "source_id", "title", "url",
		"heat_score", "relevance_score", "recency_score", "popularity_score",
		"meta_data", "keywords", "calculated_at", "published_at", "updated_at",
	}
}

func scoreRow(rows *sqlmock.Rows, id, newsID, sourceID string, heat float64, calculatedAt time.Time) *sqlmock.Rows {
	return rows.AddRow(
		id, newsID, sourceID, "title "+id, "https://example.com/"+id,
		heat, 50.0, 60.0, 40.0,
		[]byte(`{"category":"social"}`), []byte(`[{"word":"ai","weight":1,"type":"keyword"}]`),
		calculatedAt, calculatedAt.Add(-time.Hour), calculatedAt,
	)
}

func TestCreateNormalizesTimestamps(t *testing.T) {
	s, mock := newMockStore(t)

	shanghai := time.FixedZone("CST", 8*3600)
	published := time.Date(2026, 3, 1, 20, 0, 0, 0, shanghai)

	mock.ExpectExec("INSERT INTO news_heat_scores").
		WillReturnResult(sqlmock.NewResult(0, 1))

	hs := &HeatScore{
		NewsID:      "n1",
		SourceID:    "weibo",
		Title:       "title",
		URL:         "https://example.com/n1",
		HeatScore:   75,
		PublishedAt: published,
	}
	require.NoError(t, s.Create(context.Background(), hs))

	assert.NotEmpty(t, hs.ID)
	assert.Equal(t, time.UTC, hs.PublishedAt.Location())
	assert.True(t, hs.PublishedAt.Equal(published))
	assert.Equal(t, time.UTC, hs.CalculatedAt.Location())
	assert.Equal(t, hs.CalculatedAt, hs.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("SELECT .+ FROM news_heat_scores WHERE id =").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetLatestByNewsID(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	mock.ExpectQuery("SELECT .+ FROM news_heat_scores\\s+WHERE news_id = .+ ORDER BY calculated_at DESC").
		WithArgs("n1").
		WillReturnRows(scoreRow(sqlmock.NewRows(scoreColumns()), "s2", "n1", "weibo", 80, now))

	hs, err := s.GetLatestByNewsID(context.Background(), "n1")
	require.NoError(t, err)
	assert.Equal(t, "s2", hs.ID)
	assert.Equal(t, 80.0, hs.HeatScore)
	assert.Equal(t, "social", hs.Category())
	require.Len(t, hs.Keywords, 1)
	assert.Equal(t, Keyword{Word: "ai", Weight: 1, Type: "keyword"}, hs.Keywords[0])
}

func TestGetMultiByNewsIDsBatchesAndKeepsLatest(t *testing.T) {
	s, mock := newMockStore(t)

	ids := make([]string, 150)
	for i := range ids {
		ids[i] = fmt.Sprintf("n%d", i)
	}

	now := time.Now().UTC()
	// First batch: two rows for n0, newest first; only the newest survives.
	first := sqlmock.NewRows(scoreColumns())
	scoreRow(first, "new", "n0", "weibo", 90, now)
	scoreRow(first, "old", "n0", "weibo", 10, now.Add(-time.Hour))
	mock.ExpectQuery("WHERE news_id = ANY").WillReturnRows(first)

	second := sqlmock.NewRows(scoreColumns())
	scoreRow(second, "s149", "n149", "zhihu", 42, now)
	mock.ExpectQuery("WHERE news_id = ANY").WillReturnRows(second)

	scores, err := s.GetMultiByNewsIDs(context.Background(), ids)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, "new", scores["n0"].ID)
	assert.Equal(t, 90.0, scores["n0"].HeatScore)
	assert.Equal(t, "s149", scores["n149"].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMultiByNewsIDsEmpty(t *testing.T) {
	s, _ := newMockStore(t)
	scores, err := s.GetMultiByNewsIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, scores)
}

func TestGetTopAppliesFilters(t *testing.T) {
	s, mock := newMockStore(t)

	minScore := 30.0
	now := time.Now().UTC()
	rows := sqlmock.NewRows(scoreColumns())
	scoreRow(rows, "a", "n1", "weibo", 95, now)

	mock.ExpectQuery("AND heat_score >= .+ AND meta_data->>'category' = ANY.+ ORDER BY heat_score DESC").
		WillReturnRows(rows)

	got, err := s.GetTop(context.Background(), TopQuery{
		Limit:       10,
		MinScore:    &minScore,
		MaxAgeHours: 24,
		Categories:  []string{"social", "news"},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
}

func TestUpdateMissingRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("UPDATE news_heat_scores").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.Update(context.Background(), &HeatScore{ID: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDelete(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM news_heat_scores").
		WithArgs("a").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM news_heat_scores").
		WithArgs("b").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.Delete(context.Background(), "a"))
	assert.ErrorIs(t, s.Delete(context.Background(), "b"), ErrNotFound)
}

func TestSessionCommit(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO news_heat_scores").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sess, err := s.Begin(context.Background())
	require.NoError(t, err)

	hs := &HeatScore{NewsID: "n1", SourceID: "weibo", Title: "t", URL: "u", PublishedAt: time.Now()}
	require.NoError(t, sess.Store().Create(context.Background(), hs))
	require.NoError(t, sess.Commit())

	// Rollback after commit is a no-op.
	assert.NoError(t, sess.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRollback(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO news_heat_scores").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	sess, err := s.Begin(context.Background())
	require.NoError(t, err)

	hs := &HeatScore{NewsID: "n1", SourceID: "weibo", Title: "t", URL: "u", PublishedAt: time.Now()}
	require.Error(t, sess.Store().Create(context.Background(), hs))
	require.NoError(t, sess.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNestedSessionRejected(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectBegin()

	sess, err := s.Begin(context.Background())
	require.NoError(t, err)

	_, err = sess.Store().Begin(context.Background())
	assert.Error(t, err)
}

func TestBackfillCategories(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows(scoreColumns()).AddRow(
		"a", "n1", "zhihu", "t", "u",
		50.0, 0.0, 0.0, 0.0,
		nil, nil, now, now, now,
	)
	mock.ExpectQuery("WHERE meta_data IS NULL OR meta_data->>'category' IS NULL").
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE news_heat_scores SET meta_data =").
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := s.BackfillCategories(context.Background(), 0, func(sourceID string) string {
		assert.Equal(t, "zhihu", sourceID)
		return "knowledge"
	})
	require.NoError(t, err)
	assert.Equal(t, 1, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}
