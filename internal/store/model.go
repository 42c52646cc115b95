// Package store persists calculated heat scores in PostgreSQL. Rows are
// append-only per calculation; the latest row for a news id wins.
package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Keyword is one extracted term with its rank weight. Type distinguishes
// plain keywords from multi-word phrases and colon-prefix topics.
type Keyword struct {
	Word   string  `json:"word"`
	Weight float64 `json:"weight"`
	Type   string  `json:"type,omitempty"`
}

const (
	KeywordTypeKeyword = "keyword"
	KeywordTypePhrase  = "phrase"
	KeywordTypeTopic   = "topic"
)

// KeywordList stores the extracted keywords as a JSON column.
type KeywordList []Keyword

func (k KeywordList) Value() (driver.Value, error) {
	if k == nil {
		return nil, nil
	}
	return json.Marshal(k)
}

func (k *KeywordList) Scan(src any) error {
	return scanJSON(src, k, "keywords")
}

// Meta is the free-form meta_data JSON column (cross-source score, source
// weight, derived category and the leading keyword words).
type Meta map[string]any

func (m Meta) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *Meta) Scan(src any) error {
	return scanJSON(src, m, "meta_data")
}

func scanJSON(src, dest any, column string) error {
	if src == nil {
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported %s column type %T", column, src)
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// HeatScore is one persisted calculation result. All timestamps are naive
// UTC: the columns are TIMESTAMP WITHOUT TIME ZONE and every writer strips
// the offset after converting to UTC.
type HeatScore struct {
	ID              string      `db:"id" json:"id"`
	NewsID          string      `db:"news_id" json:"news_id"`
	SourceID        string      `db:"source_id" json:"source_id"`
	Title           string      `db:"title" json:"title"`
	URL             string      `db:"url" json:"url"`
	HeatScore       float64     `db:"heat_score" json:"heat_score"`
	RelevanceScore  float64     `db:"relevance_score" json:"relevance_score"`
	RecencyScore    float64     `db:"recency_score" json:"recency_score"`
	PopularityScore float64     `db:"popularity_score" json:"popularity_score"`
	Meta            Meta        `db:"meta_data" json:"meta_data,omitempty"`
	Keywords        KeywordList `db:"keywords" json:"keywords,omitempty"`
	CalculatedAt    time.Time   `db:"calculated_at" json:"calculated_at"`
	PublishedAt     time.Time   `db:"published_at" json:"published_at"`
	UpdatedAt       time.Time   `db:"updated_at" json:"updated_at"`
}

// Category returns the derived category stored in meta_data, or "others".
func (h *HeatScore) Category() string {
	if h.Meta != nil {
		if v, ok := h.Meta["category"].(string); ok && v != "" {
			return v
		}
	}
	return "others"
}
