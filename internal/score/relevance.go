package score

import (
	"context"
	"encoding/json"

	"github.com/heatsight/heatscore/internal/upstream"
)

// baselineFactor normalizes the summed search match count into [0,100].
const baselineFactor = 10

// RelevanceProvider reports how much coverage a set of keywords has. The
// return value is a raw match count; normalization happens in the
// calculator. When the provider fails the calculator falls back to a local
// batch proxy.
type RelevanceProvider interface {
	MatchCount(ctx context.Context, keywords []string) (float64, error)
}

// UpstreamRelevance asks the upstream search endpoint how many items match
// each keyword.
type UpstreamRelevance struct {
	client *upstream.Client
}

// NewUpstreamRelevance wraps the shared upstream client.
func NewUpstreamRelevance(client *upstream.Client) *UpstreamRelevance {
	return &UpstreamRelevance{client: client}
}

func (u *UpstreamRelevance) MatchCount(ctx context.Context, keywords []string) (float64, error) {
	var sum float64
	for _, word := range keywords {
		raw, err := u.client.Search(ctx, upstream.SearchOptions{Query: word})
		if err != nil {
			return 0, err
		}
		sum += matchCount(raw)
	}
	return sum, nil
}

// matchCount prefers the reported total, falling back to the page's item
// count.
func matchCount(raw json.RawMessage) float64 {
	var envelope struct {
		Total *float64          `json:"total"`
		News  []json.RawMessage `json:"news"`
		Items []json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil {
		if envelope.Total != nil {
			return *envelope.Total
		}
		if len(envelope.News) > 0 {
			return float64(len(envelope.News))
		}
		if len(envelope.Items) > 0 {
			return float64(len(envelope.Items))
		}
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return float64(len(list))
	}
	return 0
}
