package upstream

import "encoding/json"

// NewsItem is the normalized upstream record. It is transient input for the
// scoring pipeline and is never persisted as-is.
type NewsItem struct {
	ID          string             `json:"id"`
	SourceID    string             `json:"source_id"`
	Title       string             `json:"title"`
	URL         string             `json:"url"`
	PublishedAt string             `json:"published_at"`
	Content     string             `json:"content,omitempty"`
	Category    string             `json:"category,omitempty"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Meta        map[string]any     `json:"meta_data,omitempty"`
}

// SourceDescriptor is an upstream source record. Different upstream versions
// use different field names for the identifier, so the whole object is kept.
type SourceDescriptor map[string]any

// ID returns the source identifier, trying source_id, id, key and name in
// that order. Empty when none is present.
func (s SourceDescriptor) ID() string {
	for _, field := range []string{"source_id", "id", "key", "name"} {
		if v, ok := s[field]; ok {
			if str, ok := v.(string); ok && str != "" {
				return str
			}
		}
	}
	return ""
}

// extractList locates the item array inside an upstream payload: the first
// present of the given object keys, or the payload itself when it is a bare
// array.
func extractList(raw json.RawMessage, keys ...string) ([]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range keys {
			if inner, ok := obj[key]; ok {
				var list []json.RawMessage
				if err := json.Unmarshal(inner, &list); err == nil {
					return list, true
				}
			}
		}
		return nil, false
	}

	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, true
	}
	return nil, false
}

func decodeItems(raw json.RawMessage) ([]NewsItem, bool) {
	list, ok := extractList(raw, "news", "items")
	if !ok {
		return nil, false
	}
	items := make([]NewsItem, 0, len(list))
	for _, entry := range list {
		var item NewsItem
		if err := json.Unmarshal(entry, &item); err != nil {
			continue
		}
		items = append(items, item)
	}
	return items, true
}
