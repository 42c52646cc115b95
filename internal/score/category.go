package score

// sourceCategories maps source ids to their content category. Anything
// unknown lands in "others".
var sourceCategories = map[string]string{
	"weibo":     "social",
	"douyin":    "social",
	"zhihu":     "knowledge",
	"toutiao":   "news",
	"sina":      "news",
	"163":       "news",
	"qq":        "news",
	"sohu":      "news",
	"ifeng":     "news",
	"baidu":     "search",
	"bilibili":  "video",
	"36kr":      "technology",
	"ithome":    "technology",
	"v2ex":      "technology",
	"github":    "technology",
	"hackernews": "technology",
	"wsj":       "finance",
	"bbc":       "world",
}

const defaultCategory = "others"

// CategoryForSource maps a source id to its category.
func CategoryForSource(sourceID string) string {
	if c, ok := sourceCategories[sourceID]; ok {
		return c
	}
	return defaultCategory
}

// deriveCategory resolves an item's category: explicit field first, then
// meta_data, then the source map.
func deriveCategory(category string, meta map[string]any, sourceID string) string {
	if category != "" {
		return category
	}
	if meta != nil {
		if v, ok := meta["category"].(string); ok && v != "" {
			return v
		}
	}
	return CategoryForSource(sourceID)
}
