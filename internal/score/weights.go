package score

// fallbackSourceWeights is the fixed source-quality table used until the
// learner has produced fresher values.
var fallbackSourceWeights = map[string]float64{
	"weibo":   90,
	"baidu":   90,
	"zhihu":   85,
	"toutiao": 80,
	"sina":    75,
	"163":     70,
	"qq":      70,
	"sohu":    65,
	"ifeng":   65,
}

const defaultSourceWeight = 50

// platformBaselines normalize raw popularity metrics per source.
var platformBaselines = map[string]float64{
	"weibo":   10000,
	"zhihu":   5000,
	"toutiao": 8000,
}

const defaultPlatformBaseline = 1000

// SourceWeights supplies learned per-source weights. Implementations return
// ok=false when they have nothing for the source.
type SourceWeights interface {
	Weight(sourceID string) (float64, bool)
}

// FallbackSourceWeight returns the fixed table weight for a source.
func FallbackSourceWeight(sourceID string) float64 {
	if w, ok := fallbackSourceWeights[sourceID]; ok {
		return w
	}
	return defaultSourceWeight
}

// PlatformBaseline returns the popularity normalization base for a source.
func PlatformBaseline(sourceID string) float64 {
	if b, ok := platformBaselines[sourceID]; ok {
		return b
	}
	return defaultPlatformBaseline
}
