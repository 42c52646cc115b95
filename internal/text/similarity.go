package text

// nearDuplicateThreshold is the Jaccard similarity above which two titles
// count as the same story.
const nearDuplicateThreshold = 0.6

// Jaccard computes token-set similarity of two titles. Empty union yields 0.
func Jaccard(a, b string) float64 {
	return jaccardSets(TokenSet(a), TokenSet(b))
}

func jaccardSets(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if _, ok := b[tok]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

// NearDuplicate reports whether two titles tell the same story.
func NearDuplicate(a, b string) bool {
	return Jaccard(a, b) > nearDuplicateThreshold
}
