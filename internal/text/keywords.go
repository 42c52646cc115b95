package text

import (
	"sort"
	"strings"
)

// Keyword is one extracted term. Type distinguishes single keywords from
// adjacent-token phrases and colon-prefix topics.
type Keyword struct {
	Word   string
	Weight float64
	Type   string
}

const (
	KindKeyword = "keyword"
	KindPhrase  = "phrase"
	KindTopic   = "topic"
)

const (
	textRankTopK      = 10
	textRankWindow    = 5
	textRankDamping   = 0.85
	textRankIters     = 20
	defaultWeight     = 0.5
	latinTopKeywords  = 5
	latinTopPhrases   = 3
	minPhraseRunes    = 4
	maxPhraseRunes    = 8
	minTopicRunes     = 4
	maxTopicRunes     = 20
	topicWeight       = 1.0
)

// Extract mines keywords, phrases and topics from a news item. The title is
// triplicated ahead of the body so title terms dominate the ranking.
func Extract(title, content string) []Keyword {
	combined := strings.TrimSpace(title + " " + title + " " + title + " " + content)
	if combined == "" {
		return nil
	}

	var result []Keyword
	if IsCJK(combined) {
		keywords := textRank(Tokenize(combined), textRankTopK)
		result = append(result, keywords...)
		result = append(result, cjkPhrases(title, keywords)...)
	} else {
		keywords, phrases := latinKeywords(Tokenize(combined))
		result = append(result, keywords...)
		result = append(result, phrases...)
	}

	if topic, ok := extractTopic(title); ok {
		result = append(result, topic)
	}
	return result
}

// TopWords returns the words of the first n keyword-type entries.
func TopWords(keywords []Keyword, n int) []string {
	words := make([]string, 0, n)
	for _, kw := range keywords {
		if kw.Type != KindKeyword {
			continue
		}
		words = append(words, kw.Word)
		if len(words) == n {
			break
		}
	}
	return words
}

// textRank ranks tokens with a co-occurrence graph and power iteration,
// normalized so the strongest token has weight 1.
func textRank(tokens []string, topK int) []Keyword {
	if len(tokens) == 0 {
		return nil
	}

	edges := make(map[string]map[string]float64)
	addEdge := func(a, b string) {
		if edges[a] == nil {
			edges[a] = make(map[string]float64)
		}
		edges[a][b]++
	}
	for i, a := range tokens {
		if edges[a] == nil {
			edges[a] = make(map[string]float64)
		}
		for j := i + 1; j < len(tokens) && j < i+textRankWindow; j++ {
			b := tokens[j]
			if a == b {
				continue
			}
			addEdge(a, b)
			addEdge(b, a)
		}
	}

	score := make(map[string]float64, len(edges))
	outWeight := make(map[string]float64, len(edges))
	for node, adj := range edges {
		score[node] = 1.0
		for _, w := range adj {
			outWeight[node] += w
		}
	}

	for iter := 0; iter < textRankIters; iter++ {
		next := make(map[string]float64, len(score))
		for node := range score {
			sum := 0.0
			for neighbor, w := range edges[node] {
				if outWeight[neighbor] > 0 {
					sum += w / outWeight[neighbor] * score[neighbor]
				}
			}
			next[node] = (1 - textRankDamping) + textRankDamping*sum
		}
		score = next
	}

	max := 0.0
	for _, s := range score {
		if s > max {
			max = s
		}
	}
	if max == 0 {
		return nil
	}

	ranked := make([]Keyword, 0, len(score))
	for word, s := range score {
		ranked = append(ranked, Keyword{Word: word, Weight: s / max, Type: KindKeyword})
	}
	sortKeywords(ranked)
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// cjkPhrases joins adjacent title tokens into candidate phrases of 4 to 8
// characters. A phrase inherits the summed weights of its ranked members.
func cjkPhrases(title string, ranked []Keyword) []Keyword {
	weights := make(map[string]float64, len(ranked))
	for _, kw := range ranked {
		weights[kw.Word] = kw.Weight
	}

	tokens := Tokenize(title)
	seen := make(map[string]struct{})
	var phrases []Keyword
	for i := 0; i+1 < len(tokens); i++ {
		first, second := tokens[i], tokens[i+1]
		if len([]rune(first)) < minCJKTokenLen || len([]rune(second)) < minCJKTokenLen {
			continue
		}
		phrase := first + second
		n := len([]rune(phrase))
		if n < minPhraseRunes || n > maxPhraseRunes {
			continue
		}
		if _, dup := seen[phrase]; dup {
			continue
		}
		seen[phrase] = struct{}{}

		weight := weights[first] + weights[second]
		if weight == 0 {
			weight = defaultWeight
		}
		phrases = append(phrases, Keyword{Word: phrase, Weight: weight, Type: KindPhrase})
	}
	sortKeywords(phrases)
	return phrases
}

// extractTopic takes the prefix before the first ASCII or fullwidth colon
// when its length lands in the topic range.
func extractTopic(title string) (Keyword, bool) {
	idx := strings.IndexAny(title, ":：")
	if idx < 0 {
		return Keyword{}, false
	}
	prefix := strings.TrimSpace(title[:idx])
	n := len([]rune(prefix))
	if n < minTopicRunes || n > maxTopicRunes {
		return Keyword{}, false
	}
	return Keyword{Word: prefix, Weight: topicWeight, Type: KindTopic}, true
}

// latinKeywords ranks by plain frequency: top-5 tokens and top-3 adjacent
// bigram phrases, each weighted by its share of the total count.
func latinKeywords(tokens []string) ([]Keyword, []Keyword) {
	if len(tokens) == 0 {
		return nil, nil
	}

	freq := make(map[string]int, len(tokens))
	for _, tok := range tokens {
		freq[tok]++
	}
	keywords := make([]Keyword, 0, len(freq))
	for word, count := range freq {
		keywords = append(keywords, Keyword{
			Word:   word,
			Weight: float64(count) / float64(len(tokens)),
			Type:   KindKeyword,
		})
	}
	sortKeywords(keywords)
	if len(keywords) > latinTopKeywords {
		keywords = keywords[:latinTopKeywords]
	}

	bigrams := make(map[string]int)
	total := 0
	for i := 0; i+1 < len(tokens); i++ {
		bigrams[tokens[i]+" "+tokens[i+1]]++
		total++
	}
	phrases := make([]Keyword, 0, len(bigrams))
	for phrase, count := range bigrams {
		phrases = append(phrases, Keyword{
			Word:   phrase,
			Weight: float64(count) / float64(total),
			Type:   KindPhrase,
		})
	}
	sortKeywords(phrases)
	if len(phrases) > latinTopPhrases {
		phrases = phrases[:latinTopPhrases]
	}
	return keywords, phrases
}

// sortKeywords orders by weight descending with a lexicographic tie-break
// so extraction is deterministic.
func sortKeywords(keywords []Keyword) {
	sort.Slice(keywords, func(i, j int) bool {
		if keywords[i].Weight != keywords[j].Weight {
			return keywords[i].Weight > keywords[j].Weight
		}
		return keywords[i].Word < keywords[j].Word
	})
}
