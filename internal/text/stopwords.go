package text

import "strings"

// Embedded stopword sets. The CJK list covers the high-frequency function
// words that dominate news titles; the English list is a compact fallback
// for Latin input.

var cjkStopwordList = []string{
	"的", "了", "和", "是", "在", "我", "有", "就", "不", "人",
	"都", "一", "一个", "上", "也", "很", "到", "说", "要", "去",
	"你", "会", "着", "没有", "看", "好", "自己", "这", "那", "他",
	"她", "它", "们", "与", "及", "或", "被", "把", "让", "向",
	"从", "对", "为", "因为", "所以", "但是", "如果", "虽然", "而且", "并且",
	"这个", "那个", "什么", "怎么", "为什么", "哪里", "时候", "现在", "已经", "还是",
	"可以", "可能", "应该", "需要", "进行", "通过", "以及", "其中", "之后", "之前",
	"今天", "昨天", "明天", "今年", "去年", "表示", "认为", "发现", "成为", "出现",
	"等", "将", "于", "由", "其", "此", "该", "每", "各", "再",
}

var englishStopwordList = []string{
	"a", "an", "the", "and", "or", "but", "if", "then", "else", "when",
	"at", "by", "for", "with", "about", "against", "between", "into", "through",
	"during", "before", "after", "above", "below", "to", "from", "up", "down",
	"in", "out", "on", "off", "over", "under", "again", "further", "once",
	"here", "there", "all", "any", "both", "each", "few", "more", "most",
	"other", "some", "such", "no", "nor", "not", "only", "own", "same",
	"so", "than", "too", "very", "can", "will", "just", "should", "now",
	"is", "are", "was", "were", "be", "been", "being", "have", "has", "had",
	"do", "does", "did", "of", "it", "its", "this", "that", "these", "those",
	"as", "he", "she", "they", "we", "you", "his", "her", "their", "our",
	"what", "which", "who", "whom", "how", "why", "where", "says", "said",
}

var (
	cjkStopwords     = buildSet(cjkStopwordList)
	englishStopwords = buildSet(englishStopwordList)
)

func buildSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func isStopword(token string, cjk bool) bool {
	if cjk {
		if _, ok := cjkStopwords[token]; ok {
			return true
		}
		// Mixed-language CJK titles still carry Latin tokens.
		if _, ok := englishStopwords[strings.ToLower(token)]; ok {
			return true
		}
		return false
	}
	_, ok := englishStopwords[strings.ToLower(token)]
	return ok
}
