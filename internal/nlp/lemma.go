package nlp

import "strings"

// irregular maps inflected forms whose lemma the suffix rules cannot derive.
var irregular = map[string]string{
	"spent": "spend", "spending": "spend", "spends": "spend",
	"paid": "pay", "paying": "pay", "pays": "pay",
	"bought": "buy", "buying": "buy", "buys": "buy",
	"got": "get", "gotten": "get", "getting": "get", "gets": "get",
	"cost": "cost", "costs": "cost", "costing": "cost",
	"expenses": "expense", "expensed": "expense",
	"charged": "charge", "charging": "charge", "charges": "charge",
	"used": "use", "using": "use", "uses": "use",
	"purchased": "purchase", "purchasing": "purchase", "purchases": "purchase",
	"ate": "eat", "eaten": "eat", "eating": "eat",
	"went": "go", "gone": "go", "going": "go", "goes": "go",
	"took": "take", "taken": "take", "taking": "take",
	"made": "make", "making": "make",
	"had": "have", "has": "have", "having": "have",
	"was": "be", "were": "be", "is": "be", "are": "be", "am": "be", "been": "be",
	"did": "do", "does": "do", "done": "do",
	"saw": "see", "seen": "see",
	"drank": "drink", "drunk": "drink",
	"rode": "ride", "ridden": "ride",
	"flew": "fly", "flown": "fly",
	"children": "child", "people": "person", "men": "man", "women": "woman",
	"feet": "foot", "teeth": "tooth", "mice": "mouse",
	"clothes": "clothes", "news": "news", "gas": "gas", "bus": "bus",
	"fitness": "fitness", "wellness": "wellness", "business": "business",
	"glasses": "glass", "taxes": "tax", "movies": "movie",
}

// Lemmatize returns a best-effort dictionary form for a lowercase word.
func Lemmatize(word string) string {
	w := strings.ToLower(word)
	if lemma, ok := irregular[w]; ok {
		return lemma
	}
	n := len(w)
	switch {
	case n > 4 && strings.HasSuffix(w, "ies"):
		return w[:n-3] + "y"
	case n > 4 && (strings.HasSuffix(w, "sses") || strings.HasSuffix(w, "ches") ||
		strings.HasSuffix(w, "shes") || strings.HasSuffix(w, "xes") || strings.HasSuffix(w, "zes")):
		return w[:n-2]
	case n > 3 && strings.HasSuffix(w, "s") && !strings.HasSuffix(w, "ss") &&
		!strings.HasSuffix(w, "us") && !strings.HasSuffix(w, "is"):
		return w[:n-1]
	case n > 5 && strings.HasSuffix(w, "ing"):
		return undouble(w[:n-3])
	case n > 4 && strings.HasSuffix(w, "ied"):
		return w[:n-3] + "y"
	case n > 4 && strings.HasSuffix(w, "ed"):
		return undouble(w[:n-2])
	}
	return w
}

// undouble collapses a doubled final consonant left behind by -ing / -ed.
func undouble(stem string) string {
	n := len(stem)
	if n >= 3 && stem[n-1] == stem[n-2] && !strings.ContainsRune("aeiouls", rune(stem[n-1])) {
		return stem[:n-1]
	}
	return stem
}

var stopWords = toSet(
	"a", "about", "above", "after", "again", "all", "also", "am", "an", "and", "any",
	"are", "as", "at", "be", "because", "been", "before", "being", "below", "between",
	"both", "but", "by", "can", "could", "did", "do", "does", "doing", "down", "during",
	"each", "few", "for", "from", "further", "had", "has", "have", "having", "he", "her",
	"here", "hers", "herself", "him", "himself", "his", "how", "i", "if", "in", "into",
	"is", "it", "its", "itself", "just", "me", "more", "most", "much", "my", "myself",
	"no", "nor", "not", "now", "of", "off", "on", "once", "only", "or", "other", "our",
	"ours", "ourselves", "out", "over", "own", "same", "she", "should", "so", "some",
	"such", "than", "that", "the", "their", "theirs", "them", "themselves", "then",
	"there", "these", "they", "this", "those", "through", "to", "too", "under", "until",
	"up", "very", "was", "we", "were", "what", "when", "where", "which", "while", "who",
	"whom", "why", "will", "with", "would", "you", "your", "yours", "yourself",
	"yourselves", "i'm", "i've", "it's",
)

func IsStopWord(word string) bool {
	_, ok := stopWords[strings.ToLower(word)]
	return ok
}

func toSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
