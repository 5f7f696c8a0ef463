package metadata

import "strings"

// Classifier derives coarse content tags from document text. Implementations
// must be deterministic and order-preserving so that re-ingesting the same
// content yields the same tags.
type Classifier interface {
	Classify(text string) []string
}

// KeywordClassifier tags text by case-insensitive substring presence against a
// small fixed vocabulary. Heuristic classification, not NLP.
type KeywordClassifier struct {
	groups []tagGroup
}

type tagGroup struct {
	tag      string
	keywords []string
}

// NewKeywordClassifier returns the default vocabulary classifier.
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		groups: []tagGroup{
			{tag: "machine_learning", keywords: []string{"machine learning", "ml", "ai", "artificial intelligence"}},
			{tag: "programming", keywords: []string{"python", "programming", "code"}},
			{tag: "data_analysis", keywords: []string{"data", "analysis", "statistics"}},
		},
	}
}

// Classify returns the tags whose keyword group matches text, in vocabulary order.
func (c *KeywordClassifier) Classify(text string) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, g := range c.groups {
		for _, kw := range g.keywords {
			if strings.Contains(lower, kw) {
				tags = append(tags, g.tag)
				break
			}
		}
	}
	return tags
}
