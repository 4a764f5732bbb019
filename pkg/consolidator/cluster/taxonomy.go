package cluster

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-consolidator/pkg/consolidator/model"
	"github.com/askiada/go-consolidator/pkg/consolidator/similarity"
)

// ErrInvalidTaxonomy is returned when a taxonomy table cannot be used for classification.
var ErrInvalidTaxonomy = errors.New("invalid taxonomy")

// Category is one row of the taxonomy table.
type Category struct {
	Label    string   `mapstructure:"label" yaml:"label" json:"label" validate:"required"`
	Keywords []string `mapstructure:"keywords" yaml:"keywords" json:"keywords" validate:"required,min=1,dive,required"`
}

// Taxonomy is the ordered category table. When two categories score the same, the earlier
// one wins.
type Taxonomy []Category

// DefaultTaxonomy returns the built-in category table.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{Label: "PR Management", Keywords: []string{"pull request", "pr", "review", "merge"}},
		{Label: "Deployment", Keywords: []string{"deploy", "release", "build", "publish"}},
		{Label: "Testing", Keywords: []string{"test", "validate", "verify"}},
		{Label: "Memory/Debug", Keywords: []string{"debug", "memory", "profiler"}},
		{Label: "Security", Keywords: []string{"security", "vulnerability", "audit"}},
		{Label: "Documentation", Keywords: []string{"docs", "documentation", "readme"}},
	}
}

// Validate checks that labels are unique, do not clash with the fallback clusters and that
// every keyword contains at least one matchable word.
func (t Taxonomy) Validate() error {
	fallback := Slug(model.FallbackLabel)
	seen := make(map[string]string, len(t))
	for _, category := range t {
		id := Slug(category.Label)
		if id == "" {
			return errors.Wrapf(ErrInvalidTaxonomy, "label %q has no usable characters", category.Label)
		}
		if strings.HasPrefix(id, fallback) {
			return errors.Wrapf(ErrInvalidTaxonomy, "label %q clashes with %q", category.Label, model.FallbackLabel)
		}
		if other, ok := seen[id]; ok {
			return errors.Wrapf(ErrInvalidTaxonomy, "labels %q and %q map to the same cluster id", other, category.Label)
		}
		seen[id] = category.Label

		if len(category.Keywords) == 0 {
			return errors.Wrapf(ErrInvalidTaxonomy, "category %q has no keywords", category.Label)
		}
		for _, keyword := range category.Keywords {
			if len(similarity.Tokenize(keyword)) == 0 {
				return errors.Wrapf(ErrInvalidTaxonomy, "category %q: keyword %q has no matchable word", category.Label, keyword)
			}
		}
	}

	return nil
}

// Slug turns a label into a cluster id: lower-case words joined by dashes.
func Slug(label string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(label) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false

			continue
		}
		dash = true
	}

	return b.String()
}

type compiledCategory struct {
	label    string
	keywords [][]string
}

func compile(t Taxonomy) []compiledCategory {
	compiled := make([]compiledCategory, len(t))
	for i, category := range t {
		compiled[i].label = category.Label
		for _, keyword := range category.Keywords {
			compiled[i].keywords = append(compiled[i].keywords, similarity.Tokenize(keyword))
		}
	}

	return compiled
}

// countPhrase counts the occurrences of phrase as consecutive tokens.
func countPhrase(tokens, phrase []string) int {
	if len(phrase) == 0 || len(phrase) > len(tokens) {
		return 0
	}
	count := 0
	for i := 0; i+len(phrase) <= len(tokens); i++ {
		match := true
		for j, word := range phrase {
			if tokens[i+j] != word {
				match = false

				break
			}
		}
		if match {
			count++
		}
	}

	return count
}
