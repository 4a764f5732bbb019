package similarity

import (
	"strings"
	"unicode"

	"github.com/askiada/go-consolidator/pkg/consolidator/model"
)

// minTokenLen drops single-character noise such as flag letters.
const minTokenLen = 2

// Tokenize splits text into lower-cased alphanumeric words. Any other rune separates words,
// so "pull_request" yields "pull" and "request".
func Tokenize(text string) []string {
	var (
		tokens  []string
		current strings.Builder
		runes   int
	)
	flush := func() {
		if runes >= minTokenLen {
			tokens = append(tokens, current.String())
		}
		current.Reset()
		runes = 0
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(unicode.ToLower(r))
			runes++

			continue
		}
		flush()
	}
	flush()

	return tokens
}

// Document returns the token bag of a record: the tokens of its triggers and actions, plus
// one kind token when there is at least one such token.
func Document(rec *model.WorkflowRecord) []string {
	var tokens []string
	for _, trigger := range rec.Triggers {
		tokens = append(tokens, Tokenize(trigger)...)
	}
	for _, action := range rec.Actions {
		tokens = append(tokens, Tokenize(action)...)
	}
	if len(tokens) > 0 {
		tokens = append(tokens, "kind:"+string(rec.Kind))
	}

	return tokens
}
