package matching

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/agnivade/levenshtein"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	lowerCaser      = cases.Lower(language.Und)
	invertedArticle = regexp.MustCompile(`^(.+?)\s*,\s*(the|a|an)$`)
	leadingArticles = []string{"the ", "a ", "an "}
)

// Normalize reduces a title to the form used for comparison: lowercase,
// diacritics folded, one leading article dropped ("The Matrix" and
// "Matrix, The" both become "matrix"), punctuation replaced by spaces and
// whitespace collapsed.
func Normalize(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	title = lowerCaser.String(foldDiacritics(title))

	if m := invertedArticle.FindStringSubmatch(title); m != nil {
		title = m[1]
	}

	var builder strings.Builder
	builder.Grow(len(title))
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			builder.WriteRune(r)
		} else {
			builder.WriteRune(' ')
		}
	}
	normalized := strings.Join(strings.Fields(builder.String()), " ")

	for _, article := range leadingArticles {
		if rest, ok := strings.CutPrefix(normalized, article); ok && rest != "" {
			normalized = rest
			break
		}
	}
	return normalized
}

func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// Similarity is the normalized Levenshtein similarity of two strings in
// [0, 1], measured in runes. Two empty strings are identical.
func Similarity(a, b string) float64 {
	longest := max(len([]rune(a)), len([]rune(b)))
	if longest == 0 {
		return 1
	}
	distance := levenshtein.ComputeDistance(a, b)
	return 1 - float64(distance)/float64(longest)
}
