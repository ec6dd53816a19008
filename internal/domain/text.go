package domain

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes accented runes and drops the combining marks,
// so "conexão" and "conexao" normalize to the same token.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// stopwords are Portuguese function words excluded from content-word sets.
var stopwords = map[string]struct{}{
	"a": {}, "o": {}, "as": {}, "os": {}, "um": {}, "uma": {}, "uns": {}, "umas": {},
	"de": {}, "do": {}, "da": {}, "dos": {}, "das": {},
	"e": {}, "em": {}, "no": {}, "na": {}, "nos": {}, "nas": {},
	"para": {}, "por": {}, "com": {}, "sem": {}, "ao": {}, "aos": {},
	"que": {}, "qual": {}, "quais": {}, "como": {}, "onde": {}, "quando": {},
	"ser": {}, "estar": {}, "ter": {}, "fazer": {},
	"nao": {}, "duvida": {}, "duvidas": {}, "pergunta": {}, "perguntas": {},
}

// Normalize lowercases text and strips diacritics.
func Normalize(s string) string {
	lowered := strings.ToLower(s)
	out, _, err := transform.String(stripMarks, lowered)
	if err != nil {
		return lowered
	}
	return out
}

// Words extracts normalized word tokens from text.
func Words(s string) []string {
	return wordPattern.FindAllString(Normalize(s), -1)
}

// WordSet extracts the set of normalized word tokens from text.
func WordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range Words(s) {
		set[w] = struct{}{}
	}
	return set
}

// ContentWordSet extracts normalized words with stopwords removed.
func ContentWordSet(s string) map[string]struct{} {
	set := WordSet(s)
	for w := range set {
		if _, stop := stopwords[w]; stop {
			delete(set, w)
		}
	}
	return set
}

// IsStopword reports whether the normalized token is a stopword.
func IsStopword(w string) bool {
	_, ok := stopwords[Normalize(w)]
	return ok
}

// Jaccard computes |a∩b| / |a∪b| over two word sets.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Overlap computes |a∩b| / |a| (how much of a is covered by b).
func Overlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 {
		return 0
	}
	inter := 0
	for w := range a {
		if _, ok := b[w]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a))
}
