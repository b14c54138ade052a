package skills

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MatchMode controls how a vocabulary token is located in resume text.
type MatchMode string

const (
	// MatchSubstring reports a token wherever it appears, so "r" is found
	// inside "director".
	MatchSubstring MatchMode = "substring"
	// MatchWord requires the token to be bounded by non-alphanumerics.
	MatchWord MatchMode = "word"
)

func ParseMatchMode(s string) (MatchMode, error) {
	switch MatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchSubstring:
		return MatchSubstring, nil
	case MatchWord:
		return MatchWord, nil
	default:
		return "", fmt.Errorf("unknown skill match mode %q", s)
	}
}

// Detector finds vocabulary tokens in free text.
type Detector struct {
	mode MatchMode
}

func NewDetector(mode MatchMode) *Detector {
	if mode == "" {
		mode = MatchSubstring
	}
	return &Detector{mode: mode}
}

func (d *Detector) Mode() MatchMode {
	return d.mode
}

// Detect returns every vocabulary token present in text. The result is
// always a subset of the vocabulary; empty text yields an empty set.
func (d *Detector) Detect(text string, vocab Vocabulary) Set {
	found := Set{}
	if vocab == nil {
		return found
	}
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return found
	}
	for token := range vocab.Tokens() {
		if d.contains(lower, token) {
			found[token] = struct{}{}
		}
	}
	return found
}

// Detect runs substring detection.
func Detect(text string, vocab Vocabulary) Set {
	return NewDetector(MatchSubstring).Detect(text, vocab)
}

func (d *Detector) contains(text, token string) bool {
	if d.mode != MatchWord {
		return strings.Contains(text, token)
	}
	for start := 0; start < len(text); {
		i := strings.Index(text[start:], token)
		if i < 0 {
			return false
		}
		i += start
		end := i + len(token)
		if boundaryBefore(text, i) && boundaryAfter(text, end) {
			return true
		}
		_, size := utf8.DecodeRuneInString(text[i:])
		start = i + size
	}
	return false
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(text[:i])
	return !isWordRune(r)
}

func boundaryAfter(text string, end int) bool {
	if end >= len(text) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(text[end:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
