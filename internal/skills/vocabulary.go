package skills

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// Vocabulary is the closed set of tokens the detector may report.
type Vocabulary interface {
	Tokens() Set
	Source() string
}

const (
	SourceDataset = "dataset"
	SourceCurated = "curated"
)

type staticVocabulary struct {
	tokens Set
	source string
}

func (v *staticVocabulary) Tokens() Set    { return v.tokens }
func (v *staticVocabulary) Source() string { return v.source }

// FromRequiredSkills derives a vocabulary from the required_skill values of
// a dataset. Blank values are skipped; a dataset with no skill values at all
// produces an empty vocabulary.
func FromRequiredSkills(values []string) Vocabulary {
	tokens := Set{}
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		for t := range ParseList(v) {
			tokens[t] = struct{}{}
		}
	}
	return &staticVocabulary{tokens: tokens, source: SourceDataset}
}

// Curated wraps a fixed keyword list.
func Curated(tokens []string) Vocabulary {
	return &staticVocabulary{tokens: NewSet(tokens...), source: SourceCurated}
}

// DefaultCuratedTokens is the built-in keyword list used when no curated
// file is configured.
var DefaultCuratedTokens = []string{
	"python", "java", "c++", "c", "javascript", "typescript", "go", "sql",
	"html", "css", "react", "node", "django", "flask", "spring",
	"machine learning", "deep learning", "data analysis", "statistics",
	"excel", "power bi", "tableau", "pandas", "numpy", "tensorflow",
	"aws", "azure", "docker", "kubernetes", "linux", "git",
	"communication", "leadership", "teamwork", "problem solving",
	"autocad", "solidworks", "matlab", "embedded systems", "networking",
	"accounting", "marketing", "finance", "sales",
}

// LoadCurated reads a curated vocabulary from a file. Tokens may be one per
// line or comma-separated; lines starting with '#' are comments.
func LoadCurated(path string) (Vocabulary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open curated vocabulary %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	v, err := ReadCurated(f)
	if err != nil {
		return nil, fmt.Errorf("read curated vocabulary %s: %w", path, err)
	}
	return v, nil
}

// ReadCurated parses a curated vocabulary from r.
func ReadCurated(r io.Reader) (Vocabulary, error) {
	tokens := Set{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for t := range ParseList(line) {
			tokens[t] = struct{}{}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return &staticVocabulary{tokens: tokens, source: SourceCurated}, nil
}
