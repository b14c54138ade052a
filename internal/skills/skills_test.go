package skills

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Python", "python"},
		{"  SQL \t", "sql"},
		{"", ""},
		{"   ", ""},
		{"Machine Learning", "machine learning"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

func TestParseList(t *testing.T) {
	s := ParseList("Python, SQL ,,excel, python")
	assert.Equal(t, []string{"excel", "python", "sql"}, s.Sorted())

	assert.True(t, ParseList("").Empty())
	assert.True(t, ParseList(" , ,").Empty())
}

func TestFromRequiredSkills(t *testing.T) {
	vocab := FromRequiredSkills([]string{"Python, SQL", "", "sql,Excel", "  "})
	assert.Equal(t, SourceDataset, vocab.Source())
	assert.Equal(t, []string{"excel", "python", "sql"}, vocab.Tokens().Sorted())

	empty := FromRequiredSkills(nil)
	assert.True(t, empty.Tokens().Empty())
}

func TestReadCurated(t *testing.T) {
	input := "# core\npython, sql\n\nExcel\n# trailing comment\n"
	vocab, err := ReadCurated(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, SourceCurated, vocab.Source())
	assert.Equal(t, []string{"excel", "python", "sql"}, vocab.Tokens().Sorted())
}

func TestDetect(t *testing.T) {
	vocab := Curated([]string{"python", "sql", "excel"})

	t.Run("worked example", func(t *testing.T) {
		found := Detect("Experienced in Python and Excel reporting", vocab)
		assert.Equal(t, []string{"excel", "python"}, found.Sorted())
	})

	t.Run("empty text", func(t *testing.T) {
		assert.True(t, Detect("", vocab).Empty())
		assert.True(t, Detect("   \n", vocab).Empty())
	})

	t.Run("nil vocabulary", func(t *testing.T) {
		assert.True(t, Detect("python", nil).Empty())
	})

	t.Run("result is subset of vocabulary", func(t *testing.T) {
		texts := []string{"python sql excel java", "nothing relevant", "SQLite and pythonic code"}
		for _, text := range texts {
			assert.True(t, Detect(text, vocab).SubsetOf(vocab.Tokens()), text)
		}
	})
}

func TestDetectorModes(t *testing.T) {
	vocab := Curated([]string{"r", "go", "c++"})
	text := "Director of operations, fluent in C++ and going places"

	substring := NewDetector(MatchSubstring).Detect(text, vocab)
	assert.True(t, substring.Has("r"), "substring mode matches inside words")
	assert.True(t, substring.Has("go"))

	word := NewDetector(MatchWord).Detect(text, vocab)
	assert.False(t, word.Has("r"))
	assert.False(t, word.Has("go"))
	assert.True(t, word.Has("c++"))
}

func TestParseMatchMode(t *testing.T) {
	m, err := ParseMatchMode("")
	require.NoError(t, err)
	assert.Equal(t, MatchSubstring, m)

	m, err = ParseMatchMode("WORD")
	require.NoError(t, err)
	assert.Equal(t, MatchWord, m)

	_, err = ParseMatchMode("fuzzy")
	assert.Error(t, err)
}

func TestScore(t *testing.T) {
	tests := []struct {
		name     string
		user     Set
		required Set
		want     int
	}{
		{"empty user", Set{}, NewSet("python"), 0},
		{"empty required", NewSet("python"), Set{}, 0},
		{"both empty", Set{}, Set{}, 0},
		{"full coverage", NewSet("python", "sql", "java"), NewSet("python", "sql"), 100},
		{"two of three floors", NewSet("python", "excel"), NewSet("python", "sql", "excel"), 66},
		{"one of three floors", NewSet("python"), NewSet("python", "sql", "excel"), 33},
		{"no overlap", NewSet("java"), NewSet("python"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.user, tt.required))
		})
	}
}

func TestScoreMonotone(t *testing.T) {
	required := NewSet("a", "b", "c", "d", "e", "f", "g")
	user := Set{}
	prev := Score(user, required)
	for _, tok := range required.Sorted() {
		user.Add(tok)
		cur := Score(user, required)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	assert.Equal(t, 100, prev)
}

func TestEvaluate(t *testing.T) {
	required := ParseList("python, sql, excel")
	user := Detect("python and excel", Curated([]string{"python", "sql", "excel"}))

	res := Evaluate(user, required)
	assert.Equal(t, 66, res.Percent)
	assert.Equal(t, []string{"excel", "python"}, res.Matched)
	assert.Equal(t, []string{"sql"}, res.Missing)

	union := NewSet(res.Matched...).Union(NewSet(res.Missing...))
	assert.Equal(t, required.Sorted(), union.Sorted())
}

func TestMissingComplement(t *testing.T) {
	required := NewSet("go", "sql", "docker")
	user := NewSet("go", "rust")

	assert.Equal(t, []string{"docker", "sql"}, Missing(user, required).Sorted())
	assert.Equal(t, []string{"go"}, Matched(user, required).Sorted())
}
