package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careermatch/internal/eligibility"
	"careermatch/internal/errors"
)

const sampleCSV = `Stream,Course,Department,Job Role,Company Name,Company Level,Location,Required Skill
Engineering,B.Tech,CSE,Data Analyst,Acme,Mid,Pune,"Python, SQL, Excel"
Engineering,B.Tech,CSE,Data Analyst,Globex,HIGH,Delhi,"Python, Statistics"
Engineering,B.Tech,CSE,Developer,Initech,Low,Pune,"Java, SQL"
Engineering,M.Tech,CSE,Developer,Hooli,startup,Remote,
Commerce,B.Com,Finance,Analyst,Umbrella,Mid,Mumbai,"Excel, Accounting"
`

func TestParse(t *testing.T) {
	snap, err := Parse([]byte(sampleCSV), LoaderOptions{})
	require.NoError(t, err)

	assert.Equal(t, 5, snap.Report.Rows)
	assert.Equal(t, 0, snap.Report.Skipped)
	assert.Equal(t, 1, snap.Report.Unscorable)
	assert.Equal(t, EncodingUTF8, snap.Report.Encoding)
	assert.True(t, snap.HasCourse())
	assert.False(t, snap.Report.Truncated)

	first := snap.Records[0]
	assert.Equal(t, "Engineering", first.Stream)
	assert.Equal(t, "Data Analyst", first.JobRole)
	assert.Equal(t, eligibility.TierMid, first.Level)
	assert.Equal(t, []string{"excel", "python", "sql"}, first.RequiredSkills.Sorted())
	assert.Equal(t, 2, first.Row)

	assert.Equal(t, eligibility.TierHigh, snap.Records[1].Level)
	assert.Equal(t, eligibility.TierStartup, snap.Records[3].Level)
	assert.False(t, snap.Records[3].Scorable())
}

func TestParseSkipsMalformedRows(t *testing.T) {
	input := "stream,department,job_role,company_name,company_level,required_skill\n" +
		"Eng,CSE,Dev,A,Mid,go\n" +
		"Eng,CSE,Dev,B,Mid,go,extra,fields\n" +
		"Eng,CSE,Dev,C,Low\n"

	snap, err := Parse([]byte(input), LoaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Report.Rows)
	assert.Equal(t, 1, snap.Report.Skipped)
	assert.Equal(t, "C", snap.Records[1].CompanyName)
	assert.False(t, snap.Records[1].Scorable(), "short row is padded with an empty skill cell")
	assert.False(t, snap.HasCourse())
}

func TestParseLatin1(t *testing.T) {
	input := []byte("stream,department,job_role,company_name,company_level,required_skill\n" +
		"Eng,CSE,Dev,Soci\xe9t\xe9,Mid,python\n")

	snap, err := Parse(input, LoaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, EncodingLatin1, snap.Report.Encoding)
	assert.Equal(t, "Société", snap.Records[0].CompanyName)
}

func TestParseStripsBOM(t *testing.T) {
	input := "\xef\xbb\xbfstream,department,job_role,company_name,company_level\nEng,CSE,Dev,A,Mid\n"
	snap, err := Parse([]byte(input), LoaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Eng", snap.Records[0].Stream)
	assert.False(t, snap.Report.HasSkills)
	assert.True(t, snap.Vocabulary().Tokens().Empty(), "absent skill column yields an empty vocabulary")
}

func TestParseMaxRows(t *testing.T) {
	var b strings.Builder
	b.WriteString("stream,department,job_role,company_name,company_level,required_skill\n")
	for i := 0; i < 10; i++ {
		b.WriteString("Eng,CSE,Dev,A,Mid,go\n")
	}

	snap, err := Parse([]byte(b.String()), LoaderOptions{MaxRows: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, snap.Report.Rows)
	assert.True(t, snap.Report.Truncated)

	snap, err = Parse([]byte(b.String()), LoaderOptions{MaxRows: 10})
	require.NoError(t, err)
	assert.False(t, snap.Report.Truncated)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		code  string
	}{
		{"empty", "", errors.ErrCodeDatasetEmpty},
		{"missing columns", "stream,department\nEng,CSE\n", errors.ErrCodeDatasetColumns},
		{"header only", "stream,department,job_role,company_name,company_level\n", errors.ErrCodeDatasetEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.input), LoaderOptions{})
			require.Error(t, err)
			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, errors.ErrorTypeDataLoad, appErr.Type)
			assert.Equal(t, tt.code, appErr.Code)
		})
	}
}

func TestLoadFileNotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.csv"), LoaderOptions{})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeDataLoad))
}

func TestVocabulary(t *testing.T) {
	snap, err := Parse([]byte(sampleCSV), LoaderOptions{})
	require.NoError(t, err)

	vocab := snap.Vocabulary()
	assert.Equal(t,
		[]string{"accounting", "excel", "java", "python", "sql", "statistics"},
		vocab.Tokens().Sorted())
	assert.Same(t, vocab, snap.Vocabulary())
}

func TestOptions(t *testing.T) {
	snap, err := Parse([]byte(sampleCSV), LoaderOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"Commerce", "Engineering"}, snap.Streams())
	assert.Equal(t, []string{"B.Tech", "M.Tech"}, snap.Courses("engineering"))
	assert.Equal(t, []string{"CSE"}, snap.Departments("Engineering", "B.Tech"))
	assert.Equal(t, []string{"Data Analyst", "Developer"}, snap.JobRoles("Engineering", "", "CSE"))
	assert.Equal(t, []string{"Data Analyst", "Developer"}, snap.JobRoles("Engineering", "B.Tech", "CSE"))
	assert.Empty(t, snap.JobRoles("Science", "", ""))
}

func TestRunReportsSteps(t *testing.T) {
	snap, err := Parse([]byte(sampleCSV), LoaderOptions{})
	require.NoError(t, err)

	rows, steps := Run(nil, Steps(Query{Stream: "Engineering", Department: "CSE"}), snap.Records)
	assert.Len(t, rows, 4)
	require.Len(t, steps, 2, "course step is disabled")
	assert.Equal(t, Step{Name: "stream", Initial: 5, Dropped: 1, Left: 4}, steps[0])
	assert.Equal(t, Step{Name: "department", Initial: 4, Dropped: 0, Left: 4}, steps[1])
}

func TestStoreReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "companies.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o644))

	store, err := Open(path, LoaderOptions{})
	require.NoError(t, err)
	assert.Equal(t, 5, store.Current().Report.Rows)

	var calls int
	store.OnReload(func(_ *Snapshot, _ error) { calls++ })

	extra := sampleCSV + "Science,B.Sc,Physics,Researcher,Stark,High,Delhi,Physics\n"
	require.NoError(t, os.WriteFile(path, []byte(extra), 0o644))
	require.NoError(t, store.Reload())
	assert.Equal(t, 6, store.Current().Report.Rows)

	require.NoError(t, os.WriteFile(path, []byte("broken\n"), 0o644))
	assert.Error(t, store.Reload())
	assert.Equal(t, 6, store.Current().Report.Rows, "failed reload keeps previous snapshot")
	assert.Equal(t, 2, calls)
}
