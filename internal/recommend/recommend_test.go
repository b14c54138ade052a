package recommend

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careermatch/internal/dataset"
	"careermatch/internal/eligibility"
	"careermatch/internal/errors"
	"careermatch/internal/skills"
)

const companiesCSV = `stream,department,job_role,company_name,company_level,location,required_skill
Engineering,CSE,Data Analyst,Globex,High,Delhi,"python, sql, statistics"
Engineering,CSE,Data Analyst,Acme,Mid,Pune,"python, sql, excel"
Engineering,CSE,Data Analyst,Initech,Low,Pune,"excel, sql"
Engineering,CSE,Data Analyst,Tiny,Startup,Remote,"python"
Engineering,CSE,Developer,Hooli,Mid,Pune,"java, git"
Engineering,CSE,Developer,Acme,Low,Pune,"python, git"
Engineering,CSE,Developer,Acme,Low,Pune,"python, git"
Engineering,CSE,Developer,Blank,Mid,Pune,
Commerce,Finance,Analyst,Umbrella,High,Mumbai,"excel, accounting"
`

func loadSnapshot(t *testing.T) *dataset.Snapshot {
	t.Helper()
	snap, err := dataset.Parse([]byte(companiesCSV), dataset.LoaderOptions{})
	require.NoError(t, err)
	return snap
}

func cgpa(v float64) *float64 { return &v }

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(opts, nil)
	require.NoError(t, err)
	return e
}

func companies(rows []ScoredRow) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = r.Company.CompanyName + "/" + r.Company.Level.String()
	}
	return out
}

func row(name string, level eligibility.Tier, role string, pct int) ScoredRow {
	return ScoredRow{
		Company: dataset.CompanyRecord{CompanyName: name, Level: level, JobRole: role},
		Match:   skills.MatchResult{Percent: pct},
	}
}

func TestAssembleOrdersAndPartitions(t *testing.T) {
	rows := []ScoredRow{
		row("S", eligibility.TierStartup, "Dev", 10),
		row("L", eligibility.TierLow, "Analyst", 50),
		row("H", eligibility.TierHigh, "Dev", 80),
		row("M1", eligibility.TierMid, "Dev", 20),
		row("M2", eligibility.TierMid, "Dev", 30),
	}

	asm := Assemble(rows, "dev", AssembleOptions{Dedup: DedupNone})
	assert.Equal(t, StatusOK, asm.Status)
	assert.Equal(t, []string{"H/High", "M1/Mid", "M2/Mid", "S/Startup"}, companies(asm.BestMatch))
	assert.Equal(t, []string{"L/Low"}, companies(asm.Alternate))
}

func TestAssembleHonestyMode(t *testing.T) {
	rows := []ScoredRow{
		row("A", eligibility.TierMid, "Dev", 0),
		row("B", eligibility.TierMid, "Dev", 1),
	}

	on := Assemble(rows, "Dev", AssembleOptions{ExcludeZeroMatch: true})
	assert.Equal(t, []string{"B/Mid"}, companies(on.BestMatch))
	assert.Equal(t, 1, on.ZeroExcluded)

	off := Assemble(rows, "Dev", AssembleOptions{})
	assert.Len(t, off.BestMatch, 2)
}

func TestAssembleDedup(t *testing.T) {
	rows := []ScoredRow{
		row("Acme", eligibility.TierLow, "Dev", 50),
		row("Acme", eligibility.TierLow, "Dev", 50),
		row("Acme", eligibility.TierHigh, "Analyst", 50),
	}

	exact := Assemble(rows, "", AssembleOptions{Dedup: DedupExact})
	assert.Equal(t, []string{"Acme/High", "Acme/Low"}, companies(exact.Alternate))
	assert.Equal(t, 1, exact.Duplicates)

	byCompany := Assemble(rows, "", AssembleOptions{Dedup: DedupCompany})
	assert.Equal(t, []string{"Acme/High"}, companies(byCompany.Alternate))
}

func TestAssembleNoResults(t *testing.T) {
	asm := Assemble(nil, "Dev", AssembleOptions{})
	assert.Equal(t, StatusNoResults, asm.Status)
	assert.NotNil(t, asm.BestMatch)
	assert.NotNil(t, asm.Alternate)
}

func TestParseDedupMode(t *testing.T) {
	m, err := ParseDedupMode("")
	require.NoError(t, err)
	assert.Equal(t, DedupExact, m)
	m, err = ParseDedupMode("Company")
	require.NoError(t, err)
	assert.Equal(t, DedupCompany, m)
	_, err = ParseDedupMode("fuzzy")
	assert.Error(t, err)
}

func TestRecommendIntersect(t *testing.T) {
	e := newEngine(t, Options{Mode: eligibility.ModeIntersect, HonestyMode: true})
	res, err := e.Recommend(context.Background(), loadSnapshot(t), Request{
		Query:  dataset.Query{Stream: "Engineering", Department: "CSE", JobRole: "Data Analyst"},
		CGPA:   cgpa(7.2),
		Resume: &Resume{Text: "Worked with Python and Excel dashboards"},
	})
	require.NoError(t, err)

	// Role union is {python, sql, statistics, excel}; 2 of 4 = 50%.
	assert.Equal(t, 50, res.Aggregate.Percent)
	assert.Equal(t, []string{"excel", "python"}, res.Detected)
	// CGPA 7.2 → {Mid, Low, Startup}; 50% → {Mid, Low}.
	assert.Equal(t, []string{"Mid", "Low"}, res.AllowedTiers)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, []string{"Acme/Mid", "Initech/Low"}, companies(res.BestMatch))
	// Hooli scores 0% and is hidden; the second Acme row is a duplicate.
	assert.Equal(t, []string{"Acme/Low"}, companies(res.Alternate))
	assert.Equal(t, 1, res.Stats.Unscorable)
	assert.Equal(t, 1, res.Stats.ZeroExcluded)
	assert.Equal(t, 1, res.Stats.Duplicates)
	assert.NotEmpty(t, res.RunID)

	acme := res.BestMatch[0]
	assert.Equal(t, 66, acme.Match.Percent)
	assert.Equal(t, []string{"sql"}, acme.Match.Missing)
}

func TestRecommendHonestyExcludesZeroMatch(t *testing.T) {
	e := newEngine(t, Options{Mode: eligibility.ModeMatch, HonestyMode: true, Dedup: DedupNone})
	res, err := e.Recommend(context.Background(), loadSnapshot(t), Request{
		Query:  dataset.Query{Stream: "Engineering", Department: "CSE", JobRole: "Developer"},
		Resume: &Resume{Text: "java git"},
	})
	require.NoError(t, err)

	// Developer union {java, git, python}: 2 of 3 = 66% → {Mid, Low}.
	assert.Equal(t, 66, res.Aggregate.Percent)
	assert.Equal(t, []string{"Hooli/Mid", "Acme/Low", "Acme/Low"}, companies(res.BestMatch))
	// Acme (Mid) and Initech (Low) are eligible data analyst rows but score 0.
	assert.Empty(t, res.Alternate)
	assert.Equal(t, 2, res.Stats.ZeroExcluded)
}

func TestRecommendPerRow(t *testing.T) {
	e := newEngine(t, Options{Mode: eligibility.ModePerRow, HonestyMode: false, Dedup: DedupNone})
	res, err := e.Recommend(context.Background(), loadSnapshot(t), Request{
		Query:  dataset.Query{Stream: "Engineering", Department: "CSE", JobRole: "Data Analyst"},
		Resume: &Resume{Text: "python sql statistics"},
	})
	require.NoError(t, err)

	// Tiny scores 100% but Startup is outside the {High, Mid} bucket.
	assert.Equal(t, []string{"Globex/High", "Acme/Mid", "Initech/Low"}, companies(res.BestMatch))
	assert.True(t, res.Stats.Eligible >= 3)
}

func TestRecommendCGPAOnlyNeedsNoResume(t *testing.T) {
	e := newEngine(t, Options{Mode: eligibility.ModeCGPA, HonestyMode: true, Dedup: DedupNone})
	res, err := e.Recommend(context.Background(), loadSnapshot(t), Request{
		Query: dataset.Query{Stream: "Engineering", Department: "CSE", JobRole: "Data Analyst"},
		CGPA:  cgpa(6.0),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Aggregate.Percent)
	assert.Equal(t, []string{"Initech/Low", "Tiny/Startup"}, companies(res.BestMatch))
	assert.Equal(t, []string{"Acme/Low", "Acme/Low"}, companies(res.Alternate))
}

func TestRecommendNoResults(t *testing.T) {
	e := newEngine(t, Options{Mode: eligibility.ModeIntersect, HonestyMode: true})
	res, err := e.Recommend(context.Background(), loadSnapshot(t), Request{
		Query:  dataset.Query{Stream: "Commerce", Department: "Finance", JobRole: "Analyst"},
		CGPA:   cgpa(9.5),
		Resume: &Resume{Text: "golang kubernetes"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusNoResults, res.Status)
	assert.Empty(t, res.BestMatch)
	assert.Empty(t, res.Alternate)
}

func TestRecommendMissingInput(t *testing.T) {
	snap := loadSnapshot(t)
	q := dataset.Query{Stream: "Engineering", Department: "CSE"}

	e := newEngine(t, Options{Mode: eligibility.ModeIntersect})
	_, err := e.Recommend(context.Background(), snap, Request{Query: q, CGPA: cgpa(8)})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingInput))

	_, err = e.Recommend(context.Background(), snap, Request{Query: q, Resume: &Resume{Text: "python"}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingInput))

	_, err = e.Recommend(context.Background(), snap, Request{Query: q, CGPA: cgpa(11), Resume: &Resume{}})
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestRecommendEmptyResumeWarns(t *testing.T) {
	e := newEngine(t, Options{Mode: eligibility.ModeMatch, HonestyMode: true})
	res, err := e.Recommend(context.Background(), loadSnapshot(t), Request{
		Query:  dataset.Query{Stream: "Engineering"},
		Resume: &Resume{Text: ""},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusNoResults, res.Status)
	assert.Contains(t, res.Warnings, "resume contained no readable text")
}

type failingDetector struct{}

func (failingDetector) Name() string { return "ai" }
func (failingDetector) DetectSkills(context.Context, string, skills.Vocabulary) (skills.Set, error) {
	return nil, stderrors.New("quota exceeded")
}

type overreachingDetector struct{}

func (overreachingDetector) Name() string { return "ai" }
func (overreachingDetector) DetectSkills(context.Context, string, skills.Vocabulary) (skills.Set, error) {
	return skills.NewSet("python", "cobol"), nil
}

func TestRecommendDetectorFallback(t *testing.T) {
	e := newEngine(t, Options{Mode: eligibility.ModeMatch, Detector: failingDetector{}})
	res, err := e.Recommend(context.Background(), loadSnapshot(t), Request{
		Query:  dataset.Query{Stream: "Engineering", JobRole: "Data Analyst"},
		Resume: &Resume{Text: "python"},
	})
	require.NoError(t, err)
	assert.Equal(t, "substring", res.Detector)
	assert.Equal(t, []string{"python"}, res.Detected)
	assert.NotEmpty(t, res.Warnings)
}

func TestRecommendDetectorClampedToVocabulary(t *testing.T) {
	e := newEngine(t, Options{Mode: eligibility.ModeMatch, Detector: overreachingDetector{}})
	res, err := e.Recommend(context.Background(), loadSnapshot(t), Request{
		Query:  dataset.Query{Stream: "Engineering"},
		Resume: &Resume{Text: "anything"},
	})
	require.NoError(t, err)
	assert.Equal(t, "ai", res.Detector)
	assert.Equal(t, []string{"python"}, res.Detected)
}

func TestEngineDetect(t *testing.T) {
	e := newEngine(t, Options{Detector: overreachingDetector{}})
	assert.Equal(t, "ai", e.DetectorName())

	found, name, warning := e.Detect(context.Background(), loadSnapshot(t), &Resume{Text: "whatever"})
	assert.Equal(t, []string{"python"}, found.Sorted())
	assert.Equal(t, "ai", name)
	assert.Empty(t, warning)

	found, _, _ = e.Detect(context.Background(), loadSnapshot(t), nil)
	assert.True(t, found.Empty())
}

func TestRecommendCuratedVocabulary(t *testing.T) {
	e := newEngine(t, Options{
		Mode:       eligibility.ModeMatch,
		Vocabulary: skills.SourceCurated,
		Curated:    skills.Curated([]string{"sql"}),
	})
	res, err := e.Recommend(context.Background(), loadSnapshot(t), Request{
		Query:  dataset.Query{Stream: "Engineering", JobRole: "Data Analyst"},
		Resume: &Resume{Text: "python and sql"},
	})
	require.NoError(t, err)
	assert.Equal(t, "curated", res.Vocabulary)
	assert.Equal(t, []string{"sql"}, res.Detected)
}

func TestNewEngineRejectsBadConfig(t *testing.T) {
	_, err := NewEngine(Options{Mode: "weighted"}, nil)
	assert.Error(t, err)
	_, err = NewEngine(Options{Vocabulary: "llm"}, nil)
	assert.Error(t, err)
}

func TestScoreRole(t *testing.T) {
	e := newEngine(t, Options{})
	snap := loadSnapshot(t)

	res, err := e.ScoreRole(context.Background(), snap, ScoreRequest{
		Query:  dataset.Query{Stream: "Engineering", JobRole: "Data Analyst"},
		Resume: &Resume{Text: "python, excel"},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Companies)
	assert.Equal(t, []string{"excel", "python", "sql", "statistics"}, res.Required)
	assert.Equal(t, 50, res.Match.Percent)
	assert.Equal(t, []string{"sql", "statistics"}, res.Match.Missing)

	res, err = e.ScoreRole(context.Background(), snap, ScoreRequest{
		RequiredSkills: "Python, SQL, Excel",
		Resume:         &Resume{Text: "python and excel"},
	})
	require.NoError(t, err)
	assert.Equal(t, 66, res.Match.Percent)
	assert.Equal(t, []string{"sql"}, res.Match.Missing)

	res, err = e.ScoreRole(context.Background(), nil, ScoreRequest{
		RequiredSkills: "rust",
		Resume:         &Resume{Text: "I write Rust"},
	})
	require.NoError(t, err)
	assert.Equal(t, 100, res.Match.Percent)

	_, err = e.ScoreRole(context.Background(), snap, ScoreRequest{Query: dataset.Query{JobRole: "Dev"}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingInput))

	_, err = e.ScoreRole(context.Background(), snap, ScoreRequest{Resume: &Resume{Text: "x"}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestListOptions(t *testing.T) {
	snap := loadSnapshot(t)

	top := ListOptions(snap, dataset.Query{})
	assert.Equal(t, []string{"Commerce", "Engineering"}, top.Streams)
	assert.Nil(t, top.Departments)
	assert.False(t, top.HasCourse)

	dept := ListOptions(snap, dataset.Query{Stream: "Engineering"})
	assert.Equal(t, []string{"CSE"}, dept.Departments)
	assert.Nil(t, dept.JobRoles)

	roles := ListOptions(snap, dataset.Query{Stream: "Engineering", Department: "CSE"})
	assert.Equal(t, []string{"Data Analyst", "Developer"}, roles.JobRoles)
}
