package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"careermatch/internal/dataset"
	"careermatch/internal/errors"
)

const withCourses = `stream,course,department,job_role,company_name,company_level,required_skill
Engineering,B.Tech,CSE,Data Analyst,Acme,Mid,python
Engineering,B.Tech,ECE,Embedded Engineer,Bosch,High,c
Engineering,M.Tech,CSE,Researcher,Labs,Low,python
Commerce,B.Com,Finance,Analyst,Umbrella,Mid,excel
`

const withoutCourses = `stream,department,job_role,company_name,company_level,required_skill
Engineering,CSE,Data Analyst,Acme,Mid,python
Commerce,Finance,Analyst,Umbrella,Mid,excel
`

func snapshot(t *testing.T, csv string) *dataset.Snapshot {
	t.Helper()
	snap, err := dataset.Parse([]byte(csv), dataset.LoaderOptions{})
	require.NoError(t, err)
	return snap
}

func TestWizardHappyPath(t *testing.T) {
	w := New(snapshot(t, withCourses))
	assert.Equal(t, SelectingStream, w.State())
	assert.Equal(t, []string{"Commerce", "Engineering"}, w.Options())

	require.NoError(t, w.Choose("engineering"))
	pending, ok := w.Pending()
	assert.True(t, ok)
	assert.Equal(t, "Engineering", pending)
	assert.Equal(t, SelectingStream, w.State(), "choosing does not advance")

	require.NoError(t, w.Confirm())
	assert.Equal(t, SelectingCourse, w.State())
	assert.Equal(t, []string{"B.Tech", "M.Tech"}, w.Options())

	require.NoError(t, w.Choose("B.Tech"))
	require.NoError(t, w.Confirm())
	assert.Equal(t, SelectingDepartment, w.State())
	assert.Equal(t, []string{"CSE", "ECE"}, w.Options())

	require.NoError(t, w.Choose("CSE"))
	require.NoError(t, w.Confirm())
	assert.Equal(t, []string{"Data Analyst"}, w.Options())

	require.NoError(t, w.Choose("Data Analyst"))
	require.NoError(t, w.Confirm())
	assert.True(t, w.Done())
	assert.Equal(t, dataset.Query{
		Stream:     "Engineering",
		Course:     "B.Tech",
		Department: "CSE",
		JobRole:    "Data Analyst",
	}, w.Query())
}

func TestWizardSkipsCourseWhenAbsent(t *testing.T) {
	w := New(snapshot(t, withoutCourses))
	require.NoError(t, w.Choose("Engineering"))
	require.NoError(t, w.Confirm())
	assert.Equal(t, SelectingDepartment, w.State())

	w.Back()
	assert.Equal(t, SelectingStream, w.State())
	assert.Equal(t, dataset.Query{}, w.Query())
}

func TestWizardConfirmRequiresChoice(t *testing.T) {
	w := New(snapshot(t, withCourses))
	err := w.Confirm()
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeMissingInput))
	assert.Equal(t, SelectingStream, w.State())
}

func TestWizardRejectsUnavailableChoice(t *testing.T) {
	w := New(snapshot(t, withCourses))
	require.NoError(t, w.Choose("Commerce"))
	require.NoError(t, w.Confirm())
	require.NoError(t, w.Choose("B.Com"))
	require.NoError(t, w.Confirm())

	err := w.Choose("CSE")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
	_, ok := w.Pending()
	assert.False(t, ok)
}

func TestWizardBackClearsLaterChoices(t *testing.T) {
	w := New(snapshot(t, withCourses))
	for _, v := range []string{"Engineering", "B.Tech", "CSE", "Data Analyst"} {
		require.NoError(t, w.Choose(v))
		require.NoError(t, w.Confirm())
	}
	require.True(t, w.Done())

	w.Back()
	assert.Equal(t, SelectingRole, w.State())
	assert.Empty(t, w.Query().JobRole)
	assert.Equal(t, "CSE", w.Query().Department)

	w.Back()
	assert.Equal(t, SelectingDepartment, w.State())
	assert.Empty(t, w.Query().Department)

	w.Back()
	assert.Equal(t, SelectingCourse, w.State())
	assert.Empty(t, w.Query().Course)
	assert.Equal(t, "Engineering", w.Query().Stream)

	w.Reset()
	assert.Equal(t, SelectingStream, w.State())
	assert.Equal(t, dataset.Query{}, w.Query())
}

func TestWizardReadyRejectsChoose(t *testing.T) {
	w := New(snapshot(t, withoutCourses))
	for _, v := range []string{"Commerce", "Finance", "Analyst"} {
		require.NoError(t, w.Choose(v))
		require.NoError(t, w.Confirm())
	}
	assert.True(t, w.Done())
	assert.Error(t, w.Choose("Analyst"))
	assert.NoError(t, w.Confirm())
	assert.Equal(t, "ready", w.State().String())
}
