package dataset

import (
	"bytes"
	"encoding/csv"
	"io"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"careermatch/internal/eligibility"
	"careermatch/internal/errors"
	"careermatch/internal/skills"
)

// DefaultMaxRows caps how many data rows are read from the table.
const DefaultMaxRows = 5000

const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "latin-1"
)

const (
	colStream        = "stream"
	colCourse        = "course"
	colDepartment    = "department"
	colJobRole       = "job_role"
	colCompanyName   = "company_name"
	colCompanyLevel  = "company_level"
	colLocation      = "location"
	colRequiredSkill = "required_skill"
)

var requiredColumns = []string{colStream, colDepartment, colJobRole, colCompanyName, colCompanyLevel}

var columnAliases = map[string]string{
	"company":         colCompanyName,
	"level":           colCompanyLevel,
	"role":            colJobRole,
	"required_skills": colRequiredSkill,
	"skills":          colRequiredSkill,
	"branch":          colDepartment,
}

// LoaderOptions tunes Load.
type LoaderOptions struct {
	MaxRows int
	Logger  *errors.Logger
}

// LoadFile reads and parses the table at path.
func LoadFile(path string, opts LoaderOptions) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewDataLoadError(errors.ErrCodeDatasetNotFound, "dataset file not found", err).
				WithContext("path", path)
		}
		return nil, errors.NewDataLoadError(errors.ErrCodeDatasetUnreadable, "failed to read dataset file", err).
			WithContext("path", path)
	}

	snap, err := Parse(data, opts)
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			appErr.WithContext("path", path)
		}
		return nil, err
	}
	snap.Path = path
	return snap, nil
}

// Parse builds a snapshot from raw table bytes. Bytes that are not valid
// UTF-8 are decoded as ISO-8859-1. Rows the CSV reader rejects, and rows
// with more fields than the header, are skipped; short rows are padded.
func Parse(data []byte, opts LoaderOptions) (*Snapshot, error) {
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	encoding := EncodingUTF8
	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err != nil {
			return nil, errors.NewDataLoadError(errors.ErrCodeDatasetUnreadable, "failed to decode dataset as latin-1", err)
		}
		data = decoded
		encoding = EncodingLatin1
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return nil, errors.NewDataLoadError(errors.ErrCodeDatasetEmpty, "dataset is empty", nil)
		}
		return nil, errors.NewDataLoadError(errors.ErrCodeDatasetUnreadable, "failed to read dataset header", err)
	}

	index := mapHeader(header)
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewDataLoadError(errors.ErrCodeDatasetColumns, "dataset is missing required columns", nil).
			WithContext("missing_columns", missing)
	}

	_, hasCourseCol := index[colCourse]
	_, hasSkillCol := index[colRequiredSkill]
	report := LoadReport{Encoding: encoding, HasSkills: hasSkillCol}
	records := make([]CompanyRecord, 0, 256)

	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				report.Skipped++
				logSkip(opts.Logger, parseErr.StartLine, parseErr.Err.Error())
				continue
			}
			return nil, errors.NewDataLoadError(errors.ErrCodeDatasetUnreadable, "failed to read dataset", err)
		}
		line, _ := reader.FieldPos(0)
		if len(rec) > len(header) {
			report.Skipped++
			logSkip(opts.Logger, line, "too many fields")
			continue
		}
		if len(records) == maxRows {
			report.Truncated = true
			break
		}

		r := buildRecord(rec, index, line)
		if r.Course != "" && hasCourseCol {
			report.HasCourse = true
		}
		if !r.Scorable() {
			report.Unscorable++
		}
		records = append(records, r)
	}

	if len(records) == 0 {
		return nil, errors.NewDataLoadError(errors.ErrCodeDatasetEmpty, "dataset has no usable rows", nil).
			WithContext("skipped", report.Skipped)
	}

	report.Rows = len(records)
	return &Snapshot{
		LoadedAt: time.Now(),
		Records:  records,
		Report:   report,
	}, nil
}

func buildRecord(rec []string, index map[string]int, line int) CompanyRecord {
	get := func(col string) string {
		i, ok := index[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	level := get(colCompanyLevel)
	required := get(colRequiredSkill)
	return CompanyRecord{
		Row:            line,
		Stream:         get(colStream),
		Course:         get(colCourse),
		Department:     get(colDepartment),
		JobRole:        get(colJobRole),
		CompanyName:    get(colCompanyName),
		Level:          eligibility.ParseTier(level),
		LevelRaw:       level,
		Location:       get(colLocation),
		RequiredSkill:  required,
		RequiredSkills: skills.ParseList(required),
	}
}

// mapHeader resolves header cells to canonical column names. Matching is
// case-insensitive and treats spaces and hyphens as underscores.
func mapHeader(header []string) map[string]int {
	index := make(map[string]int, len(header))
	for i, h := range header {
		name := canonicalColumn(h)
		if alias, ok := columnAliases[name]; ok {
			name = alias
		}
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	return index
}

func canonicalColumn(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.NewReplacer(" ", "_", "-", "_").Replace(h)
	return h
}

func logSkip(logger *errors.Logger, line int, reason string) {
	if logger == nil {
		return
	}
	err := errors.NewMalformedRowError(line, reason)
	logger.Debug("Skipping malformed dataset row",
		"error_code", err.Code,
		"line", line,
		"reason", err.Message)
}
