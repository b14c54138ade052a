package formatters

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"careermatch/internal/history"
	"careermatch/internal/recommend"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", "RecommendResult", &RecommendTextFormatter{})
	registry.RegisterFormatter("markdown", "RecommendResult", &RecommendMarkdownFormatter{})
	registry.RegisterFormatter("text", "ScoreResult", &ScoreTextFormatter{})
	registry.RegisterFormatter("markdown", "ScoreResult", &ScoreMarkdownFormatter{})
	registry.RegisterFormatter("text", "OptionSet", &OptionsTextFormatter{})
	registry.RegisterFormatter("markdown", "OptionSet", &OptionsTextFormatter{markdown: true})
	registry.RegisterFormatter("text", "HistoryRuns", &HistoryTextFormatter{})
	registry.RegisterFormatter("markdown", "HistoryRuns", &HistoryMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	sort.Strings(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *recommend.Result:
		return "RecommendResult"
	case *recommend.ScoreResult:
		return "ScoreResult"
	case recommend.OptionSet:
		return "OptionSet"
	case []history.Run:
		return "HistoryRuns"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

func listOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

// RecommendTextFormatter renders a recommendation as plain text
type RecommendTextFormatter struct{}

func (f *RecommendTextFormatter) Format(data any) (string, error) {
	res, ok := data.(*recommend.Result)
	if !ok {
		return "", fmt.Errorf("expected *recommend.Result, got %T", data)
	}

	var out strings.Builder
	out.WriteString("=== RECOMMENDATIONS ===\n")
	fmt.Fprintf(&out, "Query: %s\n", describeQuery(res))
	if res.CGPA != nil {
		fmt.Fprintf(&out, "CGPA: %.2f\n", *res.CGPA)
	}
	fmt.Fprintf(&out, "Mode: %s (cgpa policy %s, match policy %s)\n", res.Mode, res.CGPAPolicy, res.MatchPolicy)
	fmt.Fprintf(&out, "Detected skills (%s): %s\n", res.Detector, listOrNone(res.Detected))
	fmt.Fprintf(&out, "Skill readiness: %d%%\n", res.Aggregate.Percent)
	fmt.Fprintf(&out, "Eligible levels: %s\n", listOrNone(res.AllowedTiers))
	for _, w := range res.Warnings {
		fmt.Fprintf(&out, "Warning: %s\n", w)
	}
	out.WriteString("\n")

	if res.Status == recommend.StatusNoResults {
		out.WriteString("No companies match this profile.\n")
		return out.String(), nil
	}

	writeTextGroup(&out, "BEST MATCH", res.BestMatch)
	writeTextGroup(&out, "ALTERNATE ROLES", res.Alternate)
	return out.String(), nil
}

func (f *RecommendTextFormatter) SupportedType() string {
	return "RecommendResult"
}

func writeTextGroup(out *strings.Builder, title string, rows []recommend.ScoredRow) {
	fmt.Fprintf(out, "=== %s (%d) ===\n", title, len(rows))
	for _, r := range rows {
		c := r.Company
		fmt.Fprintf(out, "- %s [%s] %s", c.CompanyName, c.LevelRaw, c.JobRole)
		if c.Location != "" {
			fmt.Fprintf(out, ", %s", c.Location)
		}
		fmt.Fprintf(out, " | match %d%%\n", r.Match.Percent)
		fmt.Fprintf(out, "    matched: %s\n", listOrNone(r.Match.Matched))
		fmt.Fprintf(out, "    missing: %s\n", listOrNone(r.Match.Missing))
	}
	out.WriteString("\n")
}

func describeQuery(res *recommend.Result) string {
	parts := []string{res.Query.Stream}
	if res.Query.Course != "" {
		parts = append(parts, res.Query.Course)
	}
	parts = append(parts, res.Query.Department)
	if res.Query.JobRole != "" {
		parts = append(parts, res.Query.JobRole)
	}
	return strings.Join(parts, " / ")
}

// RecommendMarkdownFormatter renders a recommendation as markdown tables
type RecommendMarkdownFormatter struct{}

func (f *RecommendMarkdownFormatter) Format(data any) (string, error) {
	res, ok := data.(*recommend.Result)
	if !ok {
		return "", fmt.Errorf("expected *recommend.Result, got %T", data)
	}

	var out strings.Builder
	out.WriteString("# Company Recommendations\n\n")
	fmt.Fprintf(&out, "**Query:** %s\n\n", describeQuery(res))
	if res.CGPA != nil {
		fmt.Fprintf(&out, "**CGPA:** %.2f\n\n", *res.CGPA)
	}
	fmt.Fprintf(&out, "**Skill readiness:** %d%%\n\n", res.Aggregate.Percent)
	fmt.Fprintf(&out, "**Detected skills:** %s\n\n", listOrNone(res.Detected))
	fmt.Fprintf(&out, "**Eligible levels:** %s\n\n", listOrNone(res.AllowedTiers))
	for _, w := range res.Warnings {
		fmt.Fprintf(&out, "> %s\n\n", w)
	}

	if res.Status == recommend.StatusNoResults {
		out.WriteString("_No companies match this profile._\n")
		return out.String(), nil
	}

	writeMarkdownGroup(&out, "Best Match", res.BestMatch)
	writeMarkdownGroup(&out, "Alternate Roles", res.Alternate)
	return out.String(), nil
}

func (f *RecommendMarkdownFormatter) SupportedType() string {
	return "RecommendResult"
}

func writeMarkdownGroup(out *strings.Builder, title string, rows []recommend.ScoredRow) {
	fmt.Fprintf(out, "## %s\n\n", title)
	if len(rows) == 0 {
		out.WriteString("_None_\n\n")
		return
	}
	out.WriteString("| Company | Level | Role | Location | Match | Missing |\n")
	out.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range rows {
		c := r.Company
		fmt.Fprintf(out, "| %s | %s | %s | %s | %d%% | %s |\n",
			c.CompanyName, c.LevelRaw, c.JobRole, c.Location, r.Match.Percent, listOrNone(r.Match.Missing))
	}
	out.WriteString("\n")
}

// ScoreTextFormatter renders a skill gap report as plain text
type ScoreTextFormatter struct{}

func (f *ScoreTextFormatter) Format(data any) (string, error) {
	res, ok := data.(*recommend.ScoreResult)
	if !ok {
		return "", fmt.Errorf("expected *recommend.ScoreResult, got %T", data)
	}

	var out strings.Builder
	out.WriteString("=== SKILL READINESS ===\n")
	if res.JobRole != "" {
		fmt.Fprintf(&out, "Role: %s (%d companies)\n", res.JobRole, res.Companies)
	}
	fmt.Fprintf(&out, "Score: %d%%\n\n", res.Match.Percent)
	fmt.Fprintf(&out, "Required: %s\n", listOrNone(res.Required))
	fmt.Fprintf(&out, "Matched:  %s\n", listOrNone(res.Match.Matched))
	fmt.Fprintf(&out, "Missing:  %s\n", listOrNone(res.Match.Missing))
	for _, w := range res.Warnings {
		fmt.Fprintf(&out, "Warning: %s\n", w)
	}
	return out.String(), nil
}

func (f *ScoreTextFormatter) SupportedType() string {
	return "ScoreResult"
}

// ScoreMarkdownFormatter renders a skill gap report as markdown
type ScoreMarkdownFormatter struct{}

func (f *ScoreMarkdownFormatter) Format(data any) (string, error) {
	res, ok := data.(*recommend.ScoreResult)
	if !ok {
		return "", fmt.Errorf("expected *recommend.ScoreResult, got %T", data)
	}

	var out strings.Builder
	out.WriteString("# Skill Readiness\n\n")
	if res.JobRole != "" {
		fmt.Fprintf(&out, "**Role:** %s\n\n", res.JobRole)
	}
	fmt.Fprintf(&out, "**Score:** %d%%\n\n", res.Match.Percent)
	out.WriteString("## Matched\n\n")
	for _, s := range res.Match.Matched {
		fmt.Fprintf(&out, "- %s\n", s)
	}
	out.WriteString("\n## Missing\n\n")
	for _, s := range res.Match.Missing {
		fmt.Fprintf(&out, "- %s\n", s)
	}
	return out.String(), nil
}

func (f *ScoreMarkdownFormatter) SupportedType() string {
	return "ScoreResult"
}

// OptionsTextFormatter lists cascade options, one level per section
type OptionsTextFormatter struct {
	markdown bool
}

func (f *OptionsTextFormatter) Format(data any) (string, error) {
	opts, ok := data.(recommend.OptionSet)
	if !ok {
		return "", fmt.Errorf("expected recommend.OptionSet, got %T", data)
	}

	var out strings.Builder
	section := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		if f.markdown {
			fmt.Fprintf(&out, "## %s\n\n", title)
		} else {
			fmt.Fprintf(&out, "%s:\n", title)
		}
		for _, item := range items {
			fmt.Fprintf(&out, "  - %s\n", item)
		}
		out.WriteString("\n")
	}
	section("Streams", opts.Streams)
	section("Courses", opts.Courses)
	section("Departments", opts.Departments)
	section("Job roles", opts.JobRoles)
	return out.String(), nil
}

func (f *OptionsTextFormatter) SupportedType() string {
	return "OptionSet"
}

// HistoryTextFormatter lists recorded runs
type HistoryTextFormatter struct{}

func (f *HistoryTextFormatter) Format(data any) (string, error) {
	runs, ok := data.([]history.Run)
	if !ok {
		return "", fmt.Errorf("expected []history.Run, got %T", data)
	}
	if len(runs) == 0 {
		return "No runs recorded.\n", nil
	}

	var out strings.Builder
	for _, r := range runs {
		fmt.Fprintf(&out, "%s  %s  %-4s  %s / %s  mode=%s status=%s readiness=%d%% best=%d alt=%d\n",
			r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID, r.Source, r.Stream, r.Department,
			r.Mode, r.Status, r.Aggregate, r.BestCount, r.AltCount)
	}
	return out.String(), nil
}

func (f *HistoryTextFormatter) SupportedType() string {
	return "HistoryRuns"
}

// HistoryMarkdownFormatter lists recorded runs as a table
type HistoryMarkdownFormatter struct{}

func (f *HistoryMarkdownFormatter) Format(data any) (string, error) {
	runs, ok := data.([]history.Run)
	if !ok {
		return "", fmt.Errorf("expected []history.Run, got %T", data)
	}

	var out strings.Builder
	out.WriteString("| Time | Source | Stream | Department | Role | Mode | Status | Readiness |\n")
	out.WriteString("|---|---|---|---|---|---|---|---|\n")
	for _, r := range runs {
		fmt.Fprintf(&out, "| %s | %s | %s | %s | %s | %s | %s | %d%% |\n",
			r.CreatedAt.Format("2006-01-02 15:04"), r.Source, r.Stream, r.Department, r.JobRole,
			r.Mode, r.Status, r.Aggregate)
	}
	return out.String(), nil
}

func (f *HistoryMarkdownFormatter) SupportedType() string {
	return "HistoryRuns"
}

// GlobalRegistry is the default registry
var GlobalRegistry = NewFormatterRegistry()
