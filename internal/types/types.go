package types

import (
	"careermatch/internal/dataset"
	"careermatch/internal/recommend"
)

// RecommendRequest is the JSON body of POST /recommend and the input of the
// recommend_companies tool.
type RecommendRequest struct {
	Stream     string   `json:"stream"`
	Course     string   `json:"course,omitempty"`
	Department string   `json:"department"`
	JobRole    string   `json:"jobRole,omitempty"`
	CGPA       *float64 `json:"cgpa,omitempty"`
	ResumeText string   `json:"resumeText,omitempty"`
}

// Query returns the dataset filter described by the request.
func (r RecommendRequest) Query() dataset.Query {
	return dataset.Query{Stream: r.Stream, Course: r.Course, Department: r.Department, JobRole: r.JobRole}
}

// ScoreRequest is the JSON body of POST /score. RequiredSkills, when set,
// replaces the role lookup.
type ScoreRequest struct {
	Stream         string `json:"stream,omitempty"`
	Course         string `json:"course,omitempty"`
	Department     string `json:"department,omitempty"`
	JobRole        string `json:"jobRole,omitempty"`
	RequiredSkills string `json:"requiredSkills,omitempty"`
	ResumeText     string `json:"resumeText"`
}

func (r ScoreRequest) Query() dataset.Query {
	return dataset.Query{Stream: r.Stream, Course: r.Course, Department: r.Department, JobRole: r.JobRole}
}

// ExtractResponse answers POST /resume/extract.
type ExtractResponse struct {
	Name     string   `json:"name"`
	Format   string   `json:"format"`
	Pages    int      `json:"pages,omitempty"`
	Text     string   `json:"text"`
	Detected []string `json:"detectedSkills"`
	Detector string   `json:"detector"`
	Warning  string   `json:"warning,omitempty"`
}

// DatasetInfo describes the live snapshot in health and stats responses.
type DatasetInfo struct {
	Path     string             `json:"path"`
	LoadedAt string             `json:"loadedAt"`
	Report   dataset.LoadReport `json:"report"`
}

// HealthResponse answers GET /health.
type HealthResponse struct {
	Status       string         `json:"status"`
	Version      string         `json:"version"`
	Dataset      *DatasetInfo   `json:"dataset,omitempty"`
	AI           any            `json:"ai,omitempty"`
	Certificates map[string]any `json:"certificates,omitempty"`
}

// StatsResponse answers GET /stats.
type StatsResponse struct {
	Engine    EngineInfo     `json:"engine"`
	Dataset   DatasetInfo    `json:"dataset"`
	Reloads   ReloadStats    `json:"reloads"`
	RateLimit map[string]any `json:"rateLimit,omitempty"`
	Breakers  any            `json:"circuitBreakers,omitempty"`
	History   bool           `json:"historyEnabled"`
}

// EngineInfo is the engine configuration in effect.
type EngineInfo struct {
	Mode        string `json:"mode"`
	CGPAPolicy  string `json:"cgpaPolicy"`
	MatchPolicy string `json:"matchPolicy"`
	HonestyMode bool   `json:"honestyMode"`
	Dedup       string `json:"dedup"`
	Vocabulary  string `json:"vocabulary"`
	Detector    string `json:"detector"`
}

// ReloadStats counts dataset reloads since startup.
type ReloadStats struct {
	Succeeded int64  `json:"succeeded"`
	Failed    int64  `json:"failed"`
	LastError string `json:"lastError,omitempty"`
}

// EngineInfoFrom summarises engine options.
func EngineInfoFrom(opts recommend.Options, detector string) EngineInfo {
	return EngineInfo{
		Mode:        string(opts.Mode),
		CGPAPolicy:  opts.CGPAPolicy,
		MatchPolicy: opts.MatchPolicy,
		HonestyMode: opts.HonestyMode,
		Dedup:       string(opts.Dedup),
		Vocabulary:  opts.Vocabulary,
		Detector:    detector,
	}
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error     string         `json:"error"`
	Code      string         `json:"code,omitempty"`
	Type      string         `json:"type,omitempty"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}
