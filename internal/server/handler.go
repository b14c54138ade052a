package server

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"careermatch/internal/dataset"
	"careermatch/internal/errors"
	"careermatch/internal/history"
	"careermatch/internal/recommend"
	"careermatch/internal/types"
)

const tracerName = "careermatch.api"

// recommendHandler serves POST /recommend
func (s *Server) recommendHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.recommend")
	defer span.End()

	var req types.RecommendRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Stream) == "" || strings.TrimSpace(req.Department) == "" {
		err := errors.NewMissingInputError(errors.ErrCodeInvalidSelection, "stream and department are required")
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}

	span.SetAttributes(
		attribute.String("query.stream", req.Stream),
		attribute.String("query.department", req.Department),
		attribute.String("query.job_role", req.JobRole),
		attribute.Bool("request.has_cgpa", req.CGPA != nil),
		attribute.Int("request.resume_length", len(req.ResumeText)),
	)

	resume, _, err := s.Services.ResolveResume("", req.ResumeText)
	if err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}
	res, err := s.Services.Recommend(ctx, recommend.Request{Query: req.Query(), CGPA: req.CGPA, Resume: resume}, "http")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.writeError(w, r, err)
		return
	}

	s.Observability.RecordRecommendation(ctx, res, "http")
	span.SetAttributes(
		attribute.String("result.status", string(res.Status)),
		attribute.Int("result.aggregate", res.Aggregate.Percent),
		attribute.Int("result.best_match", len(res.BestMatch)),
		attribute.Int("result.alternate", len(res.Alternate)),
	)
	writeJSON(w, http.StatusOK, res)
}

// scoreHandler serves POST /score
func (s *Server) scoreHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.score")
	defer span.End()

	var req types.ScoreRequest
	if err := parseJSONRequest(r, &req); err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}

	resume, _, err := s.Services.ResolveResume("", req.ResumeText)
	if err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}
	res, err := s.Services.Score(ctx, recommend.ScoreRequest{
		Query:          req.Query(),
		RequiredSkills: req.RequiredSkills,
		Resume:         resume,
	})
	if err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}

	s.Observability.RecordScore(ctx, res, "http")
	span.SetAttributes(attribute.Int("result.match", res.Match.Percent))
	writeJSON(w, http.StatusOK, res)
}

// optionsHandler serves GET /options
func (s *Server) optionsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := s.Services.Options(dataset.Query{
		Stream:     q.Get("stream"),
		Course:     q.Get("course"),
		Department: q.Get("department"),
	})
	writeJSON(w, http.StatusOK, opts)
}

// extractHandler serves POST /resume/extract. The upload goes in the
// multipart field "resume".
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	ctx, span := s.Observability.Tracer(tracerName).Start(r.Context(), "api.resume_extract")
	defer span.End()

	file, header, err := r.FormFile("resume")
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			err = errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("upload too large (limit is %d bytes)", maxBytesErr.Limit), nil)
		} else {
			err = errors.NewMissingInputError(errors.ErrCodeMissingResume, "multipart field 'resume' is required")
		}
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		err = errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read upload", err)
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}

	doc, err := s.Services.Resumes.Extract(header.Filename, data)
	if err != nil {
		span.RecordError(err)
		s.writeError(w, r, err)
		return
	}
	span.SetAttributes(
		attribute.String("resume.format", string(doc.Format)),
		attribute.Int("resume.bytes", len(data)),
	)

	found, detector, warning := s.Services.Engine.Detect(ctx, s.Services.Snapshot(), &recommend.Resume{Text: doc.Text, Source: doc.Name})
	if warning == "" {
		warning = doc.Warning
	}
	writeJSON(w, http.StatusOK, types.ExtractResponse{
		Name:     doc.Name,
		Format:   string(doc.Format),
		Pages:    doc.Pages,
		Text:     doc.Text,
		Detected: found.Sorted(),
		Detector: detector,
		Warning:  warning,
	})
}

// historyListHandler serves GET /history?limit=
func (s *Server) historyListHandler(w http.ResponseWriter, r *http.Request) {
	if s.Services.History == nil {
		writeErrorMessage(w, r, http.StatusNotFound, errors.ErrCodeHistoryFailed, "run history is disabled")
		return
	}

	limit := s.AppConfig.History.Limit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, r, errors.NewValidationError(errors.ErrCodeInvalidRequest, "limit must be a positive integer", err))
			return
		}
		limit = n
	}

	runs, err := s.Services.History.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if runs == nil {
		runs = []history.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// historyGetHandler serves GET /history/{id}
func (s *Server) historyGetHandler(w http.ResponseWriter, r *http.Request) {
	if s.Services.History == nil {
		writeErrorMessage(w, r, http.StatusNotFound, errors.ErrCodeHistoryFailed, "run history is disabled")
		return
	}

	run, err := s.Services.History.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if run == nil {
		writeErrorMessage(w, r, http.StatusNotFound, errors.ErrCodeNoResults, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}
