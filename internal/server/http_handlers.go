package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"careermatch/internal/errors"
	"careermatch/internal/types"
)

const healthCheckTimeout = 5 * time.Second

// healthHandler reports dataset, AI model and certificate state. A missing
// dataset or an expiring certificate makes the service unavailable; an
// unreachable model only degrades it, since detection falls back to
// keyword matching.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	response := types.HealthResponse{Status: "healthy", Version: s.Version}
	status := http.StatusOK

	if snap := s.Services.Snapshot(); snap != nil {
		response.Dataset = &types.DatasetInfo{
			Path:     snap.Path,
			LoadedAt: snap.LoadedAt.Format(time.RFC3339),
			Report:   snap.Report,
		}
	} else {
		response.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}

	if s.Services.AI != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		info := s.Services.AI.GetModelInfo(ctx)
		cancel()
		response.AI = info
		if !info.Available && response.Status == "healthy" {
			response.Status = "degraded"
		}
	}

	if s.CertificateManager != nil {
		certs := s.CertificateManager.Health()
		response.Certificates = certs
		if healthy, _ := certs["healthy"].(bool); !healthy {
			response.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, status, response)
}

// statsHandler reports engine settings, dataset load report, reload and
// rate limiting counters.
func (s *Server) statsHandler(w http.ResponseWriter, r *http.Request) {
	engine := s.Services.Engine
	response := types.StatsResponse{
		Engine:  types.EngineInfoFrom(engine.Options(), engine.DetectorName()),
		Reloads: s.reloads.stats(),
		History: s.Services.History != nil,
	}
	if snap := s.Services.Snapshot(); snap != nil {
		response.Dataset = types.DatasetInfo{
			Path:     snap.Path,
			LoadedAt: snap.LoadedAt.Format(time.RFC3339),
			Report:   snap.Report,
		}
	}
	if s.RateLimiter != nil {
		response.RateLimit = s.RateLimiter.GetStats()
	} else {
		response.RateLimit = map[string]any{"enabled": false}
	}
	if s.Services.AI != nil {
		response.Breakers = s.Services.AI.BreakerStats()
	}

	writeJSON(w, http.StatusOK, response)
}

// parseJSONRequest decodes a JSON body into v
func parseJSONRequest(r *http.Request, v any) error {
	if mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")); mediaType != "application/json" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, "content-type must be application/json", nil)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if stderrors.As(err, &maxBytesErr) {
			return errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("request body too large (limit is %d bytes)", maxBytesErr.Limit), nil)
		}
		return errors.NewIOError(errors.ErrCodeFileNotReadable, "failed to read request body", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, "failed to parse JSON body", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps an error to its HTTP status
func statusFor(err error) int {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Type {
	case errors.ErrorTypeValidation, errors.ErrorTypeMissingInput, errors.ErrorTypeMalformedRow, errors.ErrorTypeIO:
		return http.StatusBadRequest
	case errors.ErrorTypeEmptyResult:
		return http.StatusNotFound
	case errors.ErrorTypeDataLoad:
		return http.StatusServiceUnavailable
	case errors.ErrorTypeAI, errors.ErrorTypeNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as an ErrorResponse. Internal errors are logged and
// their detail withheld from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	response := types.ErrorResponse{Error: err.Error(), RequestID: requestID(r.Context())}

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		response.Error = appErr.Message
		response.Code = appErr.Code
		response.Type = string(appErr.Type)
		response.Context = appErr.Context
	}
	if status >= http.StatusInternalServerError {
		s.Logger.LogError(err, "Request failed", "endpoint", r.URL.Path, "request_id", response.RequestID)
		if status == http.StatusInternalServerError {
			response.Error = "internal error"
			response.Context = nil
		}
	}
	writeJSON(w, status, response)
}

// writeErrorMessage writes an ErrorResponse for failures raised by the
// HTTP layer itself
func writeErrorMessage(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, types.ErrorResponse{
		Error:     message,
		Code:      code,
		RequestID: requestID(r.Context()),
	})
}
