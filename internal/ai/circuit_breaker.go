package ai

import (
	"fmt"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"

	"careermatch/internal/config"
	"careermatch/internal/errors"
)

// Breaker guards calls returning T. A nil *Breaker runs calls directly,
// which is how a disabled breaker behaves.
type Breaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// BreakerStats is a snapshot of a breaker for health reporting.
type BreakerStats struct {
	Enabled             bool   `json:"enabled"`
	Name                string `json:"name,omitempty"`
	State               string `json:"state,omitempty"`
	Requests            uint32 `json:"requests"`
	TotalFailures       uint32 `json:"totalFailures"`
	ConsecutiveFailures uint32 `json:"consecutiveFailures"`
}

func newBreaker[T any](name string, cfg config.CircuitBreakerConfig, minRequests uint32, threshold float64, logger *errors.Logger) *Breaker[T] {
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < minRequests || counts.Requests == 0 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Info("Circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String())
			}
		},
	}
	return &Breaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// NewGenerateBreaker builds the breaker around content generation for an
// operation. It returns nil when the breaker is disabled.
func NewGenerateBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.GenerateContentResponse] {
	cb := cfg.CircuitBreaker
	if !cb.Enabled {
		return nil
	}
	return newBreaker[*genai.GenerateContentResponse](fmt.Sprintf("AI-%s", operation), cb, cb.MinRequests, cb.FailureThreshold, logger)
}

// NewModelBreaker builds the breaker around model lookups. Model checks
// only feed health reporting, so it trips later than the generate breaker.
func NewModelBreaker(operation string, cfg *config.OperationAIConfig, logger *errors.Logger) *Breaker[*genai.Model] {
	cb := cfg.CircuitBreaker
	if !cb.Enabled {
		return nil
	}
	return newBreaker[*genai.Model](fmt.Sprintf("AI-Model-%s", operation), cb, 5, 0.8, logger)
}

// Execute runs fn under the breaker.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	if b == nil || b.cb == nil {
		return fn()
	}
	return b.cb.Execute(fn)
}

func (b *Breaker[T]) Stats() BreakerStats {
	if b == nil || b.cb == nil {
		return BreakerStats{}
	}
	counts := b.cb.Counts()
	return BreakerStats{
		Enabled:             true,
		Name:                b.cb.Name(),
		State:               b.cb.State().String(),
		Requests:            counts.Requests,
		TotalFailures:       counts.TotalFailures,
		ConsecutiveFailures: counts.ConsecutiveFailures,
	}
}

// IsHealthy reports whether the breaker is closed. A disabled breaker is
// always healthy.
func (b *Breaker[T]) IsHealthy() bool {
	if b == nil || b.cb == nil {
		return true
	}
	return b.cb.State() == gobreaker.StateClosed
}
