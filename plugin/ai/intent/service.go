package intent

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/zwrong/Calendar-Agent/plugin/ai/metrics"
	"github.com/zwrong/Calendar-Agent/plugin/ai/timeout"
)

// Service layers the two extractors:
// Layer 1: language service (when configured)
// Layer 2: rule-based fallback, used on any extraction error
type Service struct {
	primary  Extractor
	fallback Extractor
	metrics  metrics.MetricsService
}

// NewService creates the composite extractor. primary may be nil (rules only).
func NewService(primary Extractor, fallback Extractor, m metrics.MetricsService) *Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Service{
		primary:  primary,
		fallback: fallback,
		metrics:  m,
	}
}

// Extract implements Extractor.
func (s *Service) Extract(ctx context.Context, utterance string, ref time.Time) (Intent, error) {
	if strings.TrimSpace(utterance) == "" {
		return Intent{}, ErrEmptyUtterance
	}
	start := time.Now()

	if s.primary != nil {
		it, err := s.primary.Extract(ctx, utterance, ref)
		if err == nil {
			slog.Debug("intent extracted by language service",
				"input", timeout.Truncate(utterance),
				"operation", it.Operation,
				"latency_ms", time.Since(start).Milliseconds())
			return it, nil
		}

		code := string(CodeServiceUnavailable)
		var ee *ExtractionError
		if errors.As(err, &ee) {
			code = string(ee.Code)
		}
		slog.Warn("language service extraction failed, falling back to rules",
			"code", code,
			"error", err)
		s.metrics.RecordFallback(ctx, code)
	}

	it, err := s.fallback.Extract(ctx, utterance, ref)
	if err != nil {
		return Intent{}, err
	}
	slog.Debug("intent extracted by rules",
		"input", timeout.Truncate(utterance),
		"operation", it.Operation,
		"latency_ms", time.Since(start).Milliseconds())
	return it, nil
}

var _ Extractor = (*Service)(nil)
