package calls

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/richxcame/cdr-radar/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultLoadTimeout = 15 * time.Second

var tracer = otel.Tracer("github.com/richxcame/cdr-radar/internal/calls")

// Service loads call record batches and turns them into reports
type Service struct {
	source      Source
	engine      Engine
	cache       ReportCache
	publisher   AlertPublisher
	loadTimeout time.Duration
	now         func() time.Time
}

// Option customises a Service
type Option func(*Service)

// WithCache enables report caching by batch digest
func WithCache(cache ReportCache) Option {
	return func(s *Service) { s.cache = cache }
}

// WithPublisher enables critical alert publishing
func WithPublisher(publisher AlertPublisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// WithLoadTimeout bounds each source load
func WithLoadTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// NewService creates a detection service
func NewService(source Source, engine Engine, opts ...Option) *Service {
	s := &Service{
		source:      source,
		engine:      engine,
		loadTimeout: defaultLoadTimeout,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the engine's detection policy
func (s *Service) Policy() Policy {
	return s.engine.Policy()
}

// Detect loads the current batch from the source and returns its report
func (s *Service) Detect(ctx context.Context) (*Report, error) {
	ctx, span := tracer.Start(ctx, "calls.Detect")
	defer span.End()

	start := time.Now()
	sourceName := s.source.Name()
	defer func() {
		detectionDuration.WithLabelValues(sourceName).Observe(time.Since(start).Seconds())
	}()

	loadCtx, cancel := context.WithTimeout(ctx, s.loadTimeout)
	records, err := s.source.LoadRecords(loadCtx)
	cancel()
	if err != nil {
		return nil, s.fail(ctx, span, sourceName, err)
	}

	digest, err := batchDigest(records)
	if err != nil {
		return nil, s.fail(ctx, span, sourceName, fmt.Errorf("%w: %v", ErrInternal, err))
	}
	span.SetAttributes(
		attribute.String("cdr.source", sourceName),
		attribute.Int("cdr.records", len(records)),
		attribute.String("cdr.digest", digest),
	)

	key := reportKey(s.engine.Policy(), digest)
	if report := s.cached(ctx, key); report != nil {
		detectionRunsTotal.WithLabelValues(sourceName, outcomeOK).Inc()
		return report, nil
	}

	report, err := s.analyse(records, digest)
	if err != nil {
		return nil, s.fail(ctx, span, sourceName, err)
	}

	recordsProcessedTotal.WithLabelValues(sourceName).Add(float64(len(records)))
	detectionRunsTotal.WithLabelValues(sourceName, outcomeOK).Inc()
	recordSummary(report.Summary)
	span.SetAttributes(attribute.Int("cdr.suspicious", len(report.Suspicious)))

	logger.WithContext(ctx).Info("Call record batch analysed",
		zap.String("source", sourceName),
		zap.String("report_id", report.ID),
		zap.Int("records", len(records)),
		zap.Int("suspicious", len(report.Suspicious)),
		zap.Int("critical", report.Summary.CriticalCallers),
	)

	s.store(ctx, key, report)
	s.publish(ctx, report)

	return report, nil
}

// DetectBatch analyses a batch supplied by the caller. It bypasses the cache
// and does not publish alerts.
func (s *Service) DetectBatch(ctx context.Context, records []CallRecord) (*Report, error) {
	_, span := tracer.Start(ctx, "calls.DetectBatch")
	defer span.End()

	digest, err := batchDigest(records)
	if err != nil {
		return nil, s.fail(ctx, span, "request", fmt.Errorf("%w: %v", ErrInternal, err))
	}

	report, err := s.analyse(records, digest)
	if err != nil {
		return nil, s.fail(ctx, span, "request", err)
	}

	recordsProcessedTotal.WithLabelValues("request").Add(float64(len(records)))
	detectionRunsTotal.WithLabelValues("request", outcomeOK).Inc()
	return report, nil
}

// Cells runs Detect and buckets the suspicious callers into H3 cells
func (s *Service) Cells(ctx context.Context, resolution int) ([]CellAggregate, error) {
	report, err := s.Detect(ctx)
	if err != nil {
		return nil, err
	}
	return AggregateByCell(report.Suspicious, resolution)
}

func (s *Service) analyse(records []CallRecord, digest string) (*Report, error) {
	suspicious, err := s.engine.DetectSuspiciousCallers(records)
	if err != nil {
		return nil, err
	}

	policy := s.engine.Policy()
	return &Report{
		ID:          uuid.New().String(),
		Digest:      digest,
		Records:     len(records),
		GeneratedAt: s.now().UTC(),
		Suspicious:  suspicious,
		Summary:     Summarize(suspicious, policy),
		Countries:   AggregateByCountry(suspicious),
	}, nil
}

func (s *Service) cached(ctx context.Context, key string) *Report {
	if s.cache == nil {
		return nil
	}

	report, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		reportCacheTotal.WithLabelValues("error").Inc()
		logger.WithContext(ctx).Warn("Report cache lookup failed", zap.String("key", key), zap.Error(err))
		return nil
	}
	if !ok {
		reportCacheTotal.WithLabelValues("miss").Inc()
		return nil
	}

	reportCacheTotal.WithLabelValues("hit").Inc()
	return report
}

func (s *Service) store(ctx context.Context, key string, report *Report) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, report); err != nil {
		logger.WithContext(ctx).Warn("Failed to cache report", zap.String("report_id", report.ID), zap.Error(err))
	}
}

func (s *Service) publish(ctx context.Context, report *Report) {
	if s.publisher == nil {
		return
	}
	alerts := CriticalAlerts(report.Suspicious, s.engine.Policy())
	if len(alerts) == 0 {
		return
	}
	if err := s.publisher.PublishCritical(ctx, report, alerts); err != nil {
		logger.WithContext(ctx).Warn("Failed to publish critical alerts",
			zap.String("report_id", report.ID),
			zap.Int("count", len(alerts)),
			zap.Error(err),
		)
	}
}

func (s *Service) fail(ctx context.Context, span trace.Span, sourceName string, err error) error {
	outcome := outcomeInternal
	switch {
	case errors.Is(err, ErrSourceUnavailable):
		outcome = outcomeSourceUnavailable
	case IsDataFormatError(err):
		outcome = outcomeDataFormat
	}

	detectionRunsTotal.WithLabelValues(sourceName, outcome).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, outcome)

	logger.WithContext(ctx).Error("Detection run failed",
		zap.String("source", sourceName),
		zap.String("outcome", outcome),
		zap.Error(err),
	)
	return err
}

// batchDigest fingerprints a batch. Order is part of the fingerprint because it
// decides field selection and tie-breaks.
func batchDigest(records []CallRecord) (string, error) {
	raw, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
