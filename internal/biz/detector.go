package biz

import (
	"context"
	"fmt"
	"time"

	"PostLane/internal/conf"
	"PostLane/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	defaultDetectionMargin = 2 * time.Hour
	defaultGracePeriod     = 5 * time.Minute
	defaultDetectInterval  = 30 * time.Minute
	defaultReportCapacity  = 256
)

// DetectorConfig tunes the silent-failure detector.
type DetectorConfig struct {
	// DetectionMargin is how far back an expected occurrence is still checked.
	DetectionMargin time.Duration
	// GracePeriod gives a run time to start before its absence is reported.
	GracePeriod time.Duration
	// Interval is the detector's own cadence; it must not exceed DetectionMargin.
	Interval time.Duration
	// ReportCapacity bounds the recent-report list and the dedup set.
	ReportCapacity int
}

// Validate enforces positive durations and the blind-spot rule.
func (c DetectorConfig) Validate() error {
	switch {
	case c.DetectionMargin <= 0:
		return &ConfigurationError{Field: "detector.detection_margin", Message: "must be positive"}
	case c.GracePeriod < 0:
		return &ConfigurationError{Field: "detector.grace_period", Message: "must not be negative"}
	case c.GracePeriod >= c.DetectionMargin:
		return &ConfigurationError{Field: "detector.grace_period", Message: "must be shorter than the detection margin"}
	case c.Interval <= 0:
		return &ConfigurationError{Field: "detector.interval", Message: "must be positive"}
	case c.Interval > c.DetectionMargin:
		return &ConfigurationError{
			Field:   "detector.interval",
			Message: fmt.Sprintf("interval %s exceeds detection margin %s, missed runs could go unnoticed", c.Interval, c.DetectionMargin),
		}
	case c.ReportCapacity <= 0:
		return &ConfigurationError{Field: "detector.report_capacity", Message: "must be positive"}
	}
	return nil
}

// SilentFailureDetector compares the schedules against the ledger and reports
// expected runs that never started.
type SilentFailureDetector struct {
	cfg       DetectorConfig
	schedules []ScheduleDefinition
	ledger    *ExecutionLedger
	audit     AuditLogger
	notifier  Notifier
	metrics   Metrics
	logger    *log.Helper

	seen    *lru.Cache[string, struct{}]
	reports *lru.Cache[string, model.SilentFailure]
}

// NewSilentFailureDetector creates a detector over the configured schedules.
func NewSilentFailureDetector(bc *conf.Bootstrap, ledger *ExecutionLedger, audit AuditLogger, notifier Notifier, metrics Metrics, logger log.Logger) (*SilentFailureDetector, error) {
	cfg := DetectorConfig{
		DetectionMargin: defaultDetectionMargin,
		GracePeriod:     defaultGracePeriod,
		Interval:        defaultDetectInterval,
		ReportCapacity:  defaultReportCapacity,
	}
	if bc.Jobs != nil && bc.Jobs.Detector != nil {
		d := bc.Jobs.Detector
		cfg = DetectorConfig{
			DetectionMargin: d.DetectionMargin,
			GracePeriod:     d.GracePeriod,
			Interval:        d.Interval,
			ReportCapacity:  d.ReportCapacity,
		}
	}
	schedules, err := SchedulesFromConfig(bc)
	if err != nil {
		return nil, err
	}
	return newSilentFailureDetector(cfg, schedules, ledger, audit, notifier, metrics, logger)
}

func newSilentFailureDetector(cfg DetectorConfig, schedules []ScheduleDefinition, ledger *ExecutionLedger, audit AuditLogger, notifier Notifier, metrics Metrics, logger log.Logger) (*SilentFailureDetector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	for _, def := range schedules {
		if err := ValidateSchedule(def); err != nil {
			return nil, err
		}
	}

	seen, err := lru.New[string, struct{}](cfg.ReportCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector dedup cache: %w", err)
	}
	reports, err := lru.New[string, model.SilentFailure](cfg.ReportCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create detector report cache: %w", err)
	}

	return &SilentFailureDetector{
		cfg:       cfg,
		schedules: schedules,
		ledger:    ledger,
		audit:     audit,
		notifier:  notifier,
		metrics:   metrics,
		logger:    log.NewHelper(logger),
		seen:      seen,
		reports:   reports,
	}, nil
}

// Interval is the cadence the detector expects to be invoked at.
func (d *SilentFailureDetector) Interval() time.Duration {
	return d.cfg.Interval
}

// Detect returns every expected run within the margin that has no ledger record.
// Findings are reported, never returned as errors.
func (d *SilentFailureDetector) Detect(ctx context.Context, now time.Time) []model.SilentFailure {
	now = now.UTC()
	var findings []model.SilentFailure

	for _, def := range d.schedules {
		expected, err := PreviousOccurrence(def, now)
		if err != nil {
			d.logger.WithContext(ctx).Errorw("msg", "failed to compute expected occurrence", "job", def.JobName, "error", err)
			continue
		}
		elapsed := now.Sub(expected)
		if elapsed > d.cfg.DetectionMargin || elapsed < d.cfg.GracePeriod {
			continue
		}

		ran, err := d.ledger.HasRunSince(ctx, def.JobName, expected)
		if err != nil {
			d.logger.WithContext(ctx).Warnw("msg", "skipping silent-failure check, ledger unavailable",
				"job", def.JobName,
				"expected_at", expected,
				"error", err)
			continue
		}
		if ran {
			continue
		}

		finding := model.SilentFailure{
			JobName:    def.JobName,
			ExpectedAt: expected,
			DetectedAt: now,
			Message: fmt.Sprintf("job %s was expected at %s but has no execution record after %s",
				def.JobName, expected.Format(time.RFC3339), elapsed.Round(time.Second)),
		}
		findings = append(findings, finding)
		d.report(ctx, finding)
	}

	if len(findings) > 0 {
		d.logger.WithContext(ctx).Warnw("msg", "silent failures detected", "count", len(findings))
	}
	return findings
}

// report records a finding the first time it is seen.
func (d *SilentFailureDetector) report(ctx context.Context, f model.SilentFailure) {
	key := f.JobName + "@" + f.ExpectedAt.Format(time.RFC3339)
	if ok, _ := d.seen.ContainsOrAdd(key, struct{}{}); ok {
		return
	}
	d.reports.Add(key, f)

	d.logger.WithContext(ctx).Errorw("msg", "scheduled job never ran",
		"job", f.JobName,
		"expected_at", f.ExpectedAt,
		"detected_at", f.DetectedAt)

	event := &model.SilentFailureEvent{
		JobName:    f.JobName,
		ExpectedAt: f.ExpectedAt,
		DetectedAt: f.DetectedAt,
		Message:    f.Message,
	}
	d.metrics.SilentFailure(f.JobName)
	d.audit.LogSilentFailure(ctx, event)
	if err := d.notifier.NotifySilentFailure(ctx, event); err != nil {
		d.logger.WithContext(ctx).Warnw("msg", "failed to notify silent failure", "job", f.JobName, "error", err)
	}
}

// Recent returns the retained reports, newest first.
func (d *SilentFailureDetector) Recent() []model.SilentFailure {
	values := d.reports.Values()
	out := make([]model.SilentFailure, 0, len(values))
	for i := len(values) - 1; i >= 0; i-- {
		out = append(out, values[i])
	}
	return out
}
