// Package biz contains business logic layer implementations.
// This layer holds the core orchestration rules: breakers, content lifecycle,
// scheduling, the execution ledger and the background jobs.
package biz

import (
	"PostLane/internal/data"
	"PostLane/internal/metrics"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewBreakerRegistry,
	NewContentUsecase,
	NewExecutionLedger,
	NewSilentFailureDetector,
	NewPublishTask,
	NewGenerationTask,
	NewJobRunner,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(ContentRepo), new(*data.ContentRepo)),
	wire.Bind(new(ExecutionRepo), new(*data.ExecutionRepo)),
	wire.Bind(new(AuditLogger), new(*data.AuditLoggerImpl)),
	wire.Bind(new(Notifier), new(*data.NoopNotifier)),
	wire.Bind(new(JobLocker), new(*data.JobLocker)),
	wire.Bind(new(Publisher), new(*data.PlatformClient)),
	wire.Bind(new(ContentGenerator), new(*data.GeneratorClient)),
	wire.Bind(new(Metrics), new(*metrics.Metrics)),
)
