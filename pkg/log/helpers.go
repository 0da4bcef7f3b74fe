package log

import (
	"context"
	"fmt"

	"github.com/go-kratos/kratos/v2/log"
)

// slowRequestThresholdMs 慢请求阈值（毫秒）
const slowRequestThresholdMs = 1000

// LogHelper 扩展 Kratos log.Helper，提供便捷的日志方法
// 通过在日志调用时自动添加 "type" 字段，触发 EmojiConsoleEncoder 的表情符号映射
type LogHelper struct {
	*log.Helper
}

// NewLogHelper 创建增强的日志辅助器
func NewLogHelper(logger log.Logger) *LogHelper {
	return &LogHelper{
		Helper: log.NewHelper(logger),
	}
}

func typed(msg, logType string, kvs []interface{}) []interface{} {
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	return append(allKvs, "type", logType)
}

// API 记录 API 相关日志（表情符号: 🔗）
func (h *LogHelper) API(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "api", kvs)...)
}

// Operator 记录操作员身份日志（表情符号: 🔓）
func (h *LogHelper) Operator(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "operator", kvs)...)
}

// Request 记录 HTTP 请求日志（表情符号: 🌐 或根据状态码）
func (h *LogHelper) Request(method, url string, status int, durationMs int64, kvs ...interface{}) {
	msg := fmt.Sprintf("%s %s - %d (%dms)", method, url, status, durationMs)
	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"type", "request",
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)
}

// Success 记录成功操作日志（表情符号: ✅）
func (h *LogHelper) Success(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "success", kvs)...)
}

// Database 记录数据库操作日志（表情符号: 💾）
func (h *LogHelper) Database(msg string, kvs ...interface{}) {
	h.Debugw(typed(msg, "database", kvs)...)
}

// Redis 记录 Redis 操作日志（表情符号: 📦）
func (h *LogHelper) Redis(msg string, kvs ...interface{}) {
	h.Debugw(typed(msg, "redis", kvs)...)
}

// Breaker 记录熔断器状态日志（表情符号: 🚦）
func (h *LogHelper) Breaker(msg string, kvs ...interface{}) {
	h.Warnw(typed(msg, "breaker", kvs)...)
}

// Publish 记录发布日志（表情符号: 📤）
func (h *LogHelper) Publish(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "publish", kvs)...)
}

// Generate 记录内容生成日志（表情符号: 📝）
func (h *LogHelper) Generate(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "generate", kvs)...)
}

// Content 记录内容状态流转日志（表情符号: 🗂️）
func (h *LogHelper) Content(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "content", kvs)...)
}

// Scheduler 记录调度器相关日志（表情符号: 🎯）
func (h *LogHelper) Scheduler(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "scheduler", kvs)...)
}

// SilentFailure 记录漏跑任务告警（表情符号: 🔕）
func (h *LogHelper) SilentFailure(msg string, kvs ...interface{}) {
	h.Warnw(typed(msg, "silent_failure", kvs)...)
}

// Startup 记录启动相关日志（表情符号: 🚀）
func (h *LogHelper) Startup(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "startup", kvs)...)
}

// Performance 记录性能相关日志（表情符号: ⏱️）
func (h *LogHelper) Performance(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "performance", kvs)...)
}

// Audit 记录审计日志（表情符号: 📋）
func (h *LogHelper) Audit(msg string, kvs ...interface{}) {
	h.Infow(typed(msg, "audit", kvs)...)
}

// Security 记录安全相关日志（表情符号: 🔒）
func (h *LogHelper) Security(msg string, kvs ...interface{}) {
	h.Warnw(typed(msg, "security", kvs)...)
}

// ========== Context-Aware 日志方法 ==========
// 以下方法自动从 Context 提取追踪信息（Request ID, Operator, Job, Execution ID）

// Job 记录任务运行日志（表情符号: ⚙️）
// 自动从 Context 提取 Job 名称和 Execution ID
func (h *LogHelper) Job(ctx context.Context, msg string, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	fullMsg := fmt.Sprintf("[%s] %s", reqCtx.RequestID, msg)
	allKvs := append([]interface{}{"msg", fullMsg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"job", reqCtx.JobName,
		"execution_id", reqCtx.ExecutionID,
		"type", "job",
	)
	h.Infow(allKvs...)
}

// JobSummary 记录任务执行汇总（表情符号: 📊）
func (h *LogHelper) JobSummary(ctx context.Context, jobName, status string, durationMs int64, counts map[string]int, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Job %s finished - Status: %s | %s | %v",
		reqCtx.RequestID, jobName, status, formatDuration(durationMs), counts)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"operator", reqCtx.Operator,
		"execution_id", reqCtx.ExecutionID,
		"job", jobName,
		"status", status,
		"duration_ms", durationMs,
		"counts", counts,
		"type", "job_summary",
	)
	h.Infow(allKvs...)
}

// SlowRequest 记录慢请求警告（表情符号: 🐌）
// threshold: 慢请求阈值（毫秒），超过此值触发警告
func (h *LogHelper) SlowRequest(ctx context.Context, method, url string, duration, threshold int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Slow request detected | %s %s | %dms (threshold: %dms)",
		reqCtx.RequestID, method, url, duration, threshold)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"operator", reqCtx.Operator,
		"method", method,
		"url", url,
		"duration_ms", duration,
		"threshold_ms", threshold,
		"type", "slow_request",
	)
	h.Warnw(allKvs...)
}

// RequestWithContext 记录带 Context 的 HTTP 请求日志
// 自动从 Context 提取 Request ID 并检测慢请求
func (h *LogHelper) RequestWithContext(ctx context.Context, method, url string, status int, durationMs int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("%s %s - %d (%dms) | RequestID: %s",
		method, url, status, durationMs, reqCtx.RequestID)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"type", "request",
		"request_id", reqCtx.RequestID,
		"operator", reqCtx.Operator,
		"method", method,
		"url", url,
		"status", status,
		"duration_ms", durationMs,
	)
	h.Infow(allKvs...)

	if durationMs > slowRequestThresholdMs {
		h.SlowRequest(ctx, method, url, durationMs, slowRequestThresholdMs)
	}
}

// ErrorCount 记录错误计数（表情符号: ⚠️）
func (h *LogHelper) ErrorCount(ctx context.Context, errorType string, count int64, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	msg := fmt.Sprintf("[%s] Error count - Type: %s, Count: %d",
		reqCtx.RequestID, errorType, count)

	allKvs := append([]interface{}{"msg", msg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"job", reqCtx.JobName,
		"error_type", errorType,
		"count", count,
		"type", "error_count",
	)
	h.Warnw(allKvs...)
}

// APIWithContext 记录带 Context 的 API 日志
func (h *LogHelper) APIWithContext(ctx context.Context, msg string, kvs ...interface{}) {
	reqCtx := GetRequestContext(ctx)

	fullMsg := fmt.Sprintf("[%s] %s", reqCtx.RequestID, msg)

	allKvs := append([]interface{}{"msg", fullMsg}, kvs...)
	allKvs = append(allKvs,
		"request_id", reqCtx.RequestID,
		"operator", reqCtx.Operator,
		"type", "api",
	)
	h.Infow(allKvs...)
}
