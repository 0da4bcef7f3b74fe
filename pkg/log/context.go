package log

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// contextKey 是用于存储 RequestContext 的私有 key 类型
type contextKey string

const requestContextKey contextKey = "postlane_request_context"

// RequestContext 存储请求追踪信息
// Operator requests and job runs both carry one, so logs of a run can be correlated.
type RequestContext struct {
	RequestID   string                 // 唯一请求 ID (10位短ID，如 mgrn0zfqda)
	Operator    string                 // operator identity for manual actions
	JobName     string                 // set for job runs
	ExecutionID string                 // ledger record of the job run
	StartTime   time.Time              // 请求开始时间
	Metadata    map[string]interface{} // 扩展元数据
}

var (
	randSource = rand.NewSource(time.Now().UnixNano())
	randMutex  sync.Mutex
	// base36 字符集（小写字母 + 数字）
	base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateRequestID 生成10位随机请求ID
// 格式: 小写字母+数字，例如 mgrn0zfqda
func GenerateRequestID() string {
	randMutex.Lock()
	defer randMutex.Unlock()

	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[randSource.Int63()%36]
	}
	return string(b)
}

// WithRequestContext 将 RequestContext 注入到 Context 中
// 通常在中间件中调用，为整个请求生命周期提供追踪信息
func WithRequestContext(ctx context.Context, requestID, operator string) context.Context {
	reqCtx := &RequestContext{
		RequestID: requestID,
		Operator:  operator,
		StartTime: time.Now(),
		Metadata:  make(map[string]interface{}),
	}
	return context.WithValue(ctx, requestContextKey, reqCtx)
}

// WithJobRun tags ctx with a job run. An existing request id and operator are kept.
func WithJobRun(ctx context.Context, jobName, executionID string) context.Context {
	parent := GetRequestContext(ctx)
	reqCtx := &RequestContext{
		RequestID:   parent.RequestID,
		Operator:    parent.Operator,
		JobName:     jobName,
		ExecutionID: executionID,
		StartTime:   time.Now(),
		Metadata:    make(map[string]interface{}),
	}
	if reqCtx.RequestID == "" || reqCtx.RequestID == "unknown" {
		reqCtx.RequestID = GenerateRequestID()
	}
	return context.WithValue(ctx, requestContextKey, reqCtx)
}

// GetRequestContext 从 Context 中提取 RequestContext
// 如果不存在，返回一个默认的空 RequestContext
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx == nil {
		return &RequestContext{
			RequestID: "unknown",
			Metadata:  make(map[string]interface{}),
		}
	}

	if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
		return reqCtx
	}

	// 返回默认值，避免 nil 检查
	return &RequestContext{
		RequestID: "unknown",
		Metadata:  make(map[string]interface{}),
	}
}

// GetRequestID 从 Context 中提取 Request ID
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// GetOperator 从 Context 中提取 operator
func GetOperator(ctx context.Context) string {
	return GetRequestContext(ctx).Operator
}

// GetJobName 从 Context 中提取 job name
func GetJobName(ctx context.Context) string {
	return GetRequestContext(ctx).JobName
}

// GetExecutionID 从 Context 中提取 execution id
func GetExecutionID(ctx context.Context) string {
	return GetRequestContext(ctx).ExecutionID
}

// SetMetadata 设置 RequestContext 的元数据
func SetMetadata(ctx context.Context, key string, value interface{}) {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.Metadata == nil {
		reqCtx.Metadata = make(map[string]interface{})
	}
	reqCtx.Metadata[key] = value
}

// GetMetadata 获取 RequestContext 的元数据
func GetMetadata(ctx context.Context, key string) (interface{}, bool) {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.Metadata == nil {
		return nil, false
	}
	value, ok := reqCtx.Metadata[key]
	return value, ok
}

// GetElapsedTime 获取请求已执行时间（毫秒）
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
