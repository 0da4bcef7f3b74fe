package server

import (
	v1 "PostLane/api/orchestration/v1"
	"PostLane/internal/conf"
	"PostLane/internal/metrics"
	"PostLane/internal/server/middleware"
	"PostLane/internal/service"
	pkglog "PostLane/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// NewHTTPServer new an HTTP server.
func NewHTTPServer(
	c *conf.Server,
	contentService *service.ContentService,
	jobService *service.JobService,
	breakerService *service.BreakerService,
	m *metrics.Metrics,
	logger log.Logger,
) *http.Server {
	// 创建增强的日志辅助器
	logHelper := pkglog.NewLogHelper(logger)

	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
			middleware.Operator(logHelper), // 操作员中间件：提取 X-Operator
			middleware.Logging(logHelper),  // 请求日志中间件：记录请求方法、路径、耗时
		),
	}
	if c != nil && c.HTTP != nil {
		if c.HTTP.Network != "" {
			opts = append(opts, http.Network(c.HTTP.Network))
		}
		if c.HTTP.Addr != "" {
			opts = append(opts, http.Address(c.HTTP.Addr))
		}
		if c.HTTP.Timeout > 0 {
			opts = append(opts, http.Timeout(c.HTTP.Timeout))
		}
	}
	srv := http.NewServer(opts...)

	// Register HTTP services
	v1.RegisterContentServiceHTTPServer(srv, contentService)
	v1.RegisterJobServiceHTTPServer(srv, jobService)
	v1.RegisterBreakerServiceHTTPServer(srv, breakerService)
	srv.Handle("/metrics", m.Handler())

	return srv
}
