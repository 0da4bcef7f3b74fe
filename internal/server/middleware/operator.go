// Package middleware provides HTTP middleware for operator identification and request logging.
package middleware

import (
	"context"
	"strings"
	"unicode"

	pkglog "PostLane/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// OperatorHeader carries the identity of the operator behind a request.
const OperatorHeader = "X-Operator"

const maxOperatorLength = 128

type contextKey string

const operatorContextKey contextKey = "operator"

// Operator 返回一个提取操作员身份的中间件
// 从 X-Operator header 读取操作员名称并注入上下文, 供审计日志使用
//
// 日志输出示例:
//
//	🔓 Operator alice: POST /v1/breakers/blog/reset | {"type":"operator","operator":"alice"}
//
// 注意: 这里只做身份标注, 不做鉴权
func Operator(logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok {
				return handler(ctx, req)
			}

			operator := strings.TrimSpace(tr.RequestHeader().Get(OperatorHeader))
			if operator == "" {
				return handler(ctx, req)
			}
			if !validOperator(operator) {
				logger.Security("rejected malformed operator header", "length", len(operator))
				return nil, errors.BadRequest("INVALID_ARGUMENT", "X-Operator must be at most 128 printable characters")
			}

			// 只有写操作记录操作员日志
			if ht, ok := tr.(http.Transporter); ok && ht.Request().Method != "GET" {
				logger.Operator("Operator "+operator+": "+ht.Request().Method+" "+ht.Request().URL.Path,
					"operator", operator,
					"operation", tr.Operation(),
				)
			}

			ctx = context.WithValue(ctx, operatorContextKey, operator)
			return handler(ctx, req)
		}
	}
}

// OperatorFromContext returns the operator set by the Operator middleware.
func OperatorFromContext(ctx context.Context) string {
	op, _ := ctx.Value(operatorContextKey).(string)
	return op
}

func validOperator(op string) bool {
	if len(op) > maxOperatorLength {
		return false
	}
	for _, r := range op {
		if !unicode.IsPrint(r) {
			return false
		}
	}
	return true
}
