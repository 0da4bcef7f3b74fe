package log

import (
	"fmt"

	"go.uber.org/zap/buffer"
	"go.uber.org/zap/zapcore"
)

// emojiMap 定义日志类型到表情符号的映射
// 通过在日志调用时添加 "type" 字段，自动为日志添加对应的表情符号
var emojiMap = map[string]string{
	"api":            "🔗",
	"operator":       "🔓",
	"request":        "🌐",
	"success":        "✅",
	"database":       "💾",
	"redis":          "📦",
	"breaker":        "🚦",
	"publish":        "📤",
	"generate":       "📝",
	"content":        "🗂️",
	"scheduler":      "🎯",
	"job":            "⚙️",
	"job_summary":    "📊",
	"silent_failure": "🔕",
	"startup":        "🚀",
	"performance":    "⏱️",
	"audit":          "📋",
	"security":       "🔒",
	"slow_request":   "🐌",
	"error_count":    "⚠️",
}

// breakerEmoji 按熔断器目标状态（"to" 字段）选择表情
var breakerEmoji = map[string]string{
	"closed":    "🟢",
	"half_open": "🟡",
	"open":      "🔴",
}

// executionEmoji 按任务执行结果（job_summary 的 "status" 字段）选择表情
var executionEmoji = map[string]string{
	"success": "✅",
	"partial": "🟡",
	"failure": "❌",
}

var levelEmoji = map[zapcore.Level]string{
	zapcore.DebugLevel:  "🐛",
	zapcore.InfoLevel:   "ℹ️",
	zapcore.WarnLevel:   "⚠️",
	zapcore.ErrorLevel:  "❌",
	zapcore.DPanicLevel: "❌",
	zapcore.PanicLevel:  "❌",
	zapcore.FatalLevel:  "❌",
}

// statusEmoji 根据 HTTP 状态码返回表情符号
func statusEmoji(status int) string {
	switch {
	case status >= 500:
		return "🔴"
	case status >= 400:
		return "🟠"
	case status >= 300:
		return "🟡"
	}
	return "🟢"
}

// EmojiConsoleEncoder 包装 Zap 的 ConsoleEncoder，在消息前加表情符号
type EmojiConsoleEncoder struct {
	zapcore.Encoder
}

// NewEmojiConsoleEncoder 创建带表情符号的控制台编码器
func NewEmojiConsoleEncoder(cfg zapcore.EncoderConfig) zapcore.Encoder {
	return &EmojiConsoleEncoder{Encoder: zapcore.NewConsoleEncoder(cfg)}
}

// EncodeEntry 编码日志条目，自动添加表情符号
func (enc *EmojiConsoleEncoder) EncodeEntry(entry zapcore.Entry, fields []zapcore.Field) (*buffer.Buffer, error) {
	if emoji := pickEmoji(entry.Level, fields); emoji != "" {
		entry.Message = emoji + " " + entry.Message
	}
	return enc.Encoder.EncodeEntry(entry, fields)
}

// Clone 克隆编码器（Zap 内部使用）
func (enc *EmojiConsoleEncoder) Clone() zapcore.Encoder {
	return &EmojiConsoleEncoder{Encoder: enc.Encoder.Clone()}
}

// pickEmoji 选择优先级：
// 1. HTTP 状态码（整型 status）
// 2. 熔断器目标状态 / 任务执行结果
// 3. type 字段映射
// 4. 日志级别
func pickEmoji(level zapcore.Level, fields []zapcore.Field) string {
	var logType, to, statusText string
	var httpStatus int64

	for _, field := range fields {
		switch field.Key {
		case "type":
			if field.Type == zapcore.StringType {
				logType = field.String
			}
		case "to":
			if field.Type == zapcore.StringType {
				to = field.String
			}
		case "status":
			switch field.Type {
			case zapcore.Int64Type, zapcore.Int32Type:
				httpStatus = field.Integer
			case zapcore.StringType:
				statusText = field.String
			}
		}
	}

	if httpStatus > 0 {
		return statusEmoji(int(httpStatus))
	}
	switch logType {
	case "breaker":
		if e, ok := breakerEmoji[to]; ok {
			return e
		}
	case "job_summary":
		if e, ok := executionEmoji[statusText]; ok {
			return e
		}
	}
	if e, ok := emojiMap[logType]; ok {
		return e
	}
	return levelEmoji[level]
}

// formatDuration 格式化持续时间为易读格式
// 示例: 1ms, 150ms, 2.5s
func formatDuration(ms int64) string {
	if ms < 1000 {
		return fmt.Sprintf("%dms", ms)
	}
	return fmt.Sprintf("%.1fs", float64(ms)/1000.0)
}
