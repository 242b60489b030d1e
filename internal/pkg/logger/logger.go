// Package logger 对 zerolog 做了一层薄封装，
// 提供带服务名的全局 logger 和从 context 提取 trace 信息的入口。
package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var base = zerolog.New(os.Stdout).With().Timestamp().Logger()

// Init 初始化全局 logger。format 支持 "json"（默认）和 "console"。
func Init(serviceName, level, format string) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var w zerolog.Logger
	if strings.ToLower(format) == "console" {
		w = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		w = zerolog.New(os.Stdout)
	}
	base = w.With().Timestamp().Str("service", serviceName).Logger()
}

// Logger 返回全局 logger。
func Logger() *zerolog.Logger {
	return &base
}

// Ctx 返回一个富化了链路信息的 logger。
// 如果 ctx 携带有效的 span，则附加 trace_id / span_id 字段。
func Ctx(ctx context.Context) *zerolog.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return &base
	}
	l := base.With().
		Str("trace_id", sc.TraceID().String()).
		Str("span_id", sc.SpanID().String()).
		Logger()
	return &l
}
