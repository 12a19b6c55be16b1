package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/multitracer"
	"github.com/jackc/pgx/v5/tracelog"
	"github.com/rs/zerolog"
	"github.com/wonny/stockwatch/internal/pkg/config"
	applogger "github.com/wonny/stockwatch/internal/pkg/logger"
)

const slowQueryThreshold = 100 * time.Millisecond

type traceStartKey struct{}

type operationKey struct{}

// withOperation names the store operation issuing the next queries
func withOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey{}, op)
}

func operationFrom(ctx context.Context) string {
	op, _ := ctx.Value(operationKey{}).(string)
	return op
}

// QueryLogger is a pgx.QueryTracer writing one line per watchlist query
type QueryLogger struct {
	logger zerolog.Logger
	slow   time.Duration
}

func NewQueryLogger(logger zerolog.Logger) *QueryLogger {
	return &QueryLogger{logger: logger, slow: slowQueryThreshold}
}

func (ql *QueryLogger) TraceQueryStart(ctx context.Context, _ *pgx.Conn, _ pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, traceStartKey{}, time.Now())
}

func (ql *QueryLogger) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	var elapsed time.Duration
	if start, ok := ctx.Value(traceStartKey{}).(time.Time); ok {
		elapsed = time.Since(start)
	}

	var event *zerolog.Event
	switch {
	case data.Err != nil:
		event = ql.logger.Error().Err(data.Err)
	case elapsed > ql.slow:
		event = ql.logger.Warn().Bool("slow", true)
	default:
		event = ql.logger.Debug()
	}

	if op := operationFrom(ctx); op != "" {
		event = event.Str("op", op)
	}
	if requestID := applogger.RequestID(ctx); requestID != "" {
		event = event.Str("request_id", requestID)
	}

	event.
		Int64("duration_ms", elapsed.Milliseconds()).
		Int64("rows", data.CommandTag.RowsAffected()).
		Str("sql", data.SQL).
		Msg("watchlist query")
}

// queryTracer returns the tracer installed on every pool connection, or nil
// when file logging is off
func queryTracer(cfg *config.Config) pgx.QueryTracer {
	if !cfg.Logging.FileEnabled {
		return nil
	}

	queryLog := applogger.NewQueryLogger(cfg.Logging.FilePath, cfg.Logging.RotationSize, cfg.Logging.RetentionDays)

	return multitracer.New(
		NewQueryLogger(queryLog),
		&tracelog.TraceLog{
			Logger:   zerologTraceLogger(queryLog),
			LogLevel: traceLevel(cfg.Logging.Level),
		},
	)
}

func traceLevel(level string) tracelog.LogLevel {
	switch level {
	case "info":
		return tracelog.LogLevelInfo
	case "warn":
		return tracelog.LogLevelWarn
	case "error":
		return tracelog.LogLevelError
	default:
		return tracelog.LogLevelDebug
	}
}

// zerologTraceLogger forwards pgx connection events (connect, pool, copy) to logger
func zerologTraceLogger(logger zerolog.Logger) tracelog.Logger {
	return tracelog.LoggerFunc(func(ctx context.Context, level tracelog.LogLevel, msg string, data map[string]any) {
		var event *zerolog.Event
		switch level {
		case tracelog.LogLevelTrace:
			event = logger.Trace()
		case tracelog.LogLevelDebug:
			event = logger.Debug()
		case tracelog.LogLevelWarn:
			event = logger.Warn()
		case tracelog.LogLevelError:
			event = logger.Error()
		default:
			event = logger.Info()
		}
		event.Fields(data).Msg(msg)
	})
}
