package settings

import (
	"context"
	"log/slog"
	"time"
)

// LogEvent describes one engine operation for logging.
type LogEvent struct {
	Op       string
	Setting  string
	Site     string
	Message  string
	Duration time.Duration
	Err      error
}

// Logger records engine events.
type Logger interface {
	Log(LogEvent)
}

// LoggerFunc adapts a function to Logger.
type LoggerFunc func(LogEvent)

// Log implements Logger.
func (f LoggerFunc) Log(event LogEvent) {
	if f != nil {
		f(event)
	}
}

type noopLogger struct{}

func (noopLogger) Log(LogEvent) {}

// WithLogger attaches a logger to the engine.
func WithLogger(logger Logger) Option {
	return func(cfg *engineConfig) {
		if logger == nil {
			cfg.logger = noopLogger{}
			return
		}
		cfg.logger = logger
	}
}

type slogLogger struct {
	logger *slog.Logger
}

// SlogLogger routes engine and evaluator events to logger. Failed operations
// log at warn level, the rest at debug.
func SlogLogger(logger *slog.Logger) interface {
	Logger
	EvaluatorLogger
} {
	if logger == nil {
		logger = slog.Default()
	}
	return slogLogger{logger: logger}
}

func (l slogLogger) Log(event LogEvent) {
	attrs := []slog.Attr{slog.String("op", event.Op)}
	if event.Setting != "" {
		attrs = append(attrs, slog.String("setting", event.Setting))
	}
	if event.Site != "" {
		attrs = append(attrs, slog.String("site", event.Site))
	}
	if event.Duration > 0 {
		attrs = append(attrs, slog.Duration("duration", event.Duration))
	}
	msg := event.Message
	if msg == "" {
		msg = "settings " + event.Op
	}
	level := slog.LevelDebug
	if event.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	l.logger.LogAttrs(context.Background(), level, msg, attrs...)
}

func (l slogLogger) LogEvaluation(event EvaluatorLogEvent) {
	attrs := []slog.Attr{
		slog.String("engine", event.Engine),
		slog.String("expr", event.Expr),
		slog.Duration("duration", event.Duration),
	}
	if event.Setting != "" {
		attrs = append(attrs, slog.String("setting", event.Setting))
	}
	level := slog.LevelDebug
	if event.Err != nil {
		level = slog.LevelWarn
		attrs = append(attrs, slog.Any("error", event.Err))
	}
	l.logger.LogAttrs(context.Background(), level, "settings evaluation", attrs...)
}
