package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger 带组件名的结构化日志
type Logger struct {
	*slog.Logger
	component string
}

// Init 根据运行模式设置默认日志处理器：debug 文本输出，其余 JSON 输出
func Init(mode string) {
	slog.SetDefault(slog.New(newHandler(os.Stdout, mode)))
}

func newHandler(w io.Writer, mode string) slog.Handler {
	if mode == "" || mode == "debug" {
		return slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
}

// New 基于默认日志创建组件日志
func New(component string) *Logger {
	return &Logger{
		Logger:    slog.Default().With("component", component),
		component: component,
	}
}

// With 追加字段
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		component: l.component,
	}
}

// WithComponent 切换组件名
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger:    slog.Default().With("component", component),
		component: component,
	}
}

// Component 返回组件名
func (l *Logger) Component() string {
	return l.component
}
