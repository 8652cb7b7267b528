package logging

import "log/slog"

// CronLogger adapts slog to the logger interface of robfig/cron. Cron's
// scheduling chatter goes to debug; errors stay errors.
type CronLogger struct {
	logger *slog.Logger
}

func NewCronLogger(logger *slog.Logger) CronLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return CronLogger{logger: logger.With("component", "cron")}
}

func (l CronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l CronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{"error", err}, keysAndValues...)
	l.logger.Error(msg, args...)
}
