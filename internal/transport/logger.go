package transport

import "log/slog"

// transportLogger tags records with the transport kind and the input it reads from.
func transportLogger(kind, target string, attrs ...any) *slog.Logger {
	logger := slog.With("component", "transport", "transport", kind)
	if target != "" {
		logger = logger.With("target", target)
	}
	if len(attrs) == 0 {
		return logger
	}

	return logger.With(attrs...)
}
