package slog

import (
	"log/slog"

	"github.com/fwojciec/docdex"
)

// NewStatusListener returns a StatusListener that logs indexing status
// notifications. Terminal transitions log at Info, progress at Debug.
func NewStatusListener(logger *slog.Logger) docdex.StatusListener {
	return func(rec docdex.StatusRecord) {
		attrs := []any{
			"id", rec.ID,
			"url", rec.URL,
			"status", rec.Status,
			"progress", rec.Progress,
		}
		if rec.ErrorMessage != "" {
			attrs = append(attrs, "err", rec.ErrorMessage)
		}
		if rec.Status.Terminal() {
			logger.Info("indexing status", attrs...)
			return
		}
		logger.Debug("indexing status", attrs...)
	}
}
