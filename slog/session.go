// Package slog provides logging decorators for docdex services.
package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/docdex"
)

// Ensure LoggingSessionService implements docdex.SessionService.
var _ docdex.SessionService = (*LoggingSessionService)(nil)

// LoggingSessionService wraps a SessionService with operation logging.
// Session contents are never logged, only domains and outcomes.
type LoggingSessionService struct {
	next   docdex.SessionService
	logger *slog.Logger
}

// NewLoggingSessionService creates a new LoggingSessionService.
func NewLoggingSessionService(next docdex.SessionService, logger *slog.Logger) *LoggingSessionService {
	return &LoggingSessionService{next: next, logger: logger}
}

// HasSession delegates to the wrapped service.
func (s *LoggingSessionService) HasSession(url string) bool {
	return s.next.HasSession(url)
}

// LoadSession delegates to the wrapped service and logs the operation.
func (s *LoggingSessionService) LoadSession(url string) (state *docdex.StorageState, err error) {
	defer func(begin time.Time) {
		s.logger.Info("session load",
			"url", url,
			"found", state != nil,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.LoadSession(url)
}

// SaveSession delegates to the wrapped service and logs the operation.
func (s *LoggingSessionService) SaveSession(url string, state *docdex.StorageState, browserKind string) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("session save",
			"url", url,
			"browser", browserKind,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.SaveSession(url, state, browserKind)
}

// ClearSession delegates to the wrapped service and logs the operation.
func (s *LoggingSessionService) ClearSession(url string) (err error) {
	defer func(begin time.Time) {
		s.logger.Info("session clear",
			"url", url,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ClearSession(url)
}
