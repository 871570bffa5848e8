package mock

import (
	"context"

	"github.com/fwojciec/docdex"
)

var _ docdex.SessionService = (*SessionService)(nil)

// SessionService is a mock implementation of docdex.SessionService.
type SessionService struct {
	HasSessionFn   func(url string) bool
	LoadSessionFn  func(url string) (*docdex.StorageState, error)
	SaveSessionFn  func(url string, state *docdex.StorageState, browserKind string) error
	ClearSessionFn func(url string) error
}

func (s *SessionService) HasSession(url string) bool {
	return s.HasSessionFn(url)
}

func (s *SessionService) LoadSession(url string) (*docdex.StorageState, error) {
	return s.LoadSessionFn(url)
}

func (s *SessionService) SaveSession(url string, state *docdex.StorageState, browserKind string) error {
	return s.SaveSessionFn(url, state, browserKind)
}

func (s *SessionService) ClearSession(url string) error {
	return s.ClearSessionFn(url)
}

var _ docdex.LoginService = (*LoginService)(nil)

// LoginService is a mock implementation of docdex.LoginService.
type LoginService struct {
	PerformInteractiveLoginFn func(ctx context.Context, url string, opts docdex.LoginOptions) (*docdex.StorageState, error)
}

func (s *LoginService) PerformInteractiveLogin(ctx context.Context, url string, opts docdex.LoginOptions) (*docdex.StorageState, error) {
	return s.PerformInteractiveLoginFn(ctx, url, opts)
}
