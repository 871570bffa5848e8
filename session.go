package docdex

import (
	"context"
	"regexp"
	"strings"
	"time"
)

// SessionSchemaVersion is the current StoredSession envelope version.
// Envelopes with a different version are treated as absent.
const SessionSchemaVersion = 1

// Cookie is one browser cookie captured from an authenticated context.
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"` // unix seconds, 0 = session cookie
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
	SameSite string  `json:"sameSite,omitempty"`
}

// LocalStorageItem is one key/value pair from an origin's localStorage.
type LocalStorageItem struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// OriginState holds the localStorage snapshot for one origin.
type OriginState struct {
	Origin       string             `json:"origin"`
	LocalStorage []LocalStorageItem `json:"localStorage"`
}

// StorageState is a captured browser authentication state (cookies plus
// per-origin local storage) usable to replay a login.
type StorageState struct {
	Cookies []Cookie      `json:"cookies"`
	Origins []OriginState `json:"origins"`
}

// Validate returns an error if the state does not match the expected
// schema. An empty state is invalid: there is nothing to replay.
func (s *StorageState) Validate() error {
	if s == nil {
		return Errorf(EINVALID, "storage state required")
	}
	if len(s.Cookies) == 0 && len(s.Origins) == 0 {
		return Errorf(EINVALID, "storage state is empty")
	}
	for _, c := range s.Cookies {
		if c.Name == "" {
			return Errorf(EINVALID, "cookie name required")
		}
	}
	for _, o := range s.Origins {
		if o.Origin == "" {
			return Errorf(EINVALID, "origin required")
		}
	}
	return nil
}

// StoredSession is the encrypted on-disk envelope for one domain's
// session. Encrypted holds the base64 blob salt..iv..tag..ciphertext.
type StoredSession struct {
	Domain        string    `json:"domain"`
	Encrypted     string    `json:"encrypted"`
	CreatedAt     time.Time `json:"createdAt"`
	BrowserKind   string    `json:"browserKind"`
	SchemaVersion int       `json:"schemaVersion"`
}

// Validate returns an error if the envelope does not match the expected
// schema.
func (s *StoredSession) Validate() error {
	if s.Domain == "" {
		return Errorf(EINVALID, "session domain required")
	}
	if s.Encrypted == "" {
		return Errorf(EINVALID, "session payload required")
	}
	if s.CreatedAt.IsZero() {
		return Errorf(EINVALID, "session creation time required")
	}
	if s.SchemaVersion != SessionSchemaVersion {
		return Errorf(EINVALID, "unsupported session schema version %d", s.SchemaVersion)
	}
	return nil
}

// SessionService persists one authentication session per domain,
// encrypted at rest. A malformed or undecryptable session is treated as
// absent, never as an error: LoadSession returns (nil, nil) and the
// caller proceeds unauthenticated.
type SessionService interface {
	// HasSession reports whether a usable session exists for the URL's domain.
	HasSession(url string) bool

	// LoadSession returns the decrypted session state for the URL's
	// domain, or (nil, nil) if no usable session exists.
	LoadSession(url string) (*StorageState, error)

	// SaveSession encrypts and persists the state for the URL's domain.
	SaveSession(url string, state *StorageState, browserKind string) error

	// ClearSession removes the persisted session for the URL's domain.
	// Removing an absent session is not an error.
	ClearSession(url string) error
}

// LoginOptions configures an interactive login flow.
type LoginOptions struct {
	// BrowserKind selects the browser to launch; empty auto-detects.
	BrowserKind string

	// LoginURL overrides the page the browser opens; empty uses the
	// target URL.
	LoginURL string

	// SuccessPattern is a regular expression matched against the page
	// URL to detect login success. Validated before use; unsafe
	// patterns are rejected outright.
	SuccessPattern string

	// SuccessSelector is a CSS selector whose appearance signals login
	// success. Consulted when SuccessPattern is unset.
	SuccessSelector string

	// Timeout bounds the whole login wait. Zero uses the default (300s).
	Timeout time.Duration
}

// maxSuccessPatternLen caps caller-supplied patterns.
const maxSuccessPatternLen = 256

// nestedQuantifier matches a quantified group followed by another
// quantifier, the classic catastrophic-backtracking shape.
var nestedQuantifier = regexp.MustCompile(`\([^)]*[+*][^)]*\)[+*{]|\([^)]*\{\d+,?\d*\}[^)]*\)[+*{]`)

// Validate rejects option combinations that cannot be used safely.
// Go's regexp engine is not vulnerable to catastrophic backtracking,
// but patterns may be forwarded to collaborators that are, so the
// classic unsafe shapes are rejected regardless.
func (o *LoginOptions) Validate() error {
	if o.SuccessPattern == "" {
		return nil
	}
	if len(o.SuccessPattern) > maxSuccessPatternLen {
		return Errorf(EINVALID, "success pattern too long (%d chars, max %d)", len(o.SuccessPattern), maxSuccessPatternLen)
	}
	if nestedQuantifier.MatchString(o.SuccessPattern) {
		return Errorf(EINVALID, "success pattern contains nested quantifiers")
	}
	if strings.Count(o.SuccessPattern, ".*") > 3 {
		return Errorf(EINVALID, "success pattern contains too many wildcards")
	}
	if _, err := regexp.Compile(o.SuccessPattern); err != nil {
		return Errorf(EINVALID, "invalid success pattern: %v", err)
	}
	return nil
}

// LoginService produces authenticated sessions via interactive login in
// a visible browser.
type LoginService interface {
	// PerformInteractiveLogin opens a visible browser, waits for login
	// success, then captures, validates and persists the session state.
	// The browser is always torn down, on every exit path.
	PerformInteractiveLogin(ctx context.Context, url string, opts LoginOptions) (*StorageState, error)
}
