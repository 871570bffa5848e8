// Package fs provides filesystem-backed persistence: the encrypted
// per-domain session store.
package fs

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fwojciec/docdex"
	"golang.org/x/crypto/scrypt"
	"golang.org/x/net/publicsuffix"
)

// Blob layout sizes: salt .. iv .. tag .. ciphertext.
const (
	saltSize = 16
	ivSize   = 12
	tagSize  = 16
)

// scrypt parameters: slow enough to resist brute force on the
// machine-scoped secret, fast enough for one derivation per save/load.
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32
)

// maxDomainFileLen caps the sanitized domain used as a filename.
const maxDomainFileLen = 100

// Compile-time interface verification.
var _ docdex.SessionService = (*SessionStore)(nil)

// SessionStore persists one encrypted session per domain, one file per
// domain under dir, permissions restricted to the owner. Malformed or
// undecryptable sessions are treated as absent, never fatal: a
// corrupted file never blocks a crawl.
type SessionStore struct {
	dir    string
	secret []byte
}

// StoreOption configures a SessionStore.
type StoreOption func(*SessionStore)

// WithSecret overrides the machine-scoped encryption secret. For tests.
func WithSecret(secret []byte) StoreOption {
	return func(s *SessionStore) { s.secret = secret }
}

// NewSessionStore creates a SessionStore rooted at dir. The default
// encryption secret is machine-scoped, derived from stable host
// identity; sessions do not survive moving the files to another machine.
func NewSessionStore(dir string, opts ...StoreOption) *SessionStore {
	s := &SessionStore{dir: dir, secret: machineSecret()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// HasSession reports whether a usable session exists for the URL's domain.
func (s *SessionStore) HasSession(rawURL string) bool {
	state, err := s.LoadSession(rawURL)
	return err == nil && state != nil
}

// LoadSession returns the decrypted session state for the URL's domain,
// or (nil, nil) when no usable session exists. The envelope is schema
// validated, then decrypted, then the inner storage state is schema
// validated again; any failure at either stage is absence, not an error.
func (s *SessionStore) LoadSession(rawURL string) (*docdex.StorageState, error) {
	path, err := s.sessionPath(rawURL)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil
	}

	var envelope docdex.StoredSession
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, nil
	}
	if err := envelope.Validate(); err != nil {
		return nil, nil
	}

	blob, err := base64.StdEncoding.DecodeString(envelope.Encrypted)
	if err != nil {
		return nil, nil
	}
	plaintext, err := decrypt(blob, s.secret)
	if err != nil {
		return nil, nil
	}

	var state docdex.StorageState
	if err := json.Unmarshal(plaintext, &state); err != nil {
		return nil, nil
	}
	if err := state.Validate(); err != nil {
		return nil, nil
	}
	return &state, nil
}

// SaveSession encrypts and persists the state for the URL's domain,
// owner-only permissions on both directory and file.
func (s *SessionStore) SaveSession(rawURL string, state *docdex.StorageState, browserKind string) error {
	if err := state.Validate(); err != nil {
		return err
	}
	domain, err := sessionDomain(rawURL)
	if err != nil {
		return err
	}
	path, err := s.sessionPath(rawURL)
	if err != nil {
		return err
	}

	plaintext, err := json.Marshal(state)
	if err != nil {
		return docdex.Errorf(docdex.EINTERNAL, "encoding session state: %v", err)
	}
	blob, err := encrypt(plaintext, s.secret)
	if err != nil {
		return err
	}

	envelope := docdex.StoredSession{
		Domain:        domain,
		Encrypted:     base64.StdEncoding.EncodeToString(blob),
		CreatedAt:     time.Now().UTC(),
		BrowserKind:   browserKind,
		SchemaVersion: docdex.SessionSchemaVersion,
	}
	data, err := json.MarshalIndent(&envelope, "", "  ")
	if err != nil {
		return docdex.Errorf(docdex.EINTERNAL, "encoding session envelope: %v", err)
	}

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return docdex.Errorf(docdex.EINTERNAL, "creating sessions directory: %v", err)
	}
	// Write to a temp path and rename on commit so a crash mid-write
	// never leaves a half-written envelope at the session path.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return docdex.Errorf(docdex.EINTERNAL, "writing session file: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return docdex.Errorf(docdex.EINTERNAL, "committing session file: %v", err)
	}
	return nil
}

// ClearSession removes the persisted session for the URL's domain.
func (s *SessionStore) ClearSession(rawURL string) error {
	path, err := s.sessionPath(rawURL)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return docdex.Errorf(docdex.EINTERNAL, "removing session file: %v", err)
	}
	return nil
}

// sessionPath resolves the on-disk path for a URL's session and
// verifies it remains inside the sessions directory. The filename is
// derived from the domain by allow-listing characters, so a malicious
// domain string cannot traverse out of the directory; the containment
// check is kept anyway as the final guard before any read or write.
func (s *SessionStore) sessionPath(rawURL string) (string, error) {
	domain, err := sessionDomain(rawURL)
	if err != nil {
		return "", err
	}
	name, err := sanitizeDomain(domain)
	if err != nil {
		return "", err
	}

	path := filepath.Join(s.dir, name+".json")
	root := filepath.Clean(s.dir)
	if filepath.Dir(filepath.Clean(path)) != root {
		return "", docdex.Errorf(docdex.EINVALID, "session path escapes sessions directory")
	}
	return path, nil
}

// sessionDomain derives the session key for a URL: the registrable
// domain when the public suffix list knows it, the raw hostname
// otherwise (IPs, localhost, internal names).
func sessionDomain(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "", docdex.Errorf(docdex.EINVALID, "invalid session URL %q", rawURL)
	}
	host := strings.ToLower(u.Hostname())
	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain, nil
	}
	return host, nil
}

// sanitizeDomain allow-lists [a-z0-9.-], length-caps the result, and
// rejects empty, ".", and ".." outcomes.
func sanitizeDomain(domain string) (string, error) {
	var b strings.Builder
	for _, r := range strings.ToLower(domain) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
		}
	}
	name := b.String()
	if len(name) > maxDomainFileLen {
		name = name[:maxDomainFileLen]
	}
	if name == "" || name == "." || name == ".." {
		return "", docdex.Errorf(docdex.EINVALID, "domain %q sanitizes to an unusable filename", domain)
	}
	return name, nil
}

// encrypt derives a key from the secret and a fresh random salt, then
// seals the plaintext with AES-GCM under a fresh random IV. The blob is
// salt .. iv .. tag .. ciphertext.
func encrypt(plaintext, secret []byte) ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, docdex.Errorf(docdex.EINTERNAL, "generating salt: %v", err)
	}
	iv := make([]byte, ivSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, docdex.Errorf(docdex.EINTERNAL, "generating IV: %v", err)
	}

	gcm, err := aead(secret, salt)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, plaintext, nil)
	ciphertext := sealed[:len(sealed)-tagSize]
	tag := sealed[len(sealed)-tagSize:]

	blob := make([]byte, 0, saltSize+ivSize+tagSize+len(ciphertext))
	blob = append(blob, salt...)
	blob = append(blob, iv...)
	blob = append(blob, tag...)
	blob = append(blob, ciphertext...)
	return blob, nil
}

// decrypt reverses encrypt. Any truncation or authentication-tag
// mismatch fails; tampered blobs never yield wrong plaintext silently.
func decrypt(blob, secret []byte) ([]byte, error) {
	if len(blob) < saltSize+ivSize+tagSize {
		return nil, docdex.Errorf(docdex.EINVALID, "encrypted blob too short")
	}
	salt := blob[:saltSize]
	iv := blob[saltSize : saltSize+ivSize]
	tag := blob[saltSize+ivSize : saltSize+ivSize+tagSize]
	ciphertext := blob[saltSize+ivSize+tagSize:]

	gcm, err := aead(secret, salt)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(ciphertext)+tagSize)
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, docdex.Errorf(docdex.EINVALID, "session decryption failed: %v", err)
	}
	return plaintext, nil
}

// aead builds the AES-GCM cipher for a secret and salt.
func aead(secret, salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key(secret, salt, scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, docdex.Errorf(docdex.EINTERNAL, "deriving key: %v", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, docdex.Errorf(docdex.EINTERNAL, "creating cipher: %v", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, docdex.Errorf(docdex.EINTERNAL, "creating GCM: %v", err)
	}
	return gcm, nil
}

// machineSecret composes a stable per-machine secret from host identity.
// Not a defense against a local attacker with the same user account; it
// keeps session files useless when copied off the machine.
func machineSecret() []byte {
	hostname, _ := os.Hostname()
	home, _ := os.UserHomeDir()
	return []byte("docdex:" + hostname + ":" + home)
}
