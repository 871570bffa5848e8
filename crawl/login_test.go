package crawl_test

import (
	"testing"

	"github.com/fwojciec/docdex/crawl"
	"github.com/stretchr/testify/assert"
)

func TestIsLoginURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url  string
		want bool
	}{
		{"https://example.com/login", true},
		{"https://example.com/login?next=/docs", true},
		{"https://example.com/users/sign-in", true},
		{"https://example.com/auth/callback", true},
		{"https://example.com/session/new", true},
		{"https://example.com/SSO", true},
		{"https://example.com/docs/intro", false},
		{"https://example.com/blogin", false},
		{"https://example.com/loginservice", false},
		{"https://example.com/", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, crawl.IsLoginURL(tt.url))
		})
	}
}

func TestDetectLoginPage_URLMatchIsConclusive(t *testing.T) {
	t.Parallel()

	confidence, isLogin := crawl.DetectLoginPage("https://example.com/login", "<html><body>anything</body></html>")

	assert.True(t, isLogin)
	assert.Equal(t, 1.0, confidence)
}

func TestDetectLoginPage_ContentSignals(t *testing.T) {
	t.Parallel()

	t.Run("password field plus submit button crosses the threshold", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><title>Welcome</title></head><body>
<form action="/session">
	<input type="email" name="email">
	<input type="password" name="password">
	<button type="submit">Sign in</button>
</form>
</body></html>`

		confidence, isLogin := crawl.DetectLoginPage("https://example.com/welcome", html)
		assert.True(t, isLogin)
		assert.GreaterOrEqual(t, confidence, crawl.LoginConfidenceThreshold)
	})

	t.Run("password field alone stays below the threshold", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><title>Account settings</title></head><body>
<form><input type="password" name="new_password"><button>Save changes</button></form>
</body></html>`

		confidence, isLogin := crawl.DetectLoginPage("https://example.com/settings", html)
		assert.False(t, isLogin)
		assert.InDelta(t, 0.4, confidence, 0.001)
	})

	t.Run("oauth buttons and forgot-password link accumulate", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><title>Sign in to Example</title></head><body>
<p>Continue with Google</p>
<a href="/password/reset">Forgot password?</a>
</body></html>`

		_, isLogin := crawl.DetectLoginPage("https://example.com/welcome", html)
		assert.True(t, isLogin)
	})

	t.Run("documentation page scores zero", func(t *testing.T) {
		t.Parallel()

		html := `<html><head><title>Getting Started</title></head><body>
<main><h1>Getting Started</h1><p>Install the CLI and run it.</p></main>
</body></html>`

		confidence, isLogin := crawl.DetectLoginPage("https://docs.example.com/docs/intro", html)
		assert.False(t, isLogin)
		assert.Zero(t, confidence)
	})
}
