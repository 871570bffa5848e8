package rod_test

import (
	"context"
	"testing"

	"github.com/fwojciec/docdex"
	"github.com/fwojciec/docdex/mock"
	"github.com/fwojciec/docdex/rod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBrowser counts page opens and cookie injections and reports
// whether it has been closed.
type fakeBrowser struct {
	mock.Browser
	pages   int
	cookies [][]docdex.Cookie
	closed  bool
}

func newFakeBrowser() *fakeBrowser {
	b := &fakeBrowser{}
	b.NewPageFn = func(context.Context) (docdex.BrowserPage, error) {
		b.pages++
		return &mock.BrowserPage{}, nil
	}
	b.SetCookiesFn = func(_ context.Context, cookies []docdex.Cookie) error {
		b.cookies = append(b.cookies, cookies)
		return nil
	}
	b.CloseFn = func() error {
		b.closed = true
		return nil
	}
	return b
}

// fakeLauncher hands out fresh fakeBrowsers and records every launch.
type fakeLauncher struct {
	launched []*fakeBrowser
}

func (l *fakeLauncher) launch() (docdex.Browser, error) {
	b := newFakeBrowser()
	l.launched = append(l.launched, b)
	return b, nil
}

func TestManager_RecyclesBrowserAfterThreshold(t *testing.T) {
	t.Parallel()

	launcher := &fakeLauncher{}
	manager, err := rod.NewManager(rod.WithRecycleAfter(3), rod.WithLauncher(launcher.launch))
	require.NoError(t, err)
	defer manager.Close()

	ctx := context.Background()
	for range 3 {
		_, err := manager.NewPage(ctx)
		require.NoError(t, err)
	}

	// The threshold is reached; the next page comes from a replacement.
	_, err = manager.NewPage(ctx)
	require.NoError(t, err)

	require.Len(t, launcher.launched, 2)
	assert.Equal(t, 3, launcher.launched[0].pages)
	assert.Equal(t, 1, launcher.launched[1].pages)
	assert.True(t, launcher.launched[0].closed)
	assert.False(t, launcher.launched[1].closed)
}

func TestManager_DoesNotRecycleBeforeThreshold(t *testing.T) {
	t.Parallel()

	launcher := &fakeLauncher{}
	manager, err := rod.NewManager(rod.WithRecycleAfter(5), rod.WithLauncher(launcher.launch))
	require.NoError(t, err)
	defer manager.Close()

	first := manager.Browser()
	require.NotNil(t, first)

	ctx := context.Background()
	_, err = manager.NewPage(ctx)
	require.NoError(t, err)
	_, err = manager.NewPage(ctx)
	require.NoError(t, err)

	assert.Same(t, first, manager.Browser())
	require.Len(t, launcher.launched, 1)
}

func TestManager_RecycleReappliesCookies(t *testing.T) {
	t.Parallel()

	launcher := &fakeLauncher{}
	manager, err := rod.NewManager(rod.WithRecycleAfter(2), rod.WithLauncher(launcher.launch))
	require.NoError(t, err)
	defer manager.Close()

	ctx := context.Background()
	session := []docdex.Cookie{{Name: "sid", Value: "secret", Domain: "docs.example.com"}}
	require.NoError(t, manager.SetCookies(ctx, session))

	for range 3 {
		_, err := manager.NewPage(ctx)
		require.NoError(t, err)
	}

	require.Len(t, launcher.launched, 2)
	replacement := launcher.launched[1]
	require.Len(t, replacement.cookies, 1)
	assert.Equal(t, session, replacement.cookies[0])
}

func TestManager_FailedLaunchKeepsOldBrowser(t *testing.T) {
	t.Parallel()

	launches := 0
	var first *fakeBrowser
	launch := func() (docdex.Browser, error) {
		launches++
		if launches > 1 {
			return nil, docdex.Errorf(docdex.EINTERNAL, "no browser available")
		}
		first = newFakeBrowser()
		return first, nil
	}

	manager, err := rod.NewManager(rod.WithRecycleAfter(1), rod.WithLauncher(launch))
	require.NoError(t, err)
	defer manager.Close()

	ctx := context.Background()
	for range 3 {
		_, err := manager.NewPage(ctx)
		require.NoError(t, err)
	}

	// Every recycle attempt failed, so the original browser kept serving.
	assert.Equal(t, 3, first.pages)
	assert.False(t, first.closed)
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	t.Parallel()

	launcher := &fakeLauncher{}
	manager, err := rod.NewManager(rod.WithLauncher(launcher.launch))
	require.NoError(t, err)

	require.NoError(t, manager.Close())
	require.NoError(t, manager.Close())
	assert.True(t, launcher.launched[0].closed)
}
