// Package index provides operation orchestration for crawl-and-index
// tasks: the per-URL operation registry, the status tracker, the
// indexer driving one operation end to end, and the default document
// processing pipeline.
package index

import (
	"context"
	"net/url"
	"strings"
	"sync"

	"github.com/fwojciec/docdex"
)

// Registry enforces at most one live crawl/index operation per
// normalized URL. Starting a new operation for a key that is already
// indexing is a forced preemption, not an error: the prior operation is
// canceled and awaited before the new token is handed out.
type Registry struct {
	mu  sync.Mutex
	ops map[string]*operation
}

// operation pairs a cancellation token with a completion future.
type operation struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[string]*operation)}
}

// StartOperation cancels and awaits any existing operation for key,
// then registers a fresh one and returns its cancellation context. The
// returned context is derived from ctx, so canceling ctx cancels the
// operation too. The completion future is allocated together with the
// token; both live under one registry critical section.
func (r *Registry) StartOperation(ctx context.Context, key string) context.Context {
	for {
		r.mu.Lock()
		prior, ok := r.ops[key]
		if !ok {
			opCtx, cancel := context.WithCancel(ctx)
			r.ops[key] = &operation{cancel: cancel, done: make(chan struct{})}
			r.mu.Unlock()
			return opCtx
		}
		r.mu.Unlock()

		// Signal cancellation, then await the prior operation's
		// completion future before claiming the key.
		prior.cancel()
		<-prior.done
	}
}

// CompleteOperation resolves the operation's completion future and
// removes the entry. Call exactly once when the task settles, on
// success, failure, or cancellation.
func (r *Registry) CompleteOperation(key string) {
	r.mu.Lock()
	op, ok := r.ops[key]
	if ok {
		delete(r.ops, key)
	}
	r.mu.Unlock()

	if ok {
		op.cancel()
		close(op.done)
	}
}

// IsIndexing reports whether an operation is live for key.
func (r *Registry) IsIndexing(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ops[key]
	return ok
}

// NormalizeURL derives the registry key for a URL: lowercased scheme
// and host, default port and trailing slash stripped, fragment dropped.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", docdex.Errorf(docdex.EINVALID, "invalid URL %q: %v", rawURL, err)
	}
	if u.Scheme == "" || u.Hostname() == "" {
		return "", docdex.Errorf(docdex.EINVALID, "URL %q must be absolute", rawURL)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !isDefaultPort(u.Scheme, port) {
		host += ":" + port
	}
	u.Host = host
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String(), nil
}

func isDefaultPort(scheme, port string) bool {
	return (scheme == "http" && port == "80") || (scheme == "https" && port == "443")
}
