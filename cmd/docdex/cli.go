package main

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/fwojciec/docdex"
	"github.com/fwojciec/docdex/index"
	"github.com/fwojciec/docdex/sqlite"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx    context.Context
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	DB        *sqlite.DB
	Documents docdex.DocumentService
	Search    docdex.SearchService
	Sessions  docdex.SessionService
	Login     docdex.LoginService

	Indexer *index.Indexer
	Tracker *index.Tracker
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	Verbose bool `short:"v" help:"Enable debug logging"`

	Index  IndexCmd  `cmd:"" help:"Crawl a documentation site and index its content"`
	Status StatusCmd `cmd:"" help:"Show what has been indexed"`
	Login  LoginCmd  `cmd:"" help:"Log in to a site interactively and save the session"`
	Logout LogoutCmd `cmd:"" help:"Remove the saved session for a site"`
	Search SearchCmd `cmd:"" help:"Search indexed documentation"`
}

// IndexCmd is the "index" subcommand.
type IndexCmd struct {
	URL        string  `arg:"" help:"Documentation URL to crawl"`
	PathPrefix string  `short:"p" help:"Restrict the crawl to this path prefix (defaults to the URL's path)"`
	MaxPages   int     `short:"m" default:"1000" help:"Maximum pages to crawl"`
	RPS        float64 `name:"rps" default:"1" help:"Requests per second per domain"`
}

// StatusCmd is the "status" subcommand.
type StatusCmd struct{}

// LoginCmd is the "login" subcommand.
type LoginCmd struct {
	URL             string        `arg:"" help:"Site URL to authenticate against"`
	LoginURL        string        `help:"Login page to open (defaults to the site URL)"`
	SuccessPattern  string        `help:"Regex matched against the page URL to detect success"`
	SuccessSelector string        `help:"CSS selector whose appearance signals success"`
	Timeout         time.Duration `default:"5m" help:"How long to wait for login"`
	Browser         string        `help:"Browser kind (chrome, chromium, edge, brave); auto-detected when empty"`
}

// LogoutCmd is the "logout" subcommand.
type LogoutCmd struct {
	URL string `arg:"" help:"Site URL whose session to remove"`
}

// SearchCmd is the "search" subcommand.
type SearchCmd struct {
	Query string `arg:"" help:"Search query"`
	Limit int    `short:"n" default:"10" help:"Maximum results"`
}
