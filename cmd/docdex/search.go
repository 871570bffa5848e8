package main

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/fwojciec/docdex"
)

// Run executes the search command.
func (c *SearchCmd) Run(deps *Dependencies) error {
	results, err := deps.Search.Search(deps.Ctx, c.Query, c.Limit)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docdex.ErrorMessage(err))
		return err
	}

	if len(results) == 0 {
		fmt.Fprintln(deps.Stdout, "No results.")
		return nil
	}

	for i, r := range results {
		title := r.Title
		if title == "" {
			title = r.URL
		}
		fmt.Fprintf(deps.Stdout, "%d. %s (%.2f)\n   %s\n   %s\n",
			i+1, title, r.Score, r.URL, snippet(r.Chunk.Content, 200))
	}
	return nil
}

// snippet flattens whitespace and truncates content for display.
// Truncation backs up to a rune boundary so a multibyte character is
// never split.
func snippet(content string, max int) string {
	flat := strings.Join(strings.Fields(content), " ")
	if len(flat) <= max {
		return flat
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(flat[cut]) {
		cut--
	}
	return flat[:cut] + "…"
}
