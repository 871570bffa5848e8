package main

import (
	"fmt"

	"github.com/fwojciec/docdex"
)

// Run executes the login command.
func (c *LoginCmd) Run(deps *Dependencies) error {
	opts := docdex.LoginOptions{
		BrowserKind:     c.Browser,
		LoginURL:        c.LoginURL,
		SuccessPattern:  c.SuccessPattern,
		SuccessSelector: c.SuccessSelector,
		Timeout:         c.Timeout,
	}

	fmt.Fprintf(deps.Stdout, "Opening browser for %s. Complete the login there.\n", c.URL)

	state, err := deps.Login.PerformInteractiveLogin(deps.Ctx, c.URL, opts)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docdex.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "Session saved (%d cookies, %d origins)\n",
		len(state.Cookies), len(state.Origins))
	return nil
}

// Run executes the logout command.
func (c *LogoutCmd) Run(deps *Dependencies) error {
	if err := deps.Sessions.ClearSession(c.URL); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docdex.ErrorMessage(err))
		return err
	}
	fmt.Fprintf(deps.Stdout, "Session cleared for %s\n", c.URL)
	return nil
}
