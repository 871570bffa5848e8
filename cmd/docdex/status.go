package main

import (
	"fmt"
	"net/url"
)

// Run executes the status command. It summarizes the index per host.
func (c *StatusCmd) Run(deps *Dependencies) error {
	rows, err := deps.DB.QueryContext(deps.Ctx, `
		SELECT d.url, COUNT(c.id)
		FROM documents d
		LEFT JOIN chunks c ON c.document_id = d.id
		GROUP BY d.id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	type hostStats struct {
		pages  int
		chunks int
	}
	stats := make(map[string]*hostStats)
	var hosts []string

	for rows.Next() {
		var docURL string
		var chunks int
		if err := rows.Scan(&docURL, &chunks); err != nil {
			return err
		}
		host := "(unknown)"
		if u, err := url.Parse(docURL); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
		s, ok := stats[host]
		if !ok {
			s = &hostStats{}
			stats[host] = s
			hosts = append(hosts, host)
		}
		s.pages++
		s.chunks += chunks
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(hosts) == 0 {
		fmt.Fprintln(deps.Stdout, "Nothing indexed yet. Use 'docdex index' to crawl a site.")
		return nil
	}

	for _, host := range hosts {
		s := stats[host]
		session := ""
		if deps.Sessions.HasSession("https://" + host + "/") {
			session = "  [session]"
		}
		fmt.Fprintf(deps.Stdout, "%s  %d pages  %d chunks%s\n", host, s.pages, s.chunks, session)
	}
	return nil
}
