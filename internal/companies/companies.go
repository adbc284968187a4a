// Package companies parses the plain-text company list into canonical domains.
//
// The list format is one entry per line. Lines starting with "##" assign a team
// member to every following entry until the next "##" line; lines starting with
// a single "#" are comments. Everything else is treated as a URL or bare domain.
package companies

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/idna"
)

// Entry is a single company domain to search, with the team member responsible
// for outreach (may be empty when the list carries no "##" labels).
type Entry struct {
	Domain string
	Member string
}

// Stats summarizes one ParseList pass.
type Stats struct {
	Lines     int
	Labels    int
	Malformed int
	Unique    int
}

const labelMarker = "##"

// ParseList reads the company list and returns entries in input order with
// duplicate domains collapsed. The first occurrence of a domain wins, including
// its assigned member. Malformed lines are counted and skipped, never fatal.
func ParseList(r io.Reader) ([]Entry, Stats, error) {
	var (
		entries []Entry
		stats   Stats
		member  string
		seen    = make(map[string]struct{})
	)

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		stats.Lines++

		if strings.HasPrefix(line, labelMarker) {
			member = strings.TrimSpace(strings.TrimPrefix(line, labelMarker))
			stats.Labels++
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}

		domain, err := NormalizeDomain(line)
		if err != nil {
			stats.Malformed++
			continue
		}
		if _, ok := seen[domain]; ok {
			continue
		}
		seen[domain] = struct{}{}
		entries = append(entries, Entry{Domain: domain, Member: member})
	}
	if err := sc.Err(); err != nil {
		return nil, stats, fmt.Errorf("read company list: %w", err)
	}

	stats.Unique = len(entries)
	return entries, stats, nil
}

// NormalizeDomain canonicalizes a raw URL or bare domain to its lowercase host:
// scheme, credentials, port, path, query and fragment are stripped, a leading
// "www." is removed, and internationalized hosts are converted to punycode.
func NormalizeDomain(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", fmt.Errorf("empty domain")
	}

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndexByte(s, '@'); i >= 0 {
		s = s[i+1:]
	}
	if i := strings.IndexByte(s, ':'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, ".")
	s = strings.TrimPrefix(strings.ToLower(s), "www.")

	if s == "" || !strings.Contains(s, ".") {
		return "", fmt.Errorf("no usable host in %q", raw)
	}

	// DNS is case-insensitive; store the lowercase ASCII canonical form.
	ascii, err := idna.Lookup.ToASCII(s)
	if err != nil {
		return "", fmt.Errorf("invalid host in %q: %w", raw, err)
	}
	return strings.ToLower(ascii), nil
}
