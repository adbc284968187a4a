// Package filter classifies discovery candidates as executive or not based on
// their title/department metadata.
package filter

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/shpitdev/exec-outreach/internal/hunter"
)

// DefaultKeywords is the built-in executive title allow-list. The match is a
// case-insensitive substring test against position, then department.
func DefaultKeywords() []string {
	return []string{
		"ceo",
		"cfo",
		"cto",
		"coo",
		"chief",
		"president",
		"founder",
		"owner",
		"vp",
		"vice president",
		"director",
		"head",
	}
}

type keywordsFile struct {
	Keywords []string `yaml:"keywords"`
}

// LoadKeywords reads an allow-list override from a YAML file of the form:
//
//	keywords:
//	  - ceo
//	  - managing partner
func LoadKeywords(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keywords file: %w", err)
	}
	var parsed keywordsFile
	if err := yaml.Unmarshal(b, &parsed); err != nil {
		return nil, fmt.Errorf("parse keywords file: %w", err)
	}
	out := make([]string, 0, len(parsed.Keywords))
	for _, kw := range parsed.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			out = append(out, kw)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("keywords file %s contains no keywords", path)
	}
	return out, nil
}

// Filter retains candidates whose metadata matches the allow-list.
type Filter struct {
	keywords []string
}

func New(keywords []string) *Filter {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &Filter{keywords: lowered}
}

// Apply returns the candidates matching the allow-list, preserving input order.
// The vendor ranks by confidence, so preserving order preserves rank.
func (f *Filter) Apply(candidates []hunter.Candidate) []hunter.Candidate {
	out := make([]hunter.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if f.IsExecutive(c) {
			out = append(out, c)
		}
	}
	return out
}

// IsExecutive reports whether a candidate's position or department matches any
// allow-list keyword.
func (f *Filter) IsExecutive(c hunter.Candidate) bool {
	position := strings.ToLower(c.Position)
	department := strings.ToLower(c.Department)
	for _, kw := range f.keywords {
		if strings.Contains(position, kw) || strings.Contains(department, kw) {
			return true
		}
	}
	return false
}

// Resolve applies executives-only filtering to a search outcome. A found
// outcome whose candidates all fail the filter becomes no_executives; other
// statuses pass through untouched.
func (f *Filter) Resolve(out hunter.Outcome, executivesOnly bool) hunter.Outcome {
	if !executivesOnly || out.Status != hunter.StatusFound {
		return out
	}
	kept := f.Apply(out.Candidates)
	if len(kept) == 0 {
		out.Candidates = nil
		out.Status = hunter.StatusNoExecutives
		out.Reason = "no executive contacts matched"
		return out
	}
	out.Candidates = kept
	return out
}
