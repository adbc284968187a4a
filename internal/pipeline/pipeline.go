// Package pipeline drives one scrape run: for each unique domain, query the
// discovery API, filter for executives, and route the result to the workbook.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shpitdev/exec-outreach/internal/companies"
	"github.com/shpitdev/exec-outreach/internal/filter"
	"github.com/shpitdev/exec-outreach/internal/hunter"
	"github.com/shpitdev/exec-outreach/internal/store"
)

// Searcher is the single API operation the pipeline needs. *hunter.Client
// satisfies it; tests substitute fakes.
type Searcher interface {
	SearchDomain(ctx context.Context, domain, role string) hunter.Outcome
}

type Options struct {
	// ExecutivesOnly drops candidates that do not match the title allow-list.
	ExecutivesOnly bool

	// Role is forwarded to the vendor as a server-side role filter.
	Role string

	// Now stamps output rows; defaults to time.Now.
	Now func() time.Time
}

// Summary is what a run reports on stdout when it finishes. Per-domain
// failures land in APIErrors and never affect the exit code.
type Summary struct {
	Searched   int
	FoundRows  int
	NoResult   int
	APIErrors  int
	Duplicates int
	Excluded   int
}

func (s Summary) String() string {
	return fmt.Sprintf(
		"searched %d domains: %d emails found, %d no-result, %d api errors, %d duplicates skipped",
		s.Searched, s.FoundRows, s.NoResult, s.APIErrors, s.Duplicates,
	)
}

const parseDateFormat = "2006-01-02 15:04:05"

// Run walks the domain list strictly sequentially (the vendor rate-limits per
// account, so there is nothing to gain from parallel requests), accumulates
// all rows, and writes the workbook once at the end.
func Run(
	ctx context.Context,
	entries []companies.Entry,
	searcher Searcher,
	f *filter.Filter,
	wb *store.Workbook,
	opts Options,
	logger *zap.Logger,
) (Summary, error) {
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	var (
		summary      Summary
		foundRows    []store.FoundRow
		noResultRows []store.NoResultRow
	)

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.Searched++
		logger.Info("searching domain", zap.String("domain", e.Domain), zap.String("member", e.Member))

		outcome := searcher.SearchDomain(ctx, e.Domain, opts.Role)
		outcome = f.Resolve(outcome, opts.ExecutivesOnly)
		stamp := now().Format(parseDateFormat)

		if outcome.Found() {
			company := outcome.Company
			if company == "" {
				company = e.Domain
			}
			for _, c := range outcome.Candidates {
				foundRows = append(foundRows, store.FoundRow{
					Domain:     e.Domain,
					Company:    company,
					Email:      c.Email,
					FirstName:  c.FirstName,
					LastName:   c.LastName,
					Position:   c.Position,
					Department: c.Department,
					Confidence: c.Confidence,
					Member:     e.Member,
					ParseDate:  stamp,
				})
			}
			logger.Info("domain done",
				zap.String("domain", e.Domain),
				zap.String("status", string(outcome.Status)),
				zap.Int("candidates", len(outcome.Candidates)),
			)
			continue
		}

		if outcome.Status == hunter.StatusAPIError {
			summary.APIErrors++
			logger.Warn("domain search failed",
				zap.String("domain", e.Domain),
				zap.String("reason", outcome.Reason),
			)
		} else {
			logger.Info("domain done",
				zap.String("domain", e.Domain),
				zap.String("status", string(outcome.Status)),
			)
		}
		noResultRows = append(noResultRows, store.NoResultRow{
			Domain:    e.Domain,
			Company:   outcome.Company,
			Member:    e.Member,
			Reason:    outcome.Reason,
			ParseDate: stamp,
		})
	}

	stats, err := wb.Append(foundRows, noResultRows)
	if err != nil {
		return summary, fmt.Errorf("append results: %w", err)
	}
	if err := wb.Save(); err != nil {
		return summary, err
	}

	summary.FoundRows = stats.FoundAdded
	summary.NoResult = stats.NoResultAdded
	summary.Duplicates = stats.Duplicates
	summary.Excluded = stats.Excluded

	logger.Info("run complete",
		zap.Int("searched", summary.Searched),
		zap.Int("foundRows", summary.FoundRows),
		zap.Int("noResult", summary.NoResult),
		zap.Int("apiErrors", summary.APIErrors),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("excluded", summary.Excluded),
	)
	return summary, nil
}
