package pipeline_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/shpitdev/exec-outreach/internal/companies"
	"github.com/shpitdev/exec-outreach/internal/filter"
	"github.com/shpitdev/exec-outreach/internal/hunter"
	"github.com/shpitdev/exec-outreach/internal/pipeline"
	"github.com/shpitdev/exec-outreach/internal/store"
)

type fakeSearcher struct {
	outcomes map[string]hunter.Outcome
	calls    []string
}

func (s *fakeSearcher) SearchDomain(_ context.Context, domain, _ string) hunter.Outcome {
	s.calls = append(s.calls, domain)
	out, ok := s.outcomes[domain]
	if !ok {
		return hunter.Outcome{Domain: domain, Status: hunter.StatusNoCandidates, Reason: "no candidates returned"}
	}
	return out
}

func entriesFor(t *testing.T, list string) []companies.Entry {
	t.Helper()
	entries, _, err := companies.ParseList(strings.NewReader(list))
	if err != nil {
		t.Fatalf("parse list: %v", err)
	}
	return entries
}

func openWorkbook(t *testing.T, path string) *store.Workbook {
	t.Helper()
	wb, err := store.Open(path)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	t.Cleanup(func() {
		_ = wb.Close()
	})
	return wb
}

func fixedNow() time.Time {
	return time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
}

func foundRows(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	rows, err := f.GetRows(store.SheetFound)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}
	if len(rows) == 0 {
		return nil
	}
	return rows[1:]
}

func TestRun_RoutesOutcomes(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{outcomes: map[string]hunter.Outcome{
		"acme.com": {
			Domain:  "acme.com",
			Company: "Acme Inc",
			Status:  hunter.StatusFound,
			Candidates: []hunter.Candidate{
				{Email: "jane@acme.com", FirstName: "Jane", LastName: "Doe", Position: "CFO", Confidence: 92},
				{Email: "bob@acme.com", Position: "Engineer", Confidence: 88},
				{Email: "amy@acme.com", Position: "Engineer", Confidence: 85},
			},
		},
		"beta.com":  {Domain: "beta.com", Status: hunter.StatusNoCandidates, Reason: "no candidates returned"},
		"gamma.com": {Domain: "gamma.com", Status: hunter.StatusAPIError, Reason: hunter.ReasonRateLimited},
	}}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	wb := openWorkbook(t, path)
	entries := entriesFor(t, "## Alice\nacme.com\nbeta.com\ngamma.com\n")

	summary, err := pipeline.Run(context.Background(), entries, searcher, filter.New(filter.DefaultKeywords()), wb,
		pipeline.Options{ExecutivesOnly: true, Now: fixedNow}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Three candidates, one CFO: exactly one found row for acme.com. The 429
	// on gamma.com must not stop the run.
	if summary.Searched != 3 || summary.FoundRows != 1 || summary.NoResult != 2 || summary.APIErrors != 1 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
	if len(searcher.calls) != 3 {
		t.Fatalf("expected all domains searched, got %v", searcher.calls)
	}

	wb2 := openWorkbook(t, path)
	if wb2.FoundCount() != 1 || wb2.NoResultCount() != 2 {
		t.Fatalf("unexpected persisted rows: found=%d noResult=%d", wb2.FoundCount(), wb2.NoResultCount())
	}
}

func TestRun_Idempotent(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{outcomes: map[string]hunter.Outcome{
		"acme.com": {
			Domain:     "acme.com",
			Company:    "Acme Inc",
			Status:     hunter.StatusFound,
			Candidates: []hunter.Candidate{{Email: "jane@acme.com", Position: "CEO", Confidence: 95}},
		},
		"beta.com": {Domain: "beta.com", Status: hunter.StatusNoCandidates, Reason: "no candidates returned"},
	}}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	entries := entriesFor(t, "acme.com\nbeta.com\n")
	f := filter.New(filter.DefaultKeywords())
	opts := pipeline.Options{ExecutivesOnly: true, Now: fixedNow}

	wb := openWorkbook(t, path)
	first, err := pipeline.Run(context.Background(), entries, searcher, f, wb, opts, zap.NewNop())
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.FoundRows != 1 || first.NoResult != 1 {
		t.Fatalf("unexpected first summary: %#v", first)
	}

	wb2 := openWorkbook(t, path)
	second, err := pipeline.Run(context.Background(), entries, searcher, f, wb2, opts, zap.NewNop())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.FoundRows != 0 || second.NoResult != 0 {
		t.Fatalf("second run must add nothing: %#v", second)
	}
	if second.Duplicates != 2 {
		t.Fatalf("expected 2 duplicates skipped, got %#v", second)
	}
}

func TestRun_NoExecutivesBecomesNoResult(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{outcomes: map[string]hunter.Outcome{
		"acme.com": {
			Domain:     "acme.com",
			Company:    "Acme Inc",
			Status:     hunter.StatusFound,
			Candidates: []hunter.Candidate{{Email: "bob@acme.com", Position: "Engineer"}},
		},
	}}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	wb := openWorkbook(t, path)

	summary, err := pipeline.Run(context.Background(), entriesFor(t, "acme.com\n"), searcher,
		filter.New(filter.DefaultKeywords()), wb, pipeline.Options{ExecutivesOnly: true, Now: fixedNow}, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.FoundRows != 0 || summary.NoResult != 1 || summary.APIErrors != 0 {
		t.Fatalf("unexpected summary: %#v", summary)
	}
}

func TestRun_MemberCarriedIntoRows(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{outcomes: map[string]hunter.Outcome{
		"acme.com": {
			Domain:     "acme.com",
			Status:     hunter.StatusFound,
			Candidates: []hunter.Candidate{{Email: "jane@acme.com", Position: "CEO"}},
		},
	}}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	wb := openWorkbook(t, path)

	if _, err := pipeline.Run(context.Background(), entriesFor(t, "## Bob\nacme.com\n"), searcher,
		filter.New(filter.DefaultKeywords()), wb, pipeline.Options{ExecutivesOnly: true, Now: fixedNow}, zap.NewNop()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Company falls back to the domain when the vendor returns none.
	rows := foundRows(t, path)
	if len(rows) != 1 || rows[0][1] != "acme.com" || rows[0][8] != "Bob" {
		t.Fatalf("unexpected rows: %#v", rows)
	}
}

func TestRun_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	wb := openWorkbook(t, filepath.Join(t.TempDir(), "out.xlsx"))
	_, err := pipeline.Run(ctx, entriesFor(t, "acme.com\n"), &fakeSearcher{},
		filter.New(filter.DefaultKeywords()), wb, pipeline.Options{Now: fixedNow}, zap.NewNop())
	if err == nil {
		t.Fatalf("expected context error")
	}
}
