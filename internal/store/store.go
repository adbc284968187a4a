// Package store persists scrape results into an XLSX workbook with two sheets:
// one for found emails and one for domains that produced nothing. The workbook
// is the sole durable state across runs; de-duplication is enforced here, at
// write time, against whatever the file already contains.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	SheetFound    = "Found Emails"
	SheetNoResult = "No Results"
)

var foundHeader = []string{
	"Domain",
	"Company",
	"Email",
	"First Name",
	"Last Name",
	"Position",
	"Department",
	"Confidence Score",
	"BP Member",
	"Parse Date",
}

var noResultHeader = []string{
	"Domain",
	"Company",
	"BP Member",
	"Reason",
	"Parse Date",
}

// FoundRow is one discovered contact, written to the found sheet.
type FoundRow struct {
	Domain     string
	Company    string
	Email      string
	FirstName  string
	LastName   string
	Position   string
	Department string
	Confidence int
	Member     string
	ParseDate  string
}

// NoResultRow records a domain for which the search produced nothing usable.
type NoResultRow struct {
	Domain    string
	Company   string
	Member    string
	Reason    string
	ParseDate string
}

// AppendStats summarizes one Append call.
type AppendStats struct {
	FoundAdded    int
	NoResultAdded int

	// Duplicates counts rows skipped because an identical key already exists
	// in the workbook (found: domain+email; no-result: domain).
	Duplicates int

	// Excluded counts no-result rows dropped because the same domain gained a
	// found row, either earlier in this batch or in a previous run.
	Excluded int
}

// Workbook is an open output file plus the dedupe state scanned from it.
//
// Not safe for concurrent use; a run opens, mutates, and saves it within a
// single exclusive scope. Concurrent invocations against the same file are
// unsupported.
type Workbook struct {
	path string
	f    *excelize.File

	headerStyle int

	foundKeys       map[string]struct{}
	foundDomains    map[string]struct{}
	noResultDomains map[string]struct{}

	foundNext    int
	noResultNext int
}

// Open loads an existing workbook or initializes a new one with both sheets and
// styled headers. A file that exists but cannot be parsed is a hard error:
// without the existing rows the dedupe contract cannot be honored.
func Open(path string) (*Workbook, error) {
	w := &Workbook{
		path:            path,
		foundKeys:       make(map[string]struct{}),
		foundDomains:    make(map[string]struct{}),
		noResultDomains: make(map[string]struct{}),
	}

	_, statErr := os.Stat(path)
	switch {
	case statErr == nil:
		f, err := excelize.OpenFile(path)
		if err != nil {
			return nil, fmt.Errorf("open workbook %s: %w", path, err)
		}
		w.f = f
	case errors.Is(statErr, fs.ErrNotExist):
		w.f = excelize.NewFile()
		if err := w.f.SetSheetName("Sheet1", SheetFound); err != nil {
			return nil, fmt.Errorf("init workbook: %w", err)
		}
	default:
		return nil, fmt.Errorf("stat workbook %s: %w", path, statErr)
	}

	style, err := w.f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	w.headerStyle = style

	// Sheets missing from an older file are created, so the schema stays
	// forward-compatible.
	if err := w.ensureSheet(SheetFound, foundHeader); err != nil {
		return nil, err
	}
	if err := w.ensureSheet(SheetNoResult, noResultHeader); err != nil {
		return nil, err
	}

	if err := w.scanExisting(); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *Workbook) ensureSheet(name string, header []string) error {
	idx, err := w.f.GetSheetIndex(name)
	if err != nil {
		return fmt.Errorf("lookup sheet %s: %w", name, err)
	}
	if idx < 0 {
		if _, err := w.f.NewSheet(name); err != nil {
			return fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	rows, err := w.f.GetRows(name)
	if err != nil {
		return fmt.Errorf("read sheet %s: %w", name, err)
	}
	if len(rows) > 0 {
		return nil
	}

	cells := make([]interface{}, len(header))
	for i, h := range header {
		cells[i] = h
	}
	if err := w.f.SetSheetRow(name, "A1", &cells); err != nil {
		return fmt.Errorf("write header for %s: %w", name, err)
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err != nil {
		return err
	}
	if err := w.f.SetCellStyle(name, "A1", last, w.headerStyle); err != nil {
		return fmt.Errorf("style header for %s: %w", name, err)
	}
	return nil
}

func (w *Workbook) scanExisting() error {
	foundRows, err := w.f.GetRows(SheetFound)
	if err != nil {
		return fmt.Errorf("scan sheet %s: %w", SheetFound, err)
	}
	for _, row := range skipHeader(foundRows) {
		domain := cell(row, 0)
		email := cell(row, 2)
		if domain == "" || email == "" {
			continue
		}
		w.foundKeys[foundKey(domain, email)] = struct{}{}
		w.foundDomains[domain] = struct{}{}
	}
	w.foundNext = len(foundRows) + 1
	if w.foundNext < 2 {
		w.foundNext = 2
	}

	noResultRows, err := w.f.GetRows(SheetNoResult)
	if err != nil {
		return fmt.Errorf("scan sheet %s: %w", SheetNoResult, err)
	}
	for _, row := range skipHeader(noResultRows) {
		if domain := cell(row, 0); domain != "" {
			w.noResultDomains[domain] = struct{}{}
		}
	}
	w.noResultNext = len(noResultRows) + 1
	if w.noResultNext < 2 {
		w.noResultNext = 2
	}
	return nil
}

// Append writes new rows after the last existing row of each sheet.
//
// A found row whose (domain, email) key already exists is skipped as a
// duplicate. A no-result row is skipped when its domain has any found row,
// whether from this batch or a prior run. The reverse is deliberately not
// enforced: a domain with a stale no-result row from an earlier run still gets
// its found rows appended, and the stale row stays (known gap).
func (w *Workbook) Append(found []FoundRow, noResult []NoResultRow) (AppendStats, error) {
	var stats AppendStats

	for _, r := range found {
		key := foundKey(r.Domain, r.Email)
		if _, ok := w.foundKeys[key]; ok {
			stats.Duplicates++
			continue
		}
		cells := []interface{}{
			r.Domain,
			r.Company,
			r.Email,
			r.FirstName,
			r.LastName,
			r.Position,
			r.Department,
			r.Confidence,
			r.Member,
			r.ParseDate,
		}
		if err := w.writeRow(SheetFound, w.foundNext, cells); err != nil {
			return stats, err
		}
		w.foundKeys[key] = struct{}{}
		w.foundDomains[r.Domain] = struct{}{}
		w.foundNext++
		stats.FoundAdded++
	}

	for _, r := range noResult {
		if _, ok := w.foundDomains[r.Domain]; ok {
			stats.Excluded++
			continue
		}
		if _, ok := w.noResultDomains[r.Domain]; ok {
			stats.Duplicates++
			continue
		}
		cells := []interface{}{
			r.Domain,
			r.Company,
			r.Member,
			r.Reason,
			r.ParseDate,
		}
		if err := w.writeRow(SheetNoResult, w.noResultNext, cells); err != nil {
			return stats, err
		}
		w.noResultDomains[r.Domain] = struct{}{}
		w.noResultNext++
		stats.NoResultAdded++
	}

	return stats, nil
}

func (w *Workbook) writeRow(sheet string, row int, cells []interface{}) error {
	start, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := w.f.SetSheetRow(sheet, start, &cells); err != nil {
		return fmt.Errorf("append row to %s: %w", sheet, err)
	}
	return nil
}

// Save recomputes column widths and rewrites the whole file in one operation.
// There is no transaction log; a crash mid-write can corrupt the file.
func (w *Workbook) Save() error {
	if err := w.autoFit(SheetFound); err != nil {
		return err
	}
	if err := w.autoFit(SheetNoResult); err != nil {
		return err
	}
	if err := w.f.SaveAs(w.path); err != nil {
		return fmt.Errorf("save workbook %s: %w", w.path, err)
	}
	return nil
}

// Close releases the underlying file handles without saving.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// FoundCount returns the number of data rows in the found sheet.
func (w *Workbook) FoundCount() int { return len(w.foundKeys) }

// NoResultCount returns the number of data rows in the no-result sheet.
func (w *Workbook) NoResultCount() int { return len(w.noResultDomains) }

func (w *Workbook) autoFit(sheet string) error {
	rows, err := w.f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("autofit %s: %w", sheet, err)
	}
	widths := make(map[int]float64)
	for _, row := range rows {
		for i, v := range row {
			if l := float64(len(v)) + 2; l > widths[i] {
				widths[i] = l
			}
		}
	}
	for i, width := range widths {
		if width < 10 {
			width = 10
		}
		if width > 60 {
			width = 60
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := w.f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("autofit %s column %s: %w", sheet, col, err)
		}
	}
	return nil
}

func foundKey(domain, email string) string {
	return domain + "\x00" + strings.ToLower(strings.TrimSpace(email))
}

func skipHeader(rows [][]string) [][]string {
	if len(rows) == 0 {
		return nil
	}
	return rows[1:]
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
