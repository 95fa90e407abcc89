// Package batch reads reel URLs from spreadsheets and writes analysis
// results back out as a workbook.
package batch

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

type Entry struct {
	URL        string
	Collection string
}

// LoadEntries reads the first sheet of an xlsx file. The URL column is found
// by header name (url, link, reel) and falls back to the first column; an
// optional collection column is matched the same way. Rows whose URL does
// not look like http(s) are skipped.
func LoadEntries(path string) ([]Entry, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows")
	}

	header := rows[0]
	urlIdx, collectionIdx := -1, -1
	for i, h := range header {
		l := strings.ToLower(strings.TrimSpace(h))
		switch {
		case urlIdx == -1 && (strings.Contains(l, "url") || strings.Contains(l, "link") || strings.Contains(l, "reel")):
			urlIdx = i
		case collectionIdx == -1 && (strings.Contains(l, "collection") || strings.Contains(l, "folder")):
			collectionIdx = i
		}
	}

	start := 1
	if urlIdx == -1 {
		// headerless sheet: URLs in the first column
		urlIdx = 0
		if looksLikeURL(cell(header, 0)) {
			start = 0
		}
	}

	seen := make(map[string]struct{})
	var out []Entry
	for _, r := range rows[start:] {
		url := strings.TrimSpace(cell(r, urlIdx))
		if !looksLikeURL(url) {
			continue
		}
		if _, dup := seen[url]; dup {
			continue
		}
		seen[url] = struct{}{}
		out = append(out, Entry{URL: url, Collection: strings.TrimSpace(cell(r, collectionIdx))})
	}
	return out, nil
}

// Row is one line of the results workbook.
type Row struct {
	URL        string
	Status     string
	Title      string
	Collection string
	Summary    string
	Topics     []string
	Error      string
}

var resultHeader = []any{"URL", "Status", "Title", "Collection", "Summary", "Topics", "Error"}

const resultSheet = "Results"

// WriteResults writes rows to a new workbook at path.
func WriteResults(path string, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", resultSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(resultSheet, "A1", &resultHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, r := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{r.URL, r.Status, r.Title, r.Collection, r.Summary, strings.Join(r.Topics, ", "), r.Error}
		if err := f.SetSheetRow(resultSheet, cellName, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(resultSheet, "A", "A", 48); err != nil {
		return err
	}
	if err := f.SetColWidth(resultSheet, "E", "E", 80); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func cell(r []string, i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

func looksLikeURL(s string) bool {
	l := strings.ToLower(strings.TrimSpace(s))
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}
