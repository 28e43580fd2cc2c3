// Package importer parses watchlist files. CSV and XLSX share the same
// column layout: company name, SIREN, website, region, department, city,
// postal code, sector code. Only the name is mandatory; a missing region is
// inferred from the postal code or department when possible.
package importer

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/altiore-conseil/veille-cli/internal/model"
	"github.com/altiore-conseil/veille-cli/internal/region"
)

// ReadFile parses a watchlist file, dispatching on the extension.
func ReadFile(path string) ([]model.WatchlistEntry, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "importer: open file")
		}
		defer f.Close()
		return ReadCSV(f)
	case ".xlsx":
		return ReadXLSX(path)
	default:
		return nil, eris.Errorf("importer: unsupported file type: %s", filepath.Ext(path))
	}
}

// ReadCSV parses watchlist rows from CSV. The first row is treated as a
// header when its first cell does not look like data.
func ReadCSV(r io.Reader) ([]model.WatchlistEntry, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "importer: read csv")
	}
	return rowsToEntries(rows), nil
}

// ReadXLSX parses watchlist rows from the first sheet of an XLSX file.
func ReadXLSX(path string) ([]model.WatchlistEntry, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "importer: open xlsx")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("importer: xlsx has no sheets")
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, 0, len(row.Cells))
		for _, c := range row.Cells {
			cells = append(cells, strings.TrimSpace(c.String()))
		}
		rows = append(rows, cells)
	}
	return rowsToEntries(rows), nil
}

func rowsToEntries(rows [][]string) []model.WatchlistEntry {
	var entries []model.WatchlistEntry
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		entry := rowToEntry(row)
		if entry.CompanyName == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

func isHeader(row []string) bool {
	if len(row) == 0 {
		return true
	}
	first := strings.ToLower(strings.TrimSpace(row[0]))
	return first == "" || first == "nom" || first == "entreprise" ||
		first == "company" || first == "company_name" || first == "raison_sociale"
}

func rowToEntry(row []string) model.WatchlistEntry {
	cell := func(i int) string {
		if i < len(row) {
			return strings.TrimSpace(row[i])
		}
		return ""
	}

	entry := model.WatchlistEntry{
		CompanyName: cell(0),
		SIREN:       strings.ReplaceAll(cell(1), " ", ""),
		WebsiteURL:  cell(2),
		Region:      cell(3),
		Department:  cell(4),
		City:        cell(5),
		PostalCode:  cell(6),
		SectorCode:  cell(7),
	}

	if entry.Region == "" {
		if r := region.ForPostalCode(entry.PostalCode); r != "" {
			entry.Region = r
		} else if r := region.ForDepartment(entry.Department); r != "" {
			entry.Region = r
		}
	}
	return entry
}
