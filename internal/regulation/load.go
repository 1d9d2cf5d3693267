package regulation

import (
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Default returns the catalog bundled with the binary.
func Default() (*Catalog, error) {
	return ParseYAML(defaultCatalog)
}

// Load reads a catalog from a .yaml/.yml or .xlsx file. An empty path
// yields the bundled default.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read catalog %s: %w", path, err)
		}
		return ParseYAML(data)
	case ".xlsx":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open catalog %s: %w", path, err)
		}
		defer f.Close()
		return ReadWorkbook(f)
	default:
		return nil, fmt.Errorf("unsupported catalog format %q", filepath.Ext(path))
	}
}

// ParseYAML decodes a district -> code -> entry document.
func ParseYAML(data []byte) (*Catalog, error) {
	var table map[string]map[string]Entry
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	return NewCatalog(table), nil
}

// workbook column headers; District, Code and Title are required.
const (
	colDistrict      = "District"
	colCode          = "Code"
	colCodeNumber    = "Code Number"
	colTitle         = "Title"
	colViolationName = "Violation Name"
	colDescription   = "Description"
)

// ReadWorkbook loads a catalog from the first sheet of an Excel workbook with
// one regulation per row. Rows missing a district, code or title are ignored.
func ReadWorkbook(r io.Reader) (*Catalog, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse catalog workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("catalog workbook has no sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog rows: %w", err)
	}
	if len(rows) == 0 {
		return NewCatalog(nil), nil
	}

	headerMap := make(map[string]int)
	for i, h := range rows[0] {
		headerMap[strings.TrimSpace(h)] = i
	}
	for _, required := range []string{colDistrict, colCode, colTitle} {
		if _, ok := headerMap[required]; !ok {
			return nil, fmt.Errorf("catalog workbook missing column %q", required)
		}
	}
	cell := func(row []string, col string) string {
		i, ok := headerMap[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	table := make(map[string]map[string]Entry)
	for _, row := range rows[1:] {
		district, code, title := cell(row, colDistrict), cell(row, colCode), cell(row, colTitle)
		if district == "" || code == "" || title == "" {
			continue
		}
		if table[district] == nil {
			table[district] = make(map[string]Entry)
		}
		table[district][code] = Entry{
			Title:         title,
			CodeNumber:    cell(row, colCodeNumber),
			ViolationName: cell(row, colViolationName),
			Description:   cell(row, colDescription),
		}
	}
	return NewCatalog(table), nil
}
