// Package roster loads homeowner accounts from the files districts hand
// over: an Excel roster export or a county parcel shapefile.
package roster

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"covenants/internal/types"

	"github.com/xuri/excelize/v2"
)

// Roster workbook headers. The first three are required.
const (
	colAccountNumber = "Account Number"
	colAccountName   = "Account Name"
	colService       = "ServiceAddress"
	colEmail         = "Email"
	colMailing       = "Mailing Address"
	colCity          = "City"
	colState         = "State"
	colZip           = "Zip"
	colLot           = "Lot"
)

// ReadWorkbook parses the first sheet of a roster workbook. Rows without a
// ServiceAddress are dropped.
func ReadWorkbook(r io.Reader, districtKey string) ([]types.Account, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("roster workbook has no sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster rows: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	// Parse header row
	headerMap := make(map[string]int)
	for i, h := range rows[0] {
		headerMap[strings.TrimSpace(h)] = i
	}
	var missing []string
	for _, col := range []string{colService, colAccountNumber, colAccountName} {
		if _, ok := headerMap[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("roster workbook missing required columns: %s", strings.Join(missing, ", "))
	}

	cell := func(row []string, col string) string {
		i, ok := headerMap[col]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var accounts []types.Account
	for _, row := range rows[1:] {
		service := cell(row, colService)
		if service == "" {
			continue
		}
		accounts = append(accounts, types.Account{
			DistrictKey:    districtKey,
			AccountNum:     cell(row, colAccountNumber),
			OwnerName:      cell(row, colAccountName),
			ServiceAddress: service,
			MailingAddress: cell(row, colMailing),
			MailingCity:    cell(row, colCity),
			MailingState:   cell(row, colState),
			MailingZip:     cell(row, colZip),
			LotNumber:      cell(row, colLot),
			Email:          cell(row, colEmail),
		})
	}
	return accounts, nil
}

// WorkbookSource serves one district's roster from an .xlsx file.
type WorkbookSource struct {
	Path        string
	DistrictKey string
}

// Accounts reads the workbook on every call; rosters change only by re-import.
func (s WorkbookSource) Accounts(ctx context.Context, districtKey string) ([]types.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.DistrictKey != "" && !strings.EqualFold(s.DistrictKey, districtKey) {
		return nil, fmt.Errorf("roster %s belongs to district %s, not %s", s.Path, s.DistrictKey, districtKey)
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open roster: %w", err)
	}
	defer f.Close()
	return ReadWorkbook(f, districtKey)
}
