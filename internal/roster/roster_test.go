package roster

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"covenants/internal/types"

	shp "github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbookBytes(t *testing.T, rows [][]any) []byte {
	t.Helper()
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestReadWorkbook(t *testing.T) {
	data := workbookBytes(t, [][]any{
		{"Account Number", "Account Name", "ServiceAddress", "Email", "Mailing Address", "City", "State", "Zip"},
		{"A-100", "Jane Smith", "123 Main Street", "jane@example.com", "PO Box 9", "Fort Collins", "CO", "80525"},
		{"A-101", "No Address", "", "", "", "", "", ""},
		{"A-102", "Bob Jones", " 44 Elm Ct ", "", "", "", "", ""},
	})

	accounts, err := ReadWorkbook(bytes.NewReader(data), "highlands_mead")
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	assert.Equal(t, types.Account{
		DistrictKey:    "highlands_mead",
		AccountNum:     "A-100",
		OwnerName:      "Jane Smith",
		ServiceAddress: "123 Main Street",
		MailingAddress: "PO Box 9",
		MailingCity:    "Fort Collins",
		MailingState:   "CO",
		MailingZip:     "80525",
		Email:          "jane@example.com",
	}, accounts[0])
	assert.Equal(t, "44 Elm Ct", accounts[1].ServiceAddress)
	assert.Empty(t, accounts[1].LotNumber)
}

func TestReadWorkbookMissingColumns(t *testing.T) {
	data := workbookBytes(t, [][]any{{"Account Number", "Email"}})

	_, err := ReadWorkbook(bytes.NewReader(data), "highlands_mead")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ServiceAddress")
	assert.Contains(t, err.Error(), "Account Name")
}

func TestReadWorkbookNotAWorkbook(t *testing.T) {
	_, err := ReadWorkbook(bytes.NewReader([]byte("plain text")), "highlands_mead")
	assert.Error(t, err)
}

func TestWorkbookSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.xlsx")
	data := workbookBytes(t, [][]any{
		{"Account Number", "Account Name", "ServiceAddress"},
		{"A-1", "Owner", "1 Oak Dr"},
	})
	require.NoError(t, os.WriteFile(path, data, 0o644))

	src := WorkbookSource{Path: path, DistrictKey: "waters_edge"}
	accounts, err := src.Accounts(context.Background(), "Waters_Edge")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, "Waters_Edge", accounts[0].DistrictKey)

	_, err = src.Accounts(context.Background(), "highlands_mead")
	assert.Error(t, err, "roster bound to another district")
}

func writeParcels(t *testing.T, path string, rows [][]string) {
	t.Helper()
	w, err := shp.Create(path, shp.POINT)
	require.NoError(t, err)

	fields := []shp.Field{
		shp.StringField("ACCOUNT", 12),
		shp.StringField("OWNER_NAME", 40),
		shp.StringField("SITUS_ADDR", 60),
		shp.StringField("MAIL_ZIP", 10),
		shp.StringField("SUBDIV", 30),
	}
	require.NoError(t, w.SetFields(fields))
	for i, row := range rows {
		n := w.Write(&shp.Point{X: float64(i), Y: float64(i)})
		for j, v := range row {
			require.NoError(t, w.WriteAttribute(int(n), j, v))
		}
	}
	w.Close()

	// The writer names the table "<base>dbf" without the dot.
	base := strings.TrimSuffix(path, ".shp")
	require.NoError(t, os.Rename(base+"dbf", base+".dbf"))
}

func TestParcelSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parcels.shp")
	writeParcels(t, path, [][]string{
		{"R001", "SMITH JANE", "123 MAIN ST", "80525", "HIGHLANDS MEAD"},
		{"R002", "JONES BOB", "9 LAKE DR", "80526", "WATERS EDGE"},
		{"R003", "VACANT", "", "", "HIGHLANDS MEAD"},
	})

	src := ParcelSource{Path: path, Subdivision: "highlands mead"}
	accounts, err := src.Accounts(context.Background(), "highlands_mead")
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, types.Account{
		DistrictKey:    "highlands_mead",
		AccountNum:     "R001",
		OwnerName:      "SMITH JANE",
		ServiceAddress: "123 MAIN ST",
		MailingZip:     "80525",
	}, accounts[0])

	all, err := ParcelSource{Path: path}.Accounts(context.Background(), "any")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestParcelSourceMissingSitusField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parcels.shp")
	writeParcels(t, path, [][]string{{"R001", "SMITH", "1 A ST", "", ""}})

	fields := DefaultParcelFields
	fields.Situs = "ADDRESS"
	_, err := ParcelSource{Path: path, Fields: fields}.Accounts(context.Background(), "d")
	assert.ErrorContains(t, err, "ADDRESS")
}
