package roster

import (
	"context"
	"fmt"
	"strings"

	"covenants/internal/types"

	shp "github.com/jonas-p/go-shp"
)

// ParcelFields names the DBF attribute columns of a parcel shapefile.
type ParcelFields struct {
	Account     string
	Owner       string
	Situs       string
	MailAddress string
	MailCity    string
	MailState   string
	MailZip     string
	Lot         string
	Subdivision string
}

// DefaultParcelFields matches the county parcel export layout.
var DefaultParcelFields = ParcelFields{
	Account:     "ACCOUNT",
	Owner:       "OWNER_NAME",
	Situs:       "SITUS_ADDR",
	MailAddress: "MAIL_ADDR",
	MailCity:    "MAIL_CITY",
	MailState:   "MAIL_STATE",
	MailZip:     "MAIL_ZIP",
	Lot:         "LOT",
	Subdivision: "SUBDIV",
}

// ParcelSource reads accounts from the attribute table of a parcel
// shapefile, keeping only parcels in Subdivision when it is set.
type ParcelSource struct {
	Path        string
	Subdivision string
	Fields      ParcelFields
}

func (s ParcelSource) Accounts(ctx context.Context, districtKey string) ([]types.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fields := s.Fields
	if fields == (ParcelFields{}) {
		fields = DefaultParcelFields
	}

	r, err := shp.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open parcel shapefile %s: %w", s.Path, err)
	}
	defer r.Close()

	index := make(map[string]int)
	for i, f := range r.Fields() {
		index[strings.ToUpper(f.String())] = i
	}
	if _, ok := index[strings.ToUpper(fields.Situs)]; !ok {
		return nil, fmt.Errorf("parcel shapefile %s has no %s attribute", s.Path, fields.Situs)
	}

	sub := strings.ToUpper(strings.TrimSpace(s.Subdivision))
	var accounts []types.Account
	for r.Next() {
		idx, _ := r.Shape()
		attr := func(name string) string {
			i, ok := index[strings.ToUpper(name)]
			if !ok || name == "" {
				return ""
			}
			return strings.Trim(r.ReadAttribute(idx, i), " \x00")
		}

		if sub != "" && strings.ToUpper(attr(fields.Subdivision)) != sub {
			continue
		}
		situs := attr(fields.Situs)
		if situs == "" {
			continue
		}
		accounts = append(accounts, types.Account{
			DistrictKey:    districtKey,
			AccountNum:     attr(fields.Account),
			OwnerName:      attr(fields.Owner),
			ServiceAddress: situs,
			MailingAddress: attr(fields.MailAddress),
			MailingCity:    attr(fields.MailCity),
			MailingState:   attr(fields.MailState),
			MailingZip:     attr(fields.MailZip),
			LotNumber:      attr(fields.Lot),
		})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read parcel shapefile %s: %w", s.Path, err)
	}
	return accounts, nil
}
