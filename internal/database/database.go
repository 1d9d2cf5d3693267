package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"covenants/internal/types"

	_ "github.com/sijms/go-ora/v2"
	"go.uber.org/zap"
)

// DBConfig holds the Oracle connection settings.
type DBConfig struct {
	Host           string
	Port           string
	Service        string
	Username       string
	Password       string
	WalletLocation string
}

// dsn is the go-ora URL. Autonomous Database only accepts TCPS, so ssl is
// always on; a wallet location switches to mTLS.
func (c DBConfig) dsn() string {
	q := url.Values{"ssl": {"true"}}
	if c.WalletLocation != "" {
		q.Set("wallet_location", c.WalletLocation)
	}
	return (&url.URL{
		Scheme:   "oracle",
		User:     url.UserPassword(c.Username, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Service,
		RawQuery: q.Encode(),
	}).String()
}

// Configured reports whether enough settings exist to attempt a connection.
func (c DBConfig) Configured() bool {
	return c.Username != "" && c.Host != ""
}

// Database is the read-only store of districts, rosters and violation reports.
type Database struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDatabase opens and pings an Oracle connection.
func NewDatabase(config DBConfig, logger *zap.Logger) (*Database, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("connecting to oracle",
		zap.String("host", config.Host),
		zap.String("service", config.Service),
		zap.Bool("wallet", config.WalletLocation != ""),
	)

	db, err := sql.Open("oracle", config.dsn())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return New(db, logger), nil
}

// New wraps an already-open handle.
func New(db *sql.DB, logger *zap.Logger) *Database {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Database{db: db, logger: logger}
}

// Close closes the pool.
func (d *Database) Close() error {
	return d.db.Close()
}

// District loads a district by key. It returns nil, nil when the key is unknown.
func (d *Database) District(ctx context.Context, key string) (*types.District, error) {
	query := `
		SELECT code, name, address_line1, address_line2, phone
		FROM districts
		WHERE LOWER(code) = LOWER(:1)
	`

	var (
		dist         types.District
		line1, line2 sql.NullString
		phone        sql.NullString
	)
	err := d.db.QueryRowContext(ctx, query, key).Scan(&dist.Key, &dist.Name, &line1, &line2, &phone)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query district: %w", err)
	}
	dist.AddressLine1 = line1.String
	dist.AddressLine2 = line2.String
	dist.Phone = phone.String
	return &dist, nil
}

// Accounts returns every roster entry of a district.
func (d *Database) Accounts(ctx context.Context, districtKey string) ([]types.Account, error) {
	query := `
		SELECT
			district_code, account_number, account_name, service_address,
			mailing_address, mailing_city, mailing_state, mailing_zip, lot_number, email
		FROM accounts
		WHERE LOWER(district_code) = LOWER(:1)
		ORDER BY account_number
	`

	rows, err := d.db.QueryContext(ctx, query, districtKey)
	if err != nil {
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []types.Account
	for rows.Next() {
		var (
			acct                                 types.Account
			mailing, city, state, zip, lot, mail sql.NullString
		)
		err := rows.Scan(
			&acct.DistrictKey, &acct.AccountNum, &acct.OwnerName, &acct.ServiceAddress,
			&mailing, &city, &state, &zip, &lot, &mail,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		acct.MailingAddress = mailing.String
		acct.MailingCity = city.String
		acct.MailingState = state.String
		acct.MailingZip = zip.String
		acct.LotNumber = lot.String
		acct.Email = mail.String
		accounts = append(accounts, acct)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// Reports returns a district's reports, each with its violations and their
// images attached, ordered by report id.
func (d *Database) Reports(ctx context.Context, districtKey string, window types.Window) ([]types.ViolationReport, error) {
	reports, err := d.QueryViolationReports(ctx, districtKey, window)
	if err != nil {
		return nil, err
	}
	if len(reports) == 0 {
		return nil, nil
	}
	violations, err := d.QueryViolations(ctx, districtKey, window)
	if err != nil {
		return nil, err
	}
	images, err := d.QueryViolationImages(ctx, districtKey, window)
	if err != nil {
		return nil, err
	}

	imagesByViolation := make(map[int64][]types.ViolationImage)
	for _, img := range images {
		imagesByViolation[img.ViolationID] = append(imagesByViolation[img.ViolationID], img)
	}
	byReport := make(map[int64][]types.Violation)
	for _, v := range violations {
		v.Images = imagesByViolation[v.ID]
		byReport[v.ReportID] = append(byReport[v.ReportID], v)
	}
	for i := range reports {
		reports[i].Violations = byReport[reports[i].ID]
	}

	d.logger.Debug("loaded reports",
		zap.String("district", districtKey),
		zap.Int("reports", len(reports)),
		zap.Int("violations", len(violations)),
		zap.Int("images", len(images)),
	)
	return reports, nil
}

// reportFilter builds the shared WHERE clause for report-scoped queries.
func reportFilter(alias, districtKey string, window types.Window) (string, []any) {
	conds := []string{fmt.Sprintf("LOWER(%s.district) = LOWER(:1)", alias)}
	args := []any{districtKey}
	if !window.Since.IsZero() {
		args = append(args, window.Since)
		conds = append(conds, fmt.Sprintf("%s.updated_at >= :%d", alias, len(args)))
	}
	if !window.Until.IsZero() {
		args = append(args, window.Until)
		conds = append(conds, fmt.Sprintf("%s.updated_at < :%d", alias, len(args)))
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

// QueryViolationReports returns report rows without children.
func (d *Database) QueryViolationReports(ctx context.Context, districtKey string, window types.Window) ([]types.ViolationReport, error) {
	where, args := reportFilter("r", districtKey, window)
	query := `
		SELECT r.id, r.address_line1, r.address_line2, r.city, r.state, r.zip_code,
			r.district, r.status, r.created_at, r.updated_at
		FROM violation_reports r
		` + where + `
		ORDER BY r.id
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violation reports: %w", err)
	}
	defer rows.Close()

	var reports []types.ViolationReport
	for rows.Next() {
		var (
			r     types.ViolationReport
			line2 sql.NullString
		)
		err := rows.Scan(&r.ID, &r.AddressLine1, &line2, &r.City, &r.State, &r.Zip,
			&r.DistrictKey, &r.Status, &r.CreatedAt, &r.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan violation report: %w", err)
		}
		r.AddressLine2 = line2.String
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate violation reports: %w", err)
	}
	return reports, nil
}

// QueryViolations returns the violations of the reports selected by the
// same district and window.
func (d *Database) QueryViolations(ctx context.Context, districtKey string, window types.Window) ([]types.Violation, error) {
	where, args := reportFilter("r", districtKey, window)
	query := `
		SELECT v.id, v.report_id, v.violation_type, v.notes, v.created_at
		FROM violations v
		JOIN violation_reports r ON r.id = v.report_id
		` + where + `
		ORDER BY v.report_id, v.id
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violations: %w", err)
	}
	defer rows.Close()

	var violations []types.Violation
	for rows.Next() {
		var (
			v     types.Violation
			notes sql.NullString
		)
		if err := rows.Scan(&v.ID, &v.ReportID, &v.Type, &notes, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan violation: %w", err)
		}
		v.Notes = notes.String
		violations = append(violations, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate violations: %w", err)
	}
	return violations, nil
}

// QueryViolationImages returns image rows for the selected reports.
func (d *Database) QueryViolationImages(ctx context.Context, districtKey string, window types.Window) ([]types.ViolationImage, error) {
	where, args := reportFilter("r", districtKey, window)
	query := `
		SELECT i.id, i.violation_id, i.filename, i.original_filename, i.file_path,
			i.file_size, i.mime_type, i.uploaded_at
		FROM violation_images i
		JOIN violations v ON v.id = i.violation_id
		JOIN violation_reports r ON r.id = v.report_id
		` + where + `
		ORDER BY i.violation_id, i.id
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query violation images: %w", err)
	}
	defer rows.Close()

	var images []types.ViolationImage
	for rows.Next() {
		var img types.ViolationImage
		err := rows.Scan(&img.ID, &img.ViolationID, &img.Filename, &img.OriginalFilename, &img.Location,
			&img.Size, &img.MimeType, &img.UploadedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan violation image: %w", err)
		}
		images = append(images, img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate violation images: %w", err)
	}
	return images, nil
}

// LoadDatabaseConfig reads the DB_* variables.
func LoadDatabaseConfig() DBConfig {
	return DBConfig{
		Host:           getEnvOrDefault("DB_HOST", "localhost"),
		Port:           getEnvOrDefault("DB_PORT", "1521"),
		Service:        getEnvOrDefault("DB_SERVICE", "XE"),
		Username:       getEnvOrDefault("DB_USERNAME", ""),
		Password:       getEnvOrDefault("DB_PASSWORD", ""),
		WalletLocation: getEnvOrDefault("DB_WALLET_LOCATION", ""),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
