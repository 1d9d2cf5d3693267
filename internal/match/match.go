// Package match joins field violation reports to a district's homeowner
// roster by normalized service address.
package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"covenants/internal/address"
	"covenants/internal/regulation"
	"covenants/internal/types"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrDistrictNotFound aborts a run; nothing can be matched without a district.
var ErrDistrictNotFound = errors.New("district not found")

// DistrictSource looks up a district. A nil district with a nil error means
// the key is unknown.
type DistrictSource interface {
	District(ctx context.Context, key string) (*types.District, error)
}

// AccountSource returns a district's roster.
type AccountSource interface {
	Accounts(ctx context.Context, districtKey string) ([]types.Account, error)
}

// ReportSource returns a district's reports with violations and images
// attached, restricted to the window when it is set.
type ReportSource interface {
	Reports(ctx context.Context, districtKey string, window types.Window) ([]types.ViolationReport, error)
}

// DedupeScope selects how widely a violation identity is remembered.
type DedupeScope string

const (
	// DedupeRun drops a violation seen anywhere earlier in the run.
	DedupeRun DedupeScope = "run"
	// DedupeGroup drops a violation only if its property already has it.
	DedupeGroup DedupeScope = "group"
)

// DefaultExcluded are categories that never produce notices.
var DefaultExcluded = []string{regulation.CodeOther, regulation.CodeBasketball}

// Options tune a match run.
type Options struct {
	Excluded []string
	Scope    DedupeScope
	Window   types.Window
}

// SkipReason explains why a record did not reach a notice.
type SkipReason string

const (
	SkipUnmatched SkipReason = "unmatched_address"
	SkipExcluded  SkipReason = "excluded_type"
	SkipDuplicate SkipReason = "duplicate_violation"
)

// Diagnostic records a soft skip.
type Diagnostic struct {
	Reason      SkipReason
	ReportID    int64
	ViolationID int64
	Address     string
	Detail      string
	// Violations is how many violations the skip covers: all of an
	// unmatched report's, otherwise one.
	Violations  int
}

// Group is one property's matched account and its violations in
// first-seen order.
type Group struct {
	Key             string
	PropertyAddress string
	District        types.District
	Account         types.Account
	Violations      []types.Violation
}

// Result is the output of one match run.
type Result struct {
	District       types.District
	Groups         []Group
	Diagnostics    []Diagnostic
	ReportsScanned int
}

// Unmatched lists the raw report addresses that had no roster entry, in
// scan order.
func (r *Result) Unmatched() []string {
	var out []string
	for _, d := range r.Diagnostics {
		if d.Reason == SkipUnmatched {
			out = append(out, d.Address)
		}
	}
	return out
}

// Engine performs the keyed join. It holds no per-run state and may be
// shared across concurrent runs.
type Engine struct {
	districts DistrictSource
	accounts  AccountSource
	reports   ReportSource
	opts      Options
	logger    *zap.Logger
}

func NewEngine(districts DistrictSource, accounts AccountSource, reports ReportSource, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Excluded == nil {
		opts.Excluded = DefaultExcluded
	}
	if opts.Scope == "" {
		opts.Scope = DedupeRun
	}
	return &Engine{
		districts: districts,
		accounts:  accounts,
		reports:   reports,
		opts:      opts,
		logger:    logger,
	}
}

// Match builds the address groups for a district, sorted by property
// address. Per-record problems become diagnostics; only district and
// source failures are returned as errors.
func (e *Engine) Match(ctx context.Context, districtKey string) (*Result, error) {
	district, err := e.districts.District(ctx, districtKey)
	if err != nil {
		return nil, fmt.Errorf("load district %s: %w", districtKey, err)
	}
	if district == nil {
		return nil, fmt.Errorf("%w: %s", ErrDistrictNotFound, districtKey)
	}

	var (
		byAddress map[string]types.Account
		reports   []types.ViolationReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		accounts, err := e.accounts.Accounts(gctx, district.Key)
		if err != nil {
			return fmt.Errorf("load accounts: %w", err)
		}
		byAddress = indexAccounts(accounts)
		return nil
	})
	g.Go(func() error {
		var err error
		reports, err = e.reports.Reports(gctx, district.Key, e.opts.Window)
		if err != nil {
			return fmt.Errorf("load reports: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &Result{District: *district}
	excluded := make(map[string]bool, len(e.opts.Excluded))
	for _, code := range e.opts.Excluded {
		excluded[strings.ToLower(strings.TrimSpace(code))] = true
	}
	seen := make(map[string]map[int64]bool) // dedupe key -> violation ids
	groups := make(map[string]*Group)

	for _, report := range reports {
		if !e.opts.Window.Contains(report.UpdatedAt) {
			continue
		}
		res.ReportsScanned++

		key := address.Normalize(report.AddressLine1)
		acct, ok := byAddress[key]
		if !ok || key == "" {
			e.logger.Info("no account for report address",
				zap.String("district", district.Key),
				zap.Int64("report_id", report.ID),
				zap.String("address", report.AddressLine1),
			)
			res.Diagnostics = append(res.Diagnostics, Diagnostic{
				Reason:     SkipUnmatched,
				ReportID:   report.ID,
				Address:    report.AddressLine1,
				Violations: len(report.Violations),
			})
			continue
		}

		scope := ""
		if e.opts.Scope == DedupeGroup {
			scope = key
		}
		if seen[scope] == nil {
			seen[scope] = make(map[int64]bool)
		}

		for _, v := range report.Violations {
			if excluded[strings.ToLower(strings.TrimSpace(v.Type))] {
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Reason:      SkipExcluded,
					ReportID:    report.ID,
					ViolationID: v.ID,
					Address:     report.AddressLine1,
					Detail:      v.Type,
					Violations:  1,
				})
				continue
			}
			if v.ID != 0 && seen[scope][v.ID] {
				e.logger.Debug("duplicate violation",
					zap.Int64("violation_id", v.ID),
					zap.Int64("report_id", report.ID),
				)
				res.Diagnostics = append(res.Diagnostics, Diagnostic{
					Reason:      SkipDuplicate,
					ReportID:    report.ID,
					ViolationID: v.ID,
					Address:     report.AddressLine1,
					Violations:  1,
				})
				continue
			}
			seen[scope][v.ID] = true

			grp, ok := groups[key]
			if !ok {
				grp = &Group{
					Key:             key,
					PropertyAddress: report.AddressLine1,
					District:        *district,
					Account:         acct,
				}
				groups[key] = grp
			}
			grp.Violations = append(grp.Violations, v)
		}
	}

	res.Groups = make([]Group, 0, len(groups))
	for _, grp := range groups {
		res.Groups = append(res.Groups, *grp)
	}
	sort.Slice(res.Groups, func(i, j int) bool {
		a, b := res.Groups[i], res.Groups[j]
		if a.PropertyAddress != b.PropertyAddress {
			return a.PropertyAddress < b.PropertyAddress
		}
		return a.Account.AccountNum < b.Account.AccountNum
	})

	e.logger.Info("match complete",
		zap.String("district", district.Key),
		zap.Int("reports", res.ReportsScanned),
		zap.Int("groups", len(res.Groups)),
		zap.Int("skipped", len(res.Diagnostics)),
	)
	return res, nil
}

// indexAccounts keys the roster by normalized service address. Duplicate
// keys keep the last account seen.
func indexAccounts(accounts []types.Account) map[string]types.Account {
	byAddress := make(map[string]types.Account, len(accounts))
	for _, acct := range accounts {
		key := address.Normalize(acct.ServiceAddress)
		if key == "" {
			continue
		}
		byAddress[key] = acct
	}
	return byAddress
}
