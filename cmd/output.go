package main

import (
	"fmt"
	"io"
	"strings"

	"covenants/internal/match"
	"covenants/internal/notice"
	"covenants/internal/pipeline"
)

// printSummary writes the end-of-run report.
func printSummary(w io.Writer, r *pipeline.Report) {
	s := r.Summary
	fmt.Fprintln(w, strings.Repeat("-", 80))
	fmt.Fprintf(w, "District          : %s\n", r.District)
	fmt.Fprintf(w, "Run               : %s (rules v%s)\n", r.RunID, r.Version)
	fmt.Fprintf(w, "Addresses matched : %s%d%s\n", colorGreen, s.AddressesMatched, colorReset)
	fmt.Fprintf(w, "Violations        : %d\n", s.ViolationsProcessed)
	fmt.Fprintf(w, "Skipped           : %d\n", s.SkippedTotal())
	for _, reason := range s.SkipReasons() {
		fmt.Fprintf(w, "  %-22s: %d\n", reason, s.Skipped[reason])
	}
	if s.ImagesFailed > 0 {
		fmt.Fprintf(w, "Images failed     : %s%d%s\n", colorYellow, s.ImagesFailed, colorReset)
	}
	if len(s.Unmatched) > 0 {
		fmt.Fprintf(w, "Unmatched         : %s%d%s\n", colorRed, len(s.Unmatched), colorReset)
		for _, addr := range s.Unmatched {
			fmt.Fprintf(w, "  %s\n", addr)
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 80))
}

// groupLine is one row of a property list.
func groupLine(g match.Group, sections int) string {
	return fmt.Sprintf("%-40s | %-10s | %-28s | %d", g.PropertyAddress, g.Account.AccountNum, g.Account.OwnerName, sections)
}

// printMatch lists matched properties and what was skipped.
func printMatch(w io.Writer, res *match.Result) {
	fmt.Fprintf(w, "%s: %d reports scanned, %d properties matched\n", res.District.Name, res.ReportsScanned, len(res.Groups))
	for _, g := range res.Groups {
		fmt.Fprintln(w, groupLine(g, len(g.Violations)))
	}

	counts := make(map[match.SkipReason]int)
	for _, d := range res.Diagnostics {
		counts[d.Reason] += max(d.Violations, 1)
	}
	for _, reason := range []match.SkipReason{match.SkipUnmatched, match.SkipExcluded, match.SkipDuplicate} {
		if counts[reason] > 0 {
			fmt.Fprintf(w, "%-22s: %d\n", reason, counts[reason])
		}
	}
	if unmatched := res.Unmatched(); len(unmatched) > 0 {
		fmt.Fprintf(w, "%sNo roster entry for:%s\n", colorRed, colorReset)
		for _, addr := range unmatched {
			fmt.Fprintf(w, "  %s\n", addr)
		}
	}
}

// printNotice previews a notice's blocks as plain text.
func printNotice(w io.Writer, n pipeline.Notice) {
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, b := range n.Blocks {
		switch b := b.(type) {
		case *notice.Header:
			fmt.Fprintf(w, "%s  %s\n", b.Title, b.Date)
			fmt.Fprintf(w, "To                : %s\n", b.RecipientName)
			for _, l := range b.RecipientLines {
				fmt.Fprintf(w, "                    %s\n", l)
			}
			if b.Email != "" {
				fmt.Fprintf(w, "Email             : %s\n", b.Email)
			}
			fmt.Fprintf(w, "Property          : %s\n", b.PropertyAddress)
			fmt.Fprintf(w, "%s\n", b.Summary)
		case *notice.Section:
			fmt.Fprintln(w)
			fmt.Fprintf(w, "[%s] %s\n", b.Label, b.Heading)
			if b.HasImage() {
				fmt.Fprintf(w, "  photo %dx%d px (orientation %d)\n", b.Image.PixelWidth, b.Image.PixelHeight, b.Image.Orientation)
			} else {
				fmt.Fprintf(w, "  %s%s%s\n", colorYellow, b.Placeholder, colorReset)
			}
			if b.Notes != "" {
				fmt.Fprintf(w, "  notes: %s\n", b.Notes)
			}
		case *notice.Footer:
			fmt.Fprintln(w)
			fmt.Fprintf(w, "%s %s\n", b.Closing, b.Signature)
		}
	}
	fmt.Fprintln(w, strings.Repeat("-", 80))
}
