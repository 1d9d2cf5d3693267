package types

import "time"

// District is a named tenant boundary owning a roster of accounts.
type District struct {
	Key          string
	Name         string
	AddressLine1 string
	AddressLine2 string
	Phone        string
}

// Account is a homeowner record from a district roster.
type Account struct {
	DistrictKey    string
	AccountNum     string
	OwnerName      string
	ServiceAddress string

	MailingAddress string
	MailingCity    string
	MailingState   string
	MailingZip     string

	LotNumber string
	Email     string
}

// MailingCityLine returns "City, ST 12345", skipping empty parts.
func (a Account) MailingCityLine() string {
	line := a.MailingCity
	if a.MailingState != "" {
		if line != "" {
			line += ", "
		}
		line += a.MailingState
	}
	if a.MailingZip != "" {
		if line != "" {
			line += " "
		}
		line += a.MailingZip
	}
	return line
}

// ViolationReport is one field submission for a single property.
type ViolationReport struct {
	ID           int64
	AddressLine1 string
	AddressLine2 string
	City         string
	State        string
	Zip          string
	DistrictKey  string
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Violations   []Violation
}

// Violation is a single observed covenant breach within a report.
type Violation struct {
	ID        int64
	ReportID  int64
	Type      string
	Notes     string
	CreatedAt time.Time
	Images    []ViolationImage
}

// ViolationImage points at a stored photo, either a local path or a URL.
type ViolationImage struct {
	ID               int64
	ViolationID      int64
	Filename         string
	OriginalFilename string
	Location         string
	Size             int64
	MimeType         string
	UploadedAt       time.Time
}

// Window restricts reports by update time. Zero bounds are open.
type Window struct {
	Since time.Time
	Until time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && !t.Before(w.Until) {
		return false
	}
	return true
}

// IsZero is true when neither bound is set.
func (w Window) IsZero() bool {
	return w.Since.IsZero() && w.Until.IsZero()
}
