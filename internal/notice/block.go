package notice

import (
	"time"

	"covenants/internal/photo"
	"covenants/internal/types"
)

// Kind tags a Block for renderers.
type Kind int

const (
	KindHeader Kind = iota
	KindViolation
	KindFooter
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindViolation:
		return "violation"
	case KindFooter:
		return "footer"
	default:
		return "unknown"
	}
}

// Block is one ordered piece of a notice: a *Header, *Section or *Footer.
type Block interface {
	Kind() Kind
}

// Header opens the notice once per property.
type Header struct {
	District        types.District
	Title           string
	Date            string
	Issued          time.Time
	RecipientName   string
	RecipientLines  []string
	Email           string
	PropertyAddress string
	Summary         string
	Intro           string
}

// Section is one violation with its regulation and photo. PageBreak is set
// on every section after the first.
type Section struct {
	Number        int
	Label         string
	PageBreak     bool
	ViolationID   int64
	ViolationType string
	Heading       string
	Description   string
	Notes         string
	Image         *photo.Prepared
	Placeholder   string
	Caption       string
}

// HasImage reports whether a prepared photo is attached.
func (s *Section) HasImage() bool { return s.Image != nil }

// Footer closes the notice.
type Footer struct {
	Remedy    string
	Thanks    string
	Closing   string
	Signature string
}

func (*Header) Kind() Kind  { return KindHeader }
func (*Section) Kind() Kind { return KindViolation }
func (*Footer) Kind() Kind  { return KindFooter }
