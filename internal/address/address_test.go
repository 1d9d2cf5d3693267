package address

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
		{"suffix punctuation and case", "123 Main Street.", "123 main st"},
		{"already short", "123 main st", "123 main st"},
		{"commas and runs of spaces", " 456  Oak Drive, ", "456 oak dr"},
		{"abbreviated with period", "456 Oak Dr.", "456 oak dr"},
		{"suffix before unit", "789 Elm Drive Unit 2", "789 elm dr unit 2"},
		{"avenue", "10 Pine Avenue", "10 pine ave"},
		{"parkway", "5 Sky Parkway", "5 sky pkwy"},
		{"broadway untouched", "1 Broadway", "1 broadway"},
		{"embedded suffix rewritten", "12 Fairlane", "12 fairln"},
		{"two suffixes", "3 Court Street", "3 ct st"},
		{"place", "44 Park Place", "44 park pl"},
		{"terrace and circle", "9 Circle Terrace", "9 cir ter"},
		{"rewrite exposes earlier suffix", "1 Boulevaroad", "1 blvd"},
		{"exposed suffix before unit", "7 Boulevaroad Unit 2", "7 blvd unit 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeSuffixInvariance(t *testing.T) {
	assert.Equal(t, Normalize("123 main st"), Normalize("123 Main Street."))
	assert.Equal(t, Normalize("456 Oak Dr."), Normalize("456 Oak Drive"))
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"123 Main Street.",
		"789 Elm Drive Unit 2",
		"1 Broadway",
		"44 Park Place, Apt. 3",
		"  5 SKY   PARKWAY ",
		"12 Fairlane",
		"3 Court Street",
		"1 Boulevaroad",
		"7 Boulevaroad Unit 2",
		"2 Streetroad Lane",
		"",
	}
	for _, in := range inputs {
		once := Normalize(in)
		assert.Equal(t, once, Normalize(once), "input %q", in)
	}
}
