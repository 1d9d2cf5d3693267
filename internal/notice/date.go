package notice

import (
	"fmt"
	"time"
)

// FormatDate renders t as "May 20th, 2025".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s %d%s, %d", t.Month(), t.Day(), OrdinalSuffix(t.Day()), t.Year())
}

// OrdinalSuffix returns the English suffix for a day of the month.
func OrdinalSuffix(day int) string {
	if day%100 >= 11 && day%100 <= 13 {
		return "th"
	}
	switch day % 10 {
	case 1:
		return "st"
	case 2:
		return "nd"
	case 3:
		return "rd"
	default:
		return "th"
	}
}
