package utils

import (
	"fmt"
	"time"
)

// FormatSchedule renders a booking time for chat and notification text.
func FormatSchedule(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}

// FormatAmount renders a payment amount with two decimals.
func FormatAmount(amount float64) string {
	return fmt.Sprintf("%.2f", amount)
}
