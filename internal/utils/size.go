package utils

import (
	"strconv"
	"strings"
)

const sizeStep = 1024

var sizeUnits = [...]string{"b", "kb", "mb", "gb", "tb", "pb"}

// FormatFileSize renders a document size for the run report, for example "512b", "1.5kb" or "10mb".
// Values under ten keep one decimal place; negative sizes render as "0b".
func FormatFileSize(bytes int64) string {
	if bytes < sizeStep {
		return strconv.FormatInt(max(bytes, 0), 10) + sizeUnits[0]
	}
	scaled := float64(bytes)
	unit := 0
	for scaled >= sizeStep && unit < len(sizeUnits)-1 {
		scaled /= sizeStep
		unit++
	}
	precision := 0
	if scaled < 10 {
		precision = 1
	}
	formatted := strings.TrimSuffix(strconv.FormatFloat(scaled, 'f', precision, 64), ".0")
	return formatted + sizeUnits[unit]
}
