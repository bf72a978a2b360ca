package models

import (
	"fmt"
	"math"
	"time"
)

const day = 24 * time.Hour

// ceilDays returns the whole days between from and to, rounded up.
// Returns 0 when to is not after from.
func ceilDays(from, to time.Time) int {
	if !to.After(from) {
		return 0
	}
	return int(math.Ceil(float64(to.Sub(from)) / float64(day)))
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders bytes in the largest unit with a mantissa
// under 1024, two-decimal precision ("1.50 MB").
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(bytes)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	return fmt.Sprintf("%.2f %s", float64(bytes)/math.Pow(1024, float64(i)), sizeUnits[i])
}
