package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatFileSize(t *testing.T) {
	tests := []struct {
		name  string
		bytes int64
		want  string
	}{
		{"zero", 0, "0 Bytes"},
		{"negative", -1, "0 Bytes"},
		{"bytes", 512, "512.00 Bytes"},
		{"one kilobyte", 1024, "1.00 KB"},
		{"fractional megabytes", 1572864, "1.50 MB"},
		{"gigabytes", 3 * 1024 * 1024 * 1024, "3.00 GB"},
		{"beyond largest unit stays in gigabytes", 2048 * 1024 * 1024 * 1024, "2048.00 GB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFileSize(tt.bytes))
		})
	}
}

func TestCeilDays(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, ceilDays(from, from))
	assert.Equal(t, 0, ceilDays(from, from.Add(-time.Hour)))
	assert.Equal(t, 1, ceilDays(from, from.Add(time.Hour)))
	assert.Equal(t, 1, ceilDays(from, from.Add(24*time.Hour)))
	assert.Equal(t, 2, ceilDays(from, from.Add(25*time.Hour)))
	assert.Equal(t, 30, ceilDays(from, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)))
}
