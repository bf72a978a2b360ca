package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentFileSizeFormatted(t *testing.T) {
	doc := Document{File: FileInfo{Size: 1572864}}
	assert.Equal(t, "1.50 MB", doc.FileSizeFormatted())
}

func TestDocumentDaysSinceUpload(t *testing.T) {
	created := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	doc := Document{CreatedAt: created}

	// Floor semantics: a partial day counts as zero.
	assert.Equal(t, 0, doc.DaysSinceUpload(created.Add(23*time.Hour)))
	assert.Equal(t, 1, doc.DaysSinceUpload(created.Add(24*time.Hour)))
	assert.Equal(t, 1, doc.DaysSinceUpload(created.Add(47*time.Hour)))
	assert.Equal(t, 0, doc.DaysSinceUpload(created.Add(-time.Hour)))
}
