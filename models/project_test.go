package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProjectDuration(t *testing.T) {
	p := Project{
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 30, p.Duration())

	// End before start never goes negative.
	p.EndDate = p.StartDate.Add(-48 * time.Hour)
	assert.Equal(t, 0, p.Duration())
}

func TestValidRole(t *testing.T) {
	assert.True(t, ValidRole(RoleUser))
	assert.True(t, ValidRole(RoleManager))
	assert.True(t, ValidRole(RoleAdmin))
	assert.False(t, ValidRole("superadmin"))
}
