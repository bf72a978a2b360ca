package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name      string
		query     string
		wantPage  int64
		wantLimit int64
	}{
		{"defaults", "", 1, 10},
		{"explicit", "page=3&limit=25", 3, 25},
		{"limit capped at 100", "limit=500", 1, 100},
		{"zero page falls back", "page=0", 1, 10},
		{"negative values fall back", "page=-2&limit=-5", 1, 10},
		{"non-numeric falls back", "page=abc&limit=xyz", 1, 10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/projects?"+tt.query, nil)
			page, limit := parsePagination(r)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantLimit, limit)
		})
	}
}

func TestRespondPage(t *testing.T) {
	w := httptest.NewRecorder()
	respondPage(w, []string{"a", "b"}, 2, 21, 1, 10)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp struct {
		Success     bool     `json:"success"`
		Data        []string `json:"data"`
		Count       int      `json:"count"`
		Total       int64    `json:"total"`
		Pages       int64    `json:"pages"`
		CurrentPage int64    `json:"currentPage"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, []string{"a", "b"}, resp.Data)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, int64(21), resp.Total)
	assert.Equal(t, int64(3), resp.Pages)
	assert.Equal(t, int64(1), resp.CurrentPage)
}

func TestRespondValidation(t *testing.T) {
	w := httptest.NewRecorder()
	respondValidation(w, []FieldError{{Field: "name", Message: "Name is required"}})

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Validation failed", resp.Message)
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "name", resp.Errors[0].Field)
}

func TestRespondErrorStatuses(t *testing.T) {
	w := httptest.NewRecorder()
	respondNotFound(w, "Project not found")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	respondForbidden(w, "Not authorized to access this project")
	assert.Equal(t, http.StatusForbidden, w.Code)

	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Equal(t, "Not authorized to access this project", resp.Message)
}
