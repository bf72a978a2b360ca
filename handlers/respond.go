package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
)

// Response is the envelope every endpoint returns.
type Response struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message,omitempty"`
	Data        interface{}  `json:"data,omitempty"`
	Errors      []FieldError `json:"errors,omitempty"`
	Count       *int         `json:"count,omitempty"`
	Total       *int64       `json:"total,omitempty"`
	Pages       *int64       `json:"pages,omitempty"`
	CurrentPage *int64       `json:"currentPage,omitempty"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func respondOK(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusOK, Response{Success: true, Message: message, Data: data})
}

func respondCreated(w http.ResponseWriter, message string, data interface{}) {
	writeJSON(w, http.StatusCreated, Response{Success: true, Message: message, Data: data})
}

// respondPage shapes a list response; count/total/pages reflect the
// query after the access-scope filter, never the raw collection.
func respondPage(w http.ResponseWriter, data interface{}, count int, total, page, limit int64) {
	pages := int64(0)
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	writeJSON(w, http.StatusOK, Response{
		Success:     true,
		Data:        data,
		Count:       &count,
		Total:       &total,
		Pages:       &pages,
		CurrentPage: &page,
	})
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, Response{Success: false, Message: message})
}

func respondValidation(w http.ResponseWriter, errs []FieldError) {
	writeJSON(w, http.StatusBadRequest, Response{
		Success: false,
		Message: "Validation failed",
		Errors:  errs,
	})
}

func respondNotFound(w http.ResponseWriter, message string) {
	respondError(w, http.StatusNotFound, message)
}

func respondForbidden(w http.ResponseWriter, message string) {
	respondError(w, http.StatusForbidden, message)
}

// respondServerError logs the real cause and returns a generic message
// so internal detail never reaches the client.
func respondServerError(w http.ResponseWriter, op string, err error) {
	log.Printf("%s: %v", op, err)
	respondError(w, http.StatusInternalServerError, "Server error")
}

// parsePagination reads page/limit query params with the defaults the
// API documents (page 1, 10 per page, capped at 100).
func parsePagination(r *http.Request) (page, limit int64) {
	page, limit = 1, 10
	if v := r.URL.Query().Get("page"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			page = n
		}
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 100 {
		limit = 100
	}
	return page, limit
}
