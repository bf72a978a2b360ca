package handlers

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fieldErrors accumulates field-level validation failures before any
// persistence happens.
type fieldErrors []FieldError

func (fe *fieldErrors) add(field, message string) {
	*fe = append(*fe, FieldError{Field: field, Message: message})
}

func (fe *fieldErrors) require(field, value, message string) {
	if strings.TrimSpace(value) == "" {
		fe.add(field, message)
	}
}

func (fe *fieldErrors) oneOf(field, value string, set []string) {
	for _, s := range set {
		if s == value {
			return
		}
	}
	fe.add(field, "invalid value "+value)
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.000Z"}

// parseDate accepts calendar dates and full RFC3339 timestamps.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func (fe *fieldErrors) date(field, value, message string) time.Time {
	t, ok := parseDate(value)
	if !ok {
		fe.add(field, message)
	}
	return t
}

func (fe *fieldErrors) objectID(field, value, message string) primitive.ObjectID {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(value))
	if err != nil {
		fe.add(field, message)
	}
	return id
}

func (fe *fieldErrors) progress(field string, value int) {
	if value < 0 {
		fe.add(field, "progress cannot be negative")
	}
	if value > 100 {
		fe.add(field, "progress cannot exceed 100")
	}
}

func (fe *fieldErrors) nonNegative(field string, value float64, message string) {
	if value < 0 {
		fe.add(field, message)
	}
}

// splitTags turns a comma-separated form value into trimmed tags.
func splitTags(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
