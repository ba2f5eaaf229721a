package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const (
	DateFormat     = "2006-01-02"
	DateTimeFormat = "2006-01-02 15:04:05"
)

type RowError struct {
	Message string `json:"message"`
	Row     int    `json:"row"`
}

type BatchDeleteRequest struct {
	Ids []int64 `json:"ids"`
}

type RowResponseError struct {
	Message string     `json:"message"`
	Detail  []RowError `json:"detail"`
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type FieldResponseError struct {
	Message string       `json:"message"`
	Details []FieldError `json:"details"`
}

type DeleteResponse struct {
	Message string `json:"message"`
	Deleted int64  `json:"deleted"`
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	"2006-01-02 15:04:05.999999999",
	DateTimeFormat,
	DateFormat,
}

// NullTime scans timestamps from postgres (time.Time) as well as sqlite,
// which may hand back text.
type NullTime struct {
	Time  time.Time
	Valid bool
}

func (nt *NullTime) Scan(value interface{}) error {
	nt.Time, nt.Valid = time.Time{}, false

	var s string
	switch v := value.(type) {
	case nil:
		return nil
	case time.Time:
		nt.Time, nt.Valid = v, true
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into NullTime", value)
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			nt.Time, nt.Valid = t, true
			return nil
		}
	}

	return fmt.Errorf("cannot parse %q as time", s)
}

func (nt NullTime) Value() (driver.Value, error) {
	if !nt.Valid {
		return nil, nil
	}
	return nt.Time, nil
}

// Format renders the time in loc, or "" when null.
func (nt NullTime) Format(layout string, loc *time.Location) string {
	if !nt.Valid {
		return ""
	}
	if loc == nil {
		loc = time.UTC
	}
	return nt.Time.In(loc).Format(layout)
}
