package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Timestamps are stored as RFC 3339 text in UTC; date-only values as YYYY-MM-DD.
const dateLayout = "2006-01-02"

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(column, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse %s: %w", column, err)
	}
	return t, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(column string, value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(column, value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intFromNull(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func stringFromNull(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// encodeJSON marshals slices and maps into a TEXT column, storing nil as an
// empty collection literal.
func encodeJSON(value any, empty string) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	if string(data) == "null" {
		return empty, nil
	}
	return string(data), nil
}

func decodeJSON(column, raw string, target any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return fmt.Errorf("failed to decode %s: %w", column, err)
	}
	return nil
}

func encodeDates(dates []time.Time) (string, error) {
	values := make([]string, 0, len(dates))
	for _, d := range dates {
		values = append(values, d.Format(dateLayout))
	}
	return encodeJSON(values, "[]")
}

// decodeDates returns each stored date as midnight UTC.
func decodeDates(column, raw string) ([]time.Time, error) {
	var values []string
	if err := decodeJSON(column, raw, &values); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	dates := make([]time.Time, 0, len(values))
	for _, v := range values {
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", column, err)
		}
		dates = append(dates, d)
	}
	return dates, nil
}

func encodeWeekdays(days []time.Weekday) (string, error) {
	values := make([]int, 0, len(days))
	for _, day := range days {
		if day >= time.Sunday && day <= time.Saturday {
			values = append(values, int(day))
		}
	}
	return encodeJSON(values, "[]")
}

// decodeWeekdays keeps the stored order; the first entry drives Nth weekday rules.
func decodeWeekdays(column, raw string) ([]time.Weekday, error) {
	var values []int
	if err := decodeJSON(column, raw, &values); err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, nil
	}
	days := make([]time.Weekday, 0, len(values))
	for _, v := range values {
		days = append(days, time.Weekday(v))
	}
	return days, nil
}
