package storefront

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// wireTimestampLayout matches what browsers produce with Date.toISOString.
const wireTimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Zone-less layouts are how the storefront serializes LocalDateTime values.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// StatusSnapshot mirrors GET /api/sync/order/{id}/status.
type StatusSnapshot struct {
	OrderID      string    `json:"-"`
	Status       string    `json:"status"`
	DisplayName  string    `json:"displayName"`
	LastUpdated  Timestamp `json:"lastUpdated"`
	IsConsistent bool      `json:"isConsistent"`
	Timestamp    Timestamp `json:"timestamp"`
}

// ConflictRequest is the client's belief about an order's status.
type ConflictRequest struct {
	ClientStatus    string    `json:"clientStatus"`
	ClientTimestamp Timestamp `json:"clientTimestamp"`
}

// ConflictResolution mirrors POST /api/sync/order/{id}/resolve-conflict.
type ConflictResolution struct {
	OrderID        string    `json:"-"`
	ResolvedStatus string    `json:"resolvedStatus"`
	DisplayName    string    `json:"displayName"`
	ClientStatus   string    `json:"clientStatus"`
	WasConflict    bool      `json:"wasConflict"`
	Timestamp      Timestamp `json:"timestamp"`
}

// ConsistencyReport mirrors GET /api/sync/order/{id}/validate.
type ConsistencyReport struct {
	OrderID       string    `json:"-"`
	IsConsistent  bool      `json:"isConsistent"`
	CurrentStatus string    `json:"currentStatus"`
	LastUpdated   Timestamp `json:"lastUpdated"`
	Timestamp     Timestamp `json:"timestamp"`
}

// FixReport mirrors POST /api/sync/order/{id}/fix.
type FixReport struct {
	OrderID       string    `json:"-"`
	Fixed         bool      `json:"fixed"`
	CurrentStatus string    `json:"currentStatus"`
	IsConsistent  bool      `json:"isConsistent"`
	Timestamp     Timestamp `json:"timestamp"`
}

// BulkSyncReport mirrors POST /api/sync/bulk-sync.
type BulkSyncReport struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp Timestamp `json:"timestamp"`
}

// HealthReport mirrors GET /api/sync/health.
type HealthReport struct {
	Service   string    `json:"service"`
	Status    string    `json:"status"`
	Timestamp Timestamp `json:"timestamp"`
}

// Healthy reports whether the sync service described itself as healthy.
func (h HealthReport) Healthy() bool {
	return strings.EqualFold(strings.TrimSpace(h.Status), "healthy")
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Timestamp decodes the date-time shapes the storefront emits and encodes
// as ISO-8601 UTC with millisecond precision.
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(wireTimestampLayout))
}

// UnmarshalJSON implements json.Unmarshaler. It accepts RFC 3339 strings,
// zone-less local date-times, null, and the array form
// [year, month, day, hour, minute, second, nanos].
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	if trimmed[0] == '[' {
		var parts []int
		if err := json.Unmarshal(trimmed, &parts); err != nil {
			return fmt.Errorf("parse timestamp array: %w", err)
		}
		parsed, err := fromParts(parts)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}
	var raw string
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return fmt.Errorf("parse timestamp: %w", err)
	}
	parsed, err := ParseTime(raw)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// ParseTime parses a storefront timestamp string. Empty input yields the
// zero time.
func ParseTime(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q: unrecognized format", value)
}

// FormatTime renders t the way request bodies carry it.
func FormatTime(t time.Time) string {
	return t.UTC().Format(wireTimestampLayout)
}

func fromParts(parts []int) (time.Time, error) {
	if len(parts) < 3 {
		return time.Time{}, fmt.Errorf("parse timestamp array: need at least 3 fields, got %d", len(parts))
	}
	fields := make([]int, 7)
	copy(fields, parts)
	month := fields[1]
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("parse timestamp array: month %d out of range", month)
	}
	return time.Date(fields[0], time.Month(month), fields[2], fields[3], fields[4], fields[5], fields[6], time.Local), nil
}
