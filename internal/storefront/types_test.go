package storefront

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestTimestamp_UnmarshalFormats(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339 utc", `"2024-05-01T10:20:30Z"`, time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)},
		{"rfc3339 millis", `"2024-05-01T10:20:30.123Z"`, time.Date(2024, 5, 1, 10, 20, 30, 123000000, time.UTC)},
		{"rfc3339 offset", `"2024-05-01T17:20:30+07:00"`, time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)},
		{"local date time", `"2024-05-01T10:20:30.5"`, time.Date(2024, 5, 1, 10, 20, 30, 500000000, time.Local)},
		{"local no fraction", `"2024-05-01T10:20:30"`, time.Date(2024, 5, 1, 10, 20, 30, 0, time.Local)},
		{"space separated", `"2024-05-01 10:20:30"`, time.Date(2024, 5, 1, 10, 20, 30, 0, time.Local)},
		{"array", `[2024,5,1,10,20,30,7]`, time.Date(2024, 5, 1, 10, 20, 30, 7, time.Local)},
		{"short array", `[2024,5,1]`, time.Date(2024, 5, 1, 0, 0, 0, 0, time.Local)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.raw), &ts); err != nil {
				t.Fatalf("Unmarshal(%s) error: %v", tt.raw, err)
			}
			if !ts.Equal(tt.want) {
				t.Fatalf("Unmarshal(%s) = %v, want %v", tt.raw, ts.Time, tt.want)
			}
		})
	}
}

func TestTimestamp_NullAndEmpty(t *testing.T) {
	var snap StatusSnapshot
	if err := json.Unmarshal([]byte(`{"status":"PENDING","lastUpdated":null,"timestamp":""}`), &snap); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if !snap.LastUpdated.IsZero() || !snap.Timestamp.IsZero() {
		t.Fatalf("expected zero timestamps, got %v / %v", snap.LastUpdated, snap.Timestamp)
	}
}

func TestTimestamp_RejectsGarbage(t *testing.T) {
	for _, raw := range []string{`"yesterday"`, `[2024]`, `[2024,13,1]`, `true`} {
		var ts Timestamp
		if err := json.Unmarshal([]byte(raw), &ts); err == nil {
			t.Errorf("Unmarshal(%s) returned nil error", raw)
		}
	}
}

func TestTimestamp_MarshalUsesUTCMillis(t *testing.T) {
	loc := time.FixedZone("ICT", 7*3600)
	ts := NewTimestamp(time.Date(2024, 5, 1, 17, 20, 30, 123456789, loc))
	out, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	if string(out) != `"2024-05-01T10:20:30.123Z"` {
		t.Fatalf("Marshal = %s, want \"2024-05-01T10:20:30.123Z\"", out)
	}

	out, err = json.Marshal(Timestamp{})
	if err != nil {
		t.Fatalf("Marshal zero error: %v", err)
	}
	if string(out) != "null" {
		t.Fatalf("Marshal zero = %s, want null", out)
	}
}

func TestConflictRequest_WireShape(t *testing.T) {
	req := ConflictRequest{
		ClientStatus:    "PENDING",
		ClientTimestamp: NewTimestamp(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
	}
	out, err := json.Marshal(req)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}
	want := `{"clientStatus":"PENDING","clientTimestamp":"2024-01-02T03:04:05.000Z"}`
	if string(out) != want {
		t.Fatalf("Marshal = %s, want %s", out, want)
	}
}

func TestHealthReport_Healthy(t *testing.T) {
	if !(HealthReport{Status: " Healthy "}).Healthy() {
		t.Fatalf("Healthy() = false for Healthy")
	}
	if (HealthReport{Status: "degraded"}).Healthy() {
		t.Fatalf("Healthy() = true for degraded")
	}
}

func TestParseTime_ErrorMentionsValue(t *testing.T) {
	_, err := ParseTime("31/12/2024")
	if err == nil || !strings.Contains(err.Error(), "31/12/2024") {
		t.Fatalf("ParseTime error = %v, want it to mention the input", err)
	}
}
