package logtail

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"
)

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	return ReadFunc(path, maxLines, nil)
}

// ReadFunc is Read restricted to lines keep accepts. A nil keep accepts
// every line.
func ReadFunc(path string, maxLines int, keep func(string) bool) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var ring []string
	if maxLines > 0 {
		ring = make([]string, maxLines)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	idx := 0
	for scanner.Scan() {
		line := scanner.Text()
		if keep != nil && !keep(line) {
			continue
		}
		if maxLines <= 0 {
			ring = append(ring, line)
			count++
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if maxLines <= 0 || count < maxLines {
		return slices.Clone(ring[:count]), nil
	}
	lines := make([]string, count)
	for i := 0; i < count; i++ {
		lines[i] = ring[(idx+i)%maxLines]
	}
	return lines, nil
}

// ForOrder returns a line filter matching JSON log lines tagged with
// orderID.
func ForOrder(orderID string) func(string) bool {
	quoted, _ := json.Marshal(orderID)
	needle := `"order_id":` + string(quoted)
	return func(line string) bool {
		return strings.Contains(line, needle)
	}
}

// Entry is one parsed JSON log line.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	OrderID string
	Fields  map[string]any
	Raw     string
}

// Structured reports whether the line parsed as a JSON log record.
func (e Entry) Structured() bool {
	return e.Level != "" || e.Message != ""
}

const isoLayout = "2006-01-02T15:04:05.000Z0700"

// Parse decodes a JSON log line. Lines that are not JSON come back with only
// Raw set.
func Parse(line string) Entry {
	e := Entry{Raw: line}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		return e
	}
	for k, v := range rec {
		switch k {
		case "ts":
			e.Time = parseTime(v)
		case "level":
			e.Level, _ = v.(string)
		case "msg":
			e.Message, _ = v.(string)
		case "order_id":
			e.OrderID, _ = v.(string)
		case "caller", "logger", "stacktrace":
		default:
			if e.Fields == nil {
				e.Fields = make(map[string]any)
			}
			e.Fields[k] = v
		}
	}
	return e
}

// Format renders e on one line: time, level, order, message, then the
// remaining fields sorted by key.
func Format(e Entry) string {
	if !e.Structured() {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.Local().Format("15:04:05"))
		b.WriteByte(' ')
	}
	fmt.Fprintf(&b, "%-5s", strings.ToUpper(e.Level))
	if e.OrderID != "" {
		fmt.Fprintf(&b, " #%s", e.OrderID)
	}
	b.WriteString(" ")
	b.WriteString(e.Message)

	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Fields[k])
	}
	return b.String()
}

func parseTime(v any) time.Time {
	switch ts := v.(type) {
	case string:
		if t, err := time.Parse(isoLayout, ts); err == nil {
			return t
		}
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			return t
		}
	case float64:
		sec := int64(ts)
		return time.Unix(sec, int64((ts-float64(sec))*1e9))
	}
	return time.Time{}
}
