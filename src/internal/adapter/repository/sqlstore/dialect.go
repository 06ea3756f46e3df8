package sqlstore

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Dialect captures the differences between the SQL backends sharing AccountRepository.
type Dialect interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	// Rebind rewrites '?' placeholders into the backend's bind syntax.
	Rebind(query string) string
	// TimeValue encodes a timestamp argument.
	TimeValue(t time.Time) driver.Value
	// ClassifyError maps driver errors onto domain errors, returning err unchanged
	// when it carries no domain meaning.
	ClassifyError(err error) error
	// NumericBalance reports whether the balance column compares numerically in SQL.
	NumericBalance() bool
}

// RebindDollar turns '?' placeholders into $1, $2, ... .
func RebindDollar(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)

	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// timestamp scans both native timestamps and Unix-millisecond integers.
type timestamp struct {
	t time.Time
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		ts.t = v.UTC()
	case int64:
		ts.t = time.UnixMilli(v).UTC()
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
	return nil
}

func (ts *timestamp) parse(raw string) error {
	if millis, err := strconv.ParseInt(raw, 10, 64); err == nil {
		ts.t = time.UnixMilli(millis).UTC()
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("scan timestamp %q: %w", raw, err)
	}
	ts.t = parsed.UTC()
	return nil
}
