package repository

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/campus-ledger/internal/store"
)

// TimestampLayout is the fixed width UTC layout timestamps are persisted in.
// Lexicographic order of the encoded strings matches chronological order.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// FormatTime encodes t for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

func parseTime(doc store.Document, key string) (time.Time, error) {
	raw := doc.String(key)
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing %s", key)
	}
	t, err := time.Parse(TimestampLayout, raw)
	if err != nil {
		// tolerate documents written by other tools in plain RFC3339
		t, err = time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid %s %q", key, raw)
		}
	}
	return t.UTC(), nil
}

func optionalTime(doc store.Document, key string) (*time.Time, error) {
	if doc.String(key) == "" {
		return nil, nil
	}
	t, err := parseTime(doc, key)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseDecimal(doc store.Document, key string) (decimal.Decimal, error) {
	switch v := doc[key].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid %s %q", key, v)
		}
		return d, nil
	case float64:
		return decimal.NewFromFloat(v), nil
	case int64:
		return decimal.NewFromInt(v), nil
	case int32:
		return decimal.NewFromInt32(v), nil
	case int:
		return decimal.NewFromInt(int64(v)), nil
	case nil:
		return decimal.Zero, fmt.Errorf("missing %s", key)
	default:
		return decimal.Zero, fmt.Errorf("unsupported %s type %T", key, v)
	}
}

func optionalString(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
