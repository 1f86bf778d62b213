package store

import (
	"fmt"
	"time"

	"MarketConcierge/internal/model"
)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	model.DateLayout,
}

// dbTime scans DATE, TIMESTAMP and text columns into a time.Time.
type dbTime struct{ t *time.Time }

func (d dbTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d.t = time.Time{}
		return nil
	case time.Time:
		*d.t = v
		return nil
	case string:
		return d.parse(v)
	case []byte:
		return d.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
}

func (d dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*d.t = t
			return nil
		}
	}
	return fmt.Errorf("unrecognised time %q", s)
}

func dateValue(t time.Time) string { return t.Format(model.DateLayout) }

func timeValue(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }
