package sheet

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// serialEpoch is day 2 of the 1900 date system. Serial 2 maps here, so the
// engine's phantom 1900-02-29 is absorbed for every date after it.
var serialEpoch = time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)

// maxSerial is 9999-12-31.
const maxSerial = 2958465

var textLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-1-2",
	"2006/1/2 15:04:05",
	"2006/1/2 15:04",
	"2006/1/2",
	"2006.1.2",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Mon Jan 2 2006",
	"Mon, 02 Jan 2006 15:04:05 MST",
	"2006年1月2日",
	"2006年1月2日 15:04",
}

// ParseDate converts a cell into a timestamp. The second result is false
// when the cell holds no usable date.
func ParseDate(c Cell) (time.Time, bool) {
	switch c.Kind() {
	case KindDate:
		return c.Time(), true
	case KindNumber:
		return FromSerial(c.Float())
	case KindText:
		return parseDateText(c.RawText())
	default:
		return time.Time{}, false
	}
}

// FromSerial converts a 1900-system day serial; the fraction is the time of day.
func FromSerial(serial float64) (time.Time, bool) {
	if serial == 0 || math.IsNaN(serial) || math.IsInf(serial, 0) || math.Abs(serial) > maxSerial {
		return time.Time{}, false
	}
	days := math.Floor(serial)
	frac := serial - days
	t := serialEpoch.AddDate(0, 0, int(days)-2)
	ms := math.Round(frac * float64(24*time.Hour/time.Millisecond))
	return t.Add(time.Duration(ms) * time.Millisecond), true
}

func parseDateText(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return FromSerial(f)
	}
	for _, layout := range textLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
