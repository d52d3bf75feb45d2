package reconcile

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/bighogz/insider-signal/internal/models"
)

var (
	floatStrip  = strings.NewReplacer("$", "", ",", "", "+", "", "%", "", ">", "")
	intStrip    = strings.NewReplacer(",", "", "+", "", ">", "")
	blankTokens = map[string]bool{"": true, "-": true, "New": true, "nan": true, "NaN": true, "null": true}
	tickerStrip = regexp.MustCompile(`[^A-Z.\-]`)
	spaces      = regexp.MustCompile(`\s+`)
)

// CleanText collapses runs of whitespace and trims.
func CleanText(s string) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s, " "))
}

// CleanTicker upper-cases and keeps only letters, dots and dashes.
func CleanTicker(s string) string {
	return tickerStrip.ReplaceAllString(strings.ToUpper(s), "")
}

// ParseFloat reads listing-style numbers such as "$1,234.50", "+12%" or
// ">999%". ok is false only for text that is present but not a number;
// blanks, "-" and "New" are missing without complaint.
func ParseFloat(s string) (v *float64, ok bool) {
	t := strings.TrimSpace(floatStrip.Replace(s))
	if blankTokens[t] {
		return nil, true
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || math.IsNaN(f) {
		return nil, false
	}
	return &f, true
}

// ParseInt reads "1,000", "+250" or ">100". A decimal such as "3.0" is
// accepted when it is integral.
func ParseInt(s string) (v *int64, ok bool) {
	t := strings.TrimSpace(intStrip.Replace(s))
	if blankTokens[t] {
		return nil, true
	}
	if n, err := strconv.ParseInt(t, 10, 64); err == nil {
		return &n, true
	}
	f, err := strconv.ParseFloat(t, 64)
	if err != nil || !integral(f) {
		return nil, false
	}
	n := int64(f)
	return &n, true
}

// integral reports whether f is a whole number that fits in an int64.
// float64(math.MaxInt64) rounds up to 2^63, which is itself out of range.
func integral(f float64) bool {
	return f == math.Trunc(f) && f >= math.MinInt64 && f < math.MaxInt64
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"}

// ParseDate keeps day granularity: the first ten characters are read as
// YYYY-MM-DD, falling back to full timestamps. The result is UTC midnight.
func ParseDate(s string) (v *time.Time, ok bool) {
	t := strings.TrimSpace(s)
	if blankTokens[t] || t == "NaT" {
		return nil, true
	}
	if len(t) >= 10 {
		if d, err := time.Parse("2006-01-02", t[:10]); err == nil {
			return &d, true
		}
	}
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, t); err == nil {
			day := models.DayUTC(d)
			return &day, true
		}
	}
	return nil, false
}

// decoder coerces loosely typed cells, collecting a warning for every
// present-but-unreadable value.
type decoder struct {
	row      int
	warnings []models.CoercionWarning
}

func (d *decoder) warn(col string, v any) {
	d.warnings = append(d.warnings, models.CoercionWarning{Row: d.row, Column: col, Value: fmt.Sprint(v)})
}

func (d *decoder) floatCell(col string, v any) *float64 {
	switch x := v.(type) {
	case nil:
		return nil
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		return &x
	case float32:
		f := float64(x)
		return d.floatCell(col, f)
	case int:
		f := float64(x)
		return &f
	case int64:
		f := float64(x)
		return &f
	case json.Number:
		return d.floatCell(col, x.String())
	case string:
		f, ok := ParseFloat(x)
		if !ok {
			d.warn(col, x)
		}
		return f
	default:
		d.warn(col, v)
		return nil
	}
}

func (d *decoder) int64Cell(col string, v any) *int64 {
	switch x := v.(type) {
	case nil:
		return nil
	case int:
		n := int64(x)
		return &n
	case int64:
		return &x
	case float64:
		if math.IsNaN(x) {
			return nil
		}
		if !integral(x) {
			d.warn(col, x)
			return nil
		}
		n := int64(x)
		return &n
	case json.Number:
		return d.int64Cell(col, x.String())
	case string:
		n, ok := ParseInt(x)
		if !ok {
			d.warn(col, x)
		}
		return n
	default:
		d.warn(col, v)
		return nil
	}
}

func (d *decoder) intCell(col string, v any) *int {
	n := d.int64Cell(col, v)
	if n == nil {
		return nil
	}
	i := int(*n)
	return &i
}

func (d *decoder) dateCell(col string, v any) *time.Time {
	switch x := v.(type) {
	case nil:
		return nil
	case time.Time:
		if x.IsZero() {
			return nil
		}
		day := models.DayUTC(x)
		return &day
	case *time.Time:
		if x == nil {
			return nil
		}
		return d.dateCell(col, *x)
	case string:
		t, ok := ParseDate(x)
		if !ok {
			d.warn(col, x)
		}
		return t
	default:
		d.warn(col, v)
		return nil
	}
}

func (d *decoder) textCell(v any) *string {
	var s string
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		s = CleanText(x)
	default:
		s = CleanText(fmt.Sprint(x))
	}
	if s == "" {
		return nil
	}
	return &s
}
