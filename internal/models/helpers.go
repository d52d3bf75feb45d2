package models

import "time"

// ClampOwnershipChange applies MaxOwnershipChangePct; nil stays nil.
func ClampOwnershipChange(v *float64) *float64 {
	if v == nil || *v <= MaxOwnershipChangePct {
		return v
	}
	c := MaxOwnershipChangePct
	return &c
}

// DayUTC truncates t to midnight UTC.
func DayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysSince returns whole days between d and the UTC-midnight anchor of now,
// floored at zero. nil in, nil out.
func DaysSince(d *time.Time, now time.Time) *int {
	if d == nil {
		return nil
	}
	days := int(DayUTC(now).Sub(DayUTC(*d)).Hours() / 24)
	if days < 0 {
		days = 0
	}
	return &days
}

// PriceDiffPct returns (current-trade)/trade, or nil when either side is
// missing or the trade price is not positive.
func PriceDiffPct(current, trade *float64) *float64 {
	if current == nil || trade == nil || *trade <= 0 {
		return nil
	}
	d := (*current - *trade) / *trade
	return &d
}

func Ptr[T any](v T) *T { return &v }
