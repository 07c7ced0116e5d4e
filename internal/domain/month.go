package domain

import "time"

// MonthStart returns midnight UTC on the first day of t's month.
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// AddMonths moves n calendar months from the start of t's month.
func AddMonths(t time.Time, n int) time.Time {
	return MonthStart(t).AddDate(0, n, 0)
}

// MonthsBetween is the number of month steps from a to b (negative when b is earlier).
func MonthsBetween(a, b time.Time) int {
	a, b = MonthStart(a), MonthStart(b)
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}

// MonthRange lists the first day of every month in [start, end].
func MonthRange(start, end time.Time) []time.Time {
	n := MonthsBetween(start, end)
	if n < 0 {
		return nil
	}

	months := make([]time.Time, 0, n+1)
	for i := 0; i <= n; i++ {
		months = append(months, AddMonths(start, i))
	}
	return months
}

// MonthKey formats a month as YYYY-MM.
func MonthKey(t time.Time) string {
	return MonthStart(t).Format("2006-01")
}

// ParseMonth accepts YYYY-MM or YYYY-MM-DD and returns the start of that month.
func ParseMonth(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01", s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, err
	}
	return MonthStart(t), nil
}
