package kpi

import "time"

// DateRangeFor picks the metrics window for a KPI period, ending today.
// Custom periods use their own bounds when set.
func DateRangeFor(period Period, now time.Time, defaultDays int) DateRange {
	if defaultDays <= 0 {
		defaultDays = 30
	}
	today := truncateDay(now)

	days := defaultDays
	switch period.Type {
	case PeriodDaily:
		days = 1
	case PeriodWeekly:
		days = 7
	case PeriodMonthly:
		days = 30
	case PeriodQuarterly:
		days = 90
	case PeriodYearly:
		days = 365
	case PeriodCustom:
		if period.Start != nil {
			end := today
			if period.End != nil && period.End.Before(today) {
				end = truncateDay(*period.End)
			}
			return DateRange{Start: truncateDay(*period.Start), End: end}
		}
	}

	return DateRange{Start: today.AddDate(0, 0, -(days - 1)), End: today}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
