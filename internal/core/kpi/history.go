package kpi

import "time"

// HistoryLimit is the number of snapshots retained per KPI
const HistoryLimit = 100

// HistoryDateFormat is the calendar-day layout of HistoryEntry.Date
const HistoryDateFormat = "2006-01-02"

// NewHistoryEntry snapshots an evaluation at the given time
func NewHistoryEntry(eval Evaluation, at time.Time) HistoryEntry {
	return HistoryEntry{
		Date:      at.Format(HistoryDateFormat),
		Value:     eval.Value,
		Progress:  eval.Progress,
		Status:    eval.Status,
		Timestamp: at,
	}
}

// AppendHistory returns a new slice with entry appended, keeping only the
// most recent HistoryLimit entries in chronological order. The input slice
// is not modified.
func AppendHistory(history []HistoryEntry, entry HistoryEntry) []HistoryEntry {
	start := 0
	if len(history)+1 > HistoryLimit {
		start = len(history) + 1 - HistoryLimit
	}

	kept := history[start:]
	out := make([]HistoryEntry, 0, len(kept)+1)
	out = append(out, kept...)
	return append(out, entry)
}
