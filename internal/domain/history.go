package domain

import "time"

// HistoryPoint is one snapshot of the unified totals, appended once per run.
type HistoryPoint struct {
	Timestamp      time.Time    `json:"timestamp"`
	Totals         Contribution `json:"totals"`
	Primary        Contribution `json:"primary"`
	ReposProcessed int          `json:"repos_processed"`
}

// Growth is the change in totals across a window of history.
type Growth struct {
	Days       int          `json:"days"`
	DataPoints int          `json:"data_points"`
	From       time.Time    `json:"from"`
	To         time.Time    `json:"to"`
	Totals     Contribution `json:"totals"`
	Primary    Contribution `json:"primary"`
	Repos      int          `json:"repos"`
}

// PointFrom captures the current totals of u at the given time.
func PointFrom(u UnifiedStatistics, at time.Time) HistoryPoint {
	return HistoryPoint{
		Timestamp:      at.UTC(),
		Totals:         u.Totals,
		Primary:        u.Bucket(BucketPrimary),
		ReposProcessed: u.ReposProcessed(),
	}
}
