package usecase

import (
	"sort"
	"time"

	"github.com/naka-gawa/profile-stats/internal/domain"
)

const day = 24 * time.Hour

// AppendPoint adds p to points, keeps them in time order, and drops points
// older than retentionDays before p. A non-positive retention keeps everything.
func AppendPoint(points []domain.HistoryPoint, p domain.HistoryPoint, retentionDays int) []domain.HistoryPoint {
	all := make([]domain.HistoryPoint, 0, len(points)+1)
	all = append(all, points...)
	all = append(all, p)
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].Timestamp.Before(all[j].Timestamp)
	})

	if retentionDays <= 0 {
		return all
	}
	cutoff := p.Timestamp.Add(-time.Duration(retentionDays) * day)
	kept := all[:0]
	for _, point := range all {
		if !point.Timestamp.Before(cutoff) {
			kept = append(kept, point)
		}
	}
	return kept
}

// GrowthOver returns the change between the first and last points within the
// last days before now, or nil when fewer than two points fall in the window.
func GrowthOver(points []domain.HistoryPoint, days int, now time.Time) *domain.Growth {
	cutoff := now.Add(-time.Duration(days) * day)

	var window []domain.HistoryPoint
	for _, p := range points {
		if !p.Timestamp.Before(cutoff) && !p.Timestamp.After(now) {
			window = append(window, p)
		}
	}
	if len(window) < 2 {
		return nil
	}
	sort.SliceStable(window, func(i, j int) bool {
		return window[i].Timestamp.Before(window[j].Timestamp)
	})

	first, last := window[0], window[len(window)-1]
	return &domain.Growth{
		Days:       days,
		DataPoints: len(window),
		From:       first.Timestamp,
		To:         last.Timestamp,
		Totals:     delta(first.Totals, last.Totals),
		Primary:    delta(first.Primary, last.Primary),
		Repos:      last.ReposProcessed - first.ReposProcessed,
	}
}

func delta(from, to domain.Contribution) domain.Contribution {
	return domain.Contribution{
		Lines:   to.Lines - from.Lines,
		Commits: to.Commits - from.Commits,
		Files:   to.Files - from.Files,
	}
}
