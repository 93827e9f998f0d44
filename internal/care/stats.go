package care

import (
	"sort"
	"time"

	"github.com/fancyplanties/planty/internal/model"
)

// DefaultRecentWindow bounds the "recently cared for" list.
const DefaultRecentWindow = 7 * 24 * time.Hour

type BucketCounts struct {
	Overdue  int `json:"overdue"`
	DueToday int `json:"due_today"`
	DueSoon  int `json:"due_soon"`
	Healthy  int `json:"healthy"`
}

func (c *BucketCounts) add(b Bucket) {
	switch b {
	case BucketOverdue:
		c.Overdue++
	case BucketDueToday:
		c.DueToday++
	case BucketDueSoon:
		c.DueSoon++
	default:
		c.Healthy++
	}
}

func (c BucketCounts) Total() int {
	return c.Overdue + c.DueToday + c.DueSoon + c.Healthy
}

type RecentCare struct {
	SubjectID   int64     `json:"subject_id"`
	Nickname    string    `json:"nickname"`
	LastCaredAt time.Time `json:"last_cared_at"`
}

type Stats struct {
	Counts           BucketCounts `json:"counts"`
	ActiveSubjects   int          `json:"active_subjects"`
	RecentlyCared    []RecentCare `json:"recently_cared"`
	FertilizerStreak int          `json:"fertilizer_streak"`
}

type Aggregator struct {
	Classifier   Classifier
	RecentWindow time.Duration
}

func NewAggregator(c Classifier, recentWindow time.Duration) Aggregator {
	if recentWindow <= 0 {
		recentWindow = DefaultRecentWindow
	}
	return Aggregator{Classifier: c, RecentWindow: recentWindow}
}

// ClassifySubjects classifies every active subject by its fertilizer due date
// and returns them in display order.
func (a Aggregator) ClassifySubjects(now time.Time, subjects []model.CareSubject) []Classified {
	out := make([]Classified, 0, len(subjects))
	for _, s := range subjects {
		if !s.Active {
			continue
		}
		out = append(out, Classified{
			SubjectID: s.ID,
			Nickname:  s.Nickname,
			DueAt:     s.FertilizerDue,
			Bucket:    a.Classifier.Classify(now, s.FertilizerDue),
		})
	}
	SortByUrgency(out)
	return out
}

// Aggregate computes bucket counts and the recent-care list over active
// subjects, and the fertilizer streak over every event supplied. The bucket
// counts always sum to the number of active subjects.
func (a Aggregator) Aggregate(now time.Time, subjects []model.CareSubject, events []model.CareEvent) Stats {
	stats := Stats{RecentlyCared: []RecentCare{}}
	active := make(map[int64]model.CareSubject, len(subjects))
	for _, s := range subjects {
		if !s.Active {
			continue
		}
		active[s.ID] = s
		stats.ActiveSubjects++
		stats.Counts.add(a.Classifier.Classify(now, s.FertilizerDue))
	}

	window := a.RecentWindow
	if window <= 0 {
		window = DefaultRecentWindow
	}
	since := now.Add(-window)
	latest := map[int64]time.Time{}
	for _, e := range events {
		s, ok := active[e.SubjectID]
		if !ok || e.PerformedAt.Before(since) || e.PerformedAt.After(now) {
			continue
		}
		if prev, seen := latest[s.ID]; !seen || e.PerformedAt.After(prev) {
			latest[s.ID] = e.PerformedAt
		}
	}
	for id, at := range latest {
		stats.RecentlyCared = append(stats.RecentlyCared, RecentCare{SubjectID: id, Nickname: active[id].Nickname, LastCaredAt: at})
	}
	sort.Slice(stats.RecentlyCared, func(i, j int) bool {
		ri, rj := stats.RecentlyCared[i], stats.RecentlyCared[j]
		if !ri.LastCaredAt.Equal(rj.LastCaredAt) {
			return ri.LastCaredAt.After(rj.LastCaredAt)
		}
		return ri.SubjectID < rj.SubjectID
	})

	stats.FertilizerStreak = FertilizerStreak(now, events)
	return stats
}

// FertilizerStreak counts consecutive calendar days, ending today in now's
// location, on which at least one fertilizer event happened. Event days are
// scanned newest first and the scan stops at the first day that is not
// exactly one day before the previously counted day. No fertilizer today
// means a streak of zero. Events after today are ignored.
func FertilizerStreak(now time.Time, events []model.CareEvent) int {
	loc := now.Location()
	today := StartOfDay(now)
	seen := map[string]bool{}
	days := make([]time.Time, 0, len(events))
	for _, e := range events {
		if e.Type != model.CareFertilizer || e.PerformedAt.After(now) {
			continue
		}
		day := StartOfDay(e.PerformedAt.In(loc))
		key := day.Format("2006-01-02")
		if day.After(today) || seen[key] {
			continue
		}
		seen[key] = true
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })

	streak := 0
	expected := today
	for _, day := range days {
		if !day.Equal(expected) {
			break
		}
		streak++
		expected = expected.AddDate(0, 0, -1)
	}
	return streak
}
