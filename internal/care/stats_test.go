package care

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fancyplanties/planty/internal/model"
)

// sequence hands out ids for one test only.
type sequence struct{ next int64 }

func (s *sequence) id() int64 {
	s.next++
	return s.next
}

func fertilizedAt(seq *sequence, subjectID int64, ts time.Time) model.CareEvent {
	return model.CareEvent{ID: seq.id(), SubjectID: subjectID, Type: model.CareFertilizer, PerformedAt: ts}
}

func TestFertilizerStreakStopsAtFirstGap(t *testing.T) {
	t.Parallel()
	seq := &sequence{}
	now := time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)
	day := func(offset, hour int) time.Time {
		return time.Date(2026, 5, 20+offset, hour, 0, 0, 0, time.UTC)
	}
	events := []model.CareEvent{
		fertilizedAt(seq, 1, day(0, 8)),
		fertilizedAt(seq, 2, day(0, 9)),
		fertilizedAt(seq, 1, day(-1, 7)),
		fertilizedAt(seq, 3, day(-2, 22)),
		// gap on day -3
		fertilizedAt(seq, 1, day(-4, 10)),
		fertilizedAt(seq, 1, day(-5, 10)),
		{ID: seq.id(), SubjectID: 1, Type: model.CareWater, PerformedAt: day(-3, 10)},
	}
	assert.Equal(t, 3, FertilizerStreak(now, events))
}

func TestFertilizerStreakRequiresToday(t *testing.T) {
	t.Parallel()
	seq := &sequence{}
	now := time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)
	events := []model.CareEvent{
		fertilizedAt(seq, 1, now.AddDate(0, 0, -1)),
		fertilizedAt(seq, 1, now.AddDate(0, 0, -2)),
	}
	assert.Equal(t, 0, FertilizerStreak(now, events))
}

func TestFertilizerStreakSparseEvents(t *testing.T) {
	t.Parallel()
	seq := &sequence{}
	now := time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)
	// Four events spread over four weeks must not count as a four-day streak.
	events := []model.CareEvent{
		fertilizedAt(seq, 1, now),
		fertilizedAt(seq, 1, now.AddDate(0, 0, -7)),
		fertilizedAt(seq, 1, now.AddDate(0, 0, -14)),
		fertilizedAt(seq, 1, now.AddDate(0, 0, -21)),
	}
	assert.Equal(t, 1, FertilizerStreak(now, events))
}

func TestFertilizerStreakIgnoresFutureAndUnsortedInput(t *testing.T) {
	t.Parallel()
	seq := &sequence{}
	now := time.Date(2026, 5, 20, 18, 0, 0, 0, time.UTC)
	events := []model.CareEvent{
		fertilizedAt(seq, 1, now.AddDate(0, 0, -1)),
		fertilizedAt(seq, 1, now.AddDate(0, 0, 2)),
		fertilizedAt(seq, 1, now.Add(-2*time.Hour)),
		fertilizedAt(seq, 1, now.AddDate(0, 0, -2)),
	}
	assert.Equal(t, 3, FertilizerStreak(now, events))
	assert.Equal(t, 0, FertilizerStreak(now, nil))
}

func TestFertilizerStreakIgnoresLaterToday(t *testing.T) {
	t.Parallel()
	seq := &sequence{}
	now := time.Date(2026, 5, 20, 8, 0, 0, 0, time.UTC)
	later := []model.CareEvent{fertilizedAt(seq, 1, now.Add(10*time.Hour))}
	assert.Equal(t, 0, FertilizerStreak(now, later))

	atNow := append(later, fertilizedAt(seq, 1, now))
	assert.Equal(t, 1, FertilizerStreak(now, atNow))
}

func TestAggregateCountsSumToActiveSubjects(t *testing.T) {
	t.Parallel()
	seq := &sequence{}
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	due := func(days int) *time.Time {
		d := now.AddDate(0, 0, days)
		return &d
	}
	subjects := []model.CareSubject{
		{ID: seq.id(), Nickname: "Monty", Active: true, FertilizerDue: due(-2)},
		{ID: seq.id(), Nickname: "Fern", Active: true, FertilizerDue: due(0)},
		{ID: seq.id(), Nickname: "Pothos", Active: true, FertilizerDue: due(3)},
		{ID: seq.id(), Nickname: "Cactus", Active: true, FertilizerDue: due(30)},
		{ID: seq.id(), Nickname: "Newbie", Active: true},
		{ID: seq.id(), Nickname: "Gone", Active: false, FertilizerDue: due(-5)},
	}
	events := []model.CareEvent{
		fertilizedAt(seq, 1, now.Add(-time.Hour)),
		{ID: seq.id(), SubjectID: 3, Type: model.CareWater, PerformedAt: now.AddDate(0, 0, -2)},
		{ID: seq.id(), SubjectID: 3, Type: model.CareInspect, PerformedAt: now.AddDate(0, 0, -3)},
		{ID: seq.id(), SubjectID: 4, Type: model.CareWater, PerformedAt: now.AddDate(0, 0, -9)},
		fertilizedAt(seq, 6, now.AddDate(0, 0, -1)),
	}

	agg := NewAggregator(NewClassifier(DefaultSoonWindow), DefaultRecentWindow)
	stats := agg.Aggregate(now, subjects, events)

	assert.Equal(t, BucketCounts{Overdue: 1, DueToday: 1, DueSoon: 1, Healthy: 2}, stats.Counts)
	assert.Equal(t, 5, stats.ActiveSubjects)
	assert.Equal(t, stats.ActiveSubjects, stats.Counts.Total())

	require.Len(t, stats.RecentlyCared, 2)
	assert.Equal(t, int64(1), stats.RecentlyCared[0].SubjectID)
	assert.Equal(t, int64(3), stats.RecentlyCared[1].SubjectID)
	assert.True(t, stats.RecentlyCared[1].LastCaredAt.Equal(now.AddDate(0, 0, -2)))

	// The inactive subject's event yesterday still belongs to the collection.
	assert.Equal(t, 2, stats.FertilizerStreak)
}

func TestClassifySubjectsSkipsInactiveAndSorts(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 5, 20, 12, 0, 0, 0, time.UTC)
	due := func(days int) *time.Time {
		d := now.AddDate(0, 0, days)
		return &d
	}
	subjects := []model.CareSubject{
		{ID: 1, Active: true, FertilizerDue: due(30)},
		{ID: 2, Active: true, FertilizerDue: due(3)},
		{ID: 3, Active: true, FertilizerDue: due(0)},
		{ID: 4, Active: true, FertilizerDue: due(-2)},
		{ID: 5, Active: false, FertilizerDue: due(-9)},
	}
	got := NewAggregator(NewClassifier(0), 0).ClassifySubjects(now, subjects)
	require.Len(t, got, 4)
	buckets := make([]Bucket, 0, len(got))
	for _, c := range got {
		buckets = append(buckets, c.Bucket)
	}
	assert.Equal(t, []Bucket{BucketOverdue, BucketDueToday, BucketDueSoon, BucketHealthy}, buckets)
}
