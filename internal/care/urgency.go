package care

import (
	"sort"
	"time"
)

// DefaultSoonWindow is how far ahead a due date counts as due soon.
const DefaultSoonWindow = 7 * 24 * time.Hour

type Bucket string

const (
	BucketOverdue  Bucket = "overdue"
	BucketDueToday Bucket = "due_today"
	BucketDueSoon  Bucket = "due_soon"
	BucketHealthy  Bucket = "healthy"
)

// Buckets lists every bucket in display order.
var Buckets = []Bucket{BucketOverdue, BucketDueToday, BucketDueSoon, BucketHealthy}

func (b Bucket) rank() int {
	switch b {
	case BucketOverdue:
		return 0
	case BucketDueToday:
		return 1
	case BucketDueSoon:
		return 2
	default:
		return 3
	}
}

type Classifier struct {
	SoonWindow time.Duration
}

func NewClassifier(soonWindow time.Duration) Classifier {
	if soonWindow <= 0 {
		soonWindow = DefaultSoonWindow
	}
	return Classifier{SoonWindow: soonWindow}
}

// Classify buckets dueAt relative to now. Calendar days are taken in now's
// location. A due date anywhere on today's date is due_today, whether it has
// already passed or not.
func (c Classifier) Classify(now time.Time, dueAt *time.Time) Bucket {
	if dueAt == nil {
		return BucketHealthy
	}
	window := c.SoonWindow
	if window <= 0 {
		window = DefaultSoonWindow
	}
	due := dueAt.In(now.Location())
	start := StartOfDay(now)
	switch {
	case !due.Before(start) && due.Before(start.AddDate(0, 0, 1)):
		return BucketDueToday
	case due.Before(start):
		return BucketOverdue
	case due.Sub(now) <= window:
		return BucketDueSoon
	default:
		return BucketHealthy
	}
}

// Classify uses DefaultSoonWindow.
func Classify(now time.Time, dueAt *time.Time) Bucket {
	return NewClassifier(DefaultSoonWindow).Classify(now, dueAt)
}

type Classified struct {
	SubjectID int64      `json:"subject_id"`
	Nickname  string     `json:"nickname"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	Bucket    Bucket     `json:"bucket"`
}

// Less is the display ordering: overdue (oldest first), due_today, due_soon
// (soonest first), healthy. Within a bucket earlier due dates come first,
// missing due dates last, and subject id breaks remaining ties.
func Less(a, b Classified) bool {
	if ra, rb := a.Bucket.rank(), b.Bucket.rank(); ra != rb {
		return ra < rb
	}
	switch {
	case a.DueAt != nil && b.DueAt != nil:
		if !a.DueAt.Equal(*b.DueAt) {
			return a.DueAt.Before(*b.DueAt)
		}
	case a.DueAt != nil:
		return true
	case b.DueAt != nil:
		return false
	}
	return a.SubjectID < b.SubjectID
}

// SortByUrgency orders items in place using Less.
func SortByUrgency(items []Classified) {
	sort.SliceStable(items, func(i, j int) bool {
		return Less(items[i], items[j])
	})
}

func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
