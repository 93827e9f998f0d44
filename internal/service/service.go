package service

import (
	"time"

	"go.uber.org/zap"

	"github.com/fancyplanties/planty/internal/care"
	"github.com/fancyplanties/planty/internal/db"
)

const defaultMergeTimeout = 10 * time.Second

// Options tunes a Service. Zero values fall back to the package defaults.
type Options struct {
	SoonWindow   time.Duration
	RecentWindow time.Duration
	MergeTimeout time.Duration
	Now          func() time.Time
}

// Service fetches plain values from the store, runs them through the care
// and taxonomy engines, and persists the results.
type Service struct {
	db           *db.DB
	logger       *zap.Logger
	soonWindow   time.Duration
	recentWindow time.Duration
	mergeTimeout time.Duration
	now          func() time.Time
}

func New(store *db.DB, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		db:           store,
		logger:       logger,
		soonWindow:   care.DefaultSoonWindow,
		recentWindow: care.DefaultRecentWindow,
		mergeTimeout: defaultMergeTimeout,
		now:          time.Now,
	}
	if opts.SoonWindow > 0 {
		s.soonWindow = opts.SoonWindow
	}
	if opts.RecentWindow > 0 {
		s.recentWindow = opts.RecentWindow
	}
	if opts.MergeTimeout > 0 {
		s.mergeTimeout = opts.MergeTimeout
	}
	if opts.Now != nil {
		s.now = opts.Now
	}
	return s
}

// DB exposes the underlying store for commands that operate on it directly.
func (s *Service) DB() *db.DB {
	return s.db
}
