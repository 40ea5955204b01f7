package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
)

const statsOverviewKey = "stats:overview"

type statsStore interface {
	Users() []models.User
	Complaints() []*models.Complaint
	Students() []models.StudentRecord
	TeacherCodes() []string
}

type statsCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// StatsService computes the administrator overview.
type StatsService struct {
	store  statsStore
	cache  statsCache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewStatsService constructs a StatsService. cache may be nil.
func NewStatsService(store statsStore, cache statsCache, ttl time.Duration, logger *zap.Logger) *StatsService {
	return &StatsService{store: store, cache: cache, ttl: ttl, logger: defaultLogger(logger), now: time.Now}
}

// Overview returns counts by role, status and category, served from cache when fresh.
// The second return value reports a cache hit.
func (s *StatsService) Overview(ctx context.Context) (*models.SystemStats, bool) {
	if s.cache != nil {
		var cached models.SystemStats
		if s.cache.Get(ctx, statsOverviewKey, &cached) {
			return &cached, true
		}
	}

	stats := &models.SystemStats{
		UsersByRole:          map[models.UserRole]int{models.RoleParent: 0, models.RoleTeacher: 0, models.RoleAdmin: 0},
		ComplaintsByStatus:   map[models.ComplaintStatus]int{models.StatusPending: 0, models.StatusInProgress: 0, models.StatusResolved: 0},
		ComplaintsByCategory: make(map[models.Category]int, len(models.Categories)),
		GeneratedAt:          s.now().UTC(),
	}
	for _, info := range models.Categories {
		stats.ComplaintsByCategory[info.Tag] = 0
	}
	for _, u := range s.store.Users() {
		stats.UsersByRole[u.Role]++
	}
	for _, c := range s.store.Complaints() {
		stats.ComplaintsByStatus[c.Status]++
		stats.ComplaintsByCategory[c.Category]++
		stats.TotalComplaints++
	}
	stats.RegisteredStudents = len(s.store.Students())
	stats.ActiveTeacherCodes = len(s.store.TeacherCodes())

	if s.cache != nil {
		if err := s.cache.Set(ctx, statsOverviewKey, stats, s.ttl); err != nil {
			s.logger.Debug("stats overview not cached", zap.Error(err))
		}
	}
	return stats, false
}
