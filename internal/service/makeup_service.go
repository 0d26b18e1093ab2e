package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/english-korat/ekls-api/internal/dto"
	"github.com/english-korat/ekls-api/internal/models"
	"github.com/english-korat/ekls-api/internal/quota"
	"github.com/english-korat/ekls-api/pkg/config"
	appErrors "github.com/english-korat/ekls-api/pkg/errors"
)

const needingMakeupCacheKey = "sessions:needing-makeup"

type makeupSessionStore interface {
	GetByID(ctx context.Context, id int64) (*models.Session, error)
	Create(ctx context.Context, session *models.Session) error
	ListNeedingMakeup(ctx context.Context) ([]models.NeedingMakeupSession, error)
}

type makeupScheduleStore interface {
	GetByID(ctx context.Context, id int64) (*models.Schedule, error)
}

type makeupNotifier interface {
	MakeupScheduled(ctx context.Context, userIDs []int64, scheduleName string, makeupDate time.Time)
}

type makeupMetrics interface {
	MakeupCreated()
	QuotaExhausted()
}

// MakeupService lists sessions awaiting a makeup and creates makeup
// sessions. The eligibility verdicts on listings are advisory for the
// client; Create re-runs the gate and is the final arbiter.
type MakeupService struct {
	sessions  makeupSessionStore
	schedules makeupScheduleStore
	students  scheduleStudentLister
	notifier  makeupNotifier
	metrics   makeupMetrics
	cache     quotaCache
	audit     auditWriter
	logger    *zap.Logger
	cfg       config.MakeupConfig
}

// NewMakeupService constructs the service.
func NewMakeupService(
	sessions makeupSessionStore,
	schedules makeupScheduleStore,
	students scheduleStudentLister,
	notifier makeupNotifier,
	metrics makeupMetrics,
	cache quotaCache,
	audit auditWriter,
	logger *zap.Logger,
	cfg config.MakeupConfig,
) *MakeupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultQuota <= 0 {
		cfg.DefaultQuota = quota.DefaultQuota
	}
	return &MakeupService{
		sessions:  sessions,
		schedules: schedules,
		students:  students,
		notifier:  notifier,
		metrics:   metrics,
		cache:     cache,
		audit:     audit,
		logger:    logger,
		cfg:       cfg,
	}
}

// ListNeedingMakeup returns cancelled sessions with no makeup yet, each
// carrying the quota snapshot and advisory eligibility verdict.
func (s *MakeupService) ListNeedingMakeup(ctx context.Context) ([]dto.NeedingMakeupItem, error) {
	var cached []dto.NeedingMakeupItem
	if err := s.cache.Get(ctx, needingMakeupCacheKey, &cached); err == nil {
		return cached, nil
	}

	rows, err := s.sessions.ListNeedingMakeup(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions needing makeup")
	}

	items := make([]dto.NeedingMakeupItem, 0, len(rows))
	for _, row := range rows {
		scheduleQuota := &models.Schedule{
			MakeUpQuota:     row.MakeUpQuota,
			MakeUpUsed:      row.MakeUpUsed,
			MakeUpRemaining: row.MakeUpRemaining,
		}
		sessionFlags := &models.Session{IsMakeup: row.IsMakeup, HasMakeupSession: row.HasMakeupSession}
		items = append(items, dto.NeedingMakeupItem{
			NeedingMakeupSession: row,
			Quota:                quota.CheckWithDefault(scheduleQuota, s.cfg.DefaultQuota),
			Eligibility:          quota.CanCreateMakeupWithDefault(scheduleQuota, sessionFlags, s.cfg.DefaultQuota),
		})
	}

	if err := s.cache.Set(ctx, needingMakeupCacheKey, items, s.cfg.NeedingMakeupCacheTTL); err != nil {
		s.logger.Warn("failed to cache needing-makeup listing", zap.Error(err))
	}
	return items, nil
}

// CreateMakeup creates the replacement session for a cancelled one. The
// eligibility gate runs here with fresh data regardless of what any
// listing told the client.
func (s *MakeupService) CreateMakeup(ctx context.Context, sessionID, actorID int64, req dto.CreateMakeupRequest) (*models.Session, error) {
	original, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	if original.Status != models.SessionStatusCancelled {
		return nil, appErrors.Clone(appErrors.ErrInvalidSessionState, "only cancelled sessions can receive a makeup session")
	}

	schedule, err := s.schedules.GetByID(ctx, original.ScheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	usage := quota.CheckWithDefault(schedule, s.cfg.DefaultQuota)
	if !usage.HasQuota {
		s.metrics.QuotaExhausted()
		return nil, appErrors.Clone(appErrors.ErrQuotaExhausted,
			fmt.Sprintf("no makeup quota remaining (%d/%d used)", usage.Used, usage.Total))
	}
	if original.HasMakeupSession {
		return nil, appErrors.ErrAlreadyHasMakeup
	}
	if original.IsMakeup {
		return nil, appErrors.ErrMakeupOfMakeup
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be in YYYY-MM-DD format")
	}

	makeup := &models.Session{
		ScheduleID:         original.ScheduleID,
		SessionDate:        date,
		StartTime:          req.StartTime,
		EndTime:            req.EndTime,
		SessionNumber:      original.SessionNumber,
		WeekNumber:         original.WeekNumber,
		Status:             models.SessionStatusScheduled,
		IsMakeup:           true,
		MakeupForSessionID: &original.ID,
		Notes:              req.Notes,
	}
	if err := s.sessions.Create(ctx, makeup); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create makeup session")
	}

	students, err := s.students.ListBySchedule(ctx, original.ScheduleID)
	if err != nil {
		s.logger.Warn("failed to list students for makeup notification", zap.Int64("schedule_id", original.ScheduleID), zap.Error(err))
	} else {
		userIDs := make([]int64, 0, len(students))
		for _, st := range students {
			if st.UserID != nil {
				userIDs = append(userIDs, *st.UserID)
			}
		}
		s.notifier.MakeupScheduled(ctx, userIDs, schedule.ScheduleName, date)
	}

	newVal := fmt.Sprintf("%d", makeup.ID)
	if err := s.audit.Create(ctx, &models.AuditLog{
		ActorID:    actorID,
		Action:     models.AuditMakeupCreated,
		EntityType: "session",
		EntityID:   original.ID,
		NewValue:   &newVal,
	}); err != nil {
		s.logger.Warn("failed to record makeup audit entry", zap.Int64("session_id", original.ID), zap.Error(err))
	}

	s.cache.Invalidate(ctx, needingMakeupCacheKey)
	s.metrics.MakeupCreated()

	s.logger.Info("makeup session created",
		zap.Int64("original_session_id", original.ID),
		zap.Int64("makeup_session_id", makeup.ID),
		zap.Int64("schedule_id", original.ScheduleID))
	return makeup, nil
}
