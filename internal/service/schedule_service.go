package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/english-korat/ekls-api/internal/dto"
	"github.com/english-korat/ekls-api/internal/models"
	"github.com/english-korat/ekls-api/internal/quota"
	"github.com/english-korat/ekls-api/pkg/config"
	appErrors "github.com/english-korat/ekls-api/pkg/errors"
)

type scheduleStore interface {
	Create(ctx context.Context, schedule *models.Schedule, slots []models.ScheduleTimeSlot) error
	GetByID(ctx context.Context, id int64) (*models.Schedule, error)
	GetTimeSlots(ctx context.Context, scheduleID int64) ([]models.ScheduleTimeSlot, error)
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error)
	Update(ctx context.Context, schedule *models.Schedule) error
	UpdateQuota(ctx context.Context, scheduleID int64, remaining int) error
}

type scheduleSessionStore interface {
	CreateBatch(ctx context.Context, sessions []models.Session) error
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
}

type quotaCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Invalidate(ctx context.Context, patterns ...string)
}

type auditWriter interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// ScheduleService manages schedules, their generated sessions and the
// makeup-quota snapshot and override operations.
type ScheduleService struct {
	repo      scheduleStore
	sessions  scheduleSessionStore
	cache     quotaCache
	audit     auditWriter
	validator *validator.Validate
	logger    *zap.Logger
	cfg       config.MakeupConfig
}

// NewScheduleService constructs the service.
func NewScheduleService(repo scheduleStore, sessions scheduleSessionStore, cache quotaCache, audit auditWriter, validate *validator.Validate, logger *zap.Logger, cfg config.MakeupConfig) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.DefaultQuota <= 0 {
		cfg.DefaultQuota = quota.DefaultQuota
	}
	return &ScheduleService{
		repo:      repo,
		sessions:  sessions,
		cache:     cache,
		audit:     audit,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

func quotaCacheKey(scheduleID int64) string {
	return fmt.Sprintf("quota:schedule:%d", scheduleID)
}

// Preview runs validation and derivation without touching storage, used
// while the admin form is still being filled in.
func (s *ScheduleService) Preview(req dto.CreateScheduleRequest) dto.SchedulePreviewResponse {
	issues := quota.ValidateScheduleForm(req.Form())
	if issues == nil {
		issues = []quota.Issue{}
	}
	return dto.SchedulePreviewResponse{
		Issues:  issues,
		Derived: quota.DeriveScheduleFields(req.DeriveInput()),
	}
}

// Create validates the form, derives the computed fields, persists the
// schedule with its time slots and generates the weekly sessions.
func (s *ScheduleService) Create(ctx context.Context, req dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	if issues := quota.ValidateScheduleForm(req.Form()); len(issues) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, issues)
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date is not a valid calendar date")
	}

	derived := quota.DeriveScheduleFields(req.DeriveInput())

	defaultQuota := s.cfg.DefaultQuota
	used := 0
	schedule := &models.Schedule{
		ScheduleName:     strings.TrimSpace(req.ScheduleName),
		CourseID:         int64(req.CourseID.Int()),
		RecurringPattern: req.RecurringPattern,
		TotalHours:       req.TotalHours.Int(),
		HoursPerSession:  req.HoursPerSession.Int(),
		SessionPerWeek:   req.SessionPerWeek.Int(),
		StartDate:        startDate,
		Status:           models.ScheduleStatusAssigned,
		MakeUpQuota:      &defaultQuota,
		MakeUpUsed:       &used,
		Notes:            req.Notes,
	}
	if req.GroupID != nil {
		gid := int64(req.GroupID.Int())
		schedule.GroupID = &gid
	}
	if max := req.MaxStudents.IntPtr(); max != nil {
		schedule.MaxStudents = *max
	}
	if derived.EstimatedEndDate != nil {
		end, err := time.Parse("2006-01-02", *derived.EstimatedEndDate)
		if err == nil {
			schedule.EstimatedEndDate = &end
		}
	}

	slots := make([]models.ScheduleTimeSlot, 0, len(req.TimeSlots))
	for _, ts := range req.TimeSlots {
		slots = append(slots, models.ScheduleTimeSlot{
			DayOfWeek: strings.ToLower(ts.DayOfWeek),
			StartTime: ts.StartTime,
			EndTime:   ts.EndTime,
		})
	}

	if err := s.repo.Create(ctx, schedule, slots); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}

	if derived.TotalSessions != nil {
		generated := generateSessions(schedule.ID, startDate, slots, *derived.TotalSessions)
		if err := s.sessions.CreateBatch(ctx, generated); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate sessions")
		}
		s.logger.Info("generated schedule sessions",
			zap.Int64("schedule_id", schedule.ID),
			zap.Int("count", len(generated)))
	}

	return s.respond(schedule, slots, derived.TotalSessions), nil
}

// Get returns one schedule with its slots and quota snapshot.
func (s *ScheduleService) Get(ctx context.Context, id int64) (*dto.ScheduleResponse, error) {
	schedule, err := s.loadSchedule(ctx, id)
	if err != nil {
		return nil, err
	}
	slots, err := s.repo.GetTimeSlots(ctx, id)
	if err != nil {
		s.logger.Warn("failed to load time slots", zap.Int64("schedule_id", id), zap.Error(err))
	}
	derived := quota.DeriveScheduleFields(quota.DeriveInput{
		TotalHours:      schedule.TotalHours,
		HoursPerSession: schedule.HoursPerSession,
	})
	return s.respond(schedule, slots, derived.TotalSessions), nil
}

// List returns schedules with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]dto.ScheduleResponse, *models.Pagination, error) {
	schedules, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}

	out := make([]dto.ScheduleResponse, 0, len(schedules))
	for i := range schedules {
		derived := quota.DeriveScheduleFields(quota.DeriveInput{
			TotalHours:      schedules[i].TotalHours,
			HoursPerSession: schedules[i].HoursPerSession,
		})
		out = append(out, *s.respond(&schedules[i], nil, derived.TotalSessions))
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return out, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Update rewrites the mutable fields of a schedule after re-validating
// and re-deriving them.
func (s *ScheduleService) Update(ctx context.Context, id int64, req dto.CreateScheduleRequest) (*dto.ScheduleResponse, error) {
	if issues := quota.ValidateScheduleForm(req.Form()); len(issues) > 0 {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, issues)
	}

	schedule, err := s.loadSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "start date is not a valid calendar date")
	}

	derived := quota.DeriveScheduleFields(req.DeriveInput())

	schedule.ScheduleName = strings.TrimSpace(req.ScheduleName)
	schedule.RecurringPattern = req.RecurringPattern
	schedule.TotalHours = req.TotalHours.Int()
	schedule.HoursPerSession = req.HoursPerSession.Int()
	schedule.SessionPerWeek = req.SessionPerWeek.Int()
	schedule.StartDate = startDate
	schedule.Notes = req.Notes
	if max := req.MaxStudents.IntPtr(); max != nil {
		schedule.MaxStudents = *max
	}
	schedule.EstimatedEndDate = nil
	if derived.EstimatedEndDate != nil {
		if end, perr := time.Parse("2006-01-02", *derived.EstimatedEndDate); perr == nil {
			schedule.EstimatedEndDate = &end
		}
	}

	if err := s.repo.Update(ctx, schedule); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}

	s.cache.Invalidate(ctx, quotaCacheKey(id))
	return s.respond(schedule, nil, derived.TotalSessions), nil
}

// Sessions lists the sessions generated for a schedule. The filter's
// schedule scope is forced to the path id.
func (s *ScheduleService) Sessions(ctx context.Context, id int64, filter models.SessionFilter) ([]models.Session, error) {
	if _, err := s.loadSchedule(ctx, id); err != nil {
		return nil, err
	}
	filter.ScheduleID = id
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	return sessions, nil
}

// QuotaSnapshot returns the reconciled quota state of a schedule, served
// from cache when fresh.
func (s *ScheduleService) QuotaSnapshot(ctx context.Context, id int64) (*dto.QuotaSnapshot, error) {
	var cached dto.QuotaSnapshot
	if err := s.cache.Get(ctx, quotaCacheKey(id), &cached); err == nil {
		return &cached, nil
	}

	schedule, err := s.loadSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	snapshot := &dto.QuotaSnapshot{
		ScheduleID:   schedule.ID,
		ScheduleName: schedule.ScheduleName,
		Quota:        quota.CheckWithDefault(schedule, s.cfg.DefaultQuota),
	}
	if err := s.cache.Set(ctx, quotaCacheKey(id), snapshot, s.cfg.QuotaCacheTTL); err != nil {
		s.logger.Warn("failed to cache quota snapshot", zap.Int64("schedule_id", id), zap.Error(err))
	}
	return snapshot, nil
}

// OverrideQuota sets make_up_remaining directly. The override is audited
// with the actor and the mandatory reason; used and quota are left alone
// so the stored remaining becomes authoritative.
func (s *ScheduleService) OverrideQuota(ctx context.Context, id int64, actorID int64, req dto.UpdateQuotaRequest) (*dto.UpdateQuotaResponse, error) {
	if req.MakeUpRemaining == nil || strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "make_up_remaining and reason are required")
	}

	schedule, err := s.loadSchedule(ctx, id)
	if err != nil {
		return nil, err
	}

	before := quota.CheckWithDefault(schedule, s.cfg.DefaultQuota)
	newRemaining := req.MakeUpRemaining.Int()

	if err := s.repo.UpdateQuota(ctx, id, newRemaining); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update quota")
	}

	oldVal := fmt.Sprintf("%d", before.Remaining)
	newVal := fmt.Sprintf("%d", newRemaining)
	if err := s.audit.Create(ctx, &models.AuditLog{
		ActorID:    actorID,
		Action:     models.AuditQuotaOverride,
		EntityType: "schedule",
		EntityID:   id,
		OldValue:   &oldVal,
		NewValue:   &newVal,
		Reason:     req.Reason,
	}); err != nil {
		s.logger.Warn("failed to record quota override audit entry", zap.Int64("schedule_id", id), zap.Error(err))
	}

	s.cache.Invalidate(ctx, quotaCacheKey(id))

	schedule.MakeUpRemaining = &newRemaining
	return &dto.UpdateQuotaResponse{
		ScheduleID:   id,
		OldRemaining: before.Remaining,
		NewRemaining: newRemaining,
		Quota:        quota.CheckWithDefault(schedule, s.cfg.DefaultQuota),
	}, nil
}

func (s *ScheduleService) loadSchedule(ctx context.Context, id int64) (*models.Schedule, error) {
	schedule, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return schedule, nil
}

func (s *ScheduleService) respond(schedule *models.Schedule, slots []models.ScheduleTimeSlot, totalSessions *int) *dto.ScheduleResponse {
	return &dto.ScheduleResponse{
		Schedule:      *schedule,
		TimeSlots:     slots,
		TotalSessions: totalSessions,
		Quota:         quota.CheckWithDefault(schedule, s.cfg.DefaultQuota),
	}
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// generateSessions walks the calendar from the start date and emits one
// session per matching time slot until the target count is reached. The
// start date itself counts when it lands on a slot day.
func generateSessions(scheduleID int64, startDate time.Time, slots []models.ScheduleTimeSlot, totalSessions int) []models.Session {
	type daySlot struct {
		weekday time.Weekday
		start   string
		end     string
	}
	bySlot := make([]daySlot, 0, len(slots))
	for _, s := range slots {
		wd, ok := weekdays[strings.ToLower(s.DayOfWeek)]
		if !ok {
			continue
		}
		bySlot = append(bySlot, daySlot{weekday: wd, start: s.StartTime, end: s.EndTime})
	}
	if len(bySlot) == 0 || totalSessions <= 0 {
		return nil
	}

	sessions := make([]models.Session, 0, totalSessions)
	for day := startDate; len(sessions) < totalSessions; day = day.AddDate(0, 0, 1) {
		for _, slot := range bySlot {
			if day.Weekday() != slot.weekday {
				continue
			}
			sessions = append(sessions, models.Session{
				ScheduleID:    scheduleID,
				SessionDate:   day,
				StartTime:     slot.start,
				EndTime:       slot.end,
				SessionNumber: len(sessions) + 1,
				WeekNumber:    int(day.Sub(startDate).Hours()/(24*7)) + 1,
				Status:        models.SessionStatusScheduled,
			})
			if len(sessions) == totalSessions {
				break
			}
		}
	}
	return sessions
}
