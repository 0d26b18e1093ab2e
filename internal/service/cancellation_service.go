package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/english-korat/ekls-api/internal/dto"
	"github.com/english-korat/ekls-api/internal/models"
	"github.com/english-korat/ekls-api/internal/quota"
	"github.com/english-korat/ekls-api/internal/repository"
	"github.com/english-korat/ekls-api/pkg/config"
	appErrors "github.com/english-korat/ekls-api/pkg/errors"
)

type cancellationStore interface {
	Create(ctx context.Context, req *models.CancellationRequest) error
	GetPendingBySession(ctx context.Context, sessionID int64) (*models.CancellationRequest, error)
	List(ctx context.Context, status string) ([]models.CancellationRequest, error)
	Decide(ctx context.Context, id int64, status string, decidedBy int64) error
}

type cancellationSessionStore interface {
	GetByID(ctx context.Context, id int64) (*models.Session, error)
	UpdateStatus(ctx context.Context, id int64, from []string, to string, reason *string) error
}

type cancellationScheduleStore interface {
	GetByID(ctx context.Context, id int64) (*models.Schedule, error)
	ConsumeQuota(ctx context.Context, scheduleID int64, defaultQuota int) (*models.Schedule, error)
	RefundQuota(ctx context.Context, scheduleID int64) error
}

type scheduleStudentLister interface {
	ListBySchedule(ctx context.Context, scheduleID int64) ([]models.Student, error)
}

type cancellationNotifier interface {
	CancellationRequested(ctx context.Context, scheduleName string, sessionDate time.Time, reason string)
	CancellationApproved(ctx context.Context, userIDs []int64, scheduleName string, sessionDate time.Time)
	CancellationRejected(ctx context.Context, requesterID int64, scheduleName string, sessionDate time.Time, note string)
}

type cancellationMetrics interface {
	CancellationRequested()
	CancellationApproved()
	CancellationRejected()
	QuotaExhausted()
}

// CancellationService drives the session-cancellation approval workflow:
// request, approve (consuming makeup quota), reject and bulk approval.
type CancellationService struct {
	requests  cancellationStore
	sessions  cancellationSessionStore
	schedules cancellationScheduleStore
	students  scheduleStudentLister
	notifier  cancellationNotifier
	metrics   cancellationMetrics
	cache     quotaCache
	audit     auditWriter
	logger    *zap.Logger
	cfg       config.MakeupConfig
}

// NewCancellationService constructs the service.
func NewCancellationService(
	requests cancellationStore,
	sessions cancellationSessionStore,
	schedules cancellationScheduleStore,
	students scheduleStudentLister,
	notifier cancellationNotifier,
	metrics cancellationMetrics,
	cache quotaCache,
	audit auditWriter,
	logger *zap.Logger,
	cfg config.MakeupConfig,
) *CancellationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultQuota <= 0 {
		cfg.DefaultQuota = quota.DefaultQuota
	}
	if cfg.WarnThreshold <= 0 {
		cfg.WarnThreshold = 1
	}
	return &CancellationService{
		requests:  requests,
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

// cancellableStates are the session states a cancellation may be
// requested from.
var cancellableStates = []string{
	models.SessionStatusScheduled,
	models.SessionStatusConfirmed,
	models.SessionStatusPending,
}

// Request opens a cancellation request for a session and parks the
// session in pending_cancellation until an admin decides.
func (s *CancellationService) Request(ctx context.Context, sessionID, requestedBy int64, req dto.RequestCancellationRequest) (*models.CancellationRequest, error) {
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, appErrors.Clone(appErrors.ErrInvalidCancellation, "a cancellation reason is required")
	}

	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	switch session.Status {
	case models.SessionStatusPendingCancellation:
		return nil, appErrors.Clone(appErrors.ErrConflict, "session already has a pending cancellation request")
	case models.SessionStatusCancelled:
		return nil, appErrors.Clone(appErrors.ErrInvalidSessionState, "session is already cancelled")
	case models.SessionStatusCompleted:
		return nil, appErrors.Clone(appErrors.ErrInvalidSessionState, "completed sessions cannot be cancelled")
	}

	request := &models.CancellationRequest{
		SessionID:   sessionID,
		Reason:      reason,
		Status:      models.CancellationStatusPending,
		RequestedBy: requestedBy,
	}
	if err := s.requests.Create(ctx, request); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "session already has a pending cancellation request")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create cancellation request")
	}

	if err := s.sessions.UpdateStatus(ctx, sessionID, cancellableStates, models.SessionStatusPendingCancellation, &reason); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidSessionState, "session is not in a cancellable state")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session status")
	}

	if schedule, serr := s.schedules.GetByID(ctx, session.ScheduleID); serr == nil {
		s.notifier.CancellationRequested(ctx, schedule.ScheduleName, session.SessionDate, reason)
	} else {
		s.logger.Warn("failed to load schedule for notification", zap.Int64("schedule_id", session.ScheduleID), zap.Error(serr))
	}

	s.metrics.CancellationRequested()
	return request, nil
}

// Approve marks the pending request approved, cancels the session,
// consumes one makeup quota on the schedule and reports the quota impact
// per affected student.
func (s *CancellationService) Approve(ctx context.Context, sessionID, decidedBy int64) (*dto.ApproveCancellationResponse, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusPendingCancellation {
		return nil, appErrors.Clone(appErrors.ErrInvalidSessionState, "session has no pending cancellation")
	}

	request, err := s.requests.GetPendingBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no pending cancellation request for this session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cancellation request")
	}

	before, err := s.schedules.GetByID(ctx, session.ScheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	beforeUsage := quota.CheckWithDefault(before, s.cfg.DefaultQuota)

	after, err := s.schedules.ConsumeQuota(ctx, session.ScheduleID, s.cfg.DefaultQuota)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.metrics.QuotaExhausted()
			return nil, appErrors.Clone(appErrors.ErrQuotaExhausted,
				fmt.Sprintf("no makeup quota remaining (%d/%d used)", beforeUsage.Used, beforeUsage.Total))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to consume makeup quota")
	}
	afterUsage := quota.CheckWithDefault(after, s.cfg.DefaultQuota)

	if err := s.requests.Decide(ctx, request.ID, models.CancellationStatusApproved, decidedBy); err != nil {
		// Another admin decided in between. Hand the quota back so the
		// losing approval has no lasting effect.
		s.refundQuota(ctx, session.ScheduleID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "cancellation request was already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide cancellation request")
	}

	if err := s.sessions.UpdateStatus(ctx, sessionID,
		[]string{models.SessionStatusPendingCancellation}, models.SessionStatusCancelled, &request.Reason); err != nil {
		s.logger.Error("approved request but failed to cancel session",
			zap.Int64("session_id", sessionID), zap.Error(err))
	}

	affected, studentUserIDs := s.affectedStudents(ctx, session.ScheduleID, beforeUsage, afterUsage)

	userIDs := append([]int64{request.RequestedBy}, studentUserIDs...)
	s.notifier.CancellationApproved(ctx, userIDs, before.ScheduleName, session.SessionDate)

	s.recordDecision(ctx, decidedBy, models.AuditCancellationApproved, request.ID, beforeUsage.Remaining, afterUsage.Remaining, request.Reason)
	s.cache.Invalidate(ctx, quotaCacheKey(session.ScheduleID), "sessions:needing-makeup")
	s.metrics.CancellationApproved()

	session.Status = models.SessionStatusCancelled
	session.CancellingReason = request.Reason
	return &dto.ApproveCancellationResponse{
		Session:          *session,
		MakeupNeeded:     !session.IsMakeup,
		AffectedStudents: affected,
	}, nil
}

// Reject declines the pending request and returns the session to its
// scheduled state. No quota moves.
func (s *CancellationService) Reject(ctx context.Context, sessionID, decidedBy int64, req dto.RejectCancellationRequest) (*models.CancellationRequest, error) {
	session, err := s.loadSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != models.SessionStatusPendingCancellation {
		return nil, appErrors.Clone(appErrors.ErrInvalidSessionState, "session has no pending cancellation")
	}

	request, err := s.requests.GetPendingBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no pending cancellation request for this session")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load cancellation request")
	}

	if err := s.requests.Decide(ctx, request.ID, models.CancellationStatusRejected, decidedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "cancellation request was already decided")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decide cancellation request")
	}

	if err := s.sessions.UpdateStatus(ctx, sessionID,
		[]string{models.SessionStatusPendingCancellation}, models.SessionStatusScheduled, nil); err != nil {
		s.logger.Error("rejected request but failed to restore session",
			zap.Int64("session_id", sessionID), zap.Error(err))
	}

	if schedule, serr := s.schedules.GetByID(ctx, session.ScheduleID); serr == nil {
		s.notifier.CancellationRejected(ctx, request.RequestedBy, schedule.ScheduleName, session.SessionDate, req.Note)
	}

	s.recordDecision(ctx, decidedBy, models.AuditCancellationRejected, request.ID, 0, 0, req.Note)
	s.metrics.CancellationRejected()

	request.Status = models.CancellationStatusRejected
	request.DecidedBy = &decidedBy
	return request, nil
}

// BulkApprove approves each session independently. Per-session failures
// are outcomes in the response, never an error for the whole call.
func (s *CancellationService) BulkApprove(ctx context.Context, decidedBy int64, req dto.BulkApproveRequest) (*dto.BulkApproveResponse, error) {
	if len(req.SessionIDs) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session_ids must not be empty")
	}

	resp := &dto.BulkApproveResponse{
		Approved: []dto.ApproveCancellationResponse{},
		Failures: []dto.BulkApproveFailure{},
	}
	for _, id := range req.SessionIDs {
		result, err := s.Approve(ctx, id, decidedBy)
		if err != nil {
			resp.Failures = append(resp.Failures, dto.BulkApproveFailure{
				SessionID: id,
				Reason:    appErrors.FromError(err).Message,
			})
			continue
		}
		resp.Approved = append(resp.Approved, *result)
	}

	resp.Summary = dto.BulkApproveSummary{
		TotalRequested: len(req.SessionIDs),
		Successful:     len(resp.Approved),
		Failed:         len(resp.Failures),
	}
	return resp, nil
}

// List returns cancellation requests, optionally filtered by status.
func (s *CancellationService) List(ctx context.Context, status string) ([]models.CancellationRequest, error) {
	switch status {
	case "", models.CancellationStatusPending, models.CancellationStatusApproved, models.CancellationStatusRejected:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown cancellation status filter")
	}
	requests, err := s.requests.List(ctx, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list cancellation requests")
	}
	return requests, nil
}

func (s *CancellationService) loadSession(ctx context.Context, id int64) (*models.Session, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// affectedStudents maps the schedule-level quota movement onto each
// enrolled student, and collects the linked user ids for notification
// fan-out. The values come straight from the stored columns; nothing is
// recomputed per student.
func (s *CancellationService) affectedStudents(ctx context.Context, scheduleID int64, before, after quota.Usage) ([]dto.AffectedStudent, []int64) {
	students, err := s.students.ListBySchedule(ctx, scheduleID)
	if err != nil {
		s.logger.Warn("failed to list affected students", zap.Int64("schedule_id", scheduleID), zap.Error(err))
		return []dto.AffectedStudent{}, nil
	}

	affected := make([]dto.AffectedStudent, 0, len(students))
	userIDs := make([]int64, 0, len(students))
	for _, st := range students {
		a := dto.AffectedStudent{
			StudentID:      st.ID,
			StudentName:    strings.TrimSpace(st.FirstName + " " + st.LastName),
			OldMakeupQuota: before.Remaining,
			NewMakeupQuota: after.Remaining,
		}
		if after.Remaining == 0 {
			a.Warning = "no makeup quota remaining"
		} else if after.Remaining <= s.cfg.WarnThreshold {
			a.Warning = fmt.Sprintf("only %d makeup session(s) remaining", after.Remaining)
		}
		affected = append(affected, a)
		if st.UserID != nil {
			userIDs = append(userIDs, *st.UserID)
		}
	}
	return affected, userIDs
}

func (s *CancellationService) refundQuota(ctx context.Context, scheduleID int64) {
	if err := s.schedules.RefundQuota(ctx, scheduleID); err != nil {
		s.logger.Error("failed to refund makeup quota", zap.Int64("schedule_id", scheduleID), zap.Error(err))
	}
}

func (s *CancellationService) recordDecision(ctx context.Context, actorID int64, action string, requestID int64, oldRemaining, newRemaining int, reason string) {
	oldVal := fmt.Sprintf("%d", oldRemaining)
	newVal := fmt.Sprintf("%d", newRemaining)
	entry := &models.AuditLog{
		ActorID:    actorID,
		Action:     action,
		EntityType: "cancellation_request",
		EntityID:   requestID,
		Reason:     reason,
	}
	if action == models.AuditCancellationApproved {
		entry.OldValue = &oldVal
		entry.NewValue = &newVal
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record decision audit entry", zap.Int64("request_id", requestID), zap.Error(err))
	}
}
