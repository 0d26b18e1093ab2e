package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/english-korat/ekls-api/internal/models"
	"github.com/english-korat/ekls-api/pkg/jobs"
)

type notificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error)
	MarkRead(ctx context.Context, id, userID int64) error
}

type adminLister interface {
	ListAdmins(ctx context.Context) ([]models.User, error)
}

// NotificationService builds bilingual notifications for the cancellation
// workflow and hands delivery to a background queue so approvals never
// block on persistence of the fan-out.
type NotificationService struct {
	repo   notificationStore
	users  adminLister
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewNotificationService constructs the service. Call Queue() to obtain
// the delivery queue and Start it with the application context.
func NewNotificationService(repo notificationStore, users adminLister, opts jobs.Options, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{repo: repo, users: users, logger: logger}
	s.queue = jobs.NewQueue("notifications", s.deliver, opts)
	return s
}

// Queue exposes the delivery queue for lifecycle management.
func (s *NotificationService) Queue() *jobs.Queue { return s.queue }

func (s *NotificationService) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(*models.Notification)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID))
		return nil
	}
	return s.repo.Create(ctx, n)
}

func (s *NotificationService) enqueue(n *models.Notification) {
	if err := s.queue.Enqueue(jobs.Job{ID: uuid.NewString(), Type: "notification", Payload: n}); err != nil {
		s.logger.Warn("failed to enqueue notification", zap.Int64("user_id", n.UserID), zap.Error(err))
	}
}

// CancellationRequested notifies admins that a session cancellation
// awaits their decision.
func (s *NotificationService) CancellationRequested(ctx context.Context, scheduleName string, sessionDate time.Time, reason string) {
	admins, err := s.users.ListAdmins(ctx)
	if err != nil {
		s.logger.Warn("failed to list admins for notification", zap.Error(err))
		return
	}
	date := sessionDate.Format("2006-01-02")
	for _, admin := range admins {
		s.enqueue(&models.Notification{
			UserID:    admin.ID,
			Title:     "Cancellation request pending",
			TitleTh:   "มีคำขอยกเลิกคาบเรียนรอการอนุมัติ",
			Message:   fmt.Sprintf("A cancellation was requested for %s on %s: %s", scheduleName, date, reason),
			MessageTh: fmt.Sprintf("มีคำขอยกเลิกคาบเรียน %s วันที่ %s เหตุผล: %s", scheduleName, date, reason),
			Type:      models.NotificationWarning,
		})
	}
}

// CancellationApproved notifies the requester and affected students that
// the session was cancelled and quota consumed.
func (s *NotificationService) CancellationApproved(ctx context.Context, userIDs []int64, scheduleName string, sessionDate time.Time) {
	date := sessionDate.Format("2006-01-02")
	for _, id := range userIDs {
		s.enqueue(&models.Notification{
			UserID:    id,
			Title:     "Session cancelled",
			TitleTh:   "คาบเรียนถูกยกเลิก",
			Message:   fmt.Sprintf("The session of %s on %s was cancelled. A makeup session will be scheduled.", scheduleName, date),
			MessageTh: fmt.Sprintf("คาบเรียน %s วันที่ %s ถูกยกเลิก จะมีการนัดเรียนชดเชย", scheduleName, date),
			Type:      models.NotificationInfo,
		})
	}
}

// CancellationRejected notifies the requester that the session stays on.
func (s *NotificationService) CancellationRejected(ctx context.Context, requesterID int64, scheduleName string, sessionDate time.Time, note string) {
	date := sessionDate.Format("2006-01-02")
	msg := fmt.Sprintf("The cancellation request for %s on %s was rejected.", scheduleName, date)
	msgTh := fmt.Sprintf("คำขอยกเลิกคาบเรียน %s วันที่ %s ไม่ได้รับการอนุมัติ", scheduleName, date)
	if note != "" {
		msg += " " + note
		msgTh += " " + note
	}
	s.enqueue(&models.Notification{
		UserID:    requesterID,
		Title:     "Cancellation request rejected",
		TitleTh:   "คำขอยกเลิกคาบเรียนถูกปฏิเสธ",
		Message:   msg,
		MessageTh: msgTh,
		Type:      models.NotificationError,
	})
}

// MakeupScheduled notifies students that a makeup session was created.
func (s *NotificationService) MakeupScheduled(ctx context.Context, userIDs []int64, scheduleName string, makeupDate time.Time) {
	date := makeupDate.Format("2006-01-02")
	for _, id := range userIDs {
		s.enqueue(&models.Notification{
			UserID:    id,
			Title:     "Makeup session scheduled",
			TitleTh:   "นัดเรียนชดเชยแล้ว",
			Message:   fmt.Sprintf("A makeup session for %s was scheduled on %s.", scheduleName, date),
			MessageTh: fmt.Sprintf("คาบเรียนชดเชยของ %s ถูกนัดในวันที่ %s", scheduleName, date),
			Type:      models.NotificationSuccess,
		})
	}
}

// ListForUser returns a user's notifications.
func (s *NotificationService) ListForUser(ctx context.Context, userID int64, unreadOnly bool) ([]models.Notification, error) {
	return s.repo.ListByUser(ctx, userID, unreadOnly)
}

// MarkRead flags one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, id, userID int64) error {
	return s.repo.MarkRead(ctx, id, userID)
}
