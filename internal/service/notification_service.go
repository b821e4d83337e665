package service

import (
	"context"
	"log/slog"

	"purpaws/internal/middleware"
	"purpaws/internal/models"
	"purpaws/internal/notifications"
	"purpaws/internal/observability"
	"purpaws/internal/repository"
)

// NotificationService stores notifications and pushes them to connected clients.
type NotificationService struct {
	repos    *repository.Repositories
	notifier *notifications.Notifier
}

// NewNotificationService returns a NotificationService. notifier may be nil.
func NewNotificationService(repos *repository.Repositories, notifier *notifications.Notifier) *NotificationService {
	return &NotificationService{repos: repos, notifier: notifier}
}

// Notify records one notification per (recipient, report). It reports whether a new
// row was written; repeated calls for the same pair are no-ops. A report is required
// because the uniqueness guard cannot match on a NULL report.
func (s *NotificationService) Notify(ctx context.Context, recipientID uint, reportID *uint, message string) (bool, error) {
	if reportID == nil {
		return false, models.NewFieldError("pet_report_id", "A notification must reference a pet report")
	}
	n := &models.Notification{RecipientID: recipientID, PetReportID: reportID, Message: message}
	created, err := s.repos.Notifications.CreateIfAbsent(ctx, n)
	if err != nil || !created {
		return false, err
	}
	observability.NotificationsCreated.Inc()
	s.publish(ctx, recipientID, notifications.Event{Type: notifications.EventNotificationCreated, Payload: n})
	return true, nil
}

// List returns the recipient's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID uint, unreadOnly bool) ([]models.Notification, error) {
	return s.repos.Notifications.ListForRecipient(ctx, recipientID, unreadOnly)
}

func (s *NotificationService) UnreadCount(ctx context.Context, recipientID uint) (int64, error) {
	return s.repos.Notifications.CountUnread(ctx, recipientID)
}

// MarkRead marks one notification read. Only its recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, actorID, id uint) (*models.Notification, error) {
	n, err := s.repos.Notifications.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != actorID {
		return nil, models.NewPermissionDeniedError("You can only mark your own notifications as read")
	}
	if !n.IsRead {
		if err := s.repos.Notifications.MarkRead(ctx, id); err != nil {
			return nil, err
		}
		n.IsRead = true
		s.publishUnread(ctx, actorID)
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the recipient read.
func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID uint) (int64, error) {
	updated, err := s.repos.Notifications.MarkAllRead(ctx, recipientID)
	if err != nil {
		return 0, err
	}
	if updated > 0 {
		s.publishUnread(ctx, recipientID)
	}
	return updated, nil
}

func (s *NotificationService) publishUnread(ctx context.Context, userID uint) {
	count, err := s.repos.Notifications.CountUnread(ctx, userID)
	if err != nil {
		return
	}
	s.publish(ctx, userID, notifications.Event{
		Type:    notifications.EventUnreadCount,
		Payload: map[string]int64{"unread": count},
	})
}

// publish is best effort; the stored row is the source of truth.
func (s *NotificationService) publish(ctx context.Context, userID uint, ev notifications.Event) {
	if err := s.notifier.PublishEvent(ctx, userID, ev); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to publish notification event",
			slog.Uint64("recipient_id", uint64(userID)),
			slog.String("type", ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
