package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/charlesng35/lifeadmin/internal/models"
	"github.com/charlesng35/lifeadmin/internal/monitoring"
	"github.com/charlesng35/lifeadmin/internal/notify"
	"github.com/charlesng35/lifeadmin/internal/store"
	apperrors "github.com/charlesng35/lifeadmin/pkg/errors"
	"github.com/charlesng35/lifeadmin/pkg/logger"
)

// NotificationStore is the persistence surface used by NotificationService.
type NotificationStore interface {
	referenceLookup
	CreateNotification(ctx context.Context, n *models.Notification, refs []models.NotificationReference) error
	FindNotifications(ctx context.Context, filter store.NotificationFilter) ([]models.Notification, error)
	FindNotification(ctx context.Context, userID, id string) (*models.Notification, error)
	MarkNotificationsRead(ctx context.Context, userID string, ids []string, at time.Time) (int64, error)
	MarkNotificationUnread(ctx context.Context, userID, id string) error
	DeleteNotifications(ctx context.Context, userID string, ids []string) (int64, error)
	FindUser(ctx context.Context, id string) (*models.User, error)
}

// Dispatcher fans a notification out to external channels.
type Dispatcher interface {
	Dispatch(ctx context.Context, to notify.Recipient, msg notify.Message, prefs notify.Preferences) notify.DispatchResult
}

// NotificationDTO represents the API-friendly notification payload.
type NotificationDTO struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload,omitempty"`
	IsRead    bool           `json:"is_read"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	ReadAt    *time.Time     `json:"read_at,omitempty"`
}

// ResourceRef links a notification to the entity it is about.
type ResourceRef struct {
	Kind         string
	ID           string
	ReminderKind string
}

// NotifyInput defines a notification to create and deliver.
type NotifyInput struct {
	UserID  string
	Type    models.NotificationType
	Title   string
	Message string
	Payload map[string]any
	// Resource enables reference based duplicate suppression.
	Resource *ResourceRef
	// DedupByContent suppresses an identical title and message created today when Resource is nil.
	DedupByContent bool
}

// NotifyResult reports what Notify did. Delivery is nil when nothing was dispatched.
type NotifyResult struct {
	Notification *NotificationDTO
	Suppressed   bool
	Delivery     *notify.DispatchResult
}

// ListNotificationsInput defines filters for querying user notifications.
type ListNotificationsInput struct {
	UserID     string
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationOption customises a NotificationService.
type NotificationOption func(*NotificationService)

// WithClock injects the time source used for created timestamps and day windows.
func WithClock(clock func() time.Time) NotificationOption {
	return func(s *NotificationService) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLocation sets the timezone that defines a calendar day.
func WithLocation(loc *time.Location) NotificationOption {
	return func(s *NotificationService) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithNotificationLogger overrides the service logger.
func WithNotificationLogger(log *zap.Logger) NotificationOption {
	return func(s *NotificationService) {
		if log != nil {
			s.log = log
		}
	}
}

// NotificationService creates, deduplicates and delivers user notifications.
type NotificationService struct {
	store      NotificationStore
	dispatcher Dispatcher
	guard      *DuplicateGuard
	clock      func() time.Time
	location   *time.Location
	log        *zap.Logger
}

// NewNotificationService constructs a NotificationService. A nil dispatcher stores
// notifications without external delivery.
func NewNotificationService(st NotificationStore, dispatcher Dispatcher, opts ...NotificationOption) (*NotificationService, error) {
	if st == nil {
		return nil, errors.New("notification service: store is required")
	}
	svc := &NotificationService{
		store:      st,
		dispatcher: dispatcher,
		clock:      time.Now,
		location:   time.Local,
		log:        logger.WithModule("notifications"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}

	guard, err := NewDuplicateGuard(st, svc.clock, svc.location)
	if err != nil {
		return nil, err
	}
	svc.guard = guard
	return svc, nil
}

// Guard exposes the duplicate guard for callers that want to check before doing work.
func (s *NotificationService) Guard() *DuplicateGuard {
	return s.guard
}

// Notify runs the guard, persists the notification with its references and dispatches it.
// Channel failures are reported in the result, never as errors.
func (s *NotificationService) Notify(ctx context.Context, input NotifyInput) (*NotifyResult, error) {
	ctx = ensureContext(ctx)
	if err := input.validate(); err != nil {
		return nil, err
	}
	notifType := string(input.Type)
	at := s.clock()

	if input.Resource != nil || input.DedupByContent {
		check := DuplicateCheck{
			UserID:  input.UserID,
			Type:    input.Type,
			Title:   input.Title,
			Message: input.Message,
			At:      at,
		}
		if input.Resource != nil {
			check.ResourceKind = input.Resource.Kind
			check.ResourceID = input.Resource.ID
			check.ReminderKind = input.Resource.ReminderKind
		}
		suppress, err := s.guard.ShouldSuppress(ctx, check)
		if err != nil {
			monitoring.RecordNotification(notifType, "failed")
			return nil, fmt.Errorf("notification service: %w", err)
		}
		if suppress {
			monitoring.RecordNotification(notifType, "suppressed")
			return &NotifyResult{Suppressed: true}, nil
		}
	}

	notification := &models.Notification{
		BaseModel: models.BaseModel{CreatedAt: at.UTC(), UpdatedAt: at.UTC()},
		UserID:    input.UserID,
		Type:      input.Type,
		Title:     strings.TrimSpace(input.Title),
		Message:   strings.TrimSpace(input.Message),
	}
	if len(input.Payload) > 0 {
		data, err := json.Marshal(input.Payload)
		if err != nil {
			monitoring.RecordNotification(notifType, "failed")
			return nil, fmt.Errorf("notification service: marshal payload: %w", err)
		}
		notification.Payload = datatypes.JSON(data)
	}

	var refs []models.NotificationReference
	if input.Resource != nil {
		refs = append(refs, models.NotificationReference{
			ResourceKind: input.Resource.Kind,
			ResourceID:   input.Resource.ID,
			ReminderKind: input.Resource.ReminderKind,
			Day:          s.guard.Day(at),
		})
	}

	if err := s.store.CreateNotification(ctx, notification, refs); err != nil {
		if errors.Is(err, store.ErrDuplicateNotification) {
			s.log.Info("concurrent duplicate notification discarded",
				zap.String("user_id", input.UserID),
				zap.String("type", notifType),
			)
			monitoring.RecordNotification(notifType, "suppressed")
			return &NotifyResult{Suppressed: true}, nil
		}
		monitoring.RecordNotification(notifType, "failed")
		return nil, fmt.Errorf("notification service: %w", err)
	}
	monitoring.RecordNotification(notifType, "created")

	dto := mapNotification(*notification)
	result := &NotifyResult{Notification: &dto}
	result.Delivery = s.deliver(ctx, notification)
	return result, nil
}

func (s *NotificationService) deliver(ctx context.Context, n *models.Notification) *notify.DispatchResult {
	if s.dispatcher == nil {
		return nil
	}

	user, err := s.store.FindUser(ctx, n.UserID)
	if err != nil {
		s.log.Warn("skipping delivery, recipient unavailable",
			zap.String("user_id", n.UserID),
			zap.String("notification_id", n.ID),
			zap.Error(err),
		)
		return nil
	}

	settings := user.Settings
	if settings == nil {
		defaults := models.DefaultUserSettings(user.ID)
		settings = &defaults
	}

	delivery := s.dispatcher.Dispatch(ctx,
		notify.Recipient{
			UserID: user.ID,
			Name:   user.DisplayName(),
			Email:  user.Email,
			Phone:  user.Phone,
		},
		notify.Message{
			ID:        n.ID,
			Type:      string(n.Type),
			Title:     n.Title,
			Body:      n.Message,
			CreatedAt: n.CreatedAt,
		},
		notify.Preferences{
			Email:    settings.EmailNotifications,
			SMS:      settings.SMSNotifications,
			WhatsApp: settings.WhatsAppNotifications,
		},
	)

	if attempted := delivery.Attempted(); attempted > 0 {
		s.log.Info("notification delivered",
			zap.String("notification_id", n.ID),
			zap.Int("attempted", attempted),
			zap.Int("succeeded", delivery.Succeeded()),
		)
	}
	return &delivery
}

// ListForUser returns notifications for the supplied user ordered by recency, plus the total.
func (s *NotificationService) ListForUser(ctx context.Context, input ListNotificationsInput) ([]NotificationDTO, int64, error) {
	ctx = ensureContext(ctx)
	userID := strings.TrimSpace(input.UserID)
	if userID == "" {
		return nil, 0, apperrors.NewBadRequest("user id is required")
	}

	limit := input.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	filter := store.NotificationFilter{
		UserID: userID,
		Limit:  limit,
		Offset: max(0, input.Offset),
	}
	if input.UnreadOnly {
		unread := true
		filter.Unread = &unread
	}

	rows, err := s.store.FindNotifications(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("notification service: list notifications: %w", err)
	}
	total, err := s.store.CountNotifications(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("notification service: count notifications: %w", err)
	}
	return mapNotificationRows(rows), total, nil
}

// UnreadCount returns the number of unread notifications for the user.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	unread := true
	count, err := s.store.CountNotifications(ctx, store.NotificationFilter{UserID: userID, Unread: &unread})
	if err != nil {
		return 0, fmt.Errorf("notification service: unread count: %w", err)
	}
	return count, nil
}

// MarkRead sets the notification read flag for a user.
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	notification, err := s.store.FindNotification(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if notification.IsRead {
		dto := mapNotification(*notification)
		return &dto, nil
	}

	readAt := s.clock().UTC()
	if _, err := s.store.MarkNotificationsRead(ctx, userID, []string{notification.ID}, readAt); err != nil {
		return nil, fmt.Errorf("notification service: mark read: %w", err)
	}

	notification.IsRead = true
	notification.ReadAt = &readAt
	dto := mapNotification(*notification)
	return &dto, nil
}

// MarkUnread unsets the notification read flag.
func (s *NotificationService) MarkUnread(ctx context.Context, userID, notificationID string) (*NotificationDTO, error) {
	ctx = ensureContext(ctx)
	notification, err := s.store.FindNotification(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if err := s.store.MarkNotificationUnread(ctx, userID, notification.ID); err != nil {
		return nil, err
	}

	notification.IsRead = false
	notification.ReadAt = nil
	dto := mapNotification(*notification)
	return &dto, nil
}

// MarkAllRead marks all notifications for the user as read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	updated, err := s.store.MarkNotificationsRead(ctx, userID, nil, s.clock().UTC())
	if err != nil {
		return 0, fmt.Errorf("notification service: mark all read: %w", err)
	}
	return updated, nil
}

// Delete removes a notification owned by the supplied user.
func (s *NotificationService) Delete(ctx context.Context, userID, notificationID string) error {
	ctx = ensureContext(ctx)
	notificationID = strings.TrimSpace(notificationID)
	if notificationID == "" {
		return apperrors.NewBadRequest("notification id is required")
	}
	deleted, err := s.store.DeleteNotifications(ctx, userID, []string{notificationID})
	if err != nil {
		return fmt.Errorf("notification service: delete notification: %w", err)
	}
	if deleted == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteMany removes the listed notifications owned by the user.
func (s *NotificationService) DeleteMany(ctx context.Context, userID string, ids []string) (int64, error) {
	ctx = ensureContext(ctx)
	ids = normaliseIDs(ids)
	if len(ids) == 0 {
		return 0, apperrors.NewBadRequest("at least one notification id is required")
	}
	deleted, err := s.store.DeleteNotifications(ctx, userID, ids)
	if err != nil {
		return 0, fmt.Errorf("notification service: delete notifications: %w", err)
	}
	return deleted, nil
}

// DeleteAll removes every notification owned by the user.
func (s *NotificationService) DeleteAll(ctx context.Context, userID string) (int64, error) {
	ctx = ensureContext(ctx)
	if strings.TrimSpace(userID) == "" {
		return 0, apperrors.NewBadRequest("user id is required")
	}
	deleted, err := s.store.DeleteNotifications(ctx, userID, nil)
	if err != nil {
		return 0, fmt.Errorf("notification service: delete all notifications: %w", err)
	}
	return deleted, nil
}

func (in NotifyInput) validate() error {
	if strings.TrimSpace(in.UserID) == "" {
		return apperrors.NewBadRequest("user id is required")
	}
	if !in.Type.Valid() {
		return apperrors.NewBadRequest(fmt.Sprintf("unknown notification type %q", in.Type))
	}
	if strings.TrimSpace(in.Title) == "" {
		return apperrors.NewBadRequest("title is required")
	}
	if in.Resource != nil && (in.Resource.Kind == "" || in.Resource.ID == "") {
		return apperrors.NewBadRequest("resource kind and id are required")
	}
	return nil
}

func mapNotificationRows(rows []models.Notification) []NotificationDTO {
	items := make([]NotificationDTO, 0, len(rows))
	for _, row := range rows {
		items = append(items, mapNotification(row))
	}
	return items
}

func mapNotification(row models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:        row.ID,
		UserID:    row.UserID,
		Type:      string(row.Type),
		Title:     row.Title,
		Message:   row.Message,
		Payload:   decodeJSON(row.Payload),
		IsRead:    row.IsRead,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
		ReadAt:    row.ReadAt,
	}
}

func decodeJSON(data datatypes.JSON) map[string]any {
	if len(data) == 0 {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}
