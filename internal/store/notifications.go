package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/charlesng35/lifeadmin/internal/models"
	apperrors "github.com/charlesng35/lifeadmin/pkg/errors"
)

// NotificationFilter selects notifications. Payload matches top-level JSON keys by value.
type NotificationFilter struct {
	IDs     []string
	UserID  string
	Types   []models.NotificationType
	Unread  *bool
	Created *TimeRange
	Title   *string
	Message *string
	Payload map[string]string
	Limit   int
	Offset  int
}

// ReferenceQuery looks up notification references for one resource on one day. An empty
// ReminderKind matches any kind.
type ReferenceQuery struct {
	UserID       string
	Type         models.NotificationType
	ResourceKind string
	ResourceID   string
	ReminderKind string
	Day          string
}

func (s *Store) notificationQuery(ctx context.Context, filter NotificationFilter) *gorm.DB {
	q := s.conn(ctx).Model(&models.Notification{})
	if len(filter.IDs) > 0 {
		q = q.Where("id IN ?", filter.IDs)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if len(filter.Types) > 0 {
		q = q.Where("type IN ?", filter.Types)
	}
	if filter.Unread != nil {
		q = q.Where("is_read = ?", !*filter.Unread)
	}
	if filter.Title != nil {
		q = q.Where("title = ?", *filter.Title)
	}
	if filter.Message != nil {
		q = q.Where("message = ?", *filter.Message)
	}
	for key, value := range filter.Payload {
		q = q.Where(datatypes.JSONQuery("payload").Equals(value, key))
	}
	return filter.Created.apply(q, "created_at")
}

// FindNotifications returns notifications newest first.
func (s *Store) FindNotifications(ctx context.Context, filter NotificationFilter) ([]models.Notification, error) {
	var rows []models.Notification
	q := applyPaging(s.notificationQuery(ctx, filter), filter.Limit, filter.Offset)
	if err := q.Order("created_at DESC").Order("id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("store: find notifications: %w", err)
	}
	return rows, nil
}

// CountNotifications counts notifications matching the filter, ignoring paging.
func (s *Store) CountNotifications(ctx context.Context, filter NotificationFilter) (int64, error) {
	var count int64
	if err := s.notificationQuery(ctx, filter).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("store: count notifications: %w", err)
	}
	return count, nil
}

// FindNotification loads a single notification owned by userID.
func (s *Store) FindNotification(ctx context.Context, userID, id string) (*models.Notification, error) {
	var row models.Notification
	if err := s.conn(ctx).Take(&row, "id = ? AND user_id = ?", id, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("store: find notification: %w", err)
	}
	return &row, nil
}

// CreateNotification inserts the notification and its references in one transaction.
// Reference rows inherit the notification's id, owner and type.
func (s *Store) CreateNotification(ctx context.Context, n *models.Notification, refs []models.NotificationReference) error {
	if n == nil {
		return errors.New("store: create notification: nil notification")
	}
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(n).Error; err != nil {
			return err
		}
		for i := range refs {
			ref := refs[i]
			ref.NotificationID = n.ID
			ref.UserID = n.UserID
			ref.Type = n.Type
			if err := tx.Create(&ref).Error; err != nil {
				return err
			}
			refs[i] = ref
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateNotification
		}
		return fmt.Errorf("store: create notification: %w", err)
	}
	return nil
}

// HasReference reports whether a matching reference row exists.
func (s *Store) HasReference(ctx context.Context, query ReferenceQuery) (bool, error) {
	q := s.conn(ctx).Model(&models.NotificationReference{}).
		Where("user_id = ? AND type = ? AND resource_kind = ? AND resource_id = ? AND day = ?",
			query.UserID, query.Type, query.ResourceKind, query.ResourceID, query.Day)
	if query.ReminderKind != "" {
		q = q.Where("reminder_kind = ?", query.ReminderKind)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, fmt.Errorf("store: lookup notification reference: %w", err)
	}
	return count > 0, nil
}

// MarkNotificationsRead flags the given notifications, or every unread one when ids is empty.
func (s *Store) MarkNotificationsRead(ctx context.Context, userID string, ids []string, at time.Time) (int64, error) {
	q := s.conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false)
	if len(ids) > 0 {
		q = q.Where("id IN ?", ids)
	}
	res := q.Updates(map[string]any{
		"is_read": true,
		"read_at": utc(at),
	})
	if res.Error != nil {
		return 0, fmt.Errorf("store: mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// MarkNotificationUnread clears the read flag on one notification.
func (s *Store) MarkNotificationUnread(ctx context.Context, userID, id string) error {
	res := s.conn(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]any{
			"is_read": false,
			"read_at": nil,
		})
	if res.Error != nil {
		return fmt.Errorf("store: mark notification unread: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// DeleteNotifications removes the given notifications, or all of the user's when ids is empty.
// References are removed with them so a deleted reminder may be sent again.
func (s *Store) DeleteNotifications(ctx context.Context, userID string, ids []string) (int64, error) {
	var deleted int64
	err := s.conn(ctx).Transaction(func(tx *gorm.DB) error {
		refs := tx.Where("user_id = ?", userID)
		if len(ids) > 0 {
			refs = refs.Where("notification_id IN ?", ids)
		}
		if err := refs.Delete(&models.NotificationReference{}).Error; err != nil {
			return err
		}

		rows := tx.Where("user_id = ?", userID)
		if len(ids) > 0 {
			rows = rows.Where("id IN ?", ids)
		}
		res := rows.Delete(&models.Notification{})
		if res.Error != nil {
			return res.Error
		}
		deleted = res.RowsAffected
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("store: delete notifications: %w", err)
	}
	return deleted, nil
}
