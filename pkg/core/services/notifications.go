package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lifeline-network/bloodmatch/pkg/core/model"
	"github.com/lifeline-network/bloodmatch/pkg/db"
)

// InboxLimit is the number of notifications returned by ListNotifications
const InboxLimit = 50

// ListNotifications returns the newest notifications for a user
func ListNotifications(ctx context.Context, store db.NotificationStore, logger *zap.Logger, userID string) ([]model.Notification, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}

	notifications, err := store.ListNotifications(ctx, userID, InboxLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	logger.Debug("Listed notifications", zap.String("user_id", userID), zap.Int("count", len(notifications)))
	return notifications, nil
}

// MarkNotificationRead marks one of the user's notifications as read.
// A notification owned by another user is reported as not found.
func MarkNotificationRead(ctx context.Context, store db.NotificationStore, logger *zap.Logger, userID, notificationID string) error {
	if userID == "" || notificationID == "" {
		return fmt.Errorf("%w: user id and notification id are required", model.ErrInvalidInput)
	}

	if err := store.MarkNotificationRead(ctx, userID, notificationID); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	logger.Debug("Marked notification read", zap.String("user_id", userID), zap.String("notification_id", notificationID))
	return nil
}

// MarkAllNotificationsRead marks every unread notification of the user as read
// and returns how many changed
func MarkAllNotificationsRead(ctx context.Context, store db.NotificationStore, logger *zap.Logger, userID string) (int, error) {
	if userID == "" {
		return 0, fmt.Errorf("%w: user id is required", model.ErrInvalidInput)
	}

	count, err := store.MarkAllNotificationsRead(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	logger.Info("Marked all notifications read", zap.String("user_id", userID), zap.Int("count", count))
	return count, nil
}
