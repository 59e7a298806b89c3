package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/charlesng35/lifeadmin/internal/models"
	apperrors "github.com/charlesng35/lifeadmin/pkg/errors"
)

// FindUser loads a user with settings. A missing settings row is replaced by defaults.
func (s *Store) FindUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.conn(ctx).Preload("Settings").Take(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("store: find user: %w", err)
	}
	if user.Settings == nil {
		defaults := models.DefaultUserSettings(user.ID)
		user.Settings = &defaults
	}
	return &user, nil
}
