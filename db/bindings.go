package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveBinding inserts the binding or overwrites the existing one for the same Telegram user.
func (s *Store) SaveBinding(ctx context.Context, b Binding) error {
	b.DateAdded = s.today()

	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"tg_user", "user_name", "user_token", "user_gid", "date_added"}),
	}).Create(&b).Error
	if err != nil {
		return fmt.Errorf("SaveBinding: failed to save binding for user %d: %w", b.UserID, err)
	}
	return nil
}

func (s *Store) GetBinding(ctx context.Context, userID int64) (Binding, error) {
	var b Binding
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&b).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Binding{}, ErrNotFound
	}
	if err != nil {
		return Binding{}, fmt.Errorf("GetBinding: failed to fetch binding for user %d: %w", userID, err)
	}
	return b, nil
}

// HandlesByName returns the Telegram handle bound to each of the given display names.
// Names without a known handle are absent from the result.
func (s *Store) HandlesByName(ctx context.Context, names []string) (map[string]string, error) {
	out := make(map[string]string, len(names))
	if len(names) == 0 {
		return out, nil
	}

	var rows []Binding
	err := s.DB.WithContext(ctx).
		Select("user_name", "tg_user").
		Where("user_name IN ? AND tg_user IS NOT NULL AND tg_user <> ''", names).
		Order("date_added DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("HandlesByName: %w", err)
	}
	for _, r := range rows {
		if _, seen := out[r.UserName]; seen || r.TGUser == nil {
			continue
		}
		out[r.UserName] = *r.TGUser
	}
	return out, nil
}
