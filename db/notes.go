package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SaveNote stores today's note for userName, replacing an earlier one from the same day.
func (s *Store) SaveNote(ctx context.Context, userName, text string) error {
	note := Note{
		UserName:  userName,
		Note:      text,
		DateAdded: s.today(),
	}

	err := s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_name"}, {Name: "date_added"}},
		DoUpdates: clause.AssignmentColumns([]string{"note"}),
	}).Create(&note).Error
	if err != nil {
		return fmt.Errorf("SaveNote: failed to save note for %s: %w", userName, err)
	}
	return nil
}

// TodayNote returns today's note for userName, or ErrNotFound.
func (s *Store) TodayNote(ctx context.Context, userName string) (string, error) {
	var note Note
	err := s.DB.WithContext(ctx).
		Where("user_name = ? AND date_added = ?", userName, s.today()).
		First(&note).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("TodayNote: failed to fetch note for %s: %w", userName, err)
	}
	return note.Note, nil
}

// TodayNotes returns every note written today.
func (s *Store) TodayNotes(ctx context.Context) ([]Note, error) {
	var notes []Note
	err := s.DB.WithContext(ctx).Where("date_added = ?", s.today()).Find(&notes).Error
	if err != nil {
		return nil, fmt.Errorf("TodayNotes: %w", err)
	}
	return notes, nil
}
