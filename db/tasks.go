package db

import (
	"context"
	"fmt"
)

// TodayTasks returns the rows the extraction job wrote for today, ordered by user.
func (s *Store) TodayTasks(ctx context.Context) ([]TaskRow, error) {
	var rows []TaskRow
	err := s.DB.WithContext(ctx).
		Where("date_extracted = ?", s.today()).
		Order("user_name, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("TodayTasks: failed to fetch tasks: %w", err)
	}
	return rows, nil
}
