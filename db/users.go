package db

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ProvisionedToken reads the permanent token provisioned for a display name.
func (s *Store) ProvisionedToken(ctx context.Context, name string) (ProvisionedUser, error) {
	var u ProvisionedUser
	err := s.DB.WithContext(ctx).Where("name = ?", name).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ProvisionedUser{}, ErrNotFound
	}
	if err != nil {
		return ProvisionedUser{}, fmt.Errorf("ProvisionedToken: failed to fetch token for %s: %w", name, err)
	}
	return u, nil
}

// ProvisionedUsers lists every provisioned display name with its token.
func (s *Store) ProvisionedUsers(ctx context.Context) ([]ProvisionedUser, error) {
	var users []ProvisionedUser
	err := s.DB.WithContext(ctx).Select("name", "user_gid", "user_token").Order("name").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("ProvisionedUsers: %w", err)
	}
	return users, nil
}
