package usage

import (
	"errors"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// GuestUsername is reported for usage records without a username.
const GuestUsername = "Guest"

// ChatUsage is the legacy per-user chat counter: one row per client-issued
// user id, usage_count incremented by exactly 1 per tracked call.
type ChatUsage struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	UserID       string    `gorm:"uniqueIndex;not null" json:"user_id"`
	Username     *string   `json:"username"`
	Email        *string   `json:"email"`
	IsRegistered bool      `gorm:"index;not null;default:false" json:"is_registered"`
	UsageCount   int       `gorm:"not null;default:0" json:"usage_count"`
	FirstUsedAt  time.Time `gorm:"not null" json:"first_used_at"`
	LastUsedAt   time.Time `gorm:"index;not null" json:"last_used_at"`
}

// TableName keeps the legacy table name.
func (ChatUsage) TableName() string {
	return "chat_usage"
}

// TrackInput carries one tracked chat call. Username and Email overwrite
// stored values only when non-nil; IsRegistered overwrites unconditionally,
// matching the legacy endpoint.
type TrackInput struct {
	UserID       string
	Username     *string
	Email        *string
	IsRegistered bool
}

// TrackResult reports the outcome of a tracking call.
type TrackResult struct {
	Created    bool
	UsageCount int
}

// Track creates a usage record with count 1 on first sight of a user id, or
// increments the existing record's count by 1.
func Track(db *gorm.DB, logger *slog.Logger, input TrackInput) (TrackResult, error) {
	if input.UserID == "" {
		return TrackResult{}, errors.New("userId is required")
	}

	now := time.Now().UTC()

	var existing ChatUsage
	err := db.Where("user_id = ?", input.UserID).First(&existing).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return TrackResult{}, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		record := ChatUsage{
			UserID:       input.UserID,
			Username:     input.Username,
			Email:        input.Email,
			IsRegistered: input.IsRegistered,
			UsageCount:   1,
			FirstUsedAt:  now,
			LastUsedAt:   now,
		}
		err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
			return tx.Create(&record).Error
		})
		if err != nil {
			return TrackResult{}, err
		}
		return TrackResult{Created: true, UsageCount: 1}, nil
	}

	updates := map[string]interface{}{
		"usage_count":   gorm.Expr("usage_count + 1"),
		"last_used_at":  now,
		"is_registered": input.IsRegistered,
	}
	if input.Username != nil {
		updates["username"] = *input.Username
	}
	if input.Email != nil {
		updates["email"] = *input.Email
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&ChatUsage{}).Where("user_id = ?", input.UserID).Updates(updates).Error
	})
	if err != nil {
		return TrackResult{}, err
	}

	return TrackResult{Created: false, UsageCount: existing.UsageCount + 1}, nil
}

// TopUser is one entry of the top-users-by-usage listing.
type TopUser struct {
	UserID       string  `json:"user_id"`
	Username     *string `json:"username"`
	Email        *string `json:"email"`
	IsRegistered bool    `json:"is_registered"`
	UsageCount   int     `json:"usage_count"`
	LastUsedAt   string  `json:"last_used_at"`
}

// Stats aggregates the legacy usage counters. Empty storage yields
// zero-valued counts and an empty top-users list, never an error.
type Stats struct {
	TotalUsage      int64     `json:"total_usage"`
	TotalUsers      int64     `json:"total_users"`
	RegisteredUsers int64     `json:"registered_users"`
	GuestUsers      int64     `json:"guest_users"`
	RecentActivity  int64     `json:"recent_activity"`
	TopUsers        []TopUser `json:"topUsers"`
}

// GetStats computes the usage statistics fresh from current storage state.
func GetStats(db *gorm.DB) (Stats, error) {
	stats := Stats{TopUsers: []TopUser{}}

	// COALESCE keeps the sum at 0 rather than NULL when the table is empty
	err := db.Model(&ChatUsage{}).
		Select("COALESCE(SUM(usage_count), 0)").
		Scan(&stats.TotalUsage).Error
	if err != nil {
		return Stats{}, err
	}

	if err := db.Model(&ChatUsage{}).Count(&stats.TotalUsers).Error; err != nil {
		return Stats{}, err
	}
	if err := db.Model(&ChatUsage{}).Where("is_registered = ?", true).Count(&stats.RegisteredUsers).Error; err != nil {
		return Stats{}, err
	}
	if err := db.Model(&ChatUsage{}).Where("is_registered = ?", false).Count(&stats.GuestUsers).Error; err != nil {
		return Stats{}, err
	}

	cutoff := time.Now().UTC().Add(-24 * time.Hour)
	if err := db.Model(&ChatUsage{}).Where("last_used_at > ?", cutoff).Count(&stats.RecentActivity).Error; err != nil {
		return Stats{}, err
	}

	var top []ChatUsage
	err = db.Order("usage_count DESC").Limit(10).Find(&top).Error
	if err != nil {
		return Stats{}, err
	}
	for _, row := range top {
		stats.TopUsers = append(stats.TopUsers, TopUser{
			UserID:       row.UserID,
			Username:     row.Username,
			Email:        row.Email,
			IsRegistered: row.IsRegistered,
			UsageCount:   row.UsageCount,
			LastUsedAt:   row.LastUsedAt.Format(time.RFC3339),
		})
	}

	return stats, nil
}

// UsageUser is one entry of the all-users listing; username defaults to
// "Guest" when absent.
type UsageUser struct {
	UserID       string  `json:"user_id"`
	Username     string  `json:"username"`
	Email        *string `json:"email"`
	IsRegistered bool    `json:"is_registered"`
	UsageCount   int     `json:"usage_count"`
	FirstUsedAt  string  `json:"first_used_at"`
	LastUsedAt   string  `json:"last_used_at"`
}

// GetAllUsers returns every usage record ordered by last_used_at descending.
func GetAllUsers(db *gorm.DB) ([]UsageUser, error) {
	var rows []ChatUsage
	if err := db.Order("last_used_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	result := make([]UsageUser, len(rows))
	for i, row := range rows {
		username := GuestUsername
		if row.Username != nil && *row.Username != "" {
			username = *row.Username
		}
		result[i] = UsageUser{
			UserID:       row.UserID,
			Username:     username,
			Email:        row.Email,
			IsRegistered: row.IsRegistered,
			UsageCount:   row.UsageCount,
			FirstUsedAt:  row.FirstUsedAt.Format(time.RFC3339),
			LastUsedAt:   row.LastUsedAt.Format(time.RFC3339),
		}
	}

	return result, nil
}
