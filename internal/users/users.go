package users

import (
	"errors"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// User is a person identified by email, created or updated whenever the
// frontend reports a login or registration. Anonymous visitors have no User
// row; they are tracked by session id only.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	Name         *string   `json:"name"`
	IsRegistered bool      `gorm:"not null;default:false" json:"isRegistered"`
	CreatedAt    time.Time `gorm:"not null" json:"createdAt"`
	LastSeenAt   time.Time `gorm:"not null" json:"lastSeenAt"`
}

// ErrUserNotFound is returned when a user lookup fails.
var ErrUserNotFound = gorm.ErrRecordNotFound

// UpsertInput carries the optional fields of an upsert call. Nil pointers
// mean "leave unchanged" on update.
type UpsertInput struct {
	Email        string
	Name         *string
	IsRegistered *bool
}

// FindByEmail retrieves a user by email.
func FindByEmail(db *gorm.DB, email string) (*User, error) {
	var user User
	if err := db.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID retrieves a user by ID.
func FindByID(db *gorm.DB, id uint) (*User, error) {
	var user User
	if err := db.Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// Upsert creates the user on first sight of an email, or updates it.
// Name and registration flag are only overwritten when provided;
// last_seen_at always advances. Returns the resulting record.
func Upsert(db *gorm.DB, logger *slog.Logger, input UpsertInput) (*User, error) {
	if input.Email == "" {
		return nil, errors.New("email cannot be empty")
	}

	now := time.Now().UTC()

	existing, err := FindByEmail(db, input.Email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if existing == nil {
		newUser := User{
			Email:      input.Email,
			Name:       input.Name,
			CreatedAt:  now,
			LastSeenAt: now,
		}
		if input.IsRegistered != nil {
			newUser.IsRegistered = *input.IsRegistered
		}

		err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
			return tx.Create(&newUser).Error
		})
		if err != nil {
			return nil, err
		}
		return &newUser, nil
	}

	updates := map[string]interface{}{
		"last_seen_at": now,
	}
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.IsRegistered != nil {
		updates["is_registered"] = *input.IsRegistered
	}

	err = sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&User{}).Where("email = ?", input.Email).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}

	return FindByEmail(db, input.Email)
}

// TouchLastSeen advances a user's last_seen_at. A missing user id is not an
// error; interaction tracking must not fail because a stale id was sent.
func TouchLastSeen(db *gorm.DB, logger *slog.Logger, id uint) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Model(&User{}).Where("id = ?", id).
			Update("last_seen_at", time.Now().UTC()).Error
	})
}

// CountAll returns the total number of users.
func CountAll(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&User{}).Count(&count).Error
	return count, err
}

// CountRegistered returns the number of users with the registration flag set.
func CountRegistered(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&User{}).Where("is_registered = ?", true).Count(&count).Error
	return count, err
}
