package visits

import (
	"errors"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// UnknownCountry is recorded when the client IP cannot be resolved.
const UnknownCountry = "unknown"

// Visit is a single page-navigation event. Rows are insert-only; nothing in
// the system updates or deletes a visit except the retention job.
type Visit struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SessionID string    `gorm:"index;not null" json:"session_id"`
	UserID    *uint     `json:"user_id"`
	Path      string    `gorm:"not null" json:"path"`
	Country   string    `json:"country"`
	CreatedAt time.Time `gorm:"index;not null" json:"created_at"`
}

// RecordVisitInput defines the input required to record a visit.
type RecordVisitInput struct {
	SessionID string
	UserID    *uint
	Path      string
	Country   string
}

// RecordVisit validates and inserts a visit row, returning the generated id.
// Validation happens before any persistence call is attempted.
func RecordVisit(db *gorm.DB, logger *slog.Logger, input RecordVisitInput) (uint, error) {
	if input.SessionID == "" {
		return 0, errors.New("sessionId is required")
	}
	if input.Path == "" {
		return 0, errors.New("path is required")
	}

	country := input.Country
	if country == "" {
		country = UnknownCountry
	}

	visit := Visit{
		SessionID: input.SessionID,
		UserID:    input.UserID,
		Path:      input.Path,
		Country:   country,
		CreatedAt: time.Now().UTC(),
	}

	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(&visit).Error
	})
	if err != nil {
		logger.Error("Failed to record visit", slog.Any("error", err))
		return 0, err
	}

	return visit.ID, nil
}

// CountAll returns the total number of recorded visits.
func CountAll(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&Visit{}).Count(&count).Error
	return count, err
}

// CountDistinctSessions returns the number of distinct session ids seen in
// visits; this is the "visitors" figure on the dashboard.
func CountDistinctSessions(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&Visit{}).Distinct("session_id").Count(&count).Error
	return count, err
}

// CountryCount is one row of the per-country visit breakdown.
type CountryCount struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

// CountByCountry returns visit counts grouped by country, most visited
// first, limited to the given number of rows.
func CountByCountry(db *gorm.DB, limit int) ([]CountryCount, error) {
	var results []CountryCount
	err := db.Model(&Visit{}).
		Select("country, COUNT(*) as count").
		Group("country").
		Order("count DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// DeleteOlderThan removes visits created before the cutoff in batches,
// returning the number of deleted rows. Used by the retention job.
func DeleteOlderThan(db *gorm.DB, cutoff time.Time, batchSize int) (int64, error) {
	totalDeleted := int64(0)
	for {
		result := db.Where("created_at < ?", cutoff).
			Limit(batchSize).
			Delete(&Visit{})
		if result.Error != nil {
			return totalDeleted, result.Error
		}
		totalDeleted += result.RowsAffected
		if result.RowsAffected < int64(batchSize) {
			return totalDeleted, nil
		}
	}
}
