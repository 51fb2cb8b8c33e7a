package interactions

import (
	"time"

	"gorm.io/gorm"
)

// Pagination defaults for the interaction listing.
const (
	DefaultPage     = 1
	DefaultPageSize = 20
)

// PageResult represents one page of interactions, newest first.
type PageResult struct {
	Interactions []Interaction
	Total        int64
	Page         int
	PageSize     int
	TotalPages   int
}

// NormalizePage coerces a page/pageSize pair to positive integers, falling
// back to the defaults for zero or negative input.
func NormalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = DefaultPage
	}
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return page, pageSize
}

// GetPage returns interactions ordered by creation time descending, offset
// by (page-1)*pageSize. A page beyond the last returns an empty list.
func GetPage(db *gorm.DB, page, pageSize int) (PageResult, error) {
	page, pageSize = NormalizePage(page, pageSize)

	var total int64
	if err := db.Model(&Interaction{}).Count(&total).Error; err != nil {
		return PageResult{}, err
	}

	var rows []Interaction
	err := db.Order("created_at DESC").
		Limit(pageSize).
		Offset((page - 1) * pageSize).
		Find(&rows).Error
	if err != nil {
		return PageResult{}, err
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))

	return PageResult{
		Interactions: rows,
		Total:        total,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   totalPages,
	}, nil
}

// CountAll returns the total number of interactions.
func CountAll(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&Interaction{}).Count(&count).Error
	return count, err
}

// CountToday counts interactions created on the current UTC date.
func CountToday(db *gorm.DB) (int64, error) {
	now := time.Now().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var count int64
	err := db.Model(&Interaction{}).
		Where("created_at >= ?", midnight).
		Count(&count).Error
	return count, err
}

// CountLast24Hours counts interactions within a rolling 24 hour window.
func CountLast24Hours(db *gorm.DB) (int64, error) {
	var count int64
	err := db.Model(&Interaction{}).
		Where("created_at >= ?", time.Now().UTC().Add(-24*time.Hour)).
		Count(&count).Error
	return count, err
}

// DeleteOlderThan removes interactions created before the cutoff in batches,
// returning the number of deleted rows. Used by the retention job.
func DeleteOlderThan(db *gorm.DB, cutoff time.Time, batchSize int) (int64, error) {
	totalDeleted := int64(0)
	for {
		result := db.Where("created_at < ?", cutoff).
			Limit(batchSize).
			Delete(&Interaction{})
		if result.Error != nil {
			return totalDeleted, result.Error
		}
		totalDeleted += result.RowsAffected
		if result.RowsAffected < int64(batchSize) {
			return totalDeleted, nil
		}
	}
}
