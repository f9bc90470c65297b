package store

import (
	"meal-claim-system/models"

	"gorm.io/gorm"
)

// AppendClaim records a claim event.
func AppendClaim(db *gorm.DB, entry *models.FoodClaim) error {
	return db.Create(entry).Error
}

// RemoveClaims deletes every history entry for (participantID, meal) and
// reports how many rows went away.
func RemoveClaims(db *gorm.DB, participantID string, meal models.MealType) (int64, error) {
	res := db.Where("participant_id = ? AND meal_type = ?", participantID, meal).Delete(&models.FoodClaim{})
	return res.RowsAffected, res.Error
}

// RemoveClaimsByID deletes the given history entries.
func RemoveClaimsByID(db *gorm.DB, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := db.Where("id IN ?", ids).Delete(&models.FoodClaim{})
	return res.RowsAffected, res.Error
}

// RecentClaims returns up to limit entries, newest first. Entries claimed
// at the same instant are ordered by insertion, latest first.
func RecentClaims(db *gorm.DB, limit int) ([]models.FoodClaim, error) {
	var claims []models.FoodClaim
	if err := db.Order("claimed_at DESC").Order("created_at DESC").Limit(limit).Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

// ListClaims returns all history entries ordered by claim time.
func ListClaims(db *gorm.DB) ([]models.FoodClaim, error) {
	var claims []models.FoodClaim
	if err := db.Order("claimed_at ASC").Find(&claims).Error; err != nil {
		return nil, err
	}
	return claims, nil
}

// CountClaims returns the number of entries for (participantID, meal).
func CountClaims(db *gorm.DB, participantID string, meal models.MealType) (int64, error) {
	var n int64
	err := db.Model(&models.FoodClaim{}).
		Where("participant_id = ? AND meal_type = ?", participantID, meal).
		Count(&n).Error
	return n, err
}
