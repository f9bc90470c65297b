package store

import (
	"time"

	"meal-claim-system/models"

	"gorm.io/gorm"
)

// FindParticipant looks up a participant by its normalized id.
// Returns gorm.ErrRecordNotFound when no row matches.
func FindParticipant(db *gorm.DB, participantID string) (*models.Participant, error) {
	var p models.Participant
	if err := db.Where("participant_id = ?", participantID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParticipants returns every participant ordered by (team_id, member_number).
func ListParticipants(db *gorm.DB) ([]models.Participant, error) {
	var participants []models.Participant
	if err := db.Order("team_id ASC").Order("member_number ASC").Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

// ListTeamParticipants returns one team's members ordered by member_number.
func ListTeamParticipants(db *gorm.DB, teamID string) ([]models.Participant, error) {
	var participants []models.Participant
	if err := db.Where("team_id = ?", teamID).Order("member_number ASC").Find(&participants).Error; err != nil {
		return nil, err
	}
	return participants, nil
}

// CountParticipants returns the total number of participants.
func CountParticipants(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&models.Participant{}).Count(&n).Error
	return n, err
}

// CountClaimed returns how many participants have claimed meal.
func CountClaimed(db *gorm.DB, meal models.MealType) (int64, error) {
	var n int64
	err := db.Model(&models.Participant{}).Where(meal.ClaimedColumn()+" = ?", true).Count(&n).Error
	return n, err
}

// MarkMealClaimed flips the slot to claimed only if it is currently unclaimed.
// The returned bool is false when no row matched: either the participant does
// not exist or the slot was already claimed.
func MarkMealClaimed(db *gorm.DB, participantID string, meal models.MealType, at time.Time) (bool, error) {
	res := db.Model(&models.Participant{}).
		Where("participant_id = ? AND "+meal.ClaimedColumn()+" = ?", participantID, false).
		Updates(map[string]interface{}{
			meal.ClaimedColumn():   true,
			meal.ClaimedAtColumn(): at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkMealUnclaimed clears the slot only if it is currently claimed.
func MarkMealUnclaimed(db *gorm.DB, participantID string, meal models.MealType) (bool, error) {
	res := db.Model(&models.Participant{}).
		Where("participant_id = ? AND "+meal.ClaimedColumn()+" = ?", participantID, true).
		Updates(map[string]interface{}{
			meal.ClaimedColumn():   false,
			meal.ClaimedAtColumn(): nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ReplaceParticipants deletes every participant and every claim history entry,
// then inserts participants in batches. Run it inside a transaction.
func ReplaceParticipants(db *gorm.DB, participants []models.Participant) (int64, error) {
	if err := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.FoodClaim{}).Error; err != nil {
		return 0, err
	}
	res := db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Participant{})
	if res.Error != nil {
		return 0, res.Error
	}
	if len(participants) > 0 {
		if err := db.CreateInBatches(participants, 200).Error; err != nil {
			return res.RowsAffected, err
		}
	}
	return res.RowsAffected, nil
}
