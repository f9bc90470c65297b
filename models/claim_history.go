package models

import "time"

// FoodClaim is the audit record of one active claim. At most one row exists
// per (participant_id, meal_type); unclaiming deletes it.
type FoodClaim struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	ParticipantID string    `gorm:"size:64;not null;uniqueIndex:idx_food_claims_participant_meal" json:"participantId"`
	MealType      MealType  `gorm:"size:16;not null;uniqueIndex:idx_food_claims_participant_meal" json:"mealType"`
	TeamID        string    `gorm:"size:32;not null" json:"teamId"`
	TeamName      string    `gorm:"not null" json:"teamName"`
	MemberName    string    `gorm:"not null" json:"memberName"`
	ClaimedAt     time.Time `gorm:"not null;index" json:"claimedAt"`
	CreatedAt     time.Time `json:"createdAt" gorm:"autoCreateTime"`
}
