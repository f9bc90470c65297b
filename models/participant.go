package models

import (
	"strconv"
	"strings"
	"time"
)

// MealType names one of the three claimable meal slots.
type MealType string

const (
	MealBreakfast MealType = "breakfast"
	MealLunch     MealType = "lunch"
	MealDinner    MealType = "dinner"
)

// MealTypes lists the meal slots in serving order.
var MealTypes = []MealType{MealBreakfast, MealLunch, MealDinner}

// ParseMealType matches s case-insensitively against the known meals.
func ParseMealType(s string) (MealType, bool) {
	m := MealType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range MealTypes {
		if m == known {
			return m, true
		}
	}
	return "", false
}

// ClaimedColumn is the participants column holding the claimed flag for m.
func (m MealType) ClaimedColumn() string { return string(m) + "_claimed" }

// ClaimedAtColumn is the participants column holding the claim time for m.
func (m MealType) ClaimedAtColumn() string { return string(m) + "_claimed_at" }

// NormalizeID trims and uppercases participant and team identifiers.
func NormalizeID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// MealSlot is one meal's claim state. ClaimedAt is nil whenever Claimed is false.
type MealSlot struct {
	Claimed   bool       `gorm:"not null;default:false" json:"claimed"`
	ClaimedAt *time.Time `json:"claimedAt"`
}

// Meals holds the three slots, flattened into breakfast_*, lunch_*, dinner_* columns.
type Meals struct {
	Breakfast MealSlot `gorm:"embedded;embeddedPrefix:breakfast_" json:"breakfast"`
	Lunch     MealSlot `gorm:"embedded;embeddedPrefix:lunch_" json:"lunch"`
	Dinner    MealSlot `gorm:"embedded;embeddedPrefix:dinner_" json:"dinner"`
}

// Slot returns the slot for m. Unknown meals return a zero slot.
func (m Meals) Slot(meal MealType) MealSlot {
	switch meal {
	case MealBreakfast:
		return m.Breakfast
	case MealLunch:
		return m.Lunch
	case MealDinner:
		return m.Dinner
	}
	return MealSlot{}
}

// SetSlot replaces the slot for m.
func (m *Meals) SetSlot(meal MealType, slot MealSlot) {
	switch meal {
	case MealBreakfast:
		m.Breakfast = slot
	case MealLunch:
		m.Lunch = slot
	case MealDinner:
		m.Dinner = slot
	}
}

// Participant is one team member eligible to claim meals.
// ParticipantID is {TeamID}-M{MemberNumber}, uppercase.
type Participant struct {
	ParticipantID string `gorm:"primaryKey;size:64" json:"participantId"`
	TeamID        string `gorm:"size:32;not null;index" json:"teamId"`
	TeamName      string `gorm:"not null" json:"teamName"`
	MemberName    string `gorm:"not null" json:"memberName"`
	MemberNumber  int    `gorm:"not null" json:"memberNumber"`
	Meals         Meals  `gorm:"embedded" json:"meals"`

	CreatedAt time.Time `json:"createdAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"autoUpdateTime"`
}

// ParticipantIDFor derives the participant id for a roster position.
func ParticipantIDFor(teamID string, memberNumber int) string {
	return NormalizeID(teamID) + "-M" + strconv.Itoa(memberNumber)
}
