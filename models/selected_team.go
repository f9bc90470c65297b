package models

// SelectedTeam is a roster row imported by the registration side of the event.
// The provisioning tool expands each member into a Participant.
type SelectedTeam struct {
	ID       uint     `gorm:"primaryKey" json:"-"`
	TeamID   string   `gorm:"size:32;not null;uniqueIndex" json:"team_id"`
	TeamName string   `gorm:"not null" json:"team_name"`
	Members  []string `gorm:"type:text;serializer:json" json:"members"`
}
