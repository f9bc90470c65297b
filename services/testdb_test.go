package services

import (
	"path/filepath"
	"testing"
	"time"

	"meal-claim-system/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testStart = time.Date(2025, 3, 1, 8, 30, 0, 0, time.UTC)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "claims.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(&models.Participant{}, &models.FoodClaim{}, &models.SelectedTeam{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedTeam(t *testing.T, db *gorm.DB, teamID, teamName string, members ...string) []models.Participant {
	t.Helper()
	var out []models.Participant
	for i, name := range members {
		p := models.Participant{
			ParticipantID: models.ParticipantIDFor(teamID, i+1),
			TeamID:        teamID,
			TeamName:      teamName,
			MemberName:    name,
			MemberNumber:  i + 1,
		}
		if err := db.Create(&p).Error; err != nil {
			t.Fatalf("seed %s: %v", p.ParticipantID, err)
		}
		out = append(out, p)
	}
	return out
}

func historyCount(t *testing.T, db *gorm.DB, participantID string, meal models.MealType) int64 {
	t.Helper()
	var n int64
	if err := db.Model(&models.FoodClaim{}).
		Where("participant_id = ? AND meal_type = ?", participantID, meal).
		Count(&n).Error; err != nil {
		t.Fatalf("count history: %v", err)
	}
	return n
}

func loadParticipant(t *testing.T, db *gorm.DB, id string) models.Participant {
	t.Helper()
	var p models.Participant
	if err := db.First(&p, "participant_id = ?", id).Error; err != nil {
		t.Fatalf("load %s: %v", id, err)
	}
	return p
}

// assertLockstep checks that every claimed slot has exactly one history entry
// and every unclaimed slot has none.
func assertLockstep(t *testing.T, db *gorm.DB) {
	t.Helper()
	var participants []models.Participant
	if err := db.Find(&participants).Error; err != nil {
		t.Fatalf("list participants: %v", err)
	}
	for _, p := range participants {
		for _, meal := range models.MealTypes {
			slot := p.Meals.Slot(meal)
			n := historyCount(t, db, p.ParticipantID, meal)
			if slot.Claimed && n != 1 {
				t.Errorf("%s/%s claimed with %d history entries", p.ParticipantID, meal, n)
			}
			if !slot.Claimed && n != 0 {
				t.Errorf("%s/%s unclaimed with %d history entries", p.ParticipantID, meal, n)
			}
			if slot.Claimed != (slot.ClaimedAt != nil) {
				t.Errorf("%s/%s claimed=%v claimed_at=%v", p.ParticipantID, meal, slot.Claimed, slot.ClaimedAt)
			}
		}
	}
}
