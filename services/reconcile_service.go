package services

import (
	"context"
	"database/sql"
	"log"
	"time"

	"meal-claim-system/metrics"
	"meal-claim-system/models"
	"meal-claim-system/store"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReconcileReport counts what one reconciliation pass found and repaired.
type ReconcileReport struct {
	Participants           int `json:"participants"`
	Entries                int `json:"entries"`
	DuplicatesRemoved      int `json:"duplicatesRemoved"`
	OrphansRemoved         int `json:"orphansRemoved"`
	MissingRecreated       int `json:"missingRecreated"`
	StaleTimestampsCleared int `json:"staleTimestampsCleared"`
	TimestampsBackfilled   int `json:"timestampsBackfilled"`
}

// Repairs is the total number of rows changed.
func (r ReconcileReport) Repairs() int {
	return r.DuplicatesRemoved + r.OrphansRemoved + r.MissingRecreated +
		r.StaleTimestampsCleared + r.TimestampsBackfilled
}

type claimKey struct {
	participantID string
	meal          models.MealType
}

// slotTimestamp is a claimed slot that lost its claimed_at.
type slotTimestamp struct {
	participantID string
	meal          models.MealType
	at            time.Time
}

type reconcilePlan struct {
	remove     []string
	create     []models.FoodClaim
	backfill   []slotTimestamp
	duplicates int
	orphans    int
}

// planReconcile derives history from participant state. Entries are expected
// in ascending claimed_at order so the earliest duplicate wins when no entry
// matches the slot's timestamp.
func planReconcile(participants []models.Participant, entries []models.FoodClaim) reconcilePlan {
	byKey := make(map[claimKey][]models.FoodClaim)
	for _, e := range entries {
		k := claimKey{e.ParticipantID, e.MealType}
		byKey[k] = append(byKey[k], e)
	}

	var plan reconcilePlan
	known := make(map[string]bool, len(participants))
	for _, p := range participants {
		known[p.ParticipantID] = true
		for _, meal := range models.MealTypes {
			k := claimKey{p.ParticipantID, meal}
			slot := p.Meals.Slot(meal)
			existing := byKey[k]

			if !slot.Claimed {
				for _, e := range existing {
					plan.remove = append(plan.remove, e.ID)
					plan.orphans++
				}
				continue
			}

			if len(existing) == 0 {
				claimedAt := p.UpdatedAt
				if slot.ClaimedAt != nil {
					claimedAt = *slot.ClaimedAt
				} else {
					plan.backfill = append(plan.backfill, slotTimestamp{p.ParticipantID, meal, claimedAt})
				}
				plan.create = append(plan.create, models.FoodClaim{
					ID:            uuid.NewString(),
					ParticipantID: p.ParticipantID,
					MealType:      meal,
					TeamID:        p.TeamID,
					TeamName:      p.TeamName,
					MemberName:    p.MemberName,
					ClaimedAt:     claimedAt,
				})
				continue
			}

			keep := 0
			if slot.ClaimedAt != nil {
				for i, e := range existing {
					if e.ClaimedAt.Equal(*slot.ClaimedAt) {
						keep = i
						break
					}
				}
			} else {
				plan.backfill = append(plan.backfill, slotTimestamp{p.ParticipantID, meal, existing[keep].ClaimedAt})
			}
			for i, e := range existing {
				if i != keep {
					plan.remove = append(plan.remove, e.ID)
					plan.duplicates++
				}
			}
		}
	}

	for _, e := range entries {
		if !known[e.ParticipantID] {
			plan.remove = append(plan.remove, e.ID)
			plan.orphans++
		}
	}
	return plan
}

// ReconcileService re-derives the claim history from participant state and
// repairs any divergence between the two stores.
type ReconcileService struct {
	DB      *gorm.DB
	Metrics *metrics.Metrics
}

func NewReconcileService(db *gorm.DB, m *metrics.Metrics) *ReconcileService {
	return &ReconcileService{DB: db, Metrics: m}
}

// snapshotTxOptions returns the options for a transaction whose reads must
// all see one snapshot. Postgres needs serializable isolation for that;
// SQLite already serializes writers and rejects non-default levels.
func snapshotTxOptions(db *gorm.DB, readOnly bool) []*sql.TxOptions {
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if readOnly {
		return []*sql.TxOptions{{Isolation: sql.LevelRepeatableRead, ReadOnly: true}}
	}
	return []*sql.TxOptions{{Isolation: sql.LevelSerializable}}
}

// Reconcile runs one pass in a single transaction.
func (s *ReconcileService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		participants, err := store.ListParticipants(tx)
		if err != nil {
			return storageErr("list participants", err)
		}
		entries, err := store.ListClaims(tx)
		if err != nil {
			return storageErr("list claims", err)
		}
		report.Participants = len(participants)
		report.Entries = len(entries)

		for _, meal := range models.MealTypes {
			res := tx.Model(&models.Participant{}).
				Where(meal.ClaimedColumn()+" = ? AND "+meal.ClaimedAtColumn()+" IS NOT NULL", false).
				Update(meal.ClaimedAtColumn(), nil)
			if res.Error != nil {
				return storageErr("clear stale timestamps", res.Error)
			}
			report.StaleTimestampsCleared += int(res.RowsAffected)
		}

		plan := planReconcile(participants, entries)
		for _, b := range plan.backfill {
			res := tx.Model(&models.Participant{}).
				Where("participant_id = ? AND "+b.meal.ClaimedColumn()+" = ? AND "+b.meal.ClaimedAtColumn()+" IS NULL",
					b.participantID, true).
				Update(b.meal.ClaimedAtColumn(), b.at)
			if res.Error != nil {
				return storageErr("backfill claim timestamp", res.Error)
			}
			report.TimestampsBackfilled += int(res.RowsAffected)
		}
		if _, err := store.RemoveClaimsByID(tx, plan.remove); err != nil {
			return storageErr("remove divergent claims", err)
		}
		for i := range plan.create {
			if err := store.AppendClaim(tx, &plan.create[i]); err != nil {
				return storageErr("recreate claim", err)
			}
		}
		report.DuplicatesRemoved = plan.duplicates
		report.OrphansRemoved = plan.orphans
		report.MissingRecreated = len(plan.create)
		return nil
	}, snapshotTxOptions(s.DB, false)...)
	if err = typedOrStorage("reconcile transaction", err); err != nil {
		log.Printf("❌ [RECONCILE] failed: %v", err)
		return nil, err
	}

	s.Metrics.ObserveRepairs("duplicate", report.DuplicatesRemoved)
	s.Metrics.ObserveRepairs("orphan", report.OrphansRemoved)
	s.Metrics.ObserveRepairs("missing", report.MissingRecreated)
	s.Metrics.ObserveRepairs("stale_timestamp", report.StaleTimestampsCleared)
	s.Metrics.ObserveRepairs("backfilled_timestamp", report.TimestampsBackfilled)

	if report.Repairs() > 0 {
		log.Printf("🧹 [RECONCILE] repaired %d rows (duplicates=%d orphans=%d missing=%d stale=%d backfilled=%d)",
			report.Repairs(), report.DuplicatesRemoved, report.OrphansRemoved,
			report.MissingRecreated, report.StaleTimestampsCleared, report.TimestampsBackfilled)
	}
	return report, nil
}
