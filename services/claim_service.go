package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"meal-claim-system/metrics"
	"meal-claim-system/models"
	"meal-claim-system/store"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"
)

// Entry points recorded on claim metrics and logs.
const (
	SourcePublic = "public"
	SourceAdmin  = "admin"
)

// ParticipantSummary is the participant view returned with claim results.
type ParticipantSummary struct {
	ParticipantID string `json:"participantId"`
	MemberName    string `json:"memberName"`
	TeamID        string `json:"teamId"`
	TeamName      string `json:"teamName"`
	MemberNumber  int    `json:"memberNumber"`
}

func summarize(p *models.Participant) ParticipantSummary {
	return ParticipantSummary{
		ParticipantID: p.ParticipantID,
		MemberName:    p.MemberName,
		TeamID:        p.TeamID,
		TeamName:      p.TeamName,
		MemberNumber:  p.MemberNumber,
	}
}

// ClaimResult is the claimed participant flattened with the slot just taken.
type ClaimResult struct {
	ParticipantSummary
	MealType  models.MealType `json:"mealType"`
	ClaimedAt time.Time       `json:"claimedAt"`
	Meals     models.Meals    `json:"allMeals"`
}

type UnclaimResult struct {
	ParticipantID  string          `json:"participantId"`
	MealType       models.MealType `json:"mealType"`
	RemovedEntries int64           `json:"removedEntries"`
}

// ClaimService owns every claim state transition. Each call runs in one
// transaction that touches one participant row and its history entries, so
// a failed call leaves nothing behind.
type ClaimService struct {
	DB      *gorm.DB
	Clock   clockwork.Clock
	Metrics *metrics.Metrics
}

func NewClaimService(db *gorm.DB, clock clockwork.Clock, m *metrics.Metrics) *ClaimService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClaimService{DB: db, Clock: clock, Metrics: m}
}

// normalizeClaimRequest is the single validation step shared by every entry point.
func normalizeClaimRequest(participantID, mealType string) (string, models.MealType, error) {
	id := models.NormalizeID(participantID)
	if id == "" || strings.TrimSpace(mealType) == "" {
		return "", "", &ValidationError{Message: "participant ID and meal type are required"}
	}
	meal, ok := models.ParseMealType(mealType)
	if !ok {
		return "", "", &ValidationError{Message: "invalid meal type, must be breakfast, lunch, or dinner"}
	}
	return id, meal, nil
}

// Claim marks the meal consumed for the participant, at most once.
func (s *ClaimService) Claim(ctx context.Context, participantID, mealType string) (*ClaimResult, error) {
	return s.claim(ctx, participantID, mealType, SourcePublic)
}

// ManualClaim is the staff entry point. Same rules as Claim.
func (s *ClaimService) ManualClaim(ctx context.Context, participantID, mealType string) (*ClaimResult, error) {
	return s.claim(ctx, participantID, mealType, SourceAdmin)
}

func (s *ClaimService) claim(ctx context.Context, participantID, mealType, source string) (*ClaimResult, error) {
	id, meal, err := normalizeClaimRequest(participantID, mealType)
	if err != nil {
		s.Metrics.ObserveClaim("", metrics.OutcomeInvalid, source)
		return nil, err
	}

	now := s.Clock.Now().UTC().Truncate(time.Microsecond)

	var result *ClaimResult
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Conditional update: only one concurrent caller can flip the flag.
		claimed, err := store.MarkMealClaimed(tx, id, meal, now)
		if err != nil {
			return storageErr("mark meal claimed", err)
		}

		p, err := store.FindParticipant(tx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return &NotFoundError{Kind: "participant", ID: id}
			}
			return storageErr("find participant", err)
		}

		if !claimed {
			slot := p.Meals.Slot(meal)
			if !slot.Claimed {
				return storageErr("mark meal claimed", errors.New("slot changed during claim"))
			}
			// A claimed slot without a timestamp predates reconciliation; report
			// the last update so the caller still gets a time to show.
			claimedAt := p.UpdatedAt
			if slot.ClaimedAt != nil {
				claimedAt = *slot.ClaimedAt
			}
			return &AlreadyClaimedError{Participant: summarize(p), Meal: meal, ClaimedAt: claimedAt.UTC()}
		}

		entry := &models.FoodClaim{
			ID:            uuid.NewString(),
			ParticipantID: p.ParticipantID,
			MealType:      meal,
			TeamID:        p.TeamID,
			TeamName:      p.TeamName,
			MemberName:    p.MemberName,
			ClaimedAt:     now,
		}
		if err := store.AppendClaim(tx, entry); err != nil {
			return storageErr("append claim history", err)
		}

		p.Meals.SetSlot(meal, models.MealSlot{Claimed: true, ClaimedAt: &now})
		result = &ClaimResult{
			ParticipantSummary: summarize(p),
			MealType:           meal,
			ClaimedAt:          now,
			Meals:              p.Meals,
		}
		return nil
	})
	err = typedOrStorage("claim transaction", err)

	s.Metrics.ObserveClaim(string(meal), claimOutcome(err, metrics.OutcomeClaimed), source)
	if err != nil {
		var storage *StorageError
		if errors.As(err, &storage) {
			log.Printf("❌ [CLAIM] %s %s/%s failed: %v", source, id, meal, err)
		}
		return nil, err
	}

	log.Printf("🍽️ [CLAIM] %s claimed %s (%s, %s) via %s", result.ParticipantID, meal,
		result.MemberName, result.TeamName, source)
	return result, nil
}

// Unclaim reverses a claim: the slot is cleared and every matching history
// entry is removed in the same transaction.
func (s *ClaimService) Unclaim(ctx context.Context, participantID, mealType string) (*UnclaimResult, error) {
	id, meal, err := normalizeClaimRequest(participantID, mealType)
	if err != nil {
		s.Metrics.ObserveClaim("", metrics.OutcomeInvalid, SourceAdmin)
		return nil, err
	}

	var removed int64
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cleared, err := store.MarkMealUnclaimed(tx, id, meal)
		if err != nil {
			return storageErr("mark meal unclaimed", err)
		}
		if !cleared {
			if _, err := store.FindParticipant(tx, id); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return &NotFoundError{Kind: "participant", ID: id}
				}
				return storageErr("find participant", err)
			}
			return &NotClaimedError{ParticipantID: id, Meal: meal}
		}

		removed, err = store.RemoveClaims(tx, id, meal)
		if err != nil {
			return storageErr("remove claim history", err)
		}
		return nil
	})
	err = typedOrStorage("unclaim transaction", err)

	s.Metrics.ObserveClaim(string(meal), claimOutcome(err, metrics.OutcomeUnclaimed), SourceAdmin)
	if err != nil {
		var storage *StorageError
		if errors.As(err, &storage) {
			log.Printf("❌ [UNCLAIM] %s/%s failed: %v", id, meal, err)
		}
		return nil, err
	}

	switch {
	case removed == 0:
		log.Printf("⚠️ [UNCLAIM] %s/%s had no history entry", id, meal)
	case removed > 1:
		log.Printf("🧹 [UNCLAIM] %s/%s removed %d duplicate history entries", id, meal, removed)
	}
	log.Printf("↩️ [UNCLAIM] %s %s reset", id, meal)

	return &UnclaimResult{ParticipantID: id, MealType: meal, RemovedEntries: removed}, nil
}

func claimOutcome(err error, success string) string {
	if err == nil {
		return success
	}
	var (
		notFound       *NotFoundError
		alreadyClaimed *AlreadyClaimedError
		notClaimed     *NotClaimedError
	)
	switch {
	case errors.As(err, &notFound):
		return metrics.OutcomeNotFound
	case errors.As(err, &alreadyClaimed):
		return metrics.OutcomeAlreadyClaimed
	case errors.As(err, &notClaimed):
		return metrics.OutcomeNotClaimed
	}
	return metrics.OutcomeError
}

// MealTitle is the display name of m, e.g. "Breakfast".
func MealTitle(m models.MealType) string {
	return cases.Title(language.English).String(string(m))
}
