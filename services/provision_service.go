package services

import (
	"context"
	"log"
	"strings"

	"meal-claim-system/models"
	"meal-claim-system/store"

	"gorm.io/gorm"
)

// MaxTeamMembers is the largest member number a team can have.
const MaxTeamMembers = 4

// ProvisionPlan is the participant set generated from a roster.
type ProvisionPlan struct {
	Teams          int
	Participants   []models.Participant
	SkippedTeams   []string
	IgnoredMembers int
}

// BuildParticipants expands roster teams into one unclaimed participant per
// member. Teams without members or repeating an earlier team id are skipped.
func BuildParticipants(teams []models.SelectedTeam) ProvisionPlan {
	plan := ProvisionPlan{Teams: len(teams)}
	seen := make(map[string]bool, len(teams))

	for _, team := range teams {
		teamID := models.NormalizeID(team.TeamID)
		teamName := strings.TrimSpace(team.TeamName)

		var members []string
		for _, m := range team.Members {
			if m = strings.TrimSpace(m); m != "" {
				members = append(members, m)
			}
		}

		switch {
		case teamID == "":
			log.Printf("⚠️ [PROVISION] roster entry %q has no team id, skipping", teamName)
			plan.SkippedTeams = append(plan.SkippedTeams, teamName)
			continue
		case seen[teamID]:
			log.Printf("⚠️ [PROVISION] team %s listed twice, keeping the first entry", teamID)
			plan.SkippedTeams = append(plan.SkippedTeams, teamID)
			continue
		case len(members) == 0:
			log.Printf("⚠️ [PROVISION] team %s has no members, skipping", teamID)
			plan.SkippedTeams = append(plan.SkippedTeams, teamID)
			continue
		}
		seen[teamID] = true

		if len(members) > MaxTeamMembers {
			extra := len(members) - MaxTeamMembers
			log.Printf("⚠️ [PROVISION] team %s has %d members, ignoring the last %d", teamID, len(members), extra)
			plan.IgnoredMembers += extra
			members = members[:MaxTeamMembers]
		}

		for i, name := range members {
			plan.Participants = append(plan.Participants, models.Participant{
				ParticipantID: models.ParticipantIDFor(teamID, i+1),
				TeamID:        teamID,
				TeamName:      teamName,
				MemberName:    name,
				MemberNumber:  i + 1,
			})
		}
	}
	return plan
}

// ProvisionService regenerates the participant table from a roster.
type ProvisionService struct {
	DB *gorm.DB
}

func NewProvisionService(db *gorm.DB) *ProvisionService {
	return &ProvisionService{DB: db}
}

// SelectedTeams reads the roster imported into the same database.
func (s *ProvisionService) SelectedTeams(ctx context.Context) ([]models.SelectedTeam, error) {
	var teams []models.SelectedTeam
	if err := s.DB.WithContext(ctx).Order("team_id ASC").Find(&teams).Error; err != nil {
		return nil, storageErr("list selected teams", err)
	}
	return teams, nil
}

// Regenerate replaces every participant and history entry with the plan in
// one transaction and returns how many participants were removed.
func (s *ProvisionService) Regenerate(ctx context.Context, plan ProvisionPlan) (int64, error) {
	var deleted int64
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n, err := store.ReplaceParticipants(tx, plan.Participants)
		if err != nil {
			return storageErr("replace participants", err)
		}
		deleted = n
		return nil
	})
	if err = typedOrStorage("provision transaction", err); err != nil {
		return 0, err
	}
	log.Printf("✅ [PROVISION] cleared %d participants, created %d", deleted, len(plan.Participants))
	return deleted, nil
}

// Sample returns up to n participants in table order.
func (s *ProvisionService) Sample(ctx context.Context, n int) ([]models.Participant, error) {
	var out []models.Participant
	err := s.DB.WithContext(ctx).Order("team_id ASC, member_number ASC").Limit(n).Find(&out).Error
	if err != nil {
		return nil, storageErr("sample participants", err)
	}
	return out, nil
}
