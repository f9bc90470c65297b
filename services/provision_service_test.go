package services

import (
	"context"
	"testing"

	"meal-claim-system/models"

	"github.com/jonboulle/clockwork"
)

func TestBuildParticipants(t *testing.T) {
	teams := []models.SelectedTeam{
		{TeamID: " t01 ", TeamName: "Alpha", Members: []string{"Asha", " ", "Bilal"}},
		{TeamID: "T02", TeamName: "Empty"},
		{TeamID: "T03", TeamName: "Crowd", Members: []string{"a", "b", "c", "d", "e", "f"}},
		{TeamID: "T01", TeamName: "Alpha again", Members: []string{"Zed"}},
		{TeamID: "", TeamName: "No id", Members: []string{"x"}},
	}

	plan := BuildParticipants(teams)
	if plan.Teams != 5 {
		t.Fatalf("teams = %d", plan.Teams)
	}
	if len(plan.SkippedTeams) != 3 {
		t.Fatalf("skipped = %v", plan.SkippedTeams)
	}
	if plan.IgnoredMembers != 2 {
		t.Fatalf("ignored members = %d", plan.IgnoredMembers)
	}

	var ids []string
	for _, p := range plan.Participants {
		ids = append(ids, p.ParticipantID)
		if p.Meals != (models.Meals{}) {
			t.Errorf("%s starts with claimed meals", p.ParticipantID)
		}
	}
	want := []string{"T01-M1", "T01-M2", "T03-M1", "T03-M2", "T03-M3", "T03-M4"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v", ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("ids = %v, want %v", ids, want)
		}
	}
	if plan.Participants[1].MemberName != "Bilal" || plan.Participants[1].MemberNumber != 2 {
		t.Fatalf("second member = %+v", plan.Participants[1])
	}
}

func TestRegenerateReplacesParticipantsAndHistory(t *testing.T) {
	db := newTestDB(t)
	seedTeam(t, db, "OLD", "Old team", "Former")
	claims := NewClaimService(db, clockwork.NewFakeClockAt(testStart), nil)
	ctx := context.Background()
	if _, err := claims.Claim(ctx, "OLD-M1", "breakfast"); err != nil {
		t.Fatalf("claim: %v", err)
	}

	roster := []models.SelectedTeam{
		{TeamID: "T01", TeamName: "Alpha", Members: []string{"Asha", "Bilal"}},
		{TeamID: "T02", TeamName: "Beta", Members: []string{"Chen"}},
	}
	for i := range roster {
		if err := db.Create(&roster[i]).Error; err != nil {
			t.Fatalf("seed roster: %v", err)
		}
	}

	svc := NewProvisionService(db)
	teams, err := svc.SelectedTeams(ctx)
	if err != nil {
		t.Fatalf("SelectedTeams: %v", err)
	}
	if len(teams) != 2 || len(teams[0].Members) != 2 {
		t.Fatalf("teams = %+v", teams)
	}

	deleted, err := svc.Regenerate(ctx, BuildParticipants(teams))
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("deleted = %d", deleted)
	}

	var total, history int64
	db.Model(&models.Participant{}).Count(&total)
	db.Model(&models.FoodClaim{}).Count(&history)
	if total != 3 || history != 0 {
		t.Fatalf("participants=%d history=%d", total, history)
	}

	sample, err := svc.Sample(ctx, 5)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(sample) != 3 || sample[0].ParticipantID != "T01-M1" || sample[2].ParticipantID != "T02-M1" {
		t.Fatalf("sample = %+v", sample)
	}
	assertLockstep(t, db)
}
