package services

import (
	"context"
	"errors"
	"log"
	"math"
	"strings"
	"time"

	"meal-claim-system/models"
	"meal-claim-system/store"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/gosimple/unidecode"
	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

const (
	DefaultRecentLimit = 10
	MaxRecentLimit     = 100
	DefaultSearchLimit = 50
	MaxSearchLimit     = 100
)

type MealStats struct {
	Claimed    int64 `json:"claimed"`
	Pending    int64 `json:"pending"`
	Percentage int   `json:"percentage"`
}

type Stats struct {
	Total     int64     `json:"total"`
	Breakfast MealStats `json:"breakfast"`
	Lunch     MealStats `json:"lunch"`
	Dinner    MealStats `json:"dinner"`
}

// Meal returns the stats for one meal.
func (s Stats) Meal(m models.MealType) MealStats {
	switch m {
	case models.MealBreakfast:
		return s.Breakfast
	case models.MealLunch:
		return s.Lunch
	case models.MealDinner:
		return s.Dinner
	}
	return MealStats{}
}

type TeamMember struct {
	ParticipantID string       `json:"participantId"`
	MemberName    string       `json:"memberName"`
	MemberNumber  int          `json:"memberNumber"`
	Meals         models.Meals `json:"meals"`
}

type TeamGroup struct {
	TeamID      string       `json:"teamId"`
	TeamName    string       `json:"teamName"`
	MemberCount int          `json:"memberCount"`
	Members     []TeamMember `json:"members"`
}

// ReportService is the read-only side: statistics, team views, recent
// activity and the spreadsheet export. Nothing is cached; every call reads
// the stores.
type ReportService struct {
	DB        *gorm.DB
	Clock     clockwork.Clock
	EventName string
	Location  *time.Location
}

func NewReportService(db *gorm.DB, clock clockwork.Clock, eventName string, loc *time.Location) *ReportService {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &ReportService{DB: db, Clock: clock, EventName: eventName, Location: loc}
}

func mealStats(claimed, total int64) MealStats {
	ms := MealStats{Claimed: claimed, Pending: total - claimed}
	if total > 0 {
		ms.Percentage = int(math.Round(float64(claimed) / float64(total) * 100))
	}
	return ms
}

// Stats counts participants and claimed meals. All four counts come from
// one read transaction so claimed+pending always equals total.
func (s *ReportService) Stats(ctx context.Context) (*Stats, error) {
	out := &Stats{}
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		total, err := store.CountParticipants(tx)
		if err != nil {
			return storageErr("count participants", err)
		}
		out.Total = total

		for _, meal := range models.MealTypes {
			claimed, err := store.CountClaimed(tx, meal)
			if err != nil {
				return storageErr("count claimed "+string(meal), err)
			}
			ms := mealStats(claimed, total)
			switch meal {
			case models.MealBreakfast:
				out.Breakfast = ms
			case models.MealLunch:
				out.Lunch = ms
			case models.MealDinner:
				out.Dinner = ms
			}
		}
		return nil
	}, snapshotTxOptions(s.DB, true)...)
	if err = typedOrStorage("stats transaction", err); err != nil {
		return nil, err
	}
	return out, nil
}

// GroupByTeam partitions participants by team id, keeping the order in
// which teams first appear and the member order within each team.
func GroupByTeam(participants []models.Participant) []TeamGroup {
	teams := []TeamGroup{}
	index := make(map[string]int)
	for _, p := range participants {
		i, ok := index[p.TeamID]
		if !ok {
			i = len(teams)
			index[p.TeamID] = i
			teams = append(teams, TeamGroup{TeamID: p.TeamID, TeamName: p.TeamName})
		}
		teams[i].Members = append(teams[i].Members, TeamMember{
			ParticipantID: p.ParticipantID,
			MemberName:    p.MemberName,
			MemberNumber:  p.MemberNumber,
			Meals:         p.Meals,
		})
		teams[i].MemberCount++
	}
	return teams
}

// AllParticipantsGroupedByTeam returns every participant grouped by team,
// ordered by (team_id, member_number). The second value is the participant count.
func (s *ReportService) AllParticipantsGroupedByTeam(ctx context.Context) ([]TeamGroup, int, error) {
	participants, err := store.ListParticipants(s.DB.WithContext(ctx))
	if err != nil {
		return nil, 0, storageErr("list participants", err)
	}
	return GroupByTeam(participants), len(participants), nil
}

// TeamDetail returns one team's group.
func (s *ReportService) TeamDetail(ctx context.Context, teamID string) (*TeamGroup, error) {
	id := models.NormalizeID(teamID)
	if id == "" {
		return nil, &NotFoundError{Kind: "team", ID: teamID}
	}
	participants, err := store.ListTeamParticipants(s.DB.WithContext(ctx), id)
	if err != nil {
		return nil, storageErr("list team participants", err)
	}
	if len(participants) == 0 {
		return nil, &NotFoundError{Kind: "team", ID: id}
	}
	group := GroupByTeam(participants)[0]
	return &group, nil
}

// GetParticipant returns one participant with its meal map.
func (s *ReportService) GetParticipant(ctx context.Context, participantID string) (*models.Participant, error) {
	id := models.NormalizeID(participantID)
	if id == "" {
		return nil, &ValidationError{Message: "participant ID is required"}
	}
	p, err := store.FindParticipant(s.DB.WithContext(ctx), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Kind: "participant", ID: id}
		}
		return nil, storageErr("find participant", err)
	}
	return p, nil
}

// RecentClaims returns the newest history entries. Non-positive limits fall
// back to DefaultRecentLimit; larger ones are capped at MaxRecentLimit.
func (s *ReportService) RecentClaims(ctx context.Context, limit int) ([]models.FoodClaim, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	if limit > MaxRecentLimit {
		limit = MaxRecentLimit
	}
	claims, err := store.RecentClaims(s.DB.WithContext(ctx), limit)
	if err != nil {
		return nil, storageErr("recent claims", err)
	}
	return claims, nil
}

func foldText(s string) string {
	return strings.ToLower(unidecode.Unidecode(strings.TrimSpace(s)))
}

// SearchParticipants matches query against participant id, member name,
// team id and team name, ignoring case and accents.
func (s *ReportService) SearchParticipants(ctx context.Context, query string, limit int) ([]models.Participant, error) {
	if limit <= 0 || limit > MaxSearchLimit {
		limit = DefaultSearchLimit
	}
	participants, err := store.ListParticipants(s.DB.WithContext(ctx))
	if err != nil {
		return nil, storageErr("list participants", err)
	}

	needle := foldText(query)
	matches := []models.Participant{}
	for _, p := range participants {
		if len(matches) == limit {
			break
		}
		if needle == "" ||
			strings.Contains(foldText(p.ParticipantID), needle) ||
			strings.Contains(foldText(p.MemberName), needle) ||
			strings.Contains(foldText(p.TeamID), needle) ||
			strings.Contains(foldText(p.TeamName), needle) {
			matches = append(matches, p)
		}
	}
	return matches, nil
}

// ExportFile is a generated spreadsheet ready to be sent or archived.
type ExportFile struct {
	Filename string
	Data     []byte
}

// ContentType is the xlsx media type.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportFilename stamps the event slug with the date in the export timezone.
func (s *ReportService) ExportFilename(now time.Time) string {
	name := slug.Make(s.EventName)
	if name == "" {
		name = "food-claims"
	}
	return name + "-" + now.In(s.Location).Format("2006-01-02") + ".xlsx"
}

// Export renders every participant as one spreadsheet row.
func (s *ReportService) Export(ctx context.Context) (*ExportFile, error) {
	participants, err := store.ListParticipants(s.DB.WithContext(ctx))
	if err != nil {
		return nil, storageErr("list participants", err)
	}
	if len(participants) == 0 {
		return nil, ErrEmptyDataset
	}

	data, err := buildWorkbook(participants, s.Location)
	if err != nil {
		return nil, storageErr("render export", err)
	}
	file := &ExportFile{Filename: s.ExportFilename(s.Clock.Now()), Data: data}
	log.Printf("📊 [EXPORT] %s: %d participants, %d bytes", file.Filename, len(participants), len(data))
	return file, nil
}

// Archiver persists an export somewhere durable and returns where it went.
type Archiver interface {
	Archive(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

type ArchiveResult struct {
	Filename string `json:"filename"`
	Key      string `json:"key"`
	Location string `json:"location"`
	Size     int    `json:"size"`
}

// ArchiveExport renders the export and hands it to a. Keys are unique per
// call so repeated archives on the same day never overwrite each other.
func (s *ReportService) ArchiveExport(ctx context.Context, a Archiver) (*ArchiveResult, error) {
	file, err := s.Export(ctx)
	if err != nil {
		return nil, err
	}
	key := "exports/" + strings.TrimSuffix(file.Filename, ".xlsx") + "-" + uuid.NewString() + ".xlsx"
	location, err := a.Archive(ctx, key, file.Data, ContentType)
	if err != nil {
		return nil, storageErr("archive export", err)
	}
	log.Printf("📦 [EXPORT] archived %s to %s", key, location)
	return &ArchiveResult{Filename: file.Filename, Key: key, Location: location, Size: len(file.Data)}, nil
}
