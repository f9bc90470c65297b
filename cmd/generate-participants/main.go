// Command generate-participants rebuilds the participant table from the team
// roster. It clears every participant and claim history entry first, so run
// it before the event starts.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"meal-claim-system/config"
	"meal-claim-system/models"
	"meal-claim-system/services"
	"meal-claim-system/workers"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func main() {
	if err := run(); err != nil {
		log.Printf("❌ Fatal error: %v", err)
		os.Exit(1)
	}
}

func run() error {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	env := config.LoadProvision()
	var (
		databaseURL = flag.String("database-url", env.DatabaseURL, "Postgres connection string")
		rosterFile  = flag.String("roster-file", "", "read teams from a JSON file instead of selected_teams")
		rosterURL   = flag.String("roster-url", env.RosterURL, "fetch teams from the registration service")
		rosterToken = flag.String("roster-token", env.RosterServiceToken, "X-Service-Token for --roster-url")
		dryRun      = flag.Bool("dry-run", false, "print the plan without writing")
		sampleSize  = flag.Int("sample", 5, "participants to print after generation")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		db  *gorm.DB
		err error
	)
	needDB := !*dryRun || (*rosterFile == "" && *rosterURL == "")
	if needDB {
		if *databaseURL == "" {
			return fmt.Errorf("DATABASE_URL or --database-url is required")
		}
		log.Println("🔄 Connecting to database...")
		db, err = gorm.Open(postgres.Open(*databaseURL), &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)})
		if err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		if err := db.AutoMigrate(&models.Participant{}, &models.FoodClaim{}, &models.SelectedTeam{}); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		log.Println("✅ Connected")
	}

	svc := services.NewProvisionService(db)

	var teams []models.SelectedTeam
	switch {
	case *rosterFile != "":
		teams, err = workers.LoadRosterFile(*rosterFile)
	case *rosterURL != "":
		teams, err = workers.NewRosterClient(*rosterURL, *rosterToken).Fetch(ctx)
	default:
		teams, err = svc.SelectedTeams(ctx)
	}
	if err != nil {
		return err
	}
	log.Printf("📊 Found %d teams", len(teams))
	if len(teams) == 0 {
		log.Println("⚠️ No teams found. Import teams first.")
		return nil
	}

	plan := services.BuildParticipants(teams)
	for _, p := range plan.Participants {
		log.Printf("  ✅ %s - %s (%s)", p.ParticipantID, p.MemberName, p.TeamName)
	}

	rule := strings.Repeat("=", 70)
	fmt.Println(rule)
	fmt.Println("📊 GENERATION SUMMARY")
	fmt.Println(rule)
	fmt.Printf("Teams in roster:       %d\n", plan.Teams)
	fmt.Printf("Teams skipped:         %d\n", len(plan.SkippedTeams))
	fmt.Printf("Members ignored (>%d): %d\n", services.MaxTeamMembers, plan.IgnoredMembers)
	fmt.Printf("Participants:          %d\n", len(plan.Participants))
	fmt.Println(rule)

	if *dryRun {
		fmt.Println("Dry run, nothing written.")
		return nil
	}

	deleted, err := svc.Regenerate(ctx, plan)
	if err != nil {
		return err
	}
	fmt.Printf("🗑️ Cleared %d existing participants\n", deleted)

	sample, err := svc.Sample(ctx, *sampleSize)
	if err != nil {
		return err
	}
	fmt.Println("\n📋 Sample participants:")
	for _, p := range sample {
		fmt.Printf("   %s - %s (%s)\n", p.ParticipantID, p.MemberName, p.TeamName)
	}
	fmt.Println("\n✅ Participant generation completed successfully!")
	return nil
}
