package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"meal-claim-system/config"
	"meal-claim-system/handlers"
	"meal-claim-system/metrics"
	"meal-claim-system/models"
	"meal-claim-system/services"
	"meal-claim-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database: ", err)
	}

	if err := db.AutoMigrate(
		&models.Participant{},
		&models.FoodClaim{},
		&models.SelectedTeam{},
	); err != nil {
		log.Fatal("failed to migrate database: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	clock := clockwork.NewRealClock()
	claimService := services.NewClaimService(db, clock, m)
	reportService := services.NewReportService(db, clock, cfg.EventName, cfg.ExportTimezone)
	reconcileService := services.NewReconcileService(db, m)

	var archiver services.Archiver = &utils.DirArchiver{Dir: cfg.ExportDir}
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Archiver(ctx, cfg.R2)
		if err != nil {
			log.Fatal("failed to initialize R2 client: ", err)
		}
		archiver = r2
		log.Printf("✅ Export archive: R2 bucket %s", cfg.R2.Bucket)
	} else {
		log.Printf("✅ Export archive: local directory %s", cfg.ExportDir)
	}

	sched, err := reconcileService.StartReconcileScheduler(ctx, cfg.ReconcileInterval, clock)
	if err != nil {
		log.Fatal("failed to start reconciliation scheduler: ", err)
	}

	app := fiber.New(fiber.Config{
		AppName:      "meal-claim-system",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} ${method} ${path} ${latency}\n",
	}))

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:  allowedOrigins,
		AllowMethods:  "GET,POST,DELETE,OPTIONS,HEAD",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-Staff-ID",
		ExposeHeaders: "Content-Length, Content-Type, Content-Disposition, X-Request-ID",
		MaxAge:        86400,
	}))

	handlers.SetupOpsRoutes(app, db, reg)
	handlers.SetupFoodRoutes(app, claimService, reportService)
	handlers.SetupFoodAdminRoutes(app, cfg.AdminServiceToken, claimService, reportService, reconcileService, archiver)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ CORS configured for origins: %s", allowedOrigins)

	<-ctx.Done()
	log.Println("Shutting down server...")

	if sched != nil {
		if err := sched.Shutdown(); err != nil {
			log.Printf("scheduler shutdown: %v", err)
		}
	}
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
