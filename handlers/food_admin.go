package handlers

import (
	"fmt"
	"log"

	"meal-claim-system/middleware"
	"meal-claim-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupFoodAdminRoutes registers the volunteer desk endpoints under
// /api/food/admin. archiver may be nil, in which case archiving is refused.
func SetupFoodAdminRoutes(
	app *fiber.App,
	adminToken string,
	claimService *services.ClaimService,
	reportService *services.ReportService,
	reconcileService *services.ReconcileService,
	archiver services.Archiver,
) {
	admin := app.Group("/api/food/admin",
		middleware.AdminTokenMiddleware(adminToken),
		middleware.StaffContextMiddleware(),
	)
	loc := reportService.Location

	admin.Get("/stats", func(c *fiber.Ctx) error {
		stats, err := reportService.Stats(c.UserContext())
		if err != nil {
			return writeError(c, err, "Error fetching statistics", loc)
		}
		return c.JSON(fiber.Map{"success": true, "stats": stats})
	})

	admin.Get("/all-participants", func(c *fiber.Ctx) error {
		teams, total, err := reportService.AllParticipantsGroupedByTeam(c.UserContext())
		if err != nil {
			return writeError(c, err, "Error fetching participants", loc)
		}
		return c.JSON(fiber.Map{
			"success":           true,
			"totalTeams":        len(teams),
			"totalParticipants": total,
			"teams":             teams,
		})
	})

	admin.Get("/team/:teamId", func(c *fiber.Ctx) error {
		team, err := reportService.TeamDetail(c.UserContext(), c.Params("teamId"))
		if err != nil {
			return writeError(c, err, "Error fetching team", loc)
		}
		return c.JSON(fiber.Map{"success": true, "team": team})
	})

	admin.Get("/participants/search", func(c *fiber.Ctx) error {
		results, err := reportService.SearchParticipants(c.UserContext(), c.Query("q"),
			c.QueryInt("limit", services.DefaultSearchLimit))
		if err != nil {
			return writeError(c, err, "Error searching participants", loc)
		}
		return c.JSON(fiber.Map{
			"success":      true,
			"count":        len(results),
			"participants": results,
		})
	})

	admin.Post("/manual-claim", func(c *fiber.Ctx) error {
		id, meal, err := parseClaimRequest(c)
		if err != nil {
			return writeError(c, err, "Server error during manual claim", loc)
		}
		res, err := claimService.ManualClaim(c.UserContext(), id, meal)
		if err != nil {
			return writeError(c, err, "Server error during manual claim", loc)
		}
		log.Printf("🛠️ [ADMIN] %s manually claimed %s for %s", middleware.StaffID(c), res.MealType, res.ParticipantID)
		return c.JSON(fiber.Map{
			"success":     true,
			"message":     fmt.Sprintf("%s manually claimed for %s", services.MealTitle(res.MealType), res.MemberName),
			"participant": res,
		})
	})

	admin.Delete("/unclaim", func(c *fiber.Ctx) error {
		id, meal, err := parseClaimRequest(c)
		if err != nil {
			return writeError(c, err, "Server error during unclaim", loc)
		}
		res, err := claimService.Unclaim(c.UserContext(), id, meal)
		if err != nil {
			return writeError(c, err, "Server error during unclaim", loc)
		}
		log.Printf("🛠️ [ADMIN] %s unclaimed %s for %s", middleware.StaffID(c), res.MealType, res.ParticipantID)
		return c.JSON(fiber.Map{
			"success": true,
			"message": services.MealTitle(res.MealType) + " unclaimed successfully",
			"result":  res,
		})
	})

	admin.Get("/export", func(c *fiber.Ctx) error {
		file, err := reportService.Export(c.UserContext())
		if err != nil {
			return writeError(c, err, "Error generating export", loc)
		}
		log.Printf("📊 [ADMIN] %s downloaded %s", middleware.StaffID(c), file.Filename)
		c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, file.Filename))
		c.Set(fiber.HeaderContentType, services.ContentType)
		return c.Send(file.Data)
	})

	admin.Post("/export/archive", func(c *fiber.Ctx) error {
		if archiver == nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"success": false,
				"message": "export archive is not configured",
			})
		}
		res, err := reportService.ArchiveExport(c.UserContext(), archiver)
		if err != nil {
			return writeError(c, err, "Error archiving export", loc)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "archive": res})
	})

	admin.Post("/reconcile", func(c *fiber.Ctx) error {
		report, err := reconcileService.Reconcile(c.UserContext())
		if err != nil {
			return writeError(c, err, "Error reconciling claim history", loc)
		}
		log.Printf("🧹 [ADMIN] %s ran reconciliation: %d repairs", middleware.StaffID(c), report.Repairs())
		return c.JSON(fiber.Map{"success": true, "report": report})
	})
}
