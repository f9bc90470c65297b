package handlers

import (
	"strings"

	"meal-claim-system/services"

	"github.com/gofiber/fiber/v2"
)

// claimRequest accepts the snake_case fields and the camelCase ones sent by
// the scanner page.
type claimRequest struct {
	ParticipantID      string `json:"participant_id"`
	MealType           string `json:"meal_type"`
	ParticipantIDCamel string `json:"participantId"`
	MealTypeCamel      string `json:"mealType"`
}

func (r claimRequest) normalize() (string, string) {
	id, meal := r.ParticipantID, r.MealType
	if strings.TrimSpace(id) == "" {
		id = r.ParticipantIDCamel
	}
	if strings.TrimSpace(meal) == "" {
		meal = r.MealTypeCamel
	}
	return id, meal
}

func parseClaimRequest(c *fiber.Ctx) (string, string, error) {
	var req claimRequest
	if err := c.BodyParser(&req); err != nil {
		return "", "", &services.ValidationError{Message: "invalid request body"}
	}
	id, meal := req.normalize()
	return id, meal, nil
}

// SetupFoodRoutes registers the public scanner endpoints under /api/food.
func SetupFoodRoutes(app *fiber.App, claimService *services.ClaimService, reportService *services.ReportService) {
	food := app.Group("/api/food")

	food.Post("/claim", func(c *fiber.Ctx) error {
		id, meal, err := parseClaimRequest(c)
		if err != nil {
			return writeError(c, err, "Server error during meal claim", reportService.Location)
		}
		res, err := claimService.Claim(c.UserContext(), id, meal)
		if err != nil {
			return writeError(c, err, "Server error during meal claim", reportService.Location)
		}
		return c.JSON(fiber.Map{
			"success":     true,
			"message":     services.MealTitle(res.MealType) + " claimed successfully!",
			"participant": res,
		})
	})

	food.Get("/participant/:id", func(c *fiber.Ctx) error {
		p, err := reportService.GetParticipant(c.UserContext(), c.Params("id"))
		if err != nil {
			return writeError(c, err, "Server error", reportService.Location)
		}
		return c.JSON(fiber.Map{
			"success":     true,
			"participant": p,
		})
	})

	food.Get("/stats", func(c *fiber.Ctx) error {
		stats, err := reportService.Stats(c.UserContext())
		if err != nil {
			return writeError(c, err, "Error fetching statistics", reportService.Location)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"stats":   stats,
		})
	})

	food.Get("/recent", func(c *fiber.Ctx) error {
		claims, err := reportService.RecentClaims(c.UserContext(), c.QueryInt("limit", services.DefaultRecentLimit))
		if err != nil {
			return writeError(c, err, "Error fetching recent claims", reportService.Location)
		}
		return c.JSON(fiber.Map{
			"success": true,
			"count":   len(claims),
			"claims":  claims,
		})
	})
}
