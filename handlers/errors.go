package handlers

import (
	"errors"
	"log"
	"time"

	"meal-claim-system/services"

	"github.com/gofiber/fiber/v2"
)

const displayTimeLayout = "02/01/2006, 3:04:05 pm"

type claimedParticipant struct {
	services.ParticipantSummary
	ClaimedAt time.Time `json:"claimedAt"`
}

// writeError maps service error kinds onto status codes. Storage failures are
// logged here and reported with a generic message.
func writeError(c *fiber.Ctx, err error, fallback string, loc *time.Location) error {
	var (
		validation     *services.ValidationError
		notFound       *services.NotFoundError
		alreadyClaimed *services.AlreadyClaimedError
		notClaimed     *services.NotClaimedError
	)

	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": validation.Message,
		})
	case errors.As(err, &notFound):
		msg := "Participant not found"
		if notFound.Kind == "team" {
			msg = "Team not found"
		}
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": msg,
		})
	case errors.As(err, &alreadyClaimed):
		if loc == nil {
			loc = time.UTC
		}
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": services.MealTitle(alreadyClaimed.Meal) + " already claimed at " +
				alreadyClaimed.ClaimedAt.In(loc).Format(displayTimeLayout),
			"participant": claimedParticipant{
				ParticipantSummary: alreadyClaimed.Participant,
				ClaimedAt:          alreadyClaimed.ClaimedAt,
			},
		})
	case errors.As(err, &notClaimed):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"success": false,
			"message": services.MealTitle(notClaimed.Meal) + " not claimed yet",
		})
	case errors.Is(err, services.ErrEmptyDataset):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"success": false,
			"message": "No participants found",
		})
	}

	log.Printf("❌ [HTTP] %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"success": false,
		"message": fallback,
	})
}
