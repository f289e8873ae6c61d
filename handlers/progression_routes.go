// handlers/progression_routes.go
package handlers

import (
	"errors"
	"strconv"

	"engagement-engine/engine"
	"engagement-engine/events"
	"engagement-engine/middleware"
	"engagement-engine/models"
	"engagement-engine/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, progressionService *services.ProgressionService, hub *events.Hub) {
	// The gateway forwards /api/v1/engage/s/user/... as /user/...
	user := app.Group("/user", middleware.UserContextMiddleware())

	user.Get("/progress", func(c *fiber.Ctx) error {
		userID := middleware.UserID(c)
		if _, err := progressionService.EnsureProgressRecord(c.UserContext(), userID); err != nil {
			return respondError(c, "failed to initialize progress record", err)
		}
		snap, err := progressionService.GetSnapshot(c.UserContext(), userID)
		if err != nil {
			return respondError(c, "failed to load progress", err)
		}
		return c.JSON(snap)
	})

	user.Get("/missions", func(c *fiber.Ctx) error {
		snap, err := progressionService.GetSnapshot(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "failed to load missions", err)
		}
		return c.JSON(fiber.Map{
			"day":      snap.Day,
			"missions": snap.TodayMissions,
		})
	})

	user.Post("/checkin", func(c *fiber.Ctx) error {
		res, err := progressionService.DailyCheckIn(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "check-in failed", err)
		}
		body := resultBody(res)
		if res.Touch != nil {
			body["streak"] = fiber.Map{
				"continued": res.Touch.Continued,
				"lost":      res.Touch.Lost,
				"frozen":    res.Touch.Frozen,
			}
		}
		return c.JSON(body)
	})

	user.Post("/streak/freeze", func(c *fiber.Ctx) error {
		res, err := progressionService.FreezeStreak(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, "streak freeze failed", err)
		}
		body := resultBody(res)
		body["success"] = res.Declined == engine.DeclineNone
		if res.FreezeEnds != nil {
			body["freeze_expires_at"] = res.FreezeEnds
		}
		return c.JSON(body)
	})

	user.Post("/missions/progress", func(c *fiber.Ctx) error {
		type Req struct {
			Kind  models.MissionKind `json:"kind"`
			Delta int                `json:"delta"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		res, err := progressionService.RecordExerciseProgress(c.UserContext(), middleware.UserID(c), req.Kind, req.Delta)
		if err != nil {
			return respondError(c, "recording progress failed", err)
		}
		return c.JSON(resultBody(res))
	})

	user.Post("/missions/:id/complete", func(c *fiber.Ctx) error {
		res, err := progressionService.CompleteMission(c.UserContext(), middleware.UserID(c), c.Params("id"))
		if err != nil {
			return respondError(c, "mission completion failed", err)
		}
		return c.JSON(resultBody(res))
	})

	user.Get("/missions/history", func(c *fiber.Ctx) error {
		page, _ := strconv.Atoi(c.Query("page", "1"))
		size, _ := strconv.Atoi(c.Query("size", "20"))
		records, total, err := progressionService.ListCompletions(c.UserContext(), middleware.UserID(c), page, size)
		if err != nil {
			return respondError(c, "failed to get history", err)
		}
		if page < 1 {
			page = 1
		}
		if size < 1 || size > 100 {
			size = 20
		}
		return c.JSON(fiber.Map{
			"completions": records,
			"page":        page,
			"size":        size,
			"total_items": total,
			"total_pages": (total + int64(size) - 1) / int64(size),
		})
	})

	user.Get("/events/stream", StreamUserEventsSSE(hub))

	// Admin endpoints
	adminGroup := app.Group("/s/admin", middleware.UserContextMiddleware(), middleware.RequireRole("admin"))

	adminGroup.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			XP     int64  `json:"xp"`
			Reason string `json:"reason"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if len(req.Reason) > 255 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "reason too long",
			})
		}

		res, err := progressionService.GrantXP(c.UserContext(), req.UserID, req.XP, req.Reason)
		if err != nil {
			return respondError(c, "XP award failed", err)
		}

		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": req.UserID,
			"xp":      req.XP,
			"level":   res.State.Level,
			"rank":    res.State.Rank,
			"events":  res.Events,
		})
	})
}

func resultBody(res *services.Result) fiber.Map {
	body := fiber.Map{
		"noop":     res.Noop,
		"progress": res.State,
		"events":   res.Events,
	}
	if len(res.Events) == 0 {
		body["events"] = []models.Event{}
	}
	if res.Declined != engine.DeclineNone {
		body["declined"] = res.Declined
	}
	if res.Mission != nil {
		body["mission"] = res.Mission
	}
	if res.Record != nil {
		body["completion"] = res.Record
	}
	return body
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
func respondError(c *fiber.Ctx, msg string, err error) error {
	status := fiber.StatusInternalServerError
	body := fiber.Map{
		"error": msg,
		"cause": err.Error(),
	}
	switch {
	case errors.Is(err, engine.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, engine.ErrInvalidInput):
		status = fiber.StatusBadRequest
	case engine.IsRetryable(err):
		status = fiber.StatusServiceUnavailable
		body["retryable"] = true
	}
	return c.Status(status).JSON(body)
}
