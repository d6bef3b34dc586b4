package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"tempo/internal/models"
)

func TimerSnapshotHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Countdown.Snapshot())
	}
}

func StartTimerHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.StartTimerRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if !req.Mode.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown timer mode")
		}

		deps.Countdown.Start(time.Duration(req.DurationSeconds)*time.Second, req.Mode, req.Task)
		return c.JSON(deps.Countdown.Snapshot())
	}
}

func PauseTimerHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !deps.Countdown.Pause() {
			return fiber.NewError(fiber.StatusConflict, "Timer is not running")
		}
		return c.JSON(deps.Countdown.Snapshot())
	}
}

func ResumeTimerHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !deps.Countdown.Resume() {
			return fiber.NewError(fiber.StatusConflict, "Timer is not paused")
		}
		return c.JSON(deps.Countdown.Snapshot())
	}
}

func StopTimerHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deps.Countdown.Stop()
		return c.JSON(deps.Countdown.Snapshot())
	}
}
