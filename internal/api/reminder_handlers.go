package api

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"

	"tempo/internal/models"
)

func CreateReminderHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.CreateReminderRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Type != "" && !req.Type.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown reminder type")
		}

		reminder := req.ToReminder()
		id := deps.Store.Add(reminder)

		created, _ := deps.Store.Get(id)
		return c.Status(fiber.StatusCreated).JSON(created)
	}
}

func ListRemindersHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(deps.Store.All())
	}
}

func UpcomingRemindersHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		minutes := 60
		if v := c.Query("minutes"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid minutes value")
			}
			minutes = n
		}
		return c.JSON(deps.Store.Upcoming(time.Duration(minutes) * time.Minute))
	}
}

func RemindersByTypeHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		category := models.Category(c.Params("type"))
		if !category.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown reminder type")
		}
		return c.JSON(deps.Store.ByType(category))
	}
}

func GetReminderHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		reminder, ok := deps.Store.Get(c.Params("id"))
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "Reminder not found")
		}
		return c.JSON(reminder)
	}
}

func UpdateReminderHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		existing, ok := deps.Store.Get(id)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "Reminder not found")
		}

		var req models.CreateReminderRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		if req.Type != "" && !req.Type.Valid() {
			return fiber.NewError(fiber.StatusBadRequest, "Unknown reminder type")
		}

		updated := req.ToReminder()
		updated.ID = id
		updated.Completed = existing.Completed
		updated.CompletedAt = existing.CompletedAt

		if !deps.Store.Update(updated) {
			return fiber.NewError(fiber.StatusNotFound, "Reminder not found")
		}

		result, _ := deps.Store.Get(id)
		return c.JSON(result)
	}
}

func CompleteReminderHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if !deps.Store.Complete(id) {
			return fiber.NewError(fiber.StatusNotFound, "Reminder not found or already completed")
		}
		reminder, _ := deps.Store.Get(id)
		return c.JSON(reminder)
	}
}

func DeleteReminderHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !deps.Store.Remove(c.Params("id")) {
			return fiber.NewError(fiber.StatusNotFound, "Reminder not found")
		}
		return c.JSON(fiber.Map{"success": true})
	}
}
