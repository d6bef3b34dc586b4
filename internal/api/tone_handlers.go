package api

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
)

// ToneHandler serves the rendered alert tone for a preset so the overlay can
// play it with a plain <audio> element.
func ToneHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		volume := 100
		if v := c.Query("volume"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "Invalid volume")
			}
			volume = n
		}

		wav, err := deps.Tones.Render(c.Params("preset"), volume)
		if err != nil {
			return fiber.NewError(fiber.StatusNotFound, err.Error())
		}

		c.Set("Content-Type", "audio/wav")
		c.Set("Cache-Control", "max-age=86400")
		return c.Send(wav)
	}
}
