package api

import (
	"github.com/gofiber/fiber/v2"

	"tempo/internal/models"
	"tempo/internal/notify"
)

func VapidPublicKeyHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.VAPIDPublic == "" {
			return fiber.NewError(fiber.StatusServiceUnavailable, "Push notifications not configured")
		}
		return c.JSON(fiber.Map{"publicKey": deps.VAPIDPublic})
	}
}

func SubscribePushHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var sub models.PushSubscriptionRequest
		if err := c.BodyParser(&sub); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(sub); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Missing subscription fields")
		}

		_, err := deps.DB.Exec(
			`INSERT INTO push_subscriptions (endpoint, p256dh, auth)
			VALUES (?, ?, ?)
			ON CONFLICT(endpoint) DO UPDATE SET
			p256dh = excluded.p256dh,
			auth = excluded.auth`,
			sub.Endpoint, sub.P256dh, sub.Auth,
		)
		if err != nil {
			return err
		}

		// Subscribing is a user gesture that implies the browser permission
		// prompt was accepted.
		if err := deps.Permissions.Set(notify.PermissionGranted); err != nil {
			return err
		}

		return c.JSON(fiber.Map{"success": true})
	}
}

func UnsubscribePushHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body struct {
			Endpoint string `json:"endpoint"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		if _, err := deps.DB.Exec("DELETE FROM push_subscriptions WHERE endpoint = ?", body.Endpoint); err != nil {
			return err
		}
		return c.JSON(fiber.Map{"success": true})
	}
}

// SetPermissionHandler records the browser's notification permission, which
// the client reports on load and whenever it changes out-of-band.
func SetPermissionHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.PermissionRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}
		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid permission state")
		}

		if err := deps.Permissions.Set(notify.Permission(req.State)); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(fiber.Map{"state": req.State})
	}
}

func GetPermissionHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"state": string(deps.Permissions.Get())})
	}
}
