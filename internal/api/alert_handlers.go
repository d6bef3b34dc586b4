package api

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"tempo/internal/models"
	"tempo/internal/notify"
)

// StreamAlertsHandler feeds the in-process broadcast channel to the dashboard
// overlay as server-sent events.
func StreamAlertsHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set("Content-Type", "text/event-stream")
		c.Set("Cache-Control", "no-cache")
		c.Set("Connection", "keep-alive")

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			alerts, cancel := deps.Dispatcher.Overlay().Subscribe(16)
			defer cancel()

			keepalive := time.NewTicker(15 * time.Second)
			defer keepalive.Stop()

			for {
				select {
				case alert, ok := <-alerts:
					if !ok {
						return
					}
					payload, err := json.Marshal(alert)
					if err != nil {
						continue
					}
					fmt.Fprintf(w, "data: %s\n\n", payload)
					if err := w.Flush(); err != nil {
						return
					}
				case <-keepalive.C:
					fmt.Fprint(w, ": keepalive\n\n")
					if err := w.Flush(); err != nil {
						return
					}
				}
			}
		}))
		return nil
	}
}

// TestAlertHandler dispatches a manual alert so users can verify their
// notification setup end to end.
func TestAlertHandler(deps Deps) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req models.TestAlertRequest
		if err := c.BodyParser(&req); err != nil && len(c.Body()) > 0 {
			return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
		}

		notice := notify.Notice{
			Title:    req.Title,
			Body:     req.Body,
			Category: models.CategoryGeneral,
			Sound:    req.Sound,
			Volume:   req.Volume,
			Data:     map[string]any{"test": true},
		}
		if notice.Title == "" {
			notice.Title = "Tempo test notification"
		}
		if notice.Body == "" {
			notice.Body = "This is a test notification"
		}
		if notice.Sound == "" {
			notice.Sound = "classic"
		}
		if notice.Volume <= 0 {
			notice.Volume = 100
		}

		result := deps.Dispatcher.Deliver(notice)
		return c.JSON(fiber.Map{
			"permission": string(result.Permission),
			"pushed":     result.Pushed,
			"tonePlayed": result.TonePlayed,
		})
	}
}
