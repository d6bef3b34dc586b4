package api

import (
	"database/sql"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tempo/internal/auth"
	"tempo/internal/notify"
	"tempo/internal/remind"
	"tempo/internal/timer"
	"tempo/internal/tone"
)

var validate = validator.New()

// Deps carries the service objects constructed in main; handlers hold no
// state of their own.
type Deps struct {
	DB          *sql.DB
	Tokens      *auth.Service
	Store       *remind.Store
	Countdown   *timer.Countdown
	Dispatcher  *notify.Dispatcher
	Permissions *notify.PermissionStore
	Push        *notify.PushSink
	Tones       *tone.Synthesizer
	VAPIDPublic string
}

func SetupRoutes(app *fiber.App, deps Deps) {
	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", RegisterHandler(deps))
	auth.Post("/login", LoginHandler(deps))
	auth.Post("/refresh", RefreshTokenHandler(deps))

	// Public endpoints the overlay client needs before authenticating.
	api.Get("/push/vapid-public-key", VapidPublicKeyHandler(deps))
	api.Get("/tone/:preset", ToneHandler(deps))

	protected := api.Group("/", AuthMiddleware(deps.Tokens))

	reminders := protected.Group("/reminders")
	reminders.Post("/", CreateReminderHandler(deps))
	reminders.Get("/", ListRemindersHandler(deps))
	reminders.Get("/upcoming", UpcomingRemindersHandler(deps))
	reminders.Get("/type/:type", RemindersByTypeHandler(deps))
	reminders.Get("/:id", GetReminderHandler(deps))
	reminders.Put("/:id", UpdateReminderHandler(deps))
	reminders.Post("/:id/complete", CompleteReminderHandler(deps))
	reminders.Delete("/:id", DeleteReminderHandler(deps))

	countdown := protected.Group("/timer")
	countdown.Get("/", TimerSnapshotHandler(deps))
	countdown.Post("/start", StartTimerHandler(deps))
	countdown.Post("/pause", PauseTimerHandler(deps))
	countdown.Post("/resume", ResumeTimerHandler(deps))
	countdown.Post("/stop", StopTimerHandler(deps))

	push := protected.Group("/push")
	push.Post("/subscribe", SubscribePushHandler(deps))
	push.Delete("/unsubscribe", UnsubscribePushHandler(deps))
	push.Put("/permission", SetPermissionHandler(deps))
	push.Get("/permission", GetPermissionHandler(deps))

	alerts := protected.Group("/alerts")
	alerts.Get("/stream", StreamAlertsHandler(deps))
	alerts.Post("/test", TestAlertHandler(deps))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
}
