package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/joho/godotenv"

	"tempo/internal/api"
	"tempo/internal/auth"
	"tempo/internal/clock"
	"tempo/internal/config"
	"tempo/internal/database"
	"tempo/internal/notify"
	"tempo/internal/remind"
	"tempo/internal/timer"
	"tempo/internal/tone"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	settings, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load settings:", err)
	}

	db, err := database.Initialize(settings.DBPath)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	kv := database.NewKV(db)
	clk := clock.System()

	tokens, err := auth.New(settings.JWTSecret)
	if err != nil {
		log.Fatal("Failed to initialize auth:", err)
	}

	// Notification fan-out: tone synth + web push + in-process overlay hub.
	tones := tone.NewSynthesizer()
	permissions := notify.NewPermissionStore(kv)
	push := notify.NewPushSink(db, settings.VAPID)
	if !push.Configured() {
		log.Println("WARNING: VAPID keys not set; OS notifications disabled, overlay alerts still delivered")
	}
	dispatcher := notify.NewDispatcher(permissions, push, notify.NewHub(), tones)

	// Reminder core: store -> scheduler -> sweep safety net.
	store := remind.NewStore(kv, clk)
	guard := remind.NewDedupGuard(kv, settings.DedupRetention)
	scheduler := remind.NewOccurrenceScheduler(clk, store, dispatcher, guard)
	store.SetScheduler(scheduler)
	store.ArmAll()

	sweep := remind.NewSweepChecker(clk, store, scheduler, settings.SweepInterval, settings.SweepWindow)
	sweep.Pass() // catch anything that fell due while the process was down
	sweep.Start()
	defer sweep.Stop()

	countdown := timer.NewCountdown(kv, clk, dispatcher, settings.Timer)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     settings.AllowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
	}))

	api.SetupRoutes(app, api.Deps{
		DB:          db,
		Tokens:      tokens,
		Store:       store,
		Countdown:   countdown,
		Dispatcher:  dispatcher,
		Permissions: permissions,
		Push:        push,
		Tones:       tones,
		VAPIDPublic: settings.VAPID.PublicKey,
	})

	log.Printf("Server starting on port %s", settings.Port)
	log.Fatal(app.Listen(":" + settings.Port))
}
