package api_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"tempo/internal/api"
	"tempo/internal/auth"
	"tempo/internal/clock"
	"tempo/internal/config"
	"tempo/internal/database"
	"tempo/internal/models"
	"tempo/internal/notify"
	"tempo/internal/remind"
	"tempo/internal/timer"
	"tempo/internal/tone"

	"github.com/gofiber/fiber/v2"
)

const testSecret = "test-secret-value-at-least-32-chars-long"

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	db, err := database.Initialize(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	kv := database.NewKV(db)
	clk := clock.System()

	tokens, err := auth.New(testSecret)
	if err != nil {
		t.Fatal(err)
	}

	tones := tone.NewSynthesizer()
	permissions := notify.NewPermissionStore(kv)
	push := notify.NewPushSink(db, config.VAPID{})
	dispatcher := notify.NewDispatcher(permissions, push, notify.NewHub(), tones)

	store := remind.NewStore(kv, clk)
	guard := remind.NewDedupGuard(kv, 30*24*time.Hour)
	scheduler := remind.NewOccurrenceScheduler(clk, store, dispatcher, guard)
	store.SetScheduler(scheduler)

	countdown := timer.NewCountdown(kv, clk, dispatcher, config.TimerSettings{
		Pomodoro:                25 * time.Minute,
		ShortBreak:              5 * time.Minute,
		LongBreak:               15 * time.Minute,
		SessionsBeforeLongBreak: 4,
	})
	t.Cleanup(countdown.Stop)

	app := fiber.New()
	api.SetupRoutes(app, api.Deps{
		DB:          db,
		Tokens:      tokens,
		Store:       store,
		Countdown:   countdown,
		Dispatcher:  dispatcher,
		Permissions: permissions,
		Push:        push,
		Tones:       tones,
		VAPIDPublic: "",
	})
	return app
}

func registerAndGetToken(t *testing.T, app *fiber.App) string {
	t.Helper()

	registerReq := models.RegisterRequest{
		Username: "testuser",
		Password: "password123",
	}
	body, _ := json.Marshal(registerReq)
	req := httptest.NewRequest("POST", "/api/auth/register", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 201 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status 201, got %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var authResp models.AuthResponse
	bodyBytes, _ := io.ReadAll(resp.Body)
	json.Unmarshal(bodyBytes, &authResp)
	if authResp.Token == "" {
		t.Fatal("Expected token in response")
	}
	return authResp.Token
}

func doJSON(t *testing.T, app *fiber.App, method, target, token string, payload any) (int, []byte) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	bodyBytes, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, bodyBytes
}

func TestRegisterAndLogin(t *testing.T) {
	app := setupTestApp(t)

	registerAndGetToken(t, app)

	// Second registration is rejected: single-user instance.
	status, _ := doJSON(t, app, "POST", "/api/auth/register", "", models.RegisterRequest{
		Username: "intruder",
		Password: "password123",
	})
	if status != 403 {
		t.Fatalf("Expected status 403 for second registration, got %d", status)
	}

	status, body := doJSON(t, app, "POST", "/api/auth/login", "", models.LoginRequest{
		Username: "testuser",
		Password: "password123",
	})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d: %s", status, string(body))
	}

	var loginResp models.AuthResponse
	json.Unmarshal(body, &loginResp)
	if loginResp.Token == "" || loginResp.RefreshToken == "" {
		t.Fatal("Expected token pair in login response")
	}

	status, _ = doJSON(t, app, "POST", "/api/auth/login", "", models.LoginRequest{
		Username: "testuser",
		Password: "wrongpassword",
	})
	if status != 401 {
		t.Fatalf("Expected status 401 for bad password, got %d", status)
	}
}

func TestRefreshToken(t *testing.T) {
	app := setupTestApp(t)
	registerAndGetToken(t, app)

	_, body := doJSON(t, app, "POST", "/api/auth/login", "", models.LoginRequest{
		Username: "testuser",
		Password: "password123",
	})
	var loginResp models.AuthResponse
	json.Unmarshal(body, &loginResp)

	status, body := doJSON(t, app, "POST", "/api/auth/refresh", "", map[string]string{
		"refreshToken": loginResp.RefreshToken,
	})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d: %s", status, string(body))
	}

	var refreshed models.AuthResponse
	json.Unmarshal(body, &refreshed)
	if refreshed.Token == "" {
		t.Fatal("Expected a fresh access token")
	}

	// An access token must not pass as a refresh token.
	status, _ = doJSON(t, app, "POST", "/api/auth/refresh", "", map[string]string{
		"refreshToken": loginResp.Token,
	})
	if status != 401 {
		t.Fatalf("Expected status 401 for wrong token type, got %d", status)
	}
}

func TestReminderCRUD(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndGetToken(t, app)

	scheduled := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	status, body := doJSON(t, app, "POST", "/api/reminders/", token, models.CreateReminderRequest{
		Title:         "Take Vitamin D",
		ScheduledTime: scheduled,
		Type:          models.CategoryMedication,
	})
	if status != 201 {
		t.Fatalf("Expected status 201, got %d: %s", status, string(body))
	}

	var created models.Reminder
	json.Unmarshal(body, &created)
	if created.ID == "" {
		t.Fatal("Expected an assigned reminder id")
	}
	if !created.SoundEnabled || created.Volume != 100 {
		t.Fatalf("Expected default delivery settings, got %+v", created)
	}

	// Get
	status, body = doJSON(t, app, "GET", "/api/reminders/"+created.ID, token, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}

	// List
	status, body = doJSON(t, app, "GET", "/api/reminders/", token, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	var all []models.Reminder
	json.Unmarshal(body, &all)
	if len(all) != 1 {
		t.Fatalf("Expected 1 reminder, got %d", len(all))
	}

	// Upcoming within 2 hours includes it, within 30 minutes does not.
	status, body = doJSON(t, app, "GET", "/api/reminders/upcoming?minutes=120", token, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	var upcoming []models.Reminder
	json.Unmarshal(body, &upcoming)
	if len(upcoming) != 1 {
		t.Fatalf("Expected 1 upcoming reminder, got %d", len(upcoming))
	}
	_, body = doJSON(t, app, "GET", "/api/reminders/upcoming?minutes=30", token, nil)
	upcoming = nil
	json.Unmarshal(body, &upcoming)
	if len(upcoming) != 0 {
		t.Fatalf("Expected no reminders within 30 minutes, got %d", len(upcoming))
	}

	// By type
	status, body = doJSON(t, app, "GET", "/api/reminders/type/medication", token, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	var meds []models.Reminder
	json.Unmarshal(body, &meds)
	if len(meds) != 1 {
		t.Fatalf("Expected 1 medication reminder, got %d", len(meds))
	}
	status, _ = doJSON(t, app, "GET", "/api/reminders/type/nonsense", token, nil)
	if status != 400 {
		t.Fatalf("Expected status 400 for unknown type, got %d", status)
	}

	// Update
	status, body = doJSON(t, app, "PUT", "/api/reminders/"+created.ID, token, models.CreateReminderRequest{
		Title:         "Take Vitamin D with food",
		ScheduledTime: scheduled.Add(30 * time.Minute),
		Type:          models.CategoryMedication,
	})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d: %s", status, string(body))
	}
	var updated models.Reminder
	json.Unmarshal(body, &updated)
	if updated.Title != "Take Vitamin D with food" {
		t.Fatalf("Expected updated title, got %q", updated.Title)
	}

	// Complete once, then never again.
	status, _ = doJSON(t, app, "POST", "/api/reminders/"+created.ID+"/complete", token, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	status, _ = doJSON(t, app, "POST", "/api/reminders/"+created.ID+"/complete", token, nil)
	if status != 404 {
		t.Fatalf("Expected status 404 on double complete, got %d", status)
	}

	// Delete
	status, _ = doJSON(t, app, "DELETE", "/api/reminders/"+created.ID, token, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	status, _ = doJSON(t, app, "GET", "/api/reminders/"+created.ID, token, nil)
	if status != 404 {
		t.Fatalf("Expected status 404 after delete, got %d", status)
	}
}

func TestCreateReminderValidation(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndGetToken(t, app)

	// Missing title
	status, _ := doJSON(t, app, "POST", "/api/reminders/", token, models.CreateReminderRequest{
		ScheduledTime: time.Now().Add(time.Hour),
	})
	if status != 400 {
		t.Fatalf("Expected status 400 for missing title, got %d", status)
	}

	// Unknown category
	status, _ = doJSON(t, app, "POST", "/api/reminders/", token, models.CreateReminderRequest{
		Title:         "Bad type",
		ScheduledTime: time.Now().Add(time.Hour),
		Type:          "laundry",
	})
	if status != 400 {
		t.Fatalf("Expected status 400 for unknown type, got %d", status)
	}

	// No token
	status, _ = doJSON(t, app, "GET", "/api/reminders/", "", nil)
	if status != 401 {
		t.Fatalf("Expected status 401 without token, got %d", status)
	}
}

func TestTimerEndpoints(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndGetToken(t, app)

	// Idle snapshot
	status, body := doJSON(t, app, "GET", "/api/timer/", token, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	var snap models.CountdownSnapshot
	json.Unmarshal(body, &snap)
	if snap.IsActive {
		t.Fatal("Expected idle timer before start")
	}

	// Pause before start conflicts.
	status, _ = doJSON(t, app, "POST", "/api/timer/pause", token, nil)
	if status != 409 {
		t.Fatalf("Expected status 409, got %d", status)
	}

	// Start
	status, body = doJSON(t, app, "POST", "/api/timer/start", token, models.StartTimerRequest{
		DurationSeconds: 1500,
		Mode:            models.ModePomodoro,
		Task:            "write report",
	})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d: %s", status, string(body))
	}
	json.Unmarshal(body, &snap)
	if !snap.IsActive || snap.Mode != models.ModePomodoro || snap.Task != "write report" {
		t.Fatalf("Unexpected snapshot after start: %+v", snap)
	}

	// Pause / resume
	status, body = doJSON(t, app, "POST", "/api/timer/pause", token, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	json.Unmarshal(body, &snap)
	if !snap.IsPaused {
		t.Fatal("Expected paused snapshot")
	}
	status, _ = doJSON(t, app, "POST", "/api/timer/resume", token, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}

	// Invalid mode
	status, _ = doJSON(t, app, "POST", "/api/timer/start", token, models.StartTimerRequest{
		DurationSeconds: 300,
		Mode:            "marathon",
	})
	if status != 400 {
		t.Fatalf("Expected status 400 for unknown mode, got %d", status)
	}

	// Stop
	status, body = doJSON(t, app, "POST", "/api/timer/stop", token, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	json.Unmarshal(body, &snap)
	if snap.IsActive {
		t.Fatal("Expected idle timer after stop")
	}
}

func TestPermissionEndpoints(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndGetToken(t, app)

	status, body := doJSON(t, app, "GET", "/api/push/permission", token, nil)
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}
	var state map[string]string
	json.Unmarshal(body, &state)
	if state["state"] != "default" {
		t.Fatalf("Expected default permission, got %q", state["state"])
	}

	status, _ = doJSON(t, app, "PUT", "/api/push/permission", token, models.PermissionRequest{State: "granted"})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d", status)
	}

	_, body = doJSON(t, app, "GET", "/api/push/permission", token, nil)
	json.Unmarshal(body, &state)
	if state["state"] != "granted" {
		t.Fatalf("Expected granted permission, got %q", state["state"])
	}

	status, _ = doJSON(t, app, "PUT", "/api/push/permission", token, models.PermissionRequest{State: "maybe"})
	if status != 400 {
		t.Fatalf("Expected status 400 for invalid state, got %d", status)
	}
}

func TestToneEndpoint(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest("GET", "/api/tone/classic", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "audio/wav" {
		t.Fatalf("Expected audio/wav, got %q", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if len(body) < 44 || string(body[:4]) != "RIFF" {
		t.Fatal("Expected a RIFF WAV payload")
	}

	req = httptest.NewRequest("GET", "/api/tone/airhorn", nil)
	resp, _ = app.Test(req)
	if resp.StatusCode != 404 {
		t.Fatalf("Expected status 404 for unknown preset, got %d", resp.StatusCode)
	}
}

func TestTestAlertEndpoint(t *testing.T) {
	app := setupTestApp(t)
	token := registerAndGetToken(t, app)

	status, body := doJSON(t, app, "POST", "/api/alerts/test", token, models.TestAlertRequest{
		Title: "Ping",
	})
	if status != 200 {
		t.Fatalf("Expected status 200, got %d: %s", status, string(body))
	}

	var result map[string]any
	json.Unmarshal(body, &result)
	if result["permission"] != "default" {
		t.Fatalf("Expected default permission in result, got %v", result["permission"])
	}
	if pushed, _ := result["pushed"].(bool); pushed {
		t.Fatal("Push must not report delivered without permission")
	}
}

func TestHealthEndpoint(t *testing.T) {
	app := setupTestApp(t)

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
}
