package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type VAPID struct {
	Subject    string
	PublicKey  string
	PrivateKey string
}

type TimerSettings struct {
	Pomodoro                time.Duration
	ShortBreak              time.Duration
	LongBreak               time.Duration
	SessionsBeforeLongBreak int
	AutoStartNext           bool
}

type Settings struct {
	Port           string
	DBPath         string
	AllowedOrigins string
	JWTSecret      string

	SweepInterval  time.Duration
	SweepWindow    time.Duration
	DedupRetention time.Duration

	Timer TimerSettings
	VAPID VAPID
}

func defaults() Settings {
	return Settings{
		Port:           "3000",
		DBPath:         "./data/tempo.db",
		AllowedOrigins: "http://localhost:80,http://localhost:5173",
		SweepInterval:  30 * time.Second,
		SweepWindow:    30 * time.Second,
		DedupRetention: 30 * 24 * time.Hour,
		Timer: TimerSettings{
			Pomodoro:                25 * time.Minute,
			ShortBreak:              5 * time.Minute,
			LongBreak:               15 * time.Minute,
			SessionsBeforeLongBreak: 4,
			AutoStartNext:           false,
		},
	}
}

// yamlSettings is the optional settings.yaml overlay for scheduling knobs.
// Deployment-level values (port, secrets, VAPID keys) stay in the environment.
type yamlSettings struct {
	SweepIntervalSeconds int  `yaml:"sweep_interval_seconds"`
	DedupRetentionDays   int  `yaml:"dedup_retention_days"`
	PomodoroMinutes      int  `yaml:"pomodoro_minutes"`
	ShortBreakMinutes    int  `yaml:"short_break_minutes"`
	LongBreakMinutes     int  `yaml:"long_break_minutes"`
	SessionsBeforeLong   int  `yaml:"sessions_before_long_break"`
	AutoStartNext        bool `yaml:"auto_start_next"`
}

// Load builds settings from defaults, an optional YAML file and environment
// overrides, in that order.
func Load() (Settings, error) {
	settings := defaults()

	path := os.Getenv("SETTINGS_FILE")
	if path == "" {
		path = "./settings.yaml"
	}
	if err := applyFile(&settings, path); err != nil {
		return settings, err
	}
	applyEnv(&settings)

	if settings.JWTSecret == "" {
		return settings, errors.New("JWT_SECRET environment variable is required")
	}
	if len(settings.JWTSecret) < 32 {
		return settings, errors.New("JWT_SECRET must be at least 32 characters long")
	}
	return settings, nil
}

func applyFile(settings *Settings, path string) error {
	rawData, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return fmt.Errorf("parse settings yaml: %w", err)
	}

	if fileData.SweepIntervalSeconds > 0 {
		settings.SweepInterval = time.Duration(fileData.SweepIntervalSeconds) * time.Second
		settings.SweepWindow = settings.SweepInterval
	}
	if fileData.DedupRetentionDays > 0 {
		settings.DedupRetention = time.Duration(fileData.DedupRetentionDays) * 24 * time.Hour
	}
	if fileData.PomodoroMinutes > 0 {
		settings.Timer.Pomodoro = time.Duration(fileData.PomodoroMinutes) * time.Minute
	}
	if fileData.ShortBreakMinutes > 0 {
		settings.Timer.ShortBreak = time.Duration(fileData.ShortBreakMinutes) * time.Minute
	}
	if fileData.LongBreakMinutes > 0 {
		settings.Timer.LongBreak = time.Duration(fileData.LongBreakMinutes) * time.Minute
	}
	if fileData.SessionsBeforeLong > 0 {
		settings.Timer.SessionsBeforeLongBreak = fileData.SessionsBeforeLong
	}
	settings.Timer.AutoStartNext = fileData.AutoStartNext

	log.Printf("Loaded settings overrides from %s", path)
	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("PORT"); v != "" {
		settings.Port = v
	}
	if v := os.Getenv("DB_PATH"); v != "" {
		settings.DBPath = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		settings.AllowedOrigins = v
	}
	settings.JWTSecret = os.Getenv("JWT_SECRET")

	if v := os.Getenv("SWEEP_INTERVAL_SECONDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			settings.SweepInterval = time.Duration(n) * time.Second
			settings.SweepWindow = settings.SweepInterval
		}
	}
	if v := os.Getenv("AUTO_START_NEXT"); v != "" {
		settings.Timer.AutoStartNext = v == "true"
	}

	settings.VAPID = VAPID{
		Subject:    os.Getenv("VAPID_SUBJECT"),
		PublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		PrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
	}
}
