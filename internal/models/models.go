package models

import "time"

// Category tags a reminder so the UI can route clicks to the right page.
type Category string

const (
	CategoryMedication Category = "medication"
	CategoryTask       Category = "task"
	CategoryHabit      Category = "habit"
	CategoryGoal       Category = "goal"
	CategoryTimer      Category = "timer"
	CategoryStudy      Category = "study"
	CategoryGeneral    Category = "general"
	CategoryHealth     Category = "health"
)

var categories = map[Category]bool{
	CategoryMedication: true,
	CategoryTask:       true,
	CategoryHabit:      true,
	CategoryGoal:       true,
	CategoryTimer:      true,
	CategoryStudy:      true,
	CategoryGeneral:    true,
	CategoryHealth:     true,
}

func (c Category) Valid() bool {
	return categories[c]
}

// Recurrence pattern names. A reminder may also carry an explicit weekday set
// in Days (used with PatternWeekly) or a legacy comma-joined weekday list as
// the pattern string itself ("monday,wednesday,friday").
const (
	PatternDaily   = "daily"
	PatternWeekly  = "weekly"
	PatternMonthly = "monthly"
)

type Reminder struct {
	ID                  string         `json:"id"`
	Title               string         `json:"title"`
	Description         string         `json:"description,omitempty"`
	ScheduledTime       time.Time      `json:"scheduledTime"`
	Type                Category       `json:"type"`
	Recurring           bool           `json:"recurring"`
	Pattern             string         `json:"pattern,omitempty"`
	Days                []string       `json:"days,omitempty"`
	SoundEnabled        bool           `json:"soundEnabled"`
	Sound               string         `json:"sound,omitempty"`
	Volume              int            `json:"volume"`
	NotificationEnabled bool           `json:"notificationEnabled"`
	VibrationEnabled    bool           `json:"vibrationEnabled"`
	Data                map[string]any `json:"data,omitempty"`
	Completed           bool           `json:"completed"`
	CompletedAt         *time.Time     `json:"completedAt,omitempty"`
}

// TimerMode is the countdown session kind.
type TimerMode string

const (
	ModePomodoro   TimerMode = "pomodoro"
	ModeShortBreak TimerMode = "shortBreak"
	ModeLongBreak  TimerMode = "longBreak"
)

func (m TimerMode) Valid() bool {
	return m == ModePomodoro || m == ModeShortBreak || m == ModeLongBreak
}

// CountdownSnapshot is the single persisted countdown record. TimeLeft is a
// derived value: while running it is recomputed from StartedAt, never trusted
// from storage.
type CountdownSnapshot struct {
	IsActive  bool       `json:"isActive"`
	IsPaused  bool       `json:"isPaused"`
	Mode      TimerMode  `json:"mode"`
	Duration  int        `json:"duration"` // seconds
	TimeLeft  int        `json:"timeLeft"` // seconds
	StartedAt *time.Time `json:"startTimestamp,omitempty"`
	Task      string     `json:"task,omitempty"`
	Sessions  int        `json:"sessionsCompleted"`
}

type CreateReminderRequest struct {
	ID                  string         `json:"id,omitempty"`
	Title               string         `json:"title" validate:"required,max=200"`
	Description         string         `json:"description,omitempty" validate:"max=2000"`
	ScheduledTime       time.Time      `json:"scheduledTime" validate:"required"`
	Type                Category       `json:"type,omitempty"`
	Recurring           bool           `json:"recurring"`
	Pattern             string         `json:"pattern,omitempty"`
	Days                []string       `json:"days,omitempty"`
	SoundEnabled        *bool          `json:"soundEnabled,omitempty"`
	Sound               string         `json:"sound,omitempty"`
	Volume              *int           `json:"volume,omitempty" validate:"omitempty,min=0,max=100"`
	NotificationEnabled *bool          `json:"notificationEnabled,omitempty"`
	VibrationEnabled    *bool          `json:"vibrationEnabled,omitempty"`
	Data                map[string]any `json:"data,omitempty"`
}

// ToReminder applies the default delivery flags for fields the caller left
// unset, without overwriting explicit values.
func (req CreateReminderRequest) ToReminder() Reminder {
	r := Reminder{
		ID:                  req.ID,
		Title:               req.Title,
		Description:         req.Description,
		ScheduledTime:       req.ScheduledTime,
		Type:                req.Type,
		Recurring:           req.Recurring,
		Pattern:             req.Pattern,
		Days:                req.Days,
		Sound:               req.Sound,
		Data:                req.Data,
		SoundEnabled:        true,
		NotificationEnabled: true,
		VibrationEnabled:    true,
		Volume:              100,
	}
	if req.Type == "" {
		r.Type = CategoryGeneral
	}
	if req.SoundEnabled != nil {
		r.SoundEnabled = *req.SoundEnabled
	}
	if req.NotificationEnabled != nil {
		r.NotificationEnabled = *req.NotificationEnabled
	}
	if req.VibrationEnabled != nil {
		r.VibrationEnabled = *req.VibrationEnabled
	}
	if req.Volume != nil {
		r.Volume = *req.Volume
	}
	return r
}

type StartTimerRequest struct {
	DurationSeconds int       `json:"durationSeconds" validate:"required,gt=0,lte=86400"`
	Mode            TimerMode `json:"mode" validate:"required"`
	Task            string    `json:"task,omitempty" validate:"max=200"`
}

type PermissionRequest struct {
	State string `json:"state" validate:"required,oneof=default granted denied"`
}

type PushSubscriptionRequest struct {
	Endpoint string `json:"endpoint" validate:"required,url"`
	P256dh   string `json:"p256dh" validate:"required"`
	Auth     string `json:"auth" validate:"required"`
}

type TestAlertRequest struct {
	Title  string `json:"title,omitempty"`
	Body   string `json:"body,omitempty"`
	Sound  string `json:"sound,omitempty"`
	Volume int    `json:"volume,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type AuthResponse struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
	User         User   `json:"user"`
}
