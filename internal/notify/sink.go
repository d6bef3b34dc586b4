package notify

import "tempo/internal/models"

// Alert is the payload broadcast on the in-process channel for overlay
// rendering.
type Alert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Notice is a logical alert before fan-out.
type Notice struct {
	Title              string
	Body               string
	Category           models.Category
	Sound              string
	Volume             int
	RequireInteraction bool
	SuppressPush       bool // entity opted out of OS notifications
	Vibration          []int
	Data               map[string]any
}

// Sink delivers a notice on one channel. Sinks fail independently; the
// dispatcher never lets one sink's error suppress another.
type Sink interface {
	Deliver(n Notice) error
}
