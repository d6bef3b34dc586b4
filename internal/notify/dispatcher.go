package notify

import (
	"log"

	"tempo/internal/tone"
)

// Result reports what actually happened for one logical alert.
type Result struct {
	Permission Permission
	Pushed     bool
	TonePlayed bool
}

// Dispatcher fans a logical alert out to the OS notification surface, the
// in-process overlay channel and the tone synthesizer. The overlay leg always
// fires so an alert is never silently lost; the push leg is gated on the
// current permission state, re-resolved on every call.
type Dispatcher struct {
	permissions *PermissionStore
	push        Sink
	overlay     *Hub
	tones       *tone.Synthesizer
}

func NewDispatcher(permissions *PermissionStore, push Sink, overlay *Hub, tones *tone.Synthesizer) *Dispatcher {
	return &Dispatcher{
		permissions: permissions,
		push:        push,
		overlay:     overlay,
		tones:       tones,
	}
}

func (d *Dispatcher) Deliver(n Notice) Result {
	result := Result{Permission: d.permissions.Get()}

	if n.Sound != "" && d.tones != nil {
		result.TonePlayed = d.tones.Play(n.Sound, n.Volume)
	}

	if result.Permission == PermissionGranted && !n.SuppressPush && d.push != nil {
		if err := d.push.Deliver(n); err != nil {
			log.Printf("Push delivery failed: %v", err)
		} else {
			result.Pushed = true
		}
	}

	if err := d.overlay.Deliver(n); err != nil {
		log.Printf("Overlay delivery failed: %v", err)
	}

	return result
}

// Overlay exposes the hub for subscribers (SSE handler, tests).
func (d *Dispatcher) Overlay() *Hub {
	return d.overlay
}
