package notify

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"

	webpush "github.com/SherClockHolmes/webpush-go"

	"tempo/internal/config"
	"tempo/internal/metrics"
	"tempo/internal/models"
)

// autoDismissMillis is how long non-critical notifications stay on screen.
// Medication alerts set requireInteraction instead and never auto-dismiss.
const autoDismissMillis = 8000

// PushPayload is the notification payload sent to web push clients.
type PushPayload struct {
	Title              string         `json:"title"`
	Body               string         `json:"body"`
	Tag                string         `json:"tag,omitempty"`
	RequireInteraction bool           `json:"requireInteraction,omitempty"`
	AutoDismissMs      int            `json:"autoDismissMs,omitempty"`
	Vibrate            []int          `json:"vibrate,omitempty"`
	Data               map[string]any `json:"data,omitempty"`
}

// PushSink delivers notices to the OS notification surface via web push. It
// degrades to a no-op when VAPID keys are not configured.
type PushSink struct {
	db      *sql.DB
	options *webpush.Options
}

func NewPushSink(db *sql.DB, vapid config.VAPID) *PushSink {
	sink := &PushSink{db: db}
	if vapid.Subject != "" && vapid.PublicKey != "" && vapid.PrivateKey != "" {
		sink.options = &webpush.Options{
			Subscriber:      vapid.Subject,
			VAPIDPublicKey:  vapid.PublicKey,
			VAPIDPrivateKey: vapid.PrivateKey,
			TTL:             30,
		}
	}
	return sink
}

// Configured reports whether VAPID keys are available.
func (s *PushSink) Configured() bool {
	return s.options != nil
}

func (s *PushSink) Deliver(n Notice) error {
	if !s.Configured() {
		log.Println("Web push not configured - skipping OS notification")
		return nil
	}

	payload := PushPayload{
		Title:              n.Title,
		Body:               n.Body,
		Tag:                fmt.Sprintf("tempo-%s", n.Category),
		RequireInteraction: n.RequireInteraction || n.Category == models.CategoryMedication,
		Vibrate:            n.Vibration,
		Data:               n.Data,
	}
	if !payload.RequireInteraction {
		payload.AutoDismissMs = autoDismissMillis
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	rows, err := s.db.Query("SELECT endpoint, p256dh, auth FROM push_subscriptions")
	if err != nil {
		return fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	defer rows.Close()

	successCount := 0
	failCount := 0
	subscriptionCount := 0

	for rows.Next() {
		subscriptionCount++
		var endpoint, p256dh, auth string
		if err := rows.Scan(&endpoint, &p256dh, &auth); err != nil {
			log.Printf("Error scanning subscription: %v", err)
			failCount++
			continue
		}

		subscription := &webpush.Subscription{
			Endpoint: endpoint,
			Keys: webpush.Keys{
				P256dh: p256dh,
				Auth:   auth,
			},
		}

		resp, err := webpush.SendNotification(payloadJSON, subscription, s.options)
		if err != nil {
			log.Printf("Failed to send push to %s: %v", endpoint, err)
			failCount++

			// Expired or invalid subscriptions are pruned so delivery
			// does not keep retrying a dead endpoint.
			if resp != nil && (resp.StatusCode == 410 || resp.StatusCode == 404) {
				s.removeSubscription(endpoint)
			}
			continue
		}

		if resp != nil {
			if resp.StatusCode >= 400 {
				body, _ := io.ReadAll(resp.Body)
				log.Printf("Push service error response (%d): %s", resp.StatusCode, string(body))
			}
			resp.Body.Close()

			// 403 means the VAPID keys no longer match this subscription;
			// drop it so the client re-subscribes with the current keys.
			if resp.StatusCode == 403 {
				s.removeSubscription(endpoint)
				failCount++
				continue
			}
		}

		successCount++
	}

	if successCount > 0 {
		metrics.DeliveriesTotal.WithLabelValues("push").Inc()
	}

	if subscriptionCount == 0 {
		return fmt.Errorf("no push subscriptions registered")
	}
	if failCount > 0 && successCount == 0 {
		return fmt.Errorf("failed to send any push notifications (attempted %d)", failCount)
	}
	return nil
}

func (s *PushSink) removeSubscription(endpoint string) {
	if _, err := s.db.Exec("DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint); err != nil {
		log.Printf("Failed to remove subscription %s: %v", endpoint, err)
		return
	}
	log.Printf("Removed push subscription: %s", endpoint)
}
