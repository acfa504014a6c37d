package notify

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"

	webpush "github.com/SherClockHolmes/webpush-go"
)

// WebPushSink sends notifications to every stored web-push subscription.
// Subscriptions rejected by the push service (expired or key mismatch) are
// removed so the client re-subscribes with current keys.
type WebPushSink struct {
	db *sql.DB
}

func NewWebPushSink(db *sql.DB) *WebPushSink {
	return &WebPushSink{db: db}
}

// IsWebPushConfigured checks if VAPID keys are configured.
func IsWebPushConfigured() bool {
	return os.Getenv("VAPID_PUBLIC_KEY") != "" &&
		os.Getenv("VAPID_PRIVATE_KEY") != "" &&
		os.Getenv("VAPID_SUBJECT") != ""
}

func vapidOptions() *webpush.Options {
	return &webpush.Options{
		Subscriber:      os.Getenv("VAPID_SUBJECT"),
		VAPIDPublicKey:  os.Getenv("VAPID_PUBLIC_KEY"),
		VAPIDPrivateKey: os.Getenv("VAPID_PRIVATE_KEY"),
		TTL:             30,
	}
}

func (s *WebPushSink) Deliver(payload Payload) error {
	if !IsWebPushConfigured() {
		log.Println("Web push not configured - skipping notification")
		return nil
	}

	rows, err := s.db.Query("SELECT endpoint, p256dh, auth FROM push_subscriptions")
	if err != nil {
		return fmt.Errorf("failed to fetch subscriptions: %w", err)
	}
	defer rows.Close()

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	options := vapidOptions()
	sent := 0

	for rows.Next() {
		var endpoint, p256dh, auth string
		if err := rows.Scan(&endpoint, &p256dh, &auth); err != nil {
			log.Printf("Error scanning subscription: %v", err)
			continue
		}

		subscription := &webpush.Subscription{
			Endpoint: endpoint,
			Keys:     webpush.Keys{P256dh: p256dh, Auth: auth},
		}

		resp, err := webpush.SendNotification(payloadJSON, subscription, options)
		if err != nil {
			log.Printf("Failed to send push to %s: %v", endpoint, err)
			if resp != nil && (resp.StatusCode == 404 || resp.StatusCode == 410) {
				_, _ = s.db.Exec("DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint)
				log.Printf("Removed expired subscription: %s", endpoint)
			}
			continue
		}
		if resp != nil {
			resp.Body.Close()
			// VAPID key mismatch: drop the subscription so the client
			// re-subscribes with the current keys.
			if resp.StatusCode == 403 {
				_, _ = s.db.Exec("DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint)
				log.Printf("Deleted mismatched subscription (403 Forbidden): %s", endpoint)
				continue
			}
		}
		sent++
	}

	if sent == 0 {
		return fmt.Errorf("no push subscription accepted the notification")
	}
	return nil
}

// SaveSubscription upserts a web-push subscription.
func SaveSubscription(db *sql.DB, endpoint, p256dh, auth string) error {
	_, err := db.Exec(
		`INSERT INTO push_subscriptions (endpoint, p256dh, auth) VALUES (?, ?, ?)
		ON CONFLICT(endpoint) DO UPDATE SET p256dh = excluded.p256dh, auth = excluded.auth`,
		endpoint, p256dh, auth,
	)
	return err
}

// RemoveSubscription deletes a web-push subscription by endpoint.
func RemoveSubscription(db *sql.DB, endpoint string) error {
	_, err := db.Exec("DELETE FROM push_subscriptions WHERE endpoint = ?", endpoint)
	return err
}
