package notify

import "log"

// Payload is the rendered notification handed to delivery sinks.
type Payload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Tag   string         `json:"tag,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

// Sink delivers a rendered notification. Delivery is best-effort; a failed
// delivery never propagates back into the mutation path.
type Sink interface {
	Deliver(payload Payload) error
}

// LogSink writes notifications to the process log. It is the fallback sink
// when neither web push nor SMTP is configured.
type LogSink struct{}

func (LogSink) Deliver(payload Payload) error {
	log.Printf("NOTIFY [%s] %s: %s", payload.Tag, payload.Title, payload.Body)
	return nil
}

// Multi fans a notification out to several sinks. Individual failures are
// logged and swallowed.
type Multi []Sink

func (m Multi) Deliver(payload Payload) error {
	for _, sink := range m {
		if err := sink.Deliver(payload); err != nil {
			log.Printf("Notification delivery failed: %v", err)
		}
	}
	return nil
}
