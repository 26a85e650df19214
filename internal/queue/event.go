// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// MailMessage is an outbound email waiting for SMTP delivery.  It carries
// the fully rendered message so the consumer never touches the database.
type MailMessage struct {
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Text     string    `json:"text"`
	HTML     string    `json:"html,omitempty"`
	QueuedAt time.Time `json:"queued_at"`
}
