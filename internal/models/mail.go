package models

import "time"

// OutboundMail is a notification waiting in the outbox for the mail worker.
type OutboundMail struct {
	CreatedAt time.Time  `json:"created_at"`
	SentAt    *time.Time `json:"sent_at,omitempty"`
	To        string     `json:"to"`
	Subject   string     `json:"subject"`
	Body      string     `json:"body"`
	LastError string     `json:"last_error,omitempty"`
	ID        int64      `json:"id"`
	Attempts  int        `json:"attempts"`
}
