package model

import "time"

type MailKind string

const (
	MailOrderPlaced  MailKind = "order-placed"
	MailOrderStatus  MailKind = "order-status"
	MailOrderUpdated MailKind = "order-rescheduled"
)

// MailJob is the payload carried on the mail queue.
type MailJob struct {
	Kind       MailKind          `json:"kind"`
	To         string            `json:"to"`
	Subject    string            `json:"subject"`
	Body       string            `json:"body"`
	Vars       map[string]string `json:"vars,omitempty"`
	Attempt    int               `json:"attempt"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
}
