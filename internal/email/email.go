// Package email renders customer notifications and sends them over SMTP.
package email

import "context"

// Message is one outgoing email. HTML is optional; Text is always sent.
type Message struct {
	To      []string
	From    string
	Subject string
	Text    string
	HTML    string
	Headers map[string]string
}

// Sender delivers a message and returns the provider's message ID.
type Sender interface {
	Send(ctx context.Context, msg *Message) (string, error)
}
