package models

import "time"

// MessageChannel is the delivery channel of a template.
type MessageChannel string

const (
	ChannelEmail MessageChannel = "email"
	ChannelSMS   MessageChannel = "sms"
)

// Template is a stored message template referenced by send_message nodes.
// Subject and Body carry bracketed placeholders substituted at send time.
type Template struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"       validate:"required"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"       validate:"required"`
	FromName  string         `json:"from_name"`
	FromEmail string         `json:"from_email" validate:"omitempty,email"`
	Channel   MessageChannel `json:"channel"    validate:"required,oneof=email sms"`
	Active    bool           `json:"active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
