// Package queue defines the auth event payload exchanged over RabbitMQ and
// the consumer that turns those events into an audit log.
package queue

import "github.com/iliyamo/tenant-auth-service/internal/model"

// AuthQueueName is the durable queue all auth events go through.
const AuthQueueName = "auth.events"

// Event types.
const (
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
	EventUserLoggedOut  = "user.logged_out"
	EventUserCreated    = "user.created"
	EventUserDeleted    = "user.deleted"
)

// AuthEvent is published after a credential or account change. It never
// carries secrets; Email is included only where it identifies the account.
type AuthEvent struct {
	Type       string     `json:"type"`
	UserID     uint64     `json:"user_id"`
	Email      string     `json:"email,omitempty"`
	Role       model.Role `json:"role,omitempty"`
	OccurredAt string     `json:"occurred_at"`
}
