package models

import "time"

type InvitationStatus string

const (
	InvitationPending  InvitationStatus = "pending"
	InvitationAccepted InvitationStatus = "accepted"
)

// Invitation ties an email address to a capsule. The invitee may not have
// an account yet.
type Invitation struct {
	ID         string
	CapsuleID  string
	Email      string
	InvitedBy  string
	Status     InvitationStatus
	InvitedAt  time.Time
	AcceptedAt *time.Time
}
