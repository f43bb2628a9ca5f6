package domain

import (
	"time"

	"github.com/google/uuid"
)

type AuditRecord struct {
	ID        uuid.UUID  `json:"id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	Action    string     `json:"action"`
	EntityID  *uuid.UUID `json:"entity_id,omitempty"`
	Details   *string    `json:"details,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

const (
	AuditActionOTPRequested = "otp_requested"
	AuditActionOTPVerified  = "otp_verified"
	AuditActionChatCreated  = "chat_created"
	AuditActionMessageSent  = "message_sent"
)
