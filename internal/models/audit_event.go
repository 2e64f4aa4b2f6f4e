package models

import (
	"time"

	"github.com/google/uuid"
)

// Audit event types.
const (
	EventUserRegistered      = "USER_REGISTERED"
	EventLoginSucceeded      = "LOGIN_SUCCEEDED"
	EventLoginFailed         = "LOGIN_FAILED"
	EventAccountLocked       = "ACCOUNT_LOCKED"
	EventAccountUnlocked     = "ACCOUNT_UNLOCKED"
	EventTokenRefreshed      = "TOKEN_REFRESHED"
	EventLogout              = "LOGOUT"
	EventProfileUpdated      = "PROFILE_UPDATED"
	EventRoleChanged         = "ROLE_CHANGED"
	EventProfessionalChanged = "PROFESSIONAL_STATUS_CHANGED"
	EventUserDeleted         = "USER_DELETED"
)

// AuditEvent is a single security-relevant log entry.
type AuditEvent struct {
	EventID     string     `json:"event_id"`
	OccurredAt  time.Time  `json:"occurred_at"`
	Type        string     `json:"type"`
	ActorID     *uuid.UUID `json:"actor_id,omitempty"`   // who did it
	SubjectID   *uuid.UUID `json:"subject_id,omitempty"` // whom it was done to
	Description string     `json:"description"`          // human-readable
	Metadata    any        `json:"metadata,omitempty"`
}

// AuditFilter narrows an audit listing. Zero values mean "no bound".
type AuditFilter struct {
	From  time.Time
	To    time.Time
	Type  string
	Limit int // keep only the newest Limit events
}
