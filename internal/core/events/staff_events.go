package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeInvitationIssued    = "invitation.issued"
	EventTypeInvitationAccepted  = "invitation.accepted"
	EventTypeInvitationCancelled = "invitation.cancelled"
	EventTypeUserStatusChanged   = "user.status_changed"
	EventTypeUserDeleted         = "user.deleted"
)

// StaffEventTypes lists every event the audit trail records.
var StaffEventTypes = []string{
	EventTypeInvitationIssued,
	EventTypeInvitationAccepted,
	EventTypeInvitationCancelled,
	EventTypeUserStatusChanged,
	EventTypeUserDeleted,
}

// Auditable is implemented by events that name who did what to which record.
type Auditable interface {
	Event
	Actor() int64
	Target() (kind string, id int64)
}

func newBase(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

type InvitationIssuedEvent struct {
	BaseEvent
	InvitationID int64   `json:"invitation_id"`
	UserID       int64   `json:"user_id"`
	Email        string  `json:"email"`
	ActorID      int64   `json:"actor_id"`
	Superseded   []int64 `json:"superseded"`
	Resend       bool    `json:"resend"`
	Delivered    bool    `json:"delivered"`
}

func NewInvitationIssuedEvent(invitationID, userID int64, email string, actorID int64, superseded []int64, resend, delivered bool) *InvitationIssuedEvent {
	return &InvitationIssuedEvent{
		BaseEvent: newBase(EventTypeInvitationIssued, map[string]interface{}{
			"invitation_id": invitationID,
			"user_id":       userID,
			"email":         email,
			"superseded":    superseded,
			"resend":        resend,
			"delivered":     delivered,
		}),
		InvitationID: invitationID,
		UserID:       userID,
		Email:        email,
		ActorID:      actorID,
		Superseded:   superseded,
		Resend:       resend,
		Delivered:    delivered,
	}
}

func (e *InvitationIssuedEvent) Actor() int64 { return e.ActorID }

func (e *InvitationIssuedEvent) Target() (string, int64) { return "invitation", e.InvitationID }

type InvitationAcceptedEvent struct {
	BaseEvent
	InvitationID int64  `json:"invitation_id"`
	UserID       int64  `json:"user_id"`
	Email        string `json:"email"`
}

func NewInvitationAcceptedEvent(invitationID, userID int64, email string) *InvitationAcceptedEvent {
	return &InvitationAcceptedEvent{
		BaseEvent: newBase(EventTypeInvitationAccepted, map[string]interface{}{
			"invitation_id": invitationID,
			"user_id":       userID,
			"email":         email,
		}),
		InvitationID: invitationID,
		UserID:       userID,
		Email:        email,
	}
}

// Actor of an acceptance is the invitee.
func (e *InvitationAcceptedEvent) Actor() int64 { return e.UserID }

func (e *InvitationAcceptedEvent) Target() (string, int64) { return "invitation", e.InvitationID }

type InvitationCancelledEvent struct {
	BaseEvent
	InvitationID int64  `json:"invitation_id"`
	Email        string `json:"email"`
	ActorID      int64  `json:"actor_id"`
}

func NewInvitationCancelledEvent(invitationID int64, email string, actorID int64) *InvitationCancelledEvent {
	return &InvitationCancelledEvent{
		BaseEvent: newBase(EventTypeInvitationCancelled, map[string]interface{}{
			"invitation_id": invitationID,
			"email":         email,
		}),
		InvitationID: invitationID,
		Email:        email,
		ActorID:      actorID,
	}
}

func (e *InvitationCancelledEvent) Actor() int64 { return e.ActorID }

func (e *InvitationCancelledEvent) Target() (string, int64) { return "invitation", e.InvitationID }

type UserStatusChangedEvent struct {
	BaseEvent
	UserID  int64  `json:"user_id"`
	From    string `json:"from"`
	To      string `json:"to"`
	Action  string `json:"action"`
	ActorID int64  `json:"actor_id"`
}

func NewUserStatusChangedEvent(userID int64, from, to, action string, actorID int64) *UserStatusChangedEvent {
	return &UserStatusChangedEvent{
		BaseEvent: newBase(EventTypeUserStatusChanged, map[string]interface{}{
			"user_id": userID,
			"from":    from,
			"to":      to,
			"action":  action,
		}),
		UserID:  userID,
		From:    from,
		To:      to,
		Action:  action,
		ActorID: actorID,
	}
}

func (e *UserStatusChangedEvent) Actor() int64 { return e.ActorID }

func (e *UserStatusChangedEvent) Target() (string, int64) { return "user", e.UserID }

type UserDeletedEvent struct {
	BaseEvent
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	ActorID int64  `json:"actor_id"`
}

func NewUserDeletedEvent(userID int64, email string, actorID int64) *UserDeletedEvent {
	return &UserDeletedEvent{
		BaseEvent: newBase(EventTypeUserDeleted, map[string]interface{}{
			"user_id": userID,
			"email":   email,
		}),
		UserID:  userID,
		Email:   email,
		ActorID: actorID,
	}
}

func (e *UserDeletedEvent) Actor() int64 { return e.ActorID }

func (e *UserDeletedEvent) Target() (string, int64) { return "user", e.UserID }
