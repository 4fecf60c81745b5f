// Package domain contains core concepts of the direct-messaging system.
// This file defines Message entities and the delivery-status lifecycle.
// Messages are immutable once appended; only their status advances.
package domain

import (
	"fmt"
	"time"
)

type UserID string

type MessageID string

// DeliveryStatus is the per-message lifecycle stage.
// It only ever moves forward: sent -> delivered -> seen.
type DeliveryStatus int

const (
	StatusSent DeliveryStatus = iota
	StatusDelivered
	StatusSeen
)

func (s DeliveryStatus) String() string {
	switch s {
	case StatusSent:
		return "sent"
	case StatusDelivered:
		return "delivered"
	case StatusSeen:
		return "seen"
	default:
		return fmt.Sprintf("DeliveryStatus(%d)", int(s))
	}
}

// ParseDeliveryStatus is the inverse of String, used when reloading
// persisted messages.
func ParseDeliveryStatus(s string) (DeliveryStatus, error) {
	switch s {
	case "sent":
		return StatusSent, nil
	case "delivered":
		return StatusDelivered, nil
	case "seen":
		return StatusSeen, nil
	default:
		return 0, fmt.Errorf("unknown delivery status %q", s)
	}
}

// Message represents one chat message inside a conversation.
// ID, Conversation, SenderID, Text and CreatedAt never change after append.
type Message struct {
	ID           MessageID
	Conversation ConversationID
	SenderID     UserID
	Text         string
	CreatedAt    time.Time
	Status       DeliveryStatus
}
