package errors

import "fmt"

var (
	ErrWorkerPanic         = fmt.Errorf("worker panic")
	ErrEmptyWords          = fmt.Errorf("no words have been found")
	ErrSamePeer            = fmt.Errorf("a conversation needs two distinct participants")
	ErrParticipantMismatch = fmt.Errorf("conversation already exists with different participants")
	ErrNotAParticipant     = fmt.Errorf("not a participant of this conversation")
	ErrUnknownConversation = fmt.Errorf("unknown conversation")
	ErrUnknownMessage      = fmt.Errorf("unknown message")
	ErrUnknownConnection   = fmt.Errorf("connection has not announced an identity")
	ErrInvalidToken        = fmt.Errorf("invalid identity token")
	ErrQueueFull           = fmt.Errorf("outbound queue full")
)
