package entity

import "errors"

var (
	// Message errors
	ErrInvalidMessageID      = errors.New("invalid message id")
	ErrInvalidConversationID = errors.New("invalid conversation id")
	ErrInvalidRole           = errors.New("invalid message role")
	ErrEmptyContent          = errors.New("message content is empty")
)
