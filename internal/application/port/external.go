package port

import (
	"context"
	"errors"
)

// MessageSender delivers plain-text notifications to a chat
type MessageSender interface {
	SendText(ctx context.Context, chatID string, text string) error
}

// DocumentInfo describes an inspected supporting document
type DocumentInfo struct {
	Path      string
	Kind      string
	PageCount int
	SizeBytes int64
}

// DocumentInspector checks that a supporting-document reference points to a usable file
type DocumentInspector interface {
	Inspect(ctx context.Context, path string) (*DocumentInfo, error)
}

// ErrInvalidDocument is returned when a supporting document is missing, unreadable or of an unsupported type
var ErrInvalidDocument = errors.New("invalid supporting document")
