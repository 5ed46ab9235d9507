// Package transport declares the chat transport boundary.
package transport

import "context"

// Sender delivers a text message to one recipient. Implementations must
// be safe for concurrent use; callers treat any error as non-fatal.
type Sender interface {
	SendText(ctx context.Context, recipientID int64, text string) error
}

// SenderFunc adapts a function to the Sender interface.
type SenderFunc func(ctx context.Context, recipientID int64, text string) error

func (f SenderFunc) SendText(ctx context.Context, recipientID int64, text string) error {
	return f(ctx, recipientID, text)
}
