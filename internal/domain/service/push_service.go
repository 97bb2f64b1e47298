package service

import (
	"context"
)

// PushService sends offline push notifications to device tokens.
type PushService interface {
	// SendBatch sends one message to many tokens and reports tokens the provider rejected as unregistered.
	SendBatch(ctx context.Context, tokens []string, title, body string, data map[string]string) (successCount, failureCount int, invalidTokens []string, err error)
}
