package core

import "context"

type (
	// PushMessage is a notification for one or more devices.
	PushMessage struct {
		Tokens []string
		Title  string
		Body   string
		Data   map[string]string
	}

	// PushResult reports the per-message delivery outcome.
	PushResult struct {
		MessageIDs   []string
		SuccessCount int
		FailureCount int
	}

	// PushService is any service that can deliver push notifications to devices.
	PushService interface {
		Send(ctx context.Context, msg *PushMessage) (PushResult, error)
	}
)
