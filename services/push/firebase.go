package pushsvc

import (
	"context"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pkg/errors"
	"google.golang.org/api/option"

	"github.com/trezcool/kia/core"
)

const androidChannelID = "high_importance_channel"

type firebaseService struct {
	client *messaging.Client
	logger core.Logger
}

var _ core.PushService = (*firebaseService)(nil)

// NewFirebaseService sends notifications through Firebase Cloud Messaging
// with the service account credentials found in conf.Firebase.CredentialsFile.
func NewFirebaseService(ctx context.Context, conf *core.Config, logger core.Logger) (core.PushService, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(conf.Firebase.CredentialsFile))
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase app")
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase messaging")
	}
	return &firebaseService{client: client, logger: logger}, nil
}

func (svc *firebaseService) Send(ctx context.Context, msg *core.PushMessage) (core.PushResult, error) {
	switch len(msg.Tokens) {
	case 0:
		return core.PushResult{}, nil
	case 1:
		id, err := svc.client.Send(ctx, &messaging.Message{
			Token:        msg.Tokens[0],
			Notification: notification(msg),
			Data:         msg.Data,
			Android:      androidConfig(),
			APNS:         apnsConfig(),
		})
		if err != nil {
			return core.PushResult{FailureCount: 1}, errors.Wrap(err, "sending push notification")
		}
		return core.PushResult{MessageIDs: []string{id}, SuccessCount: 1}, nil
	}

	batch, err := svc.client.SendEachForMulticast(ctx, &messaging.MulticastMessage{
		Tokens:       msg.Tokens,
		Notification: notification(msg),
		Data:         msg.Data,
		Android:      androidConfig(),
		APNS:         apnsConfig(),
	})
	if err != nil {
		return core.PushResult{FailureCount: len(msg.Tokens)}, errors.Wrap(err, "sending multicast push notification")
	}

	res := core.PushResult{SuccessCount: batch.SuccessCount, FailureCount: batch.FailureCount}
	for _, r := range batch.Responses {
		if r.Success {
			res.MessageIDs = append(res.MessageIDs, r.MessageID)
		} else if r.Error != nil {
			svc.logger.Warn("push notification failed", r.Error)
		}
	}
	return res, nil
}

func notification(msg *core.PushMessage) *messaging.Notification {
	return &messaging.Notification{Title: msg.Title, Body: msg.Body}
}

func androidConfig() *messaging.AndroidConfig {
	return &messaging.AndroidConfig{
		Priority: "high",
		Notification: &messaging.AndroidNotification{
			Sound:     "default",
			ChannelID: androidChannelID,
		},
	}
}

func apnsConfig() *messaging.APNSConfig {
	badge := 1
	return &messaging.APNSConfig{
		Payload: &messaging.APNSPayload{
			Aps: &messaging.Aps{Sound: "default", Badge: &badge},
		},
	}
}
