package notification

import (
	"context"
	"errors"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/pingcap/log"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// ErrTokenUnregistered reports a push token the transport no longer
// accepts. The dispatcher removes such tokens from the catalog.
var ErrTokenUnregistered = errors.New("push token is no longer registered")

type PushNotification struct {
	Title string
	Body  string
	Data  map[string]string
}

// PushSender delivers one notification to one token. Outcomes are
// independent per token.
type PushSender interface {
	Send(ctx context.Context, token string, notification PushNotification) error
}

type fcmAPI interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FCMSender struct {
	client fcmAPI
}

func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, err
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, err
	}
	return &FCMSender{client: client}, nil
}

var _ PushSender = (*FCMSender)(nil)

func (s *FCMSender) Send(ctx context.Context, token string, notification PushNotification) error {
	message := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: notification.Title,
			Body:  notification.Body,
		},
		Data: notification.Data,
	}
	_, err := s.client.Send(ctx, message)
	if err != nil {
		if messaging.IsUnregistered(err) {
			return ErrTokenUnregistered
		}
		log.Error("Failed to send push notification", zap.Error(err))
		return err
	}
	return nil
}
