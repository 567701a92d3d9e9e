package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/draftea/checkout-system/checkout-service/domain"
	"github.com/pkg/errors"
)

// SQSSender is the subset of the SQS client used to enqueue notifications
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// SQSNotificationDispatcher enqueues customer notifications for an external
// mailer to deliver
type SQSNotificationDispatcher struct {
	client   SQSSender
	queueURL string
}

// NewSQSNotificationDispatcher creates a new SQSNotificationDispatcher
func NewSQSNotificationDispatcher(client SQSSender, queueURL string) *SQSNotificationDispatcher {
	return &SQSNotificationDispatcher{client: client, queueURL: queueURL}
}

// NewSQSNotificationDispatcherFromConfig builds the SQS client from an AWS config
func NewSQSNotificationDispatcherFromConfig(cfg aws.Config, endpoint, queueURL string) *SQSNotificationDispatcher {
	client := sqs.NewFromConfig(cfg, func(o *sqs.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return NewSQSNotificationDispatcher(client, queueURL)
}

// Dispatch sends the notification as a JSON message
func (d *SQSNotificationDispatcher) Dispatch(ctx context.Context, notification domain.Notification) error {
	body, err := json.Marshal(notification)
	if err != nil {
		return errors.Wrap(err, "failed to marshal notification")
	}

	_, err = d.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.queueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(notification.Kind)),
			},
			"tenant_id": {
				DataType:    aws.String("String"),
				StringValue: aws.String(notification.TenantID.String()),
			},
		},
	})
	if err != nil {
		return errors.Wrap(err, "failed to enqueue notification")
	}

	return nil
}
