package infrastructure

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/draftea/checkout-system/shared/events"
	"github.com/draftea/checkout-system/shared/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSQS struct {
	mu         sync.Mutex
	pending    []types.Message
	deleted    []string
	visibility map[string]int32
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.pending
	f.pending = nil
	return &sqs.ReceiveMessageOutput{Messages: msgs}, ctx.Err()
}

func (f *fakeSQS) DeleteMessage(_ context.Context, params *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *fakeSQS) ChangeMessageVisibility(_ context.Context, params *sqs.ChangeMessageVisibilityInput, _ ...func(*sqs.Options)) (*sqs.ChangeMessageVisibilityOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.visibility == nil {
		f.visibility = map[string]int32{}
	}
	f.visibility[aws.ToString(params.ReceiptHandle)] = params.VisibilityTimeout
	return &sqs.ChangeMessageVisibilityOutput{}, nil
}

func (f *fakeSQS) snapshot() ([]string, map[string]int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	vis := map[string]int32{}
	for k, v := range f.visibility {
		vis[k] = v
	}
	return append([]string(nil), f.deleted...), vis
}

type recordingHandler struct {
	mu     sync.Mutex
	seen   []*events.Event
	failOn string
}

func (h *recordingHandler) Handle(_ context.Context, event *events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, event)
	if event.AggregateID.String() == h.failOn {
		return errors.New("handler failed")
	}
	return nil
}

func (h *recordingHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.seen)
}

func sqsBody(t *testing.T) *string {
	t.Helper()
	raw, err := events.NewEvent(models.GenerateUUID(), events.PaymentProviderUpdateEvent, map[string]string{"status": "succeeded"}).
		WithCorrelationID("corr-1").
		ToJSON()
	require.NoError(t, err)
	return aws.String(string(raw))
}

func TestSQSEventSubscriber_AcksHandledMessages(t *testing.T) {
	client := &fakeSQS{
		pending: []types.Message{
			{
				MessageId:     aws.String("m-1"),
				ReceiptHandle: aws.String("r-1"),
				Body:          sqsBody(t),
				MessageAttributes: map[string]types.MessageAttributeValue{
					"provider": {DataType: aws.String("String"), StringValue: aws.String("stripe")},
				},
			},
			{
				MessageId:     aws.String("m-2"),
				ReceiptHandle: aws.String("r-2"),
				Body:          aws.String("{not json"),
			},
		},
	}
	handler := &recordingHandler{}

	subscriber := NewSQSEventSubscriber(client, "http://localhost:4566/000000000000/provider-updates", handler, zap.NewNop(),
		WithWorkers(2),
		WithPollInterval(5*time.Millisecond, 5*time.Millisecond),
	)
	require.NoError(t, subscriber.Start(context.Background()))
	require.NoError(t, subscriber.Start(context.Background()))

	require.Eventually(t, func() bool {
		deleted, _ := client.snapshot()
		return len(deleted) == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, subscriber.Stop())
	require.NoError(t, subscriber.Stop())

	deleted, _ := client.snapshot()
	assert.Equal(t, []string{"r-1"}, deleted)
	require.Equal(t, 1, handler.count())

	evt := handler.seen[0]
	assert.Equal(t, events.PaymentProviderUpdateEvent, evt.EventType)
	assert.Equal(t, "stripe", evt.Metadata["provider"])
	assert.Equal(t, "m-1", evt.Metadata[SQSMessageIDKey])
	assert.Equal(t, "r-1", evt.Metadata[SQSReceiptHandleKey])
}

func TestSQSEventSubscriber_ExtendsVisibilityOnError(t *testing.T) {
	body := sqsBody(t)
	evt, err := events.FromJSON([]byte(aws.ToString(body)))
	require.NoError(t, err)

	client := &fakeSQS{
		pending: []types.Message{{
			MessageId:     aws.String("m-1"),
			ReceiptHandle: aws.String("r-1"),
			Body:          body,
			Attributes: map[string]string{
				string(types.MessageSystemAttributeNameApproximateReceiveCount): "7",
			},
		}},
	}
	handler := &recordingHandler{failOn: evt.AggregateID.String()}

	subscriber := NewSQSEventSubscriber(client, "queue", handler, nil,
		WithWorkers(1),
		WithVisibilityTimeout(30),
		WithPollInterval(5*time.Millisecond, 5*time.Millisecond),
	)
	require.NoError(t, subscriber.Start(context.Background()))

	require.Eventually(t, func() bool {
		_, vis := client.snapshot()
		return len(vis) == 1
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, subscriber.Stop())

	deleted, vis := client.snapshot()
	assert.Empty(t, deleted)
	// 30 + (7/3)*30
	assert.Equal(t, int32(90), vis["r-1"])
}

func TestSQSEventSubscriber_RequiresHandler(t *testing.T) {
	subscriber := NewSQSEventSubscriber(&fakeSQS{}, "queue", nil, nil)
	assert.Error(t, subscriber.Start(context.Background()))
}

func TestRetryVisibilityTimeout_Capped(t *testing.T) {
	subscriber := NewSQSEventSubscriber(&fakeSQS{}, "queue", &recordingHandler{}, nil)

	msg := types.Message{Attributes: map[string]string{
		string(types.MessageSystemAttributeNameApproximateReceiveCount): "1000",
	}}
	assert.Equal(t, int32(900), subscriber.retryVisibilityTimeout(msg))
	assert.Equal(t, int32(30), subscriber.retryVisibilityTimeout(types.Message{}))
}
