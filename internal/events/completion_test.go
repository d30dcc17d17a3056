package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
	deadline bool
}

func (writer *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, writer.deadline = ctx.Deadline()
	if err := ctx.Err(); err != nil {
		return err
	}
	if writer.err != nil {
		return writer.err
	}
	writer.messages = append(writer.messages, msgs...)
	return nil
}

func (writer *recordingWriter) Close() error {
	writer.closed = true
	return nil
}

func TestKafkaPublisherEncodesCompletionEvent(t *testing.T) {
	writer := &recordingWriter{}
	publisher := newKafkaPublisher(writer)
	completedAt := time.Date(2026, time.March, 30, 8, 15, 0, 0, time.UTC)

	err := publisher.PublishCompletion(context.Background(), ChallengeCompleted{
		EnrollmentID: 11,
		UserID:       7,
		ChallengeID:  3,
		Title:        "30-Day Push-Up Challenge",
		CompletedAt:  completedAt,
	})
	require.NoError(t, err)
	require.True(t, writer.deadline, "publish must be bounded by a timeout")
	require.Len(t, writer.messages, 1)

	message := writer.messages[0]
	require.Equal(t, "7", string(message.Key))
	require.Equal(t, completedAt, message.Time)
	require.Equal(t, []kafka.Header{{Key: "event_type", Value: []byte(ChallengeCompletedType)}}, message.Headers)

	var decoded ChallengeCompleted
	require.NoError(t, json.Unmarshal(message.Value, &decoded))
	require.Equal(t, ChallengeCompletedType, decoded.Type)
	require.EqualValues(t, 11, decoded.EnrollmentID)
	require.EqualValues(t, 3, decoded.ChallengeID)
}

func TestKafkaPublisherWrapsWriterFailure(t *testing.T) {
	brokerDown := errors.New("broker down")
	publisher := newKafkaPublisher(&recordingWriter{err: brokerDown})

	err := publisher.PublishCompletion(context.Background(), ChallengeCompleted{UserID: 1})
	require.ErrorIs(t, err, brokerDown)
}

func TestKafkaPublisherIgnoresCallerCancellation(t *testing.T) {
	writer := &recordingWriter{}
	publisher := newKafkaPublisher(writer)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, publisher.PublishCompletion(ctx, ChallengeCompleted{UserID: 1}))
	require.Len(t, writer.messages, 1)
	require.NoError(t, publisher.Close())
	require.True(t, writer.closed)
}

func TestNoopPublisherAcceptsEverything(t *testing.T) {
	var publisher NoopPublisher
	require.NoError(t, publisher.PublishCompletion(context.Background(), ChallengeCompleted{}))
	require.NoError(t, publisher.Close())
}
