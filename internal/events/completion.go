// Package events publishes challenge lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

const ChallengeCompletedType = "challenge.completed"

// ChallengeCompleted is emitted once per enrollment, after the completing mark commits.
type ChallengeCompleted struct {
	Type         string    `json:"type"`
	EnrollmentID uint      `json:"enrollment_id"`
	UserID       uint      `json:"user_id"`
	ChallengeID  uint      `json:"challenge_id"`
	Title        string    `json:"title"`
	CompletedAt  time.Time `json:"completed_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes completion events keyed by user id so one user's events stay ordered.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Compression:  kafka.Snappy,
		BatchTimeout: 10 * time.Millisecond,
		Async:        false,
	})
}

func newKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, timeout: 5 * time.Second}
}

func (publisher *KafkaPublisher) PublishCompletion(ctx context.Context, event ChallengeCompleted) error {
	if event.Type == "" {
		event.Type = ChallengeCompletedType
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode completion event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publisher.timeout)
	defer cancel()

	message := kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.UserID), 10)),
		Value: payload,
		Time:  event.CompletedAt.UTC(),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}
	if err := publisher.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("publish completion event: %w", err)
	}
	return nil
}

func (publisher *KafkaPublisher) Close() error {
	return publisher.writer.Close()
}

// NoopPublisher is used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishCompletion(context.Context, ChallengeCompleted) error {
	return nil
}

func (NoopPublisher) Close() error {
	return nil
}
