package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TypeRequestCreated      = "request.created"
	TypeRequestTransitioned = "request.transitioned"
)

// RequestEvent is published for every committed request lifecycle change.
type RequestEvent struct {
	Type       string    `json:"type"`
	RequestID  string    `json:"requestId"`
	Kind       string    `json:"kind"`
	EmployeeID string    `json:"employeeId"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to"`
	ActorID    string    `json:"actorId,omitempty"`
	Level      int       `json:"level,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type Publisher interface {
	PublishRequestEvent(ctx context.Context, event RequestEvent) error
	Close() error
}

type noopPublisher struct{}

func NewNoopPublisher() Publisher {
	return noopPublisher{}
}

func (noopPublisher) PublishRequestEvent(context.Context, RequestEvent) error {
	return nil
}

func (noopPublisher) Close() error {
	return nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer messageWriter
	topic  string
}

func NewKafkaPublisher(brokers []string, topic string) Publisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           5 * time.Second,
		AllowAutoTopicCreation: true,
	}
	return &kafkaPublisher{writer: writer, topic: topic}
}

// PublishRequestEvent keys messages by request id so all events of one
// request land on the same partition in order.
func (p *kafkaPublisher) PublishRequestEvent(ctx context.Context, event RequestEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}

	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.RequestID),
		Value: payload,
		Time:  event.OccurredAt,
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
