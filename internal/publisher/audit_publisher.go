package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	log "github.com/sirupsen/logrus"
)

const deliveryTimeout = 10 * time.Second

// auditMessage is the wire form on the audit topic.
type auditMessage struct {
	Service string            `json:"service"`
	Event   domain.AuditEvent `json:"event"`
}

type AuditPublisher struct {
	producer *kafka.Producer
	topic    string
	service  string
}

func NewAuditPublisher(bootstrapServers, topic, service string) (*AuditPublisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": bootstrapServers,
		"client.id":         service,
		"acks":              "all",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.WithFields(log.Fields{
		"bootstrap_servers": bootstrapServers,
		"topic":             topic,
	}).Info("Audit Kafka producer created")

	return &AuditPublisher{producer: p, topic: topic, service: service}, nil
}

// Publish blocks until the broker acknowledges the event, the delivery
// timeout passes, or ctx ends.
func (p *AuditPublisher) Publish(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(auditMessage{Service: p.service, Event: event})
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}

	deliveryChan := make(chan kafka.Event, 1)

	if err := p.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{Topic: &p.topic, Partition: kafka.PartitionAny},
		Key:            []byte(event.ID),
		Value:          payload,
		Headers: []kafka.Header{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "severity", Value: []byte(event.Severity)},
		},
	}, deliveryChan); err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	select {
	case e := <-deliveryChan:
		msg, ok := e.(*kafka.Message)
		if !ok {
			return fmt.Errorf("unexpected event type: %T", e)
		}
		if msg.TopicPartition.Error != nil {
			return fmt.Errorf("delivery failed: %w", msg.TopicPartition.Error)
		}
		return nil
	case <-time.After(deliveryTimeout):
		return fmt.Errorf("delivery timeout")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *AuditPublisher) Close() {
	log.Info("Closing audit Kafka producer...")
	p.producer.Flush(15 * 1000)
	p.producer.Close()
}
