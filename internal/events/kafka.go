package events

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaProducer writes ticket events to one topic, keyed by hospital so a
// hospital's events stay ordered within a partition.
type KafkaProducer struct {
	writer *kafka.Writer
}

// NewKafkaProducer returns nil when brokers or topic are empty.
func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	if len(brokers) == 0 || topic == "" {
		return nil
	}
	return &KafkaProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *KafkaProducer) PublishTicketEvent(ctx context.Context, evt TicketEvent) {
	body, err := json.Marshal(evt)
	if err != nil {
		log.Printf("kafka: marshal ticket event: %v", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(evt.HospitalID, 10)),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(evt.Event)},
			{Key: "event_id", Value: []byte(evt.ID)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Printf("kafka: write %s for ticket %d: %v", evt.Event, evt.TicketID, err)
	}
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}
