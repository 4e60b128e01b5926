package events

import (
	"log"

	"github.com/raksha360/hospital-portal/internal/config"
)

// FromConfig wires every broker the configuration names. With none configured it
// returns Nop. A RabbitMQ dial failure is logged and the broker skipped.
func FromConfig(cfg *config.Config) Publisher {
	var out Fanout
	if p := NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopicTicket); p != nil {
		log.Printf("events: kafka topic %s on %v", cfg.KafkaTopicTicket, cfg.KafkaBrokers)
		out = append(out, p)
	}
	if cfg.RabbitMQURL != "" {
		p, err := NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			log.Printf("events: rabbitmq unavailable, skipping: %v", err)
		} else {
			log.Printf("events: rabbitmq queue %s", cfg.RabbitMQQueue)
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return Nop{}
	}
	return out
}
