// Package events publishes and consumes order lifecycle events. Every save
// in the admin panel emits one message; consumers fan the news out to
// connected dashboards, so edits made on one instance show up everywhere.
package events

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

const OrderSavedTopic = "atelier.order.saved"

type OrderSavedEvent struct {
	OrderID     string    `json:"order_id"`
	OrderNo     string    `json:"order_no"`
	Status      string    `json:"status"`
	TotalPrice  float64   `json:"total_price"`
	TotalPieces int       `json:"total_pieces"`
	Actor       string    `json:"actor"`
	Created     bool      `json:"created"`
	SavedAt     time.Time `json:"saved_at"`
	EventTime   time.Time `json:"event_time"`
}

type Producer struct {
	producer sarama.SyncProducer
	logger   *logrus.Logger
}

func NewProducer(brokers string, logger *logrus.Logger) (*Producer, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Version = sarama.V2_6_0_0

	producer, err := sarama.NewSyncProducer(strings.Split(brokers, ","), config)
	if err != nil {
		return nil, err
	}

	return &Producer{
		producer: producer,
		logger:   logger,
	}, nil
}

// PublishOrderSaved emits one message per saved order, keyed by order id so
// saves of the same order stay ordered within a partition.
func (p *Producer) PublishOrderSaved(event OrderSavedEvent) error {
	event.EventTime = time.Now()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: OrderSavedTopic,
		Key:   sarama.StringEncoder(event.OrderID),
		Value: sarama.ByteEncoder(data),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.logger.WithError(err).Error("Failed to publish order saved event")
		return err
	}

	p.logger.WithFields(logrus.Fields{
		"topic":     OrderSavedTopic,
		"partition": partition,
		"offset":    offset,
		"order_id":  event.OrderID,
	}).Info("Order event published")

	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}
