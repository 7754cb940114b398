package events

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

type OrderEventSink interface {
	HandleOrderSaved(event OrderSavedEvent) error
}

type Consumer struct {
	consumerGroup sarama.ConsumerGroup
	sink          OrderEventSink
	logger        *logrus.Logger
	topics        []string
}

func NewConsumer(brokers, groupID string, sink OrderEventSink, logger *logrus.Logger) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	// Dashboards only care about what happens from now on.
	config.Consumer.Offsets.Initial = sarama.OffsetNewest
	config.Version = sarama.V2_6_0_0

	consumerGroup, err := sarama.NewConsumerGroup(strings.Split(brokers, ","), groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		consumerGroup: consumerGroup,
		sink:          sink,
		logger:        logger,
		topics:        []string{OrderSavedTopic},
	}, nil
}

func (c *Consumer) Start(ctx context.Context) error {
	handler := &groupHandler{
		sink:   c.sink,
		logger: c.logger,
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Order event consumer context cancelled")
			return nil
		default:
			if err := c.consumerGroup.Consume(ctx, c.topics, handler); err != nil {
				c.logger.WithError(err).Error("Error consuming order events")
				return err
			}
		}
	}
}

func (c *Consumer) Close() error {
	return c.consumerGroup.Close()
}

type groupHandler struct {
	sink   OrderEventSink
	logger *logrus.Logger
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Order event consumer session setup")
	return nil
}

func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.logger.Info("Order event consumer session cleanup")
	return nil
}

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message := <-claim.Messages():
			if message == nil {
				return nil
			}

			if err := h.handleMessage(message); err != nil {
				h.logger.WithError(err).Error("Failed to handle order event")
				// A dropped dashboard update is not worth stalling the
				// partition over.
			}
			session.MarkMessage(message, "")

		case <-session.Context().Done():
			return nil
		}
	}
}

func (h *groupHandler) handleMessage(message *sarama.ConsumerMessage) error {
	switch message.Topic {
	case OrderSavedTopic:
		var event OrderSavedEvent
		if err := json.Unmarshal(message.Value, &event); err != nil {
			return err
		}
		h.logger.WithFields(logrus.Fields{
			"order_id": event.OrderID,
			"status":   event.Status,
		}).Debug("Order event received")
		return h.sink.HandleOrderSaved(event)

	default:
		h.logger.WithField("topic", message.Topic).Warn("Unknown topic received")
		return nil
	}
}
