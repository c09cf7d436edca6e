package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/quant-curve-engine/pkg/metrics"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

// MessageHandler processes one consumed message
type MessageHandler func(ctx context.Context, msg *Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic as part of a consumer group
type Consumer struct {
	reader messageReader
	topic  string
	log    *logger.Logger
}

func newConsumer(r messageReader, topic string) *Consumer {
	return &Consumer{
		reader: r,
		topic:  topic,
		log:    logger.GetLogger("kafka.consumer"),
	}
}

// ConsumeMessages passes messages to the handler until the context is done.
// Every message is committed once the handler returns, failed or not.
func (c *Consumer) ConsumeMessages(ctx context.Context, handler MessageHandler) error {
	c.log.Infow("Starting consumer", "topic", c.topic)

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Infow("Consumer stopped", "topic", c.topic)
				return nil
			}
			return errors.Wrapf(err, "fetching from %s", c.topic)
		}

		msg := fromKafka(m)
		if err := handler(ctx, msg); err != nil {
			metrics.RecordKafkaMessage(c.topic, "failed")
			c.log.Errorw("Error processing message",
				"topic", c.topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
				"error", err,
			)
		} else {
			metrics.RecordKafkaMessage(c.topic, "consumed")
		}

		if err := c.reader.CommitMessages(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Errorw("Error committing offset", "topic", c.topic, "offset", msg.Offset, "error", err)
		}
	}
}

// Close closes the consumer
func (c *Consumer) Close() error {
	c.log.Debugw("Closing consumer", "topic", c.topic)
	return c.reader.Close()
}
