package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/quant-curve-engine/pkg/metrics"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/circuit"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes messages to one topic
type Producer struct {
	writer  messageWriter
	topic   string
	timeout time.Duration
	breaker *circuit.Breaker
	log     *logger.Logger
}

func newProducer(w messageWriter, topic string, timeout time.Duration) *Producer {
	return &Producer{
		writer:  w,
		topic:   topic,
		timeout: timeout,
		log:     logger.GetLogger("kafka.producer"),
	}
}

// WithBreaker guards writes with a circuit breaker
func (p *Producer) WithBreaker(b *circuit.Breaker) *Producer {
	p.breaker = b
	return p
}

// ProduceMessage writes a message and waits for it to be acknowledged
func (p *Producer) ProduceMessage(ctx context.Context, key []byte, value []byte, headers []MessageHeader) error {
	msg := kafka.Message{
		Key:     key,
		Value:   value,
		Headers: toKafkaHeaders(headers),
	}
	write := func(ctx context.Context) error {
		if p.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, p.timeout)
			defer cancel()
		}
		return p.writer.WriteMessages(ctx, msg)
	}

	var err error
	if p.breaker != nil {
		err = p.breaker.Execute(ctx, write)
	} else {
		err = write(ctx)
	}
	if err != nil {
		metrics.RecordKafkaMessage(p.topic, "produce_failed")
		p.log.Errorw("Failed to produce message", "topic", p.topic, "error", err)
		return errors.Wrapf(err, "producing to %s", p.topic)
	}
	metrics.RecordKafkaMessage(p.topic, "produced")
	return nil
}

// ProduceJSON produces a JSON-serialized message to the topic
func (p *Producer) ProduceJSON(ctx context.Context, key []byte, value interface{}, headers []MessageHeader) error {
	data, err := json.Marshal(value)
	if err != nil {
		return errors.Wrap(errors.Internal(err.Error()), "encoding message")
	}
	return p.ProduceMessage(ctx, key, data, headers)
}

// Close flushes pending messages and closes the writer
func (p *Producer) Close() error {
	p.log.Debugw("Closing producer", "topic", p.topic)
	return p.writer.Close()
}
