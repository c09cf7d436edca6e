// Package kafka moves calibration requests and results over kafka topics.
package kafka

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

// Config holds broker and client settings
type Config struct {
	Brokers        []string
	GroupID        string
	StartOffset    string // earliest or latest
	MinBytes       int
	MaxBytes       int
	MaxWait        time.Duration
	CommitInterval time.Duration
	BatchTimeout   time.Duration
	RequiredAcks   string // all, one or none
	DefaultTimeout time.Duration
}

// Message represents a Kafka message
type Message struct {
	Key       []byte
	Value     []byte
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Headers   []MessageHeader
}

// MessageHeader represents a Kafka message header
type MessageHeader struct {
	Key   string
	Value []byte
}

// Header returns the value of the first header with the key
func (m *Message) Header(key string) (string, bool) {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

func fromKafka(m kafka.Message) *Message {
	msg := &Message{
		Key:       m.Key,
		Value:     m.Value,
		Topic:     m.Topic,
		Partition: m.Partition,
		Offset:    m.Offset,
		Timestamp: m.Time,
	}
	if len(m.Headers) > 0 {
		msg.Headers = make([]MessageHeader, len(m.Headers))
		for i, h := range m.Headers {
			msg.Headers[i] = MessageHeader{Key: h.Key, Value: h.Value}
		}
	}
	return msg
}

func toKafkaHeaders(headers []MessageHeader) []kafka.Header {
	if len(headers) == 0 {
		return nil
	}
	out := make([]kafka.Header, len(headers))
	for i, h := range headers {
		out[i] = kafka.Header{Key: h.Key, Value: h.Value}
	}
	return out
}

// Client creates producers and consumers against one cluster
type Client struct {
	config *Config
	log    *logger.Logger
}

// NewClient creates a new Kafka client. Zero settings take the defaults.
func NewClient(config *Config) (*Client, error) {
	def := DefaultConfig()
	if config == nil {
		config = def
	}
	if len(config.Brokers) == 0 {
		return nil, errors.InvalidArgument("kafka needs at least one broker")
	}
	if config.GroupID == "" {
		config.GroupID = def.GroupID
	}
	if config.StartOffset == "" {
		config.StartOffset = def.StartOffset
	}
	if config.MinBytes <= 0 {
		config.MinBytes = def.MinBytes
	}
	if config.MaxBytes <= 0 {
		config.MaxBytes = def.MaxBytes
	}
	if config.MaxWait <= 0 {
		config.MaxWait = def.MaxWait
	}
	if config.CommitInterval < 0 {
		config.CommitInterval = 0
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = def.BatchTimeout
	}
	if config.RequiredAcks == "" {
		config.RequiredAcks = def.RequiredAcks
	}
	if config.DefaultTimeout <= 0 {
		config.DefaultTimeout = def.DefaultTimeout
	}
	if _, err := requiredAcks(config.RequiredAcks); err != nil {
		return nil, err
	}
	if _, err := startOffset(config.StartOffset); err != nil {
		return nil, err
	}

	return &Client{
		config: config,
		log:    logger.GetLogger("kafka.client"),
	}, nil
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Brokers:        []string{"localhost:9092"},
		GroupID:        "quant-curve-engine",
		StartOffset:    "earliest",
		MinBytes:       1,
		MaxBytes:       10 << 20,
		MaxWait:        500 * time.Millisecond,
		BatchTimeout:   10 * time.Millisecond,
		RequiredAcks:   "all",
		DefaultTimeout: 10 * time.Second,
	}
}

func requiredAcks(s string) (kafka.RequiredAcks, error) {
	switch s {
	case "all":
		return kafka.RequireAll, nil
	case "one":
		return kafka.RequireOne, nil
	case "none":
		return kafka.RequireNone, nil
	default:
		return 0, errors.InvalidArgumentf("unknown required acks %q", s)
	}
}

func startOffset(s string) (int64, error) {
	switch s {
	case "earliest":
		return kafka.FirstOffset, nil
	case "latest":
		return kafka.LastOffset, nil
	default:
		return 0, errors.InvalidArgumentf("unknown start offset %q", s)
	}
}

// NewProducer creates a producer writing to topic
func (c *Client) NewProducer(topic string) (*Producer, error) {
	if topic == "" {
		return nil, errors.InvalidArgument("producer topic cannot be empty")
	}
	acks, _ := requiredAcks(c.config.RequiredAcks)
	w := &kafka.Writer{
		Addr:                   kafka.TCP(c.config.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           c.config.BatchTimeout,
		RequiredAcks:           acks,
		AllowAutoTopicCreation: true,
	}
	return newProducer(w, topic, c.config.DefaultTimeout), nil
}

// NewConsumer creates a group consumer reading topic
func (c *Client) NewConsumer(topic string) (*Consumer, error) {
	if topic == "" {
		return nil, errors.InvalidArgument("consumer topic cannot be empty")
	}
	offset, _ := startOffset(c.config.StartOffset)
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        c.config.Brokers,
		GroupID:        c.config.GroupID,
		Topic:          topic,
		MinBytes:       c.config.MinBytes,
		MaxBytes:       c.config.MaxBytes,
		MaxWait:        c.config.MaxWait,
		CommitInterval: c.config.CommitInterval,
		StartOffset:    offset,
	})
	return newConsumer(r, topic), nil
}

// controller dials the cluster controller, which topic administration must go through
func (c *Client) controller(ctx context.Context) (*kafka.Conn, error) {
	conn, err := kafka.DialContext(ctx, "tcp", c.config.Brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, "dialing broker")
	}
	defer conn.Close()

	broker, err := conn.Controller()
	if err != nil {
		return nil, errors.Wrap(err, "finding controller")
	}
	ctrl, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(broker.Host, strconv.Itoa(broker.Port)))
	if err != nil {
		return nil, errors.Wrap(err, "dialing controller")
	}
	return ctrl, nil
}

// ListTopics lists all Kafka topics
func (c *Client) ListTopics(ctx context.Context) ([]string, error) {
	conn, err := kafka.DialContext(ctx, "tcp", c.config.Brokers[0])
	if err != nil {
		return nil, errors.Wrap(err, "dialing broker")
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		return nil, errors.Wrap(err, "reading partitions")
	}
	seen := make(map[string]bool)
	topics := make([]string, 0)
	for _, p := range partitions {
		if !seen[p.Topic] {
			seen[p.Topic] = true
			topics = append(topics, p.Topic)
		}
	}
	return topics, nil
}

// CreateTopic creates a new Kafka topic
func (c *Client) CreateTopic(ctx context.Context, topic string, partitions int, replicationFactor int) error {
	conn, err := c.controller(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     partitions,
		ReplicationFactor: replicationFactor,
	})
	if err != nil {
		return errors.Wrapf(err, "creating topic %s", topic)
	}
	return nil
}

// EnsureTopicExists creates the topic unless it is already there
func (c *Client) EnsureTopicExists(ctx context.Context, topic string, partitions int, replicationFactor int) error {
	topics, err := c.ListTopics(ctx)
	if err != nil {
		return err
	}
	for _, t := range topics {
		if t == topic {
			c.log.Debugw("Topic already exists", "topic", topic)
			return nil
		}
	}

	c.log.Infow("Creating topic", "topic", topic, "partitions", partitions, "replication_factor", replicationFactor)
	return c.CreateTopic(ctx, topic, partitions, replicationFactor)
}
