package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/quant-curve-engine/internal/request"
	"github.com/rzzdr/quant-curve-engine/internal/store"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/circuit"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/errors"
	"github.com/rzzdr/quant-curve-engine/pkg/utils/logger"
)

func init() {
	logger.UseNop()
}

// fakeReader serves queued messages, then blocks until the context ends
type fakeReader struct {
	mu        sync.Mutex
	queue     []kafka.Message
	committed []int64
	fetchErr  error
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if f.fetchErr != nil {
		err := f.fetchErr
		f.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(f.queue) > 0 {
		m := f.queue[0]
		f.queue = f.queue[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

type fakeWriter struct {
	mu      sync.Mutex
	written []kafka.Message
	err     error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

type fakeCalibrator struct {
	err error
}

func (f fakeCalibrator) Calibrate(_ context.Context, req *request.CalibrationRequest) (*store.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &store.Snapshot{
		Name:     req.Name,
		Version:  3,
		Response: &request.CalibrationResponse{Name: req.Name, Steps: []int{4}},
	}, nil
}

const doc = `
name: usd
stages:
  - name: usd-cash
    groups: [{name: USD-DSC, currencies: [USD]}]
    instruments:
      - {type: cash, currency: USD, end: 1, rate: 0.04}
`

func decodeResult(t *testing.T, m kafka.Message) CalibrationResult {
	t.Helper()
	var res CalibrationResult
	require.NoError(t, json.Unmarshal(m.Value, &res))
	return res
}

func TestProcessorPublishesConvergedResult(t *testing.T) {
	w := &fakeWriter{}
	p := NewCalibrationProcessor(fakeCalibrator{}, newProducer(w, "results", 0))

	msg := &Message{
		Value:   []byte(doc),
		Offset:  7,
		Headers: []MessageHeader{{Key: HeaderRequestID, Value: []byte("req-1")}},
	}
	require.NoError(t, p.Handle(context.Background(), msg))

	require.Len(t, w.written, 1)
	out := w.written[0]
	assert.Equal(t, []byte("usd"), out.Key)
	require.Len(t, out.Headers, 1)
	assert.Equal(t, HeaderRequestID, out.Headers[0].Key)
	assert.Equal(t, []byte("req-1"), out.Headers[0].Value)

	res := decodeResult(t, out)
	assert.Equal(t, StatusConverged, res.Status)
	assert.Equal(t, "usd", res.Name)
	assert.Equal(t, 3, res.Version)
	assert.Equal(t, int64(7), res.Offset)
	require.NotNil(t, res.Response)
	assert.Equal(t, []int{4}, res.Response.Steps)
}

func TestProcessorPublishesFailures(t *testing.T) {
	w := &fakeWriter{}
	p := NewCalibrationProcessor(fakeCalibrator{err: errors.NonConvergence("jacobian is singular", nil)}, newProducer(w, "results", 0))

	require.NoError(t, p.Handle(context.Background(), &Message{Key: []byte("usd"), Value: []byte(doc)}))
	require.NoError(t, p.Handle(context.Background(), &Message{Key: []byte("broken"), Value: []byte("stages: [")}))

	require.Len(t, w.written, 2)
	res := decodeResult(t, w.written[0])
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "usd", res.Name)
	assert.Equal(t, errors.ErrorTypeNonConvergence.String(), res.ErrorType)
	assert.Contains(t, res.Error, "jacobian is singular")

	res = decodeResult(t, w.written[1])
	assert.Equal(t, StatusFailed, res.Status)
	assert.Equal(t, "broken", res.Name)
	assert.Equal(t, errors.ErrorTypeInvalidArgument.String(), res.ErrorType)
}

func TestProcessorNamesRequestFromKey(t *testing.T) {
	w := &fakeWriter{}
	p := NewCalibrationProcessor(fakeCalibrator{}, newProducer(w, "results", 0))

	unnamed := `
stages:
  - name: usd-cash
    groups: [{name: USD-DSC, currencies: [USD]}]
    instruments: [{type: cash, currency: USD, end: 1, rate: 0.04}]
`
	require.NoError(t, p.Handle(context.Background(), &Message{Key: []byte("from-key"), Value: []byte(unnamed)}))
	require.Len(t, w.written, 1)
	assert.Equal(t, "from-key", decodeResult(t, w.written[0]).Name)
}

func TestProcessorReturnsPublishErrors(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := NewCalibrationProcessor(fakeCalibrator{}, newProducer(w, "results", 0))

	err := p.Handle(context.Background(), &Message{Value: []byte(doc)})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestConsumeMessagesCommitsEveryMessage(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{
		{Topic: "requests", Offset: 1, Value: []byte("a")},
		{Topic: "requests", Offset: 2, Value: []byte("b"), Headers: []kafka.Header{{Key: "k", Value: []byte("v")}}},
		{Topic: "requests", Offset: 3, Value: []byte("c")},
	}}
	c := newConsumer(r, "requests")

	ctx, cancel := context.WithCancel(context.Background())
	var seen []*Message
	handler := func(_ context.Context, msg *Message) error {
		seen = append(seen, msg)
		if len(seen) == 3 {
			cancel()
		}
		if msg.Offset == 2 {
			return errors.New("bad request")
		}
		return nil
	}
	require.NoError(t, c.ConsumeMessages(ctx, handler))

	require.Len(t, seen, 3)
	assert.Equal(t, []byte("b"), seen[1].Value)
	v, ok := seen[1].Header("k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)
	_, ok = seen[0].Header("k")
	assert.False(t, ok)
	assert.Equal(t, []int64{1, 2, 3}, r.committed)
}

func TestConsumeMessagesReturnsFetchErrors(t *testing.T) {
	r := &fakeReader{fetchErr: errors.New("connection refused")}
	c := newConsumer(r, "requests")

	err := c.ConsumeMessages(context.Background(), func(context.Context, *Message) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewClientDefaultsAndValidation(t *testing.T) {
	c, err := NewClient(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:9092"}, c.config.Brokers)

	c, err = NewClient(&Config{Brokers: []string{"kafka:9092"}})
	require.NoError(t, err)
	assert.Equal(t, "quant-curve-engine", c.config.GroupID)
	assert.Equal(t, "earliest", c.config.StartOffset)
	assert.Equal(t, "all", c.config.RequiredAcks)

	_, err = NewClient(&Config{})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	_, err = NewClient(&Config{Brokers: []string{"kafka:9092"}, RequiredAcks: "some"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	_, err = NewClient(&Config{Brokers: []string{"kafka:9092"}, StartOffset: "middle"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))

	_, err = c.NewProducer("")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
	_, err = c.NewConsumer("")
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestProducerBreakerStopsWrites(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	b := circuit.NewBreaker("results", circuit.Config{MaxFailures: 2, Timeout: time.Hour})
	p := newProducer(w, "results", time.Second).WithBreaker(b)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		assert.Error(t, p.ProduceMessage(ctx, nil, []byte("x"), nil))
	}
	assert.Equal(t, circuit.StateOpen, b.State())

	w.err = nil
	err := p.ProduceMessage(ctx, nil, []byte("x"), nil)
	assert.ErrorIs(t, err, circuit.ErrOpen)
	assert.Empty(t, w.written)

	b.Reset()
	require.NoError(t, p.ProduceMessage(ctx, []byte("k"), []byte("x"), nil))
	require.Len(t, w.written, 1)
	assert.Equal(t, []byte("k"), w.written[0].Key)
}
