package mq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/EvershineMarbles/EvershineBackend/internal/config"
	"github.com/EvershineMarbles/EvershineBackend/pkg/outbox"
)

// HandlerFunc handles one record. ctx carries the trace and correlation id
// propagated through the record headers.
type HandlerFunc func(ctx context.Context, topic string, payload []byte) error

type CleanupFunc func()

type Consumer interface {
	RegisterHandler(topic string, handler HandlerFunc) error
	Run(ctx context.Context) (CleanupFunc, error)
}

var _ Consumer = (*KafkaConsumer)(nil)

type KafkaConsumer struct {
	cl       *kgo.Client
	handlers map[string]HandlerFunc
	log      *slog.Logger
}

func NewKafkaConsumer(ctx context.Context, cfg config.Kafka, logger *slog.Logger) (*KafkaConsumer, error) {
	cl, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Addresses...),
		kgo.ClientID(cfg.ClientID),
		kgo.ConsumerGroup(cfg.Group),
		kgo.AllowAutoTopicCreation(),
		kgo.DisableAutoCommit(),
		kgo.BlockRebalanceOnPoll(),
		kgo.WithContext(ctx),
		kafkaHooks(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := ping(ctx, cl); err != nil {
		cl.Close()
		return nil, err
	}

	return &KafkaConsumer{
		cl:       cl,
		handlers: make(map[string]HandlerFunc),
		log:      logger.With(slog.String("component", "kafka_consumer")),
	}, nil
}

func (c *KafkaConsumer) RegisterHandler(topic string, handler HandlerFunc) error {
	if _, exists := c.handlers[topic]; exists {
		return fmt.Errorf("handler for topic %s already registered", topic)
	}

	c.cl.AddConsumeTopics(topic)
	c.handlers[topic] = handler
	return nil
}

// Run polls until cleanup is called. Partitions of one fetch are handled
// concurrently, records within a partition in offset order, and offsets are
// committed once the whole fetch is handled. A failing record is logged and
// skipped; there is no dead-letter topic.
func (c *KafkaConsumer) Run(ctx context.Context) (CleanupFunc, error) {
	if len(c.handlers) == 0 {
		return nil, errors.New("no handlers registered")
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for c.pollOnce(ctx) {
		}
	}()

	return func() {
		cancel()
		<-done
		c.cl.Close()
	}, nil
}

// pollOnce handles one fetch and reports whether polling should continue.
func (c *KafkaConsumer) pollOnce(ctx context.Context) bool {
	fetches := c.cl.PollFetches(ctx)
	defer c.cl.AllowRebalance()

	if ctx.Err() != nil || fetches.IsClientClosed() {
		return false
	}

	fetches.EachError(func(topic string, partition int32, err error) {
		c.log.ErrorContext(ctx, "fetch failed",
			slog.String("topic", topic),
			slog.Int("partition", int(partition)),
			slog.Any("error", err),
		)
	})

	var wg sync.WaitGroup
	fetches.EachPartition(func(p kgo.FetchTopicPartition) {
		wg.Go(func() {
			p.EachRecord(func(rec *kgo.Record) {
				c.handle(ctx, rec)
			})
		})
	})
	wg.Wait()

	if err := c.cl.CommitUncommittedOffsets(ctx); err != nil {
		c.log.ErrorContext(ctx, "commit offsets", slog.Any("error", err))
	}
	return true
}

func (c *KafkaConsumer) handle(ctx context.Context, rec *kgo.Record) {
	ctx = outbox.ExtractContext(ctx, outbox.RecordHeaders(rec))
	ctx, span := tracer.Start(ctx, "process "+rec.Topic,
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.destination.name", rec.Topic),
			attribute.Int("messaging.kafka.destination.partition", int(rec.Partition)),
			attribute.Int64("messaging.kafka.message.offset", rec.Offset),
		),
	)
	defer span.End()

	logger := c.log.With(
		slog.String("topic", rec.Topic),
		slog.String("key", string(rec.Key)),
		slog.Int64("offset", rec.Offset),
	)

	fn, ok := c.handlers[rec.Topic]
	if !ok {
		logger.WarnContext(ctx, "no handler registered for topic")
		return
	}

	if err := safeCall(ctx, fn, rec); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handler failed")
		logger.ErrorContext(ctx, "handle record", slog.Any("error", err))
	}
}

// safeCall turns a handler panic into an error carrying the stack.
func safeCall(ctx context.Context, fn HandlerFunc, rec *kgo.Record) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			err = fmt.Errorf("panic: %v\n%s", rvr, debug.Stack())
		}
	}()
	return fn(ctx, rec.Topic, rec.Value)
}
