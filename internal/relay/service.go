// Package relay publishes outbox rows to Kafka. Each batch is claimed, sent
// and marked inside one transaction, so concurrent relays never send the
// same row and a crash before commit leaves the batch pending.
package relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/EvershineMarbles/EvershineBackend/internal/config"
	"github.com/EvershineMarbles/EvershineBackend/internal/repository"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/db"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/mq"
	"github.com/EvershineMarbles/EvershineBackend/pkg/ptr"
)

const (
	outcomeSent   = "sent"
	outcomeFailed = "failed"
)

type Service struct {
	cfg      config.Relay
	logger   *slog.Logger
	db       db.DB
	outbox   repository.OutboxMsgRepository
	producer mq.Producer

	relayed       *prometheus.CounterVec
	batchDuration prometheus.Histogram

	stop     chan struct{}
	stopOnce sync.Once
}

func NewService(
	cfg config.Relay,
	logger *slog.Logger,
	reg prometheus.Registerer,
	db db.DB,
	outbox repository.OutboxMsgRepository,
	producer mq.Producer,
) *Service {
	s := &Service{
		cfg:      cfg,
		logger:   logger.With(slog.String("service", "relay")),
		db:       db,
		outbox:   outbox,
		producer: producer,
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "evershine",
			Subsystem: "relay",
			Name:      "messages_total",
			Help:      "Outbox messages handed to Kafka, by topic and outcome.",
		}, []string{"topic", "outcome"}),
		batchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "evershine",
			Subsystem: "relay",
			Name:      "batch_duration_seconds",
			Help:      "Time to claim, send and mark one non-empty batch.",
			Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		stop: make(chan struct{}),
	}
	reg.MustRegister(s.relayed, s.batchDuration)
	return s
}

type CleanupFunc func()

// Run polls the outbox every cfg.Interval until the returned cleanup is
// called. A full batch is followed by another one immediately, so a backlog
// drains without waiting for the ticker. Cleanup lets an in-flight batch
// finish for up to cfg.StopTimeout before cancelling it.
func (s *Service) Run(ctx context.Context) CleanupFunc {
	ctx, cancel := context.WithCancel(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.poll(ctx)
	}()

	return func() {
		s.stopOnce.Do(func() { close(s.stop) })
		defer cancel()

		timer := time.NewTimer(s.cfg.StopTimeout)
		defer timer.Stop()

		select {
		case <-done:
		case <-timer.C:
			s.logger.WarnContext(ctx, "relay did not stop in time, cancelling batch")
			cancel()
			<-done
		}
	}
}

func (s *Service) poll(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
		}

		for {
			n, err := s.RelayBatch(ctx)
			if err != nil {
				s.logger.ErrorContext(ctx, "relay batch failed", slog.Any("error", err))
			}
			if err != nil || n < int(s.cfg.BatchSize) || s.stopped() {
				break
			}
		}
	}
}

func (s *Service) stopped() bool {
	select {
	case <-s.stop:
		return true
	default:
		return false
	}
}

// RelayBatch sends up to cfg.BatchSize pending messages and records the
// outcome of each, returning how many were claimed. A failed send is stored
// with its error and not retried.
func (s *Service) RelayBatch(ctx context.Context) (int, error) {
	var claimed int
	err := s.db.WithTx(ctx, func(tx db.DB) error {
		msgs, err := s.outbox.WithDB(tx).ListUnprocessedOutboxMsgs(ctx, repository.ListUnprocessedOutboxMsgsParams{
			BatchSize: int32(min(s.cfg.BatchSize, 1<<31-1)), //nolint:gosec
		})
		if err != nil {
			return fmt.Errorf("claim outbox msgs: %w", err)
		}
		claimed = len(msgs)
		if claimed == 0 {
			return nil
		}

		start := time.Now()
		defer func() { s.batchDuration.Observe(time.Since(start).Seconds()) }()

		items := s.send(ctx, msgs)

		if err := s.outbox.WithDB(tx).BulkUpdateOutboxMsgs(ctx, repository.BulkUpdateOutboxMsgsParams{Items: items}); err != nil {
			return fmt.Errorf("mark outbox msgs: %w", err)
		}
		return nil
	})
	return claimed, err
}

// send produces msgs and returns their outcomes in claim order. Messages
// sharing a partition key go out one after another so Kafka sees them in
// outbox order; distinct keys are sent concurrently.
func (s *Service) send(ctx context.Context, msgs []repository.ListUnprocessedOutboxMsgsResult) []repository.BulkUpdateOutboxMsgsItem {
	items := make([]repository.BulkUpdateOutboxMsgsItem, len(msgs))

	var wg sync.WaitGroup
	for _, group := range groupByKey(msgs) {
		wg.Go(func() {
			for _, i := range group {
				items[i] = s.sendOne(ctx, msgs[i])
			}
		})
	}
	wg.Wait()

	s.logger.InfoContext(ctx, "relayed outbox msgs", slog.Int("count", len(msgs)))
	return items
}

func (s *Service) sendOne(ctx context.Context, msg repository.ListUnprocessedOutboxMsgsResult) repository.BulkUpdateOutboxMsgsItem {
	item := repository.BulkUpdateOutboxMsgsItem{ID: msg.ID}

	err := s.producer.Produce(ctx, mq.ProduceMsg{
		Topic:        msg.Topic,
		Headers:      msg.Headers,
		Payload:      msg.Payload,
		PartitionKey: msg.PartitionKey,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "produce outbox msg",
			slog.String("outbox_msg_id", msg.ID.String()),
			slog.String("topic", msg.Topic),
			slog.Any("error", err),
		)
		item.Error = ptr.New(err.Error())
		s.relayed.WithLabelValues(msg.Topic, outcomeFailed).Inc()
		return item
	}

	s.relayed.WithLabelValues(msg.Topic, outcomeSent).Inc()
	return item
}

// groupByKey returns message indexes grouped by partition key, each group in
// claim order. Unkeyed messages form groups of one.
func groupByKey(msgs []repository.ListUnprocessedOutboxMsgsResult) [][]int {
	var groups [][]int
	byKey := map[string]int{}
	for i, msg := range msgs {
		if msg.PartitionKey == nil {
			groups = append(groups, []int{i})
			continue
		}
		g, ok := byKey[*msg.PartitionKey]
		if !ok {
			g = len(groups)
			byKey[*msg.PartitionKey] = g
			groups = append(groups, nil)
		}
		groups[g] = append(groups[g], i)
	}
	return groups
}
