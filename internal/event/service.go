package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/EvershineMarbles/EvershineBackend/internal/storage/mq"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/objstore"
)

// Service is the event service.
type Service struct {
	logger     *slog.Logger
	mqConsumer mq.Consumer
	imageStore objstore.ImageStore
}

// New creates a new event service.
func New(
	logger *slog.Logger,
	mqConsumer mq.Consumer,
	imageStore objstore.ImageStore,
) *Service {
	return &Service{
		logger:     logger.With(slog.String("service", "event")),
		mqConsumer: mqConsumer,
		imageStore: imageStore,
	}
}

type CleanupFunc func()

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	handlers := map[string]mq.HandlerFunc{
		TopicProductCreated:        decode(s.handleProductCreated),
		TopicProductUpdated:        decode(s.handleProductUpdated),
		TopicProductStatusChanged:  decode(s.handleProductStatusChanged),
		TopicProductDeleted:        decode(s.handleProductDeleted),
		TopicProductImagesReleased: decode(s.handleProductImagesReleased),
	}

	for topic, handler := range handlers {
		if err := s.mqConsumer.RegisterHandler(topic, handler); err != nil {
			return nil, fmt.Errorf("register %s handler: %w", topic, err)
		}
	}

	mqCleanup, err := s.mqConsumer.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("run mq consumer: %w", err)
	}

	cleanup := func() {
		mqCleanup()
	}

	return cleanup, nil
}

// decode adapts a typed handler to an mq.HandlerFunc.
func decode[T any](fn func(ctx context.Context, ev T) error) mq.HandlerFunc {
	return func(ctx context.Context, topic string, payload []byte) error {
		var ev T
		if err := json.Unmarshal(payload, &ev); err != nil {
			return fmt.Errorf("unmarshal %s event: %w", topic, err)
		}

		if err := fn(ctx, ev); err != nil {
			return fmt.Errorf("handle %s event: %w", topic, err)
		}

		return nil
	}
}
