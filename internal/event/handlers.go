package event

import (
	"context"
	"log/slog"
)

func (s *Service) handleProductCreated(ctx context.Context, ev ProductCreatedEvent) error {
	s.logger.InfoContext(ctx, "product created",
		slog.String("business_key", ev.BusinessKey),
		slog.String("category", ev.Category),
		slog.Int("images", len(ev.Images)),
	)
	return nil
}

func (s *Service) handleProductUpdated(ctx context.Context, ev ProductUpdatedEvent) error {
	s.logger.InfoContext(ctx, "product updated",
		slog.String("business_key", ev.BusinessKey),
		slog.Any("fields", ev.Fields),
	)
	return nil
}

func (s *Service) handleProductStatusChanged(ctx context.Context, ev ProductStatusChangedEvent) error {
	s.logger.InfoContext(ctx, "product status changed",
		slog.String("business_key", ev.BusinessKey),
		slog.String("from", ev.From),
		slog.String("to", ev.To),
	)
	return nil
}

func (s *Service) handleProductDeleted(ctx context.Context, ev ProductDeletedEvent) error {
	s.logger.InfoContext(ctx, "product deleted", slog.String("business_key", ev.BusinessKey))
	return nil
}

func (s *Service) handleProductImagesReleased(ctx context.Context, ev ProductImagesReleasedEvent) error {
	if len(ev.Images) == 0 {
		return nil
	}

	s.logger.InfoContext(ctx, "releasing product images",
		slog.String("business_key", ev.BusinessKey),
		slog.Int("count", len(ev.Images)),
	)
	s.imageStore.DeleteAll(ctx, ev.Images)
	return nil
}
