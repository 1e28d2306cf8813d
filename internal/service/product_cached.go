package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/EvershineMarbles/EvershineBackend/internal/model"
)

// cachedProductService caches GetProduct in Redis. Every mutation drops the
// cached entry after the wrapped service succeeds. Cache failures are logged
// and never fail a request.
type cachedProductService struct {
	next        ProductService
	redisClient *redis.Client
	cacheTTL    time.Duration
	logger      *slog.Logger
}

// cachedProduct keeps the storage id, which the product json omits.
type cachedProduct struct {
	ID      uuid.UUID     `json:"id"`
	Product model.Product `json:"product"`
}

func NewCachedProductService(next ProductService, redisClient *redis.Client, cacheTTL time.Duration, logger *slog.Logger) ProductService {
	return &cachedProductService{
		next:        next,
		redisClient: redisClient,
		cacheTTL:    cacheTTL,
		logger:      logger.With(slog.String("service", "product_cache")),
	}
}

func productCacheKey(key string) string {
	return "product:" + key
}

func (s *cachedProductService) CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error) {
	return s.next.CreateProduct(ctx, params)
}

func (s *cachedProductService) GetProduct(ctx context.Context, key string) (model.Product, error) {
	cacheKey := productCacheKey(key)

	data, err := s.redisClient.Get(ctx, cacheKey).Bytes()
	switch {
	case err == nil:
		var cached cachedProduct
		if err := json.Unmarshal(data, &cached); err == nil {
			cached.Product.ID = cached.ID
			return cached.Product, nil
		}
		s.logger.WarnContext(ctx, "dropping undecodable cache entry", slog.String("key", cacheKey))
	case !errors.Is(err, redis.Nil):
		s.logger.WarnContext(ctx, "error reading product cache", slog.String("key", cacheKey), slog.Any("error", err))
	}

	product, err := s.next.GetProduct(ctx, key)
	if err != nil {
		return model.Product{}, err
	}

	data, err = json.Marshal(cachedProduct{ID: product.ID, Product: product})
	if err != nil {
		s.logger.WarnContext(ctx, "error encoding product cache entry", slog.Any("error", err))
		return product, nil
	}
	if err := s.redisClient.Set(ctx, cacheKey, data, s.cacheTTL).Err(); err != nil {
		s.logger.WarnContext(ctx, "error writing product cache", slog.String("key", cacheKey), slog.Any("error", err))
	}

	return product, nil
}

func (s *cachedProductService) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	return s.next.ListProducts(ctx, params)
}

func (s *cachedProductService) UpdateProduct(ctx context.Context, key string, params UpdateProductParams) (model.Product, error) {
	product, err := s.next.UpdateProduct(ctx, key, params)
	if err != nil {
		return model.Product{}, err
	}
	s.invalidate(ctx, key)
	return product, nil
}

func (s *cachedProductService) SetStatus(ctx context.Context, key string, status string) (model.Product, error) {
	product, err := s.next.SetStatus(ctx, key, status)
	if err != nil {
		return model.Product{}, err
	}
	s.invalidate(ctx, key)
	return product, nil
}

func (s *cachedProductService) DeleteProduct(ctx context.Context, key string) error {
	if err := s.next.DeleteProduct(ctx, key); err != nil {
		return err
	}
	s.invalidate(ctx, key)
	return nil
}

func (s *cachedProductService) invalidate(ctx context.Context, key string) {
	if err := s.redisClient.Del(context.WithoutCancel(ctx), productCacheKey(key)).Err(); err != nil {
		s.logger.WarnContext(ctx, "error invalidating product cache", slog.String("key", key), slog.Any("error", err))
	}
}
