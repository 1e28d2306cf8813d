package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/EvershineMarbles/EvershineBackend/internal/apperr"
	"github.com/EvershineMarbles/EvershineBackend/internal/bizkey"
	"github.com/EvershineMarbles/EvershineBackend/internal/event"
	"github.com/EvershineMarbles/EvershineBackend/internal/model"
	"github.com/EvershineMarbles/EvershineBackend/internal/reconcile"
	"github.com/EvershineMarbles/EvershineBackend/internal/repository"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/db"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/objstore"
	"github.com/EvershineMarbles/EvershineBackend/internal/validation"
	"github.com/EvershineMarbles/EvershineBackend/pkg/outbox"
	"github.com/EvershineMarbles/EvershineBackend/pkg/zerror"
)

type CreateProductParams struct {
	Fields validation.CreateFields
	Images []model.ImageFile
}

type UpdateProductParams struct {
	Fields validation.UpdateFields
	// KeepImages is the raw JSON array of existing image URLs to keep.
	// Blank keeps every existing image.
	KeepImages string
	Images     []model.ImageFile
}

type ListProductsParams struct {
	Status *string
}

type ProductService interface {
	CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error)
	GetProduct(ctx context.Context, key string) (model.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error)
	UpdateProduct(ctx context.Context, key string, params UpdateProductParams) (model.Product, error)
	SetStatus(ctx context.Context, key string, status string) (model.Product, error)
	DeleteProduct(ctx context.Context, key string) error
}

type productService struct {
	logger        *slog.Logger
	db            db.DB
	productRepo   repository.ProductRepository
	outboxMsgRepo repository.OutboxMsgRepository
	validator     *validation.Validator
	imageStore    objstore.ImageStore
	keys          bizkey.Generator
	now           func() time.Time
}

func NewProductService(
	logger *slog.Logger,
	db db.DB,
	productRepo repository.ProductRepository,
	outboxMsgRepo repository.OutboxMsgRepository,
	validator *validation.Validator,
	imageStore objstore.ImageStore,
	keys bizkey.Generator,
) ProductService {
	return &productService{
		logger:        logger.With(slog.String("service", "product")),
		db:            db,
		productRepo:   productRepo,
		outboxMsgRepo: outboxMsgRepo,
		validator:     validator,
		imageStore:    imageStore,
		keys:          keys,
		now:           func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *productService) CreateProduct(ctx context.Context, params CreateProductParams) (model.Product, error) {
	in, err := s.validator.ValidateCreate(params.Fields, params.Images)
	if err != nil {
		return model.Product{}, validationErr(err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.Product{}, fmt.Errorf("generate uuid v7: %w", err)
	}

	urls, err := s.imageStore.UploadAll(ctx, params.Images)
	if err != nil {
		return model.Product{}, apperr.ImageUploadErr.WrapParent(err)
	}

	now := s.now()
	product := model.Product{
		ID:                id,
		BusinessKey:       s.keys.Next(),
		Name:              in.Name,
		Price:             in.Price,
		Category:          in.Category,
		ApplicationAreas:  in.ApplicationAreas,
		Description:       in.Description,
		QuantityAvailable: in.QuantityAvailable,
		Size:              in.Size,
		Thickness:         in.Thickness,
		NumberOfPieces:    in.NumberOfPieces,
		Images:            urls,
		Status:            in.Status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var created model.Product
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		var err error
		created, err = s.productRepo.
			WithDB(db).
			InsertProduct(ctx, product)
		if err != nil {
			return fmt.Errorf("product repository insert product: %w", err)
		}

		return s.publish(ctx, db, event.TopicProductCreated, created.BusinessKey, event.ProductCreatedEvent{
			BusinessKey: created.BusinessKey,
			Name:        created.Name,
			Category:    string(created.Category),
			Price:       created.Price.String(),
			Status:      string(created.Status),
			Images:      created.Images,
		})
	}); err != nil {
		s.releaseUploads(ctx, urls)
		return model.Product{}, repositoryErr(fmt.Errorf("db with tx: %w", err))
	}

	s.logger.InfoContext(ctx, "product created", slog.String("business_key", created.BusinessKey))
	return created, nil
}

func (s *productService) GetProduct(ctx context.Context, key string) (model.Product, error) {
	product, err := s.productRepo.FindProductByKey(ctx, key)
	if err != nil {
		return model.Product{}, repositoryErr(err)
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	var filter repository.ListProductsParams
	if params.Status != nil {
		status, err := validation.ParseStatus(*params.Status)
		if err != nil {
			return nil, validationErr(err)
		}
		filter.Status = &status
	}

	products, err := s.productRepo.ListProducts(ctx, filter)
	if err != nil {
		return nil, repositoryErr(err)
	}
	return products, nil
}

func (s *productService) UpdateProduct(ctx context.Context, key string, params UpdateProductParams) (model.Product, error) {
	in, err := s.validator.ValidateUpdate(params.Fields, params.Images)
	if err != nil {
		return model.Product{}, validationErr(err)
	}

	keep, err := reconcile.ParseKeepImages(params.KeepImages)
	if err != nil {
		return model.Product{}, validationErr(err)
	}

	// Fail fast on a missing product or an impossible image count before
	// uploading. The authoritative plan is rebuilt from the locked row below.
	existing, err := s.productRepo.FindProductByKey(ctx, key)
	if err != nil {
		return model.Product{}, repositoryErr(err)
	}

	if err := validation.CheckImageCount(len(reconcile.KeptImages(existing.Images, keep)), len(params.Images)); err != nil {
		return model.Product{}, validationErr(err)
	}

	uploaded, err := s.imageStore.UploadAll(ctx, params.Images)
	if err != nil {
		return model.Product{}, apperr.ImageUploadErr.WrapParent(err)
	}

	var updated model.Product
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		repo := s.productRepo.WithDB(db)

		// Released images must come from the row this transaction writes over,
		// never from the earlier read, or a concurrent update's images could
		// be deleted while still referenced.
		current, err := repo.LockProductByKey(ctx, key)
		if err != nil {
			return fmt.Errorf("product repository lock product: %w", err)
		}

		kept := reconcile.KeptImages(current.Images, keep)
		if err := validation.CheckImageCount(len(kept), len(uploaded)); err != nil {
			return validationErr(err)
		}

		plan := reconcile.Build(in, current.Images, kept, uploaded)
		if plan.Patch.IsEmpty() {
			updated = current
			return nil
		}

		updated, err = repo.UpdateProductByKey(ctx, key, plan.Patch, s.now())
		if err != nil {
			return fmt.Errorf("product repository update product: %w", err)
		}

		if err := s.publish(ctx, db, event.TopicProductUpdated, key, event.ProductUpdatedEvent{
			BusinessKey: key,
			Fields:      plan.Patch.PresentFields(),
		}); err != nil {
			return err
		}

		if updated.Status != current.Status {
			if err := s.publish(ctx, db, event.TopicProductStatusChanged, key, event.ProductStatusChangedEvent{
				BusinessKey: key,
				From:        string(current.Status),
				To:          string(updated.Status),
			}); err != nil {
				return err
			}
		}

		if len(plan.Released) > 0 {
			if err := s.publish(ctx, db, event.TopicProductImagesReleased, key, event.ProductImagesReleasedEvent{
				BusinessKey: key,
				Images:      plan.Released,
			}); err != nil {
				return err
			}
		}

		return nil
	}); err != nil {
		s.releaseUploads(ctx, uploaded)
		return model.Product{}, repositoryErr(fmt.Errorf("db with tx: %w", err))
	}

	return updated, nil
}

func (s *productService) SetStatus(ctx context.Context, key string, status string) (model.Product, error) {
	target, err := validation.ParseStatus(status)
	if err != nil {
		return model.Product{}, validationErr(err)
	}

	var updated model.Product
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		repo := s.productRepo.WithDB(db)

		current, err := repo.FindProductByKey(ctx, key)
		if err != nil {
			return fmt.Errorf("product repository find product: %w", err)
		}

		next, err := model.Transition(current.Status, target)
		if err != nil {
			return validationErr(err)
		}

		updated, err = repo.UpdateProductByKey(ctx, key, model.ProductPatch{Status: model.Set(next)}, s.now())
		if err != nil {
			return fmt.Errorf("product repository update product: %w", err)
		}

		if current.Status == next {
			return nil
		}

		return s.publish(ctx, db, event.TopicProductStatusChanged, key, event.ProductStatusChangedEvent{
			BusinessKey: key,
			From:        string(current.Status),
			To:          string(next),
		})
	}); err != nil {
		return model.Product{}, repositoryErr(fmt.Errorf("db with tx: %w", err))
	}

	return updated, nil
}

func (s *productService) DeleteProduct(ctx context.Context, key string) error {
	var deleted model.Product
	if err := s.db.WithTx(ctx, func(db db.DB) error {
		var err error
		deleted, err = s.productRepo.
			WithDB(db).
			DeleteProductByKey(ctx, key)
		if err != nil {
			return fmt.Errorf("product repository delete product: %w", err)
		}

		return s.publish(ctx, db, event.TopicProductDeleted, key, event.ProductDeletedEvent{
			BusinessKey: key,
			Images:      deleted.Images,
		})
	}); err != nil {
		return repositoryErr(fmt.Errorf("db with tx: %w", err))
	}

	s.imageStore.DeleteAll(context.WithoutCancel(ctx), deleted.Images)
	return nil
}

func (s *productService) publish(ctx context.Context, db db.DB, topic, key string, ev any) error {
	evBytes, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", topic, err)
	}

	if err := s.outboxMsgRepo.
		WithDB(db).
		CreateOutboxMsg(ctx, repository.CreateOutboxMsgParams{
			Topic:        topic,
			Headers:      outbox.InjectHeaders(ctx),
			Payload:      evBytes,
			PartitionKey: &key,
		}); err != nil {
		return fmt.Errorf("outbox msg repository create outbox msg: %w", err)
	}

	return nil
}

// releaseUploads removes objects uploaded for a write that did not commit.
func (s *productService) releaseUploads(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		return
	}
	s.logger.WarnContext(ctx, "removing uploads of failed write", slog.Int("count", len(urls)))
	s.imageStore.DeleteAll(context.WithoutCancel(ctx), urls)
}

func validationErr(err error) error {
	return apperr.ValidationErr.WrapParent(err).WithMsg(err.Error())
}

// repositoryErr maps repository failures onto the application errors. Errors
// that are already application errors pass through.
func repositoryErr(err error) error {
	var zErr zerror.ZError
	switch {
	case errors.As(err, &zErr):
		return err
	case errors.Is(err, repository.ErrProductNotFound):
		return apperr.ProductNotFoundErr.WrapParent(err)
	case errors.Is(err, repository.ErrConstraintViolation):
		return apperr.ValidationErr.WrapParent(err)
	default:
		return apperr.PersistenceErr.WrapParent(err)
	}
}
