package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/EvershineMarbles/EvershineBackend/internal/model"
	"github.com/EvershineMarbles/EvershineBackend/internal/storage/db"
	"github.com/EvershineMarbles/EvershineBackend/pkg/validator"
)

var (
	ErrProductNotFound      = errors.New("product not found")
	ErrDuplicateBusinessKey = errors.New("duplicate business key")
	ErrConstraintViolation  = errors.New("product constraint violation")
)

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

const productsTable = "products"

var productColumns = []string{
	"id",
	"business_key",
	"name",
	"price",
	"category",
	"application_areas",
	"description",
	"quantity_available",
	"size",
	"thickness",
	"number_of_pieces",
	"images",
	"status",
	"created_at",
	"updated_at",
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type ListProductsParams struct {
	// Status filters by lifecycle state when set.
	Status *model.Status
}

type ProductRepository interface {
	WithDB(db db.DB) ProductRepository
	InsertProduct(ctx context.Context, product model.Product) (model.Product, error)
	FindProductByKey(ctx context.Context, key string) (model.Product, error)
	// LockProductByKey reads the product with FOR UPDATE. The lock is held
	// until the surrounding transaction ends.
	LockProductByKey(ctx context.Context, key string) (model.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error)
	// UpdateProductByKey locks the row, applies patch and writes only the
	// patched columns. updatedAt is always written.
	UpdateProductByKey(ctx context.Context, key string, patch model.ProductPatch, updatedAt time.Time) (model.Product, error)
	// DeleteProductByKey removes the product and returns what was stored.
	DeleteProductByKey(ctx context.Context, key string) (model.Product, error)
}

type productRepository struct {
	db        db.DB
	validator validator.Validator
}

func NewProductRepository(db db.DB, validator validator.Validator) ProductRepository {
	return &productRepository{
		db:        db,
		validator: validator,
	}
}

func (r productRepository) WithDB(db db.DB) ProductRepository {
	return &productRepository{
		db:        db,
		validator: r.validator,
	}
}

func (r productRepository) InsertProduct(ctx context.Context, product model.Product) (model.Product, error) {
	if err := r.validate(product); err != nil {
		return model.Product{}, err
	}

	query, args, err := psql.Insert(productsTable).
		SetMap(map[string]any{
			"id":                 product.ID,
			"business_key":       product.BusinessKey,
			"name":               product.Name,
			"price":              toNumeric(product.Price),
			"category":           string(product.Category),
			"application_areas":  model.AreasToStrings(product.ApplicationAreas),
			"description":        product.Description,
			"quantity_available": toNumeric(product.QuantityAvailable),
			"size":               product.Size,
			"thickness":          product.Thickness,
			"number_of_pieces":   product.NumberOfPieces,
			"images":             product.Images,
			"status":             string(product.Status),
			"created_at":         product.CreatedAt,
			"updated_at":         product.UpdatedAt,
		}).
		Suffix(returningProduct()).
		ToSql()
	if err != nil {
		return model.Product{}, fmt.Errorf("build insert product query: %w", err)
	}

	created, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return model.Product{}, fmt.Errorf("insert product: %w", mapPgError(err))
	}

	return created, nil
}

func (r productRepository) FindProductByKey(ctx context.Context, key string) (model.Product, error) {
	query, args, err := psql.Select(productColumns...).
		From(productsTable).
		Where(sq.Eq{"business_key": key}).
		ToSql()
	if err != nil {
		return model.Product{}, fmt.Errorf("build find product query: %w", err)
	}

	product, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return model.Product{}, fmt.Errorf("find product %s: %w", key, mapPgError(err))
	}

	return product, nil
}

func (r productRepository) ListProducts(ctx context.Context, params ListProductsParams) ([]model.Product, error) {
	builder := psql.Select(productColumns...).
		From(productsTable).
		OrderBy("created_at DESC", "id DESC")
	if params.Status != nil {
		builder = builder.Where(sq.Eq{"status": string(*params.Status)})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list products query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products := make([]model.Product, 0)
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func (r productRepository) LockProductByKey(ctx context.Context, key string) (model.Product, error) {
	query, args, err := psql.Select(productColumns...).
		From(productsTable).
		Where(sq.Eq{"business_key": key}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return model.Product{}, fmt.Errorf("build lock product query: %w", err)
	}

	product, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return model.Product{}, fmt.Errorf("lock product %s: %w", key, mapPgError(err))
	}

	return product, nil
}

func (r productRepository) UpdateProductByKey(ctx context.Context, key string, patch model.ProductPatch, updatedAt time.Time) (model.Product, error) {
	current, err := r.LockProductByKey(ctx, key)
	if err != nil {
		return model.Product{}, err
	}

	if err := r.validate(patch.ApplyTo(current)); err != nil {
		return model.Product{}, err
	}

	columns := patchColumns(patch)
	columns["updated_at"] = updatedAt

	query, args, err := psql.Update(productsTable).
		SetMap(columns).
		Where(sq.Eq{"id": current.ID}).
		Suffix(returningProduct()).
		ToSql()
	if err != nil {
		return model.Product{}, fmt.Errorf("build update product query: %w", err)
	}

	updated, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return model.Product{}, fmt.Errorf("update product %s: %w", key, mapPgError(err))
	}

	return updated, nil
}

func (r productRepository) DeleteProductByKey(ctx context.Context, key string) (model.Product, error) {
	query, args, err := psql.Delete(productsTable).
		Where(sq.Eq{"business_key": key}).
		Suffix(returningProduct()).
		ToSql()
	if err != nil {
		return model.Product{}, fmt.Errorf("build delete product query: %w", err)
	}

	deleted, err := scanProduct(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		return model.Product{}, fmt.Errorf("delete product %s: %w", key, mapPgError(err))
	}

	return deleted, nil
}

func (r productRepository) validate(product model.Product) error {
	if err := r.validator.Validate(product); err != nil {
		return fmt.Errorf("%w: %w", ErrConstraintViolation, err)
	}
	return nil
}

// patchColumns maps the present fields of patch to their columns.
func patchColumns(patch model.ProductPatch) map[string]any {
	columns := make(map[string]any)
	if patch.Name.Present {
		columns["name"] = patch.Name.Value
	}
	if patch.Price.Present {
		columns["price"] = toNumeric(patch.Price.Value)
	}
	if patch.Category.Present {
		columns["category"] = string(patch.Category.Value)
	}
	if patch.ApplicationAreas.Present {
		columns["application_areas"] = model.AreasToStrings(patch.ApplicationAreas.Value)
	}
	if patch.Description.Present {
		columns["description"] = patch.Description.Value
	}
	if patch.QuantityAvailable.Present {
		columns["quantity_available"] = toNumeric(patch.QuantityAvailable.Value)
	}
	if patch.Size.Present {
		columns["size"] = patch.Size.Value
	}
	if patch.Thickness.Present {
		columns["thickness"] = patch.Thickness.Value
	}
	if patch.NumberOfPieces.Present {
		columns["number_of_pieces"] = patch.NumberOfPieces.Value
	}
	if patch.Images.Present {
		columns["images"] = patch.Images.Value
	}
	if patch.Status.Present {
		columns["status"] = string(patch.Status.Value)
	}
	return columns
}

func returningProduct() string {
	return "RETURNING " + strings.Join(productColumns, ", ")
}

func scanProduct(row pgx.Row) (model.Product, error) {
	var (
		p         model.Product
		price     pgtype.Numeric
		quantity  pgtype.Numeric
		category  string
		areas     []string
		status    string
		numPieces *int32
	)

	if err := row.Scan(
		&p.ID,
		&p.BusinessKey,
		&p.Name,
		&price,
		&category,
		&areas,
		&p.Description,
		&quantity,
		&p.Size,
		&p.Thickness,
		&numPieces,
		&p.Images,
		&status,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return model.Product{}, err
	}

	var err error
	if p.Price, err = fromNumeric(price); err != nil {
		return model.Product{}, fmt.Errorf("convert price: %w", err)
	}
	if p.QuantityAvailable, err = fromNumeric(quantity); err != nil {
		return model.Product{}, fmt.Errorf("convert quantity available: %w", err)
	}

	p.Category = model.Category(category)
	p.ApplicationAreas = model.AreasFromStrings(areas)
	p.Status = model.Status(status)
	if numPieces != nil {
		n := int(*numPieces)
		p.NumberOfPieces = &n
	}

	return p, nil
}

func toNumeric(d decimal.Decimal) pgtype.Numeric {
	return pgtype.Numeric{Int: d.Coefficient(), Exp: d.Exponent(), Valid: true}
}

func fromNumeric(n pgtype.Numeric) (decimal.Decimal, error) {
	if !n.Valid {
		return decimal.Decimal{}, errors.New("numeric is null")
	}
	if n.NaN || n.InfinityModifier != pgtype.Finite {
		return decimal.Decimal{}, errors.New("numeric is not finite")
	}
	return decimal.NewFromBigInt(n.Int, n.Exp), nil
}

func mapPgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrProductNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrDuplicateBusinessKey, pgErr.Detail)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s", ErrConstraintViolation, pgErr.ConstraintName)
		}
	}

	return err
}
