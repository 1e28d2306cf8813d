// Package validation turns raw, partially-optional product input into typed
// create and update inputs. Checks run in a fixed field order and the first
// failure is returned as a FieldError.
package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/EvershineMarbles/EvershineBackend/internal/model"
	"github.com/EvershineMarbles/EvershineBackend/pkg/ptr"
)

// Field names used in FieldError.
const (
	FieldName              = "name"
	FieldPrice             = "price"
	FieldCategory          = "category"
	FieldApplicationAreas  = "applicationAreas"
	FieldQuantityAvailable = "quantityAvailable"
	FieldNumberOfPieces    = "numberOfPieces"
	FieldStatus            = "status"
	FieldImages            = "images"
	FieldKeepImages        = "keepImages"
)

// FieldError reports the first invalid field.
type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func fieldErr(field, format string, args ...any) FieldError {
	return FieldError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// CreateFields is the raw create input. A nil pointer means the field was not
// sent; ApplicationAreas holds every submitted value as received.
type CreateFields struct {
	Name              *string
	Price             *string
	Category          *string
	ApplicationAreas  []string
	Description       *string
	QuantityAvailable *string
	Size              *string
	Thickness         *string
	NumberOfPieces    *string
	Status            *string
}

// UpdateFields carries the same raw fields as a create. The two requests
// differ in how absence is treated, so they stay distinct types and are
// checked by ValidateCreate and ValidateUpdate respectively.
type UpdateFields CreateFields

// CreateInput is a fully checked create request, minus images.
type CreateInput struct {
	Name              string
	Price             decimal.Decimal
	Category          model.Category
	ApplicationAreas  []model.ApplicationArea
	Description       string
	QuantityAvailable decimal.Decimal
	Size              string
	Thickness         string
	NumberOfPieces    *int
	Status            model.Status
}

// UpdateInput is a checked update request. Patch never carries images; they
// are reconciled separately against the stored record.
type UpdateInput struct {
	Patch model.ProductPatch
}

// FileRules bounds each uploaded image.
type FileRules struct {
	MaxFileSize  int64
	AllowedTypes []string
}

type Validator struct {
	rules FileRules
}

func New(rules FileRules) *Validator {
	return &Validator{rules: rules}
}

// ValidateCreate checks a create request. files are the uploaded images.
func (v *Validator) ValidateCreate(f CreateFields, files []model.ImageFile) (CreateInput, error) {
	var in CreateInput

	if f.Name == nil || strings.TrimSpace(*f.Name) == "" {
		return CreateInput{}, fieldErr(FieldName, "is required")
	}
	in.Name = strings.TrimSpace(*f.Name)

	if f.Price == nil || strings.TrimSpace(*f.Price) == "" {
		return CreateInput{}, fieldErr(FieldPrice, "is required")
	}
	price, err := parsePrice(*f.Price)
	if err != nil {
		return CreateInput{}, err
	}
	in.Price = price

	if f.Category == nil || *f.Category == "" {
		return CreateInput{}, fieldErr(FieldCategory, "is required")
	}
	category, err := parseCategory(*f.Category)
	if err != nil {
		return CreateInput{}, err
	}
	in.Category = category

	if f.ApplicationAreas == nil {
		return CreateInput{}, fieldErr(FieldApplicationAreas, "is required")
	}
	areas, err := NormalizeApplicationAreas(f.ApplicationAreas)
	if err != nil {
		return CreateInput{}, err
	}
	in.ApplicationAreas = areas

	if f.QuantityAvailable == nil || strings.TrimSpace(*f.QuantityAvailable) == "" {
		return CreateInput{}, fieldErr(FieldQuantityAvailable, "is required")
	}
	quantity, err := parseQuantity(*f.QuantityAvailable)
	if err != nil {
		return CreateInput{}, err
	}
	in.QuantityAvailable = quantity

	if f.NumberOfPieces != nil {
		pieces, err := parseNumberOfPieces(*f.NumberOfPieces)
		if err != nil {
			return CreateInput{}, err
		}
		in.NumberOfPieces = pieces
	}

	in.Status = model.StatusDraft
	if f.Status != nil && *f.Status != "" {
		status, err := ParseStatus(*f.Status)
		if err != nil {
			return CreateInput{}, err
		}
		in.Status = status
	}

	if err := CheckImageCount(0, len(files)); err != nil {
		return CreateInput{}, err
	}
	if err := v.CheckFiles(files); err != nil {
		return CreateInput{}, err
	}

	in.Description = ptr.Deref(f.Description, "")
	in.Size = ptr.Deref(f.Size, "")
	in.Thickness = ptr.Deref(f.Thickness, "")

	return in, nil
}

// ValidateUpdate checks the present fields of an update request and the new
// files. The image count is checked later with CheckImageCount once the kept
// images are known.
func (v *Validator) ValidateUpdate(f UpdateFields, files []model.ImageFile) (UpdateInput, error) {
	var p model.ProductPatch

	if f.Name != nil {
		name := strings.TrimSpace(*f.Name)
		if name == "" {
			return UpdateInput{}, fieldErr(FieldName, "must not be empty")
		}
		p.Name = model.Set(name)
	}

	if f.Price != nil {
		price, err := parsePrice(*f.Price)
		if err != nil {
			return UpdateInput{}, err
		}
		p.Price = model.Set(price)
	}

	if f.Category != nil {
		category, err := parseCategory(*f.Category)
		if err != nil {
			return UpdateInput{}, err
		}
		p.Category = model.Set(category)
	}

	if f.ApplicationAreas != nil {
		areas, err := NormalizeApplicationAreas(f.ApplicationAreas)
		if err != nil {
			return UpdateInput{}, err
		}
		p.ApplicationAreas = model.Set(areas)
	}

	if f.QuantityAvailable != nil {
		quantity, err := parseQuantity(*f.QuantityAvailable)
		if err != nil {
			return UpdateInput{}, err
		}
		p.QuantityAvailable = model.Set(quantity)
	}

	if f.NumberOfPieces != nil {
		pieces, err := parseNumberOfPieces(*f.NumberOfPieces)
		if err != nil {
			return UpdateInput{}, err
		}
		p.NumberOfPieces = model.Set(pieces)
	}

	if f.Status != nil {
		status, err := ParseStatus(*f.Status)
		if err != nil {
			return UpdateInput{}, err
		}
		p.Status = model.Set(status)
	}

	if err := v.CheckFiles(files); err != nil {
		return UpdateInput{}, err
	}

	if f.Description != nil {
		p.Description = model.Set(*f.Description)
	}
	if f.Size != nil {
		p.Size = model.Set(*f.Size)
	}
	if f.Thickness != nil {
		p.Thickness = model.Set(*f.Thickness)
	}

	return UpdateInput{Patch: p}, nil
}

// ParseStatus checks a lifecycle status value.
func ParseStatus(raw string) (model.Status, error) {
	status, err := model.ParseStatus(strings.TrimSpace(raw))
	if err != nil {
		return "", fieldErr(FieldStatus, "%q is not one of %s", raw, joinStatuses())
	}
	return status, nil
}

// CheckImageCount checks the final number of images a product would carry.
func CheckImageCount(kept, added int) error {
	total := kept + added
	if total < model.MinImages {
		return fieldErr(FieldImages, "at least %d image is required", model.MinImages)
	}
	if total > model.MaxImages {
		return fieldErr(FieldImages, "at most %d images are allowed, got %d", model.MaxImages, total)
	}
	return nil
}

// NormalizeApplicationAreas accepts repeated values, comma-joined values, or
// both, and returns them trimmed, in first-seen order, without duplicates.
func NormalizeApplicationAreas(raw []string) ([]model.ApplicationArea, error) {
	var (
		areas   []model.ApplicationArea
		invalid []string
		seen    = make(map[model.ApplicationArea]struct{})
	)

	for _, value := range raw {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			area := model.ApplicationArea(part)
			if area.Validate() != nil {
				invalid = append(invalid, part)
				continue
			}
			if _, ok := seen[area]; ok {
				continue
			}
			seen[area] = struct{}{}
			areas = append(areas, area)
		}
	}

	if len(invalid) > 0 {
		return nil, fieldErr(FieldApplicationAreas, "invalid values: %s", strings.Join(invalid, ", "))
	}
	if len(areas) == 0 {
		return nil, fieldErr(FieldApplicationAreas, "at least one application area is required")
	}
	return areas, nil
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fieldErr(FieldPrice, "%q is not a number", raw)
	}
	if !price.IsPositive() {
		return decimal.Decimal{}, fieldErr(FieldPrice, "must be greater than 0")
	}
	return price, nil
}

func parseQuantity(raw string) (decimal.Decimal, error) {
	quantity, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fieldErr(FieldQuantityAvailable, "%q is not a number", raw)
	}
	if quantity.IsNegative() {
		return decimal.Decimal{}, fieldErr(FieldQuantityAvailable, "must be greater than or equal to 0")
	}
	return quantity, nil
}

func parseCategory(raw string) (model.Category, error) {
	category := model.Category(raw)
	if category.Validate() != nil {
		return "", fieldErr(FieldCategory, "%q is not a valid category", raw)
	}
	return category, nil
}

// parseNumberOfPieces returns nil for an empty value, which clears the field.
func parseNumberOfPieces(raw string) (*int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fieldErr(FieldNumberOfPieces, "%q is not an integer", raw)
	}
	if n < 0 {
		return nil, fieldErr(FieldNumberOfPieces, "must be greater than or equal to 0")
	}
	return &n, nil
}

func joinStatuses() string {
	names := make([]string, len(model.Statuses))
	for i, s := range model.Statuses {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}
